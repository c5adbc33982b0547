package registry

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/speedrun-hq/execregistry/pkg/execid"
	"github.com/speedrun-hq/execregistry/pkg/logger"
	"github.com/speedrun-hq/execregistry/pkg/metrics"
	"github.com/speedrun-hq/execregistry/pkg/models"
	"github.com/speedrun-hq/execregistry/pkg/xdomain"
)

// CreateRequest escrows payment and input tokens from caller and stores a
// new locked record. Tokens stay locked until the creator schedules an
// unlock.
func (r *Registry) CreateRequest(ctx context.Context, caller, strategy common.Address, calldata []byte, gasLimit uint64, gasPrice, tip *big.Int, inputTokens []models.InputToken) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.create(ctx, caller, strategy, calldata, gasLimit, gasPrice, tip, inputTokens, 0, "standard")
}

// CreateRequestWithTimeout is CreateRequest with the unlock pre-scheduled at
// creation time: unlockTimestamp is set to now + unlockDelaySeconds, which
// must be at least MinUnlockDelaySeconds.
func (r *Registry) CreateRequestWithTimeout(ctx context.Context, caller, strategy common.Address, calldata []byte, gasLimit uint64, gasPrice, tip *big.Int, inputTokens []models.InputToken, unlockDelaySeconds uint64) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if unlockDelaySeconds < MinUnlockDelaySeconds {
		return common.Hash{}, r.reject("create_with_timeout", ErrDelayTooSmall)
	}
	return r.create(ctx, caller, strategy, calldata, gasLimit, gasPrice, tip, inputTokens, r.clock.Now()+unlockDelaySeconds, "timeout")
}

// create performs the shared creation transition. Caller holds r.mu.
// Escrow is reserved strictly before the record becomes observable, and the
// nonce is consumed only once the reservation succeeded.
func (r *Registry) create(ctx context.Context, caller, strategy common.Address, calldata []byte, gasLimit uint64, gasPrice, tip *big.Int, inputTokens []models.InputToken, unlockTimestamp uint64, kind string) (common.Hash, error) {
	if gasPrice == nil {
		gasPrice = big.NewInt(0)
	}
	if tip == nil {
		tip = big.NewInt(0)
	}

	payment, err := r.ledger.Reserve(ctx, caller, gasLimit, gasPrice, tip, inputTokens)
	if err != nil {
		return common.Hash{}, r.reject("create", err)
	}

	r.nonce++
	execHash := execid.Hash(r.nonce, strategy, calldata, gasPrice)

	req := &models.Request{
		ExecHash:        execHash,
		Nonce:           r.nonce,
		Strategy:        strategy,
		Calldata:        append([]byte(nil), calldata...),
		GasLimit:        gasLimit,
		GasPrice:        new(big.Int).Set(gasPrice),
		Tip:             new(big.Int).Set(tip),
		Creator:         caller,
		InputTokens:     copyInputs(inputTokens),
		UnlockTimestamp: unlockTimestamp,
		Status:          models.StatusOpen,
	}
	r.records[execHash] = req

	metrics.RequestsCreated.WithLabelValues(kind).Inc()
	metrics.OpenRequests.Inc()
	paymentFloat, _ := new(big.Float).SetInt(payment).Float64()
	metrics.EscrowReserved.WithLabelValues(kind).Add(paymentFloat)

	r.logger.InfoWith(logger.Registry, "Created request %s (nonce %d, strategy %s, payment %s, %d input tokens)",
		execHash.Hex(), req.Nonce, strategy.Hex(), payment.String(), len(inputTokens))

	r.record(ctx, req)
	return execHash, nil
}

// SpeedUpRequest re-auctions a stalled request at a higher gas price. Only
// the gas price difference is re-reserved; a successor record with a fresh
// nonce takes over the payment reservation and the input token bonds, and
// the original is closed as superseded with a pointer to its successor.
func (r *Registry) SpeedUpRequest(ctx context.Context, caller common.Address, execHash common.Hash, newGasPrice *big.Int) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.records[execHash]
	if !ok {
		return common.Hash{}, r.reject("speedup", ErrRequestNotFound)
	}
	if req.Creator != caller {
		return common.Hash{}, r.reject("speedup", ErrNotCreator)
	}
	if req.Status == models.StatusSuperseded {
		return common.Hash{}, r.reject("speedup", ErrRequestSuperseded)
	}
	if req.Closed() {
		return common.Hash{}, r.reject("speedup", ErrRequestClosed)
	}
	if newGasPrice == nil || newGasPrice.Cmp(req.GasPrice) <= 0 {
		return common.Hash{}, r.reject("speedup", ErrGasPriceNotHigher)
	}

	increment := new(big.Int).Sub(newGasPrice, req.GasPrice)
	increment.Mul(increment, new(big.Int).SetUint64(req.GasLimit))
	if err := r.ledger.ReservePayment(ctx, caller, increment); err != nil {
		return common.Hash{}, r.reject("speedup", err)
	}

	r.nonce++
	newHash := execid.Hash(r.nonce, req.Strategy, req.Calldata, newGasPrice)

	successor := &models.Request{
		ExecHash:        newHash,
		Nonce:           r.nonce,
		Strategy:        req.Strategy,
		Calldata:        append([]byte(nil), req.Calldata...),
		GasLimit:        req.GasLimit,
		GasPrice:        new(big.Int).Set(newGasPrice),
		Tip:             new(big.Int).Set(req.Tip),
		Creator:         req.Creator,
		InputTokens:     req.CopyInputTokens(),
		UnlockTimestamp: req.UnlockTimestamp, // a pending schedule carries over
		Status:          models.StatusOpen,
		Uncle:           execHash,
	}
	r.records[newHash] = successor

	req.Status = models.StatusSuperseded
	req.Successor = newHash

	metrics.RequestsCreated.WithLabelValues("speedup").Inc()
	incrementFloat, _ := new(big.Float).SetInt(increment).Float64()
	metrics.EscrowReserved.WithLabelValues("speedup").Add(incrementFloat)

	r.logger.InfoWith(logger.Registry, "Sped up request %s -> %s (gas price %s -> %s, +%s escrowed)",
		execHash.Hex(), newHash.Hex(), req.GasPrice.String(), newGasPrice.String(), increment.String())

	r.record(ctx, req)
	r.record(ctx, successor)
	return newHash, nil
}

// UnlockTokens schedules the withdrawal window for execHash. A second
// scheduling attempt while one is pending is rejected so the delay cannot be
// reset to something shorter.
func (r *Registry) UnlockTokens(ctx context.Context, caller common.Address, execHash common.Hash, unlockDelaySeconds uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.records[execHash]
	if !ok {
		return r.reject("unlock", ErrRequestNotFound)
	}
	if req.Creator != caller {
		return r.reject("unlock", ErrNotCreator)
	}
	if unlockDelaySeconds < MinUnlockDelaySeconds {
		return r.reject("unlock", ErrDelayTooSmall)
	}
	if req.Status == models.StatusSuperseded {
		return r.reject("unlock", ErrRequestSuperseded)
	}
	if req.Closed() {
		return r.reject("unlock", ErrRequestClosed)
	}
	if req.UnlockTimestamp != 0 {
		return r.reject("unlock", ErrUnlockAlreadyScheduled)
	}

	req.UnlockTimestamp = r.clock.Now() + unlockDelaySeconds
	metrics.UnlocksScheduled.Inc()
	r.logger.InfoWith(logger.Registry, "Scheduled unlock for %s at %d", execHash.Hex(), req.UnlockTimestamp)
	r.record(ctx, req)
	return nil
}

// RelockTokens cancels a pending unlock before its delay elapses, returning
// the request to fully locked state. Intended for creators who observe a
// relayer actively working.
func (r *Registry) RelockTokens(ctx context.Context, caller common.Address, execHash common.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.records[execHash]
	if !ok {
		return r.reject("relock", ErrRequestNotFound)
	}
	if req.Creator != caller {
		return r.reject("relock", ErrNotCreator)
	}
	if req.Status == models.StatusSuperseded {
		return r.reject("relock", ErrRequestSuperseded)
	}
	if req.Closed() {
		return r.reject("relock", ErrRequestClosed)
	}
	if req.UnlockTimestamp == 0 {
		return r.reject("relock", ErrNoUnlockScheduled)
	}
	if r.clock.Now() >= req.UnlockTimestamp {
		return r.reject("relock", ErrUnlockPassed)
	}

	req.UnlockTimestamp = 0
	metrics.Relocks.Inc()
	r.logger.InfoWith(logger.Registry, "Relocked request %s", execHash.Hex())
	r.record(ctx, req)
	return nil
}

// WithdrawTokens returns the full escrow to the creator once the unlock
// delay has elapsed, and tombstones the record.
func (r *Registry) WithdrawTokens(ctx context.Context, caller common.Address, execHash common.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.records[execHash]
	if !ok {
		return r.reject("withdraw", ErrRequestNotFound)
	}
	if req.Creator != caller {
		return r.reject("withdraw", ErrNotCreator)
	}
	if req.Status == models.StatusSuperseded {
		return r.reject("withdraw", ErrRequestSuperseded)
	}
	if req.Closed() {
		return r.reject("withdraw", ErrRequestClosed)
	}
	if req.UnlockTimestamp == 0 {
		return r.reject("withdraw", ErrNoUnlockScheduled)
	}
	if r.clock.Now() < req.UnlockTimestamp {
		return r.reject("withdraw", ErrUnlockNotElapsed)
	}

	// Close before moving funds: at most one terminal transition per record.
	req.Status = models.StatusWithdrawn
	if err := r.ledger.Release(ctx, req, req.Creator); err != nil {
		// The record stays closed; an escrow that cannot move is frozen
		// rather than made double-releasable.
		r.logger.ErrorWith(logger.Registry, "Escrow release failed for withdrawal of %s: %v", execHash.Hex(), err)
		return err
	}

	metrics.RequestsWithdrawn.Inc()
	metrics.OpenRequests.Dec()
	r.logger.InfoWith(logger.Registry, "Withdrew request %s to creator %s", execHash.Hex(), req.Creator.Hex())
	r.record(ctx, req)
	return nil
}

// ClaimInputTokens releases a record's escrow to recipient on behalf of the
// execution manager. The inbound call must be attested by the configured
// messenger as originating from the connected manager on the linked chain.
func (r *Registry) ClaimInputTokens(ctx context.Context, call xdomain.InboundCall, execHash common.Hash, recipient common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.link.Authenticate(call); err != nil {
		return r.reject("claim", err)
	}

	req, ok := r.records[execHash]
	if !ok {
		return r.reject("claim", ErrRequestNotFound)
	}
	if req.Status == models.StatusSuperseded {
		return r.reject("claim", ErrRequestSuperseded)
	}
	if req.Closed() {
		return r.reject("claim", ErrRequestClosed)
	}

	req.Status = models.StatusClaimed
	if err := r.ledger.Release(ctx, req, recipient); err != nil {
		r.logger.ErrorWith(logger.Registry, "Escrow release failed for claim of %s: %v", execHash.Hex(), err)
		return err
	}

	metrics.RequestsClaimed.Inc()
	metrics.OpenRequests.Dec()
	r.logger.NoticeWith(logger.Registry, "Claimed request %s for executor %s", execHash.Hex(), recipient.Hex())
	r.record(ctx, req)
	return nil
}

// reject counts and returns a rejection. Caller holds r.mu.
func (r *Registry) reject(operation string, err error) error {
	metrics.RejectedCalls.WithLabelValues(operation, err.Error()).Inc()
	r.logger.DebugWith(logger.Registry, "Rejected %s: %v", operation, err)
	return err
}

func copyInputs(inputs []models.InputToken) []models.InputToken {
	if len(inputs) == 0 {
		return nil
	}
	out := make([]models.InputToken, len(inputs))
	for i, it := range inputs {
		out[i] = models.InputToken{Token: it.Token, Amount: new(big.Int).Set(it.Amount)}
	}
	return out
}
