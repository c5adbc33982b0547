// Package registry implements the request lifecycle state machine: the
// canonical record per exec hash, its escrow bookkeeping, and the
// time-delayed unlock protocol that lets creators reclaim funds no relayer
// ever executed.
package registry

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/speedrun-hq/execregistry/pkg/auth"
	"github.com/speedrun-hq/execregistry/pkg/clock"
	"github.com/speedrun-hq/execregistry/pkg/escrow"
	"github.com/speedrun-hq/execregistry/pkg/logger"
	"github.com/speedrun-hq/execregistry/pkg/models"
	"github.com/speedrun-hq/execregistry/pkg/xdomain"
)

// MinUnlockDelaySeconds is the minimum wait between scheduling an unlock and
// being able to withdraw, sized to outlast cross-chain execution plus
// confirmation time.
const MinUnlockDelaySeconds uint64 = 300

// Journal receives a copy of every record whose state changed. Journal
// failures are logged but never abort a ledger transition.
type Journal interface {
	RecordRequest(ctx context.Context, req *models.Request) error
}

// Registry owns the canonical record per exec hash and the global nonce
// counter. Every state-changing call runs under one mutex: the ledger is
// strictly sequential, and no call observes a partially-applied state of
// another.
type Registry struct {
	mu      sync.Mutex
	records map[common.Hash]*models.Request
	nonce   uint64

	ledger  *escrow.Ledger
	gate    *auth.Gate
	link    *xdomain.Link
	clock   clock.Clock
	journal Journal
	logger  logger.Logger
}

// New creates a registry over the given collaborators. journal may be nil.
func New(ledger *escrow.Ledger, gate *auth.Gate, link *xdomain.Link, clk clock.Clock, journal Journal, log logger.Logger) *Registry {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Registry{
		records: make(map[common.Hash]*models.Request),
		ledger:  ledger,
		gate:    gate,
		link:    link,
		clock:   clk,
		journal: journal,
		logger:  log,
	}
}

// Nonce returns the number of requests created so far. The next creation
// consumes Nonce()+1.
func (r *Registry) Nonce() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nonce
}

// GetRequest returns a copy of the record for execHash.
func (r *Registry) GetRequest(execHash common.Hash) (*models.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.records[execHash]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return snapshot(req), nil
}

// GetRequestInputTokens returns the bonded (token, amount) pairs for
// execHash in submission order.
func (r *Registry) GetRequestInputTokens(execHash common.Hash) ([]models.InputToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.records[execHash]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return req.CopyInputTokens(), nil
}

// GetRequestUnlockTimestamp returns the unix time at which execHash becomes
// withdrawable, 0 if no unlock is scheduled.
func (r *Registry) GetRequestUnlockTimestamp(execHash common.Hash) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.records[execHash]
	if !ok {
		return 0, ErrRequestNotFound
	}
	return req.UnlockTimestamp, nil
}

// Owner returns the current gate owner.
func (r *Registry) Owner() common.Address {
	return r.gate.Owner()
}

// Authority returns the pluggable authority, nil if unset.
func (r *Registry) Authority() auth.Authority {
	return r.gate.Authority()
}

// Messenger returns the trusted cross-domain messenger address.
func (r *Registry) Messenger() common.Address {
	return r.link.Messenger()
}

// ExecutionManager returns the connected execution manager address of
// record.
func (r *Registry) ExecutionManager() common.Address {
	return r.link.ExecutionManager()
}

// PaymentToken returns the token payment reservations are denominated in.
func (r *Registry) PaymentToken() common.Address {
	return r.ledger.PaymentToken()
}

// SetOwner transfers gate ownership. Privileged.
func (r *Registry) SetOwner(caller, newOwner common.Address) error {
	return r.gate.SetOwner(caller, newOwner)
}

// SetAuthority installs or clears the pluggable authority. Privileged.
func (r *Registry) SetAuthority(caller common.Address, authority auth.Authority) error {
	return r.gate.SetAuthority(caller, authority)
}

// ConnectExecutionManager records the paired execution manager on the linked
// chain. Privileged.
func (r *Registry) ConnectExecutionManager(caller, manager common.Address) error {
	if err := r.gate.Authorize(caller, auth.SigConnectExecutionManager); err != nil {
		return err
	}
	r.link.ConnectExecutionManager(manager)
	r.logger.NoticeWith(logger.Registry, "Connected execution manager %s", manager.Hex())
	return nil
}

// record journals a state change; the ledger transition already happened and
// is never rolled back for a journaling failure.
func (r *Registry) record(ctx context.Context, req *models.Request) {
	if r.journal == nil {
		return
	}
	if err := r.journal.RecordRequest(ctx, snapshot(req)); err != nil {
		r.logger.ErrorWith(logger.Registry, "Failed to journal request %s: %v", req.ExecHash.Hex(), err)
	}
}

// snapshot copies a record so callers can never mutate ledger state.
func snapshot(req *models.Request) *models.Request {
	out := *req
	out.Calldata = append([]byte(nil), req.Calldata...)
	out.GasPrice = new(big.Int).Set(req.GasPrice)
	out.Tip = new(big.Int).Set(req.Tip)
	out.InputTokens = req.CopyInputTokens()
	return &out
}
