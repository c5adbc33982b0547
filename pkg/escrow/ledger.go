package escrow

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/speedrun-hq/execregistry/pkg/logger"
	"github.com/speedrun-hq/execregistry/pkg/models"
)

// Ledger performs the escrow movements behind request lifecycle transitions:
// reservation at creation, incremental reservation at speed-up, and a single
// release at the terminal transition.
type Ledger struct {
	bank         Bank
	paymentToken common.Address
	custody      common.Address
	logger       logger.Logger
}

// NewLedger creates a ledger that escrows payment in paymentToken through
// the given bank. Custody is the address reserved funds are held at and must
// be the bank's operator.
func NewLedger(bank Bank, paymentToken, custody common.Address, log logger.Logger) *Ledger {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Ledger{bank: bank, paymentToken: paymentToken, custody: custody, logger: log}
}

// PaymentToken returns the token payment reservations are denominated in.
func (l *Ledger) PaymentToken() common.Address {
	return l.paymentToken
}

// Bank returns the underlying token backend.
func (l *Ledger) Bank() Bank {
	return l.bank
}

// Reserve escrows the payment reservation (gasLimit*gasPrice + tip) and every
// input token amount from payer. The input-token bound is checked before any
// transfer. If a later pull fails, everything already pulled is returned to
// the payer so no partial escrow is ever left outstanding.
func (l *Ledger) Reserve(ctx context.Context, payer common.Address, gasLimit uint64, gasPrice, tip *big.Int, inputTokens []models.InputToken) (*big.Int, error) {
	if len(inputTokens) > models.MaxInputTokens {
		return nil, ErrTooManyInputs
	}

	payment := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), gasPrice)
	payment.Add(payment, tip)

	if err := l.bank.TransferFrom(ctx, l.paymentToken, payer, l.custody, payment); err != nil {
		return nil, err
	}

	for i, it := range inputTokens {
		if err := l.bank.TransferFrom(ctx, it.Token, payer, l.custody, it.Amount); err != nil {
			l.unwind(ctx, payer, payment, inputTokens[:i])
			return nil, err
		}
	}

	l.logger.DebugWith(logger.Escrow, "Reserved %s payment and %d input tokens from %s",
		payment.String(), len(inputTokens), payer.Hex())
	return payment, nil
}

// ReservePayment escrows an additional payment-only amount from payer. Used
// by speed-up, which re-reserves only the gas price difference.
func (l *Ledger) ReservePayment(ctx context.Context, payer common.Address, amount *big.Int) error {
	if err := l.bank.TransferFrom(ctx, l.paymentToken, payer, l.custody, amount); err != nil {
		return err
	}
	l.logger.DebugWith(logger.Escrow, "Reserved additional %s payment from %s", amount.String(), payer.Hex())
	return nil
}

// Release transfers a record's full payment reservation and every input
// token to destination. The registry closes the record before calling, which
// is what makes release exactly-once.
func (l *Ledger) Release(ctx context.Context, req *models.Request, destination common.Address) error {
	if err := l.bank.Transfer(ctx, l.paymentToken, destination, req.PaymentReservation()); err != nil {
		return err
	}
	for _, it := range req.InputTokens {
		if err := l.bank.Transfer(ctx, it.Token, destination, it.Amount); err != nil {
			return err
		}
	}
	l.logger.DebugWith(logger.Escrow, "Released escrow for %s to %s", req.ExecHash.Hex(), destination.Hex())
	return nil
}

// unwind returns already-pulled funds after a mid-reservation failure.
func (l *Ledger) unwind(ctx context.Context, payer common.Address, payment *big.Int, pulled []models.InputToken) {
	if err := l.bank.Transfer(ctx, l.paymentToken, payer, payment); err != nil {
		l.logger.ErrorWith(logger.Escrow, "Failed to unwind payment reservation for %s: %v", payer.Hex(), err)
	}
	for _, it := range pulled {
		if err := l.bank.Transfer(ctx, it.Token, payer, it.Amount); err != nil {
			l.logger.ErrorWith(logger.Escrow, "Failed to unwind input token %s for %s: %v", it.Token.Hex(), payer.Hex(), err)
		}
	}
}
