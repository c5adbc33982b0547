// Package escrow moves payment-token and input-token funds between
// requesters, registry custody, and executors. The registry decides when
// funds move; the escrow decides how.
package escrow

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Stable failure reasons surfaced to callers.
var (
	// ErrTooManyInputs is returned before any transfer when a request bonds
	// more input tokens than the registry allows.
	ErrTooManyInputs = errors.New("TOO_MANY_INPUTS")

	// ErrInsufficientAllowance mirrors the token layer's allowance failure.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrInsufficientBalance mirrors the token layer's balance failure.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Bank is the token backend the escrow ledger drives. Transfers are made on
// behalf of a fixed operator (the registry's custody address): TransferFrom
// spends the operator's allowance from the owner, Transfer spends the
// operator's own holdings.
type Bank interface {
	// TransferFrom pulls amount units of token from owner to recipient,
	// consuming the allowance the owner granted to the operator.
	TransferFrom(ctx context.Context, token, owner, recipient common.Address, amount *big.Int) error

	// Transfer sends amount units of token from the operator to recipient.
	Transfer(ctx context.Context, token, recipient common.Address, amount *big.Int) error

	// Allowance returns the remaining allowance owner has granted to the
	// operator for token.
	Allowance(ctx context.Context, token, owner common.Address) (*big.Int, error)

	// BalanceOf returns holder's balance of token.
	BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error)
}
