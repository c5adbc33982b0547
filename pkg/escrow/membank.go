package escrow

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemoryBank is an in-process Bank with standard fungible-token semantics:
// balances per (token, holder) and allowances per (token, owner) granted to
// the operator. It backs the service's ledger mode and the test suite.
type MemoryBank struct {
	operator common.Address

	mu         sync.Mutex
	balances   map[common.Address]map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

var _ Bank = (*MemoryBank)(nil)

// NewMemoryBank creates an empty bank whose transfers are made on behalf of
// operator.
func NewMemoryBank(operator common.Address) *MemoryBank {
	return &MemoryBank{
		operator:   operator,
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Operator returns the custody address transfers are made on behalf of.
func (b *MemoryBank) Operator() common.Address {
	return b.operator
}

// Mint credits amount units of token to holder.
func (b *MemoryBank) Mint(token, holder common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(token, holder, amount)
}

// Approve sets the allowance owner grants to the operator for token,
// replacing any previous value.
func (b *MemoryBank) Approve(token, owner common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.allowances[token] == nil {
		b.allowances[token] = make(map[common.Address]*big.Int)
	}
	b.allowances[token][owner] = new(big.Int).Set(amount)
}

func (b *MemoryBank) TransferFrom(_ context.Context, token, owner, recipient common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	allowance := b.allowance(token, owner)
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if b.balance(token, owner).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	b.allowances[token][owner] = new(big.Int).Sub(allowance, amount)
	b.debit(token, owner, amount)
	b.credit(token, recipient, amount)
	return nil
}

func (b *MemoryBank) Transfer(_ context.Context, token, recipient common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.balance(token, b.operator).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	b.debit(token, b.operator, amount)
	b.credit(token, recipient, amount)
	return nil
}

func (b *MemoryBank) Allowance(_ context.Context, token, owner common.Address) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.allowance(token, owner)), nil
}

func (b *MemoryBank) BalanceOf(_ context.Context, token, holder common.Address) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.balance(token, holder)), nil
}

// callers hold b.mu for the helpers below

func (b *MemoryBank) balance(token, holder common.Address) *big.Int {
	if b.balances[token] == nil || b.balances[token][holder] == nil {
		return big.NewInt(0)
	}
	return b.balances[token][holder]
}

func (b *MemoryBank) allowance(token, owner common.Address) *big.Int {
	if b.allowances[token] == nil || b.allowances[token][owner] == nil {
		return big.NewInt(0)
	}
	return b.allowances[token][owner]
}

func (b *MemoryBank) credit(token, holder common.Address, amount *big.Int) {
	if b.balances[token] == nil {
		b.balances[token] = make(map[common.Address]*big.Int)
	}
	b.balances[token][holder] = new(big.Int).Add(b.balance(token, holder), amount)
}

func (b *MemoryBank) debit(token, holder common.Address, amount *big.Int) {
	b.balances[token][holder] = new(big.Int).Sub(b.balance(token, holder), amount)
}
