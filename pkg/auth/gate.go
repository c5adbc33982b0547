// Package auth guards the registry's privileged configuration entry points
// with an owner address plus an optional pluggable authority.
package auth

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrUnauthorized is returned when a caller fails the gate.
var ErrUnauthorized = errors.New("UNAUTHORIZED")

// Authority is a pluggable authorization policy consulted for callers other
// than the owner.
type Authority interface {
	// CanCall reports whether src may invoke the function identified by sig
	// on dst.
	CanCall(src, dst common.Address, sig [4]byte) bool
}

// Gate checks privileged calls against an owner and an optional Authority.
// With no authority set, only the owner passes.
type Gate struct {
	mu        sync.RWMutex
	owner     common.Address
	authority Authority
	target    common.Address
}

// NewGate creates a gate owned by owner, protecting the contract-of-record
// at target.
func NewGate(owner, target common.Address) *Gate {
	return &Gate{owner: owner, target: target}
}

// Owner returns the current owner.
func (g *Gate) Owner() common.Address {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.owner
}

// Authority returns the pluggable authority, or nil if unset.
func (g *Gate) Authority() Authority {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.authority
}

// Authorize checks whether caller may invoke the privileged function
// identified by sig.
func (g *Gate) Authorize(caller common.Address, sig [4]byte) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if caller == g.owner {
		return nil
	}
	if g.authority != nil && g.authority.CanCall(caller, g.target, sig) {
		return nil
	}
	return ErrUnauthorized
}

// SetOwner transfers ownership. The caller must pass the gate.
func (g *Gate) SetOwner(caller, newOwner common.Address) error {
	if err := g.Authorize(caller, SigSetOwner); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.owner = newOwner
	return nil
}

// SetAuthority installs or clears the pluggable authority. The caller must
// pass the gate.
func (g *Gate) SetAuthority(caller common.Address, authority Authority) error {
	if err := g.Authorize(caller, SigSetAuthority); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authority = authority
	return nil
}

// 4-byte selectors for the privileged registry functions, handed to
// Authority implementations so policies can discriminate per entry point.
var (
	SigSetOwner                = Selector("setOwner(address)")
	SigSetAuthority            = Selector("setAuthority(address)")
	SigConnectExecutionManager = Selector("connectExecutionManager(address)")
)

// Selector derives the 4-byte function selector for a signature string.
func Selector(signature string) [4]byte {
	var sig [4]byte
	copy(sig[:], crypto.Keccak256([]byte(signature))[:4])
	return sig
}
