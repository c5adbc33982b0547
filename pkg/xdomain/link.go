// Package xdomain authenticates inbound calls as originating from the
// paired execution manager on the linked chain, and hosts the relay worker
// that applies completion messages delivered over the bridge.
package xdomain

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotMessenger is returned when an inbound call was not delivered by
	// the configured cross-domain messenger.
	ErrNotMessenger = errors.New("NOT_CROSS_DOMAIN_MESSENGER")

	// ErrNotExecutionManager is returned when the messenger attests a
	// cross-chain sender other than the connected execution manager.
	ErrNotExecutionManager = errors.New("NOT_EXECUTION_MANAGER")
)

// InboundCall is an authenticated cross-domain call as observed by the
// registry: who delivered it locally and who the messenger attests sent it
// on the other chain.
type InboundCall struct {
	// Messenger is the local address the call arrived through.
	Messenger common.Address
	// CrossDomainSender is the attested origin on the linked chain.
	CrossDomainSender common.Address
}

// Link is the registry's view of the cross-domain channel: the trusted
// messenger and the address of record for the paired execution manager.
type Link struct {
	mu               sync.RWMutex
	messenger        common.Address
	executionManager common.Address
}

// NewLink creates a link trusting the given messenger. The execution manager
// starts unset and must be connected before claims are accepted.
func NewLink(messenger common.Address) *Link {
	return &Link{messenger: messenger}
}

// Messenger returns the trusted messenger address.
func (l *Link) Messenger() common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.messenger
}

// ExecutionManager returns the connected execution manager address of
// record, zero if not yet connected.
func (l *Link) ExecutionManager() common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.executionManager
}

// ConnectExecutionManager records the paired execution manager's address.
// Authorization is the registry's responsibility.
func (l *Link) ConnectExecutionManager(manager common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.executionManager = manager
}

// Authenticate verifies both halves of the trust boundary: the call was
// delivered by the configured messenger, and the messenger attests it was
// sent by the connected execution manager.
func (l *Link) Authenticate(call InboundCall) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if call.Messenger != l.messenger {
		return ErrNotMessenger
	}
	if l.executionManager == (common.Address{}) || call.CrossDomainSender != l.executionManager {
		return ErrNotExecutionManager
	}
	return nil
}
