package xdomain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var (
	messenger = common.HexToAddress("0x1111111111111111111111111111111111111111")
	manager   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	attacker  = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func TestAuthenticateAcceptsPairedCall(t *testing.T) {
	l := NewLink(messenger)
	l.ConnectExecutionManager(manager)

	err := l.Authenticate(InboundCall{Messenger: messenger, CrossDomainSender: manager})
	assert.NoError(t, err)
}

func TestAuthenticateRejectsWrongMessenger(t *testing.T) {
	l := NewLink(messenger)
	l.ConnectExecutionManager(manager)

	err := l.Authenticate(InboundCall{Messenger: attacker, CrossDomainSender: manager})
	assert.ErrorIs(t, err, ErrNotMessenger)
}

func TestAuthenticateRejectsWrongSender(t *testing.T) {
	l := NewLink(messenger)
	l.ConnectExecutionManager(manager)

	err := l.Authenticate(InboundCall{Messenger: messenger, CrossDomainSender: attacker})
	assert.ErrorIs(t, err, ErrNotExecutionManager)
}

func TestAuthenticateRejectsBeforeConnect(t *testing.T) {
	l := NewLink(messenger)

	// Nothing authenticates until a manager is connected, even a zero sender.
	err := l.Authenticate(InboundCall{Messenger: messenger})
	assert.ErrorIs(t, err, ErrNotExecutionManager)
	assert.Equal(t, common.Address{}, l.ExecutionManager())
}

func TestConnectExecutionManagerReplaces(t *testing.T) {
	l := NewLink(messenger)
	l.ConnectExecutionManager(manager)
	l.ConnectExecutionManager(attacker)

	assert.Equal(t, attacker, l.ExecutionManager())
	err := l.Authenticate(InboundCall{Messenger: messenger, CrossDomainSender: manager})
	assert.ErrorIs(t, err, ErrNotExecutionManager)
}
