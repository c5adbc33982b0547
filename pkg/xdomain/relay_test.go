package xdomain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockClaimer records applied claims and can be primed to fail.
type MockClaimer struct {
	mu      sync.Mutex
	claims  []common.Hash
	failErr error
	applied chan struct{}
}

func NewMockClaimer() *MockClaimer {
	return &MockClaimer{applied: make(chan struct{}, 100)}
}

func (m *MockClaimer) ClaimInputTokens(_ context.Context, _ InboundCall, execHash common.Hash, _ common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.applied <- struct{}{} }()

	if m.failErr != nil {
		return m.failErr
	}
	m.claims = append(m.claims, execHash)
	return nil
}

func (m *MockClaimer) Claims() []common.Hash {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]common.Hash(nil), m.claims...)
}

func waitApplied(t *testing.T, m *MockClaimer, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-m.applied:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for claim %d of %d", i+1, n)
		}
	}
}

func TestRelayAppliesClaimsInOrder(t *testing.T) {
	claimer := NewMockClaimer()
	relay := NewRelay(claimer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Start(ctx)

	first := common.HexToHash("0x01")
	second := common.HexToHash("0x02")
	require.NoError(t, relay.Deliver(ctx, InboundMessage{ExecHash: first}))
	require.NoError(t, relay.Deliver(ctx, InboundMessage{ExecHash: second}))

	waitApplied(t, claimer, 2)
	assert.Equal(t, []common.Hash{first, second}, claimer.Claims())
}

func TestRelaySurvivesRejectedClaims(t *testing.T) {
	claimer := NewMockClaimer()
	claimer.failErr = errors.New("REQUEST_NOT_FOUND")
	relay := NewRelay(claimer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Start(ctx)

	require.NoError(t, relay.Deliver(ctx, InboundMessage{ExecHash: common.HexToHash("0x01")}))
	waitApplied(t, claimer, 1)

	// The worker keeps consuming after a rejection.
	claimer.mu.Lock()
	claimer.failErr = nil
	claimer.mu.Unlock()

	ok := common.HexToHash("0x02")
	require.NoError(t, relay.Deliver(ctx, InboundMessage{ExecHash: ok}))
	waitApplied(t, claimer, 1)
	assert.Equal(t, []common.Hash{ok}, claimer.Claims())
}

func TestDeliverRespectsContextWhenFull(t *testing.T) {
	// No worker draining the inbox: fill it, then expect a cancelled delivery.
	relay := NewRelay(NewMockClaimer(), nil)
	ctx := context.Background()
	for i := 0; i < cap(relay.inbox); i++ {
		require.NoError(t, relay.Deliver(ctx, InboundMessage{}))
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err := relay.Deliver(cancelled, InboundMessage{})
	assert.ErrorIs(t, err, context.Canceled)
}
