// Package clock abstracts the ledger timestamp source so delay gating can be
// tested without waiting out real unlock windows.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current ledger time as unix seconds.
type Clock interface {
	Now() uint64
}

// System is a Clock backed by the wall clock.
type System struct{}

var _ Clock = (*System)(nil)

func (System) Now() uint64 {
	return uint64(time.Now().Unix())
}

// Manual is a Clock whose time only moves when told to. Safe for concurrent
// use.
type Manual struct {
	mu  sync.Mutex
	now uint64
}

var _ Clock = (*Manual)(nil)

// NewManual creates a manual clock starting at the given unix time.
func NewManual(start uint64) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by the given number of seconds.
func (m *Manual) Advance(seconds uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += seconds
}

// Set jumps the clock to an absolute unix time. The clock never moves
// backwards; earlier values are ignored.
func (m *Manual) Set(now uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now > m.now {
		m.now = now
	}
}
