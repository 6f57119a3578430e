// Package admission bounds the number of concurrently executing trades.
package admission

import (
	"context"
	"sync"
)

// Gate is a fixed-capacity counting semaphore. Acquire blocks when all
// slots are in use; each acquired Slot must be released exactly once.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate with the given capacity.
func NewGate(capacity int) *Gate {
	if capacity <= 0 {
		capacity = 1
	}
	return &Gate{slots: make(chan struct{}, capacity)}
}

// Capacity returns the fixed slot count.
func (g *Gate) Capacity() int {
	return cap(g.slots)
}

// InUse returns the number of currently held slots.
func (g *Gate) InUse() int {
	return len(g.slots)
}

// Acquire blocks until a slot is free or the context is cancelled.
func (g *Gate) Acquire(ctx context.Context) (*Slot, error) {
	select {
	case g.slots <- struct{}{}:
		return &Slot{gate: g}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquire acquires a slot without blocking. Returns nil when full.
func (g *Gate) TryAcquire() *Slot {
	select {
	case g.slots <- struct{}{}:
		return &Slot{gate: g}
	default:
		return nil
	}
}

// Slot represents one unit of admitted concurrency.
type Slot struct {
	gate *Gate
	once sync.Once
}

// Release returns the slot to the gate. Safe to call more than once;
// only the first call has effect.
func (s *Slot) Release() {
	s.once.Do(func() {
		<-s.gate.slots
	})
}
