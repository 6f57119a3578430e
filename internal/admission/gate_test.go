package admission

import (
	"context"
	"testing"
	"time"
)

func TestGate_AcquireUpToCapacity(t *testing.T) {
	gate := NewGate(3)
	ctx := context.Background()

	var slots []*Slot
	for i := 0; i < 3; i++ {
		slot, err := gate.Acquire(ctx)
		if err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
		slots = append(slots, slot)
	}

	if gate.InUse() != 3 {
		t.Errorf("InUse = %d, want 3", gate.InUse())
	}

	for _, s := range slots {
		s.Release()
	}
	if gate.InUse() != 0 {
		t.Errorf("InUse after release = %d, want 0", gate.InUse())
	}
}

func TestGate_BlocksWhenFull(t *testing.T) {
	gate := NewGate(1)
	ctx := context.Background()

	held, err := gate.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	acquired := make(chan *Slot)
	go func() {
		slot, err := gate.Acquire(ctx)
		if err != nil {
			t.Errorf("blocked Acquire failed: %v", err)
			return
		}
		acquired <- slot
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire should block while the gate is full")
	case <-time.After(50 * time.Millisecond):
	}

	held.Release()

	select {
	case slot := <-acquired:
		slot.Release()
	case <-time.After(time.Second):
		t.Fatal("Acquire did not unblock after release")
	}
}

func TestGate_AcquireCancelled(t *testing.T) {
	gate := NewGate(1)

	held, _ := gate.Acquire(context.Background())
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := gate.Acquire(ctx); err == nil {
		t.Error("Expected context error when gate is full")
	}
}

func TestSlot_ReleaseIdempotent(t *testing.T) {
	gate := NewGate(2)

	slot, _ := gate.Acquire(context.Background())
	slot.Release()
	slot.Release() // second release must not free another slot

	if gate.InUse() != 0 {
		t.Errorf("InUse = %d, want 0", gate.InUse())
	}

	// Both slots must still be acquirable.
	a, _ := gate.Acquire(context.Background())
	b, _ := gate.Acquire(context.Background())
	if a == nil || b == nil {
		t.Fatal("capacity corrupted by double release")
	}
}

func TestGate_TryAcquire(t *testing.T) {
	gate := NewGate(1)

	slot := gate.TryAcquire()
	if slot == nil {
		t.Fatal("TryAcquire on empty gate returned nil")
	}
	if gate.TryAcquire() != nil {
		t.Error("TryAcquire on full gate must return nil")
	}
	slot.Release()
	if gate.TryAcquire() == nil {
		t.Error("TryAcquire after release returned nil")
	}
}
