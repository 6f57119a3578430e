// Package tracker keeps per-backend submission records so confirmation
// polling and cleanup can run independently of the hot execution path.
package tracker

import (
	"sync"
	"time"

	"pumpswap-sniper/internal/domain"
)

// Tracker is a synchronized submission-id -> Submission map with
// time-based retention. Each backend owns one tracker instance.
type Tracker struct {
	mu        sync.RWMutex
	entries   map[string]*domain.Submission
	retention time.Duration
}

// New creates a tracker that drops records older than retention during Cleanup.
func New(retention time.Duration) *Tracker {
	return &Tracker{
		entries:   make(map[string]*domain.Submission),
		retention: retention,
	}
}

// Record stores a new submission. An existing record with the same ID is
// overwritten; submission IDs are unique per backend so this only happens
// on backend-side ID reuse.
func (t *Tracker) Record(sub *domain.Submission) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[sub.ID] = sub
}

// UpdateStatus transitions a submission to the given status. Unknown IDs
// are ignored: the record may already have been cleaned up.
func (t *Tracker) UpdateStatus(id string, status domain.SubmissionStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sub, ok := t.entries[id]; ok {
		sub.Status = status
	}
}

// Get returns a copy of the submission with the given ID.
func (t *Tracker) Get(id string) (domain.Submission, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sub, ok := t.entries[id]
	if !ok {
		return domain.Submission{}, false
	}
	return *sub, true
}

// Len returns the number of tracked submissions.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Cleanup removes records created more than the retention period before now,
// regardless of status. Returns the number of removed records.
func (t *Tracker) Cleanup(now time.Time) int {
	cutoff := now.Add(-t.retention).Unix()

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, sub := range t.entries {
		if sub.CreatedAt < cutoff {
			delete(t.entries, id)
			removed++
		}
	}
	return removed
}
