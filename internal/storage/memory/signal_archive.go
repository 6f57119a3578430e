package memory

import (
	"context"
	"sort"
	"sync"

	"pumpswap-sniper/internal/domain"
	"pumpswap-sniper/internal/storage"
)

// SignalArchive is an in-memory implementation of storage.SignalArchive.
type SignalArchive struct {
	mu   sync.RWMutex
	data []domain.Signal
}

// NewSignalArchive creates a new in-memory signal archive.
func NewSignalArchive() *SignalArchive {
	return &SignalArchive{}
}

var _ storage.SignalArchive = (*SignalArchive)(nil)

// InsertBatch appends a batch of signals.
func (a *SignalArchive) InsertBatch(_ context.Context, signals []domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.data = append(a.data, signals...)
	return nil
}

// GetByToken retrieves archived signals for a token, ordered by created_at ASC.
func (a *SignalArchive) GetByToken(_ context.Context, tokenAddress string) ([]domain.Signal, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var result []domain.Signal
	for _, s := range a.data {
		if s.Opportunity.TokenAddress == tokenAddress {
			result = append(result, s)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Opportunity.CreatedAt < result[j].Opportunity.CreatedAt
	})

	return result, nil
}

// Len returns the number of archived signals.
func (a *SignalArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.data)
}
