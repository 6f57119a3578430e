// Package memory provides in-memory storage implementations, used as the
// default when no DSN is configured and as fixtures in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"pumpswap-sniper/internal/domain"
	"pumpswap-sniper/internal/storage"
)

// TradeRecordStore is an in-memory implementation of storage.TradeRecordStore.
type TradeRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeRecord // keyed by trade_id
}

// NewTradeRecordStore creates a new in-memory trade record store.
func NewTradeRecordStore() *TradeRecordStore {
	return &TradeRecordStore{
		data: make(map[string]*domain.TradeRecord),
	}
}

var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeRecordStore) Insert(_ context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.TradeID] = &copy
	return nil
}

// UpdateStatus resolves a trade to its final status.
func (s *TradeRecordStore) UpdateStatus(_ context.Context, tradeID, status string, resolvedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.data[tradeID]
	if !exists {
		return storage.ErrNotFound
	}

	t.Status = status
	t.ResolvedAt = &resolvedAt
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(_ context.Context, tradeID string) (*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tradeID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// GetByToken retrieves all trades for a token, ordered by created_at ASC.
func (s *TradeRecordStore) GetByToken(_ context.Context, tokenAddress string) ([]*domain.TradeRecord, error) {
	return s.filter(func(t *domain.TradeRecord) bool {
		return t.TokenAddress == tokenAddress
	}), nil
}

// GetByStrategy retrieves all trades for a strategy, ordered by created_at ASC.
func (s *TradeRecordStore) GetByStrategy(_ context.Context, strategy string) ([]*domain.TradeRecord, error) {
	return s.filter(func(t *domain.TradeRecord) bool {
		return t.Strategy == strategy
	}), nil
}

func (s *TradeRecordStore) filter(match func(*domain.TradeRecord) bool) []*domain.TradeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeRecord
	for _, t := range s.data {
		if match(t) {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].TradeID < result[j].TradeID
	})

	return result
}
