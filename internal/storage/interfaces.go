// Package storage defines the persistence interfaces of the sniper.
// Implementations live in the memory, postgres and clickhouse subpackages.
package storage

import (
	"context"

	"pumpswap-sniper/internal/domain"
)

// TradeRecordStore provides access to trade_records storage.
type TradeRecordStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// UpdateStatus resolves a trade to its final status.
	// Returns ErrNotFound if trade_id does not exist.
	UpdateStatus(ctx context.Context, tradeID, status string, resolvedAt int64) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// GetByToken retrieves all trades for a token, ordered by created_at ASC.
	GetByToken(ctx context.Context, tokenAddress string) ([]*domain.TradeRecord, error)

	// GetByStrategy retrieves all trades for a strategy, ordered by created_at ASC.
	GetByStrategy(ctx context.Context, strategy string) ([]*domain.TradeRecord, error)
}

// SignalArchive provides append-only storage of detected signals for
// offline analysis.
type SignalArchive interface {
	// InsertBatch appends a batch of signals.
	InsertBatch(ctx context.Context, signals []domain.Signal) error

	// GetByToken retrieves archived signals for a token, ordered by
	// created_at ASC.
	GetByToken(ctx context.Context, tokenAddress string) ([]domain.Signal, error)
}
