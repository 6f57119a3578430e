package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pumpswap-sniper/internal/domain"
	"pumpswap-sniper/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const tradeRecordColumns = `
	trade_id, submission_id, token_address, pool_address,
	strategy, backend, amount_lamports, expected_profit,
	status, created_at, resolved_at
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeRecordStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_records (` + tradeRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.SubmissionID, t.TokenAddress, t.PoolAddress,
		t.Strategy, t.Backend, t.AmountLamports, t.ExpectedProfit,
		t.Status, t.CreatedAt, t.ResolvedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade record: %w", err)
	}
	return nil
}

// UpdateStatus resolves a trade to its final status.
func (s *TradeRecordStore) UpdateStatus(ctx context.Context, tradeID, status string, resolvedAt int64) error {
	query := `
		UPDATE trade_records
		SET status = $2, resolved_at = $3
		WHERE trade_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, tradeID, status, resolvedAt)
	if err != nil {
		return fmt.Errorf("update trade record status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeRecordColumns + `
		FROM trade_records
		WHERE trade_id = $1
	`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTradeRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record by id: %w", err)
	}
	return t, nil
}

// GetByToken retrieves all trades for a token, ordered by created_at ASC.
func (s *TradeRecordStore) GetByToken(ctx context.Context, tokenAddress string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeRecordColumns + `
		FROM trade_records
		WHERE token_address = $1
		ORDER BY created_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("get trade records by token: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// GetByStrategy retrieves all trades for a strategy, ordered by created_at ASC.
func (s *TradeRecordStore) GetByStrategy(ctx context.Context, strategy string) ([]*domain.TradeRecord, error) {
	query := `
		SELECT ` + tradeRecordColumns + `
		FROM trade_records
		WHERE strategy = $1
		ORDER BY created_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, strategy)
	if err != nil {
		return nil, fmt.Errorf("get trade records by strategy: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// scanTradeRecord scans a single row into a TradeRecord.
func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var t domain.TradeRecord

	err := row.Scan(
		&t.TradeID, &t.SubmissionID, &t.TokenAddress, &t.PoolAddress,
		&t.Strategy, &t.Backend, &t.AmountLamports, &t.ExpectedProfit,
		&t.Status, &t.CreatedAt, &t.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// scanTradeRecords scans multiple rows into a slice of TradeRecord.
func scanTradeRecords(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var trades []*domain.TradeRecord

	for rows.Next() {
		var t domain.TradeRecord

		err := rows.Scan(
			&t.TradeID, &t.SubmissionID, &t.TokenAddress, &t.PoolAddress,
			&t.Strategy, &t.Backend, &t.AmountLamports, &t.ExpectedProfit,
			&t.Status, &t.CreatedAt, &t.ResolvedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}

		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}

	return trades, nil
}
