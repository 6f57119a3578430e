package clickhouse

import (
	"context"
	"fmt"

	"pumpswap-sniper/internal/domain"
	"pumpswap-sniper/internal/storage"
)

// SignalArchive implements storage.SignalArchive using ClickHouse.
// Signals are append-only analytical data; duplicates are tolerated and
// collapsed at query time if needed.
type SignalArchive struct {
	conn *Conn
}

// NewSignalArchive creates a new SignalArchive.
func NewSignalArchive(conn *Conn) *SignalArchive {
	return &SignalArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.SignalArchive = (*SignalArchive)(nil)

// InsertBatch appends a batch of signals using a native batch insert.
func (a *SignalArchive) InsertBatch(ctx context.Context, signals []domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, `
		INSERT INTO signals (
			opportunity_id, strategy, token_address, pool_address,
			expected_profit, confidence, gas_estimate, deadline,
			risk_score, priority, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare signal batch: %w", err)
	}

	for _, s := range signals {
		o := s.Opportunity
		err := batch.Append(
			o.ID, string(o.Strategy), o.TokenAddress, o.PoolAddress,
			o.ExpectedProfit, o.ConfidenceScore, o.GasEstimate, o.Deadline,
			o.RiskScore, int8(s.Priority), o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("append signal to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send signal batch: %w", err)
	}
	return nil
}

// GetByToken retrieves archived signals for a token, ordered by created_at ASC.
func (a *SignalArchive) GetByToken(ctx context.Context, tokenAddress string) ([]domain.Signal, error) {
	rows, err := a.conn.Query(ctx, `
		SELECT
			opportunity_id, strategy, token_address, pool_address,
			expected_profit, confidence, gas_estimate, deadline,
			risk_score, priority, created_at
		FROM signals
		WHERE token_address = ?
		ORDER BY created_at ASC
	`, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("query signals by token: %w", err)
	}
	defer rows.Close()

	var result []domain.Signal
	for rows.Next() {
		var (
			s        domain.Signal
			strategy string
			priority int8
		)
		err := rows.Scan(
			&s.Opportunity.ID, &strategy, &s.Opportunity.TokenAddress, &s.Opportunity.PoolAddress,
			&s.Opportunity.ExpectedProfit, &s.Opportunity.ConfidenceScore, &s.Opportunity.GasEstimate, &s.Opportunity.Deadline,
			&s.Opportunity.RiskScore, &priority, &s.Opportunity.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		s.Opportunity.Strategy = domain.Strategy(strategy)
		s.Priority = domain.Priority(priority)
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return result, nil
}
