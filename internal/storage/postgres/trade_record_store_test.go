package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpswap-sniper/internal/domain"
	"pumpswap-sniper/internal/storage"
	"pumpswap-sniper/internal/storage/postgres"
)

func newTrade(id, token, strategy string, createdAt int64) *domain.TradeRecord {
	return &domain.TradeRecord{
		TradeID:        id,
		SubmissionID:   "sub_" + id,
		TokenAddress:   token,
		PoolAddress:    "PoolAddr1",
		Strategy:       strategy,
		Backend:        "bundle",
		AmountLamports: 2_000_000,
		ExpectedProfit: 0.42,
		Status:         string(domain.SubmissionPending),
		CreatedAt:      createdAt,
	}
}

func TestTradeRecordStore_InsertAndGetByID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewTradeRecordStore(pool)
	ctx := context.Background()

	rec := newTrade("trade_1", "TokA", "frontrun", 1000)
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetByID(ctx, "trade_1")
	require.NoError(t, err)
	assert.Equal(t, rec.SubmissionID, got.SubmissionID)
	assert.Equal(t, rec.TokenAddress, got.TokenAddress)
	assert.Equal(t, rec.AmountLamports, got.AmountLamports)
	assert.Equal(t, rec.Status, got.Status)
	assert.Nil(t, got.ResolvedAt)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeRecordStore_DuplicateKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewTradeRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newTrade("trade_1", "TokA", "frontrun", 1000)))

	err := store.Insert(ctx, newTrade("trade_1", "TokB", "arbitrage", 2000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTradeRecordStore_InvalidInput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewTradeRecordStore(pool)
	ctx := context.Background()

	assert.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(ctx, &domain.TradeRecord{}), storage.ErrInvalidInput)
}

func TestTradeRecordStore_UpdateStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewTradeRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newTrade("trade_1", "TokA", "frontrun", 1000)))

	require.NoError(t, store.UpdateStatus(ctx, "trade_1", string(domain.SubmissionConfirmed), 2000))

	got, err := store.GetByID(ctx, "trade_1")
	require.NoError(t, err)
	assert.Equal(t, string(domain.SubmissionConfirmed), got.Status)
	require.NotNil(t, got.ResolvedAt)
	assert.Equal(t, int64(2000), *got.ResolvedAt)

	assert.ErrorIs(t, store.UpdateStatus(ctx, "missing", "failed", 0), storage.ErrNotFound)
}

func TestTradeRecordStore_GetByToken(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewTradeRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newTrade("trade_2", "TokA", "arbitrage", 2000)))
	require.NoError(t, store.Insert(ctx, newTrade("trade_1", "TokA", "frontrun", 1000)))
	require.NoError(t, store.Insert(ctx, newTrade("trade_3", "TokB", "frontrun", 500)))

	got, err := store.GetByToken(ctx, "TokA")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "trade_1", got[0].TradeID, "records must be ordered by created_at")
	assert.Equal(t, "trade_2", got[1].TradeID)

	empty, err := store.GetByToken(ctx, "TokZ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTradeRecordStore_GetByStrategy(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewTradeRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newTrade("trade_1", "TokA", "sandwich", 1000)))
	require.NoError(t, store.Insert(ctx, newTrade("trade_2", "TokB", "sandwich", 2000)))
	require.NoError(t, store.Insert(ctx, newTrade("trade_3", "TokC", "backrun", 3000)))

	got, err := store.GetByStrategy(ctx, "sandwich")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "trade_1", got[0].TradeID)
	assert.Equal(t, "trade_2", got[1].TradeID)
}
