package memory

import (
	"context"
	"testing"

	"pumpswap-sniper/internal/domain"
)

func testSignal(token string, strategy domain.Strategy, createdAt int64) domain.Signal {
	return domain.Signal{
		Opportunity: domain.Opportunity{
			ID:              domain.OpportunityID(strategy, token),
			Strategy:        strategy,
			TokenAddress:    token,
			ExpectedProfit:  0.5,
			ConfidenceScore: 0.8,
			CreatedAt:       createdAt,
		},
		Priority: domain.PriorityHigh,
	}
}

func TestSignalArchive_InsertBatchAndGet(t *testing.T) {
	archive := NewSignalArchive()
	ctx := context.Background()

	err := archive.InsertBatch(ctx, []domain.Signal{
		testSignal("TokA", domain.StrategyFrontRun, 2000),
		testSignal("TokA", domain.StrategyArbitrage, 1000),
		testSignal("TokB", domain.StrategyBackRun, 500),
	})
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	got, err := archive.GetByToken(ctx, "TokA")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d signals, want 2", len(got))
	}
	if got[0].Opportunity.CreatedAt > got[1].Opportunity.CreatedAt {
		t.Error("signals not ordered by created_at")
	}
}

func TestSignalArchive_EmptyBatch(t *testing.T) {
	archive := NewSignalArchive()

	if err := archive.InsertBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch must be a no-op, got %v", err)
	}
	if archive.Len() != 0 {
		t.Errorf("Len = %d, want 0", archive.Len())
	}
}
