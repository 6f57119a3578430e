package backend

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"pumpswap-sniper/internal/domain"
	"pumpswap-sniper/internal/solana"
	"pumpswap-sniper/internal/txbuilder"
)

// fakeRPC is a scriptable RPC double shared by the backend tests.
type fakeRPC struct {
	mu          sync.Mutex
	fees        []solana.PrioritizationFee
	bundleTxs   []string
	statuses    []string // consumed in order by BundleStatus
	statusIndex int
}

func (f *fakeRPC) LatestBlockhash(context.Context) (string, error) { return "hash123", nil }

func (f *fakeRPC) RecentPrioritizationFees(context.Context, []string) ([]solana.PrioritizationFee, error) {
	return f.fees, nil
}

func (f *fakeRPC) SendTransaction(context.Context, string) (string, error) { return "sig", nil }

func (f *fakeRPC) SendBundle(_ context.Context, txs []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundleTxs = txs
	return "bundle_1", nil
}

func (f *fakeRPC) BundleStatus(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusIndex >= len(f.statuses) {
		return "pending", nil
	}
	s := f.statuses[f.statusIndex]
	f.statusIndex++
	return s, nil
}

func newTestBundle(t *testing.T, rpc *fakeRPC) *Bundle {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tipPub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate tip key: %v", err)
	}

	wallet, err := solana.LoadKeypair(base58.Encode(priv))
	if err != nil {
		t.Fatalf("load keypair: %v", err)
	}

	b, err := NewBundle(BundleOptions{
		RPC:                   rpc,
		Builder:               txbuilder.New(wallet, rpc),
		TipAccount:            base58.Encode(tipPub),
		TipAmount:             10_000,
		PriorityFeeMultiplier: 1.5,
		Retention:             300 * time.Second,
		Logger:                zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewBundle failed: %v", err)
	}
	return b
}

func TestBundle_SubmitAppendsTip(t *testing.T) {
	rpc := &fakeRPC{}
	b := newTestBundle(t, rpc)

	id, err := b.Submit(context.Background(), "dHgx", domain.Submission{
		Strategy:     domain.StrategyFrontRun,
		TokenAddress: "TokA",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if id != "bundle_1" {
		t.Errorf("submission ID = %s, want bundle_1", id)
	}

	// Trade transaction plus tip.
	if len(rpc.bundleTxs) != 2 {
		t.Fatalf("bundle contains %d txs, want 2", len(rpc.bundleTxs))
	}
	if rpc.bundleTxs[0] != "dHgx" {
		t.Error("trade transaction must come before the tip")
	}

	sub, ok := b.Tracker().Get(id)
	if !ok {
		t.Fatal("submission not tracked")
	}
	if sub.TxCount != 2 || sub.Status != domain.SubmissionPending {
		t.Errorf("unexpected tracked submission: %+v", sub)
	}
}

func TestBundle_PriorityFee(t *testing.T) {
	// avg(200000, 400000) * 1.5 = 450000
	rpc := &fakeRPC{fees: []solana.PrioritizationFee{
		{Slot: 1, PrioritizationFee: 200_000},
		{Slot: 2, PrioritizationFee: 400_000},
	}}
	b := newTestBundle(t, rpc)

	if fee := b.PriorityFee(context.Background()); fee != 450_000 {
		t.Errorf("PriorityFee = %d, want 450000", fee)
	}
}

func TestBundle_PriorityFeeFloor(t *testing.T) {
	rpc := &fakeRPC{fees: []solana.PrioritizationFee{{Slot: 1, PrioritizationFee: 10}}}
	b := newTestBundle(t, rpc)

	if fee := b.PriorityFee(context.Background()); fee != minBundlePriorityFee {
		t.Errorf("PriorityFee = %d, want floor %d", fee, minBundlePriorityFee)
	}

	// No samples at all also yields the floor.
	empty := newTestBundle(t, &fakeRPC{})
	if fee := empty.PriorityFee(context.Background()); fee != minBundlePriorityFee {
		t.Errorf("PriorityFee with no samples = %d, want floor", fee)
	}
}

func TestBundle_PollStatusMapping(t *testing.T) {
	rpc := &fakeRPC{statuses: []string{"pending", "confirmed", "failed"}}
	b := newTestBundle(t, rpc)
	ctx := context.Background()

	for _, want := range []domain.SubmissionStatus{
		domain.SubmissionPending,
		domain.SubmissionConfirmed,
		domain.SubmissionFailed,
	} {
		got, err := b.PollStatus(ctx, "bundle_1")
		if err != nil {
			t.Fatalf("PollStatus failed: %v", err)
		}
		if got != want {
			t.Errorf("PollStatus = %s, want %s", got, want)
		}
	}
}

func TestBundle_AwaitConfirmation(t *testing.T) {
	rpc := &fakeRPC{statuses: []string{"pending", "pending", "confirmed"}}
	b := newTestBundle(t, rpc)

	id, err := b.Submit(context.Background(), "dHgx", domain.Submission{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	confirmed, err := b.AwaitConfirmation(context.Background(), id, 2*time.Second)
	if err != nil {
		t.Fatalf("AwaitConfirmation failed: %v", err)
	}
	if !confirmed {
		t.Fatal("expected confirmation")
	}

	sub, _ := b.Tracker().Get(id)
	if sub.Status != domain.SubmissionConfirmed {
		t.Errorf("tracked status = %s, want confirmed", sub.Status)
	}
}

func TestBundle_AwaitConfirmationTimeout(t *testing.T) {
	rpc := &fakeRPC{} // always pending
	b := newTestBundle(t, rpc)

	id, err := b.Submit(context.Background(), "dHgx", domain.Submission{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	start := time.Now()
	confirmed, err := b.AwaitConfirmation(context.Background(), id, 300*time.Millisecond)
	if err != nil {
		t.Fatalf("AwaitConfirmation failed: %v", err)
	}
	if confirmed {
		t.Fatal("expected timeout, got confirmation")
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("returned before timeout: %v", elapsed)
	}

	// Timeout leaves the submission pending; the backend may still land it.
	sub, _ := b.Tracker().Get(id)
	if sub.Status != domain.SubmissionPending {
		t.Errorf("tracked status = %s, want pending", sub.Status)
	}
}
