package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pumpswap-sniper/internal/domain"
	"pumpswap-sniper/internal/solana"
	"pumpswap-sniper/internal/tracker"
	"pumpswap-sniper/internal/txbuilder"
)

// minBundlePriorityFee is the floor for the computed bundle priority fee.
const minBundlePriorityFee = 100_000

// BundleOptions configures the bundle backend.
type BundleOptions struct {
	// RPC talks to the chain for blockhashes and fee samples.
	RPC solana.RPC
	// Engine talks to the block engine for bundle submission and status.
	// Defaults to RPC when nil.
	Engine                solana.RPC
	Builder               *txbuilder.Builder
	TipAccount            string
	TipAmount             uint64 // lamports
	PriorityFeeMultiplier float64
	Retention             time.Duration
	Logger                zerolog.Logger
}

// Bundle submits trades as atomic bundles: every trade transaction is
// paired with a tip transfer to the configured tip account.
type Bundle struct {
	rpc           solana.RPC
	engine        solana.RPC
	builder       *txbuilder.Builder
	tipAccount    string
	tipAmount     uint64
	feeMultiplier float64
	submissions   *tracker.Tracker
	log           zerolog.Logger
}

var _ Backend = (*Bundle)(nil)

// NewBundle creates the bundle backend.
func NewBundle(opts BundleOptions) (*Bundle, error) {
	if opts.RPC == nil || opts.Builder == nil {
		return nil, fmt.Errorf("%w: rpc and builder are required", ErrNotConfigured)
	}
	if opts.TipAccount == "" {
		return nil, fmt.Errorf("%w: tip account is required", ErrNotConfigured)
	}
	if opts.Engine == nil {
		opts.Engine = opts.RPC
	}
	if opts.PriorityFeeMultiplier <= 0 {
		opts.PriorityFeeMultiplier = 1.0
	}
	return &Bundle{
		rpc:           opts.RPC,
		engine:        opts.Engine,
		builder:       opts.Builder,
		tipAccount:    opts.TipAccount,
		tipAmount:     opts.TipAmount,
		feeMultiplier: opts.PriorityFeeMultiplier,
		submissions:   tracker.New(opts.Retention),
		log:           opts.Logger.With().Str("backend", "bundle").Logger(),
	}, nil
}

func (b *Bundle) Name() string { return "bundle" }

// Tracker exposes the backend's submission records.
func (b *Bundle) Tracker() *tracker.Tracker { return b.submissions }

// PriorityFee derives the current tip-adjacent priority fee from recent
// network fee samples, scaled by the configured multiplier.
func (b *Bundle) PriorityFee(ctx context.Context) uint64 {
	fees, err := b.rpc.RecentPrioritizationFees(ctx, nil)
	if err != nil || len(fees) == 0 {
		return minBundlePriorityFee
	}

	var sum uint64
	for _, f := range fees {
		sum += f.PrioritizationFee
	}
	avg := sum / uint64(len(fees))

	fee := uint64(float64(avg) * b.feeMultiplier)
	if fee < minBundlePriorityFee {
		fee = minBundlePriorityFee
	}
	return fee
}

// Submit bundles a single trade transaction with a tip transfer.
func (b *Bundle) Submit(ctx context.Context, txBase64 string, meta domain.Submission) (string, error) {
	return b.SubmitBatch(ctx, []string{txBase64}, meta)
}

// SubmitBatch appends a tip transaction to the batch and submits the
// whole set atomically. The returned submission ID is the bundle ID.
func (b *Bundle) SubmitBatch(ctx context.Context, txsBase64 []string, meta domain.Submission) (string, error) {
	if len(txsBase64) == 0 {
		return "", fmt.Errorf("empty bundle")
	}

	blockhash, err := b.rpc.LatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch blockhash for tip: %w", err)
	}

	tipAmount := b.tipAmount
	if fee := b.PriorityFee(ctx); fee > tipAmount {
		tipAmount = fee
	}

	tipTx, err := b.builder.BuildTip(b.tipAccount, tipAmount, blockhash)
	if err != nil {
		return "", fmt.Errorf("build tip: %w", err)
	}
	tipBase64, err := tipTx.MarshalBase64()
	if err != nil {
		return "", fmt.Errorf("encode tip: %w", err)
	}

	bundle := append(append([]string{}, txsBase64...), tipBase64)

	bundleID, err := b.engine.SendBundle(ctx, bundle)
	if err != nil {
		return "", fmt.Errorf("send bundle: %w", err)
	}

	meta.ID = bundleID
	meta.TxCount = len(bundle)
	meta.Status = domain.SubmissionPending
	if meta.CreatedAt == 0 {
		meta.CreatedAt = time.Now().Unix()
	}
	b.submissions.Record(&meta)

	b.log.Info().
		Str("bundle_id", bundleID).
		Int("txs", len(bundle)).
		Uint64("tip", tipAmount).
		Msg("bundle submitted")

	return bundleID, nil
}

// PollStatus maps the block engine's bundle status onto submission status.
func (b *Bundle) PollStatus(ctx context.Context, id string) (domain.SubmissionStatus, error) {
	status, err := b.engine.BundleStatus(ctx, id)
	if err != nil {
		return domain.SubmissionPending, err
	}
	switch status {
	case "confirmed":
		return domain.SubmissionConfirmed, nil
	case "failed":
		return domain.SubmissionFailed, nil
	}
	return domain.SubmissionPending, nil
}

// AwaitConfirmation polls until the bundle lands, fails, or times out.
func (b *Bundle) AwaitConfirmation(ctx context.Context, id string, timeout time.Duration) (bool, error) {
	return awaitConfirmation(ctx, b, b.log, id, timeout)
}
