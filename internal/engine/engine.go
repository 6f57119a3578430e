// Package engine wires the event streams, the detector, the admission
// gate and the confirmation backend into the running sniper.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pumpswap-sniper/internal/admission"
	"pumpswap-sniper/internal/backend"
	"pumpswap-sniper/internal/config"
	"pumpswap-sniper/internal/detector"
	"pumpswap-sniper/internal/domain"
	"pumpswap-sniper/internal/observability"
	"pumpswap-sniper/internal/solana"
	"pumpswap-sniper/internal/storage"
	"pumpswap-sniper/internal/stream"
	"pumpswap-sniper/internal/txbuilder"
)

// cleanupInterval is the cadence of the tracker cleanup loop.
const cleanupInterval = 1 * time.Second

// Minimum priorities for dispatching MEV signals. Listing-triggered
// signals compete with the snipe itself, so the bar is higher.
const (
	minListingPriority = domain.PriorityHigh
	minPricePriority   = domain.PriorityMedium
)

// Options configures an Engine. All fields except Archive and Metrics
// are required.
type Options struct {
	Config   *config.Handle
	Listings stream.ListingStream
	Prices   stream.PriceStream
	Detector *detector.Detector
	Builder  *txbuilder.Builder
	Backend  backend.Backend
	Gate     *admission.Gate
	Trades   storage.TradeRecordStore
	Archive  storage.SignalArchive
	Metrics  *observability.Metrics
	Logger   zerolog.Logger
}

// Engine consumes both event streams, snipes qualifying listings,
// dispatches MEV signals, and bounds concurrent executions through the
// admission gate. One consumer failing does not stop the other.
type Engine struct {
	cfg      *config.Handle
	listings stream.ListingStream
	prices   stream.PriceStream
	builder  *txbuilder.Builder
	backend  backend.Backend
	gate     *admission.Gate
	trades   storage.TradeRecordStore
	archive  storage.SignalArchive
	metrics  *observability.Metrics
	log      zerolog.Logger

	// det guards the detector, which is single-writer by design.
	det   *detector.Detector
	detMu sync.Mutex

	// execWG tracks in-flight executions and confirmation waits.
	execWG sync.WaitGroup
}

// New creates an engine.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil || opts.Listings == nil || opts.Prices == nil ||
		opts.Detector == nil || opts.Builder == nil || opts.Backend == nil || opts.Gate == nil {
		return nil, fmt.Errorf("engine: missing required dependency")
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	return &Engine{
		cfg:      opts.Config,
		listings: opts.Listings,
		prices:   opts.Prices,
		det:      opts.Detector,
		builder:  opts.Builder,
		backend:  opts.Backend,
		gate:     opts.Gate,
		trades:   opts.Trades,
		archive:  opts.Archive,
		metrics:  metrics,
		log:      opts.Logger.With().Str("component", "engine").Logger(),
	}, nil
}

// Run consumes both streams until the context is cancelled or both
// streams close. In-flight executions are awaited before returning.
func (e *Engine) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		e.consumeListings(ctx)
	}()
	go func() {
		defer wg.Done()
		e.consumePrices(ctx)
	}()
	go func() {
		defer wg.Done()
		e.cleanupLoop(ctx)
	}()

	wg.Wait()
	e.execWG.Wait()
	return nil
}

func (e *Engine) consumeListings(ctx context.Context) {
	for {
		listing, err := e.listings.Next(ctx)
		if err != nil {
			if errors.Is(err, stream.ErrClosed) || ctx.Err() != nil {
				return
			}
			e.metrics.FeedErrors.WithLabelValues("listings").Inc()
			e.log.Warn().Err(err).Msg("listing stream error")
			continue
		}

		e.metrics.ListingsReceived.Inc()
		e.log.Info().
			Str("token", listing.TokenAddress).
			Str("symbol", listing.TokenSymbol).
			Str("liquidity_sol", solana.FormatAmount(listing.InitialLiquidity, 9)).
			Msg("new listing")

		l := listing
		e.execWG.Add(1)
		go func() {
			defer e.execWG.Done()
			e.handleListing(ctx, l)
		}()
	}
}

func (e *Engine) consumePrices(ctx context.Context) {
	for {
		update, err := e.prices.Next(ctx)
		if err != nil {
			if errors.Is(err, stream.ErrClosed) || ctx.Err() != nil {
				return
			}
			e.metrics.FeedErrors.WithLabelValues("prices").Inc()
			e.log.Warn().Err(err).Msg("price stream error")
			continue
		}

		e.metrics.PriceUpdatesReceived.Inc()

		u := update
		e.execWG.Add(1)
		go func() {
			defer e.execWG.Done()
			e.handlePrice(ctx, u)
		}()
	}
}

// cleanupLoop periodically drops expired submission records.
func (e *Engine) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			removed := e.backend.Tracker().Cleanup(now)
			if removed > 0 {
				e.log.Debug().Int("removed", removed).Msg("submission records cleaned")
			}
			e.metrics.TrackedSubmissions.
				WithLabelValues(e.backend.Name()).
				Set(float64(e.backend.Tracker().Len()))
		}
	}
}

// handleListing runs both the direct snipe and listing-driven MEV
// detection for one listing.
func (e *Engine) handleListing(ctx context.Context, listing domain.TokenListing) {
	cfg := e.cfg.Snapshot()

	if e.shouldSnipe(&cfg, listing) {
		e.snipe(ctx, &cfg, listing)
	}

	if cfg.EnableMEV {
		signals := e.analyze([]domain.TokenListing{listing}, nil)
		e.dispatchSignals(ctx, &cfg, signals, minListingPriority)
	}
}

// handlePrice runs price-driven MEV detection for one update.
func (e *Engine) handlePrice(ctx context.Context, update domain.PriceUpdate) {
	cfg := e.cfg.Snapshot()

	if !cfg.EnableMEV {
		// Still record history so detection has context when re-enabled.
		e.analyze(nil, []domain.PriceUpdate{update})
		return
	}

	signals := e.analyze(nil, []domain.PriceUpdate{update})
	e.dispatchSignals(ctx, &cfg, signals, minPricePriority)
}

// analyze funnels events through the detector under its lock.
func (e *Engine) analyze(listings []domain.TokenListing, updates []domain.PriceUpdate) []domain.Signal {
	e.detMu.Lock()
	signals := e.det.Analyze(listings, updates)
	active := e.det.ActiveCount()
	e.detMu.Unlock()

	for _, s := range signals {
		e.metrics.OpportunitiesDetected.WithLabelValues(string(s.Opportunity.Strategy)).Inc()
	}
	e.metrics.ActiveOpportunities.Set(float64(active))

	if len(signals) > 0 && e.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := e.archive.InsertBatch(ctx, signals); err != nil {
			e.log.Warn().Err(err).Msg("signal archive insert failed")
		}
		cancel()
	}

	return signals
}

// shouldSnipe applies the liquidity floor and the optional target list.
func (e *Engine) shouldSnipe(cfg *config.Config, listing domain.TokenListing) bool {
	if listing.InitialLiquidity < cfg.MinLiquidityLamports() {
		e.metrics.TradesRejected.WithLabelValues("liquidity").Inc()
		e.log.Debug().
			Str("token", listing.TokenAddress).
			Uint64("liquidity", listing.InitialLiquidity).
			Msg("listing below liquidity floor")
		return false
	}

	if len(cfg.TargetTokens) > 0 {
		found := false
		for _, t := range cfg.TargetTokens {
			if t == listing.TokenAddress {
				found = true
				break
			}
		}
		if !found {
			e.metrics.TradesRejected.WithLabelValues("target_list").Inc()
			return false
		}
	}

	return true
}

// snipe buys the freshly listed token through the confirmation backend.
func (e *Engine) snipe(ctx context.Context, cfg *config.Config, listing domain.TokenListing) {
	slot, err := e.gate.Acquire(ctx)
	if err != nil {
		return
	}

	e.metrics.ActiveTrades.Set(float64(e.gate.InUse()))

	tx, err := e.builder.BuildBuy(ctx, listing.TokenAddress, listing.PoolAddress,
		cfg.SnipeAmountLamports(), cfg.MaxSlippage)
	if err != nil {
		slot.Release()
		e.log.Error().Err(err).Str("token", listing.TokenAddress).Msg("build snipe failed")
		return
	}

	txBase64, err := tx.MarshalBase64()
	if err != nil {
		slot.Release()
		e.log.Error().Err(err).Msg("encode snipe failed")
		return
	}

	timeout := e.backendTimeout(cfg)
	e.submit(ctx, submitRequest{
		slot:     slot,
		txBase64: txBase64,
		strategy: domain.StrategySnipe,
		token:    listing.TokenAddress,
		pool:     listing.PoolAddress,
		amount:   cfg.SnipeAmountLamports(),
		timeout:  timeout,
	})
}

// dispatchSignals executes all signals at or above the minimum priority,
// in the order the detector ranked them.
func (e *Engine) dispatchSignals(ctx context.Context, cfg *config.Config, signals []domain.Signal, min domain.Priority) {
	for _, sig := range signals {
		if sig.Priority < min {
			e.metrics.TradesRejected.WithLabelValues("priority").Inc()
			continue
		}
		e.executeSignal(ctx, cfg, sig)
	}
}

// executeSignal builds and submits the trade for one signal.
func (e *Engine) executeSignal(ctx context.Context, cfg *config.Config, sig domain.Signal) {
	slot, err := e.gate.Acquire(ctx)
	if err != nil {
		return
	}

	e.metrics.ActiveTrades.Set(float64(e.gate.InUse()))

	tx, err := e.builder.BuildForSignal(ctx, sig)
	if err != nil {
		slot.Release()
		e.log.Error().Err(err).
			Str("opportunity", sig.Opportunity.ID).
			Msg("build signal trade failed")
		return
	}

	txBase64, err := tx.MarshalBase64()
	if err != nil {
		slot.Release()
		e.log.Error().Err(err).Msg("encode signal trade failed")
		return
	}

	amount, _ := txbuilder.StrategyAmount(sig.Opportunity.Strategy)

	e.submit(ctx, submitRequest{
		slot:     slot,
		txBase64: txBase64,
		strategy: string(sig.Opportunity.Strategy),
		token:    sig.Opportunity.TokenAddress,
		pool:     sig.Opportunity.PoolAddress,
		amount:   amount,
		profit:   sig.Opportunity.ExpectedProfit,
		timeout:  time.Duration(sig.Plan.Timeout(e.backendTimeout(cfg).Milliseconds())) * time.Millisecond,
	})
}

type submitRequest struct {
	slot     *admission.Slot
	txBase64 string
	strategy string
	token    string
	pool     string
	amount   uint64
	profit   float64
	timeout  time.Duration
}

// submit sends the transaction, records the trade, and waits for the
// terminal status in a detached goroutine holding the slot.
func (e *Engine) submit(ctx context.Context, req submitRequest) {
	meta := domain.Submission{
		Strategy:     domain.Strategy(req.strategy),
		TokenAddress: req.token,
		CreatedAt:    time.Now().Unix(),
	}

	subID, err := e.backend.Submit(ctx, req.txBase64, meta)
	if err != nil {
		req.slot.Release()
		e.metrics.TradesFailed.WithLabelValues(e.backend.Name()).Inc()
		e.log.Error().Err(err).
			Str("strategy", req.strategy).
			Str("token", req.token).
			Msg("submission failed")
		return
	}

	e.metrics.TradesExecuted.WithLabelValues(e.backend.Name()).Inc()

	tradeID := "trade_" + subID
	e.recordTrade(&domain.TradeRecord{
		TradeID:        tradeID,
		SubmissionID:   subID,
		TokenAddress:   req.token,
		PoolAddress:    req.pool,
		Strategy:       req.strategy,
		Backend:        e.backend.Name(),
		AmountLamports: req.amount,
		ExpectedProfit: req.profit,
		Status:         string(domain.SubmissionPending),
		CreatedAt:      time.Now().Unix(),
	})

	start := time.Now()
	e.execWG.Add(1)
	go func() {
		defer e.execWG.Done()
		defer req.slot.Release()
		defer func() {
			e.metrics.ActiveTrades.Set(float64(e.gate.InUse()))
		}()

		// Detached: the confirmation wait must survive stream shutdown.
		waitCtx, cancel := context.WithTimeout(context.Background(), req.timeout+PollGrace)
		defer cancel()

		confirmed, err := e.backend.AwaitConfirmation(waitCtx, subID, req.timeout)
		elapsed := time.Since(start)
		e.metrics.ConfirmationDuration.WithLabelValues(e.backend.Name()).Observe(elapsed.Seconds())

		status := domain.SubmissionFailed
		switch {
		case err != nil:
			e.log.Warn().Err(err).Str("submission", subID).Msg("confirmation wait aborted")
		case confirmed:
			status = domain.SubmissionConfirmed
			e.metrics.TradesConfirmed.WithLabelValues(e.backend.Name()).Inc()
			e.log.Info().
				Str("submission", subID).
				Str("strategy", req.strategy).
				Dur("elapsed", elapsed).
				Msg("trade confirmed")
		default:
			e.metrics.TradesFailed.WithLabelValues(e.backend.Name()).Inc()
			e.log.Warn().
				Str("submission", subID).
				Str("strategy", req.strategy).
				Dur("elapsed", elapsed).
				Msg("trade failed or timed out")
		}

		e.resolveTrade(tradeID, string(status))
	}()
}

// PollGrace pads the confirmation context beyond the logical timeout so
// the final poll cycle can complete.
const PollGrace = 500 * time.Millisecond

// backendTimeout returns the configured confirmation timeout for the
// selected backend.
func (e *Engine) backendTimeout(cfg *config.Config) time.Duration {
	if cfg.ConfirmationBackend == config.BackendRelay {
		return time.Duration(cfg.RelayTimeoutSec) * time.Second
	}
	return time.Duration(cfg.BundleTimeoutMs) * time.Millisecond
}

func (e *Engine) recordTrade(t *domain.TradeRecord) {
	if e.trades == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.trades.Insert(ctx, t); err != nil {
		e.log.Warn().Err(err).Str("trade", t.TradeID).Msg("trade record insert failed")
	}
}

func (e *Engine) resolveTrade(tradeID, status string) {
	if e.trades == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.trades.UpdateStatus(ctx, tradeID, status, time.Now().Unix()); err != nil {
		e.log.Warn().Err(err).Str("trade", tradeID).Msg("trade record update failed")
	}
}
