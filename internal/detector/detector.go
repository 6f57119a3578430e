// Package detector turns raw feed events into scored, prioritized
// execution signals.
package detector

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"pumpswap-sniper/internal/domain"
)

// Detection thresholds and caps.
const (
	// historyCap bounds each token's rolling price history.
	historyCap = 1000
	// activeMaxAge is how long an opportunity stays active before age-out.
	activeMaxAge = 300 * time.Second
	// minVolumeUSD gates price-driven strategies.
	minVolumeUSD = 1000.0
)

// minProfit is the per-strategy expected-profit floor in SOL.
var minProfit = map[domain.Strategy]float64{
	domain.StrategyFrontRun:  0.1,
	domain.StrategyArbitrage: 0.05,
	domain.StrategySandwich:  0.2,
	domain.StrategyBackRun:   0.15,
}

// strategyParams is the fixed scoring profile of a strategy.
type strategyParams struct {
	confidence float64
	gas        uint64
	deadline   time.Duration
	risk       float64
}

var params = map[domain.Strategy]strategyParams{
	domain.StrategyFrontRun:  {confidence: 0.8, gas: 50_000, deadline: 30 * time.Second, risk: 0.3},
	domain.StrategyArbitrage: {confidence: 0.9, gas: 100_000, deadline: 60 * time.Second, risk: 0.2},
	domain.StrategySandwich:  {confidence: 0.7, gas: 150_000, deadline: 10 * time.Second, risk: 0.6},
	domain.StrategyBackRun:   {confidence: 0.85, gas: 80_000, deadline: 20 * time.Second, risk: 0.4},
}

// Options configures a Detector.
type Options struct {
	// Strategies is the enabled strategy set. Empty disables detection.
	Strategies []domain.Strategy
	// MinLiquidity (lamports) gates listing-driven strategies.
	MinLiquidity uint64
	// MaxSlippage (percent) is carried into execution plans.
	MaxSlippage float64
	// MaxGasPrice (lamports) bounds the gas-price plan directives.
	MaxGasPrice uint64
	// Model estimates expected profit. Defaults to the simulated model.
	Model ProfitModel
	// Now overrides the clock in tests.
	Now    func() time.Time
	Logger zerolog.Logger
}

// Detector maintains per-token price history and the active-opportunity
// set, and produces signals from incoming events. Not safe for concurrent
// use; the engine calls Analyze from a single goroutine.
type Detector struct {
	enabled      map[domain.Strategy]bool
	minLiquidity uint64
	maxSlippage  float64
	maxGasPrice  uint64
	model        ProfitModel
	now          func() time.Time
	log          zerolog.Logger

	// history holds up to historyCap points per token, oldest first.
	history map[string][]domain.PricePoint
	// liquidity caches the latest observed liquidity per token.
	liquidity map[string]uint64
	// active maps opportunity ID to the live opportunity. Re-detections
	// overwrite; entries age out after activeMaxAge.
	active map[string]domain.Opportunity
}

// New creates a detector.
func New(opts Options) *Detector {
	enabled := make(map[domain.Strategy]bool, len(opts.Strategies))
	for _, s := range opts.Strategies {
		enabled[s] = true
	}
	model := opts.Model
	if model == nil {
		model = NewSimulatedModel(time.Now().UnixNano())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Detector{
		enabled:      enabled,
		minLiquidity: opts.MinLiquidity,
		maxSlippage:  opts.MaxSlippage,
		maxGasPrice:  opts.MaxGasPrice,
		model:        model,
		now:          now,
		log:          opts.Logger.With().Str("component", "detector").Logger(),
		history:      make(map[string][]domain.PricePoint),
		liquidity:    make(map[string]uint64),
		active:       make(map[string]domain.Opportunity),
	}
}

// ActiveCount returns the number of live opportunities.
func (d *Detector) ActiveCount() int { return len(d.active) }

// History returns the price history recorded for a token.
func (d *Detector) History(token string) []domain.PricePoint {
	return d.history[token]
}

// Analyze ingests a batch of events and returns execution signals sorted
// by descending priority, ties broken by expected profit.
func (d *Detector) Analyze(listings []domain.TokenListing, updates []domain.PriceUpdate) []domain.Signal {
	now := d.now()

	for _, u := range updates {
		d.observe(u)
	}
	d.expire(now)

	var opps []domain.Opportunity
	for _, l := range listings {
		opps = append(opps, d.detectListing(l, now)...)
	}
	for _, u := range updates {
		opps = append(opps, d.detectPrice(u, now)...)
	}

	signals := make([]domain.Signal, 0, len(opps))
	for _, opp := range opps {
		if prev, ok := d.active[opp.ID]; ok {
			d.log.Debug().Str("opportunity", opp.ID).
				Int64("prev_created", prev.CreatedAt).
				Msg("opportunity refreshed")
		}
		d.active[opp.ID] = opp

		signals = append(signals, domain.Signal{
			Opportunity: opp,
			Priority:    domain.PriorityFor(opp.ExpectedProfit, opp.ConfidenceScore, opp.RiskScore),
			Plan:        d.plan(opp),
		})
	}

	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].Priority != signals[j].Priority {
			return signals[i].Priority > signals[j].Priority
		}
		return signals[i].Opportunity.ExpectedProfit > signals[j].Opportunity.ExpectedProfit
	})

	return signals
}

// observe appends a price point to the token's history and refreshes the
// liquidity cache. History is bounded FIFO at historyCap points.
func (d *Detector) observe(u domain.PriceUpdate) {
	pts := append(d.history[u.TokenAddress], domain.PricePoint{
		Price:     u.PriceSOL,
		Timestamp: u.Timestamp,
		Volume:    uint64(u.Volume1h),
	})
	if len(pts) > historyCap {
		pts = pts[len(pts)-historyCap:]
	}
	d.history[u.TokenAddress] = pts
	d.liquidity[u.TokenAddress] = u.Liquidity
}

// expire drops active opportunities older than activeMaxAge.
func (d *Detector) expire(now time.Time) {
	cutoff := now.Add(-activeMaxAge).Unix()
	for id, opp := range d.active {
		if opp.CreatedAt < cutoff {
			delete(d.active, id)
		}
	}
}

// detectListing evaluates the listing-driven strategies. Listings below
// the liquidity floor are ignored. Both strategies may fire for the same
// listing; each produces an independent opportunity.
func (d *Detector) detectListing(l domain.TokenListing, now time.Time) []domain.Opportunity {
	if l.InitialLiquidity < d.minLiquidity {
		return nil
	}

	var out []domain.Opportunity

	if d.enabled[domain.StrategyFrontRun] {
		profit := d.model.FrontRun(l)
		if opp, ok := d.build(domain.StrategyFrontRun, l.TokenAddress, l.PoolAddress, profit, now); ok {
			out = append(out, opp)
		}
	}
	if d.enabled[domain.StrategyArbitrage] {
		profit := d.model.Arbitrage(l)
		if opp, ok := d.build(domain.StrategyArbitrage, l.TokenAddress, l.PoolAddress, profit, now); ok {
			out = append(out, opp)
		}
	}

	return out
}

// detectPrice evaluates the price-driven strategies against one update.
// Low-volume tokens are skipped entirely.
func (d *Detector) detectPrice(u domain.PriceUpdate, now time.Time) []domain.Opportunity {
	if u.Volume1h < minVolumeUSD {
		return nil
	}

	var out []domain.Opportunity

	if d.enabled[domain.StrategySandwich] {
		profit := d.model.Sandwich(u, d.priceImpact(u))
		if opp, ok := d.build(domain.StrategySandwich, u.TokenAddress, "", profit, now); ok {
			out = append(out, opp)
		}
	}
	if d.enabled[domain.StrategyBackRun] {
		profit := d.model.BackRun(u)
		if opp, ok := d.build(domain.StrategyBackRun, u.TokenAddress, "", profit, now); ok {
			out = append(out, opp)
		}
	}

	return out
}

// priceImpact estimates the relative move of the latest observation
// against the previous one.
func (d *Detector) priceImpact(u domain.PriceUpdate) float64 {
	pts := d.history[u.TokenAddress]
	if len(pts) < 2 {
		return 0.05
	}
	prev := pts[len(pts)-2].Price
	if prev == 0 {
		return 0.05
	}
	impact := (u.PriceSOL - prev) / prev
	if impact < 0 {
		impact = -impact
	}
	if impact == 0 {
		impact = 0.05
	}
	return impact
}

// build assembles an opportunity if the profit clears the strategy floor.
func (d *Detector) build(s domain.Strategy, token, pool string, profit float64, now time.Time) (domain.Opportunity, bool) {
	if profit < minProfit[s] {
		return domain.Opportunity{}, false
	}

	p := params[s]
	return domain.Opportunity{
		ID:              domain.OpportunityID(s, token),
		Strategy:        s,
		TokenAddress:    token,
		PoolAddress:     pool,
		ExpectedProfit:  profit,
		ConfidenceScore: p.confidence,
		GasEstimate:     p.gas,
		Deadline:        now.Add(p.deadline).Unix(),
		RiskScore:       p.risk,
		CreatedAt:       now.Unix(),
	}, true
}

// plan derives the execution plan and its risk-mitigation directives
// from the strategy profile.
func (d *Detector) plan(opp domain.Opportunity) domain.ExecutionPlan {
	plan := domain.ExecutionPlan{
		EstimatedGas: opp.GasEstimate,
		MaxSlippage:  d.maxSlippage,
		TargetProfit: opp.ExpectedProfit,
	}

	// Every strategy carries the full directive set; the sandwich plan
	// doubles the gas ceiling, arbitrage halves and sandwich doubles the
	// slippage bound.
	switch opp.Strategy {
	case domain.StrategyFrontRun:
		plan.RiskMitigation = []domain.RiskMitigation{
			{Kind: domain.MitigationMaxGasPrice, GasPrice: d.maxGasPrice},
			{Kind: domain.MitigationTimeout, TimeoutMs: 5_000},
			{Kind: domain.MitigationSlippage, MaxSlippage: d.maxSlippage},
		}
	case domain.StrategyArbitrage:
		plan.RiskMitigation = []domain.RiskMitigation{
			{Kind: domain.MitigationMaxGasPrice, GasPrice: d.maxGasPrice},
			{Kind: domain.MitigationTimeout, TimeoutMs: 10_000},
			{Kind: domain.MitigationSlippage, MaxSlippage: d.maxSlippage * 0.5},
		}
	case domain.StrategySandwich:
		plan.RiskMitigation = []domain.RiskMitigation{
			{Kind: domain.MitigationMaxGasPrice, GasPrice: d.maxGasPrice * 2},
			{Kind: domain.MitigationTimeout, TimeoutMs: 3_000},
			{Kind: domain.MitigationSlippage, MaxSlippage: d.maxSlippage * 2},
		}
	case domain.StrategyBackRun:
		plan.RiskMitigation = []domain.RiskMitigation{
			{Kind: domain.MitigationMaxGasPrice, GasPrice: d.maxGasPrice},
			{Kind: domain.MitigationTimeout, TimeoutMs: 8_000},
			{Kind: domain.MitigationSlippage, MaxSlippage: d.maxSlippage},
		}
	}

	return plan
}
