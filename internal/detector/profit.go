package detector

import (
	"math/rand"

	"pumpswap-sniper/internal/domain"
)

// ProfitModel estimates the expected profit (in SOL) of a candidate
// opportunity. The default model is a liquidity/volume-scaled simulation;
// swap it for a pool-state model when real reserve data is wired in.
type ProfitModel interface {
	FrontRun(listing domain.TokenListing) float64
	Arbitrage(listing domain.TokenListing) float64
	Sandwich(update domain.PriceUpdate, priceImpact float64) float64
	BackRun(update domain.PriceUpdate) float64
}

// SimulatedModel scales a per-strategy base rate by liquidity or volume
// and jitters it with a random factor.
type SimulatedModel struct {
	rng *rand.Rand
}

var _ ProfitModel = (*SimulatedModel)(nil)

// NewSimulatedModel creates the default profit model.
func NewSimulatedModel(seed int64) *SimulatedModel {
	return &SimulatedModel{rng: rand.New(rand.NewSource(seed))}
}

// FrontRun scales 0.5 SOL by liquidity up to a 100 SOL cap.
func (m *SimulatedModel) FrontRun(listing domain.TokenListing) float64 {
	liqSOL := float64(listing.InitialLiquidity) / 1e9
	if liqSOL > 100 {
		liqSOL = 100
	}
	return 0.5 * (liqSOL / 100) * m.factor(0.5)
}

// Arbitrage scales 0.3 SOL by liquidity up to a 50 SOL cap.
func (m *SimulatedModel) Arbitrage(listing domain.TokenListing) float64 {
	liqSOL := float64(listing.InitialLiquidity) / 1e9
	if liqSOL > 50 {
		liqSOL = 50
	}
	return 0.3 * (liqSOL / 50) * m.factor(0.7)
}

// Sandwich scales 0.4 SOL by hourly volume up to $10k, weighted by the
// observed price impact.
func (m *SimulatedModel) Sandwich(update domain.PriceUpdate, priceImpact float64) float64 {
	vol := update.Volume1h / 10_000
	if vol > 1 {
		vol = 1
	}
	return 0.4 * vol * priceImpact
}

// BackRun scales 0.25 SOL by hourly volume up to $5k.
func (m *SimulatedModel) BackRun(update domain.PriceUpdate) float64 {
	vol := update.Volume1h / 5_000
	if vol > 1 {
		vol = 1
	}
	return 0.25 * vol * m.factor(0.6)
}

// factor returns a random multiplier in [lo, 1).
func (m *SimulatedModel) factor(lo float64) float64 {
	return lo + m.rng.Float64()*(1-lo)
}
