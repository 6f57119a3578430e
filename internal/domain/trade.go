package domain

// TradeRecord is the persisted bookkeeping row for one executed dispatch
// (snipe or MEV). Corresponds to the trade_records table. Purely for
// observability; losing a row does not affect dispatched work.
type TradeRecord struct {
	TradeID        string // random hex id
	SubmissionID   string // backend submission id
	TokenAddress   string
	PoolAddress    string
	Strategy       string // strategy name, or "snipe"
	Backend        string // "bundle" | "relay"
	AmountLamports uint64
	ExpectedProfit float64 // SOL; zero for snipes
	Status         string  // SubmissionStatus at last observation
	CreatedAt      int64   // Unix seconds
	ResolvedAt     *int64  // Unix seconds; nil while pending/unresolved
}

// Strategy label used for listing-triggered buys that bypass MEV detection.
const StrategySnipe = "snipe"
