package domain

import "fmt"

// Strategy identifies one of the supported MEV strategies.
type Strategy string

const (
	StrategyArbitrage   Strategy = "arbitrage"
	StrategyFrontRun    Strategy = "frontrun"
	StrategyBackRun     Strategy = "backrun"
	StrategySandwich    Strategy = "sandwich"
	StrategyLiquidation Strategy = "liquidation"
)

// ParseStrategy converts a config string to a Strategy.
// Unknown names are rejected rather than silently dropped.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyArbitrage, StrategyFrontRun, StrategyBackRun, StrategySandwich, StrategyLiquidation:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// Priority orders signals for execution. Higher values execute first.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// PriorityFor derives priority from the combined opportunity score
// profit * confidence * (1 - risk).
func PriorityFor(expectedProfit, confidence, risk float64) Priority {
	combined := expectedProfit * confidence * (1 - risk)
	switch {
	case combined > 0.8:
		return PriorityCritical
	case combined > 0.6:
		return PriorityHigh
	case combined > 0.4:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Opportunity is a detected, scored candidate for profitable action.
// ID is derived from (strategy, token address) and acts as a deduplication
// key: repeated detections for the same pair share the same ID.
type Opportunity struct {
	ID              string
	Strategy        Strategy
	TokenAddress    string
	PoolAddress     string
	ExpectedProfit  float64 // SOL
	ConfidenceScore float64 // [0,1]
	GasEstimate     uint64
	Deadline        int64 // Unix seconds, absolute
	RiskScore       float64
	CreatedAt       int64 // Unix seconds
}

// OpportunityID builds the deduplication key for a strategy/token pair.
func OpportunityID(strategy Strategy, tokenAddress string) string {
	return fmt.Sprintf("%s_%s", strategy, tokenAddress)
}

// Signal is an Opportunity enriched with a priority and an execution plan.
// Transient: created and consumed within one detection cycle.
type Signal struct {
	Opportunity Opportunity
	Priority    Priority
	Plan        ExecutionPlan
}

// ExecutionPlan carries the execution policy for one signal.
type ExecutionPlan struct {
	EstimatedGas   uint64
	MaxSlippage    float64
	TargetProfit   float64
	RiskMitigation []RiskMitigation
}

// MitigationKind enumerates risk-mitigation directives.
type MitigationKind string

const (
	MitigationMaxGasPrice MitigationKind = "max_gas_price"
	MitigationTimeout     MitigationKind = "timeout"
	MitigationSlippage    MitigationKind = "slippage_protection"
)

// RiskMitigation is a single directive of an execution plan. Exactly one
// of the value fields is meaningful, selected by Kind.
type RiskMitigation struct {
	Kind        MitigationKind
	GasPrice    uint64  // MitigationMaxGasPrice
	TimeoutMs   int64   // MitigationTimeout
	MaxSlippage float64 // MitigationSlippage
}

// Timeout returns the plan's timeout directive in milliseconds, or the
// fallback when the plan carries none.
func (p ExecutionPlan) Timeout(fallbackMs int64) int64 {
	for _, m := range p.RiskMitigation {
		if m.Kind == MitigationTimeout {
			return m.TimeoutMs
		}
	}
	return fallbackMs
}
