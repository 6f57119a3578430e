package domain

// TokenListing announces a newly tradeable token and its initial pool.
// Arrives exactly once per token; immutable once received.
type TokenListing struct {
	TokenAddress     string
	TokenSymbol      string
	TokenName        string
	Creator          string
	PoolAddress      string
	InitialLiquidity uint64 // lamports
	CreatedAt        int64  // Unix seconds
}

// PriceUpdate is a price/liquidity/volume observation for one token.
// Arrives repeatedly; source does not guarantee timestamp ordering.
type PriceUpdate struct {
	TokenAddress string
	PriceSOL     float64
	PriceUSD     float64
	Liquidity    uint64  // lamports
	Volume1h     float64 // USD
	Timestamp    int64   // Unix seconds
	Direction    PriceDirection
}

// PriceDirection tags the direction of a price move.
type PriceDirection string

const (
	DirectionUp   PriceDirection = "up"
	DirectionDown PriceDirection = "down"
	DirectionFlat PriceDirection = "flat"
)

// PricePoint is one entry of a per-token rolling price history.
type PricePoint struct {
	Price     float64
	Timestamp int64
	Volume    uint64
}
