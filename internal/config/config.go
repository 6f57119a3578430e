// Package config loads and validates sniper configuration.
// Config is read through a Handle guarded by a multi-reader lock so that
// components re-fetch values instead of caching stale copies.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"pumpswap-sniper/internal/domain"
)

// Backend names selectable via ConfirmationBackend.
const (
	BackendBundle = "bundle"
	BackendRelay  = "relay"
)

// Config holds all runtime configuration. Field names map 1:1 to the TOML file.
type Config struct {
	// Event feed
	FeedWSURL  string `toml:"feed_ws_url"`
	FeedAPIKey string `toml:"feed_api_key"`

	// Solana RPC
	SolanaRPCURL string `toml:"solana_rpc_url"`

	// Wallet
	PrivateKey string `toml:"private_key"`

	// Sniper
	TargetTokens []string `toml:"target_tokens"`
	MinLiquidity float64  `toml:"min_liquidity"` // SOL
	MaxSlippage  float64  `toml:"max_slippage"`  // percent
	SnipeAmount  float64  `toml:"snipe_amount"`  // SOL
	MaxGasPrice  uint64   `toml:"max_gas_price"` // lamports

	// MEV
	EnableMEV     bool     `toml:"enable_mev"`
	MEVStrategies []string `toml:"mev_strategies"`

	// Confirmation backend: "bundle" or "relay"
	ConfirmationBackend string `toml:"confirmation_backend"`

	// Bundle backend (block-engine style)
	BundleURL          string `toml:"bundle_url"`
	BundleTipAccount   string `toml:"bundle_tip_account"`
	BundleTipAmount    uint64 `toml:"bundle_tip_amount"` // lamports
	BundleTimeoutMs    int64  `toml:"bundle_timeout_ms"`
	BundleRetentionSec int64  `toml:"bundle_retention_sec"`

	// Relay backend (HTTP accelerator style)
	RelayURL          string `toml:"relay_url"`
	RelayAPIKey       string `toml:"relay_api_key"`
	RelayTimeoutSec   int64  `toml:"relay_timeout_sec"`
	RelayRetentionSec int64  `toml:"relay_retention_sec"`

	// Execution
	MaxConcurrentTrades   int     `toml:"max_concurrent_trades"`
	PriorityFeeMultiplier float64 `toml:"priority_fee_multiplier"`

	// Persistence (optional; empty DSN keeps the in-memory store)
	PostgresDSN   string `toml:"postgres_dsn"`
	ClickHouseDSN string `toml:"clickhouse_dsn"`

	// Monitoring
	EnableMetrics bool   `toml:"enable_metrics"`
	MetricsAddr   string `toml:"metrics_addr"`
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"` // "console" or "json"
}

// Default returns the configuration used when a field is absent from the file.
func Default() Config {
	return Config{
		FeedWSURL:    "wss://feed.pumpswap.fun/ws",
		SolanaRPCURL: "https://api.mainnet-beta.solana.com",

		MinLiquidity: 10.0,
		MaxSlippage:  5.0,
		SnipeAmount:  1.0,
		MaxGasPrice:  1_000_000,

		EnableMEV:     true,
		MEVStrategies: []string{"arbitrage", "frontrun"},

		ConfirmationBackend: BackendBundle,

		BundleURL:          "https://mainnet.block-engine.example.net",
		BundleTipAccount:   "96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5",
		BundleTipAmount:    10_000,
		BundleTimeoutMs:    5_000,
		BundleRetentionSec: 300,

		RelayURL:          "https://api.relay.example.com",
		RelayTimeoutSec:   30,
		RelayRetentionSec: 600,

		MaxConcurrentTrades:   5,
		PriorityFeeMultiplier: 1.5,

		EnableMetrics: true,
		MetricsAddr:   ":9090",
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// Load reads a TOML config file. Missing fields fall back to Default().
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration before startup. Validation errors are
// fatal: the pipeline must not start with a broken configuration.
func (c *Config) Validate() error {
	if c.PrivateKey == "" {
		return fmt.Errorf("private_key is required")
	}
	if c.MinLiquidity <= 0 {
		return fmt.Errorf("min_liquidity must be positive")
	}
	if c.MaxSlippage <= 0 || c.MaxSlippage > 100 {
		return fmt.Errorf("max_slippage must be in (0, 100]")
	}
	if c.SnipeAmount <= 0 {
		return fmt.Errorf("snipe_amount must be positive")
	}
	if c.MaxConcurrentTrades <= 0 {
		return fmt.Errorf("max_concurrent_trades must be positive")
	}
	if c.ConfirmationBackend != BackendBundle && c.ConfirmationBackend != BackendRelay {
		return fmt.Errorf("confirmation_backend must be %q or %q, got %q",
			BackendBundle, BackendRelay, c.ConfirmationBackend)
	}
	if _, err := c.Strategies(); err != nil {
		return err
	}
	return nil
}

// Strategies parses the configured MEV strategy names.
func (c *Config) Strategies() ([]domain.Strategy, error) {
	out := make([]domain.Strategy, 0, len(c.MEVStrategies))
	for _, s := range c.MEVStrategies {
		st, err := domain.ParseStrategy(s)
		if err != nil {
			return nil, fmt.Errorf("mev_strategies: %w", err)
		}
		out = append(out, st)
	}
	return out, nil
}

// MinLiquidityLamports converts the configured SOL threshold to lamports.
func (c *Config) MinLiquidityLamports() uint64 {
	return uint64(c.MinLiquidity * 1e9)
}

// SnipeAmountLamports converts the configured snipe amount to lamports.
func (c *Config) SnipeAmountLamports() uint64 {
	return uint64(c.SnipeAmount * 1e9)
}

// StrategyEnabled reports whether s is in the configured strategy set.
func (c *Config) StrategyEnabled(s domain.Strategy) bool {
	for _, name := range c.MEVStrategies {
		if domain.Strategy(name) == s {
			return true
		}
	}
	return false
}
