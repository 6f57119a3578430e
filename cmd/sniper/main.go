package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"pumpswap-sniper/internal/admission"
	"pumpswap-sniper/internal/backend"
	"pumpswap-sniper/internal/config"
	"pumpswap-sniper/internal/detector"
	"pumpswap-sniper/internal/engine"
	"pumpswap-sniper/internal/logging"
	"pumpswap-sniper/internal/observability"
	"pumpswap-sniper/internal/solana"
	"pumpswap-sniper/internal/storage"
	chstore "pumpswap-sniper/internal/storage/clickhouse"
	"pumpswap-sniper/internal/storage/memory"
	"pumpswap-sniper/internal/storage/migrations"
	pgstore "pumpswap-sniper/internal/storage/postgres"
	"pumpswap-sniper/internal/stream"
	"pumpswap-sniper/internal/txbuilder"
)

func main() {
	configPath := flag.String("config", "config.toml", "Path to TOML config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	tokens := flag.String("tokens", "", "Comma-separated target token addresses (overrides config)")
	minLiquidity := flag.Float64("min-liquidity", 0, "Minimum pool liquidity in SOL (overrides config)")
	maxSlippage := flag.Float64("max-slippage", 0, "Maximum slippage percent (overrides config)")
	maxGasPrice := flag.Uint64("max-gas-price", 0, "Maximum gas price in lamports (overrides config)")
	snipeAmount := flag.String("snipe-amount", "", "Snipe amount in SOL, e.g. \"1.5\" (overrides config)")
	useBundle := flag.Bool("use-bundle", false, "Force the bundle confirmation backend")
	useRelay := flag.Bool("use-relay", false, "Force the relay confirmation backend")
	flag.Parse()

	// .env is optional; real deployments use environment or the TOML file.
	_ = godotenv.Load()

	var snipeSOL float64
	if *snipeAmount != "" {
		lamports, err := solana.ParseAmount(*snipeAmount, 9)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -snipe-amount: %v\n", err)
			os.Exit(1)
		}
		snipeSOL = float64(lamports) / solana.LamportsPerSOL
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	applyOverrides(&cfg, overrides{
		debug:        *debug,
		tokens:       *tokens,
		minLiquidity: *minLiquidity,
		maxSlippage:  *maxSlippage,
		maxGasPrice:  *maxGasPrice,
		snipeAmount:  snipeSOL,
		useBundle:    *useBundle,
		useRelay:     *useRelay,
	})

	if key := os.Getenv("SNIPER_PRIVATE_KEY"); key != "" {
		cfg.PrivateKey = key
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logging: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("sniper exited")
	}
}

type overrides struct {
	debug        bool
	tokens       string
	minLiquidity float64
	maxSlippage  float64
	maxGasPrice  uint64
	snipeAmount  float64
	useBundle    bool
	useRelay     bool
}

func applyOverrides(cfg *config.Config, o overrides) {
	if o.debug {
		cfg.LogLevel = "debug"
	}
	if o.tokens != "" {
		cfg.TargetTokens = strings.Split(o.tokens, ",")
	}
	if o.minLiquidity > 0 {
		cfg.MinLiquidity = o.minLiquidity
	}
	if o.maxSlippage > 0 {
		cfg.MaxSlippage = o.maxSlippage
	}
	if o.maxGasPrice > 0 {
		cfg.MaxGasPrice = o.maxGasPrice
	}
	if o.snipeAmount > 0 {
		cfg.SnipeAmount = o.snipeAmount
	}
	if o.useBundle {
		cfg.ConfirmationBackend = config.BackendBundle
	}
	if o.useRelay {
		cfg.ConfirmationBackend = config.BackendRelay
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shutdown on SIGINT/SIGTERM; a second signal forces exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()

		select {
		case <-sigCh:
			log.Warn().Msg("second signal, forcing exit")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn().Msg("graceful shutdown timed out")
			os.Exit(1)
		case <-ctx.Done():
		}
	}()

	if cfg.EnableMetrics && cfg.MetricsAddr != "" {
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
			if err := observability.Serve(cfg.MetricsAddr); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	wallet, err := solana.LoadKeypair(cfg.PrivateKey)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	log.Info().Str("wallet", wallet.PublicKey()).Msg("wallet loaded")

	metrics := observability.DefaultMetrics
	rpc := solana.NewHTTPClient(cfg.SolanaRPCURL,
		solana.WithLatencyObserver(func(method string, seconds float64) {
			metrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
		}))
	builder := txbuilder.New(wallet, rpc)

	be, err := backend.New(cfg, rpc, builder, log)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	log.Info().Str("backend", be.Name()).Msg("confirmation backend selected")

	trades, closeTrades, err := openTradeStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeTrades()

	archive, closeArchive, err := openSignalArchive(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeArchive()

	strategies, err := cfg.Strategies()
	if err != nil {
		return err
	}

	det := detector.New(detector.Options{
		Strategies:   strategies,
		MinLiquidity: cfg.MinLiquidityLamports(),
		MaxSlippage:  cfg.MaxSlippage,
		MaxGasPrice:  cfg.MaxGasPrice,
		Logger:       log,
	})

	feed, err := stream.NewWSFeed(ctx, cfg.FeedWSURL, cfg.FeedAPIKey, nil, log)
	if err != nil {
		return fmt.Errorf("connect feed: %w", err)
	}
	defer feed.Close()

	eng, err := engine.New(engine.Options{
		Config:   config.NewHandle(cfg),
		Listings: feed.Listings(),
		Prices:   feed.Prices(),
		Detector: det,
		Builder:  builder,
		Backend:  be,
		Gate:     admission.NewGate(cfg.MaxConcurrentTrades),
		Trades:   trades,
		Archive:  archive,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	log.Info().
		Int("max_concurrent", cfg.MaxConcurrentTrades).
		Float64("min_liquidity_sol", cfg.MinLiquidity).
		Bool("mev", cfg.EnableMEV).
		Msg("sniper running")

	return eng.Run(ctx)
}

// openTradeStore returns the configured trade record store: PostgreSQL
// when a DSN is set, in-memory otherwise.
func openTradeStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (storage.TradeRecordStore, func(), error) {
	if cfg.PostgresDSN == "" {
		log.Info().Msg("using in-memory trade store")
		return memory.NewTradeRecordStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	log.Info().Msg("postgres trade store ready")
	return pgstore.NewTradeRecordStore(pool), pool.Close, nil
}

// openSignalArchive returns the configured signal archive: ClickHouse
// when a DSN is set, in-memory otherwise.
func openSignalArchive(ctx context.Context, cfg config.Config, log zerolog.Logger) (storage.SignalArchive, func(), error) {
	if cfg.ClickHouseDSN == "" {
		log.Info().Msg("using in-memory signal archive")
		return memory.NewSignalArchive(), func() {}, nil
	}

	conn, err := chstore.NewConn(ctx, cfg.ClickHouseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect clickhouse: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	log.Info().Msg("clickhouse signal archive ready")
	return chstore.NewSignalArchive(conn), func() { conn.Close() }, nil
}
