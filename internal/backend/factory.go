package backend

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pumpswap-sniper/internal/config"
	"pumpswap-sniper/internal/solana"
	"pumpswap-sniper/internal/txbuilder"
)

// New builds the confirmation backend the configuration selects. Called
// once at startup; the choice is fixed for the process lifetime.
func New(cfg config.Config, rpc solana.RPC, builder *txbuilder.Builder, log zerolog.Logger) (Backend, error) {
	switch cfg.ConfirmationBackend {
	case config.BackendBundle:
		var engine solana.RPC
		if cfg.BundleURL != "" {
			engine = solana.NewHTTPClient(cfg.BundleURL)
		}
		return NewBundle(BundleOptions{
			RPC:                   rpc,
			Engine:                engine,
			Builder:               builder,
			TipAccount:            cfg.BundleTipAccount,
			TipAmount:             cfg.BundleTipAmount,
			PriorityFeeMultiplier: cfg.PriorityFeeMultiplier,
			Retention:             time.Duration(cfg.BundleRetentionSec) * time.Second,
			Logger:                log,
		})
	case config.BackendRelay:
		return NewRelay(RelayOptions{
			BaseURL:     cfg.RelayURL,
			APIKey:      cfg.RelayAPIKey,
			MaxGasPrice: cfg.MaxGasPrice,
			Timeout:     time.Duration(cfg.RelayTimeoutSec) * time.Second,
			Retention:   time.Duration(cfg.RelayRetentionSec) * time.Second,
			Logger:      log,
		})
	}
	return nil, fmt.Errorf("unknown confirmation backend %q", cfg.ConfirmationBackend)
}
