package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/polytgbot/internal/config"
	"github.com/alanyoungcy/polytgbot/internal/crypto"
	"github.com/alanyoungcy/polytgbot/internal/domain"
	"github.com/alanyoungcy/polytgbot/internal/paper"
	"github.com/alanyoungcy/polytgbot/internal/platform/polymarket"
	"github.com/alanyoungcy/polytgbot/internal/service"
)

// backend is the trading side of one mode: who places orders and who
// reports holdings.
type backend struct {
	trader    domain.Trader
	positions service.PositionSource
}

// paperBackend fills orders at the CLOB midpoint against an in-memory book.
func paperBackend(cfg *config.Config, gamma *polymarket.GammaClient, logger *slog.Logger) backend {
	clob := polymarket.NewClobClient(cfg.Polymarket.ClobHost, nil, nil)
	broker := paper.NewBroker(clob, gamma, logger)
	return backend{trader: broker, positions: broker}
}

// liveBackend trades the operator wallet on the CLOB. L2 credentials come
// from config when present and are derived from the key otherwise.
func liveBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (backend, error) {
	signer, err := crypto.LoadSigner(crypto.KeySource{
		RawKey:   cfg.Wallet.PrivateKey,
		KeyFile:  cfg.Wallet.EncryptedKeyPath,
		Password: cfg.Wallet.KeyPassword,
	}, int64(cfg.Polymarket.ChainID))
	if err != nil {
		return backend{}, fmt.Errorf("app: live: %w", err)
	}

	var creds *crypto.APICreds
	if cfg.Polymarket.APIKey != "" {
		creds = &crypto.APICreds{
			Key:        cfg.Polymarket.APIKey,
			Secret:     cfg.Polymarket.APISecret,
			Passphrase: cfg.Polymarket.APIPassphrase,
		}
	}
	clob := polymarket.NewClobClient(cfg.Polymarket.ClobHost, signer, creds)
	if creds == nil {
		if _, err := clob.DeriveAPIKey(ctx); err != nil {
			return backend{}, fmt.Errorf("app: live: %w", err)
		}
	}

	trader := polymarket.NewLiveTrader(
		clob,
		polymarket.NewDataClient(cfg.Polymarket.DataHost),
		signer,
		polymarket.LiveConfig{
			Funder:        cfg.Polymarket.FunderAddress,
			SignatureType: cfg.Polymarket.SignatureType,
		},
		logger,
	)
	logger.InfoContext(ctx, "live trading enabled",
		slog.String("signer", signer.Address().Hex()),
		slog.String("wallet", trader.Wallet()),
	)
	return backend{trader: trader, positions: trader}, nil
}
