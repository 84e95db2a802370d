package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/polytgbot/internal/blob/s3"
	"github.com/alanyoungcy/polytgbot/internal/cache/redis"
	"github.com/alanyoungcy/polytgbot/internal/config"
	"github.com/alanyoungcy/polytgbot/internal/domain"
	"github.com/alanyoungcy/polytgbot/internal/server/handler"
	"github.com/alanyoungcy/polytgbot/internal/store/memory"
	"github.com/alanyoungcy/polytgbot/internal/store/postgres"
)

// Dependencies bundles the storage and shared-state ports. Fields other than
// Favorites and Bus are nil when their backend is not configured.
type Dependencies struct {
	// Stores
	Favorites domain.FavoriteStore
	Orders    domain.OrderStore
	Audit     domain.AuditStore

	// Shared state
	ListingCache domain.ListingCache
	RateLimiter  domain.RateLimiter
	Locks        domain.LockManager
	Bus          domain.SignalBus

	Receipts *s3blob.ReceiptWriter

	// Pingers are reported by the health endpoint.
	Pingers map[string]handler.Pinger
}

// Wire connects the configured backends and returns them with a cleanup
// function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Pingers: make(map[string]handler.Pinger)}

	// --- PostgreSQL ---
	if cfg.Supabase.Enabled() {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Supabase.DSN,
			Host:     cfg.Supabase.Host,
			Port:     cfg.Supabase.Port,
			Database: cfg.Supabase.Database,
			User:     cfg.Supabase.User,
			Password: cfg.Supabase.Password,
			SSLMode:  cfg.Supabase.SSLMode,
			MaxConns: cfg.Supabase.PoolMaxConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pg.Close)

		if cfg.Supabase.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pg.Pool()
		deps.Favorites = postgres.NewFavoriteStore(pool)
		deps.Orders = postgres.NewOrderStore(pool)
		deps.Audit = postgres.NewAuditStore(pool)
		deps.Pingers["postgres"] = pg
		logger.InfoContext(ctx, "postgres connected")
	} else {
		deps.Favorites = memory.NewFavoriteStore()
		logger.InfoContext(ctx, "no database configured, favorites kept in memory")
	}

	// --- Redis ---
	if cfg.Redis.Enabled() {
		rc, err := redis.New(ctx, redis.ClientConfig{
			URL:        cfg.Redis.URL,
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = rc.Close() })

		deps.ListingCache = redis.NewListingCache(rc, cfg.Redis.ListingTTL.Duration)
		deps.RateLimiter = redis.NewRateLimiter(rc)
		deps.Locks = redis.NewLockManager(rc)
		deps.Bus = redis.NewSignalBus(rc)
		deps.Pingers["redis"] = rc
		logger.InfoContext(ctx, "redis connected")
	} else {
		deps.Bus = memory.NewBus()
	}

	// --- S3 receipts ---
	if cfg.S3.Enabled() {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Receipts = s3blob.NewReceiptWriter(s3blob.NewWriter(sc), cfg.S3.Prefix)
	}

	return deps, cleanup, nil
}
