// Package config defines the bot's configuration and its validation.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Config is the root configuration. Fields are populated from a TOML file
// and then optionally overridden by POLYTG_* environment variables.
type Config struct {
	Trading    TradingConfig    `toml:"trading"`
	Telegram   TelegramConfig   `toml:"telegram"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Wallet     WalletConfig     `toml:"wallet"`
	Supabase   SupabaseConfig   `toml:"supabase"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	LogLevel   string           `toml:"log_level"`
}

// TradingConfig holds order bounds and the conversation tunables.
type TradingConfig struct {
	Mode           string   `toml:"mode"` // "paper" or "live"
	MinUSD         float64  `toml:"min_usd"`
	MaxUSD         float64  `toml:"max_usd"`
	PageSize       int      `toml:"page_size"`
	SearchLimit    int      `toml:"search_limit"`
	CategoryLimit  int      `toml:"category_limit"`
	SportsLimit    int      `toml:"sports_limit"`
	PositionsLimit int      `toml:"positions_limit"`
	PresetAmounts  []int    `toml:"preset_amounts"`
	PresetPercents []int    `toml:"preset_percents"`
	DedupTTL       duration `toml:"dedup_ttl"`
}

// TelegramConfig holds the bot token and transport limits.
type TelegramConfig struct {
	Token        string   `toml:"token"`
	AllowedUsers []int64  `toml:"allowed_users"`
	PollTimeout  int      `toml:"poll_timeout"`
	QueueDepth   int      `toml:"queue_depth"`
	IdleTimeout  duration `toml:"idle_timeout"`
	RateLimit    int      `toml:"rate_limit"`
	RateWindow   duration `toml:"rate_window"`
	Debug        bool     `toml:"debug"`
}

// PolymarketConfig holds API endpoints and chain parameters.
type PolymarketConfig struct {
	ClobHost      string `toml:"clob_host"`
	GammaHost     string `toml:"gamma_host"`
	DataHost      string `toml:"data_host"`
	ChainID       int    `toml:"chain_id"`
	SignatureType int    `toml:"signature_type"`
	// FunderAddress is the proxy wallet holding funds, when it differs from
	// the signing key's address.
	FunderAddress string `toml:"funder_address"`
	APIKey        string `toml:"api_key"`
	APISecret     string `toml:"api_secret"`
	APIPassphrase string `toml:"api_passphrase"`
}

// WalletConfig holds the operator key, raw or encrypted.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// SupabaseConfig holds PostgreSQL connection parameters. Postgres is used
// when DSN or Host is set.
type SupabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Enabled reports whether a database is configured.
func (c SupabaseConfig) Enabled() bool { return c.DSN != "" || c.Host != "" }

// RedisConfig holds Redis connection parameters. Redis is used when URL or
// Addr is set.
type RedisConfig struct {
	URL        string   `toml:"url"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	TLSEnabled bool     `toml:"tls_enabled"`
	ListingTTL duration `toml:"listing_ttl"`
	LockTTL    duration `toml:"lock_ttl"`
}

// Enabled reports whether Redis is configured.
func (c RedisConfig) Enabled() bool { return c.URL != "" || c.Addr != "" }

// S3Config holds object storage parameters for order receipts. Receipts are
// written when Bucket is set.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// Enabled reports whether receipts are archived.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// ServerConfig holds status server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds operator alert channels.
type NotifyConfig struct {
	TelegramChatID    int64    `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	DiscordUsername   string   `toml:"discord_username"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration so TOML strings like "5m" decode.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config with every field at its default.
func Defaults() Config {
	return Config{
		Trading: TradingConfig{
			Mode:           "paper",
			MinUSD:         5,
			MaxUSD:         100,
			PageSize:       5,
			SearchLimit:    8,
			CategoryLimit:  15,
			SportsLimit:    20,
			PositionsLimit: 10,
			PresetAmounts:  []int{10, 25, 50, 100},
			PresetPercents: []int{25, 50, 100},
			DedupTTL:       duration{time.Hour},
		},
		Telegram: TelegramConfig{
			PollTimeout: 30,
			QueueDepth:  4,
			IdleTimeout: duration{5 * time.Minute},
			RateLimit:   30,
			RateWindow:  duration{10 * time.Second},
		},
		Polymarket: PolymarketConfig{
			ClobHost:      "https://clob.polymarket.com",
			GammaHost:     "https://gamma-api.polymarket.com",
			DataHost:      "https://data-api.polymarket.com",
			ChainID:       137,
			SignatureType: 0,
		},
		Supabase: SupabaseConfig{
			Port:          5432,
			SSLMode:       "require",
			PoolMaxConns:  10,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			PoolSize:   10,
			ListingTTL: duration{2 * time.Minute},
			LockTTL:    duration{2 * time.Minute},
		},
		S3: S3Config{
			Region: "us-east-1",
			UseSSL: true,
			Prefix: "receipts",
		},
		Server: ServerConfig{
			Enabled:    true,
			Port:       8000,
			RateWindow: duration{time.Minute},
		},
		Notify: NotifyConfig{
			DiscordUsername: "polytgbot",
			Events:          []string{"order_filled", "order_failed"},
		},
		LogLevel: "info",
	}
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration and returns every problem found in a
// single error.
func (c *Config) Validate() error {
	var errs []string

	if !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	t := c.Trading
	switch t.Mode {
	case "paper", "live":
	default:
		errs = append(errs, fmt.Sprintf("trading: unknown mode %q (valid: paper, live)", t.Mode))
	}
	if t.MinUSD <= 0 {
		errs = append(errs, "trading: min_usd must be > 0")
	}
	if t.MaxUSD < t.MinUSD {
		errs = append(errs, "trading: max_usd must be >= min_usd")
	}
	if t.PageSize < 1 {
		errs = append(errs, "trading: page_size must be >= 1")
	}
	if t.SearchLimit < 1 || t.CategoryLimit < 1 || t.SportsLimit < 1 || t.PositionsLimit < 1 {
		errs = append(errs, "trading: search, category, sports and positions limits must be >= 1")
	}
	for _, p := range t.PresetPercents {
		if p < 1 || p > 100 {
			errs = append(errs, fmt.Sprintf("trading: preset percent %d outside 1..100", p))
		}
	}
	for _, a := range t.PresetAmounts {
		if a <= 0 {
			errs = append(errs, fmt.Sprintf("trading: preset amount %d must be > 0", a))
		}
	}

	if c.Telegram.Token == "" {
		errs = append(errs, "telegram: token must be set")
	}
	if c.Telegram.PollTimeout < 0 {
		errs = append(errs, "telegram: poll_timeout must be >= 0")
	}

	if c.Polymarket.GammaHost == "" || c.Polymarket.ClobHost == "" || c.Polymarket.DataHost == "" {
		errs = append(errs, "polymarket: clob_host, gamma_host and data_host must be set")
	}
	if c.Polymarket.ChainID <= 0 {
		errs = append(errs, "polymarket: chain_id must be positive")
	}
	if st := c.Polymarket.SignatureType; st < 0 || st > 2 {
		errs = append(errs, fmt.Sprintf("polymarket: signature_type must be 0 (EOA), 1 (proxy) or 2 (Safe), got %d", st))
	}
	creds := []string{c.Polymarket.APIKey, c.Polymarket.APISecret, c.Polymarket.APIPassphrase}
	if set := len(slices.DeleteFunc(slices.Clone(creds), func(s string) bool { return s == "" })); set != 0 && set != 3 {
		errs = append(errs, "polymarket: api_key, api_secret and api_passphrase must be set together")
	}

	if t.Mode == "live" {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: private_key or encrypted_key_path is required in live mode")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
		if c.Polymarket.SignatureType != 0 && c.Polymarket.FunderAddress == "" {
			errs = append(errs, "polymarket: funder_address is required for proxy and Safe signature types")
		}
	}

	if c.Supabase.Enabled() && c.Supabase.DSN == "" {
		if c.Supabase.Database == "" {
			errs = append(errs, "supabase: database must not be empty (or set supabase.dsn)")
		}
		if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
			errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
		}
	}
	if c.Supabase.Enabled() && c.Supabase.PoolMaxConns < 1 {
		errs = append(errs, "supabase: pool_max_conns must be >= 1")
	}

	if c.Redis.Enabled() && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
