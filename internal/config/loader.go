package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path over Defaults, loads a .env file if one
// exists and applies POLYTG_* overrides. A missing file at path is not an
// error so the bot can run from the environment alone. The result is not
// validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides overwrites fields whose POLYTG_* variable is set.
func applyEnvOverrides(cfg *Config) error {
	setStr(&cfg.Trading.Mode, "POLYTG_TRADING_MODE")
	setFloat64(&cfg.Trading.MinUSD, "POLYTG_TRADING_MIN_USD")
	setFloat64(&cfg.Trading.MaxUSD, "POLYTG_TRADING_MAX_USD")
	setInt(&cfg.Trading.PageSize, "POLYTG_TRADING_PAGE_SIZE")

	setStr(&cfg.Telegram.Token, "POLYTG_TELEGRAM_TOKEN")
	if err := setInt64Slice(&cfg.Telegram.AllowedUsers, "POLYTG_TELEGRAM_ALLOWED_USERS"); err != nil {
		return err
	}
	setInt(&cfg.Telegram.PollTimeout, "POLYTG_TELEGRAM_POLL_TIMEOUT")
	setInt(&cfg.Telegram.QueueDepth, "POLYTG_TELEGRAM_QUEUE_DEPTH")
	setInt(&cfg.Telegram.RateLimit, "POLYTG_TELEGRAM_RATE_LIMIT")
	setDuration(&cfg.Telegram.RateWindow, "POLYTG_TELEGRAM_RATE_WINDOW")
	setBool(&cfg.Telegram.Debug, "POLYTG_TELEGRAM_DEBUG")

	setStr(&cfg.Polymarket.ClobHost, "POLYTG_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "POLYTG_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.DataHost, "POLYTG_POLYMARKET_DATA_HOST")
	setInt(&cfg.Polymarket.ChainID, "POLYTG_POLYMARKET_CHAIN_ID")
	setInt(&cfg.Polymarket.SignatureType, "POLYTG_POLYMARKET_SIGNATURE_TYPE")
	setStr(&cfg.Polymarket.FunderAddress, "POLYTG_POLYMARKET_FUNDER_ADDRESS")
	setStr(&cfg.Polymarket.APIKey, "POLYTG_POLYMARKET_API_KEY")
	setStr(&cfg.Polymarket.APISecret, "POLYTG_POLYMARKET_API_SECRET")
	setStr(&cfg.Polymarket.APIPassphrase, "POLYTG_POLYMARKET_API_PASSPHRASE")

	setStr(&cfg.Wallet.PrivateKey, "POLYTG_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "POLYTG_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "POLYTG_WALLET_KEY_PASSWORD")

	setStr(&cfg.Supabase.DSN, "POLYTG_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "DATABASE_URL")
	setStr(&cfg.Supabase.Host, "POLYTG_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "POLYTG_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "POLYTG_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "POLYTG_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "POLYTG_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "POLYTG_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "POLYTG_SUPABASE_POOL_MAX_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "POLYTG_SUPABASE_RUN_MIGRATIONS")

	setStr(&cfg.Redis.URL, "POLYTG_REDIS_URL")
	setStr(&cfg.Redis.Addr, "POLYTG_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYTG_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYTG_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYTG_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "POLYTG_REDIS_TLS_ENABLED")

	setStr(&cfg.S3.Endpoint, "POLYTG_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYTG_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYTG_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYTG_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYTG_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "POLYTG_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "POLYTG_S3_PREFIX")

	setBool(&cfg.Server.Enabled, "POLYTG_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "POLYTG_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POLYTG_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "POLYTG_SERVER_API_KEY")

	if err := setInt64(&cfg.Notify.TelegramChatID, "POLYTG_NOTIFY_TELEGRAM_CHAT_ID"); err != nil {
		return err
	}
	setStr(&cfg.Notify.DiscordWebhookURL, "POLYTG_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POLYTG_NOTIFY_EVENTS")

	setStr(&cfg.LogLevel, "POLYTG_LOG_LEVEL")
	return nil
}

// Typed env helpers. Each only touches dst when the variable is non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func splitList(v string) []string {
	var out []string
	for p := range strings.SplitSeq(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setStringSlice(dst *[]string, key string) {
	if parts := splitList(os.Getenv(key)); len(parts) > 0 {
		*dst = parts
	}
}

// setInt64Slice fails loudly: a typo in an allow-list must not silently
// open the bot to everyone.
func setInt64Slice(dst *[]int64, key string) error {
	parts := splitList(os.Getenv(key))
	if len(parts) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		ids = append(ids, n)
	}
	*dst = ids
	return nil
}
