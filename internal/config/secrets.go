package config

import "slices"

const redacted = "***"

// RedactedConfig returns a copy of cfg with secrets replaced by "***", for
// logging the active configuration.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Telegram.Token)
	redact(&out.Polymarket.APIKey)
	redact(&out.Polymarket.APISecret)
	redact(&out.Polymarket.APIPassphrase)
	redact(&out.Wallet.PrivateKey)
	redact(&out.Wallet.KeyPassword)
	redact(&out.Supabase.DSN)
	redact(&out.Supabase.Password)
	redact(&out.Redis.URL)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Server.APIKey)
	redact(&out.Notify.DiscordWebhookURL)

	// Slices are copied so edits to the copy never reach cfg.
	out.Trading.PresetAmounts = slices.Clone(cfg.Trading.PresetAmounts)
	out.Trading.PresetPercents = slices.Clone(cfg.Trading.PresetPercents)
	out.Telegram.AllowedUsers = slices.Clone(cfg.Telegram.AllowedUsers)
	out.Server.CORSOrigins = slices.Clone(cfg.Server.CORSOrigins)
	out.Notify.Events = slices.Clone(cfg.Notify.Events)
	return out
}

func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
