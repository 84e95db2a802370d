// Command polytgbot runs the Telegram trading bot for Polymarket.
//
// Usage:
//
//	polytgbot [-config config.toml]
//	polytgbot encrypt-key -out key.json   (reads the key and password from
//	                                       POLYTG_WALLET_PRIVATE_KEY and
//	                                       POLYTG_WALLET_KEY_PASSWORD)
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/alanyoungcy/polytgbot/internal/app"
	"github.com/alanyoungcy/polytgbot/internal/config"
	"github.com/alanyoungcy/polytgbot/internal/crypto"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "encrypt-key" {
		if err := encryptKey(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt-key: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return err
	}
	logger.Debug("configuration loaded", slog.Any("config", config.RedactedConfig(cfg)))

	application := app.New(cfg, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("exited with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("polytgbot stopped")
	return nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// encryptKey seals a private key into the file format the wallet section's
// encrypted_key_path expects. The key is read from stdin when the env
// variable is unset.
func encryptKey(args []string) error {
	fs := flag.NewFlagSet("encrypt-key", flag.ContinueOnError)
	out := fs.String("out", "key.json", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_ = godotenv.Load()
	key := os.Getenv("POLYTG_WALLET_PRIVATE_KEY")
	if key == "" {
		fmt.Fprint(os.Stderr, "private key (hex): ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read key: %w", err)
		}
		key = strings.TrimSpace(line)
	}
	password := os.Getenv("POLYTG_WALLET_KEY_PASSWORD")
	if password == "" {
		return errors.New("POLYTG_WALLET_KEY_PASSWORD must be set")
	}

	doc, err := crypto.SealKey(key, password)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, doc, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintf(os.Stderr, "sealed key written to %s\n", *out)
	return nil
}
