// ABOUTME: Entry point for the swapbot Matrix bot
// ABOUTME: Wires config, session store, aggregator, wallet bridge and frontend

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/config"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/intent"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/matrix"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/route"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/session"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/swap"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/token"
	"github.com/tg-dex-swap-bot/dex-swap-bot/internal/wallet"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _____      ____ _ _ __ | |__   ___ | |_
/ __\ \ /\ / / _' | '_ \| '_ \ / _ \| __|
\__ \\ V  V / (_| | |_) | |_) | (_) | |_
|___/ \_/\_/ \__,_| .__/|_.__/ \___/ \__|
                  |_|
`

// getConfigPath returns the path to the swapbot config file.
// Priority: SWAPBOT_CONFIG env var > XDG_CONFIG_HOME/swapbot/config.yaml > ~/.config/swapbot/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SWAPBOT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "swapbot", "config.yaml")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Aggregator: %s\n", cfg.Aggregator.BaseURL)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver: %s\n", cfg.Matrix.Homeserver)
	fmt.Println()

	logger.Info("starting swapbot",
		"config", configPath,
		"aggregator", cfg.Aggregator.BaseURL,
		"homeserver", cfg.Matrix.Homeserver,
	)

	store, err := session.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer store.Close()

	aggregator := route.NewClient(cfg.Aggregator.BaseURL, cfg.Aggregator.Timeout, logger)

	registry := token.NewRegistry(aggregator, logger)
	if err := registry.Refresh(ctx); err != nil {
		// The bot can start without a token list; it fills in on the
		// next refresh tick.
		logger.Warn("initial token refresh failed", "error", err)
	}
	go registry.Run(ctx, cfg.Aggregator.TokenRefresh)

	catalog, err := wallet.LoadCatalog(cfg.Wallet.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading wallet catalog: %w", err)
	}

	bridge := wallet.NewBridgeClient(cfg.Wallet.BaseURL, cfg.Wallet.ManifestURL, cfg.Aggregator.Timeout, logger)
	go bridge.Run(ctx)

	var extractor intent.Extractor
	switch cfg.Intent.Mode {
	case "http":
		extractor = intent.NewHTTPExtractor(cfg.Intent.URL, cfg.Intent.Timeout, logger)
	default:
		extractor = intent.NewPatternExtractor()
	}

	machine := swap.NewMachine(registry, aggregator, bridge, catalog, extractor, swap.Config{
		TransactionValidity: cfg.Aggregator.TransactionValidity,
		MEVProtection:       cfg.Aggregator.MEVProtection,
	}, logger)

	frontend, err := matrix.New(matrix.Config{
		Homeserver:      cfg.Matrix.Homeserver,
		UserID:          cfg.Matrix.UserID,
		AccessToken:     cfg.Matrix.AccessToken,
		CommandPrefix:   cfg.Matrix.CommandPrefix,
		AllowedUsers:    cfg.Matrix.AllowedUsers,
		TypingIndicator: cfg.Matrix.TypingIndicator,
		DedupeTTL:       cfg.Matrix.DedupeTTL,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating matrix frontend: %w", err)
	}

	dispatcher := swap.NewDispatcher(machine, store, frontend, logger)
	frontend.AttachSink(dispatcher)
	go dispatcher.Run(ctx, bridge.Events())

	return frontend.Run(ctx)
}
