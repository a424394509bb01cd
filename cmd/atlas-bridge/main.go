package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sonicframe/atlas-bridge/internal/bridge"
	"github.com/sonicframe/atlas-bridge/internal/config"
	"github.com/sonicframe/atlas-bridge/internal/intent"
	"github.com/sonicframe/atlas-bridge/internal/perception"
	"github.com/sonicframe/atlas-bridge/internal/registry"
	"github.com/sonicframe/atlas-bridge/internal/signature"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "atlas-bridge",
		Short: "atlas-bridge — live UI entity registry for orchestrating agents",
		Long:  "atlas-bridge catalogs live UI elements so a coordinating agent can enumerate, query, and invoke capabilities on them without direct references to their implementations.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		mcpCmd(),
		demoCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newStack wires the registry, perceiver, and executor from config.
// The returned cleanup detaches subscriptions.
func newStack(logger *slog.Logger) (*registry.Registry, *perception.Perceiver, *bridge.Executor, func()) {
	signer := signature.NewGenerator(cfg.Registry.SignatureSeed)
	reg := registry.New(signer, logger)

	weights := perception.Weights{
		NameMatch:       cfg.Relevance.NameMatch,
		CategoryMention: cfg.Relevance.CategoryMention,
		CapabilityMatch: cfg.Relevance.CapabilityMatch,
		CriticalBonus:   cfg.Relevance.CriticalBonus,
		HighBonus:       cfg.Relevance.HighBonus,
		Interaction:     cfg.Relevance.Interaction,
	}
	perc, unsubPerc := perception.NewPerceiver(reg, weights, logger)

	if cfg.Claude.APIKey != "" {
		perc.UseTranslator(intent.NewTranslator(cfg.Claude.APIKey, cfg.Claude.Model, logger))
	} else {
		logger.Info("no Claude API key configured; query translation uses keyword heuristics only")
	}

	exec := bridge.NewExecutor(reg, cfg.Registry.ActiveReset(), logger)

	cleanup := func() {
		exec.Close()
		unsubPerc()
	}
	return reg, perc, exec, cleanup
}
