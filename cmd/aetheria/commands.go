package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/stevechen1112/aetheria/internal/agent"
	"github.com/stevechen1112/aetheria/internal/config"
	"github.com/stevechen1112/aetheria/internal/gateway"
	"github.com/stevechen1112/aetheria/internal/llm"
	"github.com/stevechen1112/aetheria/internal/memory"
	"github.com/stevechen1112/aetheria/internal/observability"
	"github.com/stevechen1112/aetheria/internal/safety"
	"github.com/stevechen1112/aetheria/internal/store"
	"github.com/stevechen1112/aetheria/internal/tools"
	"github.com/stevechen1112/aetheria/internal/tools/divination"
	"github.com/stevechen1112/aetheria/internal/tools/location"
	"github.com/stevechen1112/aetheria/internal/tools/profiletools"
)

func buildServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the advisory gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "aetheria.yaml", "Path to configuration file")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	provider, err := openProvider(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg, st, logger, metrics)
	if err != nil {
		return err
	}

	mem := memory.NewManager(st, provider, logger, metrics,
		memory.WithWindow(cfg.Agent.WindowThreshold, cfg.Agent.WindowKeep))
	loop := agent.New(st, provider, registry, mem, safety.New(), logger, metrics, cfg.Agent)

	srv := gateway.New(cfg.Server.Addr, loop, st, gateway.NewAuthenticator(cfg.Server.AuthSecret), logger)
	if err := srv.Start(); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case sig := <-stop:
		logger.Info(ctx, "shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		st, err := store.NewSQLiteStore(cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return st, nil
	}
}

func openProvider(ctx context.Context, cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) (llm.Provider, error) {
	switch cfg.LM.Provider {
	case "openai":
		return llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:         cfg.LM.APIKey,
			ModelFast:      cfg.LM.ModelFast,
			ModelStrong:    cfg.LM.ModelStrong,
			MaxRetries:     cfg.LM.MaxRetries,
			AttemptTimeout: cfg.LM.AttemptTimeout,
			Metrics:        metrics,
		})
	default:
		return llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey:         cfg.LM.APIKey,
			ModelFast:      cfg.LM.ModelFast,
			ModelStrong:    cfg.LM.ModelStrong,
			MaxRetries:     cfg.LM.MaxRetries,
			AttemptTimeout: cfg.LM.AttemptTimeout,
			Logger:         logger,
			Metrics:        metrics,
		})
	}
}

func buildRegistry(cfg *config.Config, st store.Store, logger *observability.Logger, metrics *observability.Metrics) (*tools.Registry, error) {
	registry := tools.NewRegistry(
		tools.WithTimeout(cfg.Agent.ToolTimeout),
		tools.WithDisabled(cfg.Tools.Disabled),
		tools.WithObservability(logger, metrics),
	)
	if err := divination.Register(registry); err != nil {
		return nil, fmt.Errorf("register calculators: %w", err)
	}
	if err := location.Register(registry); err != nil {
		return nil, fmt.Errorf("register location: %w", err)
	}
	if err := profiletools.Register(registry, st); err != nil {
		return nil, fmt.Errorf("register profile tools: %w", err)
	}
	return registry, nil
}

// buildToolsCmd lists the tool catalogue, mainly for debugging prompt and
// schema changes.
func buildToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the registered tool catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := tools.NewRegistry()
			if err := divination.Register(registry); err != nil {
				return err
			}
			if err := location.Register(registry); err != nil {
				return err
			}
			if err := profiletools.Register(registry, store.NewMemoryStore()); err != nil {
				return err
			}
			for _, d := range registry.List() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", d.Name, d.Description)
			}
			return nil
		},
	}
}
