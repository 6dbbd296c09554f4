// Package main is the CLI entry point for the Aetheria advisory service.
//
// Start the server:
//
//	aetheria serve --config aetheria.yaml
//
// The LM API key can also come from the environment via ${GEMINI_API_KEY}
// or ${OPENAI_API_KEY} references in the config file.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aetheria",
		Short: "Aetheria - conversational divination advisory service",
		Long: `Aetheria is a Traditional Chinese conversational advisory service built
around a bounded tool-use loop: ziwei, bazi, western astrology, tarot,
numerology and nameology calculators, three-layer user memory, and a
leakage-proof streaming pipeline.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildToolsCmd(),
		buildVersionCmd(),
	)
	return rootCmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aetheria %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
