// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the curator CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/music-curator/internal/logging"
	"github.com/pdiddy/music-curator/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the resolved configuration, populated before any subcommand runs.
	cfg types.Config

	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "Find musical artists and index their albums and songs",
	Long: `curator finds musical artists by name and indexes the reference pages
that describe them. Search resolves a possibly misspelled name against
Wikidata with fuzzy matching and confidence scores; index gathers an
artist's Wikipedia profile and album/song pages and extracts the releases
they mention.

Settings come from flags, CURATOR_* environment variables (a .env file is
honoured), curator.yaml, and built-in defaults, in that order. API keys for
the optional web-search fallback are read from .secrets/.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = c

		l, err := logging.New(cfg.Logging, os.Stderr)
		if err != nil {
			return err
		}
		logger = l
		if f := configFileUsed(); f != "" {
			logger.Debug("using config file", "path", f)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logger == nil {
			return nil
		}
		return logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./curator.yaml or ~/.config/curator/curator.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of API key files")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
