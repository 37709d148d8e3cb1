package main

import (
	"fmt"
	"os"

	"github.com/Sternrassler/movie-catalog/internal/config"
	"github.com/Sternrassler/movie-catalog/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	prettyLog bool

	cfgManager *config.Manager
)

var rootCmd = &cobra.Command{
	Use:   "movies",
	Short: "Browse and search a TMDB-compatible movie catalog",
	Long: `movies talks to a TMDB-compatible catalog API.

It pages through the top rated listing two pages at a time, searches by
title, shows movie details and keeps a list of favorites (in Redis when
redis.addr is configured).

Configuration is read from ./config.yaml or ~/.movies/config.yaml and can
be overridden with MOVIES_* environment variables, e.g. MOVIES_API_TOKEN.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.movies/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level override: debug, info, warn, error, disabled",
	)
	rootCmd.PersistentFlags().BoolVar(
		&prettyLog, "pretty", false, "human-readable log output",
	)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return err
	}
	cfgManager = mgr

	cfg := mgr.Get()
	if logLevel != "" {
		level, ok := logging.ParseLevel(logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q", logLevel)
		}
		cfg.Log.Level = string(level)
	}
	if prettyLog {
		cfg.Log.Pretty = true
	}
	logging.Setup(cfg.LoggerConfig(os.Stderr))
	return nil
}
