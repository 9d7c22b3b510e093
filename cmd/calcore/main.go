package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/atelierops/calcore/calendar"
	"github.com/atelierops/calcore/config"
	"github.com/atelierops/calcore/server"
	"github.com/atelierops/calcore/storage/sqlite"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "calcore",
		Short: "Calendar query and recurrence-expansion service",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "calcore.yaml", "config file path")
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the calendar HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger := newLogger(cfg.LogLevel)
			slog.SetDefault(logger)

			store, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			access := calendar.NewTeamAccessPolicy(store)
			engine := calendar.NewEngine(store, store, access, logger)
			srv := server.New(engine, store, store, access, logger)
			srv.DefaultPageLimit = cfg.PageLimit

			logger.Info("listening", "addr", cfg.Listen, "database", cfg.DatabasePath)
			return http.ListenAndServe(cfg.Listen, srv)
		},
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
