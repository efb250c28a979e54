package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/axellelanca/linkstats/internal/config"
	"github.com/axellelanca/linkstats/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Cfg is the global variable that will contain the loaded configuration.
// It is set before any command runs and is nil if loading failed.
var Cfg *config.Config

// RootCmd is the base command for the CLI application.
// The other commands (run-server, migrate, create, list, stats) register themselves in their init().
var RootCmd = &cobra.Command{
	Use:   "linkstats",
	Short: "A URL shortener with per-owner visit analytics",
	Long: `linkstats shortens URLs for authenticated owners, redirects visitors
and reports unique views, total views, browsers and operating systems per link.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the Cobra application.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

// initConfig charge .env, la configuration puis le logger, avant chaque commande.
func initConfig() {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env file not found, relying on env vars", "err", err)
	}

	var err error
	Cfg, err = config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		return
	}

	logger.Init(logger.Config{
		Level:      Cfg.Log.Level,
		Format:     Cfg.Log.Format,
		Output:     Cfg.Log.Output,
		MaxSizeMB:  Cfg.Log.MaxSizeMB,
		MaxBackups: Cfg.Log.MaxBackups,
		MaxAgeDays: Cfg.Log.MaxAgeDays,
		Env:        Cfg.Sentry.Environment,
	})
}

// Config returns the loaded configuration, or an error when loading failed.
func Config() (*config.Config, error) {
	if Cfg == nil {
		return nil, fmt.Errorf("configuration not loaded, see the log above")
	}
	return Cfg, nil
}
