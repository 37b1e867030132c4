package cmd

import (
	"os"

	"example.com/backstage/services/laundry/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "laundry",
	Short: "Laundry service",
	Long: `Laundry service backend.

Commands:
- api: HTTP API for orders, scheduling, routes and delivery tracking
- worker: event consumer, search reconciliation and pending request refresh
- migrate: database migrations
- progress-reset: drop stored item progress
- token, login, logout, whoami, track: operator and client tooling`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml, then ./app.env)")
}

// loadConfig reads the configuration and applies its logging settings
func loadConfig() (config.Config, error) {
	if cfgFile != "" {
		config.SetConfigFile(cfgFile)
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return config.Config{}, err
	}

	configureLogging(cfg.Logging)
	return cfg, nil
}

func configureLogging(cfg config.LoggingConfig) {
	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// LOG_LEVEL set in main wins over the config file
	if os.Getenv("LOG_LEVEL") != "" {
		return
	}
	if level, err := zerolog.ParseLevel(cfg.Level); err == nil && cfg.Level != "" {
		zerolog.SetGlobalLevel(level)
	}
}
