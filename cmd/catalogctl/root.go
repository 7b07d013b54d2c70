package main

import (
	"fmt"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/catalogmatch/backend/config"
	"github.com/catalogmatch/backend/internal/infrastructure/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Manage the catalogmatch catalog",
	Long: `catalogctl loads catalog items into the configured store, publishes catalog
changes to running servers and rebuilds item embeddings.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig reads the config file given by --config, or the default search path
func loadConfig() (*config.Config, zerolog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger := logging.New(logging.Config{
		Level:       level,
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: "catalogctl",
	})
	return cfg, logger, nil
}

func connectNATS(cfg *config.Config) (*nats.Conn, error) {
	if cfg.Events.NatsURL == "" {
		return nil, fmt.Errorf("events.nats_url is not configured")
	}
	nc, err := nats.Connect(cfg.Events.NatsURL, nats.Name("catalogctl"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}
