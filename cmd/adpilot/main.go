package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/harunaga/adpilot/internal/config"
)

const (
	appName = "adpilot"
	version = "v1.4.0"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Automated advertising control plane for marketplace ad campaigns",
		Version: version,
		Long: `adpilot pulls campaign snapshots from the warehouse, runs the bid,
budget, lifecycle and negative-keyword engines, persists every decision,
and (when explicitly enabled) streams the changes to the ad platform.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to adpilot.yaml")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newRunCmd(&configPath),
		newBacktestCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger honors the configured level and switches to the console writer
// on a TTY.
func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}
