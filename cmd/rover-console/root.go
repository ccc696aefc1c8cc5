package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"rover-console/internal/config"
	"rover-console/internal/logging"
)

var (
	configPath string
	schemaPath string
	apiURL     string
	roverID    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "rover-console",
	Short:         "Operator console for a rescue rover",
	Long:          "rover-console polls a rover's telemetry, renders it and sends movement commands.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to console configuration YAML (default "+config.DefaultPath+")")
	pf.StringVar(&schemaPath, "schema", "", "Path to a CUE schema overriding the embedded one")
	pf.StringVar(&apiURL, "api", "", "Rover API base URL")
	pf.StringVar(&roverID, "rover-id", "", "Rover identifier used in recordings")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(watchCmd, statusCmd, sendCmd, probeCmd, replayCmd, dashboardCmd)
}

// loadConfig reads the config file and applies flag overrides on top of the
// file and environment values.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath, schemaPath)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.RoverAPIURL = apiURL
	}
	if roverID != "" {
		cfg.RoverID = roverID
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger. When the terminal belongs to the TUI
// and no log file is configured, logs go to fallbackFile.
func newLogger(cfg *config.Config, w io.Writer, fallbackFile string) (*slog.Logger, io.Closer, error) {
	opts := logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
		Writer: w,
	}
	if opts.File == "" {
		opts.File = fallbackFile
	}
	return logging.New(opts)
}
