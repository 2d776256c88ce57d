// Package cli implements the arcmini command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/Astrrra/arcmini/internal/config"
	"github.com/Astrrra/arcmini/internal/logging"
)

var (
	cfgFile    string
	logLevel   string
	dbPath     string
	jsonOutput bool

	appConfig *config.Config
	logCloser = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "arcmini",
	Short: "Browse your recorded location timeline",
	Long: `arcmini shows recorded visits and paths one day at a time, with a map
panel that follows the rows on screen.

Without a subcommand it opens the TUI, or prints today's list when stdout
is not a terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logCloser()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if hasTTY() {
			return runTUI(cmd.Context())
		}
		return runList(cmd.Context(), cmd.OutOrStdout(), "")
	},
}

func init() {
	// Assigned here: initConfig refers back to rootCmd.
	rootCmd.PersistentPreRunE = initConfig

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/arcmini/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "timeline database (default is <data_dir>/arcmini.db)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print machine-readable JSON")
}

// Execute runs the root command.
func Execute(ctx context.Context, version string) error {
	rootCmd.Version = version
	return rootCmd.ExecuteContext(ctx)
}

// GetConfig returns the configuration loaded for the running command.
func GetConfig() *config.Config {
	return appConfig
}

// IsJSONOutput reports whether --json was given.
func IsJSONOutput() bool {
	return jsonOutput
}

func initConfig(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}
	if logLevel != "" {
		loader.Set("logging.level", logLevel)
	}
	if dbPath != "" {
		loader.Set("database.path", dbPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	// The alt screen owns the terminal while the TUI runs.
	logFile := cfg.Logging.File
	if isTUICommand(cmd) {
		logFile = cfg.LogPath()
	}
	closer, err := logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cmd.ErrOrStderr(),
		File:         logFile,
		EnableCaller: cfg.Logging.EnableCaller,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logCloser = closer

	if used := loader.ConfigFileUsed(); used != "" {
		logger := logging.Component("cli")
		logger.Debug().Str("config_file", used).Msg("loaded config file")
	}
	appConfig = cfg
	return nil
}

func isTUICommand(cmd *cobra.Command) bool {
	return cmd == uiCmd || (cmd == rootCmd && hasTTY())
}

// WriteOutput writes v as indented JSON.
func WriteOutput(out io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if _, err := out.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// PreflightError is a usage problem with a suggested fix.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string
}

func (e *PreflightError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\nhint: " + e.Hint
	}
	if e.NextStep != "" {
		msg += "\ntry: " + e.NextStep
	}
	return msg
}

var errConfigNotLoaded = errors.New("configuration not loaded")
