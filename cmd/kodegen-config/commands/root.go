// Package commands provides the CLI commands for kodegen-config.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cyrup-ai/kodegen-tools-config/internal/config"
	"github.com/cyrup-ai/kodegen-tools-config/internal/logging"
	"github.com/cyrup-ai/kodegen-tools-config/internal/persist"
	"github.com/cyrup-ai/kodegen-tools-config/internal/sysinfo"
)

// BuildTime is set at build time.
var BuildTime = "dev"

// Global flags
var (
	printLogs  bool
	logLevel   string
	configPath string
	envFile    string
	debounce   time.Duration
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "kodegen-config",
	Short: "kodegen-config - configuration service for kodegen tools",
	Long: `kodegen-config owns the kodegen server settings: blocked commands,
allowed and denied directories, shell and resource limits, and the
history of connected clients.

Run 'kodegen-config serve' for the HTTP API, 'kodegen-config stdio' to
serve the MCP tools over stdin/stdout, or use get/set to edit the file.`,
	Version:           sysinfo.Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print human-readable logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR|OFF)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default $KODEGEN_CONFIG_PATH or ~/.kodegen/config.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file (default .env if present)")
	rootCmd.PersistentFlags().DurationVar(&debounce, "debounce", persist.DefaultDebounce, "Quiet period before a background save")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("kodegen-config %s (%s)\n", sysinfo.Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stdioCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(clientsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads the env file and configures logging before any subcommand.
func setup(cmd *cobra.Command, args []string) error {
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  logging.ParseLevel(logLevel),
		Output: os.Stderr,
		Pretty: printLogs,
	})

	if noColor {
		color.NoColor = true
	}
	return nil
}

// loadEnvFile loads path, or .env when path is empty and the file exists.
// Variables already set in the environment win.
func loadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// openManager creates and initializes the config manager from global flags.
func openManager(ctx context.Context, extra ...config.Option) (*config.Manager, error) {
	opts := []config.Option{config.WithDebounce(debounce)}
	if configPath != "" {
		opts = append(opts, config.WithPath(configPath))
	}
	opts = append(opts, extra...)

	m := config.NewManager(opts...)
	if err := m.Init(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}
	return m, nil
}

// closeManager flushes pending saves with a bounded wait.
func closeManager(m *config.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Close(ctx); err != nil {
		logging.Warn().Err(err).Msg("config flush did not complete")
	}
}
