// deskbook books WeWork desks by driving the Android app through Appium. It
// runs as an MCP server for assistants and as a plain CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devender15/wework-claude-mcp-integration/pkg/app"
	"github.com/devender15/wework-claude-mcp-integration/pkg/config"
	"github.com/devender15/wework-claude-mcp-integration/pkg/logging"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	// Global flags
	configFile string
	dryRun     bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deskbook",
		Short: "Book WeWork desks through the Android app",
		Long: `deskbook drives the WeWork app on an attached Android device through an
Appium (UiAutomator2) server to book desks for a list of dates.

Run "deskbook serve" to expose the wework_book_desks tool over MCP on stdio,
or use "deskbook book" directly from a terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: ./deskbook.yaml or ~/.config/deskbook/deskbook.yaml)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Walk the booking flow but stop before the confirmation swipe")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(bookCmd())
	rootCmd.AddCommand(devicesCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

// loadConfig reads configuration and applies global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if dryRun {
		cfg.Booking.DryRun = true
	}
	return cfg, nil
}

// loadApp wires the service. Callers must Close the app and Sync the logger.
func loadApp(ctx context.Context) (*app.App, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Source != "" {
		logger.Debug("loaded config", zap.String("path", cfg.Source))
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Sync()
		return nil, nil, err
	}
	return a, logger, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "deskbook %s\n", version)
		},
	}
}
