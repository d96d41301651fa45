// docsmith: document editing MCP server.
//
// Upload a Word or plain-text document, get location-addressed suggestions
// for a free-text request, apply the ones you accept and download the
// modified copy. Served over MCP stdio, or over HTTP as a REST API plus
// the MCP streamable HTTP transport.
//
// Usage:
//
//	docsmith serve     # MCP over stdio
//	docsmith http      # REST API, /mcp and /metrics
//	docsmith update    # Update to the latest release
//	docsmith version
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/docsmith/internal/config"
	"github.com/HendryAvila/docsmith/internal/server"
	"github.com/HendryAvila/docsmith/internal/updater"
)

var (
	configPath string
	dataDir    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "docsmith",
	Short:         "Document editing MCP server",
	Long:          "Upload .docx or text documents, review suggested edits, apply the ones you accept and download the result.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.docsmith/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default: $DOCSMITH_DATA_DIR or ~/.docsmith)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default: $DOCSMITH_LOG_LEVEL or info)")

	rootCmd.AddCommand(newServeCmd(), newHTTPCmd(), newUpdateCmd(), newVersionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves defaults, file, environment and flags, in that order,
// and installs the stderr logger.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg.ApplyEnv(os.Getenv)
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}

	// stdout belongs to the MCP stdio transport.
	level, _ := config.ParseLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	var noUpdateCheck bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !noUpdateCheck {
				go checkForUpdates(cmd.Context())
			}
			return runStdio(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&noUpdateCheck, "no-update-check", false, "Skip the background release check")
	return cmd
}

func newVersionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "docsmith v%s\n", server.Version)
			if !check {
				return nil
			}
			res, err := updater.NewChecker("", nil).Check(cmd.Context(), server.Version)
			if err != nil {
				return fmt.Errorf("checking for updates: %w", err)
			}
			if res.UpdateAvailable {
				fmt.Fprintf(cmd.OutOrStdout(), "Update available: v%s (%s)\n", res.Latest, res.ReleaseURL)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Up to date")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Also check GitHub for a newer release")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update docsmith to the latest release",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("finding current executable: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Checking for updates...")
			res, err := updater.NewChecker("", &http.Client{Timeout: 2 * time.Minute}).Update(cmd.Context(), server.Version, exe)
			switch {
			case errors.Is(err, updater.ErrUpToDate):
				fmt.Fprintf(out, "Already at the latest version (v%s)\n", res.Current)
				return nil
			case err != nil:
				if res.ReleaseURL != "" {
					fmt.Fprintf(out, "You can download manually from %s\n", res.ReleaseURL)
				}
				return fmt.Errorf("update failed: %w", err)
			}
			fmt.Fprintf(out, "Updated v%s -> v%s. Restart docsmith to use it.\n", res.Current, res.Latest)
			return nil
		},
	}
}

// checkForUpdates logs a notice when a newer release exists. Failures are
// ignored; this runs in the background of serve.
func checkForUpdates(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	res, err := updater.NewChecker("", nil).Check(ctx, server.Version)
	if err != nil {
		slog.Debug("update check failed", "error", err)
		return
	}
	if res.UpdateAvailable {
		slog.Info("update available", "current", res.Current, "latest", res.Latest, "run", "docsmith update")
	}
}
