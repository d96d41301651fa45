package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/docsmith/internal/api"
	"github.com/HendryAvila/docsmith/internal/artifacts"
	"github.com/HendryAvila/docsmith/internal/config"
	"github.com/HendryAvila/docsmith/internal/observability"
	"github.com/HendryAvila/docsmith/internal/server"
)

const shutdownTimeout = 10 * time.Second

// runStdio serves MCP on stdin/stdout until the client disconnects or ctx
// is canceled. Artifacts are swept in the background meanwhile.
func runStdio(ctx context.Context, cfg config.Config) error {
	c, cleanup, err := server.New(cfg, nil)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go artifacts.NewSweeper(c.Artifacts, cfg.SweepInterval.Std()).Run(ctx)

	stdio := mcpserver.NewStdioServer(c.MCP)
	slog.Info("docsmith serving MCP on stdio", "version", server.Version, "data_dir", cfg.DataDir)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func newHTTPCmd() *cobra.Command {
	var addr, publicURL string
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the REST API, MCP streamable HTTP on /mcp and metrics on /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.HTTPAddr = addr
			}
			if cmd.Flags().Changed("public-url") {
				cfg.PublicBaseURL = publicURL
			}
			return runHTTP(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: $DOCSMITH_HTTP_ADDR or :8787)")
	cmd.Flags().StringVar(&publicURL, "public-url", "", "Base URL prefixed to download links")
	return cmd
}

// runHTTP runs the HTTP server and the artifact sweeper until ctx is
// canceled, then shuts the server down gracefully.
func runHTTP(ctx context.Context, cfg config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c, cleanup, err := server.New(cfg, reg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	router := api.NewRouter(
		api.NewHandlers(c.Editor),
		mcpserver.NewStreamableHTTPServer(c.MCP),
		observability.Handler(reg),
	)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweeper := artifacts.NewSweeper(c.Artifacts, cfg.SweepInterval.Std())
	sweeper.OnSweep = c.Metrics.ObserveSweep

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("docsmith listening", "addr", cfg.HTTPAddr, "version", server.Version, "data_dir", cfg.DataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
