package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/waypoint/internal/mcp"
	"github.com/lazypower/waypoint/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:37780)")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	embedMissing(ctx, a)

	srv := server.New(server.Deps{
		DB:        a.db,
		Engine:    a.engine,
		Decisions: a.decisions,
		Planner:   a.planner,
		Metrics:   a.metrics,
		Logger:    a.logger,
	}, VersionString())
	if addr == "" {
		addr = a.cfg.ListenAddr()
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("waypoint serving", "addr", addr, "db", a.db.Path,
			"llm", a.cfg.LLM.Provider, "generation", a.decisions.LLM != nil)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// embedMissing backfills vectors for memories stored without one, in the
// background.
func embedMissing(ctx context.Context, a *app) {
	if a.engine.Embedder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if n, err := a.engine.EmbedMissing(ctx); err != nil {
			a.logger.Warn("embed missing", "error", err)
		} else if n > 0 {
			a.logger.Info("embedded missing memories", "count", n)
		}
	}()
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve waypoint tools to an agent over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			embedMissing(cmd.Context(), a)
			s := mcp.New(mcp.Deps{
				Engine:    a.engine,
				Decisions: a.decisions,
				Planner:   a.planner,
				Logger:    a.logger,
			}, VersionString())
			return mcp.Serve(s)
		},
	}
}
