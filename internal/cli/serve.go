package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/fmuoria/doc-compare-agent/internal/api"
	"github.com/fmuoria/doc-compare-agent/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	addr      string
	ruleBased bool
}

func newServeCmd(st *state) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP comparison API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), st, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.addr, "addr", "", "Listen address (overrides config addr)")
	flags.BoolVar(&f.ruleBased, "rule-based", false, "Serve rule-based comparisons without an AI provider")

	return cmd
}

func runServe(ctx context.Context, st *state, f *serveFlags) error {
	if f.addr != "" {
		st.cfg.Addr = f.addr
	}

	m := metrics.NewManager()
	c, err := st.components(ctx, f.ruleBased, m)
	if err != nil {
		return err
	}
	defer c.Close()

	server := api.NewServer(api.Options{
		Comparer:       c.Service,
		Deployments:    c.Deployments,
		Metrics:        m,
		Logger:         st.logger.With(slog.String("component", "api")),
		MaxUploadBytes: st.cfg.MaxUploadBytes,
	})

	httpServer := &http.Server{
		Addr:              st.cfg.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		st.logger.Info("starting document comparison agent",
			slog.String("addr", st.cfg.Addr),
			slog.Bool("ai_enabled", c.Service.HasAnalyzer()),
			slog.String("fallback", string(st.cfg.FallbackPolicy())))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return exitError(1, "server failed to start: %v", err)
	case <-ctx.Done():
	}

	st.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
