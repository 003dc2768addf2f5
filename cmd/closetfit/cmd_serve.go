package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"closetfit/internal/adapters/httpapi"
	"closetfit/internal/blob"
	"closetfit/internal/core"
	"closetfit/internal/logging"
	"closetfit/internal/metrics"
	"closetfit/internal/session"
)

var serveFlags struct {
	addr          string
	reapInterval  time.Duration
	shutdownGrace time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP composition service",
	Long: `Starts the HTTP API. Each composition session runs on its own event loop;
idle sessions are closed after the configured idle limit. Prometheus metrics are
served on /metrics and expvar operation stats on /debug/vars.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", "", "listen address (overrides http.addr)")
	f.DurationVar(&serveFlags.reapInterval, "reap-interval", time.Minute, "how often idle sessions are checked")
	f.DurationVar(&serveFlags.shutdownGrace, "shutdown-grace", 10*time.Second, "time allowed for in-flight requests on shutdown")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	logger := logging.New("serve")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom, err := metrics.NewPrometheusRecorder(reg)
	if err != nil {
		return err
	}
	stats := core.NewExpvarRecorder("closetfit_composer")

	sessions := session.NewRegistry(a.catalog,
		session.WithIdleLimit(a.cfg.Session.IdleLimit),
		session.WithGauge(prom),
		session.WithComposerOptions(a.composerOptions(
			core.WithMetricsRecorder(core.Recorders{prom, stats}),
		)...),
	)

	h := httpapi.NewHandler(sessions, a.catalog)
	h.Exports = blob.NewArchive(a.blobs)
	h.Metrics = metrics.Handler(reg)
	router := h.Router()
	router.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	addr := a.cfg.HTTP.Addr
	if serveFlags.addr != "" {
		addr = serveFlags.addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sessions.Run(gctx, serveFlags.reapInterval)
	})
	g.Go(func() error {
		logger.Info("listening", "addr", addr, "catalog", a.cfg.Catalog.Driver, "blob", a.blobs.Driver())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serveFlags.shutdownGrace)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
