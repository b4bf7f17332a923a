package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"idgov/internal/bootstrap"
	ingestionhandler "idgov/internal/ingestion/handler"
	ingestionmetrics "idgov/internal/ingestion/metrics"
	ingestionservice "idgov/internal/ingestion/service"
	"idgov/internal/platform/config"
	"idgov/internal/platform/httpserver"
	"idgov/internal/platform/logger"
	"idgov/internal/platform/metrics"
	"idgov/internal/platform/middleware"
	platformredis "idgov/internal/platform/redis"
	"idgov/internal/reconciliation/cache"
	reconciliationhandler "idgov/internal/reconciliation/handler"
	reconciliationmetrics "idgov/internal/reconciliation/metrics"
	reconciliationservice "idgov/internal/reconciliation/service"
	"idgov/pkg/platform/httputil"
	"idgov/pkg/platform/middleware/metadata"
	"idgov/pkg/platform/middleware/requesttime"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
	requestTimeout  = 30 * time.Second
	readyTimeout    = 2 * time.Second
)

// main wires configuration, infrastructure and services, then serves HTTP
// until SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	stores, err := bootstrap.OpenStores(startCtx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	redisClient, err := platformredis.New(startCtx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	publisher, err := bootstrap.OpenPublisher(startCtx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	reconOpts := []reconciliationservice.Option{
		reconciliationservice.WithLogger(log),
		reconciliationservice.WithMetrics(reconciliationmetrics.New()),
		reconciliationservice.WithCurrencyLocale(cfg.Dashboard.CurrencyLocale),
	}
	if redisClient != nil {
		reconOpts = append(reconOpts, reconciliationservice.WithCache(cache.NewRedis(redisClient.Client, cfg.Dashboard.CacheTTL)))
	} else {
		log.Info("dashboard cache disabled: no redis configured")
	}
	reconciliation, err := reconciliationservice.New(stores.Identities, reconOpts...)
	if err != nil {
		return err
	}

	ingestion, err := ingestionservice.New(stores.Identities, stores.Runs,
		ingestionservice.WithLogger(log),
		ingestionservice.WithMetrics(ingestionmetrics.New()),
		ingestionservice.WithPublisher(publisher),
		ingestionservice.WithMaxBytes(cfg.Ingestion.MaxUploadBytes),
	)
	if err != nil {
		return err
	}
	if cfg.Server.AdminAPIToken == "" {
		log.Warn("ADMIN_API_TOKEN is not set: import endpoints will reject every request")
	}

	deps := map[string]bootstrap.Pinger{"identity_store": stores.Identities}
	if redisClient != nil {
		deps["redis"] = bootstrap.PingFunc(redisClient.Health)
	}

	platformMetrics := metrics.New()
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log, platformMetrics))
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Logger(log))
	r.Use(middleware.LatencyMiddleware(platformMetrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(log, deps))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		reconciliationhandler.New(reconciliation, log).Register(r)
		ingestionhandler.New(ingestion, log, cfg.Server.AdminAPIToken, cfg.Ingestion.MaxUploadBytes).Register(r)
	})

	srv := httpserver.New(cfg.Server.Addr, r, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting idgov", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func readyHandler(log *slog.Logger, deps map[string]bootstrap.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := bootstrap.Ready(ctx, deps); err != nil {
			log.WarnContext(ctx, "readiness check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
