package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	sghttp "github.com/kestrelops/sigmagate/internal/adapter/http"
	"github.com/kestrelops/sigmagate/internal/adapter/jsonl"
	sgnats "github.com/kestrelops/sigmagate/internal/adapter/nats"
	sgotel "github.com/kestrelops/sigmagate/internal/adapter/otel"
	"github.com/kestrelops/sigmagate/internal/adapter/postgres"
	"github.com/kestrelops/sigmagate/internal/adapter/ristretto"
	"github.com/kestrelops/sigmagate/internal/adapter/ws"
	"github.com/kestrelops/sigmagate/internal/config"
	"github.com/kestrelops/sigmagate/internal/domain/gate"
	"github.com/kestrelops/sigmagate/internal/logger"
	"github.com/kestrelops/sigmagate/internal/port/decisionlog"
	"github.com/kestrelops/sigmagate/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"threshold", cfg.Gate.Threshold,
		"ask_band", cfg.Gate.AskBand,
		"postgres", cfg.Postgres.Enabled,
		"nats", cfg.NATS.Enabled,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownOtel, err := sgotel.Init(ctx, cfg.Logging.Service, cfg.Gate.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOtel(shutdownCtx)
	}()

	metrics, err := sgotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Decision sinks ---
	var sinks decisionlog.Multi
	var store sghttp.RecordReader

	if cfg.Gate.LogFile != "" {
		sinks = append(sinks, jsonl.New(cfg.Gate.LogFile))
	}

	if cfg.Postgres.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		slog.Info("postgres connected")

		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")

		ds := postgres.NewDecisionStore(pool)
		sinks = append(sinks, ds)
		store = ds
	}

	if cfg.NATS.Enabled {
		pub, err := sgnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = pub.Close() }()
		sinks = append(sinks, pub)
	}

	// --- Services ---
	cache, err := ristretto.New(cfg.Cache.MaxRecords, cfg.Cache.TTL)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	hub := ws.NewHub()
	gateSvc := service.NewGateService(gateOptions(cfg.Gate), sinks, hub, metrics)

	handlers := &sghttp.Handlers{
		Gate:  gateSvc,
		Store: store,
		Cache: cache,
	}

	// --- HTTP ---
	r := chi.NewRouter()

	r.Use(sghttp.CORS(cfg.Server.CORSOrigin))
	r.Use(sghttp.Logger)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", healthHandler(cfg))
	r.Get("/ws", hub.HandleWS)

	var limiter *sghttp.RateLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = sghttp.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		stopCleanup := limiter.StartCleanup(time.Minute, 10*time.Minute)
		defer stopCleanup()
	}

	sghttp.MountRoutes(r, handlers, limiter)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(r, "sigmagate"),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// gateOptions maps gate configuration onto the domain options struct.
func gateOptions(cfg config.Gate) gate.Options {
	return gate.Options{
		Threshold:          cfg.Threshold,
		AskBand:            cfg.AskBand,
		CriticalValidators: cfg.CriticalValidators,
		AblatePreview:      cfg.AblateNoPreview,
		AblateValidators:   cfg.AblateNoValidators,
		AblateGate:         cfg.AblateNoGate,
	}
}

// healthHandler returns an http.HandlerFunc that reports service health.
func healthHandler(cfg *config.Config) http.HandlerFunc {
	type healthStatus struct {
		Status   string  `json:"status"`
		Postgres bool    `json:"postgres"`
		NATS     bool    `json:"nats"`
		Tau      float64 `json:"threshold"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		status := healthStatus{
			Status:   "ok",
			Postgres: cfg.Postgres.Enabled,
			NATS:     cfg.NATS.Enabled,
			Tau:      cfg.Gate.Threshold,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
