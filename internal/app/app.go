package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/order-service/internal/domain/order"
	"github.com/xenking/order-service/internal/handler"
	"github.com/xenking/order-service/internal/storage/memory"
	"github.com/xenking/order-service/internal/storage/postgres"
	"github.com/xenking/order-service/pkg/health"
	"github.com/xenking/order-service/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
	)

	healthSvc := health.New()

	repo, closeStore, err := openStorage(ctx, lg, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer closeStore()

	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(5*time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	svc, err := order.NewService(repo,
		order.ServiceConfig{
			Batches: order.DoublingBatches{
				Initial: cfg.Stats.InitialBatch,
				Max:     cfg.Stats.MaxBatch,
			},
			MaxPageSize: cfg.Paging.MaxSize,
		},
		order.WithTelemetry(m.TracerProvider(), m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	h := handler.NewHandler(handler.HandlerConfig{DefaultPageSize: cfg.Paging.DefaultSize}, svc)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           newHTTPHandler(zctx.From(ctx), h, healthSvc, m.TracerProvider(), m.MeterProvider()),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// openStorage builds the configured order repository. The PostgreSQL backend
// registers a readiness check on the health service.
func openStorage(ctx context.Context, lg *zap.Logger, cfg *Config, hs *health.Health) (order.Repository, func(), error) {
	if cfg.Storage == StorageMemory {
		lg.Warn("Using in-memory storage, orders are lost on restart")
		return memory.NewOrderStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create db pool")
	}

	if cfg.Migrate {
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "run migrations")
		}
		lg.Info("Schema applied")
	}

	repo := postgres.NewOrderRepository(pool)
	hs.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(repo))
	return repo, pool.Close, nil
}

// newHTTPHandler mounts the health probes and the order API on one router
// and wraps it in the middleware chain.
func newHTTPHandler(
	lg *zap.Logger,
	h *handler.Handler,
	hs *health.Health,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) http.Handler {
	router := chi.NewRouter()
	router.Get("/livez", hs.LiveEndpoint)
	router.Get("/readyz", hs.ReadyEndpoint)
	router.Mount("/", h.Routes())

	return httpmiddleware.Wrap(router,
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.Recovery(h.InternalError),
		httpmiddleware.Instrument("orders-api", tp, mp),
		httpmiddleware.LogRequests(),
	)
}
