package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/okian/platehub/internal/adapters/http/api"
	"github.com/okian/platehub/internal/adapters/http/swagger"
	"github.com/okian/platehub/internal/adapters/upstream"
	"github.com/okian/platehub/internal/adapters/upstream/ratelimit"
	"github.com/okian/platehub/internal/adapters/upstream/token"
	app "github.com/okian/platehub/internal/app"
	"github.com/okian/platehub/internal/config"
	"github.com/okian/platehub/pkg/logger"
	"github.com/okian/platehub/pkg/metrics"
)

// HTTP server timeout constants. Handlers wait on the vendor, so the write
// timeout is well above the outbound call timeout.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 5 * time.Minute
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build service", logger.Error(err))
		return
	}
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	router := mux.NewRouter()
	swagger.Register(router)
	api.NewServer(svc, api.WithLogger(log.Named("api"))).Register(router)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// newService wires the token broker, rate limiter and vendor client
// described by cfg into an aggregation service.
func newService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	modifiedFrom, err := cfg.ModifiedFrom()
	if err != nil {
		return nil, err
	}
	creds := cfg.Credentials()

	broker := token.NewBroker(creds,
		token.WithRefreshBuffer(cfg.TokenRefreshBuffer()),
		token.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout()}),
		token.WithLogger(log.Named("token")),
	)
	limiter := ratelimit.New(
		ratelimit.WithMaxRequests(cfg.RateLimit.MaxRequests),
		ratelimit.WithWindow(time.Duration(cfg.RateLimit.WindowMS)*time.Millisecond),
		ratelimit.WithSafetyMargin(time.Duration(cfg.RateLimit.SafetyMarginMS)*time.Millisecond),
		ratelimit.WithLogger(log.Named("ratelimit")),
	)

	return app.New(creds,
		app.WithLogger(log.Named("service")),
		app.WithTokenBroker(broker),
		app.WithRateLimiter(limiter),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithProfessionalGroups(cfg.ProfessionalGroups),
		app.WithVendorOptions(
			upstream.WithTimeout(cfg.HTTPTimeout()),
			upstream.WithProfilePageSize(cfg.ProfilePageSize),
			upstream.WithModifiedFrom(modifiedFrom),
			upstream.WithLogger(log.Named("vendor")),
		),
	), nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics(metrics.Global())
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(metrics.Global(), svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics(m *metrics.Manager) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	var avgPauseMs float64
	if ms.NumGC > 0 {
		avgPauseMs = float64(ms.PauseTotalNs) / float64(ms.NumGC) / nanosecondsPerMillisecond
	}
	m.UpdateSystem(ms.Alloc, runtime.NumGoroutine(), avgPauseMs)
}

// updateServiceMetrics copies queue and pool gauges from the service stats.
func updateServiceMetrics(m *metrics.Manager, svc *app.Service) {
	stats := svc.GetStats()

	queueLen, okLen := stats["queueLength"].(int)
	queueCap, okCap := stats["queueSize"].(int)
	if okLen && okCap {
		m.UpdateQueue(queueLen, queueCap)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		m.UpdateWorkerCount(workerCount)
	}
}
