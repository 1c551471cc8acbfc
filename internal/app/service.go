// Package service is the aggregation session: it owns the token broker and
// rate limiter and exposes athlete search, test and trial fetching, and
// percentile comparison to the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"

	"github.com/okian/platehub/internal/adapters/mq/queue"
	"github.com/okian/platehub/internal/adapters/mq/worker"
	"github.com/okian/platehub/internal/adapters/upstream"
	"github.com/okian/platehub/internal/adapters/upstream/ratelimit"
	"github.com/okian/platehub/internal/adapters/upstream/token"
	"github.com/okian/platehub/internal/domain/athlete"
	"github.com/okian/platehub/internal/domain/canonical"
	"github.com/okian/platehub/internal/domain/model"
	"github.com/okian/platehub/internal/domain/percentile"
	"github.com/okian/platehub/pkg/logger"
	"github.com/okian/platehub/pkg/metrics"
)

// vendorAPI is the subset of the vendor client the service calls.
type vendorAPI interface {
	Groups(ctx context.Context, tenant model.Tenant) ([]model.Group, error)
	Profiles(ctx context.Context, tenant model.Tenant, groupID string) ([]model.Profile, error)
	Tests(ctx context.Context, ref model.ProfileReference, testType string) ([]model.TestSummary, error)
	Trials(ctx context.Context, tenant model.Tenant, testID string) ([]model.Trial, error)
}

// Service implements the API dependencies of the aggregation engine.
type Service struct {
	mu sync.RWMutex

	// Core components, built once in New.
	broker        *token.Broker
	limiter       *ratelimit.Limiter
	vendor        vendorAPI
	canonicalizer *canonical.Canonicalizer
	engine        *percentile.Engine

	// Trial fetch pipeline, built in Start.
	trialQueue *queue.InMemoryQueue
	pool       *worker.Pool
	cancel     context.CancelFunc

	// Configuration
	creds              []model.TenantCredential
	workerCount        int
	queueSize          int
	fetchConcurrency   int
	professionalGroups []string
	vendorOpts         []upstream.Option

	started bool

	logger  logger.Logger
	metrics *metrics.Manager
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of trial fetch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the trial fetch queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithFetchConcurrency bounds in-flight test list requests of one batch.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fetchConcurrency = n
		}
	}
}

// WithProfessionalGroups sets the group name fragments searched.
func WithProfessionalGroups(groups []string) Option {
	return func(s *Service) {
		if len(groups) > 0 {
			s.professionalGroups = groups
		}
	}
}

// WithTokenBroker injects a token broker instead of building one.
func WithTokenBroker(b *token.Broker) Option {
	return func(s *Service) {
		if b != nil {
			s.broker = b
		}
	}
}

// WithRateLimiter injects a rate limiter instead of building one.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(s *Service) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithVendorOptions passes options to the vendor client.
func WithVendorOptions(opts ...upstream.Option) Option {
	return func(s *Service) {
		s.vendorOpts = append(s.vendorOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New constructs a Service for the given tenant credentials. The primary
// credential is expected; the secondary is used only if it is configured.
func New(creds []model.TenantCredential, opts ...Option) *Service {
	s := &Service{
		creds:              creds,
		workerCount:        runtime.NumCPU() * 2,
		queueSize:          1000,
		fetchConcurrency:   16,
		professionalGroups: append([]string(nil), athlete.DefaultProfessionalGroups...),
		logger:             logger.Get().Named("service"),
		metrics:            metrics.Global(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.broker == nil {
		s.broker = token.NewBroker(creds, token.WithMetrics(s.metrics))
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(ratelimit.WithMetrics(s.metrics))
	}
	vopts := append([]upstream.Option{upstream.WithMetrics(s.metrics)}, s.vendorOpts...)
	s.vendor = upstream.NewClient(creds, s.broker, s.limiter, vopts...)
	s.canonicalizer = canonical.New(canonical.WithMetrics(s.metrics))
	s.engine = percentile.NewEngine(s.metrics)
	return s
}

// Start builds and starts the trial fetch pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting aggregation service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.trialQueue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithMetrics(s.metrics),
	)
	s.pool = worker.NewPool(s.workerCount, s.trialQueue, s, s.canonicalizer, worker.WithMetrics(s.metrics))
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "aggregation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("secondaryTenant", s.broker.Has(model.TenantSecondary)),
	)
	return nil
}

// Stop drains the trial queue and stops the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping aggregation service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "aggregation service stopped")
}

// tenants returns the tenants with credentials, primary first.
func (s *Service) tenants() []model.Tenant {
	out := make([]model.Tenant, 0, len(model.Tenants))
	for _, t := range model.Tenants {
		if t == model.TenantPrimary || s.broker.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// GetStats returns service statistics for monitoring. The limiter is read
// after s.mu is released so a stats call never queues behind fetches.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	queueLength := 0
	if started {
		queueLength = s.trialQueue.Len()
	}
	s.mu.RUnlock()

	tenants := s.tenants()
	window := make(map[string]int, len(tenants))
	waiting := make(map[string]int, len(tenants))
	for _, t := range tenants {
		window[string(t)] = s.limiter.InWindow(t)
		waiting[string(t)] = s.limiter.Waiting(t)
	}

	stats := map[string]interface{}{
		"started":          started,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"tenants":          tenants,
		"requestsInWindow": window,
		"waitingForSlot":   waiting,
	}
	if started {
		stats["queueLength"] = queueLength
	}
	return stats
}
