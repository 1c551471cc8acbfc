package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/platehub/internal/adapters/mq/queue"
	"github.com/okian/platehub/internal/domain/model"
	"github.com/okian/platehub/pkg/logger"
	"github.com/okian/platehub/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 4 // workers per CPU; the job is network bound
	poolShutdownTimeout     = 30 * time.Second
)

// TrialFetcher loads trial detail for a test. It returns nil on any failure.
type TrialFetcher interface {
	FetchTrials(ctx context.Context, summary model.TestSummary) []model.Trial
}

// Canonicalizer turns trials into canonical metrics.
type Canonicalizer interface {
	Canonicalize(trials []model.Trial) *model.CanonicalMetricSet
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue() <-chan queue.Job
}

// Worker processes trial jobs.
type Worker interface {
	// Run starts the worker loop until the queue closes or ctx is canceled.
	Run(ctx context.Context)
	// Shutdown waits for the worker to finish.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue         Queue
	fetcher       TrialFetcher
	canonicalizer Canonicalizer
	name          string

	done chan struct{}

	logger  logger.Logger
	metrics *metrics.Manager
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, fetcher TrialFetcher, canonicalizer Canonicalizer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:         q,
		fetcher:       fetcher,
		canonicalizer: canonicalizer,
		name:          "worker",
		done:          make(chan struct{}),
		logger:        logger.Get().Named("worker"),
		metrics:       metrics.Global(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run consumes jobs until the queue is closed. If ctx ends first, jobs still
// queued are answered without metrics so no caller waits forever.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			w.drain(jobs)
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown waits for the worker to finish or ctx to end.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) { //nolint:gocritic // hugeParam: jobs travel by value
	start := time.Now()
	defer func() {
		w.metrics.RecordWorkerJobLatency(float64(time.Since(start).Milliseconds()))
	}()

	out := model.TestMetrics{Index: job.Index, Summary: job.Summary}
	if trials := w.fetcher.FetchTrials(ctx, job.Summary); trials != nil {
		out.Metrics = w.canonicalizer.Canonicalize(trials)
		w.metrics.RecordTrialSetRetrieved()
	} else {
		w.logger.Debug(ctx, "no trial detail for test",
			logger.String("tenant", string(job.Summary.Tenant)),
			logger.String("testId", job.Summary.TestID),
		)
	}
	reply(job, out)
}

func (w *InMemoryWorker) drain(jobs <-chan queue.Job) {
	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			reply(job, model.TestMetrics{Index: job.Index, Summary: job.Summary})
		default:
			return
		}
	}
}

// reply never blocks; callers size Reply for every job they submit.
func reply(job queue.Job, out model.TestMetrics) { //nolint:gocritic // hugeParam: jobs travel by value
	if job.Reply == nil {
		return
	}
	select {
	case job.Reply <- out:
	default:
	}
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
	metrics *metrics.Manager
}

// NewPool creates a pool of workerCount workers. A count below 1 picks a
// default based on the number of CPUs.
func NewPool(workerCount int, q Queue, fetcher TrialFetcher, canonicalizer Canonicalizer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
		metrics: metrics.Global(),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, fetcher, canonicalizer, wopts...)
	}
	if workerCount > 0 {
		pool.metrics = pool.workers[0].metrics
	}
	pool.metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue so workers finish what is queued, then waits.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	p.metrics.UpdateWorkerCount(0)
	return nil
}
