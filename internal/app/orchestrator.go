package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/platehub/internal/adapters/mq/queue"
	"github.com/okian/platehub/internal/domain/dedupe"
	"github.com/okian/platehub/internal/domain/model"
	"github.com/okian/platehub/internal/domain/percentile"
	"github.com/okian/platehub/pkg/logger"
)

// FetchTests lists the tests of every profile reference, optionally only of
// testType. A reference given twice is queried once. Failures of a single
// reference are logged and contribute no tests; only a primary
// authentication failure aborts the batch. Results keep reference order.
func (s *Service) FetchTests(ctx context.Context, refs []model.ProfileReference, testType string) ([]model.TestSummary, error) {
	runID := uuid.NewString()
	log := s.logger.Named("orchestrator")

	seen := dedupe.NewInMemoryDeduper()
	unique := make([]model.ProfileReference, 0, len(refs))
	for _, ref := range refs {
		if !seen.SeenAndRecord(ref.Key()) {
			unique = append(unique, ref)
		}
	}

	perRef := make([][]model.TestSummary, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)
	for i, ref := range unique {
		g.Go(func() error {
			res := attempt(func() ([]model.TestSummary, error) { return s.vendor.Tests(gctx, ref, testType) })
			if res.failed() {
				if res.fatal() {
					return res.abort()
				}
				s.metrics.RecordFetchFailure(string(ref.Tenant), "tests")
				log.Warn(gctx, "test list failed, reference skipped",
					logger.String("run", runID),
					logger.String("tenant", string(ref.Tenant)),
					logger.String("profileId", ref.ProfileID),
					logger.Error(res.err),
				)
				return nil
			}
			perRef[i] = res.value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.TestSummary
	for _, tests := range perRef {
		out = append(out, tests...)
	}
	s.metrics.RecordTestsFetched(len(out))
	log.Info(ctx, "tests fetched",
		logger.String("run", runID),
		logger.Int("references", len(unique)),
		logger.Int("tests", len(out)),
	)
	return out, nil
}

// FetchTrials loads the trial detail of one test from the tenant it was
// listed by. It never fails: any error, including authentication, yields nil.
func (s *Service) FetchTrials(ctx context.Context, summary model.TestSummary) []model.Trial {
	res := attempt(func() ([]model.Trial, error) { return s.vendor.Trials(ctx, summary.Tenant, summary.TestID) })
	if res.failed() {
		s.metrics.RecordFetchFailure(string(summary.Tenant), "trials")
		s.logger.Warn(ctx, "trial detail failed",
			logger.String("tenant", string(summary.Tenant)),
			logger.String("testId", summary.TestID),
			logger.Error(res.err),
		)
		return nil
	}
	return res.value
}

// FetchTestMetrics fetches and canonicalizes the trials of every summary on
// the worker pool. The result has one entry per summary, in input order;
// Metrics is nil where trial detail could not be loaded. A test listed twice
// is fetched once.
func (s *Service) FetchTestMetrics(ctx context.Context, summaries []model.TestSummary) ([]model.TestMetrics, error) {
	s.mu.RLock()
	started, q := s.started, s.trialQueue
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	seen := dedupe.NewInMemoryDeduper()
	var unique []model.TestSummary
	for _, sum := range summaries {
		if !seen.SeenAndRecord(testKey(sum)) {
			unique = append(unique, sum)
		}
	}

	replies := make(chan model.TestMetrics, len(unique))
	for i, sum := range unique {
		err := q.Put(ctx, model.TrialJob{Index: i, Summary: sum, Reply: replies})
		if errors.Is(err, queue.ErrClosed) {
			return nil, ErrNotStarted
		}
		if err != nil {
			return nil, err
		}
	}

	byKey := make(map[string]*model.CanonicalMetricSet, len(unique))
	for range unique {
		select {
		case r := <-replies:
			byKey[testKey(r.Summary)] = r.Metrics
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	out := make([]model.TestMetrics, len(summaries))
	for i, sum := range summaries {
		out[i] = model.TestMetrics{Index: i, Summary: sum, Metrics: byKey[testKey(sum)]}
	}
	return out, nil
}

// CompareTest canonicalizes one test and compares it with the population
// buckets. Missing trial detail gives N/A for every metric. Nil specs use
// percentile.DefaultSpecs.
func (s *Service) CompareTest(ctx context.Context, summary model.TestSummary, buckets map[string]model.PopulationBucket, specs []percentile.MetricSpec) []model.ComparativeResult {
	if specs == nil {
		specs = percentile.DefaultSpecs
	}
	var set *model.CanonicalMetricSet
	if trials := s.FetchTrials(ctx, summary); trials != nil {
		set = s.canonicalizer.Canonicalize(trials)
	}
	return s.engine.Compare(set, buckets, specs)
}

// Compare ranks an already canonicalized metric set.
func (s *Service) Compare(set *model.CanonicalMetricSet, buckets map[string]model.PopulationBucket, specs []percentile.MetricSpec) []model.ComparativeResult {
	if specs == nil {
		specs = percentile.DefaultSpecs
	}
	return s.engine.Compare(set, buckets, specs)
}

func testKey(s model.TestSummary) string {
	return string(s.Tenant) + ":" + s.TestID
}
