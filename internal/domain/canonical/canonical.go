// Package canonical turns vendor trial rows into one stable metric naming:
// RESULT_NAME_Limb_Unit, plus alias-resolved synonyms.
package canonical

import (
	"math"

	"github.com/okian/platehub/internal/domain/model"
	"github.com/okian/platehub/pkg/metrics"
)

// Canonicalizer applies field naming and an alias table. It holds no mutable
// state and is safe for concurrent use.
type Canonicalizer struct {
	aliases []Alias
	metrics *metrics.Manager
}

// Option applies a configuration option to the Canonicalizer.
type Option func(*Canonicalizer)

// WithAliases replaces the alias table.
func WithAliases(aliases []Alias) Option {
	return func(c *Canonicalizer) {
		c.aliases = aliases
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Canonicalizer) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New creates a canonicalizer using DefaultAliases.
func New(opts ...Option) *Canonicalizer {
	c := &Canonicalizer{aliases: DefaultAliases, metrics: metrics.Global()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Canonicalize builds the metric set of one test. Rows without a result name
// or value are skipped. For a repeated name the last row wins.
func (c *Canonicalizer) Canonicalize(trials []model.Trial) *model.CanonicalMetricSet {
	values := make(map[string]float64)
	for _, trial := range trials {
		for _, r := range trial.Results {
			if r.ResultName == "" || r.Value == nil || math.IsNaN(*r.Value) {
				continue
			}
			values[FieldName(r.ResultName, r.Limb, r.Unit)] = *r.Value
		}
	}

	for _, target := range resolve(values, c.aliases) {
		c.metrics.RecordAliasResolution(target)
	}
	c.metrics.RecordCanonicalSet(len(values))

	return &model.CanonicalMetricSet{Values: values, Trials: trials}
}

// Canonicalize is New().Canonicalize without metrics wiring options.
func Canonicalize(trials []model.Trial) *model.CanonicalMetricSet {
	return New().Canonicalize(trials)
}
