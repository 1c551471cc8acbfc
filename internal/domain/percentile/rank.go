// Package percentile ranks athlete values against population quantile
// markers and derives ratings and comparisons from the rank.
package percentile

import (
	"math"

	"github.com/okian/platehub/internal/domain/model"
)

const (
	minPercentile = 1
	maxPercentile = 99
)

type marker struct {
	pct   float64
	value float64
}

// markers returns the present quantile markers in percentile order with
// values forced non-decreasing.
func markers(b model.PopulationBucket) []marker {
	all := []struct {
		pct float64
		v   *float64
	}{
		{1, b.P1}, {5, b.P5}, {10, b.P10}, {25, b.P25}, {50, b.P50},
		{75, b.P75}, {90, b.P90}, {95, b.P95}, {99, b.P99},
	}
	out := make([]marker, 0, len(all))
	running := math.Inf(-1)
	for _, m := range all {
		if m.v == nil || math.IsNaN(*m.v) {
			continue
		}
		running = math.Max(running, *m.v)
		out = append(out, marker{pct: m.pct, value: running})
	}
	return out
}

// Rank returns the percentile of value within bucket, in [1, 99], or nil when
// value is nil or the bucket has no spread between p1 and p99. Values at or
// beyond the outer markers are capped. With lowerIsBetter the result is
// mirrored so smaller values rank higher.
func Rank(value *float64, bucket model.PopulationBucket, lowerIsBetter bool) *float64 {
	if value == nil || math.IsNaN(*value) || bucket.P1 == nil || bucket.P99 == nil {
		return nil
	}
	p1, p99 := *bucket.P1, *bucket.P99
	if !(p99 > p1) {
		return nil
	}

	v := *value
	var pct float64
	switch {
	case v <= p1:
		pct = minPercentile
	case v >= p99:
		pct = maxPercentile
	default:
		pct = interpolate(markers(bucket), v)
	}

	if lowerIsBetter {
		pct = 100 - pct
	}
	pct = math.Round(pct)
	pct = math.Max(minPercentile, math.Min(maxPercentile, pct))
	return &pct
}

// interpolate finds the bracket containing v and maps it linearly onto the
// bracket's percentile width. v is strictly inside (first, last).
func interpolate(ms []marker, v float64) float64 {
	for i := 0; i+1 < len(ms); i++ {
		lo, hi := ms[i], ms[i+1]
		if v >= lo.value && v < hi.value {
			return lo.pct + (v-lo.value)/(hi.value-lo.value)*(hi.pct-lo.pct)
		}
	}
	return maxPercentile
}
