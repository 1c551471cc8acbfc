package percentile

import (
	"math"
	"sort"

	"github.com/okian/platehub/internal/domain/model"
)

// ComputeBucket summarizes raw population samples: mean, sample standard
// deviation and the nine quantile markers by linear interpolation between
// closest ranks. NaN samples are ignored; an empty population yields a
// bucket without markers.
func ComputeBucket(samples []float64) model.PopulationBucket {
	xs := make([]float64, 0, len(samples))
	for _, s := range samples {
		if !math.IsNaN(s) {
			xs = append(xs, s)
		}
	}
	n := len(xs)
	if n == 0 {
		return model.PopulationBucket{}
	}
	sort.Float64s(xs)

	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(n)

	var sd float64
	if n > 1 {
		var sq float64
		for _, x := range xs {
			sq += (x - mean) * (x - mean)
		}
		sd = math.Sqrt(sq / float64(n-1))
	}

	q := func(p float64) *float64 {
		v := quantile(xs, p)
		return &v
	}
	return model.PopulationBucket{
		Mean:       mean,
		StdDev:     sd,
		P1:         q(0.01),
		P5:         q(0.05),
		P10:        q(0.10),
		P25:        q(0.25),
		P50:        q(0.50),
		P75:        q(0.75),
		P90:        q(0.90),
		P95:        q(0.95),
		P99:        q(0.99),
		SampleSize: n,
	}
}

// quantile expects sorted, non-empty xs.
func quantile(xs []float64, p float64) float64 {
	pos := p * float64(len(xs)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return xs[lo]
	}
	frac := pos - float64(lo)
	return xs[lo] + frac*(xs[hi]-xs[lo])
}
