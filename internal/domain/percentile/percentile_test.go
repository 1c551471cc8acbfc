package percentile_test

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/platehub/internal/domain/model"
	"github.com/okian/platehub/internal/domain/percentile"
	"github.com/okian/platehub/pkg/metrics"
)

func f(v float64) *float64 { return &v }

func jumpHeightBucket() model.PopulationBucket {
	return model.PopulationBucket{
		P1: f(30), P5: f(35), P25: f(40), P50: f(45), P75: f(50), P90: f(55), P95: f(58), P99: f(62),
	}
}

func TestRank(t *testing.T) {
	convey.Convey("Given the jump height population", t, func() {
		b := jumpHeightBucket()

		convey.Convey("When the value lies between p50 and p75", func() {
			p := percentile.Rank(f(47), b, false)

			convey.Convey("Then the percentile is interpolated inside that bracket", func() {
				convey.So(p, convey.ShouldNotBeNil)
				convey.So(*p, convey.ShouldBeGreaterThan, 50)
				convey.So(*p, convey.ShouldBeLessThan, 75)
				convey.So(*p, convey.ShouldEqual, 60)
			})
		})

		convey.Convey("When the value hits the outer markers", func() {
			convey.So(*percentile.Rank(f(62), b, false), convey.ShouldEqual, 99)
			convey.So(*percentile.Rank(f(80), b, false), convey.ShouldEqual, 99)
			convey.So(*percentile.Rank(f(20), b, false), convey.ShouldEqual, 1)
			convey.So(*percentile.Rank(f(30), b, false), convey.ShouldEqual, 1)
		})

		convey.Convey("When lower values are better", func() {
			convey.So(*percentile.Rank(f(20), b, true), convey.ShouldEqual, 99)
			convey.So(*percentile.Rank(f(62), b, true), convey.ShouldEqual, 1)
			convey.So(*percentile.Rank(f(47), b, true), convey.ShouldEqual, 40)
		})

		convey.Convey("When the p10 marker is missing", func() {
			p := percentile.Rank(f(37.5), b, false)
			convey.So(*p, convey.ShouldEqual, 15)
		})

		convey.Convey("Then the rank is monotonic and bounded", func() {
			prevUp, prevDown := 0.0, 100.0
			for v := 0.0; v <= 90; v += 0.25 {
				up := percentile.Rank(f(v), b, false)
				down := percentile.Rank(f(v), b, true)
				convey.So(*up, convey.ShouldBeBetweenOrEqual, 1, 99)
				convey.So(*down, convey.ShouldBeBetweenOrEqual, 1, 99)
				convey.So(*up, convey.ShouldBeGreaterThanOrEqualTo, prevUp)
				convey.So(*down, convey.ShouldBeLessThanOrEqualTo, prevDown)
				prevUp, prevDown = *up, *down
			}
		})
	})

	convey.Convey("Given inputs without a usable rank", t, func() {
		b := jumpHeightBucket()
		convey.So(percentile.Rank(nil, b, false), convey.ShouldBeNil)
		convey.So(percentile.Rank(f(math.NaN()), b, false), convey.ShouldBeNil)
		convey.So(percentile.Rank(f(40), model.PopulationBucket{P1: f(5), P99: f(5)}, false), convey.ShouldBeNil)
		convey.So(percentile.Rank(f(40), model.PopulationBucket{P50: f(40)}, false), convey.ShouldBeNil)
		convey.So(percentile.Rank(f(40), model.PopulationBucket{P1: f(50), P99: f(10)}, false), convey.ShouldBeNil)
	})

	convey.Convey("Given markers that dip", t, func() {
		b := model.PopulationBucket{P1: f(10), P25: f(30), P50: f(25), P75: f(40), P99: f(50)}

		convey.Convey("Then ranks stay monotonic", func() {
			prev := 0.0
			for v := 10.0; v <= 50; v++ {
				p := *percentile.Rank(f(v), b, false)
				convey.So(p, convey.ShouldBeGreaterThanOrEqualTo, prev)
				prev = p
			}
		})
	})
}

func TestBands(t *testing.T) {
	convey.Convey("Given the standard bands", t, func() {
		convey.So(percentile.StandardBands.Rate(f(95)), convey.ShouldEqual, "Elite")
		convey.So(percentile.StandardBands.Rate(f(90)), convey.ShouldEqual, "Elite")
		convey.So(percentile.StandardBands.Rate(f(75)), convey.ShouldEqual, "Above Average")
		convey.So(percentile.StandardBands.Rate(f(50)), convey.ShouldEqual, "Average")
		convey.So(percentile.StandardBands.Rate(f(30)), convey.ShouldEqual, "Below Average")
		convey.So(percentile.StandardBands.Rate(f(1)), convey.ShouldEqual, "Needs Improvement")
		convey.So(percentile.StandardBands.Rate(nil), convey.ShouldEqual, percentile.NotAvailable)
	})

	convey.Convey("Given the wide bands", t, func() {
		convey.So(percentile.WideBands.Rate(f(30)), convey.ShouldEqual, "Average")
		convey.So(percentile.WideBands.Rate(f(24)), convey.ShouldEqual, "Below Average")
	})

	convey.Convey("Given bands listed out of order", t, func() {
		b := percentile.Bands{{Min: 0, Label: "low"}, {Min: 80, Label: "high"}}
		convey.So(b.Rate(f(85)), convey.ShouldEqual, "high")
		convey.So(b.Rate(f(10)), convey.ShouldEqual, "low")
	})
}

func TestComputeBucket(t *testing.T) {
	convey.Convey("Given 101 evenly spaced samples", t, func() {
		samples := make([]float64, 0, 101)
		for i := 100; i >= 0; i-- {
			samples = append(samples, float64(i))
		}
		b := percentile.ComputeBucket(samples)

		convey.Convey("Then markers match their percentiles", func() {
			convey.So(b.SampleSize, convey.ShouldEqual, 101)
			convey.So(b.Mean, convey.ShouldEqual, 50)
			convey.So(*b.P1, convey.ShouldEqual, 1)
			convey.So(*b.P25, convey.ShouldEqual, 25)
			convey.So(*b.P50, convey.ShouldEqual, 50)
			convey.So(*b.P99, convey.ShouldEqual, 99)
			convey.So(b.StdDev, convey.ShouldAlmostEqual, 29.3001, 0.001)
		})

		convey.Convey("Then ranking a sample against it recovers its percentile", func() {
			convey.So(*percentile.Rank(f(73), b, false), convey.ShouldEqual, 73)
		})
	})

	convey.Convey("Given two samples", t, func() {
		b := percentile.ComputeBucket([]float64{10, 20, math.NaN()})
		convey.So(b.SampleSize, convey.ShouldEqual, 2)
		convey.So(*b.P50, convey.ShouldEqual, 15)
		convey.So(b.StdDev, convey.ShouldAlmostEqual, math.Sqrt(50), 1e-9)
	})

	convey.Convey("Given no samples", t, func() {
		b := percentile.ComputeBucket(nil)
		convey.So(b.SampleSize, convey.ShouldEqual, 0)
		convey.So(b.P1, convey.ShouldBeNil)
		convey.So(percentile.Rank(f(1), b, false), convey.ShouldBeNil)
	})
}

func TestCompare(t *testing.T) {
	convey.Convey("Given an athlete missing one metric", t, func() {
		engine := percentile.NewEngine(metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry())))
		set := &model.CanonicalMetricSet{Values: map[string]float64{
			"JUMP_HEIGHT_Trial_cm":                47,
			"ECCENTRIC_BRAKING_RFD_Trial_N_per_s": 5321.7,
		}}
		buckets := map[string]model.PopulationBucket{"jumpHeight": jumpHeightBucket()}
		specs := []percentile.MetricSpec{
			{Key: "jumpHeight", Field: "JUMP_HEIGHT_Trial_cm", Label: "Jump Height", Unit: "cm", Decimals: 1, Bands: percentile.StandardBands},
			{Key: "rsiModified", Field: "RSI_MODIFIED_Trial_RSI_mod", Label: "RSI-modified", Decimals: 2},
			{Key: "eccentricBrakingRFD", Field: "ECCENTRIC_BRAKING_RFD_Trial_N_per_s", Label: "Eccentric Braking RFD", Unit: "N/s"},
		}
		results := engine.Compare(set, buckets, specs)

		convey.Convey("Then present metrics are ranked and rated", func() {
			convey.So(results, convey.ShouldHaveLength, 3)
			convey.So(results[0].DisplayValue, convey.ShouldEqual, "47 cm")
			convey.So(*results[0].Percentile, convey.ShouldEqual, 60)
			convey.So(results[0].Rating, convey.ShouldEqual, "Average")
		})

		convey.Convey("Then the missing metric renders as N/A", func() {
			convey.So(results[1].RawValue, convey.ShouldBeNil)
			convey.So(results[1].DisplayValue, convey.ShouldEqual, "N/A")
			convey.So(results[1].Percentile, convey.ShouldBeNil)
			convey.So(results[1].Rating, convey.ShouldEqual, "N/A")
		})

		convey.Convey("Then a metric without a bucket keeps its value only", func() {
			convey.So(*results[2].RawValue, convey.ShouldEqual, 5321.7)
			convey.So(results[2].DisplayValue, convey.ShouldEqual, "5,321 N/s")
			convey.So(results[2].Percentile, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a nil metric set", t, func() {
		engine := percentile.NewEngine(metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry())))
		results := engine.Compare(nil, nil, percentile.DefaultSpecs)
		convey.So(results, convey.ShouldHaveLength, len(percentile.DefaultSpecs))
		for _, r := range results {
			convey.So(r.DisplayValue, convey.ShouldEqual, percentile.NotAvailable)
		}
	})
}
