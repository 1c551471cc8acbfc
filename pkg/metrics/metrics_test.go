package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "platehub")
				So(manager.subsystem, ShouldEqual, "aggregator")
				So(manager.enabled, ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 2, 3})
				So(manager.constLabels["env"], ShouldEqual, "test")
			})
		})

		Convey("When empty values are passed to options", func() {
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "platehub")
				So(manager.subsystem, ShouldEqual, "aggregator")
			})
		})
	})
}

func TestManagerRecording(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When recording vendor traffic", func() {
			manager.RecordVendorRequest("primary", "tests", "ok", 12)
			manager.RecordVendorRequest("primary", "tests", "ok", 15)
			manager.RecordFetchFailure("secondary", "trials")

			Convey("Then counters reflect it", func() {
				So(testutil.ToFloat64(manager.vendorRequests.WithLabelValues("primary", "tests", "ok")), ShouldEqual, 2)
				So(testutil.ToFloat64(manager.fetchFailures.WithLabelValues("secondary", "trials")), ShouldEqual, 1)
			})
		})

		Convey("When recording tenant availability and token refreshes", func() {
			manager.SetTenantAvailable("secondary", false)
			manager.SetTenantAvailable("primary", true)
			manager.RecordTokenRefresh("primary", "ok")

			Convey("Then gauges and counters reflect it", func() {
				So(testutil.ToFloat64(manager.tenantAvailable.WithLabelValues("secondary")), ShouldEqual, 0)
				So(testutil.ToFloat64(manager.tenantAvailable.WithLabelValues("primary")), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.tokenRefreshes.WithLabelValues("primary", "ok")), ShouldEqual, 1)
			})
		})

		Convey("When recording comparisons", func() {
			manager.RecordComparison("Elite", true)
			manager.RecordComparison("", false)

			Convey("Then banded and missing results are split", func() {
				So(testutil.ToFloat64(manager.comparisonsByBand.WithLabelValues("Elite")), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.percentileMissing), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a disabled manager", t, func() {
		manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))

		Convey("When recording", func() {
			manager.RecordTestsFetched(5)
			manager.RecordDirectorySearch(3, 1)

			Convey("Then nothing is observed", func() {
				So(testutil.ToFloat64(manager.testsFetched), ShouldEqual, 0)
				So(testutil.ToFloat64(manager.athletesMerged), ShouldEqual, 0)
			})
		})
	})
}

func TestGlobalManager(t *testing.T) {
	Convey("Given the global manager", t, func() {
		So(Global(), ShouldNotBeNil)
		So(GetRegistry(), ShouldNotBeNil)

		Convey("Then its collectors are gathered from the custom registry", func() {
			Global().RecordTestsFetched(1)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
