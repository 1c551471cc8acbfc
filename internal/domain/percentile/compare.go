package percentile

import (
	"github.com/dustin/go-humanize"

	"github.com/okian/platehub/internal/domain/model"
	"github.com/okian/platehub/pkg/metrics"
)

// MetricSpec describes how one canonical field is compared and shown.
// Key selects the population bucket.
type MetricSpec struct {
	Key           string `json:"key"`
	Field         string `json:"field"`
	Label         string `json:"label"`
	Unit          string `json:"unit"`
	Decimals      int    `json:"decimals"`
	LowerIsBetter bool   `json:"lowerIsBetter"`
	Bands         Bands  `json:"-"`
}

// DefaultSpecs is the countermovement jump report catalogue.
var DefaultSpecs = []MetricSpec{
	{Key: "jumpHeight", Field: "JUMP_HEIGHT_Trial_cm", Label: "Jump Height", Unit: "cm", Decimals: 1, Bands: StandardBands},
	{Key: "peakPowerBM", Field: "PEAK_TAKEOFF_POWER_BM_Trial_W_per_kg", Label: "Peak Power / BM", Unit: "W/kg", Decimals: 1, Bands: StandardBands},
	{Key: "rsiModified", Field: "RSI_MODIFIED_Trial_RSI_mod", Label: "RSI-modified", Decimals: 2, Bands: StandardBands},
	{Key: "fctRatio", Field: "FLIGHT_CONTRACTION_TIME_RATIO_Trial_", Label: "Flight Time : Contraction Time", Decimals: 2, Bands: StandardBands},
	{Key: "concentricImpulse", Field: "CONCENTRIC_IMPULSE_Trial_Ns", Label: "Concentric Impulse", Unit: "N s", Decimals: 1, Bands: WideBands},
	{Key: "eccentricBrakingRFD", Field: "ECCENTRIC_BRAKING_RFD_Trial_N_per_s", Label: "Eccentric Braking RFD", Unit: "N/s", Bands: WideBands},
	{Key: "contractionTime", Field: "CONTRACTION_TIME_Trial_ms", Label: "Contraction Time", Unit: "ms", LowerIsBetter: true, Bands: WideBands},
}

// Engine compares athletes' canonical metrics with population buckets.
type Engine struct {
	metrics *metrics.Manager
}

// NewEngine creates an engine reporting to m, or to the global manager if m is nil.
func NewEngine(m *metrics.Manager) *Engine {
	if m == nil {
		m = metrics.Global()
	}
	return &Engine{metrics: m}
}

// Compare returns one result per spec, in spec order. A field missing from
// set is shown as N/A without a percentile; a missing bucket keeps the value
// but leaves the percentile nil.
func (e *Engine) Compare(set *model.CanonicalMetricSet, buckets map[string]model.PopulationBucket, specs []MetricSpec) []model.ComparativeResult {
	out := make([]model.ComparativeResult, 0, len(specs))
	for _, spec := range specs {
		res := model.ComparativeResult{
			Metric:       spec.Key,
			Label:        spec.Label,
			DisplayValue: NotAvailable,
			Rating:       NotAvailable,
		}
		if v, ok := set.Get(spec.Field); ok {
			res.RawValue = &v
			res.DisplayValue = Display(v, spec.Decimals, spec.Unit)
			if bucket, ok := buckets[spec.Key]; ok {
				res.Percentile = Rank(&v, bucket, spec.LowerIsBetter)
			}
			bands := spec.Bands
			if bands == nil {
				bands = StandardBands
			}
			res.Rating = bands.Rate(res.Percentile)
		}
		e.metrics.RecordComparison(res.Rating, res.Percentile != nil)
		out = append(out, res)
	}
	return out
}

// Display formats v with thousands separators, at most decimals digits and
// an optional unit suffix.
func Display(v float64, decimals int, unit string) string {
	s := humanize.CommafWithDigits(v, decimals)
	if unit != "" {
		s += " " + unit
	}
	return s
}
