package model

// CanonicalMetricSet maps canonical field names (RESULT_NAME_Limb_Unit) to
// values. Trials keeps the source rows for traceability.
type CanonicalMetricSet struct {
	Values map[string]float64 `json:"values"`
	Trials []Trial            `json:"trials"`
}

// Get returns the value stored under name. A missing name is not an error.
func (s *CanonicalMetricSet) Get(name string) (float64, bool) {
	if s == nil || s.Values == nil {
		return 0, false
	}
	v, ok := s.Values[name]
	return v, ok
}

// PopulationBucket holds reference population statistics for one metric.
// Quantile markers are nil when the warehouse did not provide them.
type PopulationBucket struct {
	Mean       float64  `json:"mean"`
	StdDev     float64  `json:"stddev"`
	P1         *float64 `json:"p1"`
	P5         *float64 `json:"p5"`
	P10        *float64 `json:"p10"`
	P25        *float64 `json:"p25"`
	P50        *float64 `json:"p50"`
	P75        *float64 `json:"p75"`
	P90        *float64 `json:"p90"`
	P95        *float64 `json:"p95"`
	P99        *float64 `json:"p99"`
	SampleSize int      `json:"sampleSize"`
}

// ComparativeResult is an athlete's standing on one metric.
type ComparativeResult struct {
	Metric       string   `json:"metric"`
	Label        string   `json:"label"`
	RawValue     *float64 `json:"value"`
	DisplayValue string   `json:"displayValue"`
	Percentile   *float64 `json:"percentile"`
	Rating       string   `json:"rating"`
}
