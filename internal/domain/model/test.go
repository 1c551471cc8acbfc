package model

import "time"

// TestSummary is one recorded test session of a profile.
type TestSummary struct {
	Tenant     Tenant    `json:"tenant"`
	TestID     string    `json:"testId"`
	ProfileID  string    `json:"profileId"`
	TestType   string    `json:"testType"`
	RecordedAt time.Time `json:"recordedAt"`
}

// TrialResult is one measurement row within a trial. Value is nil when the
// vendor reported no value.
type TrialResult struct {
	Limb       string   `json:"limb"`
	ResultName string   `json:"resultName"`
	Unit       string   `json:"unit"`
	Value      *float64 `json:"value"`
}

// Trial is one recorded attempt of a test.
type Trial struct {
	ID      string        `json:"id"`
	Limb    string        `json:"limb"`
	Results []TrialResult `json:"results"`
}

// TrialJob asks a fetch worker to load and canonicalize one test.
type TrialJob struct {
	Index   int
	Summary TestSummary
	Reply   chan<- TestMetrics
}

// TestMetrics pairs a summary with its canonical metrics. Metrics is nil when
// the trial detail could not be fetched.
type TestMetrics struct {
	Index   int                 `json:"-"`
	Summary TestSummary         `json:"summary"`
	Metrics *CanonicalMetricSet `json:"metrics"`
}
