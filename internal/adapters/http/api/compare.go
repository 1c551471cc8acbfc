package api

import (
	"fmt"
	"net/http"

	"github.com/okian/platehub/internal/domain/model"
	"github.com/okian/platehub/internal/domain/percentile"
)

// compareRequest mirrors the OpenAPI schema for POST /compare. Either a
// test to load or already canonical values must be given.
type compareRequest struct {
	Tenant  string                            `json:"tenant" validate:"omitempty,oneof=primary secondary"`
	TestID  string                            `json:"testId" validate:"required_without=Values"`
	Values  map[string]float64                `json:"values"`
	Buckets map[string]model.PopulationBucket `json:"buckets" validate:"required"`
	Metrics []string                          `json:"metrics" validate:"omitempty,dive,required"`
}

type compareResponse struct {
	Results []model.ComparativeResult `json:"results"`
}

// handleCompare handles POST /compare.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare"
	var req compareRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}
	specs, err := selectSpecs(req.Metrics)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}

	var results []model.ComparativeResult
	if req.TestID != "" {
		tenant := model.Tenant(req.Tenant)
		if tenant == "" {
			tenant = model.TenantPrimary
		}
		results = s.deps.CompareTest(r.Context(), model.TestSummary{Tenant: tenant, TestID: req.TestID}, req.Buckets, specs)
	} else {
		results = s.deps.Compare(&model.CanonicalMetricSet{Values: req.Values}, req.Buckets, specs)
	}
	writeJSON(w, http.StatusOK, compareResponse{Results: results})
}

// selectSpecs picks the default specs named by keys, in the order given.
// No keys selects all of them.
func selectSpecs(keys []string) ([]percentile.MetricSpec, error) {
	if len(keys) == 0 {
		return percentile.DefaultSpecs, nil
	}
	byKey := make(map[string]percentile.MetricSpec, len(percentile.DefaultSpecs))
	for _, spec := range percentile.DefaultSpecs {
		byKey[spec.Key] = spec
	}
	out := make([]percentile.MetricSpec, 0, len(keys))
	for _, k := range keys {
		spec, ok := byKey[k]
		if !ok {
			return nil, fmt.Errorf("%w: unknown metric %q", ErrBadRequest, k)
		}
		out = append(out, spec)
	}
	return out, nil
}
