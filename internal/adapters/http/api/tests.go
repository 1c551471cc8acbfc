package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/platehub/internal/domain/model"
)

type profileRefRequest struct {
	Tenant    string `json:"tenant" validate:"required,oneof=primary secondary"`
	ProfileID string `json:"profileId" validate:"required"`
}

// testsRequest mirrors the OpenAPI schema for POST /tests.
type testsRequest struct {
	ProfileReferences []profileRefRequest `json:"profileReferences" validate:"required,min=1,dive"`
	TestType          string              `json:"testType"`
}

type testsResponse struct {
	Tests []model.TestSummary `json:"tests"`
}

type testMetricsResponse struct {
	Summary model.TestSummary         `json:"summary"`
	Metrics *model.CanonicalMetricSet `json:"metrics"`
}

// handleFetchTests handles POST /tests.
func (s *Server) handleFetchTests(w http.ResponseWriter, r *http.Request) {
	const op = "api.fetch_tests"
	var req testsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}

	refs := make([]model.ProfileReference, len(req.ProfileReferences))
	for i, ref := range req.ProfileReferences {
		refs[i] = model.ProfileReference{Tenant: model.Tenant(ref.Tenant), ProfileID: ref.ProfileID}
	}
	tests, err := s.deps.FetchTests(r.Context(), refs, req.TestType)
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	if tests == nil {
		tests = []model.TestSummary{}
	}
	writeJSON(w, http.StatusOK, testsResponse{Tests: tests})
}

// handleTestMetrics handles GET /tests/{tenant}/{testId}/metrics.
func (s *Server) handleTestMetrics(w http.ResponseWriter, r *http.Request) {
	const op = "api.test_metrics"
	summary, err := summaryFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w", op, err))
		return
	}

	results, err := s.deps.FetchTestMetrics(r.Context(), []model.TestSummary{summary})
	if err != nil {
		s.writeServiceError(w, r, op, err)
		return
	}
	if len(results) == 0 || results[0].Metrics == nil {
		writeError(w, http.StatusNotFound, "not_found",
			fmt.Errorf("%s: trial detail of %s unavailable: %w", op, summary.TestID, ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, testMetricsResponse{Summary: results[0].Summary, Metrics: results[0].Metrics})
}

func summaryFromPath(r *http.Request) (model.TestSummary, error) {
	vars := mux.Vars(r)
	tenant := model.Tenant(vars["tenant"])
	if tenant != model.TenantPrimary && tenant != model.TenantSecondary {
		return model.TestSummary{}, fmt.Errorf("%w: unknown tenant %q", ErrBadRequest, tenant)
	}
	return model.TestSummary{Tenant: tenant, TestID: vars["testId"]}, nil
}
