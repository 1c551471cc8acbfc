// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	service "github.com/okian/platehub/internal/app"
	"github.com/okian/platehub/internal/domain/model"
	"github.com/okian/platehub/internal/domain/percentile"
	"github.com/okian/platehub/pkg/logger"
	"github.com/okian/platehub/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	StatsProvider

	SearchAthletes(ctx context.Context, term string) ([]model.Athlete, error)
	FetchTests(ctx context.Context, refs []model.ProfileReference, testType string) ([]model.TestSummary, error)
	FetchTestMetrics(ctx context.Context, summaries []model.TestSummary) ([]model.TestMetrics, error)
	CompareTest(ctx context.Context, summary model.TestSummary, buckets map[string]model.PopulationBucket, specs []percentile.MetricSpec) []model.ComparativeResult
	Compare(set *model.CanonicalMetricSet, buckets map[string]model.PopulationBucket, specs []percentile.MetricSpec) []model.ComparativeResult
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps     Dependencies
	gatherer prometheus.Gatherer
	logger   logger.Logger
	metrics  *metrics.Manager
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithGatherer sets the registry exposed on /healthz.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics manager HTTP traffic is recorded on.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewServer creates a new API server over deps.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:     deps,
		gatherer: metrics.GetRegistry(),
		logger:   logger.Get().Named("api"),
		metrics:  metrics.Global(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(router *mux.Router) {
	if router == nil {
		panic("router is nil")
	}
	router.Use(s.requestID)

	router.HandleFunc("/healthz", s.instrument("healthz", s.handleHealth)).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.instrument("stats", s.handleStats)).Methods(http.MethodGet)
	router.HandleFunc("/athletes", s.instrument("athletes", s.handleSearchAthletes)).Methods(http.MethodGet)
	router.HandleFunc("/tests", s.instrument("tests", s.handleFetchTests)).Methods(http.MethodPost)
	router.HandleFunc("/tests/{tenant}/{testId}/metrics", s.instrument("test_metrics", s.handleTestMetrics)).Methods(http.MethodGet)
	router.HandleFunc("/compare", s.instrument("compare", s.handleCompare)).Methods(http.MethodPost)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service failures onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, ErrBadRequest):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrPrimaryUnavailable):
		status, code = http.StatusBadGateway, "primary_unavailable"
	case errors.Is(err, service.ErrNotStarted):
		status, code = http.StatusServiceUnavailable, "not_started"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	default:
		status, code = http.StatusInternalServerError, "internal_error"
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("op", op),
			logger.String("requestId", w.Header().Get(requestIDHeader)),
			logger.Error(err),
		)
	}
	writeError(w, status, code, fmt.Errorf("%s: %w", op, err))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// decode reads a JSON body into v and validates its struct tags.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrBadRequest, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
