// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	app "github.com/openhire/ranker/internal/app"
	"github.com/openhire/ranker/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	GetTopCandidates(ctx context.Context, jobID string, limit int) (app.TopCandidates, error)
	GetJobRankingStatus(ctx context.Context, jobID string) (model.JobRankingStatus, error)
	RecalculateJobRankings(ctx context.Context, jobID, trigger string, force bool) (model.RankingCalculationResult, error)
	ProcessBulkRankings(ctx context.Context, jobIDs []string, trigger string, priority app.Priority) (app.BulkResult, error)
	InvalidateRankings(ctx context.Context, req app.InvalidationRequest) (int, error)
	ScheduleStaleRecalculations(ctx context.Context) (app.BulkResult, error)
	SubmitAssessment(ctx context.Context, a model.Assessment) (model.Assessment, error)
	UpsertScoringConfig(ctx context.Context, cfg model.ScoringConfig) (model.ScoringConfig, error)
	UpsertJob(ctx context.Context, j model.Job) (model.Job, error)
}

// StatsProvider exposes service statistics for the stats endpoint.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the ranking API.
type Server struct {
	rankingsHandler *RankingsHandler
	bulkHandler     *BulkHandler
	ingressHandler  *IngressHandler
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies, stats StatsProvider) *Server {
	return &Server{
		rankingsHandler: NewRankingsHandler(deps),
		bulkHandler:     NewBulkHandler(deps),
		ingressHandler:  NewIngressHandler(deps),
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(stats),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/jobs", MetricsMiddleware(s.ingressHandler.HandleUpsertJob, "jobs"))
	mux.HandleFunc("/jobs/", MetricsMiddleware(s.rankingsHandler.HandleJobScoped, "job_rankings"))
	mux.HandleFunc("/assessments", MetricsMiddleware(s.ingressHandler.HandleSubmitAssessment, "assessments"))
	mux.HandleFunc("/scoring-configs", MetricsMiddleware(s.ingressHandler.HandleUpsertConfig, "scoring_configs"))
	mux.HandleFunc("/rankings/bulk", MetricsMiddleware(s.bulkHandler.HandleBulk, "rankings_bulk"))
	mux.HandleFunc("/rankings/invalidate", MetricsMiddleware(s.bulkHandler.HandleInvalidate, "rankings_invalidate"))
	mux.HandleFunc("/rankings/schedule-stale", MetricsMiddleware(s.bulkHandler.HandleScheduleStale, "rankings_schedule_stale"))
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

// writeServiceError translates the service error taxonomy to HTTP.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, app.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
