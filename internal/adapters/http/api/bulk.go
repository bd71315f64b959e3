// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	app "github.com/openhire/ranker/internal/app"
)

// BulkHandler handles bulk ranking and invalidation requests.
type BulkHandler struct {
	deps Dependencies
}

// NewBulkHandler creates a new bulk handler.
func NewBulkHandler(deps Dependencies) *BulkHandler {
	return &BulkHandler{deps: deps}
}

type bulkRequest struct {
	JobIDs       []string `json:"jobIds"`
	TriggerEvent string   `json:"triggerEvent"`
	Priority     string   `json:"priority"`
}

type bulkFailureBody struct {
	JobID string `json:"jobId"`
	Error string `json:"error"`
}

type bulkResponse struct {
	Results   []calculationResultBody `json:"results"`
	Failures  []bulkFailureBody       `json:"failures"`
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
}

func toBulkResponse(result app.BulkResult) bulkResponse {
	resp := bulkResponse{
		Results:   make([]calculationResultBody, len(result.Results)),
		Failures:  make([]bulkFailureBody, len(result.Failures)),
		Succeeded: len(result.Results),
		Failed:    len(result.Failures),
	}
	for i, r := range result.Results {
		resp.Results[i] = calculationResultBody{
			JobID:                 r.JobID,
			TotalCandidates:       r.TotalCandidates,
			CalculationDurationMS: r.CalculationDuration.Milliseconds(),
			ScoringConfigVersion:  r.ScoringConfigVersion,
		}
	}
	for i, f := range result.Failures {
		resp.Failures[i] = bulkFailureBody{JobID: f.JobID, Error: f.Error}
	}
	return resp
}

// HandleBulk handles POST /rankings/bulk.
func (h *BulkHandler) HandleBulk(w http.ResponseWriter, r *http.Request) {
	const op = "api.bulk_rankings"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
		return
	}

	result, err := h.deps.ProcessBulkRankings(r.Context(), req.JobIDs, req.TriggerEvent, app.Priority(req.Priority))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBulkResponse(result))
}

type invalidateRequest struct {
	JobID           string `json:"jobId"`
	ScoringConfigID string `json:"scoringConfigId"`
	ApplicantID     string `json:"applicantId"`
	TriggerEvent    string `json:"triggerEvent"`
}

type invalidateResponse struct {
	Status       string `json:"status"`
	JobsAffected int    `json:"jobsAffected"`
}

// HandleInvalidate handles POST /rankings/invalidate.
func (h *BulkHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	const op = "api.invalidate_rankings"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
		return
	}

	touched, err := h.deps.InvalidateRankings(r.Context(), app.InvalidationRequest{
		JobID:           req.JobID,
		ScoringConfigID: req.ScoringConfigID,
		ApplicantID:     req.ApplicantID,
		TriggerEvent:    req.TriggerEvent,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invalidateResponse{Status: "invalidated", JobsAffected: touched})
}

// HandleScheduleStale handles POST /rankings/schedule-stale.
func (h *BulkHandler) HandleScheduleStale(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	result, err := h.deps.ScheduleStaleRecalculations(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBulkResponse(result))
}
