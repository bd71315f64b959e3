// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openhire/ranker/internal/domain/model"
)

// RankingsHandler handles job-scoped ranking requests.
type RankingsHandler struct {
	deps Dependencies
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps Dependencies) *RankingsHandler {
	return &RankingsHandler{deps: deps}
}

// HandleJobScoped dispatches /jobs/{id}/rankings[...] requests.
func (h *RankingsHandler) HandleJobScoped(w http.ResponseWriter, r *http.Request) {
	const op = "api.job_rankings"

	rest := strings.TrimPrefix(r.URL.Path, "/jobs/")
	jobID, sub, _ := strings.Cut(rest, "/")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", NewKind(op, ErrBadRequest))
		return
	}

	switch {
	case sub == "rankings" && r.Method == http.MethodGet:
		h.handleTopCandidates(w, r, jobID)
	case sub == "rankings/status" && r.Method == http.MethodGet:
		h.handleStatus(w, r, jobID)
	case sub == "rankings/recalculate" && r.Method == http.MethodPost:
		h.handleRecalculate(w, r, jobID)
	default:
		http.NotFound(w, r)
	}
}

type candidateRow struct {
	Rank             int     `json:"rank"`
	ApplicantID      string  `json:"applicantId"`
	AssessmentID     string  `json:"assessmentId"`
	Score            float64 `json:"score"`
	MaxPossibleScore float64 `json:"maxPossibleScore"`
	Percentage       float64 `json:"percentage"`
	CorrectAnswers   int     `json:"correctAnswers"`
	IncorrectAnswers int     `json:"incorrectAnswers"`
	RecencyBonus     float64 `json:"recencyBonus,omitempty"`
	CalculatedAt     string  `json:"calculatedAt"`
	IsStale          bool    `json:"isStale"`
}

type statusBody struct {
	JobID                 string `json:"jobId"`
	Status                string `json:"status"`
	TotalCandidates       int    `json:"totalCandidates"`
	LastCalculatedAt      string `json:"lastCalculatedAt,omitempty"`
	CalculationDurationMS int64  `json:"calculationDurationMs,omitempty"`
	ScoringConfigVersion  int    `json:"scoringConfigVersion,omitempty"`
	TriggerEvent          string `json:"triggerEvent,omitempty"`
	ErrorMessage          string `json:"errorMessage,omitempty"`
}

type topCandidatesResponse struct {
	JobID      string         `json:"jobId"`
	Candidates []candidateRow `json:"candidates"`
	Status     statusBody     `json:"status"`
}

func toStatusBody(st model.JobRankingStatus) statusBody {
	body := statusBody{
		JobID:                 st.JobID,
		Status:                string(st.Status),
		TotalCandidates:       st.TotalCandidates,
		CalculationDurationMS: st.CalculationDuration.Milliseconds(),
		ScoringConfigVersion:  st.ScoringConfigVersion,
		TriggerEvent:          st.TriggerEvent,
		ErrorMessage:          st.ErrorMessage,
	}
	if !st.LastCalculatedAt.IsZero() {
		body.LastCalculatedAt = st.LastCalculatedAt.Format(time.RFC3339)
	}
	return body
}

// handleTopCandidates handles GET /jobs/{id}/rankings?limit=N.
func (h *RankingsHandler) handleTopCandidates(w http.ResponseWriter, r *http.Request, jobID string) {
	const op = "api.get_top_candidates"

	// limit 0 means "not supplied"; an explicit 0 or negative is invalid.
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
			return
		}
		if n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_input", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	top, err := h.deps.GetTopCandidates(r.Context(), jobID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	rows := make([]candidateRow, len(top.Candidates))
	for i, c := range top.Candidates {
		rows[i] = candidateRow{
			Rank:             c.Rank,
			ApplicantID:      c.ApplicantID,
			AssessmentID:     c.AssessmentID,
			Score:            c.Score,
			MaxPossibleScore: c.MaxPossibleScore,
			Percentage:       c.Percentage,
			CorrectAnswers:   c.CorrectAnswers,
			IncorrectAnswers: c.IncorrectAnswers,
			RecencyBonus:     c.RecencyBonus,
			CalculatedAt:     c.CalculatedAt.Format(time.RFC3339),
			IsStale:          c.IsStale,
		}
	}

	writeJSON(w, http.StatusOK, topCandidatesResponse{
		JobID:      top.JobID,
		Candidates: rows,
		Status:     toStatusBody(top.Status),
	})
}

// handleStatus handles GET /jobs/{id}/rankings/status.
func (h *RankingsHandler) handleStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	status, err := h.deps.GetJobRankingStatus(r.Context(), jobID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusBody(status))
}

type calculationResultBody struct {
	JobID                 string `json:"jobId"`
	TotalCandidates       int    `json:"totalCandidates"`
	CalculationDurationMS int64  `json:"calculationDurationMs"`
	ScoringConfigVersion  int    `json:"scoringConfigVersion"`
}

// handleRecalculate handles POST /jobs/{id}/rankings/recalculate?force=true.
func (h *RankingsHandler) handleRecalculate(w http.ResponseWriter, r *http.Request, jobID string) {
	force := r.URL.Query().Get("force") == "true"
	trigger := r.URL.Query().Get("trigger")
	if trigger == "" {
		trigger = "MANUAL"
	}

	result, err := h.deps.RecalculateJobRankings(r.Context(), jobID, trigger, force)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calculationResultBody{
		JobID:                 result.JobID,
		TotalCandidates:       result.TotalCandidates,
		CalculationDurationMS: result.CalculationDuration.Milliseconds(),
		ScoringConfigVersion:  result.ScoringConfigVersion,
	})
}
