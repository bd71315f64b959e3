// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openhire/ranker/internal/domain/model"
)

// IngressHandler handles the write endpoints that feed the event pipeline:
// assessment submissions, scoring config upserts, and job upserts.
type IngressHandler struct {
	deps Dependencies
}

// NewIngressHandler creates a new ingress handler.
func NewIngressHandler(deps Dependencies) *IngressHandler {
	return &IngressHandler{deps: deps}
}

type answerBody struct {
	QuestionID     string  `json:"questionId"`
	AnswerText     *string `json:"answerText"`
	IsCorrect      bool    `json:"isCorrect"`
	Weight         float64 `json:"weight"`
	NegativeWeight float64 `json:"negativeWeight,omitempty"`
}

type assessmentRequest struct {
	ID          string       `json:"id"`
	JobID       string       `json:"jobId"`
	ApplicantID string       `json:"applicantId"`
	Answers     []answerBody `json:"answers"`
	SubmittedAt string       `json:"submittedAt"`
}

func (req assessmentRequest) validate() error {
	switch {
	case strings.TrimSpace(req.JobID) == "":
		return errors.New("missing jobId")
	case strings.TrimSpace(req.ApplicantID) == "":
		return errors.New("missing applicantId")
	case len(req.Answers) == 0:
		return errors.New("missing answers")
	}
	for _, a := range req.Answers {
		if strings.TrimSpace(a.QuestionID) == "" {
			return errors.New("answer missing questionId")
		}
		if a.Weight < 0 {
			return errors.New("answer weight must not be negative")
		}
	}
	if req.SubmittedAt != "" {
		if _, err := time.Parse(time.RFC3339, req.SubmittedAt); err != nil {
			return errors.New("invalid submittedAt; must be RFC3339")
		}
	}
	return nil
}

type ackResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// HandleSubmitAssessment handles POST /assessments.
func (h *IngressHandler) HandleSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_assessment"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req assessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
		return
	}

	answers := make([]model.AssessmentAnswer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = model.AssessmentAnswer{
			QuestionID:     a.QuestionID,
			AnswerText:     a.AnswerText,
			IsCorrect:      a.IsCorrect,
			Weight:         a.Weight,
			NegativeWeight: a.NegativeWeight,
		}
	}

	assessment := model.Assessment{
		ID:          req.ID,
		JobID:       req.JobID,
		ApplicantID: req.ApplicantID,
		Answers:     answers,
	}
	if req.SubmittedAt != "" {
		submittedAt, _ := time.Parse(time.RFC3339, req.SubmittedAt)
		assessment.SubmittedAt = submittedAt
	}

	saved, err := h.deps.SubmitAssessment(r.Context(), assessment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", ID: saved.ID})
}

type configRequest struct {
	ID                      string  `json:"id"`
	NegativeMarkingFraction float64 `json:"negativeMarkingFraction"`
	RecencyWindowDays       int     `json:"recencyWindowDays,omitempty"`
	RecencyBoostPercent     float64 `json:"recencyBoostPercent,omitempty"`
	IsDefault               bool    `json:"isDefault"`
	JobID                   string  `json:"jobId,omitempty"`
}

type configResponse struct {
	configRequest
	Version int `json:"version"`
}

// HandleUpsertConfig handles PUT /scoring-configs.
func (h *IngressHandler) HandleUpsertConfig(w http.ResponseWriter, r *http.Request) {
	const op = "api.upsert_scoring_config"
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}

	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
		return
	}

	saved, err := h.deps.UpsertScoringConfig(r.Context(), model.ScoringConfig{
		ID:                      req.ID,
		NegativeMarkingFraction: req.NegativeMarkingFraction,
		RecencyWindowDays:       req.RecencyWindowDays,
		RecencyBoostPercent:     req.RecencyBoostPercent,
		IsDefault:               req.IsDefault,
		JobID:                   req.JobID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, configResponse{
		configRequest: configRequest{
			ID:                      saved.ID,
			NegativeMarkingFraction: saved.NegativeMarkingFraction,
			RecencyWindowDays:       saved.RecencyWindowDays,
			RecencyBoostPercent:     saved.RecencyBoostPercent,
			IsDefault:               saved.IsDefault,
			JobID:                   saved.JobID,
		},
		Version: saved.Version,
	})
}

type jobRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// HandleUpsertJob handles PUT /jobs.
func (h *IngressHandler) HandleUpsertJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.upsert_job"
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}

	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", WrapKind(op, ErrBadRequest, err))
		return
	}

	saved, err := h.deps.UpsertJob(r.Context(), model.Job{ID: req.ID, Title: req.Title})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "updated", ID: saved.ID})
}
