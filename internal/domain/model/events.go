package model

// EventType identifies a domain event on the bus.
type EventType string

// Domain event types.
const (
	EventAssessmentSubmitted  EventType = "ASSESSMENT_SUBMITTED"
	EventScoringConfigChanged EventType = "SCORING_CONFIG_CHANGED"
	EventJobUpdated           EventType = "JOB_UPDATED"
	EventRankingCalculated    EventType = "RANKING_CALCULATED"
)

// Event is the envelope carried by the bus. Transient; never persisted.
// EventID is unique per publish so handlers can dedupe redeliveries.
type Event struct {
	EventID string
	Type    EventType

	// Populated per type; unused fields stay zero.
	AssessmentID    string
	JobID           string
	ApplicantID     string
	ConfigID        string
	IsDefault       bool
	TotalCandidates int
	DurationMS      int64
}
