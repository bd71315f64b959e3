package seeder

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumJobs     int           // Number of jobs to create
	Candidates  int           // Number of candidates per job
	Questions   int           // Number of questions per assessment
	TopN        int           // Number of top candidates to fetch per job
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	Verbose     bool          // Enable verbose logging
	SkipVerify  bool          // Skip the ranking verification pass
	SettleDelay time.Duration // Wait between submission and verification
}

// Stats holds counters gathered across a run.
type Stats struct {
	JobsCreated          int
	ConfigsCreated       int
	AssessmentsGenerated int
	AssessmentsSubmitted int
	AssessmentsAccepted  int
	AssessmentsFailed    int
	JobsVerified         int
	OrderViolations      int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}

// answerPayload mirrors the assessment ingress answer shape.
type answerPayload struct {
	QuestionID     string  `json:"questionId"`
	AnswerText     *string `json:"answerText"`
	IsCorrect      bool    `json:"isCorrect"`
	Weight         float64 `json:"weight"`
	NegativeWeight float64 `json:"negativeWeight,omitempty"`
}

// assessmentPayload mirrors the assessment ingress request shape.
type assessmentPayload struct {
	ID          string          `json:"id"`
	JobID       string          `json:"jobId"`
	ApplicantID string          `json:"applicantId"`
	Answers     []answerPayload `json:"answers"`
	SubmittedAt string          `json:"submittedAt"`
}

// configPayload mirrors the scoring config ingress request shape.
type configPayload struct {
	ID                      string  `json:"id,omitempty"`
	NegativeMarkingFraction float64 `json:"negativeMarkingFraction"`
	RecencyWindowDays       int     `json:"recencyWindowDays,omitempty"`
	RecencyBoostPercent     float64 `json:"recencyBoostPercent,omitempty"`
	IsDefault               bool    `json:"isDefault"`
	JobID                   string  `json:"jobId,omitempty"`
}

// jobPayload mirrors the job ingress request shape.
type jobPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ackPayload mirrors the ingress acknowledgement shape.
type ackPayload struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// rankingEntry mirrors one row of the top-candidates response.
type rankingEntry struct {
	Rank        int     `json:"rank"`
	ApplicantID string  `json:"applicantId"`
	Score       float64 `json:"score"`
	Percentage  float64 `json:"percentage"`
	IsStale     bool    `json:"isStale"`
}

// rankingsResponse mirrors the top-candidates response envelope.
type rankingsResponse struct {
	JobID      string         `json:"jobId"`
	Candidates []rankingEntry `json:"candidates"`
}
