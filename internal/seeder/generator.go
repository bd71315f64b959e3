package seeder

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	profileDivisor     = 5
)

// Candidate profile cases. The spread keeps leaderboards interesting:
// strong candidates answer almost everything correctly, weak ones barely any.
const (
	caseStrongCandidate  = 0
	caseAverageCandidate = 1
	caseWeakCandidate    = 2
	caseSkipper          = 3
	caseMixedCandidate   = 4
)

// Correct-answer probability per profile.
const (
	strongCorrectRate  = 0.9
	averageCorrectRate = 0.6
	weakCorrectRate    = 0.25
	mixedCorrectRate   = 0.5
	skipperSkipRate    = 0.5
)

// Submission recency spread in days. Some candidates fall inside a
// typical recency window, some outside it.
const maxSubmissionAgeDays = 60

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateJobs creates job payloads with unique IDs.
func generateJobs(config *Config) []jobPayload {
	jobs := make([]jobPayload, config.NumJobs)
	for i := range jobs {
		jobs[i] = jobPayload{
			ID:    uuid.New().String(),
			Title: "Seeded Job " + strconv.Itoa(i+1),
		}
	}
	return jobs
}

// generateAssessments creates one assessment per candidate for each job.
func generateAssessments(config *Config, jobs []jobPayload) []assessmentPayload {
	assessments := make([]assessmentPayload, 0, len(jobs)*config.Candidates)
	for _, job := range jobs {
		for c := 0; c < config.Candidates; c++ {
			assessments = append(assessments, generateSingleAssessment(config, job.ID))
		}
	}
	return assessments
}

// generateSingleAssessment creates an assessment for a fresh applicant
// with answers drawn from a random candidate profile.
func generateSingleAssessment(config *Config, jobID string) assessmentPayload {
	profile, _ := rand.Int(rand.Reader, big.NewInt(profileDivisor))

	answers := make([]answerPayload, config.Questions)
	for q := range answers {
		answers[q] = generateAnswer(q, profile.Int64())
	}

	ageDays, _ := rand.Int(rand.Reader, big.NewInt(maxSubmissionAgeDays))
	submittedAt := time.Now().UTC().AddDate(0, 0, -int(ageDays.Int64()))

	return assessmentPayload{
		ID:          uuid.New().String(),
		JobID:       jobID,
		ApplicantID: uuid.New().String(),
		Answers:     answers,
		SubmittedAt: submittedAt.Format(time.RFC3339),
	}
}

// generateAnswer produces one answer for the given question index
// following the candidate profile.
func generateAnswer(index int, profile int64) answerPayload {
	questionID := "q-" + strconv.Itoa(index+1)
	weight := 1.0
	// Every third question is worth double.
	if index%3 == 2 {
		weight = 2.0
	}

	var correctRate float64
	skipped := false
	switch profile {
	case caseStrongCandidate:
		correctRate = strongCorrectRate
	case caseAverageCandidate:
		correctRate = averageCorrectRate
	case caseWeakCandidate:
		correctRate = weakCorrectRate
	case caseSkipper:
		correctRate = averageCorrectRate
		skipped = getRandomFloat() < skipperSkipRate
	case caseMixedCandidate:
		correctRate = mixedCorrectRate
	default:
		correctRate = mixedCorrectRate
	}

	if skipped {
		return answerPayload{
			QuestionID: questionID,
			AnswerText: nil,
			Weight:     weight,
		}
	}

	text := "answer-" + strconv.Itoa(index+1)
	return answerPayload{
		QuestionID: questionID,
		AnswerText: &text,
		IsCorrect:  getRandomFloat() < correctRate,
		Weight:     weight,
	}
}
