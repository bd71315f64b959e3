// Package seeder generates synthetic jobs, scoring configs, and
// assessments, submits them against a running service, and verifies the
// resulting leaderboards.
package seeder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openhire/ranker/pkg/logger"
)

// percentage display multiplier.
const percentageMultiplier = 100

// Run executes a full seeding cycle: health check, job and config
// creation, concurrent assessment submission, and ranking verification.
func Run(ctx context.Context, config *Config) error {
	log := logger.Get()
	stats := &Stats{StartTime: time.Now()}

	client := newHTTPClient(config.Timeout)

	if err := checkHealth(ctx, config, client); err != nil {
		return err
	}

	jobs := generateJobs(config)
	if err := createJobs(ctx, config, client, jobs, stats); err != nil {
		return err
	}
	if err := createDefaultConfig(ctx, config, client, stats); err != nil {
		return err
	}

	assessments := generateAssessments(config, jobs)
	stats.AssessmentsGenerated = len(assessments)
	log.Info(ctx, "generated assessments", logger.Int("count", len(assessments)))

	if err := submitAssessments(ctx, config, client, assessments, stats); err != nil {
		return err
	}

	if !config.SkipVerify {
		// Give the background recalculations a moment to land.
		log.Info(ctx, "waiting for rankings to settle",
			logger.Duration("delay", config.SettleDelay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(config.SettleDelay):
		}

		if err := verifyRankings(ctx, config, client, jobs, stats); err != nil {
			return err
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	printSummary(ctx, stats)

	if stats.OrderViolations > 0 {
		return fmt.Errorf("%d ranking order violations detected", stats.OrderViolations)
	}
	return nil
}

// checkHealth verifies the service is reachable before seeding.
func checkHealth(ctx context.Context, config *Config, client *httpClient) error {
	code, err := client.do(ctx, http.MethodGet, config.BaseURL+"/healthz", nil, nil)
	if err != nil {
		return fmt.Errorf("service unreachable at %s: %w", config.BaseURL, err)
	}
	if code != statusOK {
		return fmt.Errorf("health check returned status %d", code)
	}
	return nil
}

// printSummary logs the run statistics.
func printSummary(ctx context.Context, stats *Stats) {
	acceptRate := 0.0
	if stats.AssessmentsSubmitted > 0 {
		acceptRate = float64(stats.AssessmentsAccepted) / float64(stats.AssessmentsSubmitted) * percentageMultiplier
	}

	logger.Get().Info(ctx, "seeding completed",
		logger.Int("jobsCreated", stats.JobsCreated),
		logger.Int("configsCreated", stats.ConfigsCreated),
		logger.Int("assessmentsAccepted", stats.AssessmentsAccepted),
		logger.Int("assessmentsFailed", stats.AssessmentsFailed),
		logger.Float64("acceptRatePct", acceptRate),
		logger.Int("jobsVerified", stats.JobsVerified),
		logger.Int("orderViolations", stats.OrderViolations),
		logger.Duration("duration", stats.Duration),
	)
}
