package seeder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openhire/ranker/pkg/logger"
)

// verifyRankings fetches the leaderboard for every seeded job and checks
// that ranks are dense starting at 1 and scores never increase down the
// list. Violations are logged and counted, not fatal.
func verifyRankings(ctx context.Context, config *Config, client *httpClient, jobs []jobPayload, stats *Stats) error {
	log := logger.Get()

	for _, job := range jobs {
		url := fmt.Sprintf("%s/jobs/%s/rankings?limit=%d", config.BaseURL, job.ID, config.TopN)

		var resp rankingsResponse
		code, err := client.do(ctx, http.MethodGet, url, nil, &resp)
		if err != nil {
			return fmt.Errorf("failed to fetch rankings for job %s: %w", job.ID, err)
		}
		if code != statusOK {
			return fmt.Errorf("unexpected status %d fetching rankings for job %s", code, job.ID)
		}

		violations := checkOrdering(resp.Candidates)
		stats.OrderViolations += violations
		stats.JobsVerified++

		if violations > 0 {
			log.Warn(ctx, "ranking order violations",
				logger.String("jobID", job.ID), logger.Int("violations", violations))
		} else if config.Verbose {
			log.Info(ctx, "ranking verified",
				logger.String("jobID", job.ID), logger.Int("candidates", len(resp.Candidates)))
		}
	}
	return nil
}

// checkOrdering returns the number of rank or score ordering violations.
func checkOrdering(entries []rankingEntry) int {
	violations := 0
	for i, entry := range entries {
		if entry.Rank != i+1 {
			violations++
		}
		if i > 0 && entry.Score > entries[i-1].Score {
			violations++
		}
	}
	return violations
}
