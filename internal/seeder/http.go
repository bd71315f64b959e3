package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openhire/ranker/pkg/logger"
)

// HTTP status code constants.
const (
	statusOK       = 200
	statusAccepted = 202
)

// Worker channel sizing.
const workerChannelMultiplier = 2

// httpClient wraps http.Client with a request timeout.
type httpClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *httpClient {
	return &httpClient{client: &http.Client{Timeout: timeout}}
}

// do performs a JSON request and decodes the JSON response into out when
// out is non-nil. It returns the HTTP status code.
func (c *httpClient) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// createJobs registers all generated jobs with the service.
func createJobs(ctx context.Context, config *Config, client *httpClient, jobs []jobPayload, stats *Stats) error {
	url := config.BaseURL + "/jobs"
	for _, job := range jobs {
		code, err := client.do(ctx, http.MethodPut, url, job, nil)
		if err != nil {
			return fmt.Errorf("failed to create job %s: %w", job.ID, err)
		}
		if code != statusOK {
			return fmt.Errorf("unexpected status %d creating job %s", code, job.ID)
		}
		stats.JobsCreated++
	}
	logger.Get().Info(ctx, "jobs created", logger.Int("count", stats.JobsCreated))
	return nil
}

// createDefaultConfig installs a default scoring config so every seeded
// job has an effective config.
func createDefaultConfig(ctx context.Context, config *Config, client *httpClient, stats *Stats) error {
	url := config.BaseURL + "/scoring-configs"
	payload := configPayload{
		NegativeMarkingFraction: 0.25,
		RecencyWindowDays:       30,
		RecencyBoostPercent:     10,
		IsDefault:               true,
	}
	code, err := client.do(ctx, http.MethodPut, url, payload, nil)
	if err != nil {
		return fmt.Errorf("failed to create default scoring config: %w", err)
	}
	if code != statusOK {
		return fmt.Errorf("unexpected status %d creating default scoring config", code)
	}
	stats.ConfigsCreated++
	return nil
}

// submitAssessments submits assessments concurrently using a worker pool.
func submitAssessments(ctx context.Context, config *Config, client *httpClient, assessments []assessmentPayload, stats *Stats) error {
	log := logger.Get()
	log.Info(ctx, "submitting assessments",
		logger.Int("count", len(assessments)), logger.Int("workers", config.Workers))

	url := config.BaseURL + "/assessments"

	var (
		accepted  int64
		failed    int64
		submitted int64
	)

	payloadChan := make(chan assessmentPayload, config.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for payload := range payloadChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddInt64(&submitted, 1)
				code, err := client.do(ctx, http.MethodPost, url, payload, nil)
				if err == nil && code == statusAccepted {
					atomic.AddInt64(&accepted, 1)
				} else {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						log.Warn(ctx, "assessment rejected",
							logger.String("assessmentID", payload.ID),
							logger.Int("status", code), logger.Error(err))
					}
				}
			}
		}()
	}

	go func() {
		defer close(payloadChan)
		for _, payload := range assessments {
			select {
			case <-ctx.Done():
				return
			case payloadChan <- payload:
			}
		}
	}()

	wg.Wait()

	stats.AssessmentsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.AssessmentsAccepted = int(atomic.LoadInt64(&accepted))
	stats.AssessmentsFailed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "assessment submission completed",
		logger.Int("accepted", stats.AssessmentsAccepted),
		logger.Int("failed", stats.AssessmentsFailed))
	return nil
}
