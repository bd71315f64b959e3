package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openhire/ranker/internal/adapters/http/api"
	app "github.com/openhire/ranker/internal/app"
	"github.com/openhire/ranker/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeService implements api.Dependencies and api.StatsProvider with
// canned responses and captured arguments.
type fakeService struct {
	topCandidates app.TopCandidates
	topErr        error
	status        model.JobRankingStatus
	statusErr     error
	recalcResult  model.RankingCalculationResult
	recalcErr     error
	bulkResult    app.BulkResult
	bulkErr       error
	invalidated   int
	invalidateErr error
	submitErr     error
	configErr     error

	lastJobID    string
	lastLimit    int
	lastTrigger  string
	lastForce    bool
	lastPriority app.Priority
	lastBulkJobs []string
	lastInvReq   app.InvalidationRequest
	lastSubmit   model.Assessment
	lastConfig   model.ScoringConfig
	lastJob      model.Job
}

func (f *fakeService) GetTopCandidates(_ context.Context, jobID string, limit int) (app.TopCandidates, error) {
	f.lastJobID, f.lastLimit = jobID, limit
	return f.topCandidates, f.topErr
}

func (f *fakeService) GetJobRankingStatus(_ context.Context, jobID string) (model.JobRankingStatus, error) {
	f.lastJobID = jobID
	return f.status, f.statusErr
}

func (f *fakeService) RecalculateJobRankings(_ context.Context, jobID, trigger string, force bool) (model.RankingCalculationResult, error) {
	f.lastJobID, f.lastTrigger, f.lastForce = jobID, trigger, force
	return f.recalcResult, f.recalcErr
}

func (f *fakeService) ProcessBulkRankings(_ context.Context, jobIDs []string, trigger string, priority app.Priority) (app.BulkResult, error) {
	f.lastBulkJobs, f.lastTrigger, f.lastPriority = jobIDs, trigger, priority
	return f.bulkResult, f.bulkErr
}

func (f *fakeService) InvalidateRankings(_ context.Context, req app.InvalidationRequest) (int, error) {
	f.lastInvReq = req
	return f.invalidated, f.invalidateErr
}

func (f *fakeService) ScheduleStaleRecalculations(_ context.Context) (app.BulkResult, error) {
	return f.bulkResult, f.bulkErr
}

func (f *fakeService) SubmitAssessment(_ context.Context, a model.Assessment) (model.Assessment, error) {
	f.lastSubmit = a
	if a.ID == "" {
		a.ID = "generated-id"
	}
	return a, f.submitErr
}

func (f *fakeService) UpsertScoringConfig(_ context.Context, cfg model.ScoringConfig) (model.ScoringConfig, error) {
	f.lastConfig = cfg
	cfg.Version = 1
	return cfg, f.configErr
}

func (f *fakeService) UpsertJob(_ context.Context, j model.Job) (model.Job, error) {
	f.lastJob = j
	return j, nil
}

func (f *fakeService) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestServer(fake *fakeService) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(fake, fake).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHealthAndStats(t *testing.T) {
	Convey("Given a running API server", t, func() {
		fake := &fakeService{}
		srv := newTestServer(fake)
		defer srv.Close()

		Convey("When checking health", func() {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/healthz", "")

			Convey("Then it reports ok", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["status"], ShouldEqual, "ok")
			})
		})

		Convey("When reading stats", func() {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/stats", "")

			Convey("Then the provider map is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["started"], ShouldEqual, true)
			})
		})

		Convey("When using the wrong method", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/healthz", "")

			Convey("Then it is not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestRankingsEndpoints(t *testing.T) {
	Convey("Given a running API server", t, func() {
		now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		fake := &fakeService{
			topCandidates: app.TopCandidates{
				JobID: "job-1",
				Candidates: []model.CandidateRanking{
					{Rank: 1, ApplicantID: "app-a", AssessmentID: "as-a", Score: 6.875, MaxPossibleScore: 10, Percentage: 68.75, CorrectAnswers: 7, IncorrectAnswers: 3, RecencyBonus: 0.625, CalculatedAt: now},
				},
				Status: model.JobRankingStatus{JobID: "job-1", Status: model.StateCompleted, TotalCandidates: 1, LastCalculatedAt: now},
			},
			status:       model.JobRankingStatus{JobID: "job-1", Status: model.StateStale},
			recalcResult: model.RankingCalculationResult{JobID: "job-1", TotalCandidates: 1, ScoringConfigVersion: 2},
		}
		srv := newTestServer(fake)
		defer srv.Close()

		Convey("When fetching top candidates", func() {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/jobs/job-1/rankings?limit=10", "")

			Convey("Then the ranked rows are returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(fake.lastJobID, ShouldEqual, "job-1")
				So(fake.lastLimit, ShouldEqual, 10)

				candidates := body["candidates"].([]any)
				So(len(candidates), ShouldEqual, 1)
				first := candidates[0].(map[string]any)
				So(first["rank"], ShouldEqual, 1)
				So(first["applicantId"], ShouldEqual, "app-a")
				So(first["score"], ShouldAlmostEqual, 6.875, 1e-9)

				status := body["status"].(map[string]any)
				So(status["status"], ShouldEqual, "COMPLETED")
			})
		})

		Convey("When the limit is not a number", func() {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/jobs/job-1/rankings?limit=abc", "")

			Convey("Then it is a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(body["code"], ShouldEqual, "invalid_input")
			})
		})

		Convey("When the limit is explicitly zero", func() {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/jobs/job-1/rankings?limit=0", "")

			Convey("Then it is a bad request, not a silent default", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(body["code"], ShouldEqual, "invalid_input")
			})
		})

		Convey("When the limit is negative", func() {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/jobs/job-1/rankings?limit=-3", "")

			Convey("Then it is a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(body["code"], ShouldEqual, "invalid_input")
			})
		})

		Convey("When fetching the status", func() {
			resp, body := doJSON(t, http.MethodGet, srv.URL+"/jobs/job-1/rankings/status", "")

			Convey("Then the status body is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["jobId"], ShouldEqual, "job-1")
				So(body["status"], ShouldEqual, "STALE")
			})
		})

		Convey("When recalculating with force", func() {
			resp, body := doJSON(t, http.MethodPost, srv.URL+"/jobs/job-1/rankings/recalculate?force=true&trigger=ADMIN", "")

			Convey("Then the calculation result is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(fake.lastForce, ShouldBeTrue)
				So(fake.lastTrigger, ShouldEqual, "ADMIN")
				So(body["scoringConfigVersion"], ShouldEqual, 2)
			})
		})

		Convey("When recalculating without a trigger", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/jobs/job-1/rankings/recalculate", "")

			Convey("Then the trigger defaults to MANUAL", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(fake.lastTrigger, ShouldEqual, "MANUAL")
				So(fake.lastForce, ShouldBeFalse)
			})
		})

		Convey("When the recalculation conflicts", func() {
			fake.recalcErr = fmt.Errorf("%w: job job-1", app.ErrConflict)
			resp, body := doJSON(t, http.MethodPost, srv.URL+"/jobs/job-1/rankings/recalculate", "")

			Convey("Then it maps to 409", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
				So(body["code"], ShouldEqual, "conflict")
			})
		})

		Convey("When the job is unknown", func() {
			fake.recalcErr = fmt.Errorf("%w: job job-1", app.ErrNotFound)
			resp, body := doJSON(t, http.MethodPost, srv.URL+"/jobs/job-1/rankings/recalculate", "")

			Convey("Then it maps to 404", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				So(body["code"], ShouldEqual, "not_found")
			})
		})

		Convey("When the service fails internally", func() {
			fake.recalcErr = fmt.Errorf("db exploded")
			resp, body := doJSON(t, http.MethodPost, srv.URL+"/jobs/job-1/rankings/recalculate", "")

			Convey("Then it maps to 500", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)
				So(body["code"], ShouldEqual, "internal_error")
			})
		})

		Convey("When the subpath is unknown", func() {
			resp, _ := doJSON(t, http.MethodGet, srv.URL+"/jobs/job-1/nonsense", "")

			Convey("Then it is not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestIngressEndpoints(t *testing.T) {
	Convey("Given a running API server", t, func() {
		fake := &fakeService{}
		srv := newTestServer(fake)
		defer srv.Close()

		Convey("When submitting a valid assessment", func() {
			body := `{
				"jobId": "job-1",
				"applicantId": "app-a",
				"submittedAt": "2026-05-20T10:00:00Z",
				"answers": [
					{"questionId": "q1", "answerText": "B", "isCorrect": true, "weight": 1.0},
					{"questionId": "q2", "answerText": null, "isCorrect": false, "weight": 1.0}
				]
			}`
			resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/assessments", body)

			Convey("Then it is accepted", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				So(decoded["status"], ShouldEqual, "accepted")
				So(decoded["id"], ShouldNotBeEmpty)
				So(fake.lastSubmit.JobID, ShouldEqual, "job-1")
				So(len(fake.lastSubmit.Answers), ShouldEqual, 2)
				So(fake.lastSubmit.Answers[0].AnswerText, ShouldNotBeNil)
				So(fake.lastSubmit.Answers[1].AnswerText, ShouldBeNil)
			})
		})

		Convey("When the assessment body is not JSON", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/assessments", "{not json")

			Convey("Then it is a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the assessment misses answers", func() {
			resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/assessments", `{"jobId":"job-1","applicantId":"app-a","answers":[]}`)

			Convey("Then it is a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(decoded["code"], ShouldEqual, "invalid_input")
			})
		})

		Convey("When the submittedAt is malformed", func() {
			body := `{"jobId":"job-1","applicantId":"app-a","submittedAt":"yesterday","answers":[{"questionId":"q1","weight":1}]}`
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/assessments", body)

			Convey("Then it is a bad request", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the job does not exist", func() {
			fake.submitErr = fmt.Errorf("%w: job job-1", app.ErrNotFound)
			body := `{"jobId":"job-1","applicantId":"app-a","answers":[{"questionId":"q1","weight":1}]}`
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/assessments", body)

			Convey("Then it maps to 404", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When upserting a scoring config", func() {
			body := `{"id":"cfg-1","negativeMarkingFraction":0.25,"recencyWindowDays":30,"recencyBoostPercent":10,"isDefault":true}`
			resp, decoded := doJSON(t, http.MethodPut, srv.URL+"/scoring-configs", body)

			Convey("Then the stored config is returned with its version", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(decoded["version"], ShouldEqual, 1)
				So(fake.lastConfig.NegativeMarkingFraction, ShouldAlmostEqual, 0.25, 1e-9)
			})
		})

		Convey("When the config violates an invariant", func() {
			fake.configErr = fmt.Errorf("%w: negative marking out of range", app.ErrInvalidInput)
			resp, decoded := doJSON(t, http.MethodPut, srv.URL+"/scoring-configs", `{"negativeMarkingFraction":2.0}`)

			Convey("Then it maps to 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(decoded["code"], ShouldEqual, "invalid_input")
			})
		})

		Convey("When upserting a job", func() {
			resp, decoded := doJSON(t, http.MethodPut, srv.URL+"/jobs", `{"id":"job-1","title":"Backend Engineer"}`)

			Convey("Then it is stored", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(decoded["status"], ShouldEqual, "updated")
				So(fake.lastJob.Title, ShouldEqual, "Backend Engineer")
			})
		})

		Convey("When POSTing to the job upsert route", func() {
			resp, _ := doJSON(t, http.MethodPost, srv.URL+"/jobs", `{"id":"job-1"}`)

			Convey("Then it is not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestBulkEndpoints(t *testing.T) {
	Convey("Given a running API server", t, func() {
		fake := &fakeService{
			bulkResult: app.BulkResult{
				Results: []model.RankingCalculationResult{
					{JobID: "job-1", TotalCandidates: 3, CalculationDuration: 40 * time.Millisecond, ScoringConfigVersion: 1},
				},
				Failures: []app.BulkFailure{{JobID: "job-2", Error: "no scoring config"}},
			},
			invalidated: 4,
		}
		srv := newTestServer(fake)
		defer srv.Close()

		Convey("When running a bulk recalculation", func() {
			body := `{"jobIds":["job-1","job-2"],"triggerEvent":"ADMIN_BULK","priority":"high"}`
			resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/rankings/bulk", body)

			Convey("Then the partial-success summary is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(decoded["succeeded"], ShouldEqual, 1)
				So(decoded["failed"], ShouldEqual, 1)
				So(fake.lastPriority, ShouldEqual, app.PriorityHigh)
				So(len(fake.lastBulkJobs), ShouldEqual, 2)

				failures := decoded["failures"].([]any)
				first := failures[0].(map[string]any)
				So(first["jobId"], ShouldEqual, "job-2")
			})
		})

		Convey("When the bulk request is invalid", func() {
			fake.bulkErr = fmt.Errorf("%w: jobIds must not be empty", app.ErrInvalidInput)
			resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/rankings/bulk", `{"jobIds":[]}`)

			Convey("Then it maps to 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(decoded["code"], ShouldEqual, "invalid_input")
			})
		})

		Convey("When invalidating rankings", func() {
			body := `{"scoringConfigId":"cfg-1","triggerEvent":"CONFIG_ROLLOUT"}`
			resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/rankings/invalidate", body)

			Convey("Then the affected count is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(decoded["status"], ShouldEqual, "invalidated")
				So(decoded["jobsAffected"], ShouldEqual, 4)
				So(fake.lastInvReq.ScoringConfigID, ShouldEqual, "cfg-1")
			})
		})

		Convey("When scheduling the stale sweep", func() {
			resp, decoded := doJSON(t, http.MethodPost, srv.URL+"/rankings/schedule-stale", "")

			Convey("Then the sweep summary is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(decoded["succeeded"], ShouldEqual, 1)
			})
		})

		Convey("When GETting a bulk route", func() {
			resp, _ := doJSON(t, http.MethodGet, srv.URL+"/rankings/bulk", "")

			Convey("Then it is not found", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}
