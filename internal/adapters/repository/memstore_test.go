package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openhire/ranker/internal/domain/model"
)

func row(jobID, applicantID string, rank int, score float64) model.CandidateRanking {
	return model.CandidateRanking{
		ID:           jobID + "-" + applicantID,
		JobID:        jobID,
		ApplicantID:  applicantID,
		AssessmentID: "a-" + applicantID,
		Rank:         rank,
		Score:        score,
		CalculatedAt: time.Now(),
	}
}

func TestMemStore_ReplaceRankings(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	rows := []model.CandidateRanking{
		row("job-1", "app-b", 2, 5.0),
		row("job-1", "app-a", 1, 8.0),
	}
	status := model.JobRankingStatus{JobID: "job-1", Status: model.StateCompleted, TotalCandidates: 2}

	if err := s.ReplaceRankings(ctx, "job-1", rows, status); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.TopCandidates(ctx, "job-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Rank != 1 || got[0].ApplicantID != "app-a" {
		t.Errorf("expected app-a at rank 1, got %+v", got[0])
	}

	// Replacing again drops rows absent from the new set.
	replacement := []model.CandidateRanking{row("job-1", "app-c", 1, 9.0)}
	if err := s.ReplaceRankings(ctx, "job-1", replacement, status); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = s.TopCandidates(ctx, "job-1", 10)
	if len(got) != 1 || got[0].ApplicantID != "app-c" {
		t.Errorf("expected only app-c after replace, got %+v", got)
	}
}

func TestMemStore_TopCandidatesLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	rows := []model.CandidateRanking{
		row("job-1", "app-a", 1, 9.0),
		row("job-1", "app-b", 2, 8.0),
		row("job-1", "app-c", 3, 7.0),
	}
	if err := s.ReplaceRankings(ctx, "job-1", rows, model.JobRankingStatus{JobID: "job-1", Status: model.StateCompleted}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := s.TopCandidates(ctx, "job-1", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[1].ApplicantID != "app-b" {
		t.Errorf("expected app-b second, got %v", got[1].ApplicantID)
	}

	// Unknown job yields an empty result, not an error.
	got, err := s.TopCandidates(ctx, "missing", 5)
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty result for unknown job, got %v, %v", got, err)
	}
}

func TestMemStore_TryBeginCalculation(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	if err := s.TryBeginCalculation(ctx, "job-1", "MANUAL", false); err != nil {
		t.Fatalf("first begin should succeed: %v", err)
	}

	st, found, _ := s.Status(ctx, "job-1")
	if !found || st.Status != model.StateCalculating {
		t.Fatalf("expected CALCULATING status, got %+v found=%v", st, found)
	}

	if err := s.TryBeginCalculation(ctx, "job-1", "MANUAL", false); !errors.Is(err, ErrCalculationInProgress) {
		t.Errorf("expected ErrCalculationInProgress, got %v", err)
	}

	// force bypasses the guard.
	if err := s.TryBeginCalculation(ctx, "job-1", "FORCED", true); err != nil {
		t.Errorf("forced begin should succeed: %v", err)
	}
}

func TestMemStore_MarkStale(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	status := model.JobRankingStatus{JobID: "job-1", Status: model.StateCompleted}
	if err := s.ReplaceRankings(ctx, "job-1", []model.CandidateRanking{row("job-1", "app-a", 1, 9.0)}, status); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	touched, err := s.MarkStale(ctx, []string{"job-1", "job-unknown"}, "CONFIG_CHANGED")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if touched != 2 {
		t.Errorf("expected 2 jobs touched, got %d", touched)
	}

	st, _, _ := s.Status(ctx, "job-1")
	if st.Status != model.StateStale {
		t.Errorf("expected STALE, got %v", st.Status)
	}
	rows, _ := s.TopCandidates(ctx, "job-1", 10)
	if !rows[0].IsStale {
		t.Error("expected rows to be flagged stale")
	}

	// Unknown jobs get a synthesized STALE record.
	st, found, _ := s.Status(ctx, "job-unknown")
	if !found || st.Status != model.StateStale {
		t.Errorf("expected synthesized STALE record, got %+v found=%v", st, found)
	}
}

func TestMemStore_MarkStaleSkipsCalculating(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	if err := s.TryBeginCalculation(ctx, "job-1", "MANUAL", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.MarkStale(ctx, []string{"job-1"}, "CONFIG_CHANGED"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st, _, _ := s.Status(ctx, "job-1")
	if st.Status != model.StateCalculating {
		t.Errorf("mid-calculation status should stay CALCULATING, got %v", st.Status)
	}
}

func TestMemStore_ListStaleJobs(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	if _, err := s.MarkStale(ctx, []string{"job-c", "job-a", "job-b"}, "SWEEP"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stale, err := s.ListStaleJobs(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stale) != 2 || stale[0] != "job-a" || stale[1] != "job-b" {
		t.Errorf("expected deterministic [job-a job-b], got %v", stale)
	}

	count, _ := s.CountStale(ctx)
	if count != 3 {
		t.Errorf("expected 3 stale jobs, got %d", count)
	}
}

func TestMemStore_Assessments(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	a1 := model.Assessment{ID: "as-1", JobID: "job-1", ApplicantID: "app-a", SubmittedAt: time.Now()}
	a2 := model.Assessment{ID: "as-2", JobID: "job-1", ApplicantID: "app-b", SubmittedAt: time.Now()}
	for _, a := range []model.Assessment{a1, a2} {
		if err := s.SaveAssessment(ctx, a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Resubmission replaces the applicant's previous submission.
	a1b := a1
	a1b.ID = "as-1b"
	if err := s.SaveAssessment(ctx, a1b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, err := s.ListAssessments(ctx, "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(list))
	}
	if list[0].ID != "as-1b" {
		t.Errorf("expected the resubmission to win, got %v", list[0].ID)
	}

	jobs, _ := s.JobsForApplicant(ctx, "app-a")
	if len(jobs) != 1 || jobs[0] != "job-1" {
		t.Errorf("expected [job-1], got %v", jobs)
	}
}

func TestMemStore_Configs(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	def, err := s.SaveConfig(ctx, model.ScoringConfig{ID: "cfg-default", IsDefault: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Version != 1 {
		t.Errorf("expected version 1, got %d", def.Version)
	}

	def, err = s.SaveConfig(ctx, model.ScoringConfig{ID: "cfg-default", IsDefault: true, RecencyWindowDays: 30, RecencyBoostPercent: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Version != 2 {
		t.Errorf("expected version bump to 2, got %d", def.Version)
	}

	got, _ := s.DefaultConfig(ctx)
	if got == nil || got.Version != 2 {
		t.Fatalf("expected stored default at version 2, got %+v", got)
	}

	override, err := s.SaveConfig(ctx, model.ScoringConfig{ID: "cfg-job1", JobID: "job-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if override.Version != 1 {
		t.Errorf("expected version 1, got %d", override.Version)
	}

	jc, _ := s.JobConfig(ctx, "job-1")
	if jc == nil || jc.ID != "cfg-job1" {
		t.Fatalf("expected job override, got %+v", jc)
	}
	if jc, _ := s.JobConfig(ctx, "job-2"); jc != nil {
		t.Errorf("expected nil override for job-2, got %+v", jc)
	}
}

func TestMemStore_SingleDefaultConfig(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	if err := s.SaveJob(ctx, model.Job{ID: "job-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.SaveConfig(ctx, model.ScoringConfig{ID: "cfg-old", IsDefault: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.SaveConfig(ctx, model.ScoringConfig{ID: "cfg-new", IsDefault: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The new default demotes the previous one.
	got, _ := s.DefaultConfig(ctx)
	if got == nil || got.ID != "cfg-new" {
		t.Fatalf("expected cfg-new to be the default, got %+v", got)
	}

	// The superseded config no longer governs any job.
	jobs, err := s.JobsUsingConfig(ctx, "cfg-old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("superseded default should govern no jobs, got %v", jobs)
	}
	jobs, err = s.JobsUsingConfig(ctx, "cfg-new")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 || jobs[0] != "job-1" {
		t.Errorf("expected [job-1], got %v", jobs)
	}

	// Re-saving the current default as non-default leaves no default at all.
	if _, err := s.SaveConfig(ctx, model.ScoringConfig{ID: "cfg-new"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := s.DefaultConfig(ctx); got != nil {
		t.Errorf("expected no default after demotion, got %+v", got)
	}
}

func TestMemStore_JobsUsingConfig(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	for _, id := range []string{"job-1", "job-2", "job-3"} {
		if err := s.SaveJob(ctx, model.Job{ID: id}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := s.SaveConfig(ctx, model.ScoringConfig{ID: "cfg-default", IsDefault: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.SaveConfig(ctx, model.ScoringConfig{ID: "cfg-job2", JobID: "job-2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The override governs exactly its job.
	jobs, err := s.JobsUsingConfig(ctx, "cfg-job2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 || jobs[0] != "job-2" {
		t.Errorf("expected [job-2], got %v", jobs)
	}

	// The default governs every job without an override.
	jobs, err = s.JobsUsingConfig(ctx, "cfg-default")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 || jobs[0] != "job-1" || jobs[1] != "job-3" {
		t.Errorf("expected [job-1 job-3], got %v", jobs)
	}

	if _, err := s.JobsUsingConfig(ctx, "cfg-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStore_Jobs(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	if err := s.SaveJob(ctx, model.Job{ID: "job-1", Title: "Backend Engineer"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exists, _ := s.JobExists(ctx, "job-1")
	if !exists {
		t.Error("expected job-1 to exist")
	}
	exists, _ = s.JobExists(ctx, "job-2")
	if exists {
		t.Error("expected job-2 to not exist")
	}

	count, _ := s.CountJobs(ctx)
	if count != 1 {
		t.Errorf("expected 1 job, got %d", count)
	}
}

func TestMemStore_Close(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.SaveJob(ctx, model.Job{ID: "job-1"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed on write after close, got %v", err)
	}
	// Reads keep working for draining handlers.
	if _, err := s.TopCandidates(ctx, "job-1", 1); err != nil {
		t.Errorf("expected reads to keep working, got %v", err)
	}
}
