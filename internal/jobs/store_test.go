package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"luster/internal/jobs"
	"luster/internal/testsupport"
)

func TestCreateAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "photo.jpg")

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected job to exist")
	}
	if fetched.Status != jobs.StatusReceived {
		t.Fatalf("expected received status, got %s", fetched.Status)
	}
	if fetched.OriginalFilename != "photo.jpg" {
		t.Fatalf("unexpected filename %q", fetched.OriginalFilename)
	}
	if fetched.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "a.png")

	err := store.Create(ctx, &jobs.Job{ID: job.ID})
	if !errors.Is(err, jobs.ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestGetByIDUnknownReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job, err := store.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job, got %#v", job)
	}
}

func TestTransitionLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "b.png")

	updated, err := store.Transition(ctx, job.ID, jobs.StatusProcessing, "", "")
	if err != nil {
		t.Fatalf("transition to processing failed: %v", err)
	}
	if updated.Status != jobs.StatusProcessing {
		t.Fatalf("expected processing, got %s", updated.Status)
	}

	updated, err = store.Transition(ctx, job.ID, jobs.StatusCompleted, "/results/x.png", "")
	if err != nil {
		t.Fatalf("transition to completed failed: %v", err)
	}
	if updated.ResultPath != "/results/x.png" {
		t.Fatalf("expected result path recorded, got %q", updated.ResultPath)
	}
	if updated.ErrorMessage != "" {
		t.Fatalf("completed job must not carry an error, got %q", updated.ErrorMessage)
	}
}

func TestTransitionOutOfTerminalRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "c.png")

	if _, err := store.Transition(ctx, job.ID, jobs.StatusFailed, "", "worker crashed"); err != nil {
		t.Fatalf("transition to failed: %v", err)
	}

	_, err := store.Transition(ctx, job.ID, jobs.StatusProcessing, "", "")
	if !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	_, err = store.Transition(ctx, job.ID, jobs.StatusCompleted, "/r.png", "")
	if !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransitionSameStatusIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "d.png")

	if _, err := store.Transition(ctx, job.ID, jobs.StatusCompleted, "/r.png", ""); err != nil {
		t.Fatalf("transition to completed: %v", err)
	}
	// A second monitor observing the same artifact must not error.
	got, err := store.Transition(ctx, job.ID, jobs.StatusCompleted, "/r.png", "")
	if err != nil {
		t.Fatalf("idempotent transition failed: %v", err)
	}
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}

func TestTransitionUnknownJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Transition(context.Background(), "nope", jobs.StatusProcessing, "", "")
	if !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFailedJobRecordsError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "e.png")

	updated, err := store.Transition(ctx, job.ID, jobs.StatusFailed, "", "spawn failed")
	if err != nil {
		t.Fatalf("transition to failed: %v", err)
	}
	if updated.ErrorMessage != "spawn failed" {
		t.Fatalf("expected error recorded, got %q", updated.ErrorMessage)
	}
	if updated.ResultPath != "" {
		t.Fatalf("failed job must not carry a result, got %q", updated.ResultPath)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewJob(t, store, "1.png")
	second := testsupport.NewJob(t, store, "2.png")
	if _, err := store.Transition(ctx, second.ID, jobs.StatusCompleted, "/r.png", ""); err != nil {
		t.Fatalf("transition: %v", err)
	}

	received, err := store.List(ctx, jobs.StatusReceived)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(received) != 1 || received[0].ID != first.ID {
		t.Fatalf("unexpected received list: %#v", received)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List all failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all))
	}
}

func TestPurgeTerminalRespectsCutoff(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	done := testsupport.NewJob(t, store, "old.png")
	if _, err := store.Transition(ctx, done.ID, jobs.StatusCompleted, "/r.png", ""); err != nil {
		t.Fatalf("transition: %v", err)
	}
	live := testsupport.NewJob(t, store, "live.png")

	// Cutoff in the future relative to the terminal job's update.
	count, err := store.PurgeTerminal(ctx, time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeTerminal failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 purge, got %d", count)
	}

	remaining, err := store.GetByID(ctx, live.ID)
	if err != nil || remaining == nil {
		t.Fatalf("live job should survive purge: %v %#v", err, remaining)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewJob(t, store, "a.png")
	b := testsupport.NewJob(t, store, "b.png")
	if _, err := store.Transition(ctx, b.ID, jobs.StatusFailed, "", "boom"); err != nil {
		t.Fatalf("transition: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 2 || health.Received != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}
