package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"luster/internal/config"
	"luster/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a received job with a fresh identifier for tests.
func NewJob(t testing.TB, store *jobs.Store, originalFilename string) *jobs.Job {
	t.Helper()

	job := &jobs.Job{
		ID:               uuid.NewString(),
		Status:           jobs.StatusReceived,
		OriginalFilename: originalFilename,
	}
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}
