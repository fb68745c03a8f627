package daemon_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"luster/internal/config"
	"luster/internal/daemon"
	"luster/internal/fileutil"
	"luster/internal/jobs"
	"luster/internal/logging"
	"luster/internal/testsupport"
)

func startDaemon(t *testing.T, cfg *config.Config, store *jobs.Store) *daemon.Daemon {
	t.Helper()

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestStartEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	d := startDaemon(t, cfg, store)
	status := d.Status()
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.APIAddress == "" {
		t.Fatal("expected bound api address")
	}

	second, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail lock acquisition")
	}
}

func TestStopReleasesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	d.Stop()
	if d.Status().Running {
		t.Fatal("expected stopped daemon")
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("restart after Stop: %v", err)
	}
	d.Stop()
}

func TestSweepExpiresUnwatchedStaleJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Monitor.ProcessingTimeout = 1
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "sunset.png")

	startDaemon(t, cfg, store)

	waitForStatus(t, store, job.ID, jobs.StatusFailed, 10*time.Second)
	current, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if current.ErrorMessage == "" {
		t.Fatal("expected timeout error message")
	}
}

func TestSweepResolvesUnwatchedFinishedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Monitor.ProcessingTimeout = 1
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "sunset.png")

	resultPath := filepath.Join(cfg.Paths.ResultsDir, job.ID+".png")
	if err := fileutil.WriteAtomic(resultPath, []byte("enhanced"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	startDaemon(t, cfg, store)

	waitForStatus(t, store, job.ID, jobs.StatusCompleted, 10*time.Second)
	current, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if current.ResultPath != resultPath {
		t.Fatalf("expected result path %q, got %q", resultPath, current.ResultPath)
	}
}

func waitForStatus(t *testing.T, store *jobs.Store, jobID string, want jobs.Status, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job != nil && job.Status == want {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", jobID, want)
}
