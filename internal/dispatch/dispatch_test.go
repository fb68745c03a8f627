package dispatch_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"luster/internal/artifacts"
	"luster/internal/config"
	"luster/internal/dispatch"
	"luster/internal/jobs"
	"luster/internal/logging"
	"luster/internal/testsupport"
)

func newDispatcher(t *testing.T, cfg *config.Config) (*dispatch.Dispatcher, *jobs.Store, *artifacts.Locator) {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	locator := artifacts.NewLocator(cfg)
	return dispatch.New(context.Background(), cfg, store, locator, nil, logging.NewNop()), store, locator
}

func waitFor(t *testing.T, timeout time.Duration, check func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSubmitStagesUploadAndSpawnsWorker(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedWorker(""))
	d, _, locator := newDispatcher(t, cfg)

	job, err := d.Submit(context.Background(), []byte("payload"), "sunset.png")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != jobs.StatusReceived {
		t.Fatalf("expected received status, got %s", job.Status)
	}
	if _, err := uuid.Parse(job.ID); err != nil {
		t.Fatalf("job id is not a uuid: %q", job.ID)
	}
	data, err := os.ReadFile(job.InputPath)
	if err != nil {
		t.Fatalf("read staged input: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("staged input mismatch: %q", data)
	}

	waitFor(t, 5*time.Second, func() bool {
		_, err := locator.Locate(job.ID)
		return err == nil
	})
}

func TestSubmitRejectsEmptyUpload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, _ := newDispatcher(t, cfg)

	if _, err := d.Submit(context.Background(), nil, "empty.png"); !errors.Is(err, dispatch.ErrEmptyUpload) {
		t.Fatalf("expected ErrEmptyUpload, got %v", err)
	}
}

func TestSubmitNormalizesUnknownExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, _ := newDispatcher(t, cfg)

	job, err := d.Submit(context.Background(), []byte("x"), "scan.tiff")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !strings.HasSuffix(job.InputPath, job.ID+".png") {
		t.Fatalf("expected default .png staging, got %q", job.InputPath)
	}
}

func TestSubmitSpawnFailureMarksJobFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerCommand("/nonexistent/luster-worker"))
	d, _, _ := newDispatcher(t, cfg)

	job, err := d.Submit(context.Background(), []byte("x"), "sunset.png")
	if err != nil {
		t.Fatalf("Submit should not fail on spawn errors, got %v", err)
	}
	if job.Status != jobs.StatusFailed {
		t.Fatalf("expected failed status, got %s", job.Status)
	}
	if job.ErrorMessage == "" {
		t.Fatal("expected error message on spawn failure")
	}
}

func TestSubmitWorkerEarlyExitMarksJobFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedWorker("model load failed"))
	d, store, _ := newDispatcher(t, cfg)

	job, err := d.Submit(context.Background(), []byte("x"), "sunset.png")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		current, err := store.GetByID(context.Background(), job.ID)
		if err != nil || current == nil {
			return false
		}
		return current.Status == jobs.StatusFailed
	})
}

func TestSubmitInvokesReceivedCallback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, _ := newDispatcher(t, cfg)

	received := make(chan string, 1)
	d.SetOnReceived(func(job *jobs.Job) {
		received <- job.ID
	})

	job, err := d.Submit(context.Background(), []byte("x"), "sunset.png")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case id := <-received:
		if id != job.ID {
			t.Fatalf("callback saw %q, want %q", id, job.ID)
		}
	default:
		t.Fatal("received callback not invoked")
	}
}

func TestSubmissionsAreIndependent(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerCommand("/nonexistent/luster-worker"))
	d, _, _ := newDispatcher(t, cfg)

	first, err := d.Submit(context.Background(), []byte("a"), "a.png")
	if err != nil {
		t.Fatalf("Submit first: %v", err)
	}
	second, err := d.Submit(context.Background(), []byte("b"), "b.jpg")
	if err != nil {
		t.Fatalf("Submit second: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("expected distinct job ids")
	}
	if first.Status != jobs.StatusFailed || second.Status != jobs.StatusFailed {
		t.Fatalf("expected both jobs failed independently, got %s and %s", first.Status, second.Status)
	}
}
