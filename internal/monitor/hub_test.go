package monitor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"luster/internal/artifacts"
	"luster/internal/config"
	"luster/internal/fileutil"
	"luster/internal/jobs"
	"luster/internal/logging"
	"luster/internal/monitor"
	"luster/internal/testsupport"
)

type hubFixture struct {
	cfg     *config.Config
	store   *jobs.Store
	locator *artifacts.Locator
	hub     *monitor.Hub
}

func newHubFixture(t *testing.T, opts ...testsupport.ConfigOption) *hubFixture {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	locator := artifacts.NewLocator(cfg)
	hub := monitor.NewHub(context.Background(), cfg, store, locator, nil, logging.NewNop())
	t.Cleanup(hub.Close)
	return &hubFixture{cfg: cfg, store: store, locator: locator, hub: hub}
}

func (f *hubFixture) stageInput(t *testing.T, jobID string) {
	t.Helper()
	if err := fileutil.WriteAtomic(f.locator.InputPath(jobID, ".png"), []byte("input"), 0o644); err != nil {
		t.Fatalf("stage input: %v", err)
	}
}

func (f *hubFixture) writeArtifact(t *testing.T, jobID, ext string) string {
	t.Helper()
	path := filepath.Join(f.cfg.Paths.ResultsDir, jobID+ext)
	if err := fileutil.WriteAtomic(path, []byte("enhanced"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func nextEvent(t *testing.T, sub *monitor.Subscription, timeout time.Duration) (monitor.Event, bool) {
	t.Helper()
	select {
	case evt, ok := <-sub.Events():
		return evt, ok
	case <-time.After(timeout):
		t.Fatal("timed out waiting for event")
		return monitor.Event{}, false
	}
}

func TestWatcherDeliversProcessingThenCompleted(t *testing.T) {
	f := newHubFixture(t)
	job := testsupport.NewJob(t, f.store, "sunset.png")
	f.stageInput(t, job.ID)

	sub := f.hub.Subscribe("conn-1", job.ID)
	first, ok := nextEvent(t, sub, 5*time.Second)
	if !ok {
		t.Fatal("channel closed before first event")
	}
	if first.Status != jobs.StatusProcessing {
		t.Fatalf("expected processing first, got %s", first.Status)
	}
	if first.Terminal {
		t.Fatal("processing event must not be terminal")
	}

	resultPath := f.writeArtifact(t, job.ID, ".png")
	second, ok := nextEvent(t, sub, 5*time.Second)
	if !ok {
		t.Fatal("channel closed before completion event")
	}
	if second.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s", second.Status)
	}
	if second.Result != resultPath {
		t.Fatalf("expected result %q, got %q", resultPath, second.Result)
	}
	if !second.Terminal {
		t.Fatal("completion event must be terminal")
	}
	if second.Sequence <= first.Sequence {
		t.Fatalf("sequence must increase: %d then %d", first.Sequence, second.Sequence)
	}

	if _, ok := nextEventOrClose(sub, 3*time.Second); ok {
		t.Fatal("expected channel close after terminal event")
	}

	stored, err := f.store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != jobs.StatusCompleted || stored.ResultPath != resultPath {
		t.Fatalf("completion not persisted: %+v", stored)
	}
}

func nextEventOrClose(sub *monitor.Subscription, timeout time.Duration) (monitor.Event, bool) {
	select {
	case evt, ok := <-sub.Events():
		return evt, ok
	case <-time.After(timeout):
		return monitor.Event{}, true
	}
}

func TestLateSubscriberSeesCompletedImmediately(t *testing.T) {
	f := newHubFixture(t)
	job := testsupport.NewJob(t, f.store, "sunset.png")
	resultPath := f.writeArtifact(t, job.ID, ".jpg")

	sub := f.hub.Subscribe("conn-late", job.ID)
	evt, ok := nextEvent(t, sub, 3*time.Second)
	if !ok {
		t.Fatal("channel closed before event")
	}
	if evt.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed on first check, got %s", evt.Status)
	}
	if evt.Result != resultPath {
		t.Fatalf("expected result %q, got %q", resultPath, evt.Result)
	}
}

func TestSubscriberSeesPersistedFailure(t *testing.T) {
	f := newHubFixture(t)
	job := testsupport.NewJob(t, f.store, "sunset.png")
	if _, err := f.store.Transition(context.Background(), job.ID, jobs.StatusFailed, "", "worker spawn failed"); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	sub := f.hub.Subscribe("conn-1", job.ID)
	evt, ok := nextEvent(t, sub, 3*time.Second)
	if !ok {
		t.Fatal("channel closed before event")
	}
	if evt.Status != jobs.StatusFailed || evt.Error != "worker spawn failed" {
		t.Fatalf("unexpected failure event: %+v", evt)
	}
}

func TestUnknownJobFailsSubscription(t *testing.T) {
	f := newHubFixture(t)

	sub := f.hub.Subscribe("conn-1", "no-such-job")
	evt, ok := nextEvent(t, sub, 3*time.Second)
	if !ok {
		t.Fatal("channel closed before event")
	}
	if evt.Status != jobs.StatusFailed || !evt.Terminal {
		t.Fatalf("expected terminal failure for unknown job, got %+v", evt)
	}
}

func TestUnsubscribeStopsWatcher(t *testing.T) {
	f := newHubFixture(t)
	job := testsupport.NewJob(t, f.store, "sunset.png")
	f.stageInput(t, job.ID)

	sub := f.hub.Subscribe("conn-1", job.ID)
	if _, ok := nextEvent(t, sub, 5*time.Second); !ok {
		t.Fatal("expected processing event before unsubscribe")
	}

	f.hub.Unsubscribe("conn-1")

	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				if f.hub.ActiveCount() != 0 {
					t.Fatalf("expected zero active subscriptions, got %d", f.hub.ActiveCount())
				}
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after unsubscribe")
		}
	}
}

func TestSubscribeReplacesSameConnection(t *testing.T) {
	f := newHubFixture(t)
	first := testsupport.NewJob(t, f.store, "a.png")
	second := testsupport.NewJob(t, f.store, "b.png")

	old := f.hub.Subscribe("conn-1", first.ID)
	replacement := f.hub.Subscribe("conn-1", second.ID)

	select {
	case <-old.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("previous subscription not cancelled on replace")
	}
	if f.hub.ActiveCount() != 1 {
		t.Fatalf("expected one active subscription, got %d", f.hub.ActiveCount())
	}
	if replacement.JobID != second.ID {
		t.Fatalf("replacement watches %q, want %q", replacement.JobID, second.ID)
	}
}

func TestProcessingTimeoutMarksJobFailed(t *testing.T) {
	f := newHubFixture(t)
	f.cfg.Monitor.ProcessingTimeout = 1
	job := testsupport.NewJob(t, f.store, "sunset.png")
	f.stageInput(t, job.ID)

	sub := f.hub.Subscribe("conn-1", job.ID)
	var last monitor.Event
	for {
		evt, ok := nextEvent(t, sub, 10*time.Second)
		if !ok {
			break
		}
		last = evt
		if evt.Terminal {
			break
		}
	}
	if last.Status != jobs.StatusFailed {
		t.Fatalf("expected timeout failure, got %+v", last)
	}

	stored, err := f.store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != jobs.StatusFailed || stored.ErrorMessage == "" {
		t.Fatalf("timeout not persisted: %+v", stored)
	}
}

func TestPartialArtifactIsIgnored(t *testing.T) {
	f := newHubFixture(t)
	job := testsupport.NewJob(t, f.store, "sunset.png")
	f.stageInput(t, job.ID)

	partial := filepath.Join(f.cfg.Paths.ResultsDir, job.ID+".png.tmp")
	if err := os.WriteFile(partial, []byte("half"), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}

	sub := f.hub.Subscribe("conn-1", job.ID)
	evt, ok := nextEvent(t, sub, 5*time.Second)
	if !ok {
		t.Fatal("channel closed before event")
	}
	if evt.Status != jobs.StatusProcessing {
		t.Fatalf("partial artifact must not complete the job, got %s", evt.Status)
	}
}
