package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"luster/internal/artifacts"
	"luster/internal/config"
	"luster/internal/fileutil"
	"luster/internal/jobs"
	"luster/internal/logging"
	"luster/internal/notifications"
)

var commandContext = exec.CommandContext

// ErrEmptyUpload indicates a submission with no payload bytes.
var ErrEmptyUpload = errors.New("upload contains no data")

// Dispatcher registers uploads as jobs and launches the enhancement worker
// for each of them. The worker runs out of process; completion is observed
// through the results directory, not through the process exit status.
type Dispatcher struct {
	cfg      *config.Config
	store    *jobs.Store
	locator  *artifacts.Locator
	notifier notifications.Service
	logger   *slog.Logger

	// runCtx outlives individual requests so workers are not killed when
	// the submitting connection goes away.
	runCtx context.Context

	onReceived func(job *jobs.Job)
}

// New constructs a dispatcher. runCtx should span the daemon lifetime.
func New(runCtx context.Context, cfg *config.Config, store *jobs.Store, locator *artifacts.Locator, notifier notifications.Service, logger *slog.Logger) *Dispatcher {
	if runCtx == nil {
		runCtx = context.Background()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		cfg:      cfg,
		store:    store,
		locator:  locator,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "dispatch"),
		runCtx:   runCtx,
	}
}

// SetOnReceived registers a callback invoked after a job is persisted.
// Used by the daemon to announce submissions on the event hub.
func (d *Dispatcher) SetOnReceived(fn func(job *jobs.Job)) {
	d.onReceived = fn
}

// Submit stages the upload, records the job, and spawns the worker. A spawn
// failure marks the job failed but is not reported as a submission error;
// the returned job carries the failure. Submissions are independent of one
// another.
func (d *Dispatcher) Submit(ctx context.Context, data []byte, originalFilename string) (*jobs.Job, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	id := uuid.New().String()
	ext := artifacts.NormalizeExtension(originalFilename)
	inputPath := d.locator.InputPath(id, ext)

	if err := fileutil.WriteAtomic(inputPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}

	job := &jobs.Job{
		ID:               id,
		Status:           jobs.StatusReceived,
		OriginalFilename: originalFilename,
		InputPath:        inputPath,
	}
	if err := d.store.Create(ctx, job); err != nil {
		_ = os.Remove(inputPath)
		return nil, fmt.Errorf("register job: %w", err)
	}

	d.logger.Info("job received",
		logging.JobID(id),
		logging.String("filename", originalFilename),
		logging.Int("bytes", len(data)))

	if err := d.spawn(job); err != nil {
		d.logger.Warn("worker spawn failed", logging.JobID(id), logging.Error(err))
		if updated, terr := d.store.Transition(ctx, id, jobs.StatusFailed, "", fmt.Sprintf("worker spawn failed: %v", err)); terr == nil {
			job = updated
		}
	}

	if d.onReceived != nil {
		d.onReceived(job)
	}
	if d.notifier != nil {
		if err := d.notifier.NotifyJobReceived(ctx, id, originalFilename); err != nil {
			d.logger.Warn("notification failed", logging.JobID(id), logging.Error(err))
		}
	}

	return job, nil
}

// spawn starts the configured worker command with the upload directory and
// the staged filename as trailing arguments. The process is reaped in the
// background; an exit during the startup window marks the job failed.
func (d *Dispatcher) spawn(job *jobs.Job) error {
	args := append(append([]string{}, d.cfg.Worker.Args...), d.cfg.Paths.UploadDir, filepath.Base(job.InputPath))
	cmd := commandContext(d.runCtx, d.cfg.Worker.Command, args...) //nolint:gosec
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker %q: %w", d.cfg.Worker.Command, err)
	}

	startupWindow := time.Duration(d.cfg.Worker.SpawnTimeout) * time.Second
	go d.reap(job.ID, cmd, startupWindow)
	return nil
}

// reap waits for the worker to exit. A non-zero exit inside the startup
// window is treated as a launch failure and the job is marked failed; the
// transition is best effort since the monitor may already have resolved the
// job from the results directory.
func (d *Dispatcher) reap(jobID string, cmd *exec.Cmd, startupWindow time.Duration) {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	if startupWindow > 0 {
		timer := time.NewTimer(startupWindow)
		select {
		case err := <-done:
			timer.Stop()
			if err != nil {
				d.logger.Warn("worker exited during startup", logging.JobID(jobID), logging.Error(err))
				if _, terr := d.store.Transition(d.runCtx, jobID, jobs.StatusFailed, "", fmt.Sprintf("worker exited during startup: %v", err)); terr != nil && !errors.Is(terr, jobs.ErrInvalidTransition) {
					d.logger.Warn("failed to record worker failure", logging.JobID(jobID), logging.Error(terr))
				}
			}
			return
		case <-timer.C:
		}
	}

	if err := <-done; err != nil {
		d.logger.Warn("worker exited with error", logging.JobID(jobID), logging.Error(err))
	}
}
