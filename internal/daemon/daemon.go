package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"luster/internal/artifacts"
	"luster/internal/config"
	"luster/internal/dispatch"
	"luster/internal/jobs"
	"luster/internal/logging"
	"luster/internal/monitor"
	"luster/internal/notifications"
	"luster/internal/preflight"
	"luster/internal/server"
)

// Daemon wires the job store, dispatcher, monitor hub, and HTTP server
// together and enforces single-instance execution through a file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	locator  *artifacts.Locator
	notifier notifications.Service

	dispatcher *dispatch.Dispatcher
	hub        *monitor.Hub
	api        *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status reports daemon runtime information.
type Status struct {
	Running             bool
	PID                 int
	JobDBPath           string
	LockFilePath        string
	APIAddress          string
	ActiveSubscriptions int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "lusterd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		locator:  artifacts.NewLocator(cfg),
		notifier: notifications.NewService(cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, runs preflight checks, and brings up
// the dispatcher, monitor hub, HTTP server, and maintenance loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another luster daemon instance is already running")
	}

	for _, result := range preflight.Run(d.cfg) {
		if result.Passed {
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	d.dispatcher = dispatch.New(d.ctx, d.cfg, d.store, d.locator, d.notifier, d.logger)
	d.hub = monitor.NewHub(d.ctx, d.cfg, d.store, d.locator, d.notifier, d.logger)
	d.dispatcher.SetOnReceived(d.hub.Announce)

	d.api = server.New(d.cfg, d.store, d.dispatcher, d.hub, d.locator, d.logger)
	if d.api != nil {
		if err := d.api.Start(d.ctx); err != nil {
			d.teardown()
			return fmt.Errorf("start api server: %w", err)
		}
	}

	go d.runMaintenance(d.ctx)

	d.running.Store(true)
	d.logger.Info("luster daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.teardown()
	d.running.Store(false)
	d.logger.Info("luster daemon stopped")
}

func (d *Daemon) teardown() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.Stop()
		d.api = nil
	}
	if d.hub != nil {
		d.hub.Close()
		d.hub = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
}

// Close stops the daemon and releases the job store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		JobDBPath:    d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if d.api != nil {
		status.APIAddress = d.api.Addr()
	}
	if d.hub != nil {
		status.ActiveSubscriptions = d.hub.ActiveCount()
	}
	return status
}

// APIAddr reports the bound API address, empty until Start succeeds.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.Addr()
}

// TestNotification triggers a test notification with the active config.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
