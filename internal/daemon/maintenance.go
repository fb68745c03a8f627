package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"luster/internal/jobs"
	"luster/internal/logging"
)

// runMaintenance owns the two background sweeps: retention purge of terminal
// jobs and failing of processing jobs whose worker never produced a result.
// The stale sweep runs on the monitor poll cadence so unobserved jobs time
// out even when nobody subscribes to them.
func (d *Daemon) runMaintenance(ctx context.Context) {
	purgeInterval := time.Duration(d.cfg.Jobs.PurgeInterval) * time.Second
	if purgeInterval <= 0 {
		purgeInterval = 15 * time.Minute
	}
	sweepInterval := time.Duration(d.cfg.Monitor.PollInterval) * time.Second
	if sweepInterval <= 0 {
		sweepInterval = 2 * time.Second
	}

	purgeTicker := time.NewTicker(purgeInterval)
	defer purgeTicker.Stop()
	sweepTicker := time.NewTicker(sweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-purgeTicker.C:
			d.purgeTerminalJobs(ctx)
		case <-sweepTicker.C:
			d.sweepStaleJobs(ctx)
		}
	}
}

func (d *Daemon) purgeTerminalJobs(ctx context.Context) {
	retention := time.Duration(d.cfg.Jobs.RetentionHours) * time.Hour
	if retention <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-retention)
	removed, err := d.store.PurgeTerminal(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("retention purge failed", logging.Error(err))
		}
		return
	}
	if removed > 0 {
		d.logger.Info("purged terminal jobs", logging.Int64("removed", removed))
	}
}

// sweepStaleJobs fails jobs that exceeded the processing timeout without an
// artifact. Subscribed jobs get the same treatment from their watchers; this
// sweep covers jobs nobody is watching.
func (d *Daemon) sweepStaleJobs(ctx context.Context) {
	timeout := time.Duration(d.cfg.Monitor.ProcessingTimeout) * time.Second
	if timeout <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-timeout)
	stale, err := d.store.StaleProcessing(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("stale job sweep failed", logging.Error(err))
		}
		return
	}

	for _, job := range stale {
		if resultPath, err := d.locator.Locate(job.ID); err == nil {
			// The artifact arrived but nobody was watching; resolve the
			// job instead of expiring it.
			if _, terr := d.store.Transition(ctx, job.ID, jobs.StatusCompleted, resultPath, ""); terr != nil && !errors.Is(terr, jobs.ErrInvalidTransition) && ctx.Err() == nil {
				d.logger.Warn("failed to resolve stale job", logging.JobID(job.ID), logging.Error(terr))
			}
			continue
		}
		msg := fmt.Sprintf("no result after %s", timeout)
		updated, err := d.store.Transition(ctx, job.ID, jobs.StatusFailed, "", msg)
		if err != nil {
			if !errors.Is(err, jobs.ErrInvalidTransition) && ctx.Err() == nil {
				d.logger.Warn("failed to expire stale job", logging.JobID(job.ID), logging.Error(err))
			}
			continue
		}
		d.logger.Warn("job timed out", logging.JobID(job.ID))
		if d.notifier != nil {
			if nerr := d.notifier.NotifyJobFailed(ctx, updated.ID, updated.ErrorMessage); nerr != nil {
				d.logger.Warn("notification failed", logging.JobID(job.ID), logging.Error(nerr))
			}
		}
	}
}
