package monitor

import (
	"errors"
	"fmt"
	"time"

	"luster/internal/artifacts"
	"luster/internal/jobs"
	"luster/internal/logging"
)

type watchState struct {
	processingSent bool
}

// watch polls the job registry and the results directory on behalf of one
// subscriber. The first check runs immediately; afterwards the loop wakes on
// the poll interval or an Announce kick, and exits once a terminal event has
// been delivered or the subscription context ends.
func (h *Hub) watch(sub *Subscription) {
	defer close(sub.events)
	defer h.remove(sub)
	defer sub.cancel()

	interval := time.Duration(h.cfg.Monitor.PollInterval) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var state watchState
	for {
		if h.check(sub, &state) {
			return
		}
		select {
		case <-sub.ctx.Done():
			return
		case <-sub.kick:
		case <-ticker.C:
		}
	}
}

// check runs one inspection pass. It returns true when the watcher should
// stop, either because a terminal event went out or the context ended.
func (h *Hub) check(sub *Subscription, state *watchState) bool {
	ctx := sub.ctx

	job, err := h.store.GetByID(ctx, sub.JobID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		h.deliver(sub, failedEvent(sub.JobID, fmt.Sprintf("job lookup failed: %v", err)))
		return true
	}
	if job == nil {
		h.deliver(sub, failedEvent(sub.JobID, "unknown job"))
		return true
	}

	switch job.Status {
	case jobs.StatusCompleted:
		h.deliver(sub, completedEvent(job))
		return true
	case jobs.StatusFailed:
		h.deliver(sub, Event{
			JobID:    job.ID,
			Status:   jobs.StatusFailed,
			Error:    job.ErrorMessage,
			Terminal: true,
		})
		return true
	}

	resultPath, err := h.locator.Locate(sub.JobID)
	switch {
	case err == nil:
		updated, terr := h.store.Transition(ctx, sub.JobID, jobs.StatusCompleted, resultPath, "")
		if terr != nil {
			if errors.Is(terr, jobs.ErrInvalidTransition) {
				// Another watcher resolved the job first; the next pass
				// reads the terminal row.
				return false
			}
			if ctx.Err() != nil {
				return true
			}
			h.deliver(sub, failedEvent(sub.JobID, fmt.Sprintf("record completion: %v", terr)))
			return true
		}
		h.deliver(sub, completedEvent(updated))
		h.notifyCompleted(updated)
		return true
	case errors.Is(err, artifacts.ErrNotFound):
		// Still in flight.
	default:
		h.deliver(sub, failedEvent(sub.JobID, fmt.Sprintf("inspect results: %v", err)))
		return true
	}

	if !state.processingSent {
		present, ierr := h.locator.InputExists(sub.JobID)
		if ierr != nil {
			h.deliver(sub, failedEvent(sub.JobID, fmt.Sprintf("inspect uploads: %v", ierr)))
			return true
		}
		if present {
			if _, terr := h.store.Transition(ctx, sub.JobID, jobs.StatusProcessing, "", ""); terr != nil && !errors.Is(terr, jobs.ErrInvalidTransition) {
				h.logger.Warn("processing transition failed", logging.JobID(sub.JobID), logging.Error(terr))
			}
			state.processingSent = true
			if !h.deliver(sub, Event{
				JobID:   sub.JobID,
				Status:  jobs.StatusProcessing,
				Message: "enhancement in progress",
			}) {
				return true
			}
		}
	}

	timeout := time.Duration(h.cfg.Monitor.ProcessingTimeout) * time.Second
	if timeout > 0 && time.Since(job.CreatedAt) > timeout {
		msg := fmt.Sprintf("no result after %s", timeout)
		updated, terr := h.store.Transition(ctx, sub.JobID, jobs.StatusFailed, "", msg)
		if terr != nil {
			if errors.Is(terr, jobs.ErrInvalidTransition) {
				return false
			}
			if ctx.Err() != nil {
				return true
			}
			h.deliver(sub, failedEvent(sub.JobID, fmt.Sprintf("record timeout: %v", terr)))
			return true
		}
		h.deliver(sub, Event{
			JobID:    sub.JobID,
			Status:   jobs.StatusFailed,
			Error:    msg,
			Terminal: true,
		})
		h.notifyFailed(updated)
		return true
	}

	return false
}

func (h *Hub) notifyCompleted(job *jobs.Job) {
	if h.notifier == nil || job == nil {
		return
	}
	go func() {
		if err := h.notifier.NotifyJobCompleted(h.runCtx, job.ID, job.ResultPath); err != nil {
			h.logger.Warn("notification failed", logging.JobID(job.ID), logging.Error(err))
		}
	}()
}

func (h *Hub) notifyFailed(job *jobs.Job) {
	if h.notifier == nil || job == nil {
		return
	}
	go func() {
		if err := h.notifier.NotifyJobFailed(h.runCtx, job.ID, job.ErrorMessage); err != nil {
			h.logger.Warn("notification failed", logging.JobID(job.ID), logging.Error(err))
		}
	}()
}

func completedEvent(job *jobs.Job) Event {
	return Event{
		JobID:    job.ID,
		Status:   jobs.StatusCompleted,
		Message:  "enhancement complete",
		Result:   job.ResultPath,
		Terminal: true,
	}
}

func failedEvent(jobID, msg string) Event {
	return Event{
		JobID:    jobID,
		Status:   jobs.StatusFailed,
		Error:    msg,
		Terminal: true,
	}
}
