package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"luster/internal/artifacts"
	"luster/internal/config"
	"luster/internal/jobs"
	"luster/internal/logging"
	"luster/internal/notifications"
)

const eventBuffer = 16

// Subscription is one watcher attached to one job. Events arrive on the
// channel returned by Events until the job reaches a terminal state or the
// subscription is cancelled, after which the channel is closed.
type Subscription struct {
	ConnectionID string
	JobID        string

	events chan Event
	kick   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// Events returns the subscriber's event channel.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Done is closed when the subscription stops watching.
func (s *Subscription) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Hub owns per-subscriber status watchers. Each subscription runs its own
// goroutine with its own context; cancelling the context is the only stop
// signal, there is no shared cancellation flag.
type Hub struct {
	cfg      *config.Config
	store    *jobs.Store
	locator  *artifacts.Locator
	notifier notifications.Service
	logger   *slog.Logger

	runCtx context.Context
	seq    atomic.Uint64

	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewHub constructs the subscription hub. runCtx bounds every watcher.
func NewHub(runCtx context.Context, cfg *config.Config, store *jobs.Store, locator *artifacts.Locator, notifier notifications.Service, logger *slog.Logger) *Hub {
	if runCtx == nil {
		runCtx = context.Background()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		cfg:      cfg,
		store:    store,
		locator:  locator,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "monitor"),
		runCtx:   runCtx,
		subs:     make(map[string]*Subscription),
	}
}

// Subscribe attaches connectionID to jobID and starts its watcher. An
// existing subscription under the same connection id is cancelled first, so
// a connection watches at most one job.
func (h *Hub) Subscribe(connectionID, jobID string) *Subscription {
	ctx, cancel := context.WithCancel(h.runCtx)
	sub := &Subscription{
		ConnectionID: connectionID,
		JobID:        jobID,
		events:       make(chan Event, eventBuffer),
		kick:         make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
	}

	h.mu.Lock()
	if prev, ok := h.subs[connectionID]; ok {
		prev.cancel()
	}
	h.subs[connectionID] = sub
	h.mu.Unlock()

	h.logger.Debug("subscription started",
		logging.JobID(jobID),
		logging.String(logging.FieldConnectionID, connectionID))

	go h.watch(sub)
	return sub
}

// Unsubscribe cancels the watcher for connectionID. The watcher exits
// promptly and no further events are delivered.
func (h *Hub) Unsubscribe(connectionID string) {
	h.mu.Lock()
	sub, ok := h.subs[connectionID]
	if ok {
		delete(h.subs, connectionID)
	}
	h.mu.Unlock()
	if ok {
		sub.cancel()
	}
}

// Announce wakes every watcher attached to jobID so a fresh submission is
// observed without waiting out a poll interval.
func (h *Hub) Announce(job *jobs.Job) {
	if job == nil {
		return
	}
	h.mu.Lock()
	for _, sub := range h.subs {
		if sub.JobID != job.ID {
			continue
		}
		select {
		case sub.kick <- struct{}{}:
		default:
		}
	}
	h.mu.Unlock()
}

// ActiveCount reports the number of live subscriptions.
func (h *Hub) ActiveCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close cancels every subscription. Used on daemon shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.subs = make(map[string]*Subscription)
	h.mu.Unlock()
	for _, sub := range subs {
		sub.cancel()
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if current, ok := h.subs[sub.ConnectionID]; ok && current == sub {
		delete(h.subs, sub.ConnectionID)
	}
	h.mu.Unlock()
}

// deliver pushes an event to the subscriber unless the subscription has been
// cancelled. Delivery after Unsubscribe never happens because the send is
// guarded by the subscription context.
func (h *Hub) deliver(sub *Subscription, evt Event) bool {
	evt.Sequence = h.seq.Add(1)
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	select {
	case sub.events <- evt:
		return true
	case <-sub.ctx.Done():
		return false
	}
}
