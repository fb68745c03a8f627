package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an enhancement job.
type Status string

const (
	StatusReceived   Status = "received"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusReceived,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// allowedTransitions encodes the one-directional lifecycle:
// received -> processing -> {completed, failed}. Terminal states have no
// outgoing edges.
var allowedTransitions = map[Status][]Status{
	StatusReceived:   {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// Job represents one enhancement request persisted in SQLite.
type Job struct {
	ID               string    `json:"id"`
	Status           Status    `json:"status"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	InputPath        string    `json:"input_path,omitempty"`
	ResultPath       string    `json:"result_path,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int `json:"total"`
	Received   int `json:"received"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next preserves the
// monotonic lifecycle ordering. Received jobs may complete or fail
// directly: a late observer of an already-finished artifact never saw
// the processing step.
func (s Status) CanTransition(next Status) bool {
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the job reached completed or failed.
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}
