package monitor

import (
	"time"

	"luster/internal/jobs"
)

// Event is a status update pushed to a single subscriber. Sequence numbers
// are per hub and strictly increasing, so a subscriber can assert ordering.
type Event struct {
	Sequence  uint64      `json:"seq"`
	Timestamp time.Time   `json:"ts"`
	JobID     string      `json:"job_id"`
	Status    jobs.Status `json:"status"`
	Message   string      `json:"message,omitempty"`
	Result    string      `json:"result_reference,omitempty"`
	Error     string      `json:"error,omitempty"`
	Terminal  bool        `json:"terminal"`
}
