// Package monitor tracks job progress on behalf of connected subscribers.
// Each subscription polls the results directory with its own goroutine and
// context, pushes status events to its channel, and stops once the job
// reaches a terminal state or the subscriber disconnects.
package monitor
