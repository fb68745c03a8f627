// Package logging builds the slog loggers used across the daemon and CLI.
//
// Two handler formats are supported: a compact console format that lifts the
// component attribute into the line prefix, and standard JSON. Helpers expose
// typed attribute constructors and the field keys shared between packages so
// log consumers can filter on job_id and connection_id consistently.
package logging
