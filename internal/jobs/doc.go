// Package jobs persists enhancement jobs in SQLite and enforces their
// lifecycle.
//
// The Store is the single authoritative registry: creation, status
// transitions, listing, stats, and retention purges all go through it.
// Transitions are validated against the one-directional ordering
// received -> processing -> {completed, failed}; terminal states never
// change again, and result/error fields are kept consistent with the
// status at transition time.
//
// The database holds in-flight and recently finished jobs, not a long-term
// archive. Schema changes bump the version in schema.go; users delete the
// database to adopt the new schema.
package jobs
