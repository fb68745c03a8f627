// Package daemon hosts the long-running luster service: it owns the job
// store, the worker dispatcher, the monitor hub, the HTTP API, and the
// background maintenance loops, and it guarantees only one instance runs
// per data directory.
package daemon
