// Package server provides the daemon's HTTP surface: multipart job
// submission, artifact-derived status polling, server-sent status events,
// result download, an administrative API for the CLI, and a Prometheus
// exporter.
package server
