// Package preflight validates the runtime environment before the daemon
// starts serving: directory permissions and worker availability.
package preflight
