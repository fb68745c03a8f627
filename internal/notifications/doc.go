// Package notifications sends push notifications for job lifecycle events
// through ntfy. The service degrades to a noop when no topic is configured.
package notifications
