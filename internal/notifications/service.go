package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"luster/internal/config"
)

const userAgent = "Luster/0.1.0"

// Service defines the notification surface exposed to the dispatcher and
// status monitor. Delivery is best-effort; callers log failures and move on.
type Service interface {
	NotifyJobReceived(ctx context.Context, jobID, filename string) error
	NotifyJobCompleted(ctx context.Context, jobID, resultPath string) error
	NotifyJobFailed(ctx context.Context, jobID, reason string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		sendings: cfg.Notifications,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	sendings config.Notifications
}

func (n *ntfyService) NotifyJobReceived(ctx context.Context, jobID, filename string) error {
	if !n.sendings.JobReceived {
		return nil
	}
	filename = strings.TrimSpace(filename)
	message := fmt.Sprintf("Job received: %s", jobID)
	if filename != "" {
		message = fmt.Sprintf("%s (%s)", message, filename)
	}
	data := payload{
		title:   "Luster - Job Received",
		message: message,
		tags:    []string{"luster", "job", "received"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, jobID, resultPath string) error {
	if !n.sendings.JobCompleted {
		return nil
	}
	message := fmt.Sprintf("Enhancement complete: %s", jobID)
	if resultPath = strings.TrimSpace(resultPath); resultPath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, resultPath)
	}
	data := payload{
		title:    "Luster - Complete",
		message:  message,
		tags:     []string{"luster", "job", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, jobID, reason string) error {
	if !n.sendings.JobFailed {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "Luster - Job Failed",
		message:  fmt.Sprintf("Job %s failed: %s", jobID, reason),
		tags:     []string{"luster", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Luster - Test",
		message:  "Notification system test",
		tags:     []string{"luster", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobReceived(context.Context, string, string) error  { return nil }
func (noopService) NotifyJobCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error    { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
