package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shelfsync/internal/config"
)

const userAgent = "shelfsync/0.1.0"

// Service defines the notification surface exposed to the sync workflow.
type Service interface {
	NotifySyncStarted(ctx context.Context, account string) error
	NotifySyncCompleted(ctx context.Context, account string, books int, duration time.Duration) error
	NotifySyncSkipped(ctx context.Context, account, reason string) error
	NotifyError(ctx context.Context, err error, context string) error
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
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		notifySync: cfg.Notifications.Sync,
		notifyErr:  cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	notifySync bool
	notifyErr  bool
}

func (n *ntfyService) NotifySyncStarted(ctx context.Context, account string) error {
	if !n.notifySync {
		return nil
	}
	data := payload{
		title:   "shelfsync - Sync Started",
		message: fmt.Sprintf("Syncing library for account %s", strings.TrimSpace(account)),
		tags:    []string{"shelfsync", "sync", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncCompleted(ctx context.Context, account string, books int, duration time.Duration) error {
	if !n.notifySync {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration <= 0 {
		duration = 0
	}
	data := payload{
		title:    "shelfsync - Sync Complete",
		message:  fmt.Sprintf("Uploaded %d books for %s in %s", books, strings.TrimSpace(account), duration),
		tags:     []string{"shelfsync", "sync", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncSkipped(ctx context.Context, account, reason string) error {
	if !n.notifySync {
		return nil
	}
	data := payload{
		title:   "shelfsync - Sync Skipped",
		message: fmt.Sprintf("Skipped sync for %s: %s", strings.TrimSpace(account), strings.TrimSpace(reason)),
		tags:    []string{"shelfsync", "sync", "skipped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.notifyErr {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "shelfsync - Error",
		message:  builder.String(),
		tags:     []string{"shelfsync", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "shelfsync - Test",
		message:  "Notification system test",
		tags:     []string{"shelfsync", "test"},
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

func (noopService) NotifySyncStarted(context.Context, string) error { return nil }
func (noopService) NotifySyncCompleted(context.Context, string, int, time.Duration) error {
	return nil
}
func (noopService) NotifySyncSkipped(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error        { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
