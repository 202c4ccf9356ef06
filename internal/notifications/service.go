package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shotscribe/internal/config"
)

const userAgent = "shotscribe/0.1"

// Service is the notification surface used by the workflow.
type Service interface {
	NotifyBreakdownCompleted(ctx context.Context, title, reportPath string, warnings int) error
	NotifyRewriteCompleted(ctx context.Context, originalTitle, reportPath string) error
	NotifyError(ctx context.Context, err error, label string) error
	TestNotification(ctx context.Context) error
	Enabled() bool
}

// NewService builds an ntfy-backed service, or a no-op when
// notifications.ntfy_topic is empty.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
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
}

func (n *ntfyService) Enabled() bool { return true }

func (n *ntfyService) NotifyBreakdownCompleted(ctx context.Context, title, reportPath string, warnings int) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "untitled video"
	}
	message := fmt.Sprintf("Shot script ready: %s", title)
	if warnings > 0 {
		message += fmt.Sprintf(" (%d warnings)", warnings)
	}
	if reportPath = strings.TrimSpace(reportPath); reportPath != "" {
		message += "\nReport: " + reportPath
	}
	return n.send(ctx, payload{
		title:   "shotscribe - Breakdown Complete",
		message: message,
		tags:    []string{"shotscribe", "breakdown", "completed"},
	})
}

func (n *ntfyService) NotifyRewriteCompleted(ctx context.Context, originalTitle, reportPath string) error {
	originalTitle = strings.TrimSpace(originalTitle)
	if originalTitle == "" {
		originalTitle = "unknown script"
	}
	message := fmt.Sprintf("Rewrite ready: %s", originalTitle)
	if reportPath = strings.TrimSpace(reportPath); reportPath != "" {
		message += "\nReport: " + reportPath
	}
	return n.send(ctx, payload{
		title:   "shotscribe - Rewrite Complete",
		message: message,
		tags:    []string{"shotscribe", "rewrite", "completed"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, label string) error {
	var b strings.Builder
	b.WriteString("Run failed")
	if label = strings.TrimSpace(label); label != "" {
		b.WriteString(" for ")
		b.WriteString(label)
	}
	b.WriteString(": ")
	if err != nil {
		b.WriteString(strings.TrimSpace(err.Error()))
	} else {
		b.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "shotscribe - Error",
		message:  b.String(),
		tags:     []string{"shotscribe", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "shotscribe - Test",
		message:  "Notification test",
		tags:     []string{"shotscribe", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
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
	if data.priority != "" {
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

func (noopService) Enabled() bool { return false }
func (noopService) NotifyBreakdownCompleted(context.Context, string, string, int) error {
	return nil
}
func (noopService) NotifyRewriteCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error             { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
