package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"catalogscan/internal/config"
)

const userAgent = "catalogscan/0.1.0"

// RunReport is the end-of-run tally sent to the operator.
type RunReport struct {
	Committed int
	// NeedsAttention counts placeholder and review records committed this run.
	NeedsAttention int
	Failed         int
	Deferred       int
	Records        int
	Elapsed        time.Duration
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, report RunReport) error
	NotifyRunStopped(ctx context.Context, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
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

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, report RunReport) error {
	elapsed := report.Elapsed.Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "%d images cataloged in %s (%d records total)", report.Committed, elapsed, report.Records)
	if report.NeedsAttention > 0 {
		fmt.Fprintf(&builder, "\n%d need manual review", report.NeedsAttention)
	}
	if report.Failed > 0 {
		fmt.Fprintf(&builder, "\n%d failed and will be retried next run", report.Failed)
	}
	if report.Deferred > 0 {
		fmt.Fprintf(&builder, "\n%d deferred by the run limit", report.Deferred)
	}

	data := payload{
		title:   "Catalog - Run Complete",
		message: builder.String(),
		tags:    []string{"catalogscan", "run", "completed"},
	}
	if report.Failed > 0 || report.NeedsAttention > 0 {
		data.title = "Catalog - Run Complete (needs attention)"
		data.tags = []string{"catalogscan", "run", "warning"}
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunStopped(ctx context.Context, err error) error {
	message := "Run stopped: unknown error"
	if err != nil {
		message = "Run stopped: " + strings.TrimSpace(err.Error())
	}
	return n.send(ctx, payload{
		title:    "Catalog - Run Stopped",
		message:  message,
		tags:     []string{"catalogscan", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Catalog - Test",
		message:  "Notification system test",
		tags:     []string{"catalogscan", "test"},
		priority: "low",
	})
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

func (noopService) NotifyRunCompleted(context.Context, RunReport) error { return nil }
func (noopService) NotifyRunStopped(context.Context, error) error      { return nil }
func (noopService) TestNotification(context.Context) error             { return nil }

// Enabled reports whether svc actually sends anything.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return !noop
}
