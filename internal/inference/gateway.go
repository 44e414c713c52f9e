package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"catalogscan/internal/config"
	"catalogscan/internal/scan"
)

const defaultTimeout = 300 * time.Second

// Gateway performs one model call per item.
type Gateway interface {
	Infer(ctx context.Context, item scan.Item) (string, error)
	Name() string
}

// Pinger is implemented by gateways that can check their endpoint without
// sending an image.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options are the decoding parameters sent with every request. ContextWindow
// only applies to Ollama; MaxOutputTokens only to the hosted providers.
type Options struct {
	Temperature     float64
	ContextWindow   int
	MaxOutputTokens int
	TopP            float64
}

// Config selects and configures a provider.
type Config struct {
	Provider       string
	BaseURL        string
	Model          string
	APIKey         string
	TimeoutSeconds int
	Prompt         string
	Options        Options
	// HTTPClient overrides the transport for HTTP providers.
	HTTPClient *http.Client
}

// ConfigFrom maps the loaded settings onto a gateway config.
func ConfigFrom(settings config.Inference, prompt string) Config {
	return Config{
		Provider:       settings.Provider,
		BaseURL:        settings.BaseURL,
		Model:          settings.Model,
		APIKey:         settings.APIKey,
		TimeoutSeconds: settings.TimeoutSeconds,
		Prompt:         prompt,
		Options: Options{
			Temperature:     settings.Options.Temperature,
			ContextWindow:   settings.Options.ContextWindow,
			MaxOutputTokens: settings.Options.MaxOutputTokens,
			TopP:            settings.Options.TopP,
		},
	}
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return defaultTimeout
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.timeout()}
}

// New builds the gateway for cfg.Provider.
func New(cfg Config) (Gateway, error) {
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Model == "" {
		return nil, errors.New("inference: model is required")
	}
	if strings.TrimSpace(cfg.Prompt) == "" {
		return nil, errors.New("inference: prompt is required")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", config.ProviderOllama:
		return newOllama(cfg), nil
	case config.ProviderOpenRouter:
		return newOpenRouter(cfg)
	case config.ProviderGemini:
		return newGemini(cfg)
	default:
		return nil, fmt.Errorf("inference: unsupported provider %q", cfg.Provider)
	}
}

// InferenceError is the single failure type of a model call.
type InferenceError struct {
	Item       string
	Provider   string
	Op         string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *InferenceError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(" ")
	b.WriteString(e.Op)
	if e.Item != "" {
		fmt.Fprintf(&b, " %q", e.Item)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *InferenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsRetryable reports whether err is an InferenceError worth another attempt.
func IsRetryable(err error) bool {
	var ierr *InferenceError
	return errors.As(err, &ierr) && ierr.Retryable
}

const (
	opReadImage = "read image"
	opRequest   = "request"
	opStatus    = "status"
	opDecode    = "decode response"
	opEmpty     = "empty response"
	opPing      = "ping"
)

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

// retryableTransport classifies transport failures: timeouts and connection
// resets are transient, caller cancellation is not.
func retryableTransport(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}

func snippet(body []byte) string {
	const limit = 512
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
