package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"catalogscan/internal/config"
	"catalogscan/internal/scan"
)

type ollamaGateway struct {
	cfg    Config
	client *http.Client
}

func newOllama(cfg Config) *ollamaGateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultOllamaBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &ollamaGateway{cfg: cfg, client: cfg.httpClient()}
}

func (g *ollamaGateway) Name() string { return config.ProviderOllama + "/" + g.cfg.Model }

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason"`
	Error      string `json:"error"`
}

func (g *ollamaGateway) Infer(ctx context.Context, item scan.Item) (string, error) {
	fail := func(op string, status int, retryable bool, err error) error {
		return &InferenceError{Item: item.ID, Provider: config.ProviderOllama, Op: op, StatusCode: status, Retryable: retryable, Err: err}
	}

	img, err := readImage(item.Path)
	if err != nil {
		return "", fail(opReadImage, 0, false, err)
	}
	payload := ollamaChatRequest{
		Model: g.cfg.Model,
		Messages: []ollamaMessage{{
			Role:    "user",
			Content: g.cfg.Prompt,
			Images:  []string{base64.StdEncoding.EncodeToString(img.data)},
		}},
		Stream: false,
		Options: ollamaOptions{
			Temperature: g.cfg.Options.Temperature,
			NumCtx:      g.cfg.Options.ContextWindow,
			TopP:        g.cfg.Options.TopP,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fail(opRequest, 0, false, fmt.Errorf("encode body: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.timeout())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/api/chat", bytes.NewReader(encoded))
	if err != nil {
		return "", fail(opRequest, 0, false, fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fail(opRequest, 0, retryableTransport(ctx, err), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fail(opRequest, 0, retryableTransport(ctx, err), fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fail(opStatus, resp.StatusCode, retryableStatus(resp.StatusCode), errors.New(snippet(body)))
	}

	var decoded ollamaChatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fail(opDecode, 0, false, err)
	}
	if decoded.Error != "" {
		return "", fail(opStatus, 0, false, errors.New(decoded.Error))
	}
	content := strings.TrimSpace(decoded.Message.Content)
	if content == "" {
		return "", fail(opEmpty, 0, true, fmt.Errorf("done_reason=%q", decoded.DoneReason))
	}
	return content, nil
}

// Ping checks that the server answers and the model is pulled.
func (g *ollamaGateway) Ping(ctx context.Context) error {
	fail := func(status int, err error) error {
		return &InferenceError{Provider: config.ProviderOllama, Op: opPing, StatusCode: status, Retryable: false, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return fail(0, err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(0, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fail(resp.StatusCode, errors.New(snippet(body)))
	}
	var tags struct {
		Models []struct {
			Name  string `json:"name"`
			Model string `json:"model"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &tags); err != nil {
		return fail(0, fmt.Errorf("decode tags: %w", err))
	}
	for _, m := range tags.Models {
		if m.Name == g.cfg.Model || m.Model == g.cfg.Model || strings.TrimSuffix(m.Name, ":latest") == g.cfg.Model {
			return nil
		}
	}
	return fail(0, fmt.Errorf("model %q is not pulled", g.cfg.Model))
}
