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

const (
	openRouterReferer = "https://github.com/catalogscan/catalogscan"
	openRouterTitle   = "catalogscan"
)

type openRouterGateway struct {
	cfg    Config
	client *http.Client
}

func newOpenRouter(cfg Config) (*openRouterGateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("inference: openrouter requires an api key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultOpenRouterBaseURL
	}
	return &openRouterGateway{cfg: cfg, client: cfg.httpClient()}, nil
}

func (g *openRouterGateway) Name() string { return config.ProviderOpenRouter + "/" + g.cfg.Model }

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type visionMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type visionRequest struct {
	Model       string          `json:"model"`
	Messages    []visionMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	TopP        float64         `json:"top_p,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		// Some providers return the streaming schema even when stream=false.
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (g *openRouterGateway) Infer(ctx context.Context, item scan.Item) (string, error) {
	fail := func(op string, status int, retryable bool, err error) error {
		return &InferenceError{Item: item.ID, Provider: config.ProviderOpenRouter, Op: op, StatusCode: status, Retryable: retryable, Err: err}
	}

	img, err := readImage(item.Path)
	if err != nil {
		return "", fail(opReadImage, 0, false, err)
	}
	dataURI := "data:" + img.mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.data)
	payload := visionRequest{
		Model: g.cfg.Model,
		Messages: []visionMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: g.cfg.Prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
			},
		}},
		Temperature: g.cfg.Options.Temperature,
		TopP:        g.cfg.Options.TopP,
		MaxTokens:   g.cfg.Options.MaxOutputTokens,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fail(opRequest, 0, false, fmt.Errorf("encode body: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.timeout())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fail(opRequest, 0, false, fmt.Errorf("new request: %w", err))
	}
	g.setHeaders(req)
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

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fail(opDecode, 0, false, err)
	}
	if completion.Error != nil {
		return "", fail(opStatus, 0, false, fmt.Errorf("api error: %s", strings.TrimSpace(completion.Error.Message)))
	}
	var finishReason, refusal string
	for _, choice := range completion.Choices {
		if finishReason == "" {
			finishReason = choice.FinishReason
		}
		if refusal == "" {
			refusal = choice.Message.Refusal
		}
		for _, content := range []string{choice.Message.Content, choice.Delta.Content, choice.Text} {
			if trimmed := strings.TrimSpace(content); trimmed != "" {
				return trimmed, nil
			}
		}
	}
	if len(completion.Choices) == 0 {
		return "", fail(opEmpty, 0, true, errors.New("no choices"))
	}
	return "", fail(opEmpty, 0, refusal == "", fmt.Errorf("finish_reason=%q refusal=%q", finishReason, refusal))
}

func (g *openRouterGateway) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("HTTP-Referer", openRouterReferer)
	req.Header.Set("X-Title", openRouterTitle)
}

// Ping lists the models endpoint next to the chat completions URL to check
// reachability and the API key.
func (g *openRouterGateway) Ping(ctx context.Context) error {
	fail := func(status int, err error) error {
		return &InferenceError{Provider: config.ProviderOpenRouter, Op: opPing, StatusCode: status, Err: err}
	}
	endpoint := strings.TrimSuffix(strings.TrimRight(g.cfg.BaseURL, "/"), "/chat/completions") + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fail(0, err)
	}
	g.setHeaders(req)
	resp, err := g.client.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fail(resp.StatusCode, errors.New(snippet(body)))
	}
	return nil
}
