package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"catalogscan/internal/config"
	"catalogscan/internal/scan"
)

type geminiGateway struct {
	cfg    Config
	client *genai.Client
}

func newGemini(cfg Config) (*geminiGateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("inference: gemini requires an api key")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("inference: create gemini client: %w", err)
	}
	return &geminiGateway{cfg: cfg, client: client}, nil
}

func (g *geminiGateway) Name() string { return config.ProviderGemini + "/" + g.cfg.Model }

func (g *geminiGateway) generateConfig() *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.cfg.Options.Temperature)),
	}
	if g.cfg.Options.TopP > 0 {
		gc.TopP = genai.Ptr(float32(g.cfg.Options.TopP))
	}
	if g.cfg.Options.MaxOutputTokens > 0 {
		gc.MaxOutputTokens = int32(g.cfg.Options.MaxOutputTokens)
	}
	return gc
}

func (g *geminiGateway) Infer(ctx context.Context, item scan.Item) (string, error) {
	fail := func(op string, status int, retryable bool, err error) error {
		return &InferenceError{Item: item.ID, Provider: config.ProviderGemini, Op: op, StatusCode: status, Retryable: retryable, Err: err}
	}

	img, err := readImage(item.Path)
	if err != nil {
		return "", fail(opReadImage, 0, false, err)
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(g.cfg.Prompt),
			genai.NewPartFromBytes(img.data, img.mimeType),
		}, genai.RoleUser),
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.timeout())
	defer cancel()
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, contents, g.generateConfig())
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", fail(opStatus, apiErr.Code, retryableStatus(apiErr.Code), errors.New(apiErr.Message))
		}
		return "", fail(opRequest, 0, retryableTransport(ctx, err), err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		reason := "no candidates"
		if len(resp.Candidates) > 0 {
			reason = fmt.Sprintf("finish_reason=%q", resp.Candidates[0].FinishReason)
		}
		return "", fail(opEmpty, 0, true, errors.New(reason))
	}
	return text, nil
}

// Ping fetches the model metadata.
func (g *geminiGateway) Ping(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.cfg.Model, nil); err != nil {
		return &InferenceError{Provider: config.ProviderGemini, Op: opPing, Err: err}
	}
	return nil
}
