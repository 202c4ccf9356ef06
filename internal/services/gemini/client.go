package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"shotscribe/internal/services"
	"shotscribe/internal/services/llm"
)

const (
	serviceName        = "gemini"
	defaultTemperature = 0.7
	defaultMaxTokens   = 4000
	defaultHTTPTimeout = 120 * time.Second
)

// Config captures the Gemini API settings.
type Config struct {
	APIKey         string
	Model          string
	TimeoutSeconds int
	// BaseURL overrides the API endpoint (tests).
	BaseURL string
}

// Client sends keyframes to a Gemini model.
type Client struct {
	model  string
	models *genai.Models
	config *genai.GenerateContentConfig
}

// NewClient builds a Gemini client using the Gemini API backend.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gemini", "check credentials", "gemini.api_key required", nil)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gemini", "check model", "gemini.model required", nil)
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	clientConfig := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	gc, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{
		model:  model,
		models: gc.Models,
		config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](defaultTemperature),
			MaxOutputTokens: defaultMaxTokens,
		},
	}, nil
}

// VisionModel returns the configured model name.
func (c *Client) VisionModel() string { return c.model }

// AnalyzeFrames sends the prompt followed by the images as inline blobs in a
// single user turn. Images beyond llm.MaxImages are dropped.
func (c *Client) AnalyzeFrames(ctx context.Context, prompt string, images []llm.Image) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("gemini vision: prompt required")
	}
	if len(images) == 0 {
		return "", errors.New("gemini vision: at least one image required")
	}
	if len(images) > llm.MaxImages {
		images = images[:llm.MaxImages]
	}
	parts := make([]*genai.Part, 0, len(images)+1)
	parts = append(parts, &genai.Part{Text: prompt})
	for _, img := range images {
		mime := img.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: img.Data, MIMEType: mime}})
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, c.config)
	if err != nil {
		return "", translateError(err)
	}
	text := responseText(resp)
	if text == "" {
		return "", &services.RemoteError{Service: serviceName, StatusCode: http.StatusOK, Body: "empty candidates"}
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

func translateError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &services.RemoteError{Service: serviceName, StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	return fmt.Errorf("%w: gemini: %w", services.ErrRemoteService, err)
}
