package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shotscribe/internal/services"
)

const (
	// MaxImages bounds how many frames a single vision request may carry.
	MaxImages = 20

	defaultHTTPTimeout   = 120 * time.Second
	defaultTemperature   = 0.7
	defaultMaxTokens     = 2000
	visionMaxTokens      = 4000
	healthCheckMaxTokens = 10
)

// Config points the client at an OpenAI-compatible chat completions API.
type Config struct {
	APIKey         string
	BaseURL        string
	VisionModel    string
	TextModel      string
	TimeoutSeconds int
}

// Client issues vision and text chat completions.
type Client struct {
	apiKey      string
	baseURL     string
	visionModel string
	textModel   string
	http        *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client; nil is ignored.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// NewClient builds a client from cfg. Whitespace around every field is ignored.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		visionModel: strings.TrimSpace(cfg.VisionModel),
		textModel:   strings.TrimSpace(cfg.TextModel),
		http:        &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VisionModel is the model AnalyzeFrames targets.
func (c *Client) VisionModel() string { return c.visionModel }

// TextModel is the model Complete and HealthCheck target.
func (c *Client) TextModel() string { return c.textModel }

// Image is one inline image attached to a vision request.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURL renders the image as a base64 data URL, assuming JPEG when the
// MIME type is unknown.
func (i Image) DataURL() string {
	mime := i.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Options tune a text completion. Zero values select the defaults.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// AnalyzeFrames sends prompt followed by images, in order, as one user
// message to the vision model. Images beyond MaxImages are dropped.
func (c *Client) AnalyzeFrames(ctx context.Context, prompt string, images []Image) (string, error) {
	if prompt = strings.TrimSpace(prompt); prompt == "" {
		return "", errors.New("llm vision: prompt required")
	}
	if len(images) == 0 {
		return "", errors.New("llm vision: at least one image required")
	}
	images = images[:min(len(images), MaxImages)]

	parts := []contentPart{{Type: "text", Text: prompt}}
	for _, img := range images {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: img.DataURL()}})
	}
	return c.complete(ctx, "llm vision", chatRequest{
		Model:       c.visionModel,
		Messages:    []chatMessage{{Role: "user", Content: parts}},
		Temperature: defaultTemperature,
		MaxTokens:   visionMaxTokens,
	})
}

// Complete sends a system and a user message to the text model.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	if systemPrompt = strings.TrimSpace(systemPrompt); systemPrompt == "" {
		return "", errors.New("llm complete: system prompt required")
	}
	if userPrompt = strings.TrimSpace(userPrompt); userPrompt == "" {
		return "", errors.New("llm complete: user prompt required")
	}
	req := chatRequest{
		Model: c.textModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}
	if opts.Temperature > 0 {
		req.Temperature = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	return c.complete(ctx, "llm complete", req)
}

// HealthCheck sends a tiny prompt to confirm the key and text model work.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.complete(ctx, "llm health", chatRequest{
		Model:       c.textModel,
		Messages:    []chatMessage{{Role: "user", Content: "ping"}},
		Temperature: defaultTemperature,
		MaxTokens:   healthCheckMaxTokens,
	})
	return err
}

func (c *Client) complete(ctx context.Context, op string, req chatRequest) (string, error) {
	if c.apiKey == "" {
		return "", services.Wrap(services.ErrConfiguration, op, "check credentials", "api key required", nil)
	}
	if strings.TrimSpace(req.Model) == "" {
		return "", services.Wrap(services.ErrConfiguration, op, "check model", "model required", nil)
	}
	resp, body, err := c.post(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return resp.content(op, body)
}
