package dashscope

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/h2non/filetype"

	"shotscribe/internal/services"
)

const (
	serviceName        = "dashscope transcription"
	compatibleSuffix   = "/compatible-mode/v1"
	nativeGeneratePath = "/api/v1/services/aigc/multimodal-generation/generation"
	defaultHTTPTimeout = 120 * time.Second
	defaultAudioMIME   = "audio/mp3"

	// TranscribePrompt asks for a complete verbatim transcript.
	TranscribePrompt = "请完整转录这段音频的所有语音内容，逐字逐句记录，不要删减、不要总结、不要省略任何内容。"
)

// Config captures the settings for the native transcription endpoint.
type Config struct {
	APIKey string
	// BaseURL is the OpenAI-compatible base URL; the native endpoint is
	// derived from it.
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Transcript is the cached transcription artifact.
type Transcript struct {
	Text      string `json:"text"`
	AudioFile string `json:"audio_file"`
}

// Client transcribes audio files.
type Client struct {
	cfg        Config
	endpoint   string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a transcription client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	client := &Client{
		cfg:        cfg,
		endpoint:   NativeEndpoint(cfg.BaseURL),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// NativeEndpoint maps the compatible-mode base URL onto the native
// multimodal-generation endpoint. Base URLs without the compatible-mode
// suffix get the native path appended.
func NativeEndpoint(baseURL string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if strings.Contains(baseURL, compatibleSuffix) {
		return strings.Replace(baseURL, compatibleSuffix, nativeGeneratePath, 1)
	}
	return baseURL + nativeGeneratePath
}

// Model returns the transcription model.
func (c *Client) Model() string { return c.cfg.Model }

type generationRequest struct {
	Model      string               `json:"model"`
	Input      generationInput      `json:"input"`
	Parameters generationParameters `json:"parameters"`
}

type generationInput struct {
	FileURLs []string `json:"file_urls"`
	Prompt   string   `json:"prompt"`
}

type generationParameters struct {
	ResultFormat string `json:"result_format"`
}

type generationResponse struct {
	Output *struct {
		Choices []struct {
			Message struct {
				Content content `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Transcribe uploads audioPath inline and returns the normalized transcript.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	if c.cfg.APIKey == "" {
		return Transcript{}, services.Wrap(services.ErrConfiguration, "transcribe", "check credentials", "api key required", nil)
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrTranscription, "transcribe", "read audio", audioPath, err)
	}
	if len(data) == 0 {
		return Transcript{}, services.Wrap(services.ErrTranscription, "transcribe", "read audio", "audio file is empty", nil)
	}

	payload := generationRequest{
		Model: c.cfg.Model,
		Input: generationInput{
			FileURLs: []string{audioDataURL(data)},
			Prompt:   TranscribePrompt,
		},
		Parameters: generationParameters{ResultFormat: "message"},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Transcript{}, fmt.Errorf("dashscope: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return Transcript{}, fmt.Errorf("dashscope: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("%w: dashscope: http error: %w", services.ErrRemoteService, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Transcript{}, fmt.Errorf("%w: dashscope: read body: %w", services.ErrRemoteService, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Transcript{}, &services.RemoteError{Service: serviceName, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed generationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Transcript{}, &services.RemoteError{Service: serviceName, StatusCode: resp.StatusCode, Body: "decode response: " + err.Error()}
	}
	if parsed.Output == nil || len(parsed.Output.Choices) == 0 {
		detail := "response has no output choices"
		if parsed.Code != "" {
			detail = parsed.Code + ": " + parsed.Message
		}
		return Transcript{}, &services.RemoteError{Service: serviceName, StatusCode: resp.StatusCode, Body: detail}
	}

	return Transcript{
		Text:      parsed.Output.Choices[0].Message.Content.Text(),
		AudioFile: audioPath,
	}, nil
}

func audioDataURL(data []byte) string {
	mime := defaultAudioMIME
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown && filetype.IsAudio(data) {
		mime = kind.MIME.Value
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
