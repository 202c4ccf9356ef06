package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"shotscribe/internal/services"
)

const serviceName = "chat completions"

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatMessage.Content is a string or a []contentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []choice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// choice accepts both the regular and the streaming schema; some
// compatible endpoints answer with delta even when stream is off.
type choice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

func (ch choice) text() string {
	for _, s := range []string{ch.Message.Content, ch.Delta.Content, ch.Text} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// content returns the first non-empty choice. An empty answer is a remote
// failure that names the finish reason and a snippet of the raw body.
func (r chatResponse) content(op string, body []byte) (string, error) {
	if len(r.Choices) == 0 {
		return "", &services.RemoteError{Service: serviceName, StatusCode: http.StatusOK, Body: op + ": empty choices"}
	}
	reason := ""
	for _, ch := range r.Choices {
		if text := ch.text(); text != "" {
			return text, nil
		}
		if reason == "" {
			reason = strings.TrimSpace(ch.FinishReason)
		}
	}
	return "", fmt.Errorf("%w: %s: empty content (finish_reason=%q, body=%s)",
		services.ErrRemoteService, op, reason, snippet(body))
}

func (c *Client) post(ctx context.Context, payload chatRequest) (chatResponse, []byte, error) {
	var out chatResponse
	endpoint, err := url.JoinPath(c.baseURL, "chat", "completions")
	if err != nil {
		return out, nil, fmt.Errorf("build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return out, nil, fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return out, nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, nil, fmt.Errorf("%w: request failed (timeout %s): %w", services.ErrRemoteService, c.http.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, nil, fmt.Errorf("%w: read body: %w", services.ErrRemoteService, err)
	}

	remote := func(msg string) error {
		return &services.RemoteError{Service: serviceName, StatusCode: resp.StatusCode, Body: msg}
	}
	if resp.StatusCode/100 != 2 {
		return out, body, remote(string(body))
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, body, remote("decode response: " + err.Error())
	}
	if out.Error != nil {
		return out, body, remote(strings.TrimSpace(out.Error.Message))
	}
	return out, body, nil
}

// snippet collapses whitespace and caps the body at 160 runes for error text.
func snippet(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if s == "" {
		return "<empty>"
	}
	if r := []rune(s); len(r) > 160 {
		return string(r[:160]) + "..."
	}
	return s
}
