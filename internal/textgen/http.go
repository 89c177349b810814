package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// HTTP calls a completion endpoint that accepts {"prompt","max_tokens"} and
// answers with {"text"}, {"generated_text"} or [{"generated_text"}].
type HTTP struct {
	URL       string
	Token     string
	MaxTokens int
	Client    *http.Client
}

func NewHTTP(url, token string, timeout time.Duration) *HTTP {
	return &HTTP{
		URL:       url,
		Token:     token,
		MaxTokens: 256,
		Client:    &http.Client{Timeout: timeout},
	}
}

type completionRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

type completion struct {
	Text          string `json:"text"`
	GeneratedText string `json:"generated_text"`
}

func (h *HTTP) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(completionRequest{Prompt: prompt, MaxTokens: h.MaxTokens})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read completion: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("completion endpoint returned %d", resp.StatusCode)
	}
	return parseCompletion(body)
}

// parseCompletion accepts the common response shapes and falls back to the
// raw body when it is not JSON.
func parseCompletion(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", nil
	}

	switch body[0] {
	case '{':
		var c completion
		if err := json.Unmarshal(body, &c); err == nil {
			return strings.TrimSpace(c.Text + c.GeneratedText), nil
		}
	case '[':
		var cs []completion
		if err := json.Unmarshal(body, &cs); err == nil {
			if len(cs) == 0 {
				return "", errors.New("empty completion list")
			}
			return strings.TrimSpace(cs[0].Text + cs[0].GeneratedText), nil
		}
	}
	return strings.TrimSpace(string(body)), nil
}
