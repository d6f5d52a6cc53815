// Package ai talks to OpenAI-compatible embedding and chat-completion
// endpoints over plain HTTP.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls one OpenAI-compatible API base. Model names are fixed at
// construction; the generation credential is supplied per call because
// retrieval must keep working without it.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	embeddingModel string
	chatModel      string
	embedAPIKey    string
}

func NewClient(baseURL, embeddingModel, chatModel, embedAPIKey string) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: 90 * time.Second},
		baseURL:        strings.TrimRight(baseURL, "/"),
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
		embedAPIKey:    embedAPIKey,
	}
}

// EmbeddingModel reports the configured embedding model identifier. It is
// recorded alongside the index so reopened indexes can be validated.
func (c *Client) EmbeddingModel() string {
	return c.embeddingModel
}

// Complete sends a single-message chat completion and returns the generated
// text. The credential is the caller-supplied generation API key.
func (c *Client) Complete(ctx context.Context, credential, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":    c.chatModel,
		"messages": []map[string]string{{"role": "user", "content": prompt}},
		"stream":   false,
	}

	raw, err := c.postJSON(ctx, "/chat/completions", credential, reqBody)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse llm json failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty llm choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *Client) postJSON(ctx context.Context, path, apiKey string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("response status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
