// Package openai implements llm.Generator against any OpenAI-compatible
// Chat Completions endpoint (LM Studio, Ollama, OpenAI, ...).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jxucoder/meepoo/pkg/llm"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "qwen2.5-7b-instruct-1m"

const (
	completionsPath = "/v1/chat/completions"
	temperature     = 0.7

	maxTokensMessage = 150
	maxTokensSummary = 100
)

// Client implements llm.Generator using the Chat Completions API.
// Its fields are never written after New, so one Client may serve any
// number of concurrent calls.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient as the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// New creates a client for the endpoint rooted at baseURL.
// apiKey and model may be empty; model then defaults to DefaultModel.
// The base URL is not checked until the first call.
func New(baseURL, apiKey, model string, opts ...Option) *Client {
	if model == "" {
		model = DefaultModel
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.baseURL + completionsPath
}

// Model returns the model name sent with every request.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) GenerateMessage(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, commitPersona, prompt, maxTokensMessage)
}

func (c *Client) GenerateCommitMessageFromHunks(ctx context.Context, hunkComments []string) (string, error) {
	return c.generate(ctx, commitPersona, hunksPrompt(hunkComments), maxTokensMessage)
}

func (c *Client) GenerateCommitMessage(ctx context.Context, diff string) (string, error) {
	return c.generate(ctx, commitPersona, diffPrompt(diff), maxTokensMessage)
}

func (c *Client) Summarize(ctx context.Context, token string) (string, error) {
	return c.generate(ctx, summaryPersona, token, maxTokensSummary)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

func (c *Client) newRequest(persona, content string, maxTokens int) chatRequest {
	return chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: persona},
			{Role: "user", Content: content},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

func (c *Client) generate(ctx context.Context, persona, content string, maxTokens int) (string, error) {
	endpoint, err := c.validEndpoint()
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(c.newRequest(persona, content, maxTokens))
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrInvalidEndpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	text, err := extractContent(data)
	if err != nil {
		return "", fmt.Errorf("%w (status %d): %v", llm.ErrMalformedResponse, resp.StatusCode, err)
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) validEndpoint() (string, error) {
	raw := c.Endpoint()
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrInvalidEndpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not an absolute URL", llm.ErrInvalidEndpoint, raw)
	}
	return raw, nil
}

// extractContent returns choices[0].message.content from a response body.
// Keys match exactly and nothing beyond that path is decoded, so other
// choices and fields may hold anything.
func extractContent(data []byte) (string, error) {
	raw, err := field(data, "choices")
	if err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	var choices []json.RawMessage
	if err := json.Unmarshal(raw, &choices); err != nil || choices == nil {
		return "", fmt.Errorf("choices is not a list")
	}
	if len(choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	msg, err := field(choices[0], "message")
	if err != nil {
		return "", fmt.Errorf("first choice: %w", err)
	}
	content, err := field(msg, "content")
	if err != nil {
		return "", fmt.Errorf("message: %w", err)
	}
	var text *string
	if err := json.Unmarshal(content, &text); err != nil || text == nil {
		return "", fmt.Errorf("content is not a string")
	}
	return *text, nil
}

// field returns the value stored under key in the JSON object data.
// A missing key, a null value or a non-object data is an error.
func field(data json.RawMessage, key string) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("expected an object holding %q", key)
	}
	v, ok := obj[key]
	if !ok || string(v) == "null" {
		return nil, fmt.Errorf("no %q", key)
	}
	return v, nil
}
