package llm

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

const (
	defaultTimeout  = 30 * time.Second
	thinkingTimeout = 20 * time.Second
)

// Provider is one OpenAI-compatible chat completion backend bound to a single
// model.
type Provider struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	thinking   bool
	httpClient *http.Client
}

// NewProvider creates a provider for the given endpoint and model.
func NewProvider(name, apiKey, baseURL, model string) *Provider {
	return &Provider{
		name:    name,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewThinkingProvider creates a provider for a reasoning model. Its responses
// are stripped of deliberation markers and it runs under a shorter per-attempt
// ceiling to leave headroom for the rest of the chain.
func NewThinkingProvider(name, apiKey, baseURL, model string) *Provider {
	p := NewProvider(name, apiKey, baseURL, model)
	p.thinking = true
	return p
}

// Name returns the provider's identifier for logging.
func (p *Provider) Name() string { return p.name }

// Complete runs one chat completion attempt and returns the first choice's
// content.
func (p *Provider) Complete(ctx context.Context, req Request) (string, error) {
	wire := chatRequest{
		Model:       p.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		wire.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	timeout := defaultTimeout
	if p.thinking {
		timeout = thinkingTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("response contained no choices")
	}

	content := parsed.Choices[0].Message.Content
	if p.thinking {
		content = stripThinking(content)
	}
	return content, nil
}

// stripThinking removes a reasoning model's deliberation block. Everything up
// to the closing marker is discarded; an unclosed marker leaves the text as is.
func stripThinking(s string) string {
	if _, after, found := strings.Cut(s, "</think>"); found {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(s)
}
