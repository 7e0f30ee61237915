// Package aiparser implements the AIParser port against an OpenAI-compatible
// chat-completions endpoint. The provider is told to answer with strict JSON;
// anything that cannot be decoded is treated as a parse failure, never as a
// pipeline fault.
package aiparser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"signalSimBot/internal/ports"
)

const systemPrompt = `You extract structured crypto trading signals from free-form text.
Respond with a single JSON object and nothing else:
{"is_signal": bool, "symbol": string, "side": "LONG"|"SHORT",
 "entry_low": number, "entry_high": number, "targets": [number],
 "stop": number, "leverage": int, "reason": string, "confidence": number}
confidence is 0-100. Set is_signal to false when the text is not a trading call.`

// Config holds configuration for the AI parsing client.
type Config struct {
	BaseURL string // e.g. "https://api.openai.com"
	APIKey  string
	Model   string
	Timeout time.Duration // Per-call HTTP timeout; the dispatcher also bounds the context
	Logger  ports.Logger
}

// Client implements ports.AIParser over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     ports.Logger
}

// New creates a new AI parsing client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for AI parsing client")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required for AI parsing client: %w", ports.ErrConfigurationError)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      model,
		logger:     cfg.Logger,
	}, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	// Force deterministic extraction.
	Temperature float64 `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type signalPayload struct {
	IsSignal   bool      `json:"is_signal"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	EntryLow   float64   `json:"entry_low"`
	EntryHigh  float64   `json:"entry_high"`
	Targets    []float64 `json:"targets"`
	Stop       float64   `json:"stop"`
	Leverage   int       `json:"leverage"`
	Reason     string    `json:"reason"`
	Confidence float64   `json:"confidence"`
}

// ParseFreeform asks the model to extract a structured signal from the text.
func (c *Client) ParseFreeform(ctx context.Context, text string) (*ports.AIParseResult, error) {
	op := "ParseFreeform"
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, ports.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%s: %w: %w", op, ports.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%s: %w", op, ports.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, string(raw))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response envelope: %w", op, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%s: provider returned no choices", op)
	}

	payload, err := decodePayload(chat.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn(ctx, "AI answer was not valid JSON", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !payload.IsSignal {
		return nil, fmt.Errorf("%s: %w", op, ports.ErrNotASignal)
	}

	return &ports.AIParseResult{
		IsSignal:   true,
		Symbol:     payload.Symbol,
		Side:       payload.Side,
		EntryLow:   payload.EntryLow,
		EntryHigh:  payload.EntryHigh,
		Targets:    payload.Targets,
		Stop:       payload.Stop,
		Leverage:   payload.Leverage,
		Reason:     payload.Reason,
		Confidence: payload.Confidence,
	}, nil
}

// decodePayload tolerates providers that wrap the JSON in a code fence.
func decodePayload(content string) (*signalPayload, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	var p signalPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &p); err != nil {
		return nil, fmt.Errorf("failed to decode signal payload: %w", err)
	}
	return &p, nil
}
