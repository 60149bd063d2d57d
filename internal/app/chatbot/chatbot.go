/*
Package chatbot talks to an OpenAI-compatible chat completions endpoint.

CompleteStreaming consumes the server-sent event stream and hands every content delta to the
caller as soon as it is decoded; the next line is not read until the callback returns, which
keeps deltas in production order.
*/
package chatbot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"floritechat/internal/pkg/upstream"
)

// DisabledReply is what users see when no backend is configured.
const DisabledReply = "The assistant is resting right now. Please try again later!"

var ErrEmptyCompletion = errors.New("chatbot: completion had no choices")

// Config mirrors the chatbot section of the application configuration.
type Config struct {
	Enabled      bool
	Stream       bool
	APIBase      string
	APIKey       string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
		Delta   chatMessage `json:"delta"`
	} `json:"choices"`
}

// Client is the conversation provider.
type Client struct {
	cfg      Config
	upstream *upstream.Client
}

func New(cfg Config, up *upstream.Client) *Client {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	return &Client{cfg: cfg, upstream: up}
}

func (c *Client) Enabled() bool {
	return c.cfg.Enabled && c.cfg.APIKey != "" && c.cfg.APIBase != ""
}

func (c *Client) Streaming() bool {
	return c.cfg.Stream
}

// Complete returns the whole reply in one piece.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.send(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}

// CompleteStreaming calls onChunk for each non-empty delta and returns the full text.
// An error from onChunk aborts the stream.
func (c *Client) CompleteStreaming(ctx context.Context, prompt string, onChunk func(string) error) (string, error) {
	resp, err := c.send(ctx, prompt, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}

		var event completionResponse
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return full.String(), fmt.Errorf("decode stream event: %w", err)
		}
		if len(event.Choices) == 0 || event.Choices[0].Delta.Content == "" {
			continue
		}

		delta := event.Choices[0].Delta.Content
		full.WriteString(delta)
		if err := onChunk(delta); err != nil {
			return full.String(), err
		}
	}

	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read stream: %w", err)
	}
	return full.String(), nil
}

func (c *Client) send(ctx context.Context, prompt string, stream bool) (*http.Response, error) {
	var messages []chatMessage
	if c.cfg.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: c.cfg.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(completionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.APIBase, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.upstream.Open(req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	return resp, nil
}
