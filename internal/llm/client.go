// Package llm streams chat completions from an OpenAI-compatible endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rcliao/nextstep/internal/logger"
	"github.com/rcliao/nextstep/internal/model"
	"github.com/rcliao/nextstep/internal/stream"
)

const chatCompletionsPath = "/chat/completions"

type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds a whole streamed reply; zero means no limit beyond ctx.
	Timeout time.Duration
}

// Message is one chat message sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
}

type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	log        *logger.Logger
}

func New(cfg Config, log *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("llm: base_url required")
	}
	if log == nil {
		log = logger.Nop()
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Transport: tr},
		log:        log,
	}, nil
}

// NewWithHTTPClient is New with a caller-supplied http.Client, for tests.
func NewWithHTTPClient(cfg Config, httpClient *http.Client, log *logger.Logger) (*Client, error) {
	c, err := New(cfg, log)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c, nil
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatCompletionStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
			Reasoning        string `json:"reasoning"`
		} `json:"delta"`
	} `json:"choices"`
	Error json.RawMessage `json:"error,omitempty"`
}

// StreamChat posts req with stream=true and calls onDelta for every non-empty
// content or reasoning fragment, in arrival order. It returns nil once the
// server sends [DONE] or closes the stream.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest, onDelta func(model.StreamDelta)) error {
	if len(req.Messages) == 0 {
		return errors.New("llm: no messages")
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(chatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		Stream:      true,
	}); err != nil {
		return err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, &buf)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	c.log.Debug("chat stream start", "model", req.Model, "messages", len(req.Messages))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("chat completions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	chunks := 0
	err = readSSE(resp.Body, func(_ string, data string) error {
		data = strings.TrimSpace(data)
		if data == "" {
			return nil
		}
		if data == "[DONE]" {
			return errStop
		}

		var chunk chatCompletionStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.log.Debug("skipping undecodable chunk", "error", err)
			return nil
		}
		if len(chunk.Error) > 0 && string(chunk.Error) != "null" {
			return &HTTPError{StatusCode: resp.StatusCode, Body: string(chunk.Error)}
		}

		for _, choice := range chunk.Choices {
			d := model.StreamDelta{Content: choice.Delta.Content, Reasoning: choice.Delta.ReasoningContent}
			if d.Reasoning == "" {
				d.Reasoning = choice.Delta.Reasoning
			}
			if d.Empty() {
				continue
			}
			chunks++
			if onDelta != nil {
				onDelta(d)
			}
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	c.log.Debug("chat stream done", "model", req.Model, "deltas", chunks, "elapsed", time.Since(start))
	return nil
}

// Streamer streams one chat completion. *Client is the production Streamer.
type Streamer interface {
	StreamChat(ctx context.Context, req ChatRequest, onDelta func(model.StreamDelta)) error
}

// Complete streams req through s and returns the concatenated content.
func Complete(ctx context.Context, s Streamer, req ChatRequest) (string, error) {
	var out strings.Builder
	err := s.StreamChat(ctx, req, func(d model.StreamDelta) {
		out.WriteString(d.Content)
	})
	return out.String(), err
}

// Source binds req to s as a stream.Source.
func Source(s Streamer, req ChatRequest) stream.Source {
	return stream.SourceFunc(func(ctx context.Context, onDelta func(model.StreamDelta)) error {
		return s.StreamChat(ctx, req, onDelta)
	})
}
