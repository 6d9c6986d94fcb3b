// internal/chat/genai/client.go
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nutrisaur-workers/internal/common/metrics"
)

var (
	ErrGenAITimeout = errors.New("GENAI_TIMEOUT")
	ErrGenAIFailed  = errors.New("GENAI_FAILED")
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Client calls the external generative-AI service. The 15-second hard
// timeout lives in the context; the HTTP client itself carries no timeout
// so the deadline is the single authority.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     Logger
}

func NewClient(config *Config, log Logger) *Client {
	return &Client{
		config:     config,
		httpClient: &http.Client{},
		logger: log.With(map[string]interface{}{
			"component": "genai",
		}),
	}
}

// Generate sends the prompt and returns the generated text. Retries
// transient failures with exponential backoff until the context deadline;
// a deadline hit always surfaces as ErrGenAITimeout.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	requestBody := map[string]interface{}{
		"prompt":      prompt,
		"max_tokens":  c.config.MaxTokens,
		"temperature": c.config.Temperature,
	}
	body, _ := json.Marshal(requestBody)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				metrics.GenAIRequestsTotal.WithLabelValues("timeout").Inc()
				return "", ErrGenAITimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/api/ai/generate", bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrGenAIFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			metrics.GenAIRequestsTotal.WithLabelValues("timeout").Inc()
			return "", ErrGenAITimeout
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			metrics.GenAIRequestsTotal.WithLabelValues("timeout").Inc()
			return "", ErrGenAITimeout
		}
		metrics.GenAIRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %v", ErrGenAIFailed, lastErr)
	}

	if resp == nil {
		metrics.GenAIRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: no successful response after retries", ErrGenAIFailed)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		metrics.GenAIRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: decode error: %v", ErrGenAIFailed, err)
	}

	if strings.TrimSpace(apiResponse.Text) == "" {
		apiResponse.Text = "I don't have enough information to answer that question."
	}

	metrics.GenAIRequestsTotal.WithLabelValues("ok").Inc()
	c.logger.Info("generation completed", map[string]interface{}{
		"promptLength":   len(prompt),
		"responseLength": len(apiResponse.Text),
	})

	return apiResponse.Text, nil
}
