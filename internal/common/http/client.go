// Package http wraps the standard client with the fixed per-request
// timeout the facade transport uses. Callers that manage deadlines through
// contexts (the generative-AI client) construct their own client instead.
package http

import (
	"net/http"
	"time"
)

type Client struct {
	httpClient *http.Client
}

// NewClient creates a client whose every request is bounded by timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}
