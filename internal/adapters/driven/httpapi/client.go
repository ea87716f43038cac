// Package httpapi holds the JSON-over-HTTP plumbing shared by the model
// provider adapters (OpenAI, Ollama, Anthropic).
package httpapi

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

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// maxErrorBody bounds the response excerpt kept in a StatusError.
const maxErrorBody = 300

// Client sends JSON requests to one provider.
type Client struct {
	http     *http.Client
	provider string
	baseURL  string
	header   http.Header
}

// New creates a client for provider rooted at baseURL.
// header is added to every request (authentication, API versions).
func New(provider, baseURL string, timeout time.Duration, header http.Header) *Client {
	if header == nil {
		header = http.Header{}
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		header:   header,
	}
}

// BaseURL returns the root all paths are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PostJSON sends in as JSON to path and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.provider, err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

// Get requests path and decodes the response into out, which may be nil.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, http.NoBody, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: send request: %w", c.provider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", c.provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Provider: c.provider, StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.provider, err)
	}
	return nil
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: API returned status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Is reports 429 responses as domain.ErrRateLimited.
func (e *StatusError) Is(target error) bool {
	return target == domain.ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// errorMessage extracts the provider's error message from a response body.
// OpenAI and Anthropic nest it under error.message; Ollama uses a string.
func errorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return msg
}

// Reason renders err as a short degradation reason for an Availability.
func Reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate limited: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return err.Error()
	}
}
