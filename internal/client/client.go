// Package client is an HTTP client for the flagship API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TimurManjosov/flagship-core/internal/rollout"
	"github.com/TimurManjosov/flagship-core/internal/store"
)

// Client is an HTTP client for the flagship API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// EvaluateResult is the server's answer for one rollout evaluation.
type EvaluateResult struct {
	rollout.Result
	EvaluatedAt string `json:"evaluatedAt"`
}

// Evaluate asks the server to evaluate a rollout.
func (c *Client) Evaluate(ctx context.Context, params map[string]any, rctx rollout.Context) (*EvaluateResult, error) {
	body, err := json.Marshal(map[string]any{"parameters": params, "context": rctx})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/rollout/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result EvaluateResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListJobs retrieves job records, newest first. An empty name lists all jobs and a
// non-positive limit uses the server default.
func (c *Client) ListJobs(ctx context.Context, name string, limit int) ([]store.Job, error) {
	u, err := url.Parse(c.BaseURL + "/v1/jobs")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	if name != "" {
		q.Set("name", name)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	var result struct {
		Jobs []store.Job `json:"jobs"`
	}
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return result.Jobs, nil
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, nil)
}

// do sends req and decodes a 200 response into out (if non-nil).
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(bodyBytes))}
		var structured struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		if json.Unmarshal(bodyBytes, &structured) == nil && structured.Message != "" {
			apiErr.Message = structured.Message
			apiErr.Code = structured.Code
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
