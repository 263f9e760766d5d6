// Package anthropic is a minimal client for the Anthropic Messages API with
// per-call timeouts and bounded, jittered retries on transient failures.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/GHR600/App-Project-sub003/internal/config"
	log "github.com/sirupsen/logrus"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"

	maxErrorBodyBytes = 2048
)

// ErrNotConfigured indicates the client has no API key.
var ErrNotConfigured = errors.New("anthropic: api key not configured")

// APIError is a non-2xx response from the Messages API.
type APIError struct {
	StatusCode int    // HTTP status returned by the provider.
	Type       string // Provider error type, when parseable.
	Message    string // Provider error message, when parseable.
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("anthropic: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("anthropic: status %d", e.StatusCode)
}

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a Messages API request.
type Request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

// Usage reports token counts for a completed generation.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response is the reshaped Messages API response.
type Response struct {
	ID         string // Provider message ID.
	Model      string // Model that served the request.
	StopReason string // Provider stop reason.
	Text       string // Concatenated text content blocks.
	Usage      Usage  // Token counts.
}

// Client calls the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      config.RetryConfig
}

// NewClient constructs a Client. An empty baseURL selects the public API.
func NewClient(apiKey, baseURL string, timeout time.Duration, retry config.RetryConfig) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// messagesResponse mirrors the wire shape of a Messages API response.
type messagesResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      Usage  `json:"usage"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateMessage runs one generation, retrying transient failures (429, 5xx,
// network errors) up to the configured attempt ceiling.
func (c *Client) CreateMessage(ctx context.Context, req Request) (*Response, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	payload, errMarshal := json.Marshal(req)
	if errMarshal != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", errMarshal)
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("anthropic: create message: %w", ctx.Err())
			case <-time.After(backoffDelay(c.retry, attempt)):
			}
		}

		resp, retryable, errCall := c.doRequest(ctx, payload)
		if errCall == nil {
			return resp, nil
		}
		lastErr = errCall
		if !retryable {
			return nil, errCall
		}
		log.WithError(errCall).WithFields(log.Fields{
			"attempt": attempt + 1,
			"model":   req.Model,
		}).Warn("anthropic request retrying")
	}
	return nil, lastErr
}

// doRequest performs a single Messages API call. The second return value
// reports whether the failure is transient.
func (c *Client) doRequest(ctx context.Context, payload []byte) (*Response, bool, error) {
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if errReq != nil {
		return nil, false, fmt.Errorf("anthropic: build request: %w", errReq)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return nil, true, fmt.Errorf("anthropic: request: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		apiErr := parseAPIError(resp)
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, apiErr
	}

	body, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return nil, true, fmt.Errorf("anthropic: read response: %w", errRead)
	}

	var wire messagesResponse
	if errDecode := json.Unmarshal(body, &wire); errDecode != nil {
		return nil, false, fmt.Errorf("anthropic: decode response: %w", errDecode)
	}

	var text strings.Builder
	for _, block := range wire.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, false, fmt.Errorf("anthropic: empty response content")
	}

	return &Response{
		ID:         wire.ID,
		Model:      wire.Model,
		StopReason: wire.StopReason,
		Text:       text.String(),
		Usage:      wire.Usage,
	}, false, nil
}

// parseAPIError extracts the provider error payload from a failed response.
func parseAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, errRead := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if errRead != nil {
		return apiErr
	}
	var wire messagesResponse
	if errDecode := json.Unmarshal(body, &wire); errDecode == nil && wire.Error != nil {
		apiErr.Type = wire.Error.Type
		apiErr.Message = wire.Error.Message
	}
	return apiErr
}

// backoffDelay computes an exponential delay with jitter for the given
// attempt, capped at the configured maximum.
func backoffDelay(retry config.RetryConfig, attempt int) time.Duration {
	delay := retry.BaseDelay << (attempt - 1)
	if retry.MaxDelay > 0 && delay > retry.MaxDelay {
		delay = retry.MaxDelay
	}
	if delay <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int64N(int64(delay)/2 + 1))
	return delay + jitter
}
