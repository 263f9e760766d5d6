// Package identity exchanges bearer tokens with the hosted identity service
// for an authenticated principal.
package identity

import (
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
	"github.com/GHR600/App-Project-sub003/internal/security"
	log "github.com/sirupsen/logrus"
)

// ErrInvalidToken indicates the identity service rejected the bearer token.
var ErrInvalidToken = errors.New("identity: invalid token")

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID        string    `json:"id"`         // Identity-provider user ID.
	Email     string    `json:"email"`      // Account email.
	CreatedAt time.Time `json:"created_at"` // Account creation timestamp.
}

// Client verifies bearer tokens, locally when the provider's JWT secret is
// configured and via the remote user endpoint otherwise.
type Client struct {
	baseURL    string
	anonKey    string
	jwtSecret  string
	httpClient *http.Client
	retry      config.RetryConfig
}

// NewClient constructs an identity client from configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.IdentityURL, "/"),
		anonKey:    cfg.IdentityAnonKey,
		jwtSecret:  cfg.IdentityJWTSecret,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		retry:      cfg.Retry,
	}
}

// ExchangeToken resolves a bearer token into a Principal. Rejections map to
// ErrInvalidToken; transient upstream failures are retried with jittered
// backoff before surfacing.
func (c *Client) ExchangeToken(ctx context.Context, token string) (*Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	if c.jwtSecret != "" {
		return c.verifyLocal(token)
	}
	return c.exchangeRemote(ctx, token)
}

// verifyLocal validates the token signature against the shared secret,
// skipping the network round-trip.
func (c *Client) verifyLocal(token string) (*Principal, error) {
	claims, errParse := security.ParseAccessToken(c.jwtSecret, token)
	if errParse != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, errParse)
	}
	principal := &Principal{ID: claims.Subject, Email: claims.Email}
	if claims.IssuedAt != nil {
		principal.CreatedAt = claims.IssuedAt.Time
	}
	return principal, nil
}

// userResponse mirrors the identity service's user payload.
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// exchangeRemote calls the identity service's user endpoint with the token.
func (c *Client) exchangeRemote(ctx context.Context, token string) (*Principal, error) {
	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("identity: exchange token: %w", ctx.Err())
			case <-time.After(backoffDelay(c.retry, attempt)):
			}
		}

		principal, retryable, errExchange := c.fetchUser(ctx, token)
		if errExchange == nil {
			return principal, nil
		}
		lastErr = errExchange
		if !retryable {
			return nil, errExchange
		}
		log.WithError(errExchange).WithField("attempt", attempt+1).Warn("identity exchange retrying")
	}
	return nil, fmt.Errorf("identity: exchange token: %w", lastErr)
}

// fetchUser performs a single user-endpoint request. The second return value
// reports whether the failure is transient.
func (c *Client) fetchUser(ctx context.Context, token string) (*Principal, bool, error) {
	req, errReq := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if errReq != nil {
		return nil, false, fmt.Errorf("identity: build request: %w", errReq)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", c.anonKey)

	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return nil, true, fmt.Errorf("identity: request: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, ErrInvalidToken
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("identity: status %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("identity: status %d", resp.StatusCode)
	}

	body, errRead := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if errRead != nil {
		return nil, true, fmt.Errorf("identity: read response: %w", errRead)
	}

	var user userResponse
	if errDecode := json.Unmarshal(body, &user); errDecode != nil {
		return nil, false, fmt.Errorf("identity: decode response: %w", errDecode)
	}
	if user.ID == "" {
		return nil, false, ErrInvalidToken
	}
	return &Principal{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt}, false, nil
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
