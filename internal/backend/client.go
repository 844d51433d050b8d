// Package backend is the single client handle to the hosted backend: table
// reads and writes, the auth surface, the real-time change feed, and object
// storage. The backend's wire protocols belong to the hosted product; this
// package only consumes them over HTTP/JSON.
package backend

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

	"github.com/anle/alumnet/internal/remoteerr"
)

// TokenSource supplies the bearer token for authenticated calls. An empty
// token means the request goes out with only the public API key.
type TokenSource interface {
	AccessToken() string
}

// StaticToken is a TokenSource wrapping a fixed token (tests, scripts).
type StaticToken string

func (s StaticToken) AccessToken() string { return string(s) }

// Config holds the settings for a Client.
type Config struct {
	// BaseURL is the root URL of the hosted project.
	BaseURL string

	// APIKey is the public API key sent on every request.
	APIKey string

	// ReadTimeout bounds table reads (default 15s).
	ReadTimeout time.Duration

	// WriteTimeout bounds mutations (default 30s).
	WriteTimeout time.Duration

	// MaxRetries bounds automatic retries on 429/5xx (default 2).
	MaxRetries int
}

func (c Config) withDefaults() Config {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	return c
}

// Client is the long-lived handle to the backend, created once per process
// and shared by every consumer. All methods are safe for concurrent use.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// New creates a Client. tokens may be nil for anonymous access.
func New(cfg Config, tokens TokenSource) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			// Per-request deadlines come from the caller's context;
			// this is the hard ceiling for a single attempt.
			Timeout: cfg.WriteTimeout + 5*time.Second,
		},
		tokens: tokens,
	}
}

// SetTokenSource swaps the token source after construction (used once the
// session manager exists; the client itself is built first).
func (c *Client) SetTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// Ping issues the cheapest possible read against the query layer. Used by
// the connection monitor.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/rest/v1/", nil, nil, nil)
}

// do builds the request, applies auth headers, retries on 429 and 5xx with
// exponential backoff (rebuilding the body each attempt), and decodes the
// JSON response into result when non-nil. Error responses are normalized.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	var lastErr error
	waited := false
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 && !waited {
			select {
			case <-ctx.Done():
				return remoteerr.Normalize(ctx.Err())
			case <-time.After(backoffDelay(attempt - 1)):
			}
		}
		waited = false

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		c.applyHeaders(req, payload != nil)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = remoteerr.Normalize(err)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = remoteerr.Normalize(fmt.Errorf("reading response body: %w", readErr))
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = remoteerr.FromResponse(resp.StatusCode, respBody)
			// An explicit Retry-After replaces the next backoff wait
			// rather than stacking on top of it.
			if wait := retryAfter(resp); wait > 0 {
				select {
				case <-ctx.Done():
					return remoteerr.Normalize(ctx.Err())
				case <-time.After(wait):
				}
				waited = true
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Client errors are not retried; the call was understood
			// and rejected.
			return remoteerr.FromResponse(resp.StatusCode, respBody)
		}

		if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}
		return nil
	}

	if lastErr == nil {
		lastErr = remoteerr.New(remoteerr.CodeUnknown, "remote request failed")
	}
	return lastErr
}

func (c *Client) applyHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.cfg.APIKey
	if c.tokens != nil {
		if t := c.tokens.AccessToken(); t != "" {
			token = t
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// retryAfter honors an explicit Retry-After header; zero means the caller
// should use its own backoff.
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// backoffDelay returns the wait before retry attempt+1: 500ms, 1s, 2s, ...
// capped at 10s.
func backoffDelay(attempt int) time.Duration {
	d := 500 * time.Millisecond * time.Duration(1<<uint(attempt))
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	return d
}
