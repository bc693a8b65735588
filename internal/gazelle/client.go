package gazelle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cratesync/internal/config"
	"cratesync/internal/logging"
)

// HTTPDoer abstracts the HTTP client so tests can substitute transports.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to a Gazelle JSON API. Every request, including retries,
// passes through a shared rate limiter so the configured call budget holds
// across concurrent callers.
type Client struct {
	baseURL    string
	apiKey     string
	http       HTTPDoer
	limiter    *rate.Limiter
	maxRetries int
	retryBase  time.Duration
	logger     *slog.Logger
}

func NewClient(site config.Site, logger *slog.Logger) *Client {
	timeout := time.Duration(site.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewClientWithHTTP(site, &http.Client{Timeout: timeout}, logger)
}

func NewClientWithHTTP(site config.Site, doer HTTPDoer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	calls := site.RateLimitCalls
	if calls <= 0 {
		calls = 1
	}
	window := time.Duration(site.RateLimitSeconds) * time.Second
	if window <= 0 {
		window = time.Second
	}
	retryBase := time.Duration(site.RetryBaseSeconds) * time.Second
	if retryBase <= 0 {
		retryBase = time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(site.BaseURL, "/"),
		apiKey:     site.APIKey,
		http:       doer,
		// Burst of 1 spaces calls window/calls apart, so any window of the
		// configured length sees at most the configured number of calls.
		limiter:    rate.NewLimiter(rate.Every(window/time.Duration(calls)), 1),
		maxRetries: site.MaxRetries,
		retryBase:  retryBase,
		logger:     logging.WithComponent(logger, "gazelle"),
	}
}

// GetJSON performs an ajax.php action and returns the response payload.
// Transient failures are retried with exponential backoff up to the configured
// budget; each attempt consumes rate limiter quota.
func (c *Client) GetJSON(ctx context.Context, action string, params url.Values) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryBase << (attempt - 1)
			c.logger.Warn("request failed, retrying",
				"action", action,
				"attempt", attempt,
				"delay", delay.String(),
				"error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		payload, retryable, err := c.attempt(ctx, action, params)
		if err == nil {
			return payload, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%s failed after %d attempts: %w (%v)",
		action, c.maxRetries+1, ErrRemoteUnavailable, lastErr)
}

func (c *Client) attempt(ctx context.Context, action string, params url.Values) (json.RawMessage, bool, error) {
	endpoint := c.baseURL + "/ajax.php?action=" + url.QueryEscape(action)
	if len(params) > 0 {
		endpoint += "&" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
		return nil, true, fmt.Errorf("%w: status %d", ErrRemoteUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, false, fmt.Errorf("%w: status %d: %s",
			ErrRemoteRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope struct {
		Status   string          `json:"status"`
		Error    string          `json:"error"`
		Response json.RawMessage `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, false, fmt.Errorf("%w: decode response: %v", ErrRemoteRejected, err)
	}
	if envelope.Status != "success" {
		return nil, false, classifyAPIError(envelope.Error)
	}
	return envelope.Response, false, nil
}

func classifyAPIError(message string) error {
	lower := strings.ToLower(message)
	if strings.Contains(lower, "not found") || strings.Contains(lower, "bad id") ||
		strings.Contains(lower, "no such") {
		return fmt.Errorf("%w: %s", ErrRemoteNotFound, message)
	}
	return fmt.Errorf("%w: %s", ErrRemoteRejected, message)
}
