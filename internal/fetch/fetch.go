// Package fetch provides the shared HTTP client used by all chain
// adapters and the price oracle. It applies a rolling-window rate limit
// and retries transient upstream failures with exponential backoff.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/statement-engine/internal/config"
	"github.com/statement-engine/internal/logging"
)

// ErrRetriesExhausted is returned when every retry attempt failed.
// Callers treat this as a soft failure of a single upstream feed.
var ErrRetriesExhausted = errors.New("fetch: retries exhausted")

// Client is a rate-limited, retrying HTTP client for upstream APIs.
type Client struct {
	httpClient *http.Client
	limiter    *WindowLimiter
	maxRetries int
	backoff    func(attempt int) time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client from fetch configuration.
func NewClient(cfg config.FetchConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    NewWindowLimiter(cfg.MaxCallsPerSecond),
		maxRetries: cfg.MaxRetries,
		backoff:    defaultBackoff,
		sleep:      sleepContext,
	}
}

// defaultBackoff doubles the delay each attempt: 1s, 2s, 4s, ...
func defaultBackoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// GetJSON performs a rate-limited GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, url, headers, nil, out)
}

// PostJSON performs a rate-limited POST with a JSON body and decodes the
// JSON response into out.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	return c.doJSON(ctx, http.MethodPost, url, headers, payload, out)
}

func (c *Client) doJSON(ctx context.Context, method, url string, headers map[string]string, body []byte, out interface{}) error {
	logger := logging.FromContext(ctx)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt - 1)
			logger.WithFields(map[string]interface{}{
				"url":     url,
				"attempt": attempt,
				"delay":   delay.String(),
			}).Warn("retrying upstream request")
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		raw, err := c.doOnce(ctx, method, url, headers, body)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var re *retryableError
			if errors.As(err, &re) {
				lastErr = re.err
				continue
			}
			return err
		}

		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding response from %s: %w", url, err)
		}
		return nil
	}

	return fmt.Errorf("%w: %s: %v", ErrRetriesExhausted, url, lastErr)
}

// retryableError marks failures worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func (c *Client) doOnce(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return raw, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &retryableError{err: fmt.Errorf("upstream returned %d", resp.StatusCode)}
	default:
		return nil, fmt.Errorf("upstream returned %d for %s", resp.StatusCode, url)
	}
}
