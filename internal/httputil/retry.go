package httputil

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// RetryConfig bounds the retry loop around a single logical request.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

var DefaultRetry = RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   1 * time.Second,
	MaxDelay:    10 * time.Second,
}

// Do executes an HTTP request with exponential backoff. Only transport
// errors and 5xx responses are retried; any other response is returned
// as-is. The last attempt returns its response even on 5xx so callers keep
// the status code. buildReq is called on every attempt so request bodies
// are fresh.
func Do(ctx context.Context, client *http.Client, cfg RetryConfig, buildReq func() (*http.Request, error)) (*http.Response, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetry.MaxAttempts
	}

	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err == nil && (resp.StatusCode < 500 || attempt == cfg.MaxAttempts) {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		log.Printf("[WARN] http attempt %d/%d failed: %v, retrying in %s",
			attempt, cfg.MaxAttempts, lastErr, delay)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return nil, fmt.Errorf("all %d attempts failed, last error: %w", cfg.MaxAttempts, lastErr)
}
