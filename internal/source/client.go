package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 10 * time.Second
	// minRequestInterval keeps us under the public CoinGecko rate limit.
	minRequestInterval = 6 * time.Second
)

// Client wraps http.Client with a minimum inter-request delay and bounded
// retries on rate-limit responses and transient failures. Exhausting the
// retry budget returns an error; callers fall back to forward-filled data.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewClient(logger *slog.Logger) *Client {
	return &Client{
		http:       &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(minRequestInterval), 1),
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		logger:     logger,
	}
}

// NewUnthrottledClient is for endpoints without a strict public rate limit,
// such as a dedicated Ethereum node.
func NewUnthrottledClient(logger *slog.Logger) *Client {
	c := NewClient(logger)
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	c.retryDelay = 2 * time.Second
	return c
}

// GetJSON fetches url and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	return c.doJSON(ctx, http.MethodGet, url, header, nil, out)
}

// PostJSON posts payload as JSON to url and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	header := http.Header{"Content-Type": []string{"application/json"}}
	return c.doJSON(ctx, http.MethodPost, url, header, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, url string, header http.Header, body []byte, out any) error {
	var lastErr error
	var delay time.Duration

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if delay > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "velocity-monitor/1.0")
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request %s: %w", url, err)
			delay = c.retryDelay
			c.logger.Warn("request failed, retrying", "url", url, "attempt", attempt+1, "error", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			err = json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %w", url, err)
			}
			return nil

		case resp.StatusCode == http.StatusTooManyRequests:
			delay = retryAfter(resp, c.retryDelay)
			resp.Body.Close()
			lastErr = fmt.Errorf("rate limited by %s", url)
			c.logger.Warn("rate limit exceeded, backing off", "url", url, "wait", delay, "attempt", attempt+1)

		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("%s returned status %d", url, resp.StatusCode)
			delay = c.retryDelay
			c.logger.Warn("server error, retrying", "url", url, "status", resp.StatusCode, "attempt", attempt+1)

		default:
			resp.Body.Close()
			return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
		}
	}

	return fmt.Errorf("retries exhausted: %w", lastErr)
}

func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
