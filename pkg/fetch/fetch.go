// Package fetch provides the HTTP client used by the crawl loop: browser-like
// headers, redirect following, a hard request timeout and automatic retry
// with exponential backoff on retryable server errors.
package fetch

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	defaultBackoff     = 1 * time.Second

	// maxBodySize bounds how much of a response is read into memory.
	maxBodySize = 10 << 20
)

// defaultHeaders mimics a desktop browser so sources that reject unknown
// agents still serve content.
var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "fr-FR,fr;q=0.9,en;q=0.8",
	"Accept-Encoding": "gzip",
	"Connection":      "keep-alive",
}

// StatusError is a non-success HTTP response. Temporary errors are retried,
// everything else is permanent and skipped immediately.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Code)
}

// Temporary reports whether the status is in the retryable set.
func (e *StatusError) Temporary() bool {
	switch e.Code {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Config controls a Client. The zero value gives the default policy:
// 30s timeout, 3 attempts, 1s initial backoff, no rate limit.
type Config struct {
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	RateLimit   float64 // requests per second, 0 disables limiting
	Headers     map[string]string
	Logger      *zap.Logger
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Client wraps http.Client with the crawl fetch policy. It is safe for
// concurrent use.
type Client struct {
	config  Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a Client, filling unset config fields with defaults.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.Backoff == 0 {
		config.Backoff = defaultBackoff
	}
	if config.Headers == nil {
		config.Headers = defaultHeaders
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		limiter: limiter,
		logger:  config.Logger,
	}
}

// Get fetches url, retrying on 500/502/503/504 up to MaxAttempts with
// exponential backoff. Any other failure is returned as-is after the first
// attempt. Redirects are followed.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	backoff := c.config.Backoff

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.do(ctx, url)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		statusErr, ok := err.(*StatusError)
		if !ok || !statusErr.Temporary() {
			return nil, err
		}

		if attempt < c.config.MaxAttempts {
			c.logger.Warn("retrying fetch",
				zap.String("url", url),
				zap.Int("status", statusErr.Code),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}

	return nil, lastErr
}

func (c *Client) do(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	for name, value := range c.config.Headers {
		req.Header.Set(name, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused across retries.
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return nil, fmt.Errorf("fetch %s: decompress: %w", url, gzErr)
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", url, err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
