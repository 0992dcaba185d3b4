package ors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.openrouteservice.org"

// StatusError is a non-2xx answer from an ORS or VROOM endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// RateLimited reports a 429 answer, the only status worth waiting out.
func (e *StatusError) RateLimited() bool {
	return e.Code == http.StatusTooManyRequests
}

// Client is the shared HTTP plumbing for OpenRouteService endpoints:
// auth header, JSON content negotiation, optional client-side throttling
// and exponential backoff on rate limiting. Server and network failures are
// returned to the caller on the first attempt. It is safe for concurrent use.
type Client struct {
	session *http.Client
	apiKey  string
	baseURL string
	limiter *rate.Limiter

	MaxAttempts    int
	InitialBackoff time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option { return func(o *Client) { o.session = c } }

// WithRateLimit throttles outgoing requests to rps per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *Client) {
		if rps > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

func WithBackoff(attempts int, initial time.Duration) Option {
	return func(o *Client) {
		o.MaxAttempts = attempts
		o.InitialBackoff = initial
	}
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		session:        &http.Client{Timeout: 10 * time.Second},
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		MaxAttempts:    4,
		InitialBackoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) NewRequest(
	ctx context.Context,
	method string,
	url string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Self-hosted VROOM needs no key.
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &StatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// DoWithRetry retries 429 responses using exponential backoff while
// respecting context cancellation. Any other failure ends the call.
// makeReq is called once per attempt so bodies are fresh.
func (c *Client) DoWithRetry(
	ctx context.Context,
	makeReq func() (*http.Request, error),
) (*http.Response, error) {
	attempts := max(c.MaxAttempts, 1)
	backoff := c.InitialBackoff

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !Retryable(err) || attempt == attempts {
			return nil, lastErr
		}
		log.Printf("ors rate limited: url=%s attempt=%d/%d retry_in=%s", req.URL.Path, attempt, attempts, backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}

// Retryable reports whether err is a rate-limit refusal.
func Retryable(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.RateLimited()
}
