package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Config tunes the retrying client.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// DefaultConfig suits calls between services on the same network.
func DefaultConfig() Config {
	return Config{
		Timeout:         15 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 32,
	}
}

// Client is an http.Client that retries idempotent requests on network
// errors and 5xx responses.
type Client struct {
	http *http.Client
	cfg  Config
}

// New builds a Client with a pooled transport.
func New(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{http: &http.Client{Transport: transport, Timeout: cfg.Timeout}, cfg: cfg}
}

func (c *Client) wait(attempt int) time.Duration {
	d := c.cfg.RetryWaitMin << (attempt - 1)
	if c.cfg.RetryWaitMax > 0 && d > c.cfg.RetryWaitMax {
		d = c.cfg.RetryWaitMax
	}
	return d
}

// Do sends req, retrying GET and HEAD requests up to MaxRetries times.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	retryable := req.Method == http.MethodGet || req.Method == http.MethodHead

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.wait(attempt)):
			}
		}

		resp, err := c.http.Do(req)
		last := !retryable || attempt >= c.cfg.MaxRetries
		switch {
		case err != nil:
			if last || !isNetworkError(err) {
				return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
			}
		case resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented && !last:
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		default:
			return resp, nil
		}
	}
}

// GetJSON fetches url and decodes a 2xx JSON body into out. Non-2xx
// responses are translated by ParseResponseError.
func (c *Client) GetJSON(ctx context.Context, url, service string, out any) error {
	return getJSON(ctx, c.Do, url, service, out)
}

type doFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

func getJSON(ctx context.Context, do doFunc, url, service string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := do(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ParseResponseError(resp, service)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", service, err)
	}
	return nil
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
