// Package fetch provides the HTTP client shared by the ESPN and NBA.com
// extractors.
//
// Every call hits the network; there is no retry and no cache. Requests are
// paced by a token bucket limiter and guarded by a circuit breaker so a dead
// source fails fast instead of stalling every remaining batch item.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/albapepper/courtside-data/internal/provider"
)

// DefaultUserAgent is sent with every request. Both sites serve reduced
// markup to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Options configures a Client. Zero values pick the defaults.
type Options struct {
	Timeout           time.Duration // default 30s
	RequestsPerMinute int           // 0 disables pacing
	BreakerFailures   uint32        // consecutive failures before opening; default 5
	BreakerCooldown   time.Duration // open-state duration; default 1m
	UserAgent         string
	Logger            *slog.Logger
}

// Client is the shared document fetcher.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewClient creates a fetcher with rate limiting and a circuit breaker.
func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = time.Minute
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(opts.RequestsPerMinute) / 60.0)
	}

	threshold := opts.BreakerFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "document-fetcher",
		Timeout: opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: countsAsHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("fetch circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		http: resty.New().
			SetTimeout(opts.Timeout).
			SetHeader("User-Agent", opts.UserAgent).
			SetHeader("Accept-Language", "en-US,en;q=0.9"),
		limiter: rate.NewLimiter(limit, 1),
		breaker: cb,
		logger:  logger,
	}
}

// HTML returns the response body of url as a string.
func (c *Client) HTML(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Document fetches url and parses it as HTML.
func (c *Client) Document(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &provider.FetchError{URL: url, Err: fmt.Errorf("parse html: %w", err)}
	}
	return doc, nil
}

// JSON fetches url and decodes the body into v.
func (c *Client) JSON(ctx context.Context, url string, v interface{}) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &provider.FetchError{URL: url, Err: fmt.Errorf("decode json: %w", err)}
	}
	return nil
}

// get performs a rate-limited GET through the circuit breaker.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &provider.FetchError{URL: url, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, url)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &provider.FetchError{URL: url, Err: err}
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &provider.FetchError{URL: url, Err: err}
	}

	c.logger.Debug("fetched", "url", url, "status", resp.StatusCode(), "duration", time.Since(start))

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &provider.FetchError{
			URL:    url,
			Status: resp.StatusCode(),
			Err:    fmt.Errorf("unexpected status: %s", truncate(resp.Body(), 200)),
		}
	}
	return resp.Body(), nil
}

// countsAsHealthy decides which errors move the breaker toward open. Only
// transport failures, throttling and server errors say the source is down;
// a 404 for one game page does not.
func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	var fe *provider.FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch {
	case fe.Status == 0:
		return false
	case fe.Status == http.StatusTooManyRequests:
		return false
	case fe.Status >= 500:
		return false
	default:
		return true
	}
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
