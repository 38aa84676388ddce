// Package douban implements the Douban Adapter (C6): a cookie-gated,
// cooldown-rate-limited client over Douban's movie/celebrity JSON
// endpoints, used by the cast processor for Chinese-localized cast and
// role data and by the identity enricher for IMDb backfill.
package douban

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Endpoint bases, package-level vars rather than consts so tests can
// redirect them at an httptest server.
var (
	searchEndpointVar    = "https://movie.douban.com/j/subject_suggest"
	subjectEndpointVar   = "https://movie.douban.com/subject"
	celebrityEndpointVar = "https://movie.douban.com/celebrity"
)

type Config struct {
	Cookie               string
	CooldownMillis       int
	Timeout              time.Duration
	HTTPClient           *http.Client
	FailureThreshold     int
	FailureWindowSeconds int
	CooldownSeconds      int
}

// Client is a single Douban session, safe for concurrent use. Requests
// are serialized through a rate limiter configured from CooldownMillis,
// matching Douban's tolerance for a single slow client over a burst.
type Client struct {
	cookie     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	cooldown := time.Duration(cfg.CooldownMillis) * time.Millisecond
	if cooldown <= 0 {
		cooldown = 2 * time.Second
	}
	limiter := rate.NewLimiter(rate.Every(cooldown), 1)

	failureThreshold := cfg.FailureThreshold
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	breakerCooldown := time.Duration(cfg.CooldownSeconds) * time.Second
	if breakerCooldown <= 0 {
		breakerCooldown = 120 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "douban",
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failureThreshold)
		},
	})

	return &Client{
		cookie:     cfg.Cookie,
		httpClient: httpClient,
		limiter:    limiter,
		breaker:    breaker,
	}
}

func (c *Client) doGet(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for douban cooldown: %w", err)
	}

	return c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("building douban request: %w", err)
		}
		if c.cookie != "" {
			req.Header.Set("Cookie", c.cookie)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; emby-actor-processor)")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("calling douban: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading douban response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("douban returned %d: %s", resp.StatusCode, string(raw))
		}
		return raw, nil
	})
}

func buildQuery(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q.Encode()
}

func itoa(n int) string { return strconv.Itoa(n) }
