// Package tmdb implements the TMDb Adapter (C5): person, movie, TV, and
// collection lookups against The Movie Database's REST API, rate
// limited and circuit-broken so a slow or down upstream degrades
// gracefully instead of stalling a whole cast run.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when TMDb answers a lookup with HTTP 404.
var ErrNotFound = fmt.Errorf("tmdb: not found")

const defaultBaseURL = "https://api.themoviedb.org/3"

type Config struct {
	APIKey               string
	BaseURL              string
	RequestsPerSec       float64
	Timeout              time.Duration
	HTTPClient           *http.Client
	FailureThreshold     int
	FailureWindowSeconds int
	CooldownSeconds      int
}

// Client is a single TMDb API session, safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 4
	}
	limiter := rate.NewLimiter(rate.Limit(rps), 1)

	failureThreshold := cfg.FailureThreshold
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	cooldown := time.Duration(cfg.CooldownSeconds) * time.Second
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failureThreshold)
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		limiter:    limiter,
		breaker:    breaker,
	}
}

// get performs a rate-limited, circuit-broken GET and decodes the JSON
// body into result.
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for tmdb rate limiter: %w", err)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doGet(ctx, path, query)
	})
	if err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("decoding tmdb response for %s: %w", path, err)
		}
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)

	full := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, fmt.Errorf("building tmdb request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling tmdb %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading tmdb response for %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tmdb returned %d for %s: %s", resp.StatusCode, path, string(raw))
	}
	return raw, nil
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
