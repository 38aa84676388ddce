package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPSubscriber implements collections.Subscriber by POSTing a
// release request to an external subscribe-to-downloader service.
// That service is a separate, opaque system; this adapter only knows
// how to call it.
type HTTPSubscriber struct {
	url    string
	client *http.Client
}

func newHTTPSubscriber(subscribeURL string, timeout time.Duration) *HTTPSubscriber {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSubscriber{url: subscribeURL, client: &http.Client{Timeout: timeout}}
}

type subscribeRequest struct {
	TMDbID   int64  `json:"tmdb_id"`
	ItemType string `json:"item_type"`
}

// Subscribe posts {tmdb_id, item_type} to the configured webhook URL.
// A non-2xx response or transport error fails the call; the caller
// (collections.AutoSubscribe) leaves the member "missing" and retries
// on the next run.
func (s *HTTPSubscriber) Subscribe(ctx context.Context, tmdbID int64, itemType string) error {
	if s.url == "" {
		return fmt.Errorf("subscriber: no downloader.subscribe_url configured")
	}
	body, err := json.Marshal(subscribeRequest{TMDbID: tmdbID, ItemType: itemType})
	if err != nil {
		return fmt.Errorf("encoding subscribe request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building subscribe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling downloader subscribe endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("downloader subscribe endpoint returned %s", resp.Status)
	}
	return nil
}
