package embyclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClient_DefaultsAndConfig(t *testing.T) {
	client := NewClient(Config{URL: "http://localhost:8096/", APIKey: "token"})

	if client.baseURL != "http://localhost:8096" {
		t.Fatalf("baseURL = %q, want %q", client.baseURL, "http://localhost:8096")
	}
	if client.httpClient.Timeout != 20*time.Second {
		t.Fatalf("timeout = %v, want %v", client.httpClient.Timeout, 20*time.Second)
	}
	if client.apiKey != "token" {
		t.Fatalf("apiKey = %q, want %q", client.apiKey, "token")
	}
}

func TestPing_MakesAuthenticatedRequest(t *testing.T) {
	var gotPath, gotAuth string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SystemInfo{ServerName: "Emby", Version: "4.8.0", ID: "server-1"})
	}))
	defer ts.Close()

	client := NewClient(Config{URL: ts.URL, APIKey: "secret-key", Timeout: 5 * time.Second})
	if err := client.Ping(); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	if gotPath != "/System/Info" {
		t.Fatalf("path = %s, want /System/Info", gotPath)
	}
	if !strings.Contains(gotAuth, `Token="secret-key"`) {
		t.Fatalf("expected auth header to include API token, got %q", gotAuth)
	}
}

func TestGet_NotFoundMapsToSentinel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClient(Config{URL: ts.URL, APIKey: "secret-key"})
	_, err := client.GetItemDetails("missing-item")
	if err == nil || !strings.Contains(err.Error(), ErrNotFound.Error()) {
		t.Fatalf("expected wrapped ErrNotFound, got %v", err)
	}
}

func TestRequest_InvalidURLAndHTTPError(t *testing.T) {
	badClient := NewClient(Config{URL: "://bad-url", APIKey: "secret-key"})
	if _, err := badClient.request(http.MethodGet, "/System/Info", nil); err == nil || !strings.Contains(err.Error(), "invalid base URL") {
		t.Fatalf("expected invalid base URL error, got %v", err)
	}

	errorServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer errorServer.Close()

	client := NewClient(Config{URL: errorServer.URL, APIKey: "secret-key"})
	if _, err := client.request(http.MethodGet, "/System/Info", nil); err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Fatalf("expected API status error, got %v", err)
	}
}
