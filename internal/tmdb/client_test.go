package tmdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetPersonDetails_AppendsIncludeAndDecodes(t *testing.T) {
	var gotQuery string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(Person{ID: 42, Name: "Stephen Chow", ExternalIDs: &ExternalIDs{IMDbID: "nm0000568"}})
	}))
	defer ts.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: ts.URL, RequestsPerSec: 100})
	p, err := client.GetPersonDetails(context.Background(), 42, "external_ids", "also_known_as")
	if err != nil {
		t.Fatalf("GetPersonDetails() error = %v", err)
	}
	if p.Name != "Stephen Chow" || p.ExternalIDs.IMDbID != "nm0000568" {
		t.Fatalf("unexpected person: %+v", p)
	}
	if !strings.Contains(gotQuery, "append_to_response=external_ids%2Calso_known_as") {
		t.Fatalf("query missing append_to_response, got %q", gotQuery)
	}
}

func TestGetMovieDetails_NotFoundMapsToSentinel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: ts.URL, RequestsPerSec: 100})
	_, err := client.GetMovieDetails(context.Background(), 999)
	if err == nil || !strings.Contains(err.Error(), ErrNotFound.Error()) {
		t.Fatalf("expected wrapped ErrNotFound, got %v", err)
	}
}

func TestSearchPerson_ReturnsResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "Tony Leung" {
			t.Fatalf("expected query param, got %q", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(personSearchResponse{Results: []PersonSearchResult{{ID: 1, Name: "Tony Leung"}}})
	}))
	defer ts.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: ts.URL, RequestsPerSec: 100})
	results, err := client.SearchPerson(context.Background(), "Tony Leung")
	if err != nil {
		t.Fatalf("SearchPerson() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
}
