package embyclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestGetItemDetails_RequestsCastFields(t *testing.T) {
	var gotQuery url.Values

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Item{
			ID:          "item-1",
			Name:        "Movie",
			Type:        "Movie",
			ProviderIDs: ProviderIDs{Tmdb: "42"},
			People:      []Person{{ID: "p1", Name: "Actor One", Type: "Actor"}},
		})
	}))
	defer ts.Close()

	client := NewClient(Config{URL: ts.URL, APIKey: "key"})
	item, err := client.GetItemDetails("item-1")
	if err != nil {
		t.Fatalf("GetItemDetails() error = %v", err)
	}

	if gotQuery.Get("Fields") != itemFields {
		t.Fatalf("Fields query = %q, want %q", gotQuery.Get("Fields"), itemFields)
	}
	if len(item.People) != 1 || item.People[0].Name != "Actor One" {
		t.Fatalf("unexpected people: %+v", item.People)
	}
	if item.ProviderIDs.Tmdb != "42" {
		t.Fatalf("expected tmdb id 42, got %q", item.ProviderIDs.Tmdb)
	}
}

func TestGetSeriesChildren_SetsParentID(t *testing.T) {
	var gotParent string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotParent = r.URL.Query().Get("ParentId")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ItemsResponse{Items: []Item{{ID: "ep-1", Type: "Episode"}}})
	}))
	defer ts.Close()

	client := NewClient(Config{URL: ts.URL, APIKey: "key"})
	children, err := client.GetSeriesChildren("series-1")
	if err != nil {
		t.Fatalf("GetSeriesChildren() error = %v", err)
	}

	if gotParent != "series-1" {
		t.Fatalf("ParentId = %q, want series-1", gotParent)
	}
	if len(children) != 1 || children[0].ID != "ep-1" {
		t.Fatalf("unexpected children: %+v", children)
	}
}
