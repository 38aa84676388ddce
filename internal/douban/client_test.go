package douban

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetActing_UsesOverrideSubjectIDDirectly(t *testing.T) {
	var gotPath, gotCookie string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCookie = r.Header.Get("Cookie")
		w.Write([]byte(`{"cast":[{"id":"D1","name":"乔·哈姆","character":"唐·德雷柏"}]}`))
	}))
	defer ts.Close()

	client := NewClient(Config{Cookie: "dbcl2=abc", CooldownMillis: 1})
	patchEndpoints(t, ts.URL)

	acting, err := client.GetActing(context.Background(), "Jon Hamm", "", "movie", 0, "S1")
	require.NoError(t, err)
	require.Len(t, acting.Cast, 1)
	require.Equal(t, "乔·哈姆", acting.Cast[0].Name)
	require.Equal(t, "/S1/celebrities", gotPath)
	require.Equal(t, "dbcl2=abc", gotCookie)
}

func TestGetCelebrityDetails_ExtractsIMDbID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"C1","name":"乔·哈姆","extra":{"info":[["职业","演员"],["IMDb编号","nm0355097"]]}}`))
	}))
	defer ts.Close()

	client := NewClient(Config{CooldownMillis: 1})
	patchEndpoints(t, ts.URL)

	details, err := client.GetCelebrityDetails(context.Background(), "C1")
	require.NoError(t, err)
	require.Equal(t, "nm0355097", details.IMDbID())
}

func TestClient_EnforcesCooldownBetweenCalls(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"C1","name":"x","extra":{"info":[]}}`))
	}))
	defer ts.Close()

	client := NewClient(Config{CooldownMillis: 50})
	patchEndpoints(t, ts.URL)

	start := time.Now()
	_, err := client.GetCelebrityDetails(context.Background(), "C1")
	require.NoError(t, err)
	_, err = client.GetCelebrityDetails(context.Background(), "C1")
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

// patchEndpoints redirects the package-level endpoint constants used by
// the client under test to the given httptest server for the duration
// of the calling test. Endpoints are restored via t.Cleanup.
func patchEndpoints(t *testing.T, baseURL string) {
	t.Helper()
	origSearch, origSubject, origCelebrity := searchEndpointVar, subjectEndpointVar, celebrityEndpointVar
	searchEndpointVar = baseURL
	subjectEndpointVar = baseURL
	celebrityEndpointVar = baseURL
	t.Cleanup(func() {
		searchEndpointVar = origSearch
		subjectEndpointVar = origSubject
		celebrityEndpointVar = origCelebrity
	})
}
