package embyclient

import "testing"

func TestRefreshQueryString(t *testing.T) {
	if got := refreshQueryString(false); got != "Recursive=true&ReplaceAllMetadata=false&ReplaceAllImages=false" {
		t.Fatalf("unexpected query: %q", got)
	}
	if got := refreshQueryString(true); got != "Recursive=true&ReplaceAllMetadata=true&ReplaceAllImages=false" {
		t.Fatalf("unexpected query: %q", got)
	}
}
