package collections

import (
	"context"
	"fmt"
	"strconv"
)

// TMDbClient is the subset of *tmdb.Client a list-sourced collection
// can resolve through: TMDb's own "collection" concept (e.g. "The
// Bourne Collection"), the one list source this system can resolve
// without a third-party list-curation service.
type TMDbClient interface {
	GetCollectionDetailsParts(ctx context.Context, id int64) ([]int64, error)
}

// TMDbListProvider implements ListProvider against TMDb collection ids.
// Any other provider name in a ListDefinition is rejected with an error
// naming the unsupported provider, rather than silently resolving to
// an empty list.
type TMDbListProvider struct {
	client TMDbClient
}

func NewTMDbListProvider(client TMDbClient) *TMDbListProvider {
	return &TMDbListProvider{client: client}
}

// ResolveList implements ListProvider. provider must be "tmdb_collection";
// listID is the TMDb collection id as a decimal string.
func (p *TMDbListProvider) ResolveList(ctx context.Context, provider, listID string) ([]int64, error) {
	if provider != "tmdb_collection" {
		return nil, fmt.Errorf("collections: unsupported list provider %q", provider)
	}
	id, err := strconv.ParseInt(listID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("collections: invalid tmdb collection id %q: %w", listID, err)
	}
	ids, err := p.client.GetCollectionDetailsParts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolving tmdb collection %d: %w", id, err)
	}
	return ids, nil
}
