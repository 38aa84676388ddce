package tmdb

import (
	"context"
	"fmt"
	"net/url"
)

// SearchPerson runs /search/person for a display name.
func (c *Client) SearchPerson(ctx context.Context, name string) ([]PersonSearchResult, error) {
	var resp personSearchResponse
	q := url.Values{"query": {name}}
	if err := c.get(ctx, "/search/person", q, &resp); err != nil {
		return nil, fmt.Errorf("searching tmdb person %q: %w", name, err)
	}
	return resp.Results, nil
}

// GetPersonDetails fetches /person/{id}, optionally appending
// external_ids and also_known_as C5: `include:
// external_ids,also_known_as`).
func (c *Client) GetPersonDetails(ctx context.Context, id int64, include ...string) (*Person, error) {
	var p Person
	q := url.Values{}
	if len(include) > 0 {
		q.Set("append_to_response", joinCommaSep(include))
	}
	if err := c.get(ctx, "/person/"+itoa(id), q, &p); err != nil {
		return nil, fmt.Errorf("fetching tmdb person %d: %w", id, err)
	}
	return &p, nil
}

// GetMovieDetails fetches /movie/{id} with credits appended.
func (c *Client) GetMovieDetails(ctx context.Context, id int64) (*MovieDetails, error) {
	var m MovieDetails
	q := url.Values{"append_to_response": {"credits"}}
	if err := c.get(ctx, "/movie/"+itoa(id), q, &m); err != nil {
		return nil, fmt.Errorf("fetching tmdb movie %d: %w", id, err)
	}
	return &m, nil
}

// GetTvDetails fetches /tv/{id} with credits appended.
func (c *Client) GetTvDetails(ctx context.Context, id int64) (*TvDetails, error) {
	var t TvDetails
	q := url.Values{"append_to_response": {"credits"}}
	if err := c.get(ctx, "/tv/"+itoa(id), q, &t); err != nil {
		return nil, fmt.Errorf("fetching tmdb tv %d: %w", id, err)
	}
	return &t, nil
}

// GetPersonCombinedCredits fetches /person/{id}/combined_credits, the
// aggregated movie+tv credit list the actor-tracking task diffs against
// a subscription's last-checked snapshot.
func (c *Client) GetPersonCombinedCredits(ctx context.Context, id int64) ([]CombinedCreditsEntry, error) {
	var resp combinedCreditsResponse
	if err := c.get(ctx, "/person/"+itoa(id)+"/combined_credits", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching tmdb combined credits for person %d: %w", id, err)
	}
	return resp.Cast, nil
}

// GetCollectionDetails fetches /collection/{id}.
func (c *Client) GetCollectionDetails(ctx context.Context, id int64) (*CollectionDetails, error) {
	var col CollectionDetails
	if err := c.get(ctx, "/collection/"+itoa(id), nil, &col); err != nil {
		return nil, fmt.Errorf("fetching tmdb collection %d: %w", id, err)
	}
	return &col, nil
}

// GetCollectionDetailsParts fetches a TMDb collection and returns just
// the member ids, the shape internal/collections' list provider needs
// without importing tmdb's wire schema.
func (c *Client) GetCollectionDetailsParts(ctx context.Context, id int64) ([]int64, error) {
	col, err := c.GetCollectionDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(col.Parts))
	for i, part := range col.Parts {
		ids[i] = part.ID
	}
	return ids, nil
}

func joinCommaSep(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
