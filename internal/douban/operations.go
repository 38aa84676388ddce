package douban

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetActing fetches the Douban cast list for an item C6.
// If doubanIDOverride is non-empty it skips the search step and fetches
// celebrities for that subject directly; otherwise it resolves a
// subject ID from name/imdbID/type/year via the suggest endpoint.
func (c *Client) GetActing(ctx context.Context, name, imdbID, mediaType string, year int, doubanIDOverride string) (*Acting, error) {
	subjectID := doubanIDOverride
	if subjectID == "" {
		resolved, err := c.resolveSubjectID(ctx, name, imdbID, mediaType, year)
		if err != nil {
			return nil, err
		}
		if resolved == "" {
			return &Acting{}, nil
		}
		subjectID = resolved
	}

	raw, err := c.doGet(ctx, subjectEndpointVar+"/"+subjectID+"/celebrities?format=json")
	if err != nil {
		return nil, fmt.Errorf("fetching douban celebrities for subject %s: %w", subjectID, err)
	}

	var parsed subjectCelebrities
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding douban celebrities for subject %s: %w", subjectID, err)
	}
	return &Acting{Cast: parsed.Cast}, nil
}

func (c *Client) resolveSubjectID(ctx context.Context, name, imdbID, mediaType string, year int) (string, error) {
	query := buildQuery(map[string]string{"q": name})
	raw, err := c.doGet(ctx, searchEndpointVar+"?"+query)
	if err != nil {
		return "", fmt.Errorf("searching douban subject %q: %w", name, err)
	}

	var hits []subjectSuggestHit
	if err := json.Unmarshal(raw, &hits); err != nil {
		return "", fmt.Errorf("decoding douban subject search for %q: %w", name, err)
	}

	for _, h := range hits {
		if year != 0 && h.Year != "" && h.Year != itoa(year) {
			continue
		}
		return h.ID, nil
	}
	return "", nil
}

// GetCelebrityDetails fetches a celebrity's profile, including the
// extra.info array the enricher scans for an IMDb id.
func (c *Client) GetCelebrityDetails(ctx context.Context, doubanID string) (*CelebrityDetails, error) {
	raw, err := c.doGet(ctx, celebrityEndpointVar+"/"+doubanID+"?format=json")
	if err != nil {
		return nil, fmt.Errorf("fetching douban celebrity %s: %w", doubanID, err)
	}

	var details CelebrityDetails
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, fmt.Errorf("decoding douban celebrity %s: %w", doubanID, err)
	}
	return &details, nil
}
