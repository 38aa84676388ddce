package embyclient

import (
	"fmt"
	"net/url"
	"strings"
)

// itemFields is the field list requested on every item GET so People,
// ProviderIds, Genres, and Path come back populated — Emby omits them by
// default on the list endpoints.
const itemFields = "ProviderIds,People,Genres,Path"

// GetItemDetails returns full metadata for one item, including cast
// and crew (C4
func (c *Client) GetItemDetails(itemID string) (*Item, error) {
	query := url.Values{}
	query.Set("Fields", itemFields)

	var item Item
	if err := c.get("/Items/"+itemID+"?"+query.Encode(), &item); err != nil {
		return nil, fmt.Errorf("getting item %s: %w", itemID, err)
	}
	return &item, nil
}

// GetLibraryItems lists items of the given type, optionally restricted
// to a set of library (parent) ids.
func (c *Client) GetLibraryItems(userID, itemType string, libraryIDs []string) ([]Item, error) {
	query := url.Values{}
	query.Set("Recursive", "true")
	query.Set("Fields", itemFields)
	if itemType != "" {
		query.Set("IncludeItemTypes", itemType)
	}
	if len(libraryIDs) > 0 {
		query.Set("ParentId", strings.Join(libraryIDs, ","))
	}

	endpoint := "/Items?" + query.Encode()
	if userID != "" {
		endpoint = "/Users/" + userID + "/Items?" + query.Encode()
	}

	var resp ItemsResponse
	if err := c.get(endpoint, &resp); err != nil {
		return nil, fmt.Errorf("getting library items: %w", err)
	}
	return resp.Items, nil
}

// GetSeriesChildren returns every season/episode under a series.
func (c *Client) GetSeriesChildren(seriesID string) ([]Item, error) {
	query := url.Values{}
	query.Set("ParentId", seriesID)
	query.Set("Recursive", "true")
	query.Set("Fields", itemFields)

	var resp ItemsResponse
	if err := c.get("/Items?"+query.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("getting series %s children: %w", seriesID, err)
	}
	return resp.Items, nil
}
