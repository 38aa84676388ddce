package embyclient

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// CreateOrUpdateCollection resolves tmdbIds against the library and
// creates (or updates, if one of that name exists) a BoxSet containing
// the matches. It returns the collection id and the subset of tmdbIds
// actually found in the library — callers use the gap against the full
// list to compute list-sourced collection member status
func (c *Client) CreateOrUpdateCollection(name string, tmdbIDs []string, itemType string) (string, []string, error) {
	libraryItems, err := c.GetLibraryItems("", itemType, nil)
	if err != nil {
		return "", nil, fmt.Errorf("resolving collection members: %w", err)
	}

	wanted := make(map[string]bool, len(tmdbIDs))
	for _, id := range tmdbIDs {
		wanted[id] = true
	}

	var matchedItemIDs []string
	var matchedTMDbIDs []string
	for _, item := range libraryItems {
		if wanted[item.ProviderIDs.Tmdb] {
			matchedItemIDs = append(matchedItemIDs, item.ID)
			matchedTMDbIDs = append(matchedTMDbIDs, item.ProviderIDs.Tmdb)
		}
	}

	existing, err := c.findCollectionByName(name)
	if err != nil {
		return "", nil, err
	}

	if existing != nil {
		if len(matchedItemIDs) > 0 {
			if err := c.AppendItemToCollection(existing.ID, matchedItemIDs); err != nil {
				return "", nil, err
			}
		}
		return existing.ID, matchedTMDbIDs, nil
	}

	query := url.Values{}
	query.Set("Name", name)
	if len(matchedItemIDs) > 0 {
		query.Set("Ids", strings.Join(matchedItemIDs, ","))
	}

	var created Collection
	if err := c.post("/Collections?"+query.Encode(), nil, &created); err != nil {
		return "", nil, fmt.Errorf("creating collection %q: %w", name, err)
	}
	return created.ID, matchedTMDbIDs, nil
}

// AppendItemToCollection adds already-resolved item ids to an existing
// collection.
func (c *Client) AppendItemToCollection(collectionID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	query := url.Values{}
	query.Set("Ids", strings.Join(itemIDs, ","))
	if err := c.post("/Collections/"+collectionID+"/Items?"+query.Encode(), nil, nil); err != nil {
		return fmt.Errorf("appending to collection %s: %w", collectionID, err)
	}
	return nil
}

func (c *Client) findCollectionByName(name string) (*Collection, error) {
	items, err := c.GetLibraryItems("", "BoxSet", nil)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	for _, item := range items {
		if item.Name == name {
			return &Collection{ID: item.ID, Name: item.Name}, nil
		}
	}
	return nil, nil
}

// refreshQueryString builds the query Emby expects for an items refresh
// (see RefreshItemMetadata), kept separate so its bool-to-string mapping
// is exercised by a unit test without a live server.
func refreshQueryString(replaceAll bool) string {
	return "Recursive=true&ReplaceAllMetadata=" + strconv.FormatBool(replaceAll) + "&ReplaceAllImages=false"
}
