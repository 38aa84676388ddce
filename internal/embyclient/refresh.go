package embyclient

import "fmt"

// RefreshItemMetadata triggers a metadata refresh for an item,
// optionally discarding all previously fetched provider data.
func (c *Client) RefreshItemMetadata(itemID string, replaceAll bool) error {
	if err := c.post("/Items/"+itemID+"/Refresh?"+refreshQueryString(replaceAll), nil, nil); err != nil {
		return fmt.Errorf("refreshing item %s: %w", itemID, err)
	}
	return nil
}
