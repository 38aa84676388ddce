package embyclient

import "fmt"

// PersonUpdate carries the optional fields UpdatePersonDetails may set.
type PersonUpdate struct {
	Name *string
}

// UpdatePersonDetails patches a person entity directly (used to correct
// a display name discovered during identity enrichment).
func (c *Client) UpdatePersonDetails(personID string, update PersonUpdate) error {
	payload := map[string]interface{}{}
	if update.Name != nil {
		payload["Name"] = *update.Name
	}
	if len(payload) == 0 {
		return nil
	}
	if err := c.post("/Items/"+personID, payload, nil); err != nil {
		return fmt.Errorf("updating person %s: %w", personID, err)
	}
	return nil
}

// UpdateItemCast replaces an item's People list with the finalized
// cast, the terminal write of the cast-processor pipeline before
// the override writer mirrors it to disk.
func (c *Client) UpdateItemCast(itemID string, cast []CastRecord) error {
	people := make([]Person, 0, len(cast))
	for _, rec := range cast {
		people = append(people, Person{
			ID:           rec.ID,
			Name:         rec.Name,
			OriginalName: rec.OriginalName,
			Role:         rec.Character,
			Type:         "Actor",
			SortOrder:    rec.Order,
		})
	}

	payload := map[string]interface{}{"People": people}
	if err := c.post("/Items/"+itemID, payload, nil); err != nil {
		return fmt.Errorf("updating cast for item %s: %w", itemID, err)
	}
	return nil
}

// ClearAllPersonsViaApi wipes every item's People list, used only by the
// rebuild workflow to force a clean re-derivation of cast from scratch.
// progress is called after each item with the running count.
func (c *Client) ClearAllPersonsViaApi(progress func(done, total int)) error {
	items, err := c.GetLibraryItems("", "", nil)
	if err != nil {
		return fmt.Errorf("listing items for clear: %w", err)
	}

	for i, item := range items {
		if err := c.post("/Items/"+item.ID, map[string]interface{}{"People": []Person{}}, nil); err != nil {
			return fmt.Errorf("clearing persons on item %s: %w", item.ID, err)
		}
		if progress != nil {
			progress(i+1, len(items))
		}
	}
	return nil
}
