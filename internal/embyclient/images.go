package embyclient

import (
	"fmt"
	"io"
	"os"
)

// DownloadImage fetches an item's image of the given kind and writes it
// to destPath, used by the override writer's image-sync step (C10).
func (c *Client) DownloadImage(itemID string, kind ImageKind, destPath string) error {
	body, err := c.getRaw(fmt.Sprintf("/Items/%s/Images/%s", itemID, kind))
	if err != nil {
		return fmt.Errorf("fetching %s image for item %s: %w", kind, itemID, err)
	}
	defer body.Close()

	tmp := destPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp image file: %w", err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing image to %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, destPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming image into place: %w", err)
	}
	return nil
}
