package override

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hbq0405/emby-actor-processor/internal/embyclient"
	"github.com/hbq0405/emby-actor-processor/internal/logging"
)

// ImageTarget names one file under an item's override images/
// directory and which server-side item/kind it is fetched from. The
// caller (webhook router, full-scan task) resolves item ids for
// seasons/episodes since the writer has no server lookup of its own.
type ImageTarget struct {
	ItemID   string
	Kind     embyclient.ImageKind
	FileName string
}

// PrimaryImageTargets builds the poster/fanart/clearlogo/landscape
// target set for one item Landscape is attempted for
// every item; a missing Thumb image on the server simply fails that
// one download and is skipped.
func PrimaryImageTargets(itemID string) []ImageTarget {
	return []ImageTarget{
		{ItemID: itemID, Kind: embyclient.ImageKindPrimary, FileName: "poster.jpg"},
		{ItemID: itemID, Kind: embyclient.ImageKindBackdrop, FileName: "fanart.jpg"},
		{ItemID: itemID, Kind: embyclient.ImageKindLogo, FileName: "clearlogo.png"},
		{ItemID: itemID, Kind: embyclient.ImageKindThumb, FileName: "landscape.jpg"},
	}
}

// SeasonImageTarget builds the images/season-<n>.jpg target.
func SeasonImageTarget(itemID string, season int) ImageTarget {
	return ImageTarget{ItemID: itemID, Kind: embyclient.ImageKindPrimary, FileName: fmt.Sprintf("season-%d.jpg", season)}
}

// EpisodeImageTarget builds the images/season-<n>-episode-<m>.jpg target.
func EpisodeImageTarget(itemID string, season, episode int) ImageTarget {
	return ImageTarget{ItemID: itemID, Kind: embyclient.ImageKindPrimary, FileName: fmt.Sprintf("season-%d-episode-%d.jpg", season, episode)}
}

// SyncImages downloads every target into root/override/<kind>/<tmdbId>/images/,
// logging and skipping individual failures so one missing image never
// aborts the rest of the sync image sync is best-effort).
func (w *Writer) SyncImages(kind Kind, tmdbID int64, targets []ImageTarget) error {
	if w.emby == nil || len(targets) == 0 {
		return nil
	}
	dir := filepath.Join(w.itemDir(kind, tmdbID), "images")
	if err := os.MkdirAll(dir, w.own.DirMode); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for _, t := range targets {
		dest := filepath.Join(dir, t.FileName)
		if err := w.emby.DownloadImage(t.ItemID, t.Kind, dest); err != nil {
			w.log.Warn("override", "image download failed", logging.F("item_id", t.ItemID), logging.F("kind", string(t.Kind)), logging.F("error", err.Error()))
			continue
		}
		if err := w.applyOwnership(dest); err != nil {
			w.log.Warn("override", "applying ownership to image failed", logging.F("path", dest), logging.F("error", err.Error()))
		}
	}
	return nil
}
