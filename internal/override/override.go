// Package override implements the Override Writer (C10): it mirrors a
// finalized cast list into the side-load cache directory Emby's
// metadata providers read back from on next refresh
package override

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hbq0405/emby-actor-processor/internal/embyclient"
	"github.com/hbq0405/emby-actor-processor/internal/localcache"
	"github.com/hbq0405/emby-actor-processor/internal/logging"
	"github.com/hbq0405/emby-actor-processor/internal/permissions"
)

// Kind mirrors the two side-load subdirectories
type Kind string

const (
	KindMovie Kind = "tmdb-movies2"
	KindTV    Kind = "tmdb-tv"
)

// ImageDownloader is the subset of *embyclient.Client the image-sync
// step needs; narrowed to an interface so it can be faked in tests.
type ImageDownloader interface {
	DownloadImage(itemID string, kind embyclient.ImageKind, destPath string) error
}

// Ownership carries the resolved uid/gid/file mode the writer applies to
// every file it writes; directories it creates get DirMode, with no chown.
type Ownership struct {
	UID, GID          int
	FileMode, DirMode os.FileMode
}

// Writer writes into root/override/... side-load layout).
type Writer struct {
	root   string
	reader *localcache.Reader
	emby   ImageDownloader
	own    Ownership
	log    *logging.Logger
}

func New(root string, reader *localcache.Reader, emby ImageDownloader, own Ownership, log *logging.Logger) *Writer {
	if log == nil {
		log = logging.Nop()
	}
	if own.DirMode == 0 {
		own.DirMode = 0o755
	}
	return &Writer{root: root, reader: reader, emby: emby, own: own, log: log}
}

func (w *Writer) itemDir(kind Kind, tmdbID int64) string {
	return filepath.Join(w.root, "override", string(kind), strconv.FormatInt(tmdbID, 10))
}

// WriteMovie implements for a Movie item: clone all.json with
// casts.cast replaced.
func (w *Writer) WriteMovie(tmdbID int64, cast []embyclient.CastRecord) error {
	raw, err := w.reader.ReadTMDbAll(tmdbID)
	if err != nil {
		return fmt.Errorf("reading source cache for movie %d: %w", tmdbID, err)
	}
	if raw == nil {
		return fmt.Errorf("override: no source cache entry for movie %d", tmdbID)
	}
	merged, err := replaceCastField(raw, "casts", "cast", cast)
	if err != nil {
		return fmt.Errorf("merging cast for movie %d: %w", tmdbID, err)
	}
	return w.atomicWriteJSON(filepath.Join(w.itemDir(KindMovie, tmdbID), "all.json"), merged)
}

// WriteSeries implements for a Series item: clone series.json
// with credits.cast replaced, optionally mirroring the same cast into
// every season/episode sidecar present for the series.
func (w *Writer) WriteSeries(tmdbID int64, cast []embyclient.CastRecord, processEpisodes bool) error {
	raw, err := w.reader.ReadTMDbSeries(tmdbID)
	if err != nil {
		return fmt.Errorf("reading source cache for series %d: %w", tmdbID, err)
	}
	if raw == nil {
		return fmt.Errorf("override: no source cache entry for series %d", tmdbID)
	}
	merged, err := replaceCastField(raw, "credits", "cast", cast)
	if err != nil {
		return fmt.Errorf("merging cast for series %d: %w", tmdbID, err)
	}
	dir := w.itemDir(KindTV, tmdbID)
	if err := w.atomicWriteJSON(filepath.Join(dir, "series.json"), merged); err != nil {
		return err
	}
	if !processEpisodes {
		return nil
	}
	return w.mirrorEpisodes(tmdbID, cast)
}

func (w *Writer) mirrorEpisodes(tmdbID int64, cast []embyclient.CastRecord) error {
	files, err := w.reader.ListSeriesFiles(tmdbID)
	if err != nil {
		return fmt.Errorf("listing season/episode sidecars for series %d: %w", tmdbID, err)
	}
	dir := w.itemDir(KindTV, tmdbID)
	for _, f := range files {
		var srcRaw json.RawMessage
		var name string
		if f.Episode == 0 {
			srcRaw, err = w.reader.ReadTMDbSeason(tmdbID, f.Season)
			name = fmt.Sprintf("season-%d.json", f.Season)
		} else {
			srcRaw, err = w.reader.ReadTMDbEpisode(tmdbID, f.Season, f.Episode)
			name = fmt.Sprintf("season-%d-episode-%d.json", f.Season, f.Episode)
		}
		if err != nil {
			w.log.Warn("override", "reading season/episode sidecar failed", logging.F("tmdb_id", tmdbID), logging.F("file", name), logging.F("error", err.Error()))
			continue
		}
		if srcRaw == nil {
			continue
		}
		merged, err := replaceCastField(srcRaw, "credits", "cast", cast)
		if err != nil {
			w.log.Warn("override", "merging cast into sidecar failed", logging.F("file", name), logging.F("error", err.Error()))
			continue
		}
		if err := w.atomicWriteJSON(filepath.Join(dir, name), merged); err != nil {
			w.log.Warn("override", "writing sidecar failed", logging.F("file", name), logging.F("error", err.Error()))
		}
	}
	return nil
}

// Write dispatches to WriteMovie/WriteSeries by item type, the entry
// point callers (the webhook router, full-scan task) use.
func (w *Writer) Write(itemType string, tmdbID int64, cast []embyclient.CastRecord, processEpisodes bool) error {
	switch itemType {
	case "Movie":
		return w.WriteMovie(tmdbID, cast)
	case "Series":
		return w.WriteSeries(tmdbID, cast, processEpisodes)
	default:
		return fmt.Errorf("override: unsupported item type %q", itemType)
	}
}

// replaceCastField deep-clones raw (by leaving every field it doesn't
// touch as an unparsed json.RawMessage) and replaces only
// top[container][field] with cast "preserve all
// other fields verbatim" requirement.
func replaceCastField(raw json.RawMessage, container, field string, cast []embyclient.CastRecord) (json.RawMessage, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("parsing source cache json: %w", err)
	}

	var sub map[string]json.RawMessage
	if existing, ok := top[container]; ok {
		if err := json.Unmarshal(existing, &sub); err != nil {
			sub = map[string]json.RawMessage{}
		}
	} else {
		sub = map[string]json.RawMessage{}
	}

	castJSON, err := json.Marshal(cast)
	if err != nil {
		return nil, err
	}
	sub[field] = castJSON

	subJSON, err := json.Marshal(sub)
	if err != nil {
		return nil, err
	}
	top[container] = subJSON

	return json.Marshal(top)
}

func (w *Writer) atomicWriteJSON(path string, data json.RawMessage) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, w.own.DirMode); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into place %s: %w", path, err)
	}

	return w.applyOwnership(path)
}

func (w *Writer) applyOwnership(path string) error {
	if w.own.UID < 0 && w.own.GID < 0 && w.own.FileMode == 0 {
		return nil
	}
	return permissions.FixPermissions(path, w.own.UID, w.own.GID, w.own.FileMode)
}
