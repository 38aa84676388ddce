// Package localcache implements the Local-Cache Reader (C7): a
// read-only reader over a sidecar JSON mirror of TMDb/Douban metadata
// maintained by a separate tool, plus a watcher that records which
// paths the mirror tool changes. Reader keeps no cache of its own and
// reads from disk on every call.
package localcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Kind distinguishes the four mirror subdirectories
// local-cache file layout.
type Kind string

const (
	KindTMDbMovie Kind = "tmdb-movies2"
	KindTMDbTV    Kind = "tmdb-tv"
	KindDouban    Kind = "douban-movies"
	KindDoubanTV  Kind = "douban-tv"
)

// Reader reads sidecar JSON files from root/cache/<kind>/...
type Reader struct {
	root string
}

func NewReader(root string) *Reader {
	return &Reader{root: strings.TrimRight(root, "/")}
}

func (r *Reader) kindDir(kind Kind) string {
	return filepath.Join(r.root, "cache", string(kind))
}

// ReadTMDbAll reads all.json for a TMDb movie entry.
func (r *Reader) ReadTMDbAll(tmdbID int64) (json.RawMessage, error) {
	return r.readJSON(filepath.Join(r.kindDir(KindTMDbMovie), strconv.FormatInt(tmdbID, 10), "all.json"))
}

// ReadTMDbSeries reads series.json for a TMDb series entry.
func (r *Reader) ReadTMDbSeries(tmdbID int64) (json.RawMessage, error) {
	return r.readJSON(filepath.Join(r.kindDir(KindTMDbTV), strconv.FormatInt(tmdbID, 10), "series.json"))
}

// ReadTMDbSeason reads season-<n>.json for a TMDb series entry.
func (r *Reader) ReadTMDbSeason(tmdbID int64, season int) (json.RawMessage, error) {
	name := fmt.Sprintf("season-%d.json", season)
	return r.readJSON(filepath.Join(r.kindDir(KindTMDbTV), strconv.FormatInt(tmdbID, 10), name))
}

// ReadTMDbEpisode reads season-<n>-episode-<m>.json for a TMDb series entry.
func (r *Reader) ReadTMDbEpisode(tmdbID int64, season, episode int) (json.RawMessage, error) {
	name := fmt.Sprintf("season-%d-episode-%d.json", season, episode)
	return r.readJSON(filepath.Join(r.kindDir(KindTMDbTV), strconv.FormatInt(tmdbID, 10), name))
}

// FindDoubanDir locates the mirror directory for a Douban subject,
// searching by either Douban ID prefix or embedded IMDb ID. Mirror
// directories are named `<doubanId>_*` or contain the imdb id in the
// directory name.
func (r *Reader) FindDoubanDir(kind Kind, doubanID, imdbID string) (string, error) {
	base := r.kindDir(kind)
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("listing %s: %w", base, err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if doubanID != "" && strings.HasPrefix(name, doubanID+"_") {
			return filepath.Join(base, name), nil
		}
		if imdbID != "" && strings.Contains(name, imdbID) {
			return filepath.Join(base, name), nil
		}
	}
	return "", nil
}

// ReadDoubanFile reads a single JSON file inside a resolved Douban
// mirror directory.
func (r *Reader) ReadDoubanFile(dir, file string) (json.RawMessage, error) {
	return r.readJSON(filepath.Join(dir, file))
}

var seasonEpisodeFile = regexp.MustCompile(`^season-(\d+)(?:-episode-(\d+))?\.json$`)

// SeriesFile identifies one per-season or per-episode mirror file
// alongside a TMDb series' series.json.
type SeriesFile struct {
	Season  int
	Episode int // 0 for a season file
}

// ListSeriesFiles enumerates the season-<n>.json and
// season-<n>-episode-<m>.json files present for a TMDb series, so the
// override writer knows which ones to mirror.
func (r *Reader) ListSeriesFiles(tmdbID int64) ([]SeriesFile, error) {
	dir := filepath.Join(r.kindDir(KindTMDbTV), strconv.FormatInt(tmdbID, 10))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var out []SeriesFile
	for _, e := range entries {
		m := seasonEpisodeFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		season, _ := strconv.Atoi(m[1])
		episode := 0
		if m[2] != "" {
			episode, _ = strconv.Atoi(m[2])
		}
		out = append(out, SeriesFile{Season: season, Episode: episode})
	}
	return out, nil
}

func (r *Reader) readJSON(path string) (json.RawMessage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var probe json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return probe, nil
}
