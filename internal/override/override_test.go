package override

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hbq0405/emby-actor-processor/internal/embyclient"
	"github.com/hbq0405/emby-actor-processor/internal/localcache"
)

func writeSourceCache(t *testing.T, root string, kind localcache.Kind, tmdbID int64, file, content string) {
	t.Helper()
	dir := filepath.Join(root, "cache", string(kind), strconv.FormatInt(tmdbID, 10))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

func newTestWriter(root string) *Writer {
	reader := localcache.NewReader(root)
	own := Ownership{UID: -1, GID: -1}
	return New(root, reader, nil, own, nil)
}

func TestWriteMovie_ReplacesCastPreservesOtherFields(t *testing.T) {
	root := t.TempDir()
	writeSourceCache(t, root, localcache.KindTMDbMovie, 603, "all.json",
		`{"id":603,"title":"The Matrix","casts":{"cast":[{"id":"6384","name":"Keanu Reeves"}],"crew":[{"id":"1","name":"Some Director"}]}}`)

	w := newTestWriter(root)
	cast := []embyclient.CastRecord{{ID: "6384", Name: "Keanu Reeves", Character: "Neo"}}
	require.NoError(t, w.WriteMovie(603, cast))

	out, err := os.ReadFile(filepath.Join(root, "override", "tmdb-movies2", "603", "all.json"))
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Contains(t, string(doc["title"]), "The Matrix")

	var casts map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc["casts"], &casts))
	require.Contains(t, string(casts["crew"]), "Some Director")

	var gotCast []embyclient.CastRecord
	require.NoError(t, json.Unmarshal(casts["cast"], &gotCast))
	require.Len(t, gotCast, 1)
	require.Equal(t, "Neo", gotCast[0].Character)
}

func TestWriteMovie_NoSourceCacheReturnsError(t *testing.T) {
	root := t.TempDir()
	w := newTestWriter(root)
	err := w.WriteMovie(999, nil)
	require.Error(t, err)
}

func TestWriteSeries_MirrorsToEpisodes(t *testing.T) {
	root := t.TempDir()
	writeSourceCache(t, root, localcache.KindTMDbTV, 1399, "series.json",
		`{"id":1399,"name":"Game of Thrones","credits":{"cast":[]}}`)
	writeSourceCache(t, root, localcache.KindTMDbTV, 1399, "season-1.json",
		`{"season_number":1,"credits":{"cast":[]}}`)
	writeSourceCache(t, root, localcache.KindTMDbTV, 1399, "season-1-episode-1.json",
		`{"episode_number":1,"credits":{"cast":[]}}`)

	w := newTestWriter(root)
	cast := []embyclient.CastRecord{{ID: "1223", Name: "Emilia Clarke", Character: "Daenerys"}}
	require.NoError(t, w.WriteSeries(1399, cast, true))

	dir := filepath.Join(root, "override", "tmdb-tv", "1399")
	for _, name := range []string{"series.json", "season-1.json", "season-1-episode-1.json"} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		require.Contains(t, string(raw), "Daenerys", name)
	}
}

func TestWriteSeries_SkipsEpisodeMirrorWhenDisabled(t *testing.T) {
	root := t.TempDir()
	writeSourceCache(t, root, localcache.KindTMDbTV, 1399, "series.json",
		`{"id":1399,"credits":{"cast":[]}}`)
	writeSourceCache(t, root, localcache.KindTMDbTV, 1399, "season-1.json",
		`{"season_number":1,"credits":{"cast":[]}}`)

	w := newTestWriter(root)
	require.NoError(t, w.WriteSeries(1399, nil, false))

	_, err := os.Stat(filepath.Join(root, "override", "tmdb-tv", "1399", "season-1.json"))
	require.True(t, os.IsNotExist(err))
}

func TestWrite_UnsupportedTypeErrors(t *testing.T) {
	root := t.TempDir()
	w := newTestWriter(root)
	err := w.Write("Episode", 1, nil, false)
	require.Error(t, err)
}

func TestAtomicWriteJSON_NoTempFileLeftBehind(t *testing.T) {
	root := t.TempDir()
	writeSourceCache(t, root, localcache.KindTMDbMovie, 42, "all.json", `{"id":42,"casts":{"cast":[]}}`)

	w := newTestWriter(root)
	require.NoError(t, w.WriteMovie(42, []embyclient.CastRecord{{ID: "1", Name: "A"}}))

	entries, err := os.ReadDir(filepath.Join(root, "override", "tmdb-movies2", "42"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "all.json", entries[0].Name())
}
