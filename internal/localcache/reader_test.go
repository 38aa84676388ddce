package localcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadTMDbAll(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "cache", "tmdb-movies2", "123")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "all.json"), []byte(`{"id":123,"title":"Kung Fu Hustle"}`), 0o644))

	r := NewReader(root)
	raw, err := r.ReadTMDbAll(123)
	require.NoError(t, err)
	require.Contains(t, string(raw), "Kung Fu Hustle")
}

func TestReadTMDbAll_MissingReturnsNil(t *testing.T) {
	r := NewReader(t.TempDir())
	raw, err := r.ReadTMDbAll(999)
	require.NoError(t, err)
	require.Nil(t, raw)
}

func TestFindDoubanDir_MatchesByDoubanIDPrefix(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "cache", "douban-movies", "1291546_kung_fu_hustle")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	r := NewReader(root)
	found, err := r.FindDoubanDir(KindDouban, "1291546", "")
	require.NoError(t, err)
	require.Equal(t, dir, found)
}

func TestFindDoubanDir_MatchesByEmbeddedIMDbID(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "cache", "douban-movies", "nm0000000_some_title")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	r := NewReader(root)
	found, err := r.FindDoubanDir(KindDouban, "", "nm0000000")
	require.NoError(t, err)
	require.Equal(t, dir, found)
}

func TestFindDoubanDir_NoMatchReturnsEmpty(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "cache", "douban-movies"), 0o755))

	r := NewReader(root)
	found, err := r.FindDoubanDir(KindDouban, "D1", "nm1")
	require.NoError(t, err)
	require.Empty(t, found)
}
