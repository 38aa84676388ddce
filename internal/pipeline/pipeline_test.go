package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hbq0405/emby-actor-processor/internal/cast"
	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/douban"
	"github.com/hbq0405/emby-actor-processor/internal/embyclient"
	"github.com/hbq0405/emby-actor-processor/internal/identity"
	"github.com/hbq0405/emby-actor-processor/internal/localcache"
	"github.com/hbq0405/emby-actor-processor/internal/override"
	"github.com/hbq0405/emby-actor-processor/internal/translate"
)

type fakeEmbyClient struct {
	item        *embyclient.Item
	updatedCast []embyclient.CastRecord
	refreshed   bool
}

func (f *fakeEmbyClient) GetItemDetails(itemID string) (*embyclient.Item, error) {
	return f.item, nil
}

func (f *fakeEmbyClient) UpdateItemCast(itemID string, cast []embyclient.CastRecord) error {
	f.updatedCast = cast
	return nil
}

func (f *fakeEmbyClient) RefreshItemMetadata(itemID string, replaceAll bool) error {
	f.refreshed = true
	return nil
}

// recordingDoubanSource records the name/imdbID/doubanIDOverride it was
// called with, so tests can assert the pipeline threads the item's real
// identifiers through instead of its opaque Emby item id.
type recordingDoubanSource struct {
	acting *douban.Acting

	gotName     string
	gotIMDbID   string
	gotDoubanID string
}

func (f *recordingDoubanSource) GetActing(ctx context.Context, name, imdbID, mediaType string, year int, doubanIDOverride string) (*douban.Acting, error) {
	f.gotName = name
	f.gotIMDbID = imdbID
	f.gotDoubanID = doubanIDOverride
	return f.acting, nil
}

func writeSourceCache(t *testing.T, root string, kind localcache.Kind, tmdbID int64, file, content string) {
	t.Helper()
	dir := filepath.Join(root, "cache", string(kind), strconv.FormatInt(tmdbID, 10))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

// TestProcessItem_ThreadsRealIdentifiersToDouban is a regression test for
// the bug where ProcessItem handed the Douban client the item's opaque
// Emby id as the search name and always-empty IMDb/Douban ids, silently
// degrading Douban enrichment to a no-op on every item.
func TestProcessItem_ThreadsRealIdentifiersToDouban(t *testing.T) {
	root := t.TempDir()
	writeSourceCache(t, root, localcache.KindTMDbMovie, 603, "all.json",
		`{"id":603,"title":"The Matrix","casts":{"cast":[]}}`)

	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	emby := &fakeEmbyClient{item: &embyclient.Item{
		ID:             "emby-item-603",
		Name:           "黑客帝国",
		Type:           "Movie",
		ProductionYear: 1999,
		ProviderIDs:    embyclient.ProviderIDs{Tmdb: "603", Imdb: "tt0133093", Douban: "d-1292000"},
		People: []embyclient.Person{
			{ID: "e1", Name: "基努·里维斯", Type: "Actor", ProviderIDs: embyclient.ProviderIDs{}, SortOrder: 0},
		},
	}}

	ds := &recordingDoubanSource{acting: &douban.Acting{}}
	idStore := identity.New(db, nil)
	translateSvc := translate.New(db, nil, nil, nil)
	processor := cast.New(db, idStore, ds, translateSvc, nil)

	reader := localcache.NewReader(root)
	writer := override.New(root, reader, nil, override.Ownership{UID: -1, GID: -1}, nil)

	p := New(db, emby, processor, writer, Options{MaxActors: 10}, nil)

	_, err = p.ProcessItem(context.Background(), "emby-item-603")
	require.NoError(t, err)

	require.Equal(t, "黑客帝国", ds.gotName, "douban lookup must use the item's display name, not its opaque Emby id")
	require.Equal(t, "tt0133093", ds.gotIMDbID)
	require.Equal(t, "d-1292000", ds.gotDoubanID)
	require.True(t, emby.refreshed)
}
