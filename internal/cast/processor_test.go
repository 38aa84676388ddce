package cast

import (
	"context"
	"testing"

	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/douban"
	"github.com/hbq0405/emby-actor-processor/internal/identity"
	"github.com/hbq0405/emby-actor-processor/internal/translate"
	"github.com/stretchr/testify/require"
)

type fakeDoubanSource struct {
	acting *douban.Acting
	err    error

	// gotName/gotIMDbID/gotDoubanID record the last call's arguments so
	// tests can assert the processor threads the item's real name and
	// IDs through, rather than its opaque Emby item id.
	gotName     string
	gotIMDbID   string
	gotDoubanID string
}

func (f *fakeDoubanSource) GetActing(ctx context.Context, name, imdbID, mediaType string, year int, doubanIDOverride string) (*douban.Acting, error) {
	f.gotName = name
	f.gotIMDbID = imdbID
	f.gotDoubanID = doubanIDOverride
	return f.acting, f.err
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestProcess_NoDoubanSource_ReturnsSeedOnly(t *testing.T) {
	db := openTestDB(t)
	idStore := identity.New(db, nil)
	svc := translate.New(db, nil, nil, nil)

	p := New(db, idStore, nil, svc, nil)

	in := ItemInput{
		ItemID: "item-1",
		Type:   "Movie",
		People: []PersonInput{
			{EmbyID: "e1", Name: "周星驰", Role: "至尊宝", Order: 0},
			{EmbyID: "e2", Name: "吴孟达", Role: "", Order: 1},
		},
		MaxActors: 10,
	}

	result, err := p.Process(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, result.Cast, 2)
	require.Equal(t, "周星驰", result.Cast[0].Name)
	require.Equal(t, "至尊宝", result.Cast[0].Character)
	require.Equal(t, "演员", result.Cast[1].Character, "empty role substitutes the non-animation placeholder")
}

func TestProcess_DoubanMatchByName_FillsDoubanIDAndRole(t *testing.T) {
	db := openTestDB(t)
	idStore := identity.New(db, nil)
	svc := translate.New(db, nil, nil, nil)

	ds := &fakeDoubanSource{acting: &douban.Acting{Cast: []douban.CastCandidate{
		{ID: "d1", Name: "周星驰", Character: "至尊宝"},
	}}}
	p := New(db, idStore, ds, svc, nil)

	in := ItemInput{
		ItemID:   "item-2",
		Name:     "少林足球",
		IMDbID:   "tt0232219",
		DoubanID: "d-subject-2",
		Type:     "Movie",
		People: []PersonInput{
			{EmbyID: "e1", Name: "周星驰", Role: "", Order: 0},
		},
		MaxActors: 10,
	}

	result, err := p.Process(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, result.Cast, 1)
	require.Equal(t, "至尊宝", result.Cast[0].Character)

	require.Equal(t, "少林足球", ds.gotName, "douban lookup must use the item's display name, not its opaque Emby id")
	require.Equal(t, "tt0232219", ds.gotIMDbID)
	require.Equal(t, "d-subject-2", ds.gotDoubanID)
}

func TestProcess_DoubanOverflow_BelowCapPromotesByIdentityLookup(t *testing.T) {
	db := openTestDB(t)
	idStore := identity.New(db, nil)
	svc := translate.New(db, nil, nil, nil)

	mapID := idStore.Upsert(identity.Candidate{Name: "梁朝伟", TMDb: "tmdb-99", Douban: "d-overflow"})
	require.NotEqual(t, int64(-1), mapID)

	ds := &fakeDoubanSource{acting: &douban.Acting{Cast: []douban.CastCandidate{
		{ID: "d-overflow", Name: "梁朝伟", Character: "慕容复"},
	}}}
	p := New(db, idStore, ds, svc, nil)

	in := ItemInput{
		ItemID: "item-3",
		Type:   "Movie",
		People: []PersonInput{
			{EmbyID: "e1", Name: "周星驰", Role: "至尊宝", Order: 0},
		},
		MaxActors: 10,
	}

	result, err := p.Process(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, result.Cast, 2)

	names := []string{result.Cast[0].Name, result.Cast[1].Name}
	require.Contains(t, names, "梁朝伟")
}

func TestProcess_DoubanOverflow_AtCapDiscardsAndLogs(t *testing.T) {
	db := openTestDB(t)
	idStore := identity.New(db, nil)
	svc := translate.New(db, nil, nil, nil)

	ds := &fakeDoubanSource{acting: &douban.Acting{Cast: []douban.CastCandidate{
		{ID: "d-unmatched", Name: "无关演员", Character: "路人"},
	}}}
	p := New(db, idStore, ds, svc, nil)

	in := ItemInput{
		ItemID: "item-4",
		Type:   "Movie",
		People: []PersonInput{
			{EmbyID: "e1", Name: "周星驰", Role: "至尊宝", Order: 0},
		},
		MaxActors: 1,
	}

	result, err := p.Process(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, result.Cast, 1)
	require.Contains(t, result.DiscardedNames, "无关演员")

	discards, err := database.DiscardedCandidatesForItem(db.Raw(), "item-4")
	require.NoError(t, err)
	require.Len(t, discards, 1)
	require.Equal(t, "无关演员", discards[0].CandidateName)
	require.True(t, discards[0].NearestSeedName.Valid)
}

func TestTruncate_OrdersNullAsLast(t *testing.T) {
	records := []Record{
		{Name: "c", Order: -1},
		{Name: "a", Order: 0},
		{Name: "b", Order: 1},
	}
	out := truncate(records, 2)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].Name)
	require.Equal(t, "b", out[1].Name)
}

func TestDedupDouban_PrefersIDThenName(t *testing.T) {
	in := []douban.CastCandidate{
		{ID: "1", Name: "A"},
		{ID: "1", Name: "A-dup-id"},
		{ID: "", Name: "B"},
		{ID: "", Name: "B"},
	}
	out := dedupDouban(in)
	require.Len(t, out, 2)
}
