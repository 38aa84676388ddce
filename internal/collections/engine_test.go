package collections

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hbq0405/emby-actor-processor/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fakeListProvider struct {
	ids []int64
	err error
}

func (f fakeListProvider) ResolveList(ctx context.Context, provider, listID string) ([]int64, error) {
	return f.ids, f.err
}

type fakeEmbyCollections struct {
	collectionID string
	matched      []string
	err          error
}

func (f fakeEmbyCollections) CreateOrUpdateCollection(name string, tmdbIDs []string, itemType string) (string, []string, error) {
	return f.collectionID, f.matched, f.err
}

func insertListCollection(t *testing.T, db *database.DB, def ListDefinition) database.CustomCollection {
	t.Helper()
	b, err := json.Marshal(def)
	require.NoError(t, err)
	id, err := database.InsertCustomCollection(db.Raw(), database.CustomCollection{
		Name:           def.Name,
		Kind:           database.CollectionList,
		DefinitionJSON: string(b),
	})
	require.NoError(t, err)
	c, err := database.AllCustomCollections(db.Raw())
	require.NoError(t, err)
	for _, cc := range c {
		if cc.ID == id {
			return cc
		}
	}
	t.Fatal("inserted collection not found")
	return database.CustomCollection{}
}

func TestRefreshListCollection_MatchedMembersInLibrary(t *testing.T) {
	db := openTestDB(t)
	c := insertListCollection(t, db, ListDefinition{Name: "Denis Villeneuve", Provider: "tmdb", ListID: "1", ItemType: "Movie"})

	e := New(db, fakeListProvider{ids: []int64{1, 2, 3}}, fakeEmbyCollections{collectionID: "emby-coll-1", matched: []string{"1", "2"}}, nil)
	require.NoError(t, e.RefreshListCollection(context.Background(), c))

	members, err := database.CollectionMembers(db.Raw(), c.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)

	statusByID := make(map[int64]database.CollectionMemberStatus)
	for _, m := range members {
		statusByID[m.TMDbID] = m.Status
	}
	require.Equal(t, database.MemberInLibrary, statusByID[1])
	require.Equal(t, database.MemberInLibrary, statusByID[2])
	require.Equal(t, database.MemberMissing, statusByID[3])

	colls, err := database.AllCustomCollections(db.Raw())
	require.NoError(t, err)
	require.Equal(t, database.HealthHasMissing, colls[0].HealthStatus)
	require.True(t, colls[0].EmbyCollectionID.Valid)
	require.Equal(t, "emby-coll-1", colls[0].EmbyCollectionID.String)
}

func TestRefreshListCollection_PreservesSubscribedStatus(t *testing.T) {
	db := openTestDB(t)
	c := insertListCollection(t, db, ListDefinition{Name: "Upcoming", Provider: "tmdb", ListID: "2", ItemType: "Movie"})

	require.NoError(t, db.WithTx(func(tx *sql.Tx) error {
		return database.ReplaceCollectionInfo(tx, c.ID, []database.CollectionInfo{
			{CollectionID: c.ID, TMDbID: 5, Status: database.MemberSubscribed},
		})
	}))

	e := New(db, fakeListProvider{ids: []int64{5}}, fakeEmbyCollections{collectionID: "emby-coll-2"}, nil)
	require.NoError(t, e.RefreshListCollection(context.Background(), c))

	members, err := database.CollectionMembers(db.Raw(), c.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, database.MemberSubscribed, members[0].Status)
}

func TestRefreshFilterCollection_MatchesAgainstMediaMetadata(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, database.UpsertMediaMetadata(db.Raw(), sampleMedia()))
	require.NoError(t, database.UpsertMediaMetadata(db.Raw(), database.MediaMetadata{TMDbID: 99, ItemType: "Movie", Genres: []string{"Horror"}}))

	def := FilterDefinition{Name: "Sci-Fi", ItemType: "Movie", Predicate: Predicate{Field: "genre", Value: "Science Fiction"}}
	b, err := json.Marshal(def)
	require.NoError(t, err)
	id, err := database.InsertCustomCollection(db.Raw(), database.CustomCollection{Name: def.Name, Kind: database.CollectionFilter, DefinitionJSON: string(b)})
	require.NoError(t, err)
	colls, err := database.AllCustomCollections(db.Raw())
	require.NoError(t, err)
	var c database.CustomCollection
	for _, cc := range colls {
		if cc.ID == id {
			c = cc
		}
	}

	var matchedIDs []string
	emby := fakeEmbyCollectionsCapture{result: &matchedIDs}
	e := New(db, nil, emby, nil)
	require.NoError(t, e.RefreshFilterCollection(context.Background(), c))
	require.Equal(t, []string{"1"}, matchedIDs)
}

type fakeEmbyCollectionsCapture struct {
	result *[]string
}

func (f fakeEmbyCollectionsCapture) CreateOrUpdateCollection(name string, tmdbIDs []string, itemType string) (string, []string, error) {
	*f.result = tmdbIDs
	return "emby-coll", tmdbIDs, nil
}
