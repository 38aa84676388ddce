package collections

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hbq0405/emby-actor-processor/internal/database"
)

type fakeSubscriber struct {
	subscribed []int64
	failFor    map[int64]bool
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, tmdbID int64, itemType string) error {
	if f.failFor[tmdbID] {
		return errors.New("subscribe failed")
	}
	f.subscribed = append(f.subscribed, tmdbID)
	return nil
}

func seedHasMissingCollection(t *testing.T, db *database.DB, members []database.CollectionInfo) database.CustomCollection {
	t.Helper()
	def := ListDefinition{Name: "Tracked", Provider: "tmdb", ListID: "1", ItemType: "Movie"}
	b, err := json.Marshal(def)
	require.NoError(t, err)

	id, err := database.InsertCustomCollection(db.Raw(), database.CustomCollection{
		Name:           def.Name,
		Kind:           database.CollectionList,
		DefinitionJSON: string(b),
	})
	require.NoError(t, err)

	require.NoError(t, db.WithTx(func(tx *sql.Tx) error {
		return database.ReplaceCollectionInfo(tx, id, members)
	}))
	require.NoError(t, database.UpdateCollectionSnapshot(db.Raw(), id, "[]", database.HealthHasMissing, "emby-coll-seed"))

	colls, err := database.AllCustomCollections(db.Raw())
	require.NoError(t, err)
	for _, c := range colls {
		if c.ID == id {
			return c
		}
	}
	t.Fatal("seeded collection not found")
	return database.CustomCollection{}
}

func TestAutoSubscribe_SubscribesReleasedMissingMembers(t *testing.T) {
	db := openTestDB(t)
	seedHasMissingCollection(t, db, []database.CollectionInfo{
		{TMDbID: 1, Status: database.MemberMissing, ReleaseDate: sql.NullString{String: "2000-01-01", Valid: true}},
		{TMDbID: 2, Status: database.MemberInLibrary},
	})

	e := New(db, nil, nil, nil)
	sub := &fakeSubscriber{}
	require.NoError(t, e.AutoSubscribe(context.Background(), sub, nil))

	require.Equal(t, []int64{1}, sub.subscribed)

	members, err := database.CollectionMembers(db.Raw(), 1)
	require.NoError(t, err)
	statusByID := make(map[int64]database.CollectionMemberStatus)
	for _, m := range members {
		statusByID[m.TMDbID] = m.Status
	}
	require.Equal(t, database.MemberSubscribed, statusByID[1])

	colls, err := database.AllCustomCollections(db.Raw())
	require.NoError(t, err)
	require.Equal(t, database.HealthOK, colls[0].HealthStatus)
	require.Equal(t, "emby-coll-seed", colls[0].EmbyCollectionID.String)
}

func TestAutoSubscribe_LeavesUnreleasedMembersMissing(t *testing.T) {
	db := openTestDB(t)
	seedHasMissingCollection(t, db, []database.CollectionInfo{
		{TMDbID: 1, Status: database.MemberMissing, ReleaseDate: sql.NullString{String: "2999-01-01", Valid: true}},
	})

	e := New(db, nil, nil, nil)
	sub := &fakeSubscriber{}
	require.NoError(t, e.AutoSubscribe(context.Background(), sub, nil))

	require.Empty(t, sub.subscribed)
	members, err := database.CollectionMembers(db.Raw(), 1)
	require.NoError(t, err)
	require.Equal(t, database.MemberMissing, members[0].Status)
}

func TestAutoSubscribe_FailedSubscribeKeepsHealthHasMissing(t *testing.T) {
	db := openTestDB(t)
	seedHasMissingCollection(t, db, []database.CollectionInfo{
		{TMDbID: 1, Status: database.MemberMissing, ReleaseDate: sql.NullString{String: "2000-01-01", Valid: true}},
		{TMDbID: 2, Status: database.MemberMissing, ReleaseDate: sql.NullString{String: "2000-01-01", Valid: true}},
	})

	e := New(db, nil, nil, nil)
	sub := &fakeSubscriber{failFor: map[int64]bool{2: true}}
	require.NoError(t, e.AutoSubscribe(context.Background(), sub, nil))

	colls, err := database.AllCustomCollections(db.Raw())
	require.NoError(t, err)
	require.Equal(t, database.HealthHasMissing, colls[0].HealthStatus)
}
