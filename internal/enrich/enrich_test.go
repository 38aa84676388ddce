package enrich

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/douban"
	"github.com/hbq0405/emby-actor-processor/internal/tmdb"
)

type fakeTMDb struct {
	byID map[int64]*tmdb.Person
}

func (f *fakeTMDb) GetPersonDetails(ctx context.Context, id int64, include ...string) (*tmdb.Person, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, tmdb.ErrNotFound
}

type fakeDouban struct {
	byID map[string]*douban.CelebrityDetails
}

func (f *fakeDouban) GetCelebrityDetails(ctx context.Context, doubanID string) (*douban.CelebrityDetails, error) {
	if d, ok := f.byID[doubanID]; ok {
		return d, nil
	}
	return nil, tmdb.ErrNotFound
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertIdentity(t *testing.T, db *database.DB, tmdbID, doubanID string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, db.WithTx(func(tx *sql.Tx) error {
		var err error
		id, err = database.InsertIdentityTx(tx, database.PersonIdentity{
			PrimaryName: "test", TMDbPersonID: tmdbID, DoubanCelebrityID: doubanID,
		})
		return err
	}))
	return id
}

func TestPhaseA_FoundUpdatesIMDbID(t *testing.T) {
	db := openTestDB(t)
	mapID := insertIdentity(t, db, "603", "")

	fake := &fakeTMDb{byID: map[int64]*tmdb.Person{
		603: {ID: 603, ExternalIDs: &tmdb.ExternalIDs{IMDbID: "tt0133093"}},
	}}

	e := New(db, fake, nil, Config{}, nil)
	require.NoError(t, e.Run(context.Background(), nil))

	rows, err := database.StaleForEnrichment(db.Raw(), "tmdb_person_id", 0, 10)
	require.NoError(t, err)
	require.Empty(t, rows, "row should no longer be stale once imdb_id is set")

	var imdb string
	require.NoError(t, db.Raw().QueryRow(`SELECT imdb_id FROM person_identity_map WHERE map_id = ?`, mapID).Scan(&imdb))
	require.Equal(t, "tt0133093", imdb)
}

func TestPhaseA_NotFoundDeletesRow(t *testing.T) {
	db := openTestDB(t)
	mapID := insertIdentity(t, db, "999999", "")

	e := New(db, &fakeTMDb{byID: map[int64]*tmdb.Person{}}, nil, Config{}, nil)
	require.NoError(t, e.Run(context.Background(), nil))

	var count int
	require.NoError(t, db.Raw().QueryRow(`SELECT COUNT(*) FROM person_identity_map WHERE map_id = ?`, mapID).Scan(&count))
	require.Equal(t, 0, count)
}

func TestPhaseB_FillsIMDbIDFromDoubanExtraInfo(t *testing.T) {
	db := openTestDB(t)
	mapID := insertIdentity(t, db, "", "1234")

	// CelebrityDetails' Extra field is unexported, so build it via its
	// own JSON shape rather than a struct literal.
	var details douban.CelebrityDetails
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1234","extra":{"info":[["IMDb编号","tt0110912"]]}}`), &details))
	fake := &fakeDouban{byID: map[string]*douban.CelebrityDetails{"1234": &details}}

	e := New(db, nil, fake, Config{}, nil)
	require.NoError(t, e.Run(context.Background(), nil))

	var imdb string
	require.NoError(t, db.Raw().QueryRow(`SELECT imdb_id FROM person_identity_map WHERE map_id = ?`, mapID).Scan(&imdb))
	require.Equal(t, "tt0110912", imdb)
}

func TestRun_ContextCanceledStopsEarly(t *testing.T) {
	db := openTestDB(t)
	insertIdentity(t, db, "603", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(db, &fakeTMDb{byID: map[int64]*tmdb.Person{}}, nil, Config{}, nil)
	err := e.Run(ctx, nil)
	require.Error(t, err)
}
