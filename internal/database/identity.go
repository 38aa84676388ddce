package database

import (
	"database/sql"
	"fmt"
	"time"
)

// PersonIdentity is one row of person_identity_map (C1).
type PersonIdentity struct {
	MapID             int64
	PrimaryName       string
	TMDbPersonID      string
	EmbyPersonID      string
	IMDbID            string
	DoubanCelebrityID string
	LastSyncedAt      sql.NullTime
	LastUpdatedAt     time.Time
}

// HasAnyID reports whether the row carries at least one external ID.
func (p PersonIdentity) HasAnyID() bool {
	return p.TMDbPersonID != "" || p.EmbyPersonID != "" || p.IMDbID != "" || p.DoubanCelebrityID != ""
}

// CountIdentities returns the current row count of person_identity_map,
// reported by the `db stats` command.
func CountIdentities(db *sql.DB) (int64, error) {
	var n int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM person_identity_map`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting person_identity_map: %w", err)
	}
	return n, nil
}

func scanIdentity(row interface{ Scan(...any) error }) (PersonIdentity, error) {
	var p PersonIdentity
	var name, tmdb, emby, imdb, douban sql.NullString
	if err := row.Scan(&p.MapID, &name, &tmdb, &emby, &imdb, &douban, &p.LastSyncedAt, &p.LastUpdatedAt); err != nil {
		return PersonIdentity{}, err
	}
	p.PrimaryName = name.String
	p.TMDbPersonID = tmdb.String
	p.EmbyPersonID = emby.String
	p.IMDbID = imdb.String
	p.DoubanCelebrityID = douban.String
	return p, nil
}

const identityColumns = `map_id, primary_name, tmdb_person_id, emby_person_id, imdb_id, douban_celebrity_id, last_synced_at, last_updated_at`

// IdentityByAnyIDTx finds rows matching any of the provided non-empty IDs,
// ordered by map_id ascending so the first row is always the survivor
// candidate.
func IdentityByAnyIDTx(tx *sql.Tx, tmdb, emby, imdb, douban string) ([]PersonIdentity, error) {
	rows, err := tx.Query(`
		SELECT `+identityColumns+`
		FROM person_identity_map
		WHERE (tmdb_person_id = ? AND ? != '')
		   OR (emby_person_id = ? AND ? != '')
		   OR (imdb_id = ? AND ? != '')
		   OR (douban_celebrity_id = ? AND ? != '')
		ORDER BY map_id ASC
	`, tmdb, tmdb, emby, emby, imdb, imdb, douban, douban)
	if err != nil {
		return nil, fmt.Errorf("query identity by any id: %w", err)
	}
	defer rows.Close()

	var out []PersonIdentity
	for rows.Next() {
		p, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// IdentityByNameTx finds rows with an exact primary_name match, used by
// the name-based soft merge path.
func IdentityByNameTx(tx *sql.Tx, name string) ([]PersonIdentity, error) {
	rows, err := tx.Query(`SELECT `+identityColumns+` FROM person_identity_map WHERE primary_name = ? ORDER BY map_id ASC`, name)
	if err != nil {
		return nil, fmt.Errorf("query identity by name: %w", err)
	}
	defer rows.Close()

	var out []PersonIdentity
	for rows.Next() {
		p, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertIdentityTx inserts a brand new identity row and returns its map_id.
func InsertIdentityTx(tx *sql.Tx, p PersonIdentity) (int64, error) {
	res, err := tx.Exec(`
		INSERT INTO person_identity_map (primary_name, tmdb_person_id, emby_person_id, imdb_id, douban_celebrity_id, last_updated_at)
		VALUES (NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), CURRENT_TIMESTAMP)
	`, p.PrimaryName, p.TMDbPersonID, p.EmbyPersonID, p.IMDbID, p.DoubanCelebrityID)
	if err != nil {
		return 0, fmt.Errorf("insert identity: %w", err)
	}
	return res.LastInsertId()
}

// UpdateIdentityTx persists the survivor's merged fields.
func UpdateIdentityTx(tx *sql.Tx, p PersonIdentity) error {
	_, err := tx.Exec(`
		UPDATE person_identity_map
		SET primary_name = NULLIF(?, ''),
		    tmdb_person_id = NULLIF(?, ''),
		    emby_person_id = NULLIF(?, ''),
		    imdb_id = NULLIF(?, ''),
		    douban_celebrity_id = NULLIF(?, ''),
		    last_updated_at = CURRENT_TIMESTAMP
		WHERE map_id = ?
	`, p.PrimaryName, p.TMDbPersonID, p.EmbyPersonID, p.IMDbID, p.DoubanCelebrityID, p.MapID)
	if err != nil {
		return fmt.Errorf("update identity %d: %w", p.MapID, err)
	}
	return nil
}

// AllIdentities returns every person_identity_map row.
func AllIdentities(db *sql.DB) ([]PersonIdentity, error) {
	rows, err := db.Query(`SELECT ` + identityColumns + ` FROM person_identity_map`)
	if err != nil {
		return nil, fmt.Errorf("listing identities: %w", err)
	}
	defer rows.Close()

	var out []PersonIdentity
	for rows.Next() {
		p, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteIdentities removes rows by map_id outside of an enclosing
// transaction, for callers that aren't already inside one.
func DeleteIdentities(db *sql.DB, mapIDs []int64) error {
	for _, id := range mapIDs {
		if _, err := db.Exec(`DELETE FROM person_identity_map WHERE map_id = ?`, id); err != nil {
			return fmt.Errorf("delete identity %d: %w", id, err)
		}
	}
	return nil
}

// DeleteIdentitiesTx removes rows by map_id, used when merging losers into
// a survivor, and by the identity enricher on a TMDb 404.
func DeleteIdentitiesTx(tx *sql.Tx, mapIDs []int64) error {
	for _, id := range mapIDs {
		if _, err := tx.Exec(`DELETE FROM person_identity_map WHERE map_id = ?`, id); err != nil {
			return fmt.Errorf("delete identity %d: %w", id, err)
		}
	}
	return nil
}

// TouchSyncedTx bumps last_synced_at for a batch of rows, used by the
// identity enricher after each processed batch.
func TouchSyncedTx(tx *sql.Tx, mapIDs []int64) error {
	for _, id := range mapIDs {
		if _, err := tx.Exec(`UPDATE person_identity_map SET last_synced_at = CURRENT_TIMESTAMP WHERE map_id = ?`, id); err != nil {
			return fmt.Errorf("touch synced %d: %w", id, err)
		}
	}
	return nil
}

// StaleForEnrichment selects up to limit rows missing imdb_id but carrying
// the given external-id column non-null, whose last_synced_at is older
// than cooldown (or null). column must be "tmdb_person_id" or
// "douban_celebrity_id" — it is never user input.
func StaleForEnrichment(db *sql.DB, column string, cooldown time.Duration, limit int) ([]PersonIdentity, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM person_identity_map
		WHERE %s IS NOT NULL AND imdb_id IS NULL
		  AND (last_synced_at IS NULL OR last_synced_at < ?)
		ORDER BY map_id ASC
		LIMIT ?
	`, identityColumns, column)

	cutoff := time.Now().Add(-cooldown)
	rows, err := db.Query(query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("select stale identities: %w", err)
	}
	defer rows.Close()

	var out []PersonIdentity
	for rows.Next() {
		p, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetIdentityByDoubanIDTx looks up a single row by douban_celebrity_id,
// returning nil when no row carries that id.
func GetIdentityByDoubanIDTx(tx *sql.Tx, doubanID string) (*PersonIdentity, error) {
	row := tx.QueryRow(`SELECT `+identityColumns+` FROM person_identity_map WHERE douban_celebrity_id = ?`, doubanID)
	p, err := scanIdentity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity by douban id: %w", err)
	}
	return &p, nil
}
