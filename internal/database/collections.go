package database

import (
	"database/sql"
	"fmt"
	"time"
)

// CollectionKind distinguishes the two collection flavors: list-sourced and filter-sourced.
type CollectionKind string

const (
	CollectionList   CollectionKind = "list"
	CollectionFilter CollectionKind = "filter"
)

// CollectionHealth summarizes member status across a collection.
type CollectionHealth string

const (
	HealthOK          CollectionHealth = "ok"
	HealthHasMissing  CollectionHealth = "has_missing"
	HealthUnreleased  CollectionHealth = "has_unreleased"
)

// CustomCollection is one row of custom_collections.
type CustomCollection struct {
	ID                     int64
	Name                   string
	Kind                   CollectionKind
	DefinitionJSON         string
	GeneratedMediaInfoJSON string
	HealthStatus           CollectionHealth
	EmbyCollectionID       sql.NullString
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// CollectionMemberStatus enumerates generated_media_info_json entries.
type CollectionMemberStatus string

const (
	MemberInLibrary  CollectionMemberStatus = "in_library"
	MemberMissing    CollectionMemberStatus = "missing"
	MemberSubscribed CollectionMemberStatus = "subscribed"
	MemberUnreleased CollectionMemberStatus = "unreleased"
)

// CollectionInfo is one row of collection_info: a single member's
// tracked status within a list-sourced collection.
type CollectionInfo struct {
	CollectionID int64
	TMDbID       int64
	Status       CollectionMemberStatus
	ReleaseDate  sql.NullString
}

// InsertCustomCollection creates a new collection definition.
func InsertCustomCollection(db *sql.DB, c CustomCollection) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO custom_collections (name, kind, definition_json, generated_media_info_json, health_status, emby_collection_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.Name, c.Kind, c.DefinitionJSON, "[]", HealthOK, c.EmbyCollectionID)
	if err != nil {
		return 0, fmt.Errorf("inserting collection %q: %w", c.Name, err)
	}
	return res.LastInsertId()
}

// AllCustomCollections returns every defined collection.
func AllCustomCollections(db *sql.DB) ([]CustomCollection, error) {
	rows, err := db.Query(`
		SELECT id, name, kind, definition_json, generated_media_info_json, health_status, emby_collection_id, created_at, updated_at
		FROM custom_collections
	`)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	defer rows.Close()

	var out []CustomCollection
	for rows.Next() {
		var c CustomCollection
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.DefinitionJSON, &c.GeneratedMediaInfoJSON,
			&c.HealthStatus, &c.EmbyCollectionID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CollectionsByHealth returns collections currently in the given health
// state, used by the auto-subscribe task to find has_missing collections.
func CollectionsByHealth(db *sql.DB, health CollectionHealth) ([]CustomCollection, error) {
	rows, err := db.Query(`
		SELECT id, name, kind, definition_json, generated_media_info_json, health_status, emby_collection_id, created_at, updated_at
		FROM custom_collections WHERE health_status = ?
	`, health)
	if err != nil {
		return nil, fmt.Errorf("listing collections by health: %w", err)
	}
	defer rows.Close()

	var out []CustomCollection
	for rows.Next() {
		var c CustomCollection
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.DefinitionJSON, &c.GeneratedMediaInfoJSON,
			&c.HealthStatus, &c.EmbyCollectionID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCollectionSnapshot persists the refreshed member list and derived
// health for a collection.
func UpdateCollectionSnapshot(db *sql.DB, id int64, generatedMediaInfoJSON string, health CollectionHealth, embyCollectionID string) error {
	_, err := db.Exec(`
		UPDATE custom_collections
		SET generated_media_info_json = ?, health_status = ?, emby_collection_id = NULLIF(?, ''), updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, generatedMediaInfoJSON, health, embyCollectionID, id)
	if err != nil {
		return fmt.Errorf("updating collection %d snapshot: %w", id, err)
	}
	return nil
}

// ReplaceCollectionInfo swaps the per-member status rows for a
// list-sourced collection, used on every refresh.
func ReplaceCollectionInfo(tx *sql.Tx, collectionID int64, members []CollectionInfo) error {
	if _, err := tx.Exec(`DELETE FROM collection_info WHERE collection_id = ?`, collectionID); err != nil {
		return fmt.Errorf("clearing collection_info for %d: %w", collectionID, err)
	}
	for _, m := range members {
		if _, err := tx.Exec(`
			INSERT INTO collection_info (collection_id, tmdb_id, status, release_date) VALUES (?, ?, ?, ?)
		`, collectionID, m.TMDbID, m.Status, m.ReleaseDate); err != nil {
			return fmt.Errorf("inserting collection_info for %d/%d: %w", collectionID, m.TMDbID, err)
		}
	}
	return nil
}

// CollectionMembers returns the tracked members of a list-sourced
// collection.
func CollectionMembers(db *sql.DB, collectionID int64) ([]CollectionInfo, error) {
	rows, err := db.Query(`SELECT collection_id, tmdb_id, status, release_date FROM collection_info WHERE collection_id = ?`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("listing collection members for %d: %w", collectionID, err)
	}
	defer rows.Close()

	var out []CollectionInfo
	for rows.Next() {
		var m CollectionInfo
		if err := rows.Scan(&m.CollectionID, &m.TMDbID, &m.Status, &m.ReleaseDate); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetCollectionMemberStatus flips a single member's tracked status, used
// by the auto-subscribe task on a successful subscribe call.
func SetCollectionMemberStatus(tx *sql.Tx, collectionID, tmdbID int64, status CollectionMemberStatus) error {
	_, err := tx.Exec(`UPDATE collection_info SET status = ? WHERE collection_id = ? AND tmdb_id = ?`, status, collectionID, tmdbID)
	if err != nil {
		return fmt.Errorf("setting member status %d/%d: %w", collectionID, tmdbID, err)
	}
	return nil
}
