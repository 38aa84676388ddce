package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// MediaMetadata is one row of media_metadata, the mirror C14's filter
// engine queries against.
type MediaMetadata struct {
	TMDbID      int64
	ItemType    string
	Title       string
	Year        int
	Rating      float64
	ReleaseDate string
	Genres      []string
	Actors      []string
	Directors   []string
	Studios     []string
	Countries   []string
	UpdatedAt   time.Time
}

func marshalList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func unmarshalList(s string) []string {
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

// UpsertMediaMetadata replaces the row for (tmdb_id, item_type).
func UpsertMediaMetadata(db *sql.DB, m MediaMetadata) error {
	genres, err := marshalList(m.Genres)
	if err != nil {
		return err
	}
	actors, err := marshalList(m.Actors)
	if err != nil {
		return err
	}
	directors, err := marshalList(m.Directors)
	if err != nil {
		return err
	}
	studios, err := marshalList(m.Studios)
	if err != nil {
		return err
	}
	countries, err := marshalList(m.Countries)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT INTO media_metadata (tmdb_id, item_type, title, year, rating, release_date, genres, actors, directors, studios, countries, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(tmdb_id, item_type) DO UPDATE SET
			title = excluded.title, year = excluded.year, rating = excluded.rating,
			release_date = excluded.release_date, genres = excluded.genres, actors = excluded.actors,
			directors = excluded.directors, studios = excluded.studios, countries = excluded.countries,
			updated_at = CURRENT_TIMESTAMP
	`, m.TMDbID, m.ItemType, m.Title, m.Year, m.Rating, m.ReleaseDate, genres, actors, directors, studios, countries)
	if err != nil {
		return fmt.Errorf("upsert media metadata %d/%s: %w", m.TMDbID, m.ItemType, err)
	}
	return nil
}

func scanMediaMetadata(row interface{ Scan(...any) error }) (MediaMetadata, error) {
	var m MediaMetadata
	var genres, actors, directors, studios, countries string
	if err := row.Scan(&m.TMDbID, &m.ItemType, &m.Title, &m.Year, &m.Rating, &m.ReleaseDate,
		&genres, &actors, &directors, &studios, &countries, &m.UpdatedAt); err != nil {
		return MediaMetadata{}, err
	}
	m.Genres = unmarshalList(genres)
	m.Actors = unmarshalList(actors)
	m.Directors = unmarshalList(directors)
	m.Studios = unmarshalList(studios)
	m.Countries = unmarshalList(countries)
	return m, nil
}

const mediaMetadataColumns = `tmdb_id, item_type, title, year, rating, release_date, genres, actors, directors, studios, countries, updated_at`

// AllMediaMetadata returns every row, for C14's filter engine to scan.
func AllMediaMetadata(db *sql.DB, itemType string) ([]MediaMetadata, error) {
	var rows *sql.Rows
	var err error
	if itemType == "" {
		rows, err = db.Query(`SELECT ` + mediaMetadataColumns + ` FROM media_metadata`)
	} else {
		rows, err = db.Query(`SELECT `+mediaMetadataColumns+` FROM media_metadata WHERE item_type = ?`, itemType)
	}
	if err != nil {
		return nil, fmt.Errorf("query media metadata: %w", err)
	}
	defer rows.Close()

	var out []MediaMetadata
	for rows.Next() {
		m, err := scanMediaMetadata(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
