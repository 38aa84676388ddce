package database

import (
	"database/sql"
	"fmt"
	"time"
)

// WatchlistStatus enumerates the status column of watchlist.
type WatchlistStatus string

const (
	WatchlistWatching WatchlistStatus = "watching"
	WatchlistEnded    WatchlistStatus = "ended"
)

// WatchlistEntry is one row of watchlist, populated by the webhook
// router when an item-added event names a Series.
type WatchlistEntry struct {
	ItemID           string
	ItemName         string
	TMDbID           sql.NullInt64
	Status           WatchlistStatus
	AddedAt          time.Time
	LastCheckedAt    sql.NullTime
	NextEpisodeToAir sql.NullString
}

// AddToWatchlist inserts a series if not already present.
func AddToWatchlist(db *sql.DB, e WatchlistEntry) error {
	_, err := db.Exec(`
		INSERT INTO watchlist (item_id, item_name, tmdb_id, status, added_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(item_id) DO NOTHING
	`, e.ItemID, e.ItemName, e.TMDbID, e.Status)
	if err != nil {
		return fmt.Errorf("adding %s to watchlist: %w", e.ItemID, err)
	}
	return nil
}

// ActiveWatchlist returns every "watching" entry, the input set for the
// process-watchlist task.
func ActiveWatchlist(db *sql.DB) ([]WatchlistEntry, error) {
	rows, err := db.Query(`SELECT item_id, item_name, tmdb_id, status, added_at, last_checked_at, next_episode_to_air FROM watchlist WHERE status = ?`, WatchlistWatching)
	if err != nil {
		return nil, fmt.Errorf("query active watchlist: %w", err)
	}
	defer rows.Close()

	var out []WatchlistEntry
	for rows.Next() {
		var e WatchlistEntry
		if err := rows.Scan(&e.ItemID, &e.ItemName, &e.TMDbID, &e.Status, &e.AddedAt, &e.LastCheckedAt, &e.NextEpisodeToAir); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TouchWatchlistEntry updates the last-checked timestamp and optional
// next-air-date hint after the watchlist task inspects a series.
func TouchWatchlistEntry(db *sql.DB, itemID, nextEpisodeToAir string, status WatchlistStatus) error {
	_, err := db.Exec(`
		UPDATE watchlist SET last_checked_at = CURRENT_TIMESTAMP, next_episode_to_air = NULLIF(?, ''), status = ?
		WHERE item_id = ?
	`, nextEpisodeToAir, status, itemID)
	if err != nil {
		return fmt.Errorf("touching watchlist entry %s: %w", itemID, err)
	}
	return nil
}
