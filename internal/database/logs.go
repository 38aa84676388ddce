package database

import (
	"database/sql"
	"fmt"
	"time"
)

// ProcessedRecord is one row of processed_log (C3).
type ProcessedRecord struct {
	ItemID      string
	ItemName    string
	ItemType    string
	ProcessedAt time.Time
	Score       float64
}

// FailedRecord is one row of failed_log (C3).
type FailedRecord struct {
	ItemID       string
	ItemName     string
	ItemType     string
	FailedAt     time.Time
	ErrorMessage string
	Score        sql.NullFloat64
}

// MarkProcessed records a successful run for itemID and clears any prior
// failure — invariant: an item id appears in at most one log.
func MarkProcessed(tx *sql.Tx, rec ProcessedRecord) error {
	if _, err := tx.Exec(`DELETE FROM failed_log WHERE item_id = ?`, rec.ItemID); err != nil {
		return fmt.Errorf("clearing failed_log for %s: %w", rec.ItemID, err)
	}
	_, err := tx.Exec(`
		INSERT INTO processed_log (item_id, item_name, item_type, processed_at, score)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			item_name = excluded.item_name,
			item_type = excluded.item_type,
			processed_at = CURRENT_TIMESTAMP,
			score = excluded.score
	`, rec.ItemID, rec.ItemName, rec.ItemType, rec.Score)
	if err != nil {
		return fmt.Errorf("marking %s processed: %w", rec.ItemID, err)
	}
	return nil
}

// MarkFailed records a failed run for itemID and clears any prior
// success.
func MarkFailed(tx *sql.Tx, rec FailedRecord) error {
	if _, err := tx.Exec(`DELETE FROM processed_log WHERE item_id = ?`, rec.ItemID); err != nil {
		return fmt.Errorf("clearing processed_log for %s: %w", rec.ItemID, err)
	}
	_, err := tx.Exec(`
		INSERT INTO failed_log (item_id, item_name, item_type, failed_at, error_message, score)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			item_name = excluded.item_name,
			item_type = excluded.item_type,
			failed_at = CURRENT_TIMESTAMP,
			error_message = excluded.error_message,
			score = excluded.score
	`, rec.ItemID, rec.ItemName, rec.ItemType, rec.ErrorMessage, rec.Score)
	if err != nil {
		return fmt.Errorf("marking %s failed: %w", rec.ItemID, err)
	}
	return nil
}

// IsProcessed reports whether itemID already has a processed_log row,
// the skip check a non-forced full scan uses to avoid redoing work.
func IsProcessed(db *sql.DB, itemID string) (bool, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM processed_log WHERE item_id = ?`, itemID).Scan(&n); err != nil {
		return false, fmt.Errorf("checking processed state for %s: %w", itemID, err)
	}
	return n > 0, nil
}

// BelowReviewThreshold returns every processed item whose score is below
// threshold, feeding the reprocess-review-items task.
func BelowReviewThreshold(db *sql.DB, threshold float64) ([]ProcessedRecord, error) {
	rows, err := db.Query(`SELECT item_id, item_name, item_type, processed_at, score FROM processed_log WHERE score < ? ORDER BY score ASC`, threshold)
	if err != nil {
		return nil, fmt.Errorf("query below-review items: %w", err)
	}
	defer rows.Close()

	var out []ProcessedRecord
	for rows.Next() {
		var r ProcessedRecord
		if err := rows.Scan(&r.ItemID, &r.ItemName, &r.ItemType, &r.ProcessedAt, &r.Score); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
