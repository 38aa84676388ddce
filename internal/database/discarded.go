package database

import (
	"database/sql"
	"fmt"
)

// DiscardedCandidate is one row of discarded_candidates — a Douban
// overflow candidate dropped during truncation, plus its nearest-seed
// fuzzy-distance diagnostic.
type DiscardedCandidate struct {
	ID                  int64
	ItemID              string
	CandidateName       string
	Reason              string
	NearestSeedName     sql.NullString
	NearestSeedDistance sql.NullFloat64
}

// InsertDiscardedCandidate logs a dropped overflow candidate for
// operator review; never affects a matching decision.
func InsertDiscardedCandidate(tx *sql.Tx, d DiscardedCandidate) error {
	_, err := tx.Exec(`
		INSERT INTO discarded_candidates (item_id, candidate_name, reason, nearest_seed_name, nearest_seed_distance)
		VALUES (?, ?, ?, ?, ?)
	`, d.ItemID, d.CandidateName, d.Reason, d.NearestSeedName, d.NearestSeedDistance)
	if err != nil {
		return fmt.Errorf("logging discarded candidate %q: %w", d.CandidateName, err)
	}
	return nil
}

// DiscardedCandidatesForItem returns every discard logged for an item.
func DiscardedCandidatesForItem(db *sql.DB, itemID string) ([]DiscardedCandidate, error) {
	rows, err := db.Query(`
		SELECT id, item_id, candidate_name, reason, nearest_seed_name, nearest_seed_distance
		FROM discarded_candidates WHERE item_id = ? ORDER BY id ASC
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing discarded candidates for %s: %w", itemID, err)
	}
	defer rows.Close()

	var out []DiscardedCandidate
	for rows.Next() {
		var d DiscardedCandidate
		if err := rows.Scan(&d.ID, &d.ItemID, &d.CandidateName, &d.Reason, &d.NearestSeedName, &d.NearestSeedDistance); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
