package database

import (
	"database/sql"
	"fmt"
	"time"
)

// TranslationEntry is one row of translation_cache (C2). A nil
// TranslatedText with an EngineUsed prefixed "failed_" is a negative
// cache hit
type TranslationEntry struct {
	OriginalText   string
	TranslatedText sql.NullString
	EngineUsed     string
	UpdatedAt      time.Time
}

// IsNegative reports whether this entry is a negative-cache hit.
func (t TranslationEntry) IsNegative() bool {
	return !t.TranslatedText.Valid
}

// GetTranslation looks up a single cached entry, or (zero, false) if
// absent.
func GetTranslation(db *sql.DB, text string) (TranslationEntry, bool, error) {
	row := db.QueryRow(`SELECT original_text, translated_text, engine_used, updated_at FROM translation_cache WHERE original_text = ?`, text)

	var e TranslationEntry
	err := row.Scan(&e.OriginalText, &e.TranslatedText, &e.EngineUsed, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return TranslationEntry{}, false, nil
	}
	if err != nil {
		return TranslationEntry{}, false, fmt.Errorf("get translation %q: %w", text, err)
	}
	return e, true, nil
}

// PutTranslation upserts a cache entry, used both for positive hits and
// for the negative-cache write on final failure.
func PutTranslation(db *sql.DB, text string, translated sql.NullString, engine string) error {
	_, err := db.Exec(`
		INSERT INTO translation_cache (original_text, translated_text, engine_used, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(original_text) DO UPDATE SET
			translated_text = excluded.translated_text,
			engine_used = excluded.engine_used,
			updated_at = CURRENT_TIMESTAMP
	`, text, translated, engine)
	if err != nil {
		return fmt.Errorf("put translation %q: %w", text, err)
	}
	return nil
}

// EnginePriority ranks an engine for the merge-conflict rule:
// manual=2, AI providers=1, everything else=0.
func EnginePriority(engine string, aiEngineNames map[string]bool) int {
	if engine == "manual" {
		return 2
	}
	if aiEngineNames[engine] {
		return 1
	}
	return 0
}

// PruneStaleNegative deletes negative-cache rows (engine_used prefixed
// "failed_") older than retention. No registered task calls it.
func PruneStaleNegative(db *sql.DB, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res, err := db.Exec(`
		DELETE FROM translation_cache
		WHERE translated_text IS NULL AND engine_used LIKE 'failed\_%' ESCAPE '\' AND updated_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune stale negative cache: %w", err)
	}
	return res.RowsAffected()
}
