package database

import "database/sql"

// currentSchemaVersion tracks the highest migration version in this file.
const currentSchemaVersion = 7

type migration struct {
	version int
	up      []string
}

// migrations holds every versioned schema change, applied in order by
// applyMigrations. Each migration owns its own schema_version insert.
var migrations = []migration{
	{
		version: 1,
		up: []string{
			// person_identity_map is the authoritative identity reconciliation
			// table (C1). Each external ID is UNIQUE when non-null; SQLite
			// treats multiple NULLs in a UNIQUE column as distinct, which is
			// exactly the "nullable but globally unique when present" rule.
			`CREATE TABLE person_identity_map (
				map_id INTEGER PRIMARY KEY AUTOINCREMENT,
				primary_name TEXT,
				tmdb_person_id TEXT UNIQUE,
				emby_person_id TEXT UNIQUE,
				imdb_id TEXT UNIQUE,
				douban_celebrity_id TEXT UNIQUE,
				last_synced_at DATETIME,
				last_updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX idx_identity_name ON person_identity_map(primary_name)`,
			`CREATE INDEX idx_identity_tmdb_imdb_null ON person_identity_map(tmdb_person_id, imdb_id)`,
			`CREATE INDEX idx_identity_douban_imdb_null ON person_identity_map(douban_celebrity_id, imdb_id)`,

			`CREATE TABLE translation_cache (
				original_text TEXT PRIMARY KEY,
				translated_text TEXT,
				engine_used TEXT NOT NULL,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,

			`CREATE TABLE processed_log (
				item_id TEXT PRIMARY KEY,
				item_name TEXT NOT NULL,
				item_type TEXT NOT NULL,
				processed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				score REAL NOT NULL
			)`,

			`CREATE TABLE failed_log (
				item_id TEXT PRIMARY KEY,
				item_name TEXT NOT NULL,
				item_type TEXT NOT NULL,
				failed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				error_message TEXT NOT NULL,
				score REAL
			)`,

			`CREATE TABLE schema_version (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`INSERT INTO schema_version (version) VALUES (1)`,
		},
	},
	{
		version: 2,
		up: []string{
			`CREATE TABLE media_metadata (
				tmdb_id INTEGER NOT NULL,
				item_type TEXT NOT NULL,
				title TEXT NOT NULL,
				year INTEGER,
				rating REAL,
				release_date TEXT,
				genres TEXT NOT NULL DEFAULT '[]',
				actors TEXT NOT NULL DEFAULT '[]',
				directors TEXT NOT NULL DEFAULT '[]',
				studios TEXT NOT NULL DEFAULT '[]',
				countries TEXT NOT NULL DEFAULT '[]',
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (tmdb_id, item_type)
			)`,
			`CREATE INDEX idx_media_metadata_type ON media_metadata(item_type)`,
			`INSERT INTO schema_version (version) VALUES (2)`,
		},
	},
	{
		version: 3,
		up: []string{
			`CREATE TABLE watchlist (
				item_id TEXT PRIMARY KEY,
				item_name TEXT NOT NULL,
				tmdb_id INTEGER,
				status TEXT NOT NULL DEFAULT 'watching',
				added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				last_checked_at DATETIME,
				next_episode_to_air TEXT
			)`,
			`CREATE INDEX idx_watchlist_status ON watchlist(status)`,
			`INSERT INTO schema_version (version) VALUES (3)`,
		},
	},
	{
		version: 4,
		up: []string{
			`CREATE TABLE actor_subscriptions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				tmdb_person_id TEXT NOT NULL UNIQUE,
				actor_name TEXT NOT NULL,
				config_types TEXT NOT NULL DEFAULT '["Movie","Series"]',
				last_checked_at DATETIME,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`INSERT INTO schema_version (version) VALUES (4)`,
		},
	},
	{
		version: 5,
		up: []string{
			`CREATE TABLE custom_collections (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE,
				kind TEXT NOT NULL CHECK(kind IN ('list', 'filter')),
				definition_json TEXT NOT NULL,
				generated_media_info_json TEXT NOT NULL DEFAULT '[]',
				health_status TEXT NOT NULL DEFAULT 'ok',
				emby_collection_id TEXT,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE collection_info (
				collection_id INTEGER NOT NULL,
				tmdb_id INTEGER NOT NULL,
				status TEXT NOT NULL,
				release_date TEXT,
				PRIMARY KEY (collection_id, tmdb_id),
				FOREIGN KEY (collection_id) REFERENCES custom_collections(id) ON DELETE CASCADE
			)`,
			`CREATE INDEX idx_collection_info_status ON collection_info(collection_id, status)`,
			`INSERT INTO schema_version (version) VALUES (5)`,
		},
	},
	{
		version: 6,
		up: []string{
			// Task run history, feeding internal/activity and the CLI's
			// `task history` command. Supplemental bookkeeping, not a
			// replacement for the task manager's own key set.
			`CREATE TABLE task_runs (
				id TEXT PRIMARY KEY,
				task_key TEXT NOT NULL,
				started_at DATETIME NOT NULL,
				finished_at DATETIME,
				progress INTEGER NOT NULL DEFAULT 0,
				message TEXT NOT NULL DEFAULT '',
				succeeded BOOLEAN
			)`,
			`CREATE INDEX idx_task_runs_key ON task_runs(task_key, started_at DESC)`,
			`INSERT INTO schema_version (version) VALUES (6)`,
		},
	},
	{
		version: 7,
		up: []string{
			// discarded_candidates captures Douban overflow candidates that
			// were logged-but-dropped overflow candidates, plus their edlib
			// near-miss diagnostic, for operator review.
			`CREATE TABLE discarded_candidates (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				item_id TEXT NOT NULL,
				candidate_name TEXT NOT NULL,
				reason TEXT NOT NULL,
				nearest_seed_name TEXT,
				nearest_seed_distance REAL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX idx_discarded_item ON discarded_candidates(item_id)`,
			`INSERT INTO schema_version (version) VALUES (7)`,
		},
	},
}

// applyMigrations applies any pending schema migrations in order, each
// inside its own transaction.
func applyMigrations(db *sql.DB) error {
	var currentVersion int
	if err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&currentVersion); err != nil {
		currentVersion = 0
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}

		for _, stmt := range m.up {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}
