// Package identity implements the identity map store (C1): a
// multi-key upsert-and-merge engine reconciling four external IDs
// (media-server-person-id, TMDb-person-id, IMDb-id, Douban-celebrity-id)
// into stable local PersonIdentity rows.
package identity

import (
	"database/sql"
	"strings"

	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/logging"
)

// Candidate is the not-yet-reconciled input to Upsert/FindByAnyID. Any
// field may be empty.
type Candidate struct {
	Name   string
	TMDb   string
	Emby   string
	IMDb   string
	Douban string
}

func (c Candidate) normalize() Candidate {
	return Candidate{
		Name:   strings.TrimSpace(c.Name),
		TMDb:   strings.TrimSpace(c.TMDb),
		Emby:   strings.TrimSpace(c.Emby),
		IMDb:   strings.TrimSpace(c.IMDb),
		Douban: strings.TrimSpace(c.Douban),
	}
}

func (c Candidate) hasAnyID() bool {
	return c.TMDb != "" || c.Emby != "" || c.IMDb != "" || c.Douban != ""
}

// Store is the C1 identity map, backed by person_identity_map.
type Store struct {
	db  *database.DB
	log *logging.Logger
}

// New builds a Store over the shared database handle.
func New(db *database.DB, log *logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{db: db, log: log}
}

// FindByAnyID tries the provided IDs in the fixed precedence tmdb, emby,
// imdb, douban and returns the first hit, or nil if none match.
func (s *Store) FindByAnyID(c Candidate) (*database.PersonIdentity, error) {
	c = c.normalize()
	var found *database.PersonIdentity

	err := s.db.WithReadTx(func(db *sql.DB) error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		rows, err := database.IdentityByAnyIDTx(tx, c.TMDb, c.Emby, c.IMDb, c.Douban)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		for _, candidateID := range []string{c.TMDb, c.Emby, c.IMDb, c.Douban} {
			if candidateID == "" {
				continue
			}
			for i := range rows {
				if rows[i].TMDbPersonID == candidateID || rows[i].EmbyPersonID == candidateID ||
					rows[i].IMDbID == candidateID || rows[i].DoubanCelebrityID == candidateID {
					found = &rows[i]
					return nil
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Upsert reconciles candidate into the identity map and returns
// the surviving map_id, or -1 on failure (no name/IDs, or a storage error
// — the caller logs and continues with a synthetic unreconciled entry).
func (s *Store) Upsert(c Candidate) int64 {
	c = c.normalize()
	if c.Name == "" && !c.hasAnyID() {
		return -1
	}

	var mapID int64 = -1
	err := s.db.WithTx(func(tx *sql.Tx) error {
		// Step 3: ID-based merge.
		if c.hasAnyID() {
			rows, err := database.IdentityByAnyIDTx(tx, c.TMDb, c.Emby, c.IMDb, c.Douban)
			if err != nil {
				return err
			}
			if len(rows) > 0 {
				survivor := rows[0]
				for _, loser := range rows[1:] {
					mergeInto(&survivor, loser)
				}
				if c.Name != "" {
					survivor.PrimaryName = c.Name
				}
				fillFromCandidate(&survivor, c)

				// Losers go first: the survivor may now carry their
				// UNIQUE external IDs.
				if len(rows) > 1 {
					var losers []int64
					for _, r := range rows[1:] {
						losers = append(losers, r.MapID)
					}
					if err := database.DeleteIdentitiesTx(tx, losers); err != nil {
						return err
					}
				}
				if err := database.UpdateIdentityTx(tx, survivor); err != nil {
					return err
				}
				mapID = survivor.MapID
				return nil
			}
		}

		// Step 4: name-based soft merge.
		if c.Name != "" {
			rows, err := database.IdentityByNameTx(tx, c.Name)
			if err != nil {
				return err
			}
			for _, row := range rows {
				if c.hasAnyID() && row.HasAnyID() {
					// Same name, different person — not fuseable.
					continue
				}
				fillFromCandidate(&row, c)
				if err := database.UpdateIdentityTx(tx, row); err != nil {
					return err
				}
				mapID = row.MapID
				return nil
			}
		}

		// Step 5: insert.
		newID, err := database.InsertIdentityTx(tx, database.PersonIdentity{
			PrimaryName:       c.Name,
			TMDbPersonID:      c.TMDb,
			EmbyPersonID:      c.Emby,
			IMDbID:            c.IMDb,
			DoubanCelebrityID: c.Douban,
		})
		if err != nil {
			return err
		}
		mapID = newID
		return nil
	})
	if err != nil {
		s.log.Error("identity", "upsert failed", err, logging.F("name", c.Name))
		return -1
	}
	return mapID
}

// mergeInto folds loser's non-null external IDs into survivor wherever
// survivor's own value is empty. External IDs are authoritative: a shared
// ID means the two rows already refer to the same person.
func mergeInto(survivor *database.PersonIdentity, loser database.PersonIdentity) {
	if survivor.TMDbPersonID == "" {
		survivor.TMDbPersonID = loser.TMDbPersonID
	}
	if survivor.EmbyPersonID == "" {
		survivor.EmbyPersonID = loser.EmbyPersonID
	}
	if survivor.IMDbID == "" {
		survivor.IMDbID = loser.IMDbID
	}
	if survivor.DoubanCelebrityID == "" {
		survivor.DoubanCelebrityID = loser.DoubanCelebrityID
	}
	if survivor.PrimaryName == "" {
		survivor.PrimaryName = loser.PrimaryName
	}
}

// fillFromCandidate fills any empty external-ID field on row with the
// candidate's corresponding value.
func fillFromCandidate(row *database.PersonIdentity, c Candidate) {
	if row.TMDbPersonID == "" && c.TMDb != "" {
		row.TMDbPersonID = c.TMDb
	}
	if row.EmbyPersonID == "" && c.Emby != "" {
		row.EmbyPersonID = c.Emby
	}
	if row.IMDbID == "" && c.IMDb != "" {
		row.IMDbID = c.IMDb
	}
	if row.DoubanCelebrityID == "" && c.Douban != "" {
		row.DoubanCelebrityID = c.Douban
	}
}
