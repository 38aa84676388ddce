// Package enrich implements the Identity Enricher (C11): a two-phase
// background sweep that backfills imdb_id onto person_identity_map rows
// that already carry a TMDb or Douban id
package enrich

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/douban"
	"github.com/hbq0405/emby-actor-processor/internal/logging"
	"github.com/hbq0405/emby-actor-processor/internal/tmdb"
)

// Report mirrors the task manager's progress callback shape, without
// importing internal/tasks.
type Report func(progress int, message string)

// TMDbSource is the subset of *tmdb.Client phase A needs.
type TMDbSource interface {
	GetPersonDetails(ctx context.Context, id int64, include ...string) (*tmdb.Person, error)
}

// DoubanSource is the subset of *douban.Client phase B needs.
type DoubanSource interface {
	GetCelebrityDetails(ctx context.Context, doubanID string) (*douban.CelebrityDetails, error)
}

// Config tunes the enricher's concurrency and pacing.
type Config struct {
	Workers         int           // phase A concurrency, default 5
	BatchSize       int           // rows selected per round, default 200
	Cooldown        time.Duration // StaleForEnrichment recheck window
	WallClockBudget time.Duration // 0 = run until both phases are dry
}

// Enricher runs the phase A / phase B sweep
type Enricher struct {
	db     *database.DB
	tmdb   TMDbSource
	douban DoubanSource
	cfg    Config
	log    *logging.Logger
}

func New(db *database.DB, tmdbClient TMDbSource, doubanClient DoubanSource, cfg Config, log *logging.Logger) *Enricher {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Enricher{db: db, tmdb: tmdbClient, douban: doubanClient, cfg: cfg, log: log}
}

// Run executes phase A (concurrent TMDb backfill) then phase B
// (sequential Douban backfill), honoring ctx cancellation and the
// configured wall-clock budget between batches.
func (e *Enricher) Run(ctx context.Context, report Report) error {
	var deadline time.Time
	if e.cfg.WallClockBudget > 0 {
		deadline = time.Now().Add(e.cfg.WallClockBudget)
	}

	if report != nil {
		report(0, "phase A: TMDb imdb_id backfill")
	}
	processedA, err := e.phaseA(ctx, deadline)
	if err != nil {
		return fmt.Errorf("enrich phase A: %w", err)
	}
	if report != nil {
		report(50, fmt.Sprintf("phase A done (%d identities), phase B: Douban imdb_id backfill", processedA))
	}

	processedB, err := e.phaseB(ctx, deadline)
	if err != nil {
		return fmt.Errorf("enrich phase B: %w", err)
	}
	if report != nil {
		report(100, fmt.Sprintf("phase B done (%d identities)", processedB))
	}
	return nil
}

type outcomeKind int

const (
	outcomeFound outcomeKind = iota
	outcomeNotFound
	outcomeFailed
)

type tmdbOutcome struct {
	row    database.PersonIdentity
	kind   outcomeKind
	imdbID string
}

// phaseA backfills imdb_id via TMDb's external_ids, up to cfg.Workers
// concurrent lookups per batch, committing each batch in one
// transaction
func (e *Enricher) phaseA(ctx context.Context, deadline time.Time) (int, error) {
	processed := 0
	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if pastDeadline(deadline) {
			return processed, nil
		}

		rows, err := database.StaleForEnrichment(e.db.Raw(), "tmdb_person_id", e.cfg.Cooldown, e.cfg.BatchSize)
		if err != nil {
			return processed, fmt.Errorf("selecting stale tmdb identities: %w", err)
		}
		if len(rows) == 0 {
			return processed, nil
		}

		outcomes := e.fetchTMDbBatch(ctx, rows)
		if err := e.commitTMDbBatch(outcomes); err != nil {
			return processed, fmt.Errorf("committing tmdb batch: %w", err)
		}
		processed += len(rows)

		if len(rows) < e.cfg.BatchSize {
			return processed, nil
		}
	}
}

func (e *Enricher) fetchTMDbBatch(ctx context.Context, rows []database.PersonIdentity) []tmdbOutcome {
	outcomes := make([]tmdbOutcome, len(rows))
	sem := make(chan struct{}, e.cfg.Workers)
	var wg sync.WaitGroup

	for i, row := range rows {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, row database.PersonIdentity) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = e.fetchOneTMDb(ctx, row)
		}(i, row)
	}
	wg.Wait()
	return outcomes
}

func (e *Enricher) fetchOneTMDb(ctx context.Context, row database.PersonIdentity) tmdbOutcome {
	if err := ctx.Err(); err != nil {
		return tmdbOutcome{row: row, kind: outcomeFailed}
	}

	id, err := strconv.ParseInt(row.TMDbPersonID, 10, 64)
	if err != nil {
		e.log.Warn("enrich", "unparseable tmdb_person_id", logging.F("map_id", row.MapID), logging.F("tmdb_person_id", row.TMDbPersonID))
		return tmdbOutcome{row: row, kind: outcomeFailed}
	}

	person, err := e.tmdb.GetPersonDetails(ctx, id, "external_ids")
	switch {
	case err == nil:
		imdb := ""
		if person.ExternalIDs != nil {
			imdb = person.ExternalIDs.IMDbID
		}
		if imdb == "" {
			return tmdbOutcome{row: row, kind: outcomeFailed}
		}
		return tmdbOutcome{row: row, kind: outcomeFound, imdbID: imdb}
	case errors.Is(err, tmdb.ErrNotFound):
		return tmdbOutcome{row: row, kind: outcomeNotFound}
	default:
		e.log.Warn("enrich", "tmdb person fetch failed", logging.F("map_id", row.MapID), logging.F("error", err.Error()))
		return tmdbOutcome{row: row, kind: outcomeFailed}
	}
}

// commitTMDbBatch applies upserts and deletes and touches last_synced_at
// for every row still present, all in one transaction
func (e *Enricher) commitTMDbBatch(outcomes []tmdbOutcome) error {
	return e.db.WithTx(func(tx *sql.Tx) error {
		var deleteIDs []int64
		for _, o := range outcomes {
			if o.kind == outcomeNotFound {
				deleteIDs = append(deleteIDs, o.row.MapID)
			}
		}
		deleted := make(map[int64]bool, len(deleteIDs))
		for _, id := range deleteIDs {
			deleted[id] = true
		}

		for _, o := range outcomes {
			if o.kind != outcomeFound {
				continue
			}
			row := o.row
			row.IMDbID = o.imdbID
			if err := database.UpdateIdentityTx(tx, row); err != nil {
				return err
			}
		}

		if len(deleteIDs) > 0 {
			if err := database.DeleteIdentitiesTx(tx, deleteIDs); err != nil {
				return err
			}
		}

		var touchIDs []int64
		for _, o := range outcomes {
			if !deleted[o.row.MapID] {
				touchIDs = append(touchIDs, o.row.MapID)
			}
		}
		return database.TouchSyncedTx(tx, touchIDs)
	})
}

// phaseB backfills imdb_id via Douban celebrity details, sequentially,
// committing every 50 rows.
func (e *Enricher) phaseB(ctx context.Context, deadline time.Time) (int, error) {
	const commitEvery = 50
	processed := 0

	for {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if pastDeadline(deadline) {
			return processed, nil
		}

		rows, err := database.StaleForEnrichment(e.db.Raw(), "douban_celebrity_id", e.cfg.Cooldown, e.cfg.BatchSize)
		if err != nil {
			return processed, fmt.Errorf("selecting stale douban identities: %w", err)
		}
		if len(rows) == 0 {
			return processed, nil
		}

		for i := 0; i < len(rows); i += commitEvery {
			if err := ctx.Err(); err != nil {
				return processed, err
			}
			end := i + commitEvery
			if end > len(rows) {
				end = len(rows)
			}
			chunk := rows[i:end]

			toUpdate, toTouch := e.fetchDoubanChunk(ctx, chunk)
			if err := e.db.WithTx(func(tx *sql.Tx) error {
				for _, row := range toUpdate {
					if err := database.UpdateIdentityTx(tx, row); err != nil {
						return err
					}
				}
				return database.TouchSyncedTx(tx, toTouch)
			}); err != nil {
				return processed, fmt.Errorf("committing douban batch: %w", err)
			}
			processed += len(chunk)
		}

		if len(rows) < e.cfg.BatchSize {
			return processed, nil
		}
	}
}

func (e *Enricher) fetchDoubanChunk(ctx context.Context, chunk []database.PersonIdentity) (toUpdate []database.PersonIdentity, toTouch []int64) {
	for _, row := range chunk {
		if err := ctx.Err(); err != nil {
			break
		}
		details, err := e.douban.GetCelebrityDetails(ctx, row.DoubanCelebrityID)
		if err != nil {
			e.log.Warn("enrich", "douban celebrity fetch failed", logging.F("map_id", row.MapID), logging.F("error", err.Error()))
			toTouch = append(toTouch, row.MapID)
			continue
		}
		if imdb := details.IMDbID(); imdb != "" {
			row.IMDbID = imdb
			toUpdate = append(toUpdate, row)
		}
		toTouch = append(toTouch, row.MapID)
	}
	return toUpdate, toTouch
}

func pastDeadline(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}
