// Package pipeline wires the Cast Processor (C9) to the media-server
// adapter (C4) and the override writer (C10) for one item at a time:
// fetch → process → write cast back to Emby → side-load override →
// refresh → log. Both the webhook router (C13) and the task manager's
// scan bodies drive a single item through the same ProcessItem call so
// the two triggers never disagree on what "processing an item" means.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/hbq0405/emby-actor-processor/internal/cast"
	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/embyclient"
	"github.com/hbq0405/emby-actor-processor/internal/logging"
	"github.com/hbq0405/emby-actor-processor/internal/metrics"
	"github.com/hbq0405/emby-actor-processor/internal/override"
)

// EmbyClient is the subset of *embyclient.Client the pipeline needs.
type EmbyClient interface {
	GetItemDetails(itemID string) (*embyclient.Item, error)
	UpdateItemCast(itemID string, cast []embyclient.CastRecord) error
	RefreshItemMetadata(itemID string, replaceAll bool) error
}

// Options carries the per-run knobs that would otherwise be threaded
// through every call: "process episodes" is passed explicitly
// per run, not held as global state).
type Options struct {
	MaxActors       int
	RolePrefixOn    bool
	ProcessEpisodes bool
	ReviewThreshold float64
}

// Pipeline drives one item through C9, C4, and C10 and records the
// outcome in the processed/failed log.
type Pipeline struct {
	db        *database.DB
	emby      EmbyClient
	processor *cast.Processor
	writer    *override.Writer
	opts      Options
	log       *logging.Logger
}

func New(db *database.DB, emby EmbyClient, processor *cast.Processor, writer *override.Writer, opts Options, log *logging.Logger) *Pipeline {
	if log == nil {
		log = logging.Nop()
	}
	if opts.MaxActors <= 0 {
		opts.MaxActors = 30
	}
	if opts.ReviewThreshold <= 0 {
		opts.ReviewThreshold = 6.0
	}
	return &Pipeline{db: db, emby: emby, processor: processor, writer: writer, opts: opts, log: log}
}

// ProcessItem implements item-level algorithm end to end:
// fetch the item's current server state, run it through the cast
// processor, write the result back to Emby and the side-load cache,
// trigger a refresh, and log success/failure. A Movie or Series with
// no resolvable TMDb id cannot be side-loaded and is logged as failed
// without aborting the caller's loop.
func (p *Pipeline) ProcessItem(ctx context.Context, itemID string) (*cast.Result, error) {
	item, err := p.emby.GetItemDetails(itemID)
	if err != nil {
		p.markFailed(itemID, "", item, fmt.Sprintf("获取条目详情失败: %v", err))
		return nil, fmt.Errorf("fetching item %s: %w", itemID, err)
	}

	if item.Type != "Movie" && item.Type != "Series" {
		return nil, fmt.Errorf("pipeline: item %s has unsupported type %q", itemID, item.Type)
	}

	tmdbID, err := strconv.ParseInt(item.ProviderIDs.Tmdb, 10, 64)
	if err != nil || tmdbID <= 0 {
		p.markFailed(itemID, item.Name, item, "文件缺失: 条目没有有效的 TMDb ID")
		return nil, fmt.Errorf("item %s has no usable tmdb id", itemID)
	}

	in := cast.ItemInput{
		ItemID:       itemID,
		Name:         item.Name,
		IMDbID:       item.ProviderIDs.Imdb,
		DoubanID:     item.ProviderIDs.Douban,
		Type:         item.Type,
		Year:         item.ProductionYear,
		Genres:       item.Genres,
		People:       toPersonInputs(item.People),
		MaxActors:    p.opts.MaxActors,
		RolePrefixOn: p.opts.RolePrefixOn,
	}

	result, err := p.processor.Process(ctx, in)
	if err != nil {
		p.markFailed(itemID, item.Name, item, err.Error())
		return nil, fmt.Errorf("processing cast for %s: %w", itemID, err)
	}

	records := toCastRecords(result.Cast)

	if err := p.emby.UpdateItemCast(itemID, records); err != nil {
		p.markFailed(itemID, item.Name, item, fmt.Sprintf("写回 Emby 演员表失败: %v", err))
		return result, fmt.Errorf("updating emby cast for %s: %w", itemID, err)
	}

	if err := p.writer.Write(item.Type, tmdbID, records, p.opts.ProcessEpisodes); err != nil {
		p.markFailed(itemID, item.Name, item, fmt.Sprintf("写入 override 缓存失败: %v", err))
		return result, fmt.Errorf("writing override for %s: %w", itemID, err)
	}

	if err := p.emby.RefreshItemMetadata(itemID, false); err != nil {
		p.log.Warn("pipeline", "refresh after override write failed", logging.F("item_id", itemID), logging.F("error", err.Error()))
	}

	p.markProcessed(itemID, item.Name, item.Type, result.QualityScore)
	outcome := "ok"
	if result.NeedsReview {
		outcome = "needs_review"
	}
	metrics.ItemsProcessed.WithLabelValues(item.Type, outcome).Inc()
	metrics.CastQualityScore.Observe(result.QualityScore)
	return result, nil
}

func (p *Pipeline) markProcessed(itemID, name, itemType string, score float64) {
	err := p.db.WithTx(func(tx *sql.Tx) error {
		return database.MarkProcessed(tx, database.ProcessedRecord{
			ItemID: itemID, ItemName: name, ItemType: itemType, Score: score,
		})
	})
	if err != nil {
		p.log.Warn("pipeline", "marking item processed failed", logging.F("item_id", itemID), logging.F("error", err.Error()))
	}
}

func (p *Pipeline) markFailed(itemID, name string, item *embyclient.Item, reason string) {
	itemType := ""
	if item != nil {
		itemType = item.Type
	}
	metrics.ItemsProcessed.WithLabelValues(itemType, "failed").Inc()
	err := p.db.WithTx(func(tx *sql.Tx) error {
		return database.MarkFailed(tx, database.FailedRecord{
			ItemID: itemID, ItemName: name, ItemType: itemType, ErrorMessage: reason,
		})
	})
	if err != nil {
		p.log.Warn("pipeline", "marking item failed failed", logging.F("item_id", itemID), logging.F("error", err.Error()))
	}
}

func toPersonInputs(people []embyclient.Person) []cast.PersonInput {
	out := make([]cast.PersonInput, 0, len(people))
	for _, person := range people {
		if person.Type != "Actor" {
			continue
		}
		out = append(out, cast.PersonInput{
			EmbyID:       person.ID,
			Name:         person.Name,
			OriginalName: person.OriginalName,
			Role:         person.Role,
			TMDbID:       person.ProviderIDs.Tmdb,
			IMDbID:       person.ProviderIDs.Imdb,
			DoubanID:     person.ProviderIDs.Douban,
			Order:        person.SortOrder,
		})
	}
	return out
}

func toCastRecords(records []cast.Record) []embyclient.CastRecord {
	out := make([]embyclient.CastRecord, len(records))
	for i, r := range records {
		out[i] = embyclient.CastRecord{
			ID:                 r.EmbyID,
			Name:               r.Name,
			OriginalName:       r.OriginalName,
			Character:          r.Character,
			Order:              r.Order,
			Adult:              r.Adult,
			Gender:             r.Gender,
			KnownForDepartment: r.KnownForDept,
			Popularity:         r.Popularity,
			ProfilePath:        r.ProfilePath,
			CastID:             r.CastID,
			CreditID:           r.CreditID,
		}
	}
	return out
}
