package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/embyclient"
	"github.com/hbq0405/emby-actor-processor/internal/identity"
	"github.com/hbq0405/emby-actor-processor/internal/logging"
	"github.com/hbq0405/emby-actor-processor/internal/tasks"
	"github.com/hbq0405/emby-actor-processor/internal/tmdb"
)

// registerTasks binds every task key to its body. Each body
// is a thin driver over components already built by buildApp — the
// orchestration logic itself lives here because it's specific to how
// this process sequences C9/C11/C14 over a library, not to any one
// component.
func (a *app) registerTasks() {
	a.manager.Register(tasks.KeyFullScan, a.taskFullScan(false))
	a.manager.Register(tasks.KeyFullScanForce, a.taskFullScan(true))
	a.manager.Register(tasks.KeyPopulateMetadata, a.taskPopulateMetadata)
	a.manager.Register(tasks.KeySyncPersonMap, a.taskSyncPersonMap)
	a.manager.Register(tasks.KeyProcessWatchlist, a.taskProcessWatchlist)
	a.manager.Register(tasks.KeyEnrichAliases, a.taskEnrichAliases)
	a.manager.Register(tasks.KeyActorCleanup, a.taskActorCleanup)
	a.manager.Register(tasks.KeyRefreshCollections, a.taskRefreshCollections)
	a.manager.Register(tasks.KeyAutoSubscribe, a.taskAutoSubscribe)
	a.manager.Register(tasks.KeyActorTracking, a.taskActorTracking)
	a.manager.Register(tasks.KeyCustomCollections, a.taskCustomCollections)
	a.manager.Register(tasks.KeyReprocessReviewItems, a.taskReprocessReviewItems)
}

// libraryItems lists every Movie and Series in the library — the
// common input set full-scan, populate-metadata, and sync-person-map
// all walk.
func (a *app) libraryItems() ([]embyclient.Item, error) {
	movies, err := a.emby.GetLibraryItems("", "Movie", nil)
	if err != nil {
		return nil, fmt.Errorf("listing movies: %w", err)
	}
	series, err := a.emby.GetLibraryItems("", "Series", nil)
	if err != nil {
		return nil, fmt.Errorf("listing series: %w", err)
	}
	return append(movies, series...), nil
}

// taskFullScan drives every library item through the cast processor
// pipeline. A non-forced run skips items already present in
// processed_log, suiting a routine nightly pass; forced re-derives
// everything.
func (a *app) taskFullScan(force bool) tasks.Func {
	return func(ctx context.Context, report tasks.ReportFunc) error {
		items, err := a.libraryItems()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			report(100, "library scan: no items found")
			return nil
		}

		for i, item := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !force {
				done, err := database.IsProcessed(a.db.Raw(), item.ID)
				if err != nil {
					a.log.Warn("tasks", "checking processed state failed", logging.F("item_id", item.ID), logging.F("error", err.Error()))
				} else if done {
					continue
				}
			}
			if _, err := a.pipeline.ProcessItem(ctx, item.ID); err != nil {
				a.log.Warn("tasks", "full scan: item failed", logging.F("item_id", item.ID), logging.F("error", err.Error()))
			}
			report(int(100*(i+1)/len(items)), fmt.Sprintf("processed %s", item.Name))
		}
		return nil
	}
}

// taskPopulateMetadata rebuilds the media_metadata mirror C14's filter
// engine queries against.
func (a *app) taskPopulateMetadata(ctx context.Context, report tasks.ReportFunc) error {
	items, err := a.libraryItems()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		report(100, "populate metadata: no items found")
		return nil
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		tmdbID, err := strconv.ParseInt(item.ProviderIDs.Tmdb, 10, 64)
		if err != nil || tmdbID <= 0 {
			continue
		}

		var m database.MediaMetadata
		switch item.Type {
		case "Movie":
			details, err := a.tmdbClient.GetMovieDetails(ctx, tmdbID)
			if err != nil {
				a.log.Warn("tasks", "populate-metadata: movie lookup failed", logging.F("tmdb_id", tmdbID), logging.F("error", err.Error()))
				continue
			}
			m = database.MediaMetadata{
				TMDbID: tmdbID, ItemType: item.Type, Title: details.Title, Year: item.ProductionYear,
				Rating: details.VoteAverage, ReleaseDate: details.ReleaseDate,
				Genres: genreNames(details.Genres), Actors: castNames(details.Cast()),
				Directors: details.Directors(), Studios: details.Studios(), Countries: details.Countries(),
			}
		case "Series":
			details, err := a.tmdbClient.GetTvDetails(ctx, tmdbID)
			if err != nil {
				a.log.Warn("tasks", "populate-metadata: tv lookup failed", logging.F("tmdb_id", tmdbID), logging.F("error", err.Error()))
				continue
			}
			m = database.MediaMetadata{
				TMDbID: tmdbID, ItemType: item.Type, Title: details.Name, Year: item.ProductionYear,
				Rating: details.VoteAverage, ReleaseDate: details.FirstAirDate,
				Genres: genreNames(details.Genres), Actors: castNames(details.Cast()),
				Directors: details.Directors(), Studios: details.Studios(), Countries: details.Countries(),
			}
		default:
			continue
		}

		if err := database.UpsertMediaMetadata(a.db.Raw(), m); err != nil {
			a.log.Warn("tasks", "populate-metadata: upsert failed", logging.F("tmdb_id", tmdbID), logging.F("error", err.Error()))
		}
		report(int(100*(i+1)/len(items)), fmt.Sprintf("mirrored %s", item.Name))
	}
	return nil
}

func genreNames(genres []tmdb.Genre) []string {
	out := make([]string, len(genres))
	for i, g := range genres {
		out[i] = g.Name
	}
	return out
}

// castNames takes only the top-billed handful of a TMDb credits list —
// media_metadata's actor field is for filter matching, not a full cast
// mirror (the override writer owns that).
func castNames(cast []tmdb.CastMember) []string {
	const maxTracked = 10
	if len(cast) > maxTracked {
		cast = cast[:maxTracked]
	}
	out := make([]string, len(cast))
	for i, c := range cast {
		out[i] = c.Name
	}
	return out
}

// taskSyncPersonMap walks every cast credit currently on the library
// and upserts it into the identity map (C1), the bulk-reconciliation
// counterpart to the per-item seeding the cast processor performs.
func (a *app) taskSyncPersonMap(ctx context.Context, report tasks.ReportFunc) error {
	items, err := a.libraryItems()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		report(100, "sync person map: no items found")
		return nil
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		full, err := a.emby.GetItemDetails(item.ID)
		if err != nil {
			a.log.Warn("tasks", "sync-person-map: fetching item failed", logging.F("item_id", item.ID), logging.F("error", err.Error()))
			continue
		}
		for _, person := range full.People {
			if person.Type != "Actor" || person.Name == "" {
				continue
			}
			a.identity.Upsert(identity.Candidate{
				Name: person.Name, TMDb: person.ProviderIDs.Tmdb, Emby: person.ID,
				IMDb: person.ProviderIDs.Imdb, Douban: person.ProviderIDs.Douban,
			})
		}
		report(int(100*(i+1)/len(items)), fmt.Sprintf("synced %s", item.Name))
	}
	return nil
}

// taskProcessWatchlist reprocesses every actively-watched series' cast
// so a newly aired episode's cast credits get reconciled without
// waiting for the next full scan.
func (a *app) taskProcessWatchlist(ctx context.Context, report tasks.ReportFunc) error {
	entries, err := database.ActiveWatchlist(a.db.Raw())
	if err != nil {
		return fmt.Errorf("listing active watchlist: %w", err)
	}
	if len(entries) == 0 {
		report(100, "process watchlist: nothing being watched")
		return nil
	}

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := a.pipeline.ProcessItem(ctx, e.ItemID); err != nil {
			a.log.Warn("tasks", "process-watchlist: item failed", logging.F("item_id", e.ItemID), logging.F("error", err.Error()))
		}
		if err := database.TouchWatchlistEntry(a.db.Raw(), e.ItemID, "", database.WatchlistWatching); err != nil {
			a.log.Warn("tasks", "process-watchlist: touching entry failed", logging.F("item_id", e.ItemID), logging.F("error", err.Error()))
		}
		report(int(100*(i+1)/len(entries)), fmt.Sprintf("checked %s", e.ItemName))
	}
	return nil
}

// taskEnrichAliases runs the identity enricher (C11).
func (a *app) taskEnrichAliases(ctx context.Context, report tasks.ReportFunc) error {
	return a.enricher.Run(ctx, func(progress int, message string) { report(progress, message) })
}

// taskActorCleanup implements the rebuild workflow: wipe every item's
// People list on the server, then force-reprocess the whole library so
// cast is re-derived from TMDb/Douban with no stale Emby-side entries
// left over from a previous processor version.
func (a *app) taskActorCleanup(ctx context.Context, report tasks.ReportFunc) error {
	if err := a.emby.ClearAllPersonsViaApi(func(done, total int) {
		if total > 0 {
			report(int(50*done/total), fmt.Sprintf("cleared %d/%d items", done, total))
		}
	}); err != nil {
		return fmt.Errorf("clearing persons: %w", err)
	}
	return a.taskFullScan(true)(ctx, func(progress int, message string) {
		if progress >= 0 {
			report(50+progress/2, message)
		} else {
			report(progress, message)
		}
	})
}

// taskRefreshCollections refreshes list-sourced custom collections.
func (a *app) taskRefreshCollections(ctx context.Context, report tasks.ReportFunc) error {
	return a.collections.RefreshByKind(ctx, database.CollectionList, func(progress int, message string) { report(progress, message) })
}

// taskCustomCollections refreshes filter-sourced custom collections.
func (a *app) taskCustomCollections(ctx context.Context, report tasks.ReportFunc) error {
	return a.collections.RefreshByKind(ctx, database.CollectionFilter, func(progress int, message string) { report(progress, message) })
}

// taskAutoSubscribe drives the auto-subscribe sweep through
// the configured downloader webhook.
func (a *app) taskAutoSubscribe(ctx context.Context, report tasks.ReportFunc) error {
	return a.collections.AutoSubscribe(ctx, a.subscriber, func(progress int, message string) { report(progress, message) })
}

// taskActorTracking checks every subscribed actor's TMDb combined
// credits for new work and records that the subscription was checked.
// Notification delivery is out of scope — this task's job is
// keeping the subscription rows current, not paging anyone.
func (a *app) taskActorTracking(ctx context.Context, report tasks.ReportFunc) error {
	subs, err := database.ListActorSubscriptions(a.db.Raw())
	if err != nil {
		return fmt.Errorf("listing actor subscriptions: %w", err)
	}
	if len(subs) == 0 {
		report(100, "actor tracking: no subscriptions")
		return nil
	}

	for i, s := range subs {
		if err := ctx.Err(); err != nil {
			return err
		}
		tmdbID, err := strconv.ParseInt(s.TMDbPersonID, 10, 64)
		if err != nil {
			continue
		}
		credits, err := a.tmdbClient.GetPersonCombinedCredits(ctx, tmdbID)
		if err != nil {
			a.log.Warn("tasks", "actor-tracking: credits lookup failed", logging.F("actor", s.ActorName), logging.F("error", err.Error()))
			continue
		}
		if err := database.TouchActorSubscription(a.db.Raw(), s.ID); err != nil {
			a.log.Warn("tasks", "actor-tracking: touching subscription failed", logging.F("actor", s.ActorName), logging.F("error", err.Error()))
		}
		report(int(100*(i+1)/len(subs)), fmt.Sprintf("%s has %d credits on record", s.ActorName, len(credits)))
	}
	return nil
}

// taskReprocessReviewItems re-runs the cast processor over every item
// currently below the quality-review threshold, giving a
// translation-cache fill or an identity-map fix a chance to raise the
// score on the next pass.
func (a *app) taskReprocessReviewItems(ctx context.Context, report tasks.ReportFunc) error {
	records, err := database.BelowReviewThreshold(a.db.Raw(), a.cfg.Override.ReviewThreshold)
	if err != nil {
		return fmt.Errorf("listing below-review items: %w", err)
	}
	if len(records) == 0 {
		report(100, "reprocess review items: nothing below threshold")
		return nil
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := a.pipeline.ProcessItem(ctx, rec.ItemID); err != nil {
			a.log.Warn("tasks", "reprocess-review-items: item failed", logging.F("item_id", rec.ItemID), logging.F("error", err.Error()))
		}
		report(int(100*(i+1)/len(records)), fmt.Sprintf("reprocessed %s", rec.ItemName))
	}
	return nil
}
