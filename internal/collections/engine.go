package collections

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/logging"
)

// ListProvider resolves a list-sourced collection's external definition
// to the TMDb ids it currently names.
type ListProvider interface {
	ResolveList(ctx context.Context, provider, listID string) ([]int64, error)
}

// EmbyCollections is the subset of *embyclient.Client the engine needs
// to materialize a collection on the media server.
type EmbyCollections interface {
	CreateOrUpdateCollection(name string, tmdbIDs []string, itemType string) (string, []string, error)
}

// Engine refreshes custom_collections rows, both list-sourced and
// filter-sourced, against Emby's native collection objects.
type Engine struct {
	db       *database.DB
	provider ListProvider
	emby     EmbyCollections
	log      *logging.Logger
}

func New(db *database.DB, provider ListProvider, emby EmbyCollections, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Nop()
	}
	return &Engine{db: db, provider: provider, emby: emby, log: log}
}

// RefreshAll refreshes every defined collection, logging and
// continuing past a single collection's failure so one bad definition
// doesn't stop the rest of the sweep.
func (e *Engine) RefreshAll(ctx context.Context, report func(progress int, message string)) error {
	colls, err := database.AllCustomCollections(e.db.Raw())
	if err != nil {
		return fmt.Errorf("listing custom collections: %w", err)
	}

	for i, c := range colls {
		if err := ctx.Err(); err != nil {
			return err
		}
		var refreshErr error
		switch c.Kind {
		case database.CollectionList:
			refreshErr = e.RefreshListCollection(ctx, c)
		case database.CollectionFilter:
			refreshErr = e.RefreshFilterCollection(ctx, c)
		default:
			refreshErr = fmt.Errorf("unknown collection kind %q", c.Kind)
		}
		if refreshErr != nil {
			e.log.Warn("collections", "refresh failed", logging.F("collection", c.Name), logging.F("error", refreshErr.Error()))
		}
		if report != nil {
			report(int(100*(i+1)/len(colls)), fmt.Sprintf("refreshed %q", c.Name))
		}
	}
	return nil
}

// RefreshByKind refreshes only collections of the given kind. The task
// manager registers this under two separate keys — "refresh-collections"
// for list-sourced (native TMDb collection) entries and
// "custom-collections" for filter-sourced ones.
func (e *Engine) RefreshByKind(ctx context.Context, kind database.CollectionKind, report func(progress int, message string)) error {
	colls, err := database.AllCustomCollections(e.db.Raw())
	if err != nil {
		return fmt.Errorf("listing custom collections: %w", err)
	}

	var filtered []database.CustomCollection
	for _, c := range colls {
		if c.Kind == kind {
			filtered = append(filtered, c)
		}
	}

	for i, c := range filtered {
		if err := ctx.Err(); err != nil {
			return err
		}
		var refreshErr error
		switch kind {
		case database.CollectionList:
			refreshErr = e.RefreshListCollection(ctx, c)
		case database.CollectionFilter:
			refreshErr = e.RefreshFilterCollection(ctx, c)
		}
		if refreshErr != nil {
			e.log.Warn("collections", "refresh failed", logging.F("collection", c.Name), logging.F("error", refreshErr.Error()))
		}
		if report != nil {
			report(int(100*(i+1)/len(filtered)), fmt.Sprintf("refreshed %q", c.Name))
		}
	}
	return nil
}

// RefreshListCollection handles the list-sourced branch of a refresh:
// resolve the external list, create/update the server collection,
// compute per-member status, and preserve prior `subscribed` entries.
func (e *Engine) RefreshListCollection(ctx context.Context, c database.CustomCollection) error {
	var def ListDefinition
	if err := json.Unmarshal([]byte(c.DefinitionJSON), &def); err != nil {
		return fmt.Errorf("parsing list definition for %q: %w", c.Name, err)
	}

	tmdbIDs, err := e.provider.ResolveList(ctx, def.Provider, def.ListID)
	if err != nil {
		return fmt.Errorf("resolving list %s/%s: %w", def.Provider, def.ListID, err)
	}

	priorSubscribed := make(map[int64]bool)
	if prior, err := database.CollectionMembers(e.db.Raw(), c.ID); err == nil {
		for _, m := range prior {
			if m.Status == database.MemberSubscribed {
				priorSubscribed[m.TMDbID] = true
			}
		}
	}

	idStrings := make([]string, len(tmdbIDs))
	for i, id := range tmdbIDs {
		idStrings[i] = strconv.FormatInt(id, 10)
	}

	embyCollectionID, matchedStrings, err := e.emby.CreateOrUpdateCollection(def.Name, idStrings, def.ItemType)
	if err != nil {
		return fmt.Errorf("creating/updating emby collection %q: %w", def.Name, err)
	}
	matched := make(map[int64]bool, len(matchedStrings))
	for _, s := range matchedStrings {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			matched[id] = true
		}
	}

	// RefreshListCollection doesn't know release dates on its own; those
	// are looked up from media_metadata when the title is already
	// mirrored locally. A title outside the library is unreleased only
	// when a known release date lies after today; with no known date it
	// is recorded as missing.
	today := time.Now().Format("2006-01-02")
	members := make([]database.CollectionInfo, 0, len(tmdbIDs))
	hasMissing, hasUnreleased := false, false

	for _, id := range tmdbIDs {
		status := database.MemberMissing
		releaseDate := e.lookupReleaseDate(id, def.ItemType)

		switch {
		case matched[id]:
			status = database.MemberInLibrary
		case priorSubscribed[id]:
			status = database.MemberSubscribed
		case releaseDate != "" && releaseDate > today:
			status = database.MemberUnreleased
		}

		switch status {
		case database.MemberMissing:
			hasMissing = true
		case database.MemberUnreleased:
			hasUnreleased = true
		}

		members = append(members, database.CollectionInfo{
			CollectionID: c.ID,
			TMDbID:       id,
			Status:       status,
			ReleaseDate:  sql.NullString{String: releaseDate, Valid: releaseDate != ""},
		})
	}

	health := database.HealthOK
	if hasMissing {
		health = database.HealthHasMissing
	} else if hasUnreleased {
		health = database.HealthUnreleased
	}

	mediaInfoJSON, err := json.Marshal(members)
	if err != nil {
		return err
	}

	return e.db.WithTx(func(tx *sql.Tx) error {
		if err := database.ReplaceCollectionInfo(tx, c.ID, members); err != nil {
			return err
		}
		return database.UpdateCollectionSnapshot(e.db.Raw(), c.ID, string(mediaInfoJSON), health, embyCollectionID)
	})
}

// MatchingFilterCollections returns every filter-sourced collection
// whose predicate currently matches m. The webhook router uses this
// to append a newly-added item to the collections it belongs to
// without waiting for the next scheduled refresh.
func (e *Engine) MatchingFilterCollections(m database.MediaMetadata) ([]database.CustomCollection, error) {
	colls, err := database.AllCustomCollections(e.db.Raw())
	if err != nil {
		return nil, fmt.Errorf("listing custom collections: %w", err)
	}

	var matched []database.CustomCollection
	for _, c := range colls {
		if c.Kind != database.CollectionFilter {
			continue
		}
		var def FilterDefinition
		if err := json.Unmarshal([]byte(c.DefinitionJSON), &def); err != nil {
			e.log.Warn("collections", "skipping collection with unparsable definition", logging.F("collection", c.Name))
			continue
		}
		if def.ItemType != "" && def.ItemType != m.ItemType {
			continue
		}
		if def.Predicate.Match(m) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func (e *Engine) lookupReleaseDate(tmdbID int64, itemType string) string {
	all, err := database.AllMediaMetadata(e.db.Raw(), itemType)
	if err != nil {
		return ""
	}
	for _, m := range all {
		if m.TMDbID == tmdbID {
			return m.ReleaseDate
		}
	}
	return ""
}

// RefreshFilterCollection handles the filter-sourced branch of a
// refresh: resolve the predicate tree against media_metadata, no
// per-member status tracked.
func (e *Engine) RefreshFilterCollection(ctx context.Context, c database.CustomCollection) error {
	var def FilterDefinition
	if err := json.Unmarshal([]byte(c.DefinitionJSON), &def); err != nil {
		return fmt.Errorf("parsing filter definition for %q: %w", c.Name, err)
	}

	all, err := database.AllMediaMetadata(e.db.Raw(), def.ItemType)
	if err != nil {
		return fmt.Errorf("loading media metadata for %q: %w", c.Name, err)
	}

	var matchedIDs []string
	for _, m := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if def.Predicate.Match(m) {
			matchedIDs = append(matchedIDs, strconv.FormatInt(m.TMDbID, 10))
		}
	}

	embyCollectionID, _, err := e.emby.CreateOrUpdateCollection(def.Name, matchedIDs, def.ItemType)
	if err != nil {
		return fmt.Errorf("creating/updating emby collection %q: %w", def.Name, err)
	}

	mediaInfoJSON, err := json.Marshal(matchedIDs)
	if err != nil {
		return err
	}
	return database.UpdateCollectionSnapshot(e.db.Raw(), c.ID, string(mediaInfoJSON), database.HealthOK, embyCollectionID)
}
