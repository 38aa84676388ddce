package collections

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/logging"
)

// Subscriber requests an external download/subscribe for a released
// title that's missing from the library.
type Subscriber interface {
	Subscribe(ctx context.Context, tmdbID int64, itemType string) error
}

// AutoSubscribe walks every has_missing collection and subscribes to
// members whose release date has passed, flipping them to subscribed
// and re-deriving collection health.
func (e *Engine) AutoSubscribe(ctx context.Context, sub Subscriber, report func(progress int, message string)) error {
	colls, err := database.CollectionsByHealth(e.db.Raw(), database.HealthHasMissing)
	if err != nil {
		return fmt.Errorf("listing collections with missing members: %w", err)
	}

	today := time.Now().Format("2006-01-02")
	for i, c := range colls {
		if err := ctx.Err(); err != nil {
			return err
		}

		var def ListDefinition
		itemType := ""
		if err := json.Unmarshal([]byte(c.DefinitionJSON), &def); err == nil {
			itemType = def.ItemType
		}

		members, err := database.CollectionMembers(e.db.Raw(), c.ID)
		if err != nil {
			e.log.Warn("collections", "auto-subscribe: loading members failed", logging.F("collection", c.Name), logging.F("error", err.Error()))
			continue
		}

		subscribedAny := false
		stillMissing := false
		for _, m := range members {
			if m.Status != database.MemberMissing {
				continue
			}
			if !m.ReleaseDate.Valid || m.ReleaseDate.String > today {
				stillMissing = true
				continue
			}
			if err := sub.Subscribe(ctx, m.TMDbID, itemType); err != nil {
				e.log.Warn("collections", "auto-subscribe: subscribe call failed",
					logging.F("collection", c.Name), logging.F("tmdb_id", m.TMDbID), logging.F("error", err.Error()))
				stillMissing = true
				continue
			}
			if err := e.db.WithTx(func(tx *sql.Tx) error {
				return database.SetCollectionMemberStatus(tx, c.ID, m.TMDbID, database.MemberSubscribed)
			}); err != nil {
				e.log.Warn("collections", "auto-subscribe: recording subscribed status failed",
					logging.F("collection", c.Name), logging.F("tmdb_id", m.TMDbID), logging.F("error", err.Error()))
				continue
			}
			subscribedAny = true
		}

		if subscribedAny {
			health := database.HealthOK
			if stillMissing {
				health = database.HealthHasMissing
			}
			if err := database.UpdateCollectionSnapshot(e.db.Raw(), c.ID, c.GeneratedMediaInfoJSON, health, c.EmbyCollectionID.String); err != nil {
				e.log.Warn("collections", "auto-subscribe: updating health failed", logging.F("collection", c.Name), logging.F("error", err.Error()))
			}
		}

		if report != nil {
			report(int(100*(i+1)/len(colls)), fmt.Sprintf("checked %q", c.Name))
		}
	}
	return nil
}
