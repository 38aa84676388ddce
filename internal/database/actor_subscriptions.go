package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ActorSubscription is one row of actor_subscriptions: an actor tracked
// for new releases by the actor-tracking task.
type ActorSubscription struct {
	ID            int64
	TMDbPersonID  string
	ActorName     string
	ConfigTypes   []string
	LastCheckedAt sql.NullTime
	CreatedAt     time.Time
}

// AddActorSubscription inserts or no-ops if the TMDb person is already
// subscribed.
func AddActorSubscription(db *sql.DB, tmdbPersonID, actorName string, configTypes []string) error {
	if len(configTypes) == 0 {
		configTypes = []string{"Movie", "Series"}
	}
	b, err := json.Marshal(configTypes)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		INSERT INTO actor_subscriptions (tmdb_person_id, actor_name, config_types)
		VALUES (?, ?, ?)
		ON CONFLICT(tmdb_person_id) DO NOTHING
	`, tmdbPersonID, actorName, string(b))
	if err != nil {
		return fmt.Errorf("subscribing to actor %s: %w", actorName, err)
	}
	return nil
}

// ListActorSubscriptions returns every tracked actor.
func ListActorSubscriptions(db *sql.DB) ([]ActorSubscription, error) {
	rows, err := db.Query(`SELECT id, tmdb_person_id, actor_name, config_types, last_checked_at, created_at FROM actor_subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("listing actor subscriptions: %w", err)
	}
	defer rows.Close()

	var out []ActorSubscription
	for rows.Next() {
		var a ActorSubscription
		var types string
		if err := rows.Scan(&a.ID, &a.TMDbPersonID, &a.ActorName, &types, &a.LastCheckedAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ConfigTypes = unmarshalList(types)
		out = append(out, a)
	}
	return out, rows.Err()
}

// TouchActorSubscription bumps last_checked_at after a tracking pass.
func TouchActorSubscription(db *sql.DB, id int64) error {
	_, err := db.Exec(`UPDATE actor_subscriptions SET last_checked_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("touching actor subscription %d: %w", id, err)
	}
	return nil
}
