// Package webhook implements the Webhook Router (C13): it translates
// Emby's webhook-plugin events into item-added and image-updated
// handling. It is deliberately not serialized against a running
// library scan — each event runs inline against its own item id,
// independent of the task manager's single slot.
package webhook

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/hbq0405/emby-actor-processor/internal/activity"
	"github.com/hbq0405/emby-actor-processor/internal/collections"
	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/embyclient"
	"github.com/hbq0405/emby-actor-processor/internal/logging"
	"github.com/hbq0405/emby-actor-processor/internal/metrics"
	"github.com/hbq0405/emby-actor-processor/internal/override"
	"github.com/hbq0405/emby-actor-processor/internal/pipeline"
	"github.com/hbq0405/emby-actor-processor/internal/tasks"
	"github.com/hbq0405/emby-actor-processor/internal/webauth"
)

// Event notification types emitted by the Emby webhook plugin that
// this router acts on; every other type is accepted and ignored so the
// plugin never sees a retry-triggering error response.
const (
	EventItemAdded    = "library.new"
	EventImageUpdated = "item.image.update"
)

// Event is the normalized payload the Emby webhook plugin posts.
type Event struct {
	Event    string `json:"Event"`
	ItemID   string `json:"ItemId"`
	ItemType string `json:"ItemType"`
	Name     string `json:"Name"`
	ImageTag string `json:"ImageTag,omitempty"`
	ImageKind string `json:"ImageKind,omitempty"`
}

// ItemFetcher is the subset of *embyclient.Client the router needs
// beyond what Pipeline already calls.
type ItemFetcher interface {
	GetItemDetails(itemID string) (*embyclient.Item, error)
	AppendItemToCollection(collectionID string, itemIDs []string) error
}

// FilterMatcher resolves which filter-sourced collections an item's
// mirrored metadata currently matches (C14).
type FilterMatcher interface {
	MatchingFilterCollections(m database.MediaMetadata) ([]database.CustomCollection, error)
}

// Auth selects how /webhook authenticates inbound requests: a shared
// secret compared in constant time, or a signed JWT, per the operator
// choice DESIGN.md records for this open question.
type Auth struct {
	Secret string
	JWT    bool
}

// StatusProvider is the subset of *tasks.Manager the /status endpoint
// reports on.
type StatusProvider interface {
	GetStatus() tasks.Status
}

// Router holds the collaborators needed to act on one webhook event.
type Router struct {
	auth         Auth
	db           *database.DB
	emby         ItemFetcher
	pipeline     *pipeline.Pipeline
	writer       *override.Writer
	filters      FilterMatcher
	activity     *activity.Logger
	status       StatusProvider
	passwordHash string
	log          *logging.Logger
}

func New(auth Auth, db *database.DB, emby ItemFetcher, pl *pipeline.Pipeline, writer *override.Writer, filters FilterMatcher, act *activity.Logger, log *logging.Logger) *Router {
	if log == nil {
		log = logging.Nop()
	}
	return &Router{auth: auth, db: db, emby: emby, pipeline: pl, writer: writer, filters: filters, activity: act, log: log}
}

// WithStatus attaches the task manager status endpoint, gated by
// passwordHash (a bcrypt hash from config.Config.Password) when
// non-empty. Optional — a Router with no status provider just never
// mounts GET /status.
func (r *Router) WithStatus(status StatusProvider, passwordHash string) *Router {
	r.status = status
	r.passwordHash = passwordHash
	return r
}

// Handler returns the chi mux mounting POST /webhook and, when
// WithStatus was called, GET /status. CORS is permissive and read-only
// (GET only) so the admin surface's own dashboard, served from a
// different origin/port, can poll /status directly from the browser.
func (r *Router) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Authorization"},
		MaxAge:         300,
	}))
	mux.Post("/webhook", r.handle)
	if r.status != nil {
		mux.Get("/status", r.handleStatus)
	}
	return mux
}

func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) {
	if r.passwordHash != "" {
		_, pass, ok := req.BasicAuth()
		if !ok || !webauth.CheckPassword(r.passwordHash, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="emby-actor-processor"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(r.status.GetStatus())
}

func (r *Router) handle(w http.ResponseWriter, req *http.Request) {
	if !r.authenticate(req) {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "false").Inc()
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var event Event
	if err := json.NewDecoder(req.Body).Decode(&event); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	metrics.WebhookEventsTotal.WithLabelValues(event.Event, "true").Inc()

	switch event.Event {
	case EventItemAdded:
		r.handleItemAdded(req.Context(), event)
	case EventImageUpdated:
		r.handleImageUpdated(event)
	default:
		// Unrecognized event types are accepted and ignored so the
		// plugin doesn't retry delivery forever.
	}

	w.WriteHeader(http.StatusOK)
}

func (r *Router) authenticate(req *http.Request) bool {
	if r.auth.JWT {
		return r.authenticateJWT(req)
	}
	if r.auth.Secret == "" {
		return true
	}
	provided := strings.TrimSpace(req.Header.Get("X-Webhook-Secret"))
	if provided == "" {
		provided = strings.TrimSpace(req.URL.Query().Get("secret"))
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(r.auth.Secret)) == 1
}

func (r *Router) authenticateJWT(req *http.Request) bool {
	raw := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(r.auth.Secret), nil
	})
	return err == nil && token.Valid
}

// handleItemAdded handles the item-added event: fetch
// details, optionally seed the watchlist, run the item through C9/C4/C10
// via Pipeline, then consult the filter-collection engine and append
// the item to any collection whose predicate matches.
func (r *Router) handleItemAdded(ctx context.Context, event Event) {
	item, err := r.emby.GetItemDetails(event.ItemID)
	if err != nil {
		r.logActivity(activity.ActionItemFailed, event.ItemID, event.Name, fmt.Sprintf("webhook item-added: fetch failed: %v", err))
		return
	}

	if item.Type == "Series" {
		tmdbID, _ := strconv.ParseInt(item.ProviderIDs.Tmdb, 10, 64)
		entry := database.WatchlistEntry{
			ItemID: item.ID, ItemName: item.Name, Status: database.WatchlistWatching,
		}
		if tmdbID > 0 {
			entry.TMDbID = sql.NullInt64{Int64: tmdbID, Valid: true}
		}
		if err := database.AddToWatchlist(r.db.Raw(), entry); err != nil {
			r.log.Warn("webhook", "adding series to watchlist failed", logging.F("item_id", item.ID), logging.F("error", err.Error()))
		}
	}

	result, err := r.pipeline.ProcessItem(ctx, item.ID)
	if err != nil {
		r.logActivity(activity.ActionItemFailed, item.ID, item.Name, fmt.Sprintf("webhook item-added: %v", err))
		return
	}
	score := result.QualityScore
	r.logActivityScored(item.ID, item.Name, score)

	r.appendToMatchingCollections(item)
}

func (r *Router) appendToMatchingCollections(item *embyclient.Item) {
	if r.filters == nil {
		return
	}
	tmdbID, err := strconv.ParseInt(item.ProviderIDs.Tmdb, 10, 64)
	if err != nil || tmdbID <= 0 {
		return
	}
	mirrored, err := database.AllMediaMetadata(r.db.Raw(), item.Type)
	if err != nil {
		return
	}
	var m database.MediaMetadata
	found := false
	for _, candidate := range mirrored {
		if candidate.TMDbID == tmdbID {
			m = candidate
			found = true
			break
		}
	}
	if !found {
		return
	}

	matches, err := r.filters.MatchingFilterCollections(m)
	if err != nil {
		r.log.Warn("webhook", "matching filter collections failed", logging.F("item_id", item.ID), logging.F("error", err.Error()))
		return
	}
	for _, c := range matches {
		if !c.EmbyCollectionID.Valid || c.EmbyCollectionID.String == "" {
			continue
		}
		if err := r.emby.AppendItemToCollection(c.EmbyCollectionID.String, []string{item.ID}); err != nil {
			r.log.Warn("webhook", "appending item to collection failed", logging.F("item_id", item.ID), logging.F("collection", c.Name), logging.F("error", err.Error()))
		}
	}
}

// handleImageUpdated handles the image-updated event:
// re-run the image-sync path of C10, tagging the activity entry with
// which image kind changed.
func (r *Router) handleImageUpdated(event Event) {
	item, err := r.emby.GetItemDetails(event.ItemID)
	if err != nil {
		r.logActivity(activity.ActionItemFailed, event.ItemID, event.Name, fmt.Sprintf("webhook image-updated: fetch failed: %v", err))
		return
	}
	tmdbID, err := strconv.ParseInt(item.ProviderIDs.Tmdb, 10, 64)
	if err != nil || tmdbID <= 0 {
		return
	}

	kind := override.KindMovie
	if item.Type == "Series" {
		kind = override.KindTV
	}
	targets := override.PrimaryImageTargets(item.ID)
	if err := r.writer.SyncImages(kind, tmdbID, targets); err != nil {
		r.log.Warn("webhook", "image sync failed", logging.F("item_id", item.ID), logging.F("kind", event.ImageKind), logging.F("error", err.Error()))
		return
	}
	r.logActivity(activity.ActionItemProcessed, item.ID, item.Name, "webhook image-updated: "+event.ImageKind)
}

func (r *Router) logActivity(action activity.Action, itemID, itemName, message string) {
	if r.activity == nil {
		return
	}
	entry := activity.Entry{Action: action, ItemID: itemID, ItemName: itemName, Message: message}
	if action == activity.ActionItemFailed {
		entry.Error = message
	}
	_ = r.activity.Log(entry)
}

func (r *Router) logActivityScored(itemID, itemName string, score float64) {
	if r.activity == nil {
		return
	}
	s := score
	_ = r.activity.Log(activity.Entry{
		Action: activity.ActionItemProcessed, ItemID: itemID, ItemName: itemName, Score: &s,
	})
}
