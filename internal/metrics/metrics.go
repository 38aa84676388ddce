// Package metrics exposes prometheus collectors for the cast
// processor, translation cache, and task manager, served on the same
// kind of standalone listener cartographus uses for its own /metrics
// endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ItemsProcessed counts cast-processor runs by item type and outcome
	// ("ok", "failed", "needs_review").
	ItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emby_actor_items_processed_total",
			Help: "Total items run through the cast processor, by item type and outcome.",
		},
		[]string{"item_type", "outcome"},
	)

	// CastQualityScore observes the cast quality score distribution.
	CastQualityScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "emby_actor_cast_quality_score",
			Help:    "Quality score (0-10) computed per processed item.",
			Buckets: []float64{0, 2, 4, 5, 6, 7, 8, 9, 10},
		},
	)

	// TranslationCacheHits/Misses track C2's hit rate, split by
	// positive/negative cache hit vs. a live adapter call.
	TranslationCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emby_actor_translation_cache_hits_total",
			Help: "Translation cache lookups, by result (positive, negative, miss).",
		},
		[]string{"result"},
	)

	TranslationEngineCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emby_actor_translation_engine_calls_total",
			Help: "Outbound translator calls, by engine and success.",
		},
		[]string{"engine", "success"},
	)

	// TaskRunDuration observes wall-clock time per task key.
	TaskRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "emby_actor_task_run_duration_seconds",
			Help:    "Task manager run duration in seconds, by task key and outcome.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s .. ~4.5h
		},
		[]string{"task_key", "outcome"},
	)

	// TaskManagerBusy is 1 while a task is in flight, 0 when idle —
	// lets an operator alert on "no task has run in N hours".
	TaskManagerBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "emby_actor_task_manager_busy",
			Help: "1 if a task is currently running, 0 if the manager is idle.",
		},
	)

	// IdentityMapRows tracks person_identity_map size for capacity
	// planning and to catch a merge bug that stops deleting rows.
	IdentityMapRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "emby_actor_identity_map_rows",
			Help: "Current row count of person_identity_map.",
		},
	)

	// WebhookEventsTotal counts inbound webhook events by type and
	// whether they were authenticated.
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emby_actor_webhook_events_total",
			Help: "Inbound webhook events, by event type and auth result.",
		},
		[]string{"event", "authenticated"},
	)
)

// Handler returns the /metrics HTTP handler for mounting on the
// configured listener address.
func Handler() http.Handler {
	return promhttp.Handler()
}
