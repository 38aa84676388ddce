// Package tasks implements the Task Manager (C12): a single-slot,
// asynq-backed job queue over a closed set of background task keys,
// plus cron-scheduled submission.
package tasks

import "context"

// Key identifies a registered background task. The set is closed: the
// manager refuses to enqueue a key nothing is registered under.
type Key string

const (
	KeyFullScan             Key = "full-scan"
	KeyFullScanForce        Key = "full-scan-force"
	KeyPopulateMetadata     Key = "populate-metadata"
	KeySyncPersonMap        Key = "sync-person-map"
	KeyProcessWatchlist     Key = "process-watchlist"
	KeyEnrichAliases        Key = "enrich-aliases"
	KeyActorCleanup         Key = "actor-cleanup"
	KeyRefreshCollections   Key = "refresh-collections"
	KeyAutoSubscribe        Key = "auto-subscribe"
	KeyActorTracking        Key = "actor-tracking"
	KeyCustomCollections    Key = "custom-collections"
	KeyReprocessReviewItems Key = "reprocess-review-items"
)

// Func is a registered task body. report lets it publish progress and
// a human-readable message; ctx is canceled on Stop() or when asynq's
// own task context ends (SchedulerConfig.BudgetMillis is not applied)
// and must be polled at loop boundaries.
type Func func(ctx context.Context, report ReportFunc) error

// ReportFunc publishes progress in [0,100], or -1 to signal failure
// mid-run.
type ReportFunc func(progress int, message string)

// Status is the manager's current snapshot, returned by GetStatus.
type Status struct {
	Running    bool
	Key        Key
	RunID      string
	Progress   int
	Message    string
	RecentLogs []string
}
