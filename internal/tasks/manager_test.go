package tasks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/hbq0405/emby-actor-processor/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	db := openTestDB(t)
	return New(db, nil, nil, "127.0.0.1:0")
}

func handleTask(t *testing.T, m *Manager, key Key, runID string) func(context.Context, *asynq.Task) error {
	t.Helper()
	payload, err := json.Marshal(submitPayload{RunID: runID})
	require.NoError(t, err)
	require.NoError(t, database.InsertTaskRun(m.db.Raw(), runID, string(key)))
	task := asynq.NewTask(string(key), payload)
	return func(ctx context.Context, _ *asynq.Task) error {
		return m.handle(key)(ctx, task)
	}
}

func TestSubmit_UnknownKeyReturnsError(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Submit(Key("not-registered"))
	require.ErrorIs(t, err, ErrUnknownKey)
}

func TestHandle_SuccessRecordsCompletion(t *testing.T) {
	m := newTestManager(t)
	m.Register(KeyFullScan, func(ctx context.Context, report ReportFunc) error {
		report(50, "halfway")
		return nil
	})

	run := handleTask(t, m, KeyFullScan, "run-1")
	require.NoError(t, run(context.Background(), nil))

	require.False(t, m.GetStatus().Running)

	runs, err := database.RecentTaskRuns(m.db.Raw(), string(KeyFullScan), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, 100, runs[0].Progress)
	require.True(t, runs[0].Succeeded.Valid && runs[0].Succeeded.Bool)
}

func TestHandle_FailureRecordsNegativeProgress(t *testing.T) {
	m := newTestManager(t)
	m.Register(KeyActorCleanup, func(ctx context.Context, report ReportFunc) error {
		return errShortTest
	})

	run := handleTask(t, m, KeyActorCleanup, "run-2")
	err := run(context.Background(), nil)
	require.Error(t, err)

	runs, err := database.RecentTaskRuns(m.db.Raw(), string(KeyActorCleanup), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, -1, runs[0].Progress)
	require.True(t, runs[0].Succeeded.Valid && !runs[0].Succeeded.Bool)
}

func TestStop_CancelsRunningTaskCooperatively(t *testing.T) {
	m := newTestManager(t)
	started := make(chan struct{})
	m.Register(KeyProcessWatchlist, func(ctx context.Context, report ReportFunc) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	run := handleTask(t, m, KeyProcessWatchlist, "run-3")
	done := make(chan error, 1)
	go func() { done <- run(context.Background(), nil) }()

	<-started
	m.Stop()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("task did not observe cancellation")
	}
}

func TestGetStatus_IdleWhenNothingRunning(t *testing.T) {
	m := newTestManager(t)
	require.False(t, m.GetStatus().Running)
}

var errShortTest = shortError("boom")

type shortError string

func (e shortError) Error() string { return string(e) }
