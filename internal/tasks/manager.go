package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/hbq0405/emby-actor-processor/internal/activity"
	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/logging"
	"github.com/hbq0405/emby-actor-processor/internal/metrics"
)

// ErrBusy is returned by Submit when a task is already running — the
// manager is single-slot.
var ErrBusy = errors.New("tasks: a task is already running")

// ErrUnknownKey is returned by Submit for a key nothing is registered under.
var ErrUnknownKey = errors.New("tasks: unknown task key")

const maxRecentLogs = 50

type runState struct {
	key      Key
	runID    string
	cancel   context.CancelFunc
	progress int
	message  string
	logs     []string
}

// Manager owns the asynq client/server pair and the single in-flight
// run's state, mirroring CineVault's Queue wrapper but narrowed to one
// concurrent task by construction (Concurrency: 1, one queue).
type Manager struct {
	db       *database.DB
	activity *activity.Logger
	log      *logging.Logger

	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	inspector *asynq.Inspector

	registry map[Key]Func

	mu    sync.Mutex
	state *runState
}

func New(db *database.DB, act *activity.Logger, log *logging.Logger, redisAddr string) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	return &Manager{
		db:       db,
		activity: act,
		log:      log,
		client:   asynq.NewClient(redisOpt),
		server: asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: 1,
			Queues:      map[string]int{"default": 1},
		}),
		mux:       asynq.NewServeMux(),
		inspector: asynq.NewInspector(redisOpt),
		registry:  make(map[Key]Func),
	}
}

// Register binds a task key to its implementation. Must be called
// before Start.
func (m *Manager) Register(key Key, fn Func) {
	m.registry[key] = fn
	m.mux.HandleFunc(string(key), m.handle(key))
}

// Start launches the asynq worker pool in the background. The
// returned server keeps running until ctx is done.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.server.Start(m.mux); err != nil {
		return fmt.Errorf("starting task queue worker: %w", err)
	}
	go func() {
		<-ctx.Done()
		m.server.Shutdown()
	}()
	return nil
}

func (m *Manager) Close() {
	m.client.Close()
	m.inspector.Close()
}

type submitPayload struct {
	RunID string `json:"run_id"`
}

// Submit enqueues key for execution, returning its run id. Returns
// ErrBusy if a task is already in flight.
func (m *Manager) Submit(key Key) (string, error) {
	if _, ok := m.registry[key]; !ok {
		return "", ErrUnknownKey
	}

	m.mu.Lock()
	if m.state != nil {
		m.mu.Unlock()
		return "", ErrBusy
	}
	runID := uuid.New().String()
	m.state = &runState{key: key, runID: runID}
	m.mu.Unlock()

	payload, err := json.Marshal(submitPayload{RunID: runID})
	if err != nil {
		m.clearState()
		return "", err
	}

	task := asynq.NewTask(string(key), payload, asynq.TaskID(runID), asynq.MaxRetry(0))
	if _, err := m.client.Enqueue(task, asynq.Queue("default")); err != nil {
		m.clearState()
		return "", fmt.Errorf("enqueuing task %s: %w", key, err)
	}

	if err := database.InsertTaskRun(m.db.Raw(), runID, string(key)); err != nil {
		m.log.Warn("tasks", "recording task run start failed", logging.F("run_id", runID), logging.F("error", err.Error()))
	}
	if m.activity != nil {
		_ = m.activity.Log(activity.Entry{Action: activity.ActionTaskStarted, TaskKey: string(key)})
	}
	return runID, nil
}

// Stop cancels the in-flight run, if any. Cooperative: the task body
// must poll ctx at loop boundaries to actually exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil && m.state.cancel != nil {
		m.state.cancel()
	}
}

// GetStatus returns a snapshot of the currently running task, or
// Status{Running: false} if idle.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return Status{Running: false}
	}
	logs := make([]string, len(m.state.logs))
	copy(logs, m.state.logs)
	return Status{
		Running:    true,
		Key:        m.state.key,
		RunID:      m.state.runID,
		Progress:   m.state.progress,
		Message:    m.state.message,
		RecentLogs: logs,
	}
}

func (m *Manager) clearState() {
	m.mu.Lock()
	m.state = nil
	m.mu.Unlock()
}

// handle wraps a registered Func as an asynq handler: it wires up
// cooperative cancellation, progress reporting, task_runs persistence
// and activity logging around one run.
func (m *Manager) handle(key Key) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload submitPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decoding task payload: %w", err)
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		metrics.TaskManagerBusy.Set(1)
		defer metrics.TaskManagerBusy.Set(0)
		started := time.Now()

		m.mu.Lock()
		if m.state == nil || m.state.runID != payload.RunID {
			m.state = &runState{key: key, runID: payload.RunID}
		}
		m.state.cancel = cancel
		m.mu.Unlock()

		report := func(progress int, message string) {
			m.mu.Lock()
			if m.state != nil {
				m.state.progress = progress
				m.state.message = message
				m.state.logs = append(m.state.logs, message)
				if len(m.state.logs) > maxRecentLogs {
					m.state.logs = m.state.logs[len(m.state.logs)-maxRecentLogs:]
				}
			}
			m.mu.Unlock()
			if err := database.UpdateTaskRunProgress(m.db.Raw(), payload.RunID, progress, message); err != nil {
				m.log.Warn("tasks", "updating task run progress failed", logging.F("run_id", payload.RunID), logging.F("error", err.Error()))
			}
		}

		fn := m.registry[key]
		runErr := fn(runCtx, report)

		succeeded := runErr == nil
		finalProgress, finalMessage := 100, "completed"
		outcome := "ok"
		if !succeeded {
			finalProgress, finalMessage = -1, runErr.Error()
			outcome = "failed"
		}
		metrics.TaskRunDuration.WithLabelValues(string(key), outcome).Observe(time.Since(started).Seconds())
		if err := database.FinishTaskRun(m.db.Raw(), payload.RunID, finalProgress, finalMessage, succeeded); err != nil {
			m.log.Warn("tasks", "finishing task run failed", logging.F("run_id", payload.RunID), logging.F("error", err.Error()))
		}
		if m.activity != nil {
			entry := activity.Entry{Action: activity.ActionTaskFinished, TaskKey: string(key), Message: finalMessage}
			if !succeeded {
				entry.Error = runErr.Error()
			}
			_ = m.activity.Log(entry)
		}

		m.clearState()
		return runErr
	}
}
