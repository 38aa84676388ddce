package database

import (
	"database/sql"
	"fmt"
	"time"
)

// TaskRun is one row of task_runs: supplemental history behind
// internal/tasks's in-memory status surface, feeding `embyactor task history`.
type TaskRun struct {
	ID         string
	TaskKey    string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Progress   int
	Message    string
	Succeeded  sql.NullBool
}

// InsertTaskRun records a task starting.
func InsertTaskRun(db *sql.DB, id, taskKey string) error {
	_, err := db.Exec(`INSERT INTO task_runs (id, task_key, started_at, progress) VALUES (?, ?, CURRENT_TIMESTAMP, 0)`, id, taskKey)
	if err != nil {
		return fmt.Errorf("inserting task run %s: %w", id, err)
	}
	return nil
}

// UpdateTaskRunProgress records an in-progress status update.
func UpdateTaskRunProgress(db *sql.DB, id string, progress int, message string) error {
	_, err := db.Exec(`UPDATE task_runs SET progress = ?, message = ? WHERE id = ?`, progress, message, id)
	if err != nil {
		return fmt.Errorf("updating task run %s: %w", id, err)
	}
	return nil
}

// FinishTaskRun records the terminal state.
func FinishTaskRun(db *sql.DB, id string, progress int, message string, succeeded bool) error {
	_, err := db.Exec(`
		UPDATE task_runs SET progress = ?, message = ?, succeeded = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?
	`, progress, message, succeeded, id)
	if err != nil {
		return fmt.Errorf("finishing task run %s: %w", id, err)
	}
	return nil
}

// RecentTaskRuns returns the most recent runs for a task key, newest
// first.
func RecentTaskRuns(db *sql.DB, taskKey string, limit int) ([]TaskRun, error) {
	rows, err := db.Query(`
		SELECT id, task_key, started_at, finished_at, progress, message, succeeded
		FROM task_runs WHERE task_key = ? ORDER BY started_at DESC LIMIT ?
	`, taskKey, limit)
	if err != nil {
		return nil, fmt.Errorf("listing task runs for %s: %w", taskKey, err)
	}
	defer rows.Close()

	var out []TaskRun
	for rows.Next() {
		var r TaskRun
		if err := rows.Scan(&r.ID, &r.TaskKey, &r.StartedAt, &r.FinishedAt, &r.Progress, &r.Message, &r.Succeeded); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
