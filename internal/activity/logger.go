// Package activity records an append-only JSONL audit trail of task runs
// and per-item cast-processor outcomes, complementing the relational
// processed/failed logs in internal/database with something an operator
// can tail or grep without a SQL client.
package activity

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Action identifies what kind of event an Entry describes.
type Action string

const (
	ActionTaskStarted   Action = "task_started"
	ActionTaskFinished  Action = "task_finished"
	ActionItemProcessed Action = "item_processed"
	ActionItemFailed    Action = "item_failed"
	ActionWebhookEvent  Action = "webhook_event"
)

// Entry is one line of the JSONL audit trail.
type Entry struct {
	Timestamp  time.Time `json:"ts"`
	Action     Action    `json:"action"`
	TaskKey    string    `json:"task_key,omitempty"`
	ItemID     string    `json:"item_id,omitempty"`
	ItemName   string    `json:"item_name,omitempty"`
	Score      *float64  `json:"score,omitempty"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

// Logger is a day-bucketed append-only JSONL writer.
type Logger struct {
	mu          sync.Mutex
	logDir      string
	currentFile *os.File
	currentDate string
}

// NewLogger creates a logger rooted at <configDir>/activity.
func NewLogger(configDir string) (*Logger, error) {
	logDir := filepath.Join(configDir, "activity")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	return &Logger{logDir: logDir}, nil
}

// Log appends entry to today's file, rotating at midnight.
func (l *Logger) Log(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.Timestamp = time.Now()

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	today := time.Now().Format("2006-01-02")
	if l.currentDate != today || l.currentFile == nil {
		if err := l.rotateFile(today); err != nil {
			return err
		}
	}
	if l.currentFile == nil {
		return nil
	}

	_, err = l.currentFile.Write(append(line, '\n'))
	return err
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.currentFile != nil {
		return l.currentFile.Close()
	}
	return nil
}

// PruneOld deletes daily files older than retentionDays.
func (l *Logger) PruneOld(retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(l.logDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "activity-") || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), "activity-"), ".jsonl")
		fileDate, err := time.Parse("2006-01-02", name)
		if err != nil {
			continue
		}
		if fileDate.Before(cutoff) {
			os.Remove(filepath.Join(l.logDir, entry.Name()))
		}
	}
	return nil
}

func (l *Logger) rotateFile(date string) error {
	if l.currentFile != nil {
		l.currentFile.Close()
	}

	filePath := filepath.Join(l.logDir, "activity-"+date+".jsonl")
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	l.currentFile = file
	l.currentDate = date
	return nil
}

func (l *Logger) GetLogDir() string { return l.logDir }

// GetRecentEntries returns up to limit entries, newest first, across
// however many daily files are needed to satisfy it.
func (l *Logger) GetRecentEntries(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	dirEntries, err := os.ReadDir(l.logDir)
	if err != nil {
		return nil, err
	}

	var logFiles []string
	for _, e := range dirEntries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "activity-") && strings.HasSuffix(e.Name(), ".jsonl") {
			logFiles = append(logFiles, e.Name())
		}
	}
	for i, j := 0, len(logFiles)-1; i < j; i, j = i+1, j-1 {
		logFiles[i], logFiles[j] = logFiles[j], logFiles[i]
	}

	var results []Entry
	for _, fileName := range logFiles {
		fileEntries, err := l.readEntriesFromFile(filepath.Join(l.logDir, fileName))
		if err != nil {
			continue
		}
		for i, j := 0, len(fileEntries)-1; i < j; i, j = i+1, j-1 {
			fileEntries[i], fileEntries[j] = fileEntries[j], fileEntries[i]
		}
		for _, e := range fileEntries {
			results = append(results, e)
			if len(results) >= limit {
				return results, nil
			}
		}
	}
	return results, nil
}

func (l *Logger) readEntriesFromFile(filePath string) ([]Entry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	scanner := NewJSONLScanner(file)
	for scanner.Scan() {
		var entry Entry
		if err := scanner.Entry(&entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

// JSONLScanner scans a JSONL file line by line.
type JSONLScanner struct {
	scanner *bufio.Scanner
	entry   []byte
	err     error
}

func NewJSONLScanner(r io.Reader) *JSONLScanner {
	return &JSONLScanner{scanner: bufio.NewScanner(r)}
}

func (s *JSONLScanner) Scan() bool {
	if s.scanner.Scan() {
		s.entry = s.scanner.Bytes()
		return true
	}
	s.err = s.scanner.Err()
	return false
}

func (s *JSONLScanner) Entry(v interface{}) error {
	return json.Unmarshal(s.entry, v)
}

func (s *JSONLScanner) Err() error { return s.err }
