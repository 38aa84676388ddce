package tasks

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/hbq0405/emby-actor-processor/internal/logging"
)

// Scheduler submits task keys on a cron expression, per
// SchedulerConfig.Cron. A cron tick that finds the manager busy is
// logged and skipped rather than queued — the manager only guarantees
// one task in flight at a time.
type Scheduler struct {
	cron    *cron.Cron
	manager *Manager
	log     *logging.Logger
}

func NewScheduler(manager *Manager, log *logging.Logger) *Scheduler {
	if log == nil {
		log = logging.Nop()
	}
	return &Scheduler{cron: cron.New(), manager: manager, log: log}
}

// Add schedules key to be submitted whenever expr fires.
func (s *Scheduler) Add(key Key, expr string) error {
	_, err := s.cron.AddFunc(expr, func() {
		if _, err := s.manager.Submit(key); err != nil {
			if errors.Is(err, ErrBusy) {
				s.log.Info("tasks", "scheduled submit skipped, manager busy", logging.F("key", string(key)))
				return
			}
			s.log.Warn("tasks", "scheduled submit failed", logging.F("key", string(key)), logging.F("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling %s (%q): %w", key, expr, err)
	}
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }
func (s *Scheduler) Stop()  { <-s.cron.Stop().Done() }
