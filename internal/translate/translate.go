// Package translate implements the Translation Cache (C2) and
// Translator Set (C8): a priority-weighted, persistently cached
// translation pipeline with an AI batch primary and ordered fallback
// engines.
package translate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hbq0405/emby-actor-processor/internal/config"
	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/logging"
)

// Engine is anything that can translate a batch of strings to Chinese.
// AI and each fallback adapter implement this; an empty string at an
// index means "could not translate this one".
type Engine interface {
	Name() string
	Translate(ctx context.Context, texts []string) ([]string, error)
}

// ManualEngineName is the pseudo-engine name for hand-edited
// translations; enginePriority ranks it 2 whatever cfg.Priorities says.
const ManualEngineName = "manual"

// Service wires the cache to an AI batch engine and an ordered list of
// fallback engines, implementing the precedence
type Service struct {
	db       *database.DB
	ai       Engine
	fallback []Engine
	l2       *L2Cache
	log      *logging.Logger
}

// New builds a Service. ai may be nil to skip the AI batch step
// entirely (translation.enabled=false or no endpoint configured).
func New(db *database.DB, ai Engine, fallback []Engine, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{db: db, ai: ai, fallback: fallback, log: log}
}

// WithL2Cache attaches the optional Redis-backed shared cache tier.
// Passing nil disables it (the default, when redis.enabled=false).
func (s *Service) WithL2Cache(l2 *L2Cache) *Service {
	s.l2 = l2
	return s
}

// shouldSkip implements the translation pre-filters: empty/whitespace text,
// text already containing CJK, and short all-caps initials pass through
// unchanged without ever touching the cache or an engine.
func shouldSkip(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}
	if ContainsCJK(trimmed) {
		return true
	}
	if IsShortAllCapsInitials(trimmed) {
		return true
	}
	return false
}

// TranslateBatch translates texts for one item. The
// returned slice is parallel to texts.
func (s *Service) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	results := make([]string, len(texts))
	var pending []string
	var pendingIdx []int

	err := s.db.WithReadTx(func(db *sql.DB) error {
		for i, text := range texts {
			if shouldSkip(text) {
				results[i] = text
				continue
			}

			entry, found, err := database.GetTranslation(db, text)
			if err != nil {
				return err
			}
			if found {
				if entry.IsNegative() {
					results[i] = text
				} else {
					results[i] = entry.TranslatedText.String
				}
				continue
			}

			pending = append(pending, text)
			pendingIdx = append(pendingIdx, i)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading translation cache: %w", err)
	}

	if len(pending) == 0 {
		return results, nil
	}

	if s.l2 != nil {
		var stillPending []string
		var stillPendingIdx []int
		for j, text := range pending {
			if hit, ok := s.l2.Get(ctx, text); ok {
				results[pendingIdx[j]] = hit
				if err := database.PutTranslation(s.db.Raw(), text, sql.NullString{String: hit, Valid: true}, "l2"); err != nil {
					s.log.Warn("translate", "backfilling L2 hit into local cache failed", logging.F("error", err.Error()))
				}
				continue
			}
			stillPending = append(stillPending, text)
			stillPendingIdx = append(stillPendingIdx, pendingIdx[j])
		}
		pending = stillPending
		pendingIdx = stillPendingIdx
		if len(pending) == 0 {
			return results, nil
		}
	}

	resolved, engines, lastTried := s.resolvePending(ctx, pending)

	if writeErr := s.persistResolved(pending, resolved, engines, lastTried); writeErr != nil {
		s.log.Error("translate", "persisting resolved batch failed", writeErr)
	}

	for i := range pending {
		results[pendingIdx[i]] = resolved[i]
	}
	return results, nil
}

// negativeCacheTag builds the spec's "failed_or_same_via_<engine>"
// negative-cache marker, naming whichever engine was tried last so a
// later reviewer can tell a dead AI endpoint from a fallback engine
// that just echoed the input. Falls through to the bare
// "failed_or_same" when nothing was ever attempted (no engines
// configured for this text).
func negativeCacheTag(lastEngine string) string {
	if lastEngine == "" {
		return "failed_or_same"
	}
	return "failed_or_same_via_" + lastEngine
}

func (s *Service) persistResolved(pending, resolved, engines, lastTried []string) error {
	raw := s.db.Raw()
	for i, text := range pending {
		engine := engines[i]
		translated := resolved[i]
		if engine == "" {
			if err := database.PutTranslation(raw, text, sql.NullString{}, negativeCacheTag(lastTried[i])); err != nil {
				return err
			}
			continue
		}
		if err := database.PutTranslation(raw, text, sql.NullString{String: translated, Valid: true}, engine); err != nil {
			return err
		}
		if s.l2 != nil {
			s.l2.Set(context.Background(), text, translated)
		}
	}
	return nil
}

// resolvePending runs the AI-batch-then-fallback sequence for texts
// over texts with no cache hit. Returns, parallel to texts: the
// resolved translation (or the original text on final failure), the
// engine that produced it ("" means "failed, negative-cached"), and
// lastTried — the name of whichever engine was attempted last for that
// text, success or failure, so a final failure can be negative-cached
// as "failed_or_same_via_<engine>" per spec §4.2 step 5.
func (s *Service) resolvePending(ctx context.Context, texts []string) ([]string, []string, []string) {
	resolved := make([]string, len(texts))
	engines := make([]string, len(texts))
	lastTried := make([]string, len(texts))
	remaining := make([]int, len(texts))
	for i := range texts {
		remaining[i] = i
	}

	if s.ai != nil && len(remaining) > 0 {
		batch := make([]string, len(remaining))
		for j, idx := range remaining {
			batch[j] = texts[idx]
		}
		out, err := s.ai.Translate(ctx, batch)
		for _, idx := range remaining {
			lastTried[idx] = s.ai.Name()
		}
		if err != nil {
			s.log.Warn("translate", "AI batch translator failed, falling back", logging.F("error", err.Error()))
		} else {
			var stillRemaining []int
			for j, idx := range remaining {
				if j < len(out) && out[j] != "" && !strings.EqualFold(out[j], texts[idx]) {
					resolved[idx] = out[j]
					engines[idx] = s.ai.Name()
				} else {
					stillRemaining = append(stillRemaining, idx)
				}
			}
			remaining = stillRemaining
		}
	}

	for _, engine := range s.fallback {
		if len(remaining) == 0 {
			break
		}
		var stillRemaining []int
		for _, idx := range remaining {
			select {
			case <-ctx.Done():
				stillRemaining = append(stillRemaining, idx)
				continue
			default:
			}
			lastTried[idx] = engine.Name()
			out, err := engine.Translate(ctx, []string{texts[idx]})
			if err != nil || len(out) == 0 || out[0] == "" || strings.EqualFold(out[0], texts[idx]) {
				stillRemaining = append(stillRemaining, idx)
				continue
			}
			resolved[idx] = out[0]
			engines[idx] = engine.Name()
		}
		remaining = stillRemaining
	}

	for _, idx := range remaining {
		resolved[idx] = texts[idx]
		engines[idx] = ""
	}
	return resolved, engines, lastTried
}

// MergePriority resolves a conflicting pair of cache entries for the
// same original_text arriving from two sources (e.g. a manual edit vs.
// a batch translation), using the engine-priority rule: manual=2, AI=1,
// others=0; ties keep the local entry.
func MergePriority(localEngine, incomingEngine string, cfg config.TranslationConfig) (keepIncoming bool) {
	localPriority := enginePriority(localEngine, cfg)
	incomingPriority := enginePriority(incomingEngine, cfg)
	return incomingPriority > localPriority
}

func enginePriority(engine string, cfg config.TranslationConfig) int {
	if engine == ManualEngineName {
		return 2
	}
	if p, ok := cfg.Priorities[engine]; ok {
		return p
	}
	return 0
}
