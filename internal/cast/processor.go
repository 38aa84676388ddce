// Package cast implements the Cast Processor (C9): fuses a media
// item's server-side cast with Douban's cast list, limits size,
// translates, formats, and scores the result.
package cast

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/douban"
	"github.com/hbq0405/emby-actor-processor/internal/identity"
	"github.com/hbq0405/emby-actor-processor/internal/logging"
	"github.com/hbq0405/emby-actor-processor/internal/translate"
)

const defaultMaxActors = 30
const reviewThreshold = 6.0

// DoubanSource fetches a Douban cast list; satisfied by *douban.Client
// and, as a fallback, anything reading the on-disk sidecar mirror.
type DoubanSource interface {
	GetActing(ctx context.Context, name, imdbID, mediaType string, year int, doubanIDOverride string) (*douban.Acting, error)
}

// Processor implements the C9 algorithm
type Processor struct {
	db       *database.DB
	identity *identity.Store
	douban   DoubanSource
	translate *translate.Service
	log      *logging.Logger
}

func New(db *database.DB, idStore *identity.Store, doubanSrc DoubanSource, translateSvc *translate.Service, log *logging.Logger) *Processor {
	if log == nil {
		log = logging.Nop()
	}
	return &Processor{db: db, identity: idStore, douban: doubanSrc, translate: translateSvc, log: log}
}

// Process runs the full pipeline for one item and returns the final
// cast plus its quality score.
func (p *Processor) Process(ctx context.Context, in ItemInput) (*Result, error) {
	maxActors := in.MaxActors
	if maxActors <= 0 {
		maxActors = defaultMaxActors
	}

	seed := p.seed(in.People)
	discarded, err := p.enrichFromDouban(ctx, in, seed, maxActors)
	if err != nil {
		return nil, fmt.Errorf("douban enrichment for item %s: %w", in.ItemID, err)
	}

	final := truncate(seed.records(), maxActors)

	if err := p.translateRecords(ctx, final); err != nil {
		return nil, fmt.Errorf("translating cast for item %s: %w", in.ItemID, err)
	}

	isAnim := IsAnimation(in.Genres)
	formatted := Format(final, FormatOptions{IsAnimation: isAnim, RolePrefixOn: in.RolePrefixOn})

	score := QualityScore(QualityInput{
		Actors:             toScoredActors(formatted),
		IsAnimation:        isAnim,
		OriginalCount:      len(in.People),
		ExpectedFinalCount: in.ExpectedCount,
	})

	if err := p.logDiscarded(ctx, in.ItemID, discarded, seed); err != nil {
		p.log.Warn("cast", "failed to log discarded candidates", logging.F("item_id", in.ItemID))
	}

	return &Result{
		Cast:           formatted,
		QualityScore:   score,
		NeedsReview:    score < reviewThreshold,
		DiscardedNames: discardedNames(discarded),
	}, nil
}

// seedSet holds the in-progress cast keyed by identity map id, so lookup
// by map id is O(1); Douban matching by id or case-folded name scans
// every record.
type seedSet struct {
	byMapID map[int64]*Record
	order   []int64
}

func newSeedSet() *seedSet {
	return &seedSet{byMapID: make(map[int64]*Record)}
}

func (s *seedSet) add(r Record) {
	if _, exists := s.byMapID[r.MapID]; !exists {
		s.order = append(s.order, r.MapID)
	}
	rc := r
	s.byMapID[r.MapID] = &rc
}

func (s *seedSet) records() []Record {
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byMapID[id])
	}
	return out
}

func (s *seedSet) findByDoubanID(doubanID string) *Record {
	if doubanID == "" {
		return nil
	}
	for _, r := range s.byMapID {
		if r.DoubanID == doubanID {
			return r
		}
	}
	return nil
}

func (s *seedSet) findByName(name, originalName string) *Record {
	name = strings.ToLower(strings.TrimSpace(name))
	originalName = strings.ToLower(strings.TrimSpace(originalName))
	for _, r := range s.byMapID {
		rName := strings.ToLower(strings.TrimSpace(r.Name))
		rOriginal := strings.ToLower(strings.TrimSpace(r.OriginalName))
		if name != "" && (name == rName || name == rOriginal) {
			return r
		}
		if originalName != "" && (originalName == rName || originalName == rOriginal) {
			return r
		}
	}
	return nil
}

// seed materializes a seed record per
// server-side cast entry and upsert each into the identity map.
func (p *Processor) seed(people []PersonInput) *seedSet {
	set := newSeedSet()
	for _, person := range people {
		if strings.TrimSpace(person.Name) == "" || strings.TrimSpace(person.EmbyID) == "" {
			continue
		}

		mapID := p.identity.Upsert(identity.Candidate{
			Name: person.Name, TMDb: person.TMDbID, Emby: person.EmbyID,
			IMDb: person.IMDbID, Douban: person.DoubanID,
		})

		set.add(Record{
			MapID:        mapID,
			TMDbID:       person.TMDbID,
			EmbyID:       person.EmbyID,
			IMDbID:       person.IMDbID,
			DoubanID:     person.DoubanID,
			Name:         person.Name,
			OriginalName: person.OriginalName,
			Character:    person.Role,
			Order:        person.Order,
		})
	}
	return set
}

// enrichFromDouban performs Douban matching, then
// overflow disposition (promotion or discard).
func (p *Processor) enrichFromDouban(ctx context.Context, in ItemInput, seed *seedSet, maxActors int) ([]douban.CastCandidate, error) {
	if in.Type != "Movie" && in.Type != "Series" {
		return nil, nil
	}
	if p.douban == nil {
		return nil, nil
	}

	mediaType := "movie"
	if in.Type == "Series" {
		mediaType = "tv"
	}

	acting, err := p.douban.GetActing(ctx, in.Name, in.IMDbID, mediaType, in.Year, in.DoubanID)
	if err != nil {
		p.log.Warn("cast", "douban fetch failed, continuing without enrichment", logging.F("item_id", in.ItemID), logging.F("error", err.Error()))
		return nil, nil
	}

	candidates := dedupDouban(acting.Cast)

	var overflow []douban.CastCandidate
	for _, cand := range candidates {
		match := matchSeed(seed, cand)
		if match == nil {
			overflow = append(overflow, cand)
			continue
		}
		if match.DoubanID == "" {
			match.DoubanID = cand.ID
		}
		match.Character = SelectRole(match.Character, cand.Character)
	}

	n := len(seed.order)
	if n >= maxActors {
		return overflow, nil
	}

	var discarded []douban.CastCandidate
	for _, cand := range overflow {
		if cand.ID == "" {
			discarded = append(discarded, cand)
			continue
		}
		existing, err := p.identity.FindByAnyID(identity.Candidate{Douban: cand.ID})
		if err != nil || existing == nil || existing.TMDbPersonID == "" {
			discarded = append(discarded, cand)
			continue
		}
		if hasRecord(seed, existing.TMDbPersonID) {
			discarded = append(discarded, cand)
			continue
		}

		seed.add(Record{
			MapID:        existing.MapID,
			TMDbID:       existing.TMDbPersonID,
			EmbyID:       existing.EmbyPersonID,
			IMDbID:       existing.IMDbID,
			DoubanID:     existing.DoubanCelebrityID,
			Name:         cand.Name,
			OriginalName: cand.OriginalName,
			Character:    cand.Character,
			Order:        -1,
		})
	}
	return discarded, nil
}

func hasRecord(seed *seedSet, tmdbID string) bool {
	for _, r := range seed.byMapID {
		if r.TMDbID == tmdbID {
			return true
		}
	}
	return false
}

func matchSeed(seed *seedSet, cand douban.CastCandidate) *Record {
	if m := seed.findByDoubanID(cand.ID); m != nil {
		return m
	}
	return seed.findByName(cand.Name, cand.OriginalName)
}

// dedupDouban deduplicates by Douban-ID first, then by exact name.
func dedupDouban(cast []douban.CastCandidate) []douban.CastCandidate {
	var out []douban.CastCandidate
	seenIDs := make(map[string]bool)
	seenNames := make(map[string]bool)
	for _, c := range cast {
		if c.ID != "" {
			if seenIDs[c.ID] {
				continue
			}
			seenIDs[c.ID] = true
		} else {
			if seenNames[c.Name] {
				continue
			}
			seenNames[c.Name] = true
		}
		out = append(out, c)
	}
	return out
}

// truncate caps the cast list at the configured maximum.
func truncate(records []Record, maxActors int) []Record {
	if len(records) <= maxActors {
		return records
	}
	sort.SliceStable(records, func(i, j int) bool {
		return orderRank(records[i].Order) < orderRank(records[j].Order)
	})
	return records[:maxActors]
}

func orderRank(order int) int {
	if order < 0 {
		return 999
	}
	return order
}

// translateRecords cleans character names, then
// batch-translate name and character together.
func (p *Processor) translateRecords(ctx context.Context, records []Record) error {
	if p.translate == nil || len(records) == 0 {
		return nil
	}

	for i := range records {
		records[i].Character = CleanCharacter(records[i].Character)
	}

	texts := make([]string, 0, len(records)*2)
	for _, r := range records {
		texts = append(texts, r.Name, r.Character)
	}

	translated, err := p.translate.TranslateBatch(ctx, texts)
	if err != nil {
		return err
	}

	for i := range records {
		records[i].Name = translated[i*2]
		records[i].Character = translated[i*2+1]
	}
	return nil
}

func toScoredActors(records []Record) []ScoredActor {
	out := make([]ScoredActor, len(records))
	for i, r := range records {
		out[i] = ScoredActor{Name: r.Name, Role: r.Character}
	}
	return out
}

func discardedNames(candidates []douban.CastCandidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Name
	}
	return out
}

// logDiscarded persists each discarded overflow candidate along with
// its nearest-surviving-seed fuzzy match, for operator review.
func (p *Processor) logDiscarded(ctx context.Context, itemID string, discarded []douban.CastCandidate, seed *seedSet) error {
	if len(discarded) == 0 {
		return nil
	}
	seedNames := seed.records()

	return p.db.WithTx(func(tx *sql.Tx) error {
		for _, cand := range discarded {
			nearestName, nearestDist := nearestSeed(cand.Name, seedNames)
			d := database.DiscardedCandidate{
				ItemID:        itemID,
				CandidateName: cand.Name,
				Reason:        "overflow_unmatched",
			}
			if nearestName != "" {
				d.NearestSeedName = sql.NullString{String: nearestName, Valid: true}
				d.NearestSeedDistance = sql.NullFloat64{Float64: nearestDist, Valid: true}
			}
			if err := database.InsertDiscardedCandidate(tx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

func nearestSeed(name string, seed []Record) (string, float64) {
	var best string
	var bestScore float32 = -1
	for _, r := range seed {
		score, err := edlib.StringsSimilarity(name, r.Name, edlib.Levenshtein)
		if err != nil {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = r.Name
		}
	}
	if best == "" {
		return "", 0
	}
	return best, float64(bestScore)
}
