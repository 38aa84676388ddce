package localcache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hbq0405/emby-actor-processor/internal/douban"
)

// LiveDoubanSource is the subset of *douban.Client the fallback source
// calls through before trying the on-disk mirror.
type LiveDoubanSource interface {
	GetActing(ctx context.Context, name, imdbID, mediaType string, year int, doubanIDOverride string) (*douban.Acting, error)
}

// DoubanFallbackSource implements cast.Processor's DoubanSource by
// calling the live Douban client first and, only when that returns no
// usable cast (error or empty), falling back to the on-disk
// douban-{movies|tv} mirror step 2). The mirror is read-only
// and never written by this process — a separate tool owns it.
type DoubanFallbackSource struct {
	live   LiveDoubanSource
	reader *Reader
}

func NewDoubanFallbackSource(live LiveDoubanSource, reader *Reader) *DoubanFallbackSource {
	return &DoubanFallbackSource{live: live, reader: reader}
}

// sidecarCast mirrors douban.Acting's JSON shape so the mirror file can
// be decoded without depending on douban's unexported wire types.
type sidecarCast struct {
	Cast []douban.CastCandidate `json:"cast"`
}

// GetActing tries the live client, then the on-disk sidecar keyed by
// doubanIDOverride or imdbID, then returns an empty Acting rather than
// an error so a missing mirror entry is treated the same as "no cast
// found" instead of aborting the item.
func (s *DoubanFallbackSource) GetActing(ctx context.Context, name, imdbID, mediaType string, year int, doubanIDOverride string) (*douban.Acting, error) {
	if s.live != nil {
		acting, err := s.live.GetActing(ctx, name, imdbID, mediaType, year, doubanIDOverride)
		if err == nil && acting != nil && len(acting.Cast) > 0 {
			return acting, nil
		}
	}
	if s.reader == nil {
		return &douban.Acting{}, nil
	}

	kind := KindDouban
	if mediaType == "Series" || mediaType == "tv" {
		kind = KindDoubanTV
	}

	dir, err := s.reader.FindDoubanDir(kind, doubanIDOverride, imdbID)
	if err != nil {
		return nil, fmt.Errorf("locating douban sidecar for %q: %w", name, err)
	}
	if dir == "" {
		return &douban.Acting{}, nil
	}

	raw, err := s.reader.ReadDoubanFile(dir, "cast.json")
	if err != nil {
		return nil, fmt.Errorf("reading douban sidecar cast for %q: %w", name, err)
	}
	if raw == nil {
		return &douban.Acting{}, nil
	}

	var parsed sidecarCast
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding douban sidecar cast for %q: %w", name, err)
	}
	return &douban.Acting{Cast: parsed.Cast}, nil
}
