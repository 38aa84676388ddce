package translate

import (
	"time"

	"github.com/hbq0405/emby-actor-processor/internal/config"
	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/logging"
)

// BuildFromConfig wires a Service from a loaded TranslationConfig,
// resolving the AI engine and fallback chain in the order named by
// cfg.EngineOrder (any entry that isn't "ai" is looked up as a named
// fallback engine; unknown names are skipped).
func BuildFromConfig(cfg config.TranslationConfig, redisCfg config.RedisConfig, db *database.DB, log *logging.Logger) *Service {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	available := map[string]Engine{
		"bing":  NewBingEngine(timeout),
		"baidu": NewBaiduEngine(cfg.BaiduAppID, cfg.BaiduSecret, timeout),
	}

	var ai Engine
	var fallback []Engine
	for _, name := range cfg.EngineOrder {
		switch name {
		case "ai":
			if cfg.Enabled && cfg.AIEndpoint != "" {
				ai = NewAIEngine(cfg.AIEndpoint, cfg.AIModel, timeout)
			}
		default:
			if e, ok := available[name]; ok {
				fallback = append(fallback, e)
			}
		}
	}

	svc := New(db, ai, fallback, log)
	if redisCfg.Enabled && redisCfg.Addr != "" {
		svc = svc.WithL2Cache(NewL2Cache(redisCfg.Addr, redisCfg.DB, log))
	}
	return svc
}
