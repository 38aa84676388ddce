package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/hbq0405/emby-actor-processor/internal/activity"
	"github.com/hbq0405/emby-actor-processor/internal/cast"
	"github.com/hbq0405/emby-actor-processor/internal/collections"
	"github.com/hbq0405/emby-actor-processor/internal/config"
	"github.com/hbq0405/emby-actor-processor/internal/database"
	"github.com/hbq0405/emby-actor-processor/internal/douban"
	"github.com/hbq0405/emby-actor-processor/internal/embyclient"
	"github.com/hbq0405/emby-actor-processor/internal/enrich"
	"github.com/hbq0405/emby-actor-processor/internal/identity"
	"github.com/hbq0405/emby-actor-processor/internal/localcache"
	"github.com/hbq0405/emby-actor-processor/internal/logging"
	"github.com/hbq0405/emby-actor-processor/internal/override"
	"github.com/hbq0405/emby-actor-processor/internal/paths"
	"github.com/hbq0405/emby-actor-processor/internal/pipeline"
	"github.com/hbq0405/emby-actor-processor/internal/tasks"
	"github.com/hbq0405/emby-actor-processor/internal/tmdb"
	"github.com/hbq0405/emby-actor-processor/internal/translate"
	"github.com/hbq0405/emby-actor-processor/internal/webhook"
)

// app bundles every collaborator a running embyactor process needs.
// Built once by buildApp for the serve subcommand.
type app struct {
	cfg *config.Config
	db  *database.DB
	log *logging.Logger

	emby        *embyclient.Client
	tmdbClient  *tmdb.Client
	doubanClient *douban.Client
	localcache  *localcache.Reader

	identity  *identity.Store
	translate *translate.Service
	processor *cast.Processor
	writer    *override.Writer
	pipeline  *pipeline.Pipeline

	collections *collections.Engine
	enricher    *enrich.Enricher
	activityLog *activity.Logger

	manager    *tasks.Manager
	scheduler  *tasks.Scheduler
	router     *webhook.Router
	subscriber *HTTPSubscriber
}

// buildApp wires every C1-C14 component from cfg, grounded on the
// constructors each internal package already exposes. It does not
// start anything in the background; runServe starts the task manager
// and scheduler after it returns.
func buildApp(cfg *config.Config) (*app, error) {
	log, err := logging.New(logging.Config(cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	db, err := database.OpenPath(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	configDir := filepath.Dir(cfg.Database.Path)
	actLog, err := activity.NewLogger(configDir)
	if err != nil {
		return nil, fmt.Errorf("initializing activity log: %w", err)
	}

	embyClient := embyclient.NewClient(embyclient.Config{
		URL:      cfg.Emby.URL,
		APIKey:   cfg.Emby.APIKey,
		DeviceID: cfg.Emby.DeviceID,
		Timeout:  20 * time.Second,
	})

	tmdbClient := tmdb.NewClient(tmdb.Config{
		APIKey:               cfg.TMDb.APIKey,
		RequestsPerSec:       cfg.TMDb.RequestsPerSec,
		FailureThreshold:     cfg.TMDb.CircuitBreaker.FailureThreshold,
		FailureWindowSeconds: cfg.TMDb.CircuitBreaker.FailureWindowSeconds,
		CooldownSeconds:      cfg.TMDb.CircuitBreaker.CooldownSeconds,
	})

	doubanClient := douban.NewClient(douban.Config{
		Cookie:               cfg.Douban.Cookie,
		CooldownMillis:       cfg.Douban.CooldownMillis,
		FailureThreshold:     cfg.Douban.CircuitBreaker.FailureThreshold,
		FailureWindowSeconds: cfg.Douban.CircuitBreaker.FailureWindowSeconds,
		CooldownSeconds:      cfg.Douban.CircuitBreaker.CooldownSeconds,
	})

	cacheRoot := cfg.TMDb.CacheRoot
	if cacheRoot == "" {
		cacheRoot = cfg.Douban.CacheRoot
	}
	lcReader := localcache.NewReader(cacheRoot)

	idStore := identity.New(db, log)
	translateSvc := translate.BuildFromConfig(cfg.Translation, cfg.Redis, db, log)
	doubanFallback := localcache.NewDoubanFallbackSource(doubanClient, lcReader)
	processor := cast.New(db, idStore, doubanFallback, translateSvc, log)

	own, err := resolveOwnership(cfg.Permissions)
	if err != nil {
		log.Warn("app", "resolving override ownership failed, writing as current user", logging.F("error", err.Error()))
	}
	overrideRoot := cfg.Override.Root
	if overrideRoot == "" {
		overrideRoot = cacheRoot
	}
	writer := override.New(overrideRoot, lcReader, embyClient, own, log)

	pl := pipeline.New(db, embyClient, processor, writer, pipeline.Options{
		MaxActors:       cfg.Override.MaxActors,
		RolePrefixOn:    cfg.Override.RolePrefixOn,
		ProcessEpisodes: cfg.Override.ProcessEpisodes,
		ReviewThreshold: cfg.Override.ReviewThreshold,
	}, log)

	listProvider := collections.NewTMDbListProvider(tmdbClient)
	collEngine := collections.New(db, listProvider, embyClient, log)

	enricher := enrich.New(db, tmdbClient, doubanClient, enrich.Config{}, log)

	subscriber := newHTTPSubscriber(cfg.Downloader.SubscribeURL, time.Duration(cfg.Downloader.TimeoutSeconds)*time.Second)

	manager := tasks.New(db, actLog, log, cfg.Redis.Addr)
	scheduler := tasks.NewScheduler(manager, log)

	authCfg := webhook.Auth{Secret: cfg.Emby.WebhookSecret, JWT: cfg.Emby.WebhookJWT}
	router := webhook.New(authCfg, db, embyClient, pl, writer, collEngine, actLog, log)
	router.WithStatus(manager, cfg.Password)

	a := &app{
		cfg:          cfg,
		db:           db,
		log:          log,
		emby:         embyClient,
		tmdbClient:   tmdbClient,
		doubanClient: doubanClient,
		localcache:   lcReader,
		identity:     idStore,
		translate:    translateSvc,
		processor:    processor,
		writer:       writer,
		pipeline:     pl,
		collections:  collEngine,
		enricher:     enricher,
		activityLog:  actLog,
		manager:      manager,
		scheduler:    scheduler,
		router:       router,
		subscriber:   subscriber,
	}
	a.registerTasks()
	if err := a.scheduleCron(); err != nil {
		log.Warn("app", "scheduling cron entries failed", logging.F("error", err.Error()))
	}
	return a, nil
}

func (a *app) Close() {
	a.manager.Close()
	a.activityLog.Close()
	a.log.Close()
	a.db.Close()
}

func (a *app) scheduleCron() error {
	for keyStr, expr := range a.cfg.Scheduler.Cron {
		if expr == "" {
			continue
		}
		if err := a.scheduler.Add(tasks.Key(keyStr), expr); err != nil {
			return fmt.Errorf("scheduling %s: %w", keyStr, err)
		}
	}
	return nil
}

func resolveOwnership(p config.PermissionsConfig) (override.Ownership, error) {
	own := override.Ownership{UID: -1, GID: -1}
	if p.WantsOwnership() {
		uid, err := p.ResolveUID()
		if err != nil {
			return own, err
		}
		gid, err := p.ResolveGID()
		if err != nil {
			return own, err
		}
		own.UID, own.GID = uid, gid
	}
	if p.WantsMode() {
		fileMode, err := p.ParseFileMode()
		if err != nil {
			return own, err
		}
		dirMode, err := p.ParseDirMode()
		if err != nil {
			return own, err
		}
		own.FileMode, own.DirMode = fileMode, dirMode
	}
	return own, nil
}

// configDirOf mirrors paths.AppDir so subcommands that only need the
// config directory (not a full app) don't have to build one.
func configDirOf() (string, error) {
	return paths.AppDir()
}
