package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hbq0405/emby-actor-processor/internal/paths"
	"github.com/hbq0405/emby-actor-processor/internal/webauth"
	"github.com/spf13/viper"
)

type PermissionsConfig struct {
	// User can be a username (e.g., "emby") or numeric UID (e.g., "1000").
	User string `mapstructure:"user"`
	// Group can be a group name (e.g., "emby") or numeric GID (e.g., "1000").
	Group string `mapstructure:"group"`
	// Modes are strings in octal (e.g., "0644" or "644"). Empty means preserve source.
	FileMode string `mapstructure:"file_mode"`
	DirMode  string `mapstructure:"dir_mode"`
}

type Config struct {
	Database      DatabaseConfig    `mapstructure:"database"`
	Emby          EmbyConfig        `mapstructure:"emby"`
	TMDb          TMDbConfig        `mapstructure:"tmdb"`
	Douban        DoubanConfig      `mapstructure:"douban"`
	Translation   TranslationConfig `mapstructure:"translation"`
	Scheduler     SchedulerConfig   `mapstructure:"scheduler"`
	Redis         RedisConfig       `mapstructure:"redis"`
	Metrics       MetricsConfig     `mapstructure:"metrics"`
	Logging       LoggingConfig     `mapstructure:"logging"`
	Permissions   PermissionsConfig `mapstructure:"permissions"`
	Override      OverrideConfig    `mapstructure:"override"`
	Downloader    DownloaderConfig  `mapstructure:"downloader"`
	Password      string            `mapstructure:"password"`
	SecureCookies bool              `mapstructure:"secure_cookies"`
}

// DownloaderConfig points the auto-subscribe task at the external
// download-automation service it calls through collections.Subscriber.
type DownloaderConfig struct {
	SubscribeURL   string `mapstructure:"subscribe_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Helper methods for permissions resolution and parsing
func (p *PermissionsConfig) WantsOwnership() bool {
	return strings.TrimSpace(p.User) != "" || strings.TrimSpace(p.Group) != ""
}

func (p *PermissionsConfig) WantsMode() bool {
	return strings.TrimSpace(p.FileMode) != "" || strings.TrimSpace(p.DirMode) != ""
}

func (p *PermissionsConfig) ResolveUID() (int, error) {
	if p.User == "" {
		return -1, nil
	}
	if uid, err := strconv.Atoi(p.User); err == nil {
		return uid, nil
	}
	usr, err := user.Lookup(p.User)
	if err != nil {
		return -1, err
	}
	uid, err := strconv.Atoi(usr.Uid)
	if err != nil {
		return -1, err
	}
	return uid, nil
}

func (p *PermissionsConfig) ResolveGID() (int, error) {
	if p.Group == "" {
		return -1, nil
	}
	if gid, err := strconv.Atoi(p.Group); err == nil {
		return gid, nil
	}
	grp, err := user.LookupGroup(p.Group)
	if err != nil {
		return -1, err
	}
	gid, err := strconv.Atoi(grp.Gid)
	if err != nil {
		return -1, err
	}
	return gid, nil
}

func (p *PermissionsConfig) ParseFileMode() (os.FileMode, error) {
	if strings.TrimSpace(p.FileMode) == "" {
		return 0, nil
	}
	m := strings.TrimSpace(p.FileMode)
	if len(m) == 3 {
		m = "0" + m
	}
	v, err := strconv.ParseUint(m, 8, 32)
	if err != nil {
		return 0, err
	}
	return os.FileMode(v), nil
}

func (p *PermissionsConfig) ParseDirMode() (os.FileMode, error) {
	if strings.TrimSpace(p.DirMode) == "" {
		return 0, nil
	}
	m := strings.TrimSpace(p.DirMode)
	if len(m) == 3 {
		m = "0" + m
	}
	v, err := strconv.ParseUint(m, 8, 32)
	if err != nil {
		return 0, err
	}
	return os.FileMode(v), nil
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type CircuitBreakerConfig struct {
	FailureThreshold     int `mapstructure:"failure_threshold"`
	FailureWindowSeconds int `mapstructure:"failure_window_seconds"`
	CooldownSeconds      int `mapstructure:"cooldown_seconds"`
}

// DatabaseConfig points at the sqlite file backing every table in
// internal/database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// EmbyConfig configures the C4 media-server adapter and C13 webhook auth.
type EmbyConfig struct {
	URL           string `mapstructure:"url"`
	APIKey        string `mapstructure:"api_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	WebhookJWT    bool   `mapstructure:"webhook_jwt"`
	DeviceID      string `mapstructure:"device_id"`
}

// TMDbConfig configures the C5 adapter plus C7's local-cache mirror root.
type TMDbConfig struct {
	APIKey         string               `mapstructure:"api_key"`
	CacheRoot      string               `mapstructure:"cache_root"`
	RequestsPerSec float64              `mapstructure:"requests_per_sec"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// DoubanConfig configures the C6 adapter.
type DoubanConfig struct {
	Cookie         string               `mapstructure:"cookie"`
	CacheRoot      string               `mapstructure:"cache_root"`
	CooldownMillis int                  `mapstructure:"cooldown_millis"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// TranslationConfig configures C2/C8: cache behavior, fallback engine order
// and per-engine priority weights used when merging candidate translations.
type TranslationConfig struct {
	Enabled        bool           `mapstructure:"enabled"`
	AIEndpoint     string         `mapstructure:"ai_endpoint"`
	AIModel        string         `mapstructure:"ai_model"`
	BatchSize      int            `mapstructure:"batch_size"`
	TimeoutSeconds int            `mapstructure:"timeout_seconds"`
	EngineOrder    []string       `mapstructure:"engine_order"`
	Priorities     map[string]int `mapstructure:"priorities"`
	NegativeTTL    time.Duration  `mapstructure:"negative_ttl"`
	BaiduAppID     string         `mapstructure:"baidu_app_id"`
	BaiduSecret    string         `mapstructure:"baidu_secret"`
}

// OverrideConfig configures the C10 side-load writer: where it writes,
// whether it mirrors the cast to season/episode JSONs, and whether it
// syncs images alongside metadata.
type OverrideConfig struct {
	Root            string `mapstructure:"root"`
	MaxActors       int    `mapstructure:"max_actors"`
	RolePrefixOn    bool   `mapstructure:"role_prefix_on"`
	ProcessEpisodes bool   `mapstructure:"process_episodes"`
	ImageSync       bool   `mapstructure:"image_sync"`
	ReviewThreshold float64 `mapstructure:"review_threshold"`
}

// SchedulerConfig carries a cron expression per task key for C12.
type SchedulerConfig struct {
	Cron         map[string]string `mapstructure:"cron"`
	BudgetMillis int64             `mapstructure:"budget_millis"`
}

// RedisConfig addresses the optional L2 translation cache tier and the
// asynq-backed task queue.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	DB      int    `mapstructure:"db"`
}

// MetricsConfig controls the prometheus /metrics listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "",
		},
		Emby: EmbyConfig{
			URL:        "",
			APIKey:     "",
			WebhookJWT: false,
		},
		TMDb: TMDbConfig{
			APIKey:         "",
			CacheRoot:      "",
			RequestsPerSec: 4,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:     5,
				FailureWindowSeconds: 120,
				CooldownSeconds:      30,
			},
		},
		Douban: DoubanConfig{
			Cookie:         "",
			CacheRoot:      "",
			CooldownMillis: 3000,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:     5,
				FailureWindowSeconds: 120,
				CooldownSeconds:      60,
			},
		},
		Translation: TranslationConfig{
			Enabled:        true,
			AIEndpoint:     "http://localhost:11434",
			AIModel:        "qwen2.5:7b",
			BatchSize:      20,
			TimeoutSeconds: 30,
			EngineOrder:    []string{"ai", "bing", "baidu"},
			Priorities:     map[string]int{"manual": 2, "ai": 1, "bing": 0, "baidu": 0},
			NegativeTTL:    72 * time.Hour,
		},
		Scheduler: SchedulerConfig{
			Cron: map[string]string{
				"full-scan":         "0 3 * * *",
				"sync-person-map":   "0 2 * * *",
				"populate-metadata": "30 2 * * *",
				"actor-tracking":    "0 4 * * 0",
				"actor-cleanup":     "0 5 * * 0",
			},
			BudgetMillis: 0,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
		Override: OverrideConfig{
			Root:            "",
			MaxActors:       30,
			RolePrefixOn:    false,
			ProcessEpisodes: true,
			ImageSync:       true,
			ReviewThreshold: 6.0,
		},
		Downloader: DownloaderConfig{
			SubscribeURL:   "",
			TimeoutSeconds: 15,
		},
	}
}

// Load loads configuration from file or returns defaults
func Load() (*Config, error) {
	configPath, err := paths.ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("unable to get config path: %w", err)
	}
	return LoadFrom(configPath)
}

// LoadFrom loads configuration from an explicit file path (the
// `--config` flag), falling back to DefaultConfig fields for anything
// the file doesn't set. An empty path behaves like Load.
func LoadFrom(configPath string) (*Config, error) {
	v := viper.New()
	if configPath == "" {
		var err error
		configPath, err = paths.ConfigPath()
		if err != nil {
			return nil, fmt.Errorf("unable to get config path: %w", err)
		}
	}
	v.SetConfigFile(configPath)

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	if cfg.Database.Path == "" {
		dbPath, err := paths.DatabasePath()
		if err == nil {
			cfg.Database.Path = dbPath
		}
	}

	return cfg, nil
}

// Save saves configuration to file
func (c *Config) Save() error {
	configFile, err := ConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("unable to create config dir: %w", err)
	}

	content := c.ToTOML()
	return os.WriteFile(configFile, []byte(content), 0644)
}

func ConfigPath() (string, error) {
	return paths.ConfigPath()
}

func ConfigExists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (c *Config) ToTOML() string {
	base := fmt.Sprintf(`# emby-actor-processor configuration
# Generated by: embyactor config init

# ============================================================================
# DATABASE
# ============================================================================
[database]
path = "%s"

# ============================================================================
# EMBY
# Media server connection and webhook authentication.
# Get API key from: Emby -> Dashboard -> Advanced -> API Keys
# ============================================================================
[emby]
url = "%s"
api_key = "%s"
webhook_secret = "%s"
webhook_jwt = %v
device_id = "%s"

# ============================================================================
# TMDB
# ============================================================================
[tmdb]
api_key = "%s"
cache_root = "%s"
requests_per_sec = %.2f

[tmdb.circuit_breaker]
failure_threshold = %d
failure_window_seconds = %d
cooldown_seconds = %d

# ============================================================================
# DOUBAN
# ============================================================================
[douban]
cookie = "%s"
cache_root = "%s"
cooldown_millis = %d

[douban.circuit_breaker]
failure_threshold = %d
failure_window_seconds = %d
cooldown_seconds = %d

# ============================================================================
# TRANSLATION
# ============================================================================
[translation]
enabled = %v
ai_endpoint = "%s"
ai_model = "%s"
batch_size = %d
timeout_seconds = %d
engine_order = %s
baidu_app_id = "%s"
baidu_secret = "%s"

# ============================================================================
# SCHEDULER
# Cron expression per task key (empty disables scheduling for that key).
# ============================================================================
[scheduler.cron]
%s

# ============================================================================
# REDIS
# Optional L2 tier for the translation cache and the task queue's durable
# backing store.
# ============================================================================
[redis]
enabled = %v
addr = "%s"
db = %d

# ============================================================================
# METRICS
# ============================================================================
[metrics]
enabled = %v
addr = "%s"

# ============================================================================
# LOGGING
# ============================================================================
[logging]
level = "%s"
file = "%s"
max_size_mb = %d
max_backups = %d

# ============================================================================
# OVERRIDE
# Side-load directory the cast processor writes into.
# ============================================================================
[override]
root = "%s"
max_actors = %d
role_prefix_on = %v
process_episodes = %v
image_sync = %v
review_threshold = %.1f

# ============================================================================
# DOWNLOADER
# Subscribe-to-downloader webhook the auto-subscribe task posts missing,
# released collection members to; blank disables auto-subscribe.
# ============================================================================
[downloader]
subscribe_url = "%s"
timeout_seconds = %d
`,
		c.Database.Path,
		c.Emby.URL,
		c.Emby.APIKey,
		c.Emby.WebhookSecret,
		c.Emby.WebhookJWT,
		c.Emby.DeviceID,
		c.TMDb.APIKey,
		c.TMDb.CacheRoot,
		c.TMDb.RequestsPerSec,
		c.TMDb.CircuitBreaker.FailureThreshold,
		c.TMDb.CircuitBreaker.FailureWindowSeconds,
		c.TMDb.CircuitBreaker.CooldownSeconds,
		c.Douban.Cookie,
		c.Douban.CacheRoot,
		c.Douban.CooldownMillis,
		c.Douban.CircuitBreaker.FailureThreshold,
		c.Douban.CircuitBreaker.FailureWindowSeconds,
		c.Douban.CircuitBreaker.CooldownSeconds,
		c.Translation.Enabled,
		c.Translation.AIEndpoint,
		c.Translation.AIModel,
		c.Translation.BatchSize,
		c.Translation.TimeoutSeconds,
		formatStringSlice(c.Translation.EngineOrder),
		c.Translation.BaiduAppID,
		c.Translation.BaiduSecret,
		formatCronTable(c.Scheduler.Cron),
		c.Redis.Enabled,
		c.Redis.Addr,
		c.Redis.DB,
		c.Metrics.Enabled,
		c.Metrics.Addr,
		c.Logging.Level,
		c.Logging.File,
		c.Logging.MaxSizeMB,
		c.Logging.MaxBackups,
		c.Override.Root,
		c.Override.MaxActors,
		c.Override.RolePrefixOn,
		c.Override.ProcessEpisodes,
		c.Override.ImageSync,
		c.Override.ReviewThreshold,
		c.Downloader.SubscribeURL,
		c.Downloader.TimeoutSeconds,
	)

	if c.Permissions.WantsOwnership() || c.Permissions.WantsMode() {
		perm := "\n# ============================================================================\n# PERMISSIONS\n# Control ownership and permissions of override files written under cache/\n# ============================================================================\n[permissions]\n"
		if c.Permissions.User != "" {
			perm += fmt.Sprintf("user = \"%s\"\n", c.Permissions.User)
		}
		if c.Permissions.Group != "" {
			perm += fmt.Sprintf("group = \"%s\"\n", c.Permissions.Group)
		}
		if c.Permissions.FileMode != "" {
			perm += fmt.Sprintf("file_mode = \"%s\"\n", c.Permissions.FileMode)
		}
		if c.Permissions.DirMode != "" {
			perm += fmt.Sprintf("dir_mode = \"%s\"\n", c.Permissions.DirMode)
		}
		base += perm
	}

	if c.Password != "" {
		base += fmt.Sprintf("\n# ============================================================================\n# AUTHENTICATION\n# Optional password for HTTP Basic auth on the webhook listener's /status endpoint\n# ============================================================================\npassword = \"%s\"\n", c.Password)
	}

	return base
}

func formatStringSlice(s []string) string {
	if len(s) == 0 {
		return "[]"
	}
	quoted := make([]string, len(s))
	for i, v := range s {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func formatCronTable(cron map[string]string) string {
	if len(cron) == 0 {
		return ""
	}
	keys := make([]string, 0, len(cron))
	for k := range cron {
		keys = append(keys, k)
	}
	// Deterministic output regardless of map iteration order.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%q = %q\n", k, cron[k])
	}
	return b.String()
}

// SetPassword bcrypt-hashes plain and stores the hash in Password, so
// the saved config file never carries the operator's password in the
// clear.
func (c *Config) SetPassword(plain string) error {
	if plain == "" {
		c.Password = ""
		return nil
	}
	hash, err := webauth.HashPassword(plain)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	c.Password = hash
	return nil
}

// CheckPassword reports whether plain matches the stored hash. Always
// false when no password is configured, so an empty Password can never
// match an empty attempt.
func (c *Config) CheckPassword(plain string) bool {
	if c.Password == "" {
		return false
	}
	return webauth.CheckPassword(c.Password, plain)
}

// GetDatabasePath returns the path to the sqlite database file.
func GetDatabasePath() string {
	dbPath, err := paths.DatabasePath()
	if err != nil {
		return "./processor.db"
	}
	return dbPath
}
