package config

import (
	"strings"
	"testing"
)

func TestPermissionsResolveNumeric(t *testing.T) {
	p := &PermissionsConfig{User: "0", Group: "0", FileMode: "0644", DirMode: "0755"}
	if uid, err := p.ResolveUID(); err != nil || uid != 0 {
		t.Fatalf("unexpected uid: %d %v", uid, err)
	}
	if gid, err := p.ResolveGID(); err != nil || gid != 0 {
		t.Fatalf("unexpected gid: %d %v", gid, err)
	}
	if fm, err := p.ParseFileMode(); err != nil || fm == 0 {
		t.Fatalf("unexpected file mode: %v %v", fm, err)
	}
	if dm, err := p.ParseDirMode(); err != nil || dm == 0 {
		t.Fatalf("unexpected dir mode: %v %v", dm, err)
	}
}

func TestPermissionsParseShortMode(t *testing.T) {
	p := &PermissionsConfig{FileMode: "644", DirMode: "755"}
	if fm, err := p.ParseFileMode(); err != nil || fm.String() == "" {
		t.Fatalf("unexpected file mode: %v %v", fm, err)
	}
	if dm, err := p.ParseDirMode(); err != nil || dm.String() == "" {
		t.Fatalf("unexpected dir mode: %v %v", dm, err)
	}
}

func TestTMDbCircuitBreakerDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TMDb.CircuitBreaker.FailureThreshold != 5 {
		t.Errorf("expected failure threshold 5, got %d", cfg.TMDb.CircuitBreaker.FailureThreshold)
	}
	if cfg.TMDb.CircuitBreaker.FailureWindowSeconds != 120 {
		t.Errorf("expected failure window 120s, got %d", cfg.TMDb.CircuitBreaker.FailureWindowSeconds)
	}
	if cfg.TMDb.CircuitBreaker.CooldownSeconds != 30 {
		t.Errorf("expected cooldown 30s, got %d", cfg.TMDb.CircuitBreaker.CooldownSeconds)
	}
}

func TestDefaultConfig_EmbyDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Emby.WebhookJWT {
		t.Error("expected emby webhook_jwt disabled by default")
	}
	if cfg.Emby.WebhookSecret != "" {
		t.Errorf("expected emby webhook_secret default empty, got %q", cfg.Emby.WebhookSecret)
	}
	if cfg.Translation.Priorities["manual"] != 2 {
		t.Errorf("expected manual translation priority 2, got %d", cfg.Translation.Priorities["manual"])
	}
}

func TestConfigToTOMLIncludesEmbySection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Emby.URL = "http://localhost:8096"
	cfg.Emby.APIKey = "abc123"
	cfg.Emby.WebhookSecret = "secret-token"
	cfg.Emby.WebhookJWT = true

	toml := cfg.ToTOML()
	if !strings.Contains(toml, "[emby]") {
		t.Fatal("expected [emby] section in TOML output")
	}
	if !strings.Contains(toml, "webhook_jwt = true") {
		t.Fatal("expected webhook_jwt key in TOML output")
	}
	if !strings.Contains(toml, "webhook_secret = \"secret-token\"") {
		t.Fatal("expected webhook_secret key in TOML output")
	}
}

func TestConfigToTOMLIncludesSchedulerCron(t *testing.T) {
	cfg := DefaultConfig()
	toml := cfg.ToTOML()
	if !strings.Contains(toml, "[scheduler.cron]") {
		t.Fatal("expected [scheduler.cron] section in TOML output")
	}
	if !strings.Contains(toml, `"full-scan" = "0 3 * * *"`) {
		t.Fatal("expected full-scan cron entry in TOML output")
	}
}
