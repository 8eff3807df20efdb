package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Quiz.TTL != 10*time.Minute || cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.XP.Pass != 100 || cfg.XP.Fail != 10 {
		t.Fatalf("unexpected xp defaults %+v", cfg.XP)
	}
	if !reflect.DeepEqual(cfg.Auth.ElevatedRoles, []string{"admin"}) {
		t.Fatalf("unexpected elevated roles %v", cfg.Auth.ElevatedRoles)
	}
	if !errors.Is(cfg.RequireAuth(), ErrMissingJWTSecret) {
		t.Fatalf("expected missing secret error")
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := []byte(`
server:
  port: "9090"
redis:
  addr: localhost:6379
  db: 2
quiz:
  ttl: 30s
auth:
  jwt_secret: file-secret
  elevated_roles: [admin, moderator]
xp:
  pass: 50
  fail: 5
`)
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("QUIZHUB_SERVER_PORT", "7070")
	t.Setenv("QUIZHUB_XP_FAIL", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("env override ignored, port=%s", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 || cfg.Quiz.TTL != 30*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.XP.Pass != 50 || cfg.XP.Fail != 7 {
		t.Fatalf("unexpected xp %+v", cfg.XP)
	}
	if !reflect.DeepEqual(cfg.Auth.ElevatedRoles, []string{"admin", "moderator"}) {
		t.Fatalf("unexpected roles %v", cfg.Auth.ElevatedRoles)
	}
	if err := cfg.RequireAuth(); err != nil {
		t.Fatalf("secret should be set: %v", err)
	}
}

func TestValidateXP(t *testing.T) {
	cases := []XP{{Pass: -1, Fail: 0}, {Pass: 10, Fail: 20}}
	for _, xp := range cases {
		if err := (Config{XP: xp}).Validate(); err == nil {
			t.Errorf("expected error for %+v", xp)
		}
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
