package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"QUIZLY_ADDR", "QUIZLY_CORS_ORIGINS", "QUIZLY_JWT_SECRET", "QUIZLY_TOKEN_TTL", "QUIZLY_STORE",
		"QUIZLY_SQLITE_PATH", "QUIZLY_POSTGRES_URL", "QUIZLY_MIGRATIONS_DIR", "QUIZLY_REDIS_ADDR",
		"QUIZLY_REDIS_PASSWORD", "QUIZLY_REDIS_DB", "QUIZLY_CACHE_TTL", "QUIZLY_STRICT_CHOICES",
		"QUIZLY_COMMIT", "QUIZLY_BUILD_TIME",
	} {
		t.Setenv(k, "")
	}
	// keep a stray .env in the package dir from leaking in
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Store.Kind != StoreMemory || cfg.TokenTTL() != 7*24*time.Hour {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Quiz.StrictChoices {
		t.Fatalf("strict choices must default to off")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  addr: ":9000"
  cors_origins: ["https://a.example"]
store:
  kind: sqlite
  sqlite_path: /tmp/q.db
redis:
  addr: localhost:6379
  ttl: 5m
quiz:
  strict_choices: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("QUIZLY_ADDR", ":9100")
	t.Setenv("QUIZLY_REDIS_DB", "3")
	t.Setenv("QUIZLY_STRICT_CHOICES", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9100" {
		t.Fatalf("env did not override addr: %q", cfg.Server.Addr)
	}
	if cfg.Store.Kind != StoreSQLite || cfg.Store.SQLitePath != "/tmp/q.db" || cfg.Redis.DB != 3 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.CacheTTL() != 5*time.Minute || len(cfg.Server.CORSOrigins) != 1 {
		t.Fatalf("cache ttl = %v origins = %v", cfg.CacheTTL(), cfg.Server.CORSOrigins)
	}
	if cfg.Quiz.StrictChoices {
		t.Fatalf("env should have switched strict choices off")
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown store":      {"QUIZLY_STORE": "mongo"},
		"postgres no url":    {"QUIZLY_STORE": "postgres"},
		"bad token ttl":      {"QUIZLY_TOKEN_TTL": "soon"},
		"negative cache ttl": {"QUIZLY_CACHE_TTL": "-1m"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUIZLY_STORE", "POSTGRES")
	t.Setenv("QUIZLY_POSTGRES_URL", "postgres://x")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Kind != StorePostgres {
		t.Fatalf("store kind = %q", cfg.Store.Kind)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example , ,https://b.example")
	if len(got) != 2 || got[1] != "https://b.example" {
		t.Fatalf("splitList = %v", got)
	}
}
