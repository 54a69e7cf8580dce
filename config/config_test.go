package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scorekit/adapters/sqlx"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Storage.Adapter != "memory" {
		t.Fatalf("default adapter = %s", cfg.Storage.Adapter)
	}
	if cfg.Leaderboard.Mirror != "skiplist" {
		t.Fatalf("default mirror = %s", cfg.Leaderboard.Mirror)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SCOREKIT_SERVER_ADDR", ":9000")
	t.Setenv("SCOREKIT_STORAGE_ADAPTER", "sql")
	t.Setenv("SCOREKIT_SERVER_READ_TIMEOUT", "15s")
	t.Setenv("SCOREKIT_SECURITY_API_KEYS", "k1, k2")
	t.Setenv("SCOREKIT_LEADERBOARD_MIRROR", "redis")
	t.Setenv("SCOREKIT_LEADERBOARD_WARM_LIMIT", "500")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Address != ":9000" {
		t.Fatalf("address = %s", cfg.Server.Address)
	}
	if cfg.Storage.Adapter != "sql" {
		t.Fatalf("adapter = %s", cfg.Storage.Adapter)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Fatalf("read timeout = %v", cfg.Server.ReadTimeout)
	}
	if len(cfg.Security.APIKeys) != 2 || cfg.Security.APIKeys[1] != "k2" {
		t.Fatalf("api keys = %v", cfg.Security.APIKeys)
	}
	if cfg.Leaderboard.Mirror != "redis" || cfg.Leaderboard.WarmLimit != 500 {
		t.Fatalf("leaderboard = %+v", cfg.Leaderboard)
	}
}

func TestValidateRejectsBadAdapter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Adapter = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidateRejectsSQLWithoutDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Adapter = "sql"
	cfg.Storage.SQL.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidateRateLimitNeedsBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Security.EnableRateLimit = true
	cfg.Security.RateLimit.RequestsPerMinute = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"environment": "staging",
		"storage": {"adapter": "sql", "sql": {"Driver": "sqlite3", "DSN": "file:test.db"}}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Environment != EnvStaging {
		t.Fatalf("environment = %s", cfg.Environment)
	}
	if cfg.Storage.Adapter != "sql" || cfg.Storage.SQL.Driver != sqlx.DriverSQLite {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	// untouched sections keep their defaults
	if cfg.Server.Address != ":8080" {
		t.Fatalf("server address = %s", cfg.Server.Address)
	}
}

func TestLoadFromFileRejectsNonJSON(t *testing.T) {
	if _, err := LoadFromFile("config.yaml"); err == nil {
		t.Fatal("expected error for non-json path")
	}
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.SQL.DSN = "postgres://user:hunter2@db:5432/scorekit"
	cfg.Leaderboard.Redis.Password = "hunter2"

	s := cfg.String()
	if strings.Contains(s, "hunter2") {
		t.Fatal("secrets leaked into String()")
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Fatal("expected redaction marker")
	}
}
