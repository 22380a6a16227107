package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dondog-go/pkg/logger"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(logger.Discard())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.HTTPPort)
	}
	if cfg.StoreDriver != StoreDriverPostgres {
		t.Fatalf("expected postgres store, got %q", cfg.StoreDriver)
	}
	if cfg.Pairing.InviteTTL != 24*time.Hour {
		t.Fatalf("expected 24h invite ttl, got %s", cfg.Pairing.InviteTTL)
	}
	if cfg.Pairing.CodeAttempts != 10 {
		t.Fatalf("expected 10 code attempts, got %d", cfg.Pairing.CodeAttempts)
	}
	if cfg.DB.MaxOpenConns != 10 || cfg.DB.Name != "dondog" {
		t.Fatalf("unexpected db defaults %+v", cfg.DB)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("PAIRING_INVITE_TTL", "1h")
	t.Setenv("ACCOUNT_MEDIA_DELETE_CONCURRENCY", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(logger.Discard())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.StoreDriver != StoreDriverMongo {
		t.Fatalf("expected mongo, got %q", cfg.StoreDriver)
	}
	if cfg.DB.MaxOpenConns != 25 {
		t.Fatalf("expected 25 conns, got %d", cfg.DB.MaxOpenConns)
	}
	if cfg.Pairing.InviteTTL != time.Hour {
		t.Fatalf("expected 1h, got %s", cfg.Pairing.InviteTTL)
	}
	if cfg.Account.MediaDeleteConcurrency != 3 {
		t.Fatalf("expected 3, got %d", cfg.Account.MediaDeleteConcurrency)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSOrigins)
	}
}

func TestLoadDotEnvDoesNotOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	contents := "HTTP_PORT=9090\nPOSTS_FEED_PAGE_SIZE=50\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(contents), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("HTTP_PORT", "7070")
	t.Cleanup(func() { _ = os.Unsetenv("POSTS_FEED_PAGE_SIZE") })

	cfg, err := Load(logger.Discard())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTPPort != "7070" {
		t.Fatalf("expected env to win, got %q", cfg.HTTPPort)
	}
	if cfg.Posts.FeedPageSize != 50 {
		t.Fatalf("expected .env value 50, got %d", cfg.Posts.FeedPageSize)
	}
}

func TestValidateRejectsUnknownDrivers(t *testing.T) {
	cfg := Config{StoreDriver: "sqlite", Blob: BlobConfig{Driver: BlobDriverMemory}, Pairing: PairingConfig{CodeAttempts: 1, RoomIDAttempts: 1}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown store driver")
	}

	cfg.StoreDriver = StoreDriverMemory
	cfg.Blob.Driver = BlobDriverS3
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for s3 without bucket")
	}

	cfg.Blob.Bucket = "media"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestGetDSNPrefersExplicitDSN(t *testing.T) {
	cfg := DBConfig{DSN: "postgres://x", Host: "db"}
	if cfg.GetDSN() != "postgres://x" {
		t.Fatalf("expected explicit dsn")
	}
	cfg.DSN = ""
	cfg.User = "u"
	cfg.Name = "n"
	if got := cfg.GetDSN(); got == "" || got == "postgres://x" {
		t.Fatalf("unexpected dsn %q", got)
	}
}

func TestLoadFailsOnMissingExplicitDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DOTENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	if _, err := Load(logger.Discard()); err == nil {
		t.Fatalf("expected error for missing DOTENV_FILE")
	}
}
