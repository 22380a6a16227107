package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCriticalLevelIsRenamed(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo, "text")

	log.Critical("app: init failed", "err", "boom")

	if !strings.Contains(buf.String(), "level=CRITICAL") {
		t.Fatalf("expected CRITICAL level, got %q", buf.String())
	}
}

func TestBusinessErrorSkipsNil(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelDebug, "text")

	log.BusinessError("pairing.join: failed", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected nothing logged, got %q", buf.String())
	}

	log.BusinessError("pairing.join: failed", errors.New("invalid code"), "user_id", "u1")
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "user_id=u1") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestParseLevelDefaultsByEnv(t *testing.T) {
	if got := parseLevel("", "development"); got != slog.LevelDebug {
		t.Fatalf("expected debug in development, got %v", got)
	}
	if got := parseLevel("", "production"); got != slog.LevelInfo {
		t.Fatalf("expected info in production, got %v", got)
	}
	if got := parseLevel("fatal", "production"); got != LevelCritical {
		t.Fatalf("expected critical, got %v", got)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	fallback := Discard()
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Fatalf("expected fallback logger")
	}

	scoped := fallback.With("request_id", "r1")
	ctx := WithContext(context.Background(), scoped)
	if got := FromContext(ctx, fallback); got != scoped {
		t.Fatalf("expected scoped logger from context")
	}
}

func TestServiceAttrIsAddedToJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(&buf, Options{Level: slog.LevelInfo, Service: "dondog"})

	log.With("room_id", "r1").Info("pairing.join: joined")

	out := buf.String()
	if !strings.Contains(out, `"service":"dondog"`) || !strings.Contains(out, `"room_id":"r1"`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestParseLevelExplicitInfoWins(t *testing.T) {
	if got := parseLevel("info", "development"); got != slog.LevelInfo {
		t.Fatalf("expected info, got %v", got)
	}
}
