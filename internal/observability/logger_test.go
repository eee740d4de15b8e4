package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_LevelMapping(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		level        string
		debugEnabled bool
	}{
		{name: "debug level", level: "debug", debugEnabled: true},
		{name: "info level", level: "info", debugEnabled: false},
		{name: "warn level", level: "warn", debugEnabled: false},
		{name: "empty level defaults to info", level: "", debugEnabled: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tc.level)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if logger == nil {
				t.Fatal("logger should not be nil")
			}

			if got := logger.Core().Enabled(zapcore.DebugLevel); got != tc.debugEnabled {
				t.Fatalf("debug enabled=%v, want=%v", got, tc.debugEnabled)
			}
		})
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("not-a-level")
	if err == nil {
		t.Fatal("expected error for invalid level")
	}
	if logger != nil {
		t.Fatal("expected nil logger for invalid level")
	}
}

func TestOwnerID_ContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := WithOwnerID(context.Background(), "dialer-1")
	ownerID, ok := OwnerIDFromContext(ctx)
	if !ok {
		t.Fatal("expected owner id to exist")
	}
	if ownerID != "dialer-1" {
		t.Fatalf("owner id=%q, want=%q", ownerID, "dialer-1")
	}
}

func TestOwnerID_MissingValue(t *testing.T) {
	t.Parallel()

	_, ok := OwnerIDFromContext(context.Background())
	if ok {
		t.Fatal("expected owner id to be missing")
	}

	ctx := WithOwnerID(context.Background(), "")
	if _, ok := OwnerIDFromContext(ctx); ok {
		t.Fatal("expected blank owner id to be treated as missing")
	}
}

func TestWithContextLogger(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zapcore.InfoLevel)
	baseLogger := zap.New(core)

	ctx := WithOwnerID(context.Background(), "dialer-7")
	loggerWithContext := WithContextLogger(baseLogger, ctx)
	loggerWithContext.Info("message with owner")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d, want=1", len(entries))
	}

	if got := entries[0].ContextMap()["ownerId"]; got != "dialer-7" {
		t.Fatalf("ownerId=%v, want=%q", got, "dialer-7")
	}
}

func TestWithContextLogger_NoOwnerID(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zapcore.InfoLevel)
	baseLogger := zap.New(core)

	loggerWithContext := WithContextLogger(baseLogger, context.Background())
	loggerWithContext.Info("message without owner")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("entries=%d, want=1", len(entries))
	}

	if _, ok := entries[0].ContextMap()["ownerId"]; ok {
		t.Fatal("expected ownerId field to be absent")
	}
}

func TestWithContextLogger_NilLogger(t *testing.T) {
	t.Parallel()

	if got := WithContextLogger(nil, context.Background()); got != nil {
		t.Fatal("expected nil logger")
	}
}
