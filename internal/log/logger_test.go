package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewAddsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentLedger, Output: &buf})
	l.Info("replaced", FieldRows, 3)

	out := buf.String()
	if strings.Count(out, "component=") != 1 {
		t.Fatalf("expected a single component attr, got %q", out)
	}
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "rows=3") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Format: "json"}).WithComponent(ComponentSheets)
	if l.Component() != ComponentSheets {
		t.Fatalf("component = %q", l.Component())
	}
	l.Warn("settings sheet missing")
	if !strings.Contains(buf.String(), `"component":"sheets"`) {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("%q: got %v, want %v", in, got, want)
		}
	}
}

func TestContextLogger(t *testing.T) {
	l := Discard()
	if got := FromContext(NewContext(context.Background(), l)); got != l {
		t.Fatalf("logger not propagated")
	}
	if FromContext(context.Background()) == nil {
		t.Fatalf("fallback logger should never be nil")
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf, Level: slog.LevelDebug}))
	req := httptest.NewRequest(http.MethodPost, "/records/edit?project=A", nil)

	sl.LogHTTPEnd(context.Background(), req, 500, 12, "127.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("5xx should log at error, got %q", buf.String())
	}
	buf.Reset()
	sl.LogHTTPEnd(context.Background(), req, 409, 3, "127.0.0.1")
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Fatalf("4xx should log at warn, got %q", buf.String())
	}
	buf.Reset()
	sl.LogError(context.Background(), "replace failed", errors.New("boom"), OpReplace, NewFields().WithProject("A"))
	if !strings.Contains(buf.String(), "error=boom") || !strings.Contains(buf.String(), "operation=replace") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
