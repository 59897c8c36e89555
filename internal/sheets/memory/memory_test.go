package memory

import (
	"context"
	"errors"
	"testing"

	"sitebook/internal/sheets"
)

func TestAppendWritesHeaderOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	header := []string{"a", "b"}

	if err := s.AppendOne(ctx, header, []string{"1", "2"}); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendOne(ctx, []string{"ignored"}, []string{"3"}); err != nil {
		t.Fatal(err)
	}

	rows, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1]["a"] != "3" || rows[1]["b"] != "" {
		t.Fatalf("short row should pad with blanks, got %v", rows[1])
	}
}

func TestFailedWriteLeavesTableCleared(t *testing.T) {
	s := New()
	s.Seed([]string{"a"}, [][]string{{"x"}, {"y"}})
	boom := errors.New("quota")
	s.Fail(OpWrite, boom)

	if err := s.WriteAll(context.Background(), []string{"a"}, [][]string{{"z"}}); !errors.Is(err, boom) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if len(s.Rows()) != 0 {
		t.Fatalf("expected cleared table after failed write, got %v", s.Rows())
	}
	if s.Calls(OpWrite) != 1 {
		t.Fatalf("expected one write call, got %d", s.Calls(OpWrite))
	}
}

func TestSettingsCell(t *testing.T) {
	ctx := context.Background()
	s := New()
	if v, err := s.ReadCell(ctx); err != nil || v != "" {
		t.Fatalf("expected blank cell, got %q %v", v, err)
	}
	if err := s.WriteCell(ctx, `{"version":2}`); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.ReadCell(ctx); v != `{"version":2}` {
		t.Fatalf("got %q", v)
	}

	missing := NewWithoutSettings()
	if _, err := missing.ReadCell(ctx); !errors.Is(err, sheets.ErrSettingsNotFound) {
		t.Fatalf("expected ErrSettingsNotFound, got %v", err)
	}
	if err := missing.WriteCell(ctx, "x"); !errors.Is(err, sheets.ErrSettingsNotFound) {
		t.Fatalf("expected ErrSettingsNotFound on write, got %v", err)
	}
}
