package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/reelforge/reelforge/internal/types"
)

func TestAppendAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "history.jsonl")
	s := New(path)
	ctx := context.Background()

	for _, topic := range []string{"first", "second", "third"} {
		if err := s.Append(ctx, types.RunRecord{Topic: topic, VideoType: "short"}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	records, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Topic != "third" || records[2].Topic != "first" {
		t.Fatalf("not newest first: %+v", records)
	}
	for _, r := range records {
		if r.ID == "" || r.CreatedAt == "" {
			t.Fatalf("record missing id or timestamp: %+v", r)
		}
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 2 || limited[0].Topic != "third" {
		t.Fatalf("limit not applied: %+v", limited)
	}
}

func TestListMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nope.jsonl"))
	records, err := s.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if records != nil {
		t.Fatalf("got %+v", records)
	}
}

func TestListSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	body := `{"id":"a","topic":"good"}
not json at all
{"id":"b","topic":"also good"}
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	records, err := New(path).List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want corrupt line skipped", len(records))
	}
}
