package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/tablewright/tablewright/internal/config"
)

func TestMemoryStore_NewestFirst(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.Record(ctx, Entry{ConnectionID: "main", SQL: fmt.Sprintf("stmt %d", i), Status: StatusExecuted})
	}

	got, err := s.List(ctx, "main", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].SQL != "stmt 2" || got[2].SQL != "stmt 0" {
		t.Errorf("order = %q..%q, want newest first", got[0].SQL, got[2].SQL)
	}
	if got[0].ID == uuid.Nil {
		t.Error("Record should assign an id")
	}
	if got[0].ExecutedAt.IsZero() {
		t.Error("Record should assign a timestamp")
	}
}

func TestMemoryStore_RingEvictsOldest(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.Record(ctx, Entry{ConnectionID: "main", SQL: fmt.Sprintf("stmt %d", i)})
	}

	got, _ := s.List(ctx, "main", 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 retained entries, got %d", len(got))
	}
	want := []string{"stmt 4", "stmt 3", "stmt 2"}
	for i, w := range want {
		if got[i].SQL != w {
			t.Errorf("entry %d = %q, want %q", i, got[i].SQL, w)
		}
	}
}

func TestMemoryStore_FilterAndLimit(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	s.Record(ctx, Entry{ConnectionID: "a", SQL: "a1"})
	s.Record(ctx, Entry{ConnectionID: "b", SQL: "b1"})
	s.Record(ctx, Entry{ConnectionID: "a", SQL: "a2"})
	s.Record(ctx, Entry{ConnectionID: "a", SQL: "a3"})

	got, _ := s.List(ctx, "a", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].SQL != "a3" || got[1].SQL != "a2" {
		t.Errorf("got %q, %q", got[0].SQL, got[1].SQL)
	}

	all, _ := s.List(ctx, "", 0)
	if len(all) != 4 {
		t.Errorf("unfiltered list = %d entries, want 4", len(all))
	}

	none, _ := s.List(ctx, "c", 0)
	if len(none) != 0 {
		t.Errorf("expected no entries for unknown connection, got %d", len(none))
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.HistoryConfig{Backend: "memory", MaxEntries: 5})
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("expected *MemoryStore, got %T", s)
	}

	if _, err := Open(ctx, config.HistoryConfig{Backend: "redis"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := Open(ctx, config.HistoryConfig{Backend: "postgres"}); err == nil {
		t.Error("expected error for postgres without dsn")
	}
	if _, err := Open(ctx, config.HistoryConfig{Backend: "mongodb"}); err == nil {
		t.Error("expected error for mongodb without uri")
	}
}

func TestEntryFromDoc(t *testing.T) {
	id := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	e := entryFromDoc(bson.M{
		"_id":            id.String(),
		"connection_id":  "main",
		"schema":         "public",
		"sql":            `DROP TABLE "public"."users"`,
		"status":         StatusExecuted,
		"confirmed":      true,
		"dangerous_type": "drop_table",
		"executed_at":    bson.NewDateTimeFromTime(at),
		"duration_ms":    int64(12),
	})

	if e.ID != id {
		t.Errorf("id = %s, want %s", e.ID, id)
	}
	if e.ConnectionID != "main" || e.Schema != "public" {
		t.Errorf("connection/schema = %s/%s", e.ConnectionID, e.Schema)
	}
	if !e.Confirmed || e.DangerousType != "drop_table" {
		t.Errorf("confirmed=%v type=%q", e.Confirmed, e.DangerousType)
	}
	if !e.ExecutedAt.Equal(at) {
		t.Errorf("executed_at = %v, want %v", e.ExecutedAt, at)
	}
	if e.DurationMs != 12 {
		t.Errorf("duration = %d, want 12", e.DurationMs)
	}
}
