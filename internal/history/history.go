// Package history records the outcome of every statement submitted through a
// diagram, so a user can review what ran against which connection.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tablewright/tablewright/internal/config"
)

// Entry statuses.
const (
	StatusExecuted             = "executed"
	StatusFailed               = "failed"
	StatusConfirmationRequired = "confirmation_required"
	StatusCancelled            = "cancelled"
)

// Entry is one recorded statement outcome.
type Entry struct {
	ID            uuid.UUID `json:"id"`
	ConnectionID  string    `json:"connection_id"`
	Schema        string    `json:"schema"`
	SQL           string    `json:"sql"`
	Status        string    `json:"status"`
	Confirmed     bool      `json:"confirmed"`
	DangerousType string    `json:"dangerous_type,omitempty"`
	Error         string    `json:"error,omitempty"`
	ExecutedAt    time.Time `json:"executed_at"`
	DurationMs    int64     `json:"duration_ms"`
}

// Store persists history entries.
type Store interface {
	Record(ctx context.Context, e Entry) error
	// List returns the newest entries for a connection first. A limit of
	// zero or less returns everything retained.
	List(ctx context.Context, connectionID string, limit int) ([]Entry, error)
	Close(ctx context.Context) error
}

// Open returns the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.HistoryConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.MaxEntries), nil
	case "postgres", "postgresql":
		return NewPostgresStore(ctx, cfg.DSN)
	case "mongodb", "mongo":
		return NewMongoStore(ctx, cfg.URI, cfg.Database, cfg.Collection)
	default:
		return nil, fmt.Errorf("unknown history backend %q (supported: memory, postgres, mongodb)", cfg.Backend)
	}
}

// prepare fills in the id and timestamp of an entry if missing.
func prepare(e Entry) Entry {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.ExecutedAt.IsZero() {
		e.ExecutedAt = time.Now().UTC()
	}
	return e
}
