// Package source connects to the databases behind the console. It executes
// statements and reads table metadata for every supported engine.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tablewright/tablewright/internal/config"
	"github.com/tablewright/tablewright/internal/dialect"
	"github.com/tablewright/tablewright/internal/schema"
)

// Conn is an open connection to one database.
type Conn interface {
	// Engine reports the connection's dialect.
	Engine() dialect.Engine

	// Exec runs a single statement and returns its rows, if any.
	Exec(ctx context.Context, sql string) (*QueryResult, error)

	// Tables lists the base tables of a schema.
	Tables(ctx context.Context, schemaName string) ([]schema.TableSummary, error)

	// TableSchema reads a table's columns, primary key and foreign keys.
	TableSchema(ctx context.Context, schemaName, table string) (*schema.Table, error)

	Close() error
}

// QueryResult is the outcome of a statement. Row values are opaque.
type QueryResult struct {
	Columns      []string      `json:"columns"`
	Rows         [][]any       `json:"rows"`
	RowsAffected int64         `json:"rows_affected"`
	Duration     time.Duration `json:"duration_ns"`
}

// ConfirmationRequired is returned by Execute when a statement is classified
// as dangerous and was not confirmed. It marshals to the wire payload
// {requiresConfirmation, message, dangerousType}.
type ConfirmationRequired struct {
	RequiresConfirmation bool   `json:"requiresConfirmation"`
	Message              string `json:"message"`
	DangerousType        string `json:"dangerousType"`
}

func (e *ConfirmationRequired) Error() string {
	data, err := json.Marshal(e)
	if err != nil {
		return e.Message
	}
	return string(data)
}

// UnknownConnectionError is returned for a connection id missing from config.
type UnknownConnectionError struct {
	ID string
}

func (e *UnknownConnectionError) Error() string {
	return fmt.Sprintf("unknown connection %q", e.ID)
}

// TableNotFoundError is returned when a table does not exist in the schema.
type TableNotFoundError struct {
	Schema string
	Table  string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %s.%s not found", e.Schema, e.Table)
}

// New opens a connection for the given configuration.
func New(ctx context.Context, cfg config.ConnectionConfig) (Conn, error) {
	engine, err := dialect.Parse(cfg.Engine)
	if err != nil {
		return nil, err
	}

	var c interface {
		Conn
		Connect(ctx context.Context) error
	}
	switch engine {
	case dialect.PostgreSQL:
		c = NewPostgres(cfg)
	case dialect.MySQL, dialect.MariaDB:
		c = NewMySQL(cfg, engine)
	case dialect.SQLite:
		c = NewSQLite(cfg)
	case dialect.Oracle:
		c = NewOracle(cfg)
	default:
		return nil, &dialect.UnsupportedEngineError{Engine: cfg.Engine}
	}

	if err := c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.ID, err)
	}
	return c, nil
}
