package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tablewright/tablewright/internal/config"
	"github.com/tablewright/tablewright/internal/dialect"
	"github.com/tablewright/tablewright/internal/guard"
	"github.com/tablewright/tablewright/internal/schema"
)

// Opener opens a connection for a configuration entry.
type Opener func(ctx context.Context, cfg config.ConnectionConfig) (Conn, error)

// Manager routes statements and metadata reads to connections by id. It
// opens each connection on first use and keeps it until Close.
type Manager struct {
	configs map[string]config.ConnectionConfig
	open    Opener
	logger  *slog.Logger

	mu    sync.Mutex
	conns map[string]Conn
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithOpener replaces the function used to open connections.
func WithOpener(open Opener) ManagerOption {
	return func(m *Manager) {
		m.open = open
	}
}

// NewManager creates a Manager for the configured connections.
func NewManager(conns []config.ConnectionConfig, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		configs: make(map[string]config.ConnectionConfig, len(conns)),
		open:    New,
		logger:  logger,
		conns:   make(map[string]Conn),
	}
	for _, c := range conns {
		m.configs[c.ID] = c
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Conn returns the open connection for id, opening it if needed.
func (m *Manager) Conn(ctx context.Context, id string) (Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.conns[id]; ok {
		return c, nil
	}
	cfg, ok := m.configs[id]
	if !ok {
		return nil, &UnknownConnectionError{ID: id}
	}

	c, err := m.open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	m.logger.Info("connection opened", "connection", id, "engine", cfg.Engine)
	m.conns[id] = c
	return c, nil
}

// Engine returns the configured engine of a connection without opening it.
func (m *Manager) Engine(id string) (dialect.Engine, error) {
	cfg, ok := m.configs[id]
	if !ok {
		return "", &UnknownConnectionError{ID: id}
	}
	return dialect.Parse(cfg.Engine)
}

// Execute runs sql on a connection. A statement the guard classifies as
// dangerous is not run unless confirmed is true; instead a
// *ConfirmationRequired error describes it.
func (m *Manager) Execute(ctx context.Context, id, sql string, confirmed bool) (*QueryResult, error) {
	if c, dangerous := guard.Classify(sql); dangerous && !confirmed {
		m.logger.Info("statement needs confirmation",
			"connection", id, "dangerous_type", c.DangerousType, "target", c.Target)
		return nil, &ConfirmationRequired{
			RequiresConfirmation: true,
			Message:              c.Message,
			DangerousType:        c.DangerousType,
		}
	}

	conn, err := m.Conn(ctx, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := conn.Exec(ctx, sql)
	if err != nil {
		m.logger.Warn("statement failed", "connection", id, "error", err)
		return nil, err
	}
	m.logger.Info("statement executed",
		"connection", id,
		"confirmed", confirmed,
		"rows_affected", result.RowsAffected,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return result, nil
}

// FetchTables lists the tables of a schema.
func (m *Manager) FetchTables(ctx context.Context, id, schemaName string) ([]schema.TableSummary, error) {
	conn, err := m.Conn(ctx, id)
	if err != nil {
		return nil, err
	}
	tables, err := conn.Tables(ctx, schemaName)
	if err != nil {
		return nil, fmt.Errorf("fetching tables of %s on %s: %w", schemaName, id, err)
	}
	return tables, nil
}

// FetchTableSchema reads one table's full descriptor.
func (m *Manager) FetchTableSchema(ctx context.Context, id, schemaName, table string) (*schema.Table, error) {
	conn, err := m.Conn(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := conn.TableSchema(ctx, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("fetching schema of %s on %s: %w", table, id, err)
	}
	return t, nil
}

// Close closes every open connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for id, c := range m.conns {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", id, err))
		}
		delete(m.conns, id)
	}
	return errors.Join(errs...)
}
