// Package engine is the application core shared by the CLI and the web
// server. It owns the database connections, the history store and one
// diagram session per (connection, schema).
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tablewright/tablewright/internal/config"
	"github.com/tablewright/tablewright/internal/ddl"
	"github.com/tablewright/tablewright/internal/diagram"
	"github.com/tablewright/tablewright/internal/dialect"
	"github.com/tablewright/tablewright/internal/executor"
	"github.com/tablewright/tablewright/internal/export"
	"github.com/tablewright/tablewright/internal/history"
	"github.com/tablewright/tablewright/internal/schema"
	"github.com/tablewright/tablewright/internal/source"
	"github.com/tablewright/tablewright/internal/state"
	"github.com/tablewright/tablewright/internal/typemap"
)

// Notifier is told about diagram events so they can be pushed to clients.
type Notifier interface {
	DiagramChanged(connectionID, schema string, view *diagram.View)
	ConfirmationRequired(connectionID, schema string, p *executor.PendingOperation)
	OperationFailed(connectionID, schema, sql, message string)
}

type sessionKey struct {
	connection string
	schema     string
}

// Engine is the core shared by all interfaces.
type Engine struct {
	Config *config.Config
	Logger *slog.Logger

	sources       *source.Manager
	history       history.Store
	workspacePath string

	mu       sync.Mutex
	sessions map[sessionKey]*diagram.Session
	notifier Notifier
}

// Option configures an Engine.
type Option func(*Engine)

// WithSources replaces the connection manager built from config.
func WithSources(m *source.Manager) Option {
	return func(e *Engine) { e.sources = m }
}

// WithHistory replaces the history store selected by config.
func WithHistory(s history.Store) Option {
	return func(e *Engine) { e.history = s }
}

// WithWorkspacePath overrides where the workspace file lives.
func WithWorkspacePath(path string) Option {
	return func(e *Engine) { e.workspacePath = path }
}

// New creates an Engine for cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		Config:        cfg,
		Logger:        logger,
		workspacePath: cfg.Workspace,
		sessions:      make(map[sessionKey]*diagram.Session),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.sources == nil {
		e.sources = source.NewManager(cfg.Connections, logger)
	}
	if e.history == nil {
		store, err := history.Open(ctx, cfg.History)
		if err != nil {
			return nil, fmt.Errorf("opening history store: %w", err)
		}
		e.history = store
	}
	return e, nil
}

// SetNotifier registers the receiver of diagram events.
func (e *Engine) SetNotifier(n Notifier) {
	e.mu.Lock()
	e.notifier = n
	e.mu.Unlock()
}

func (e *Engine) currentNotifier() Notifier {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.notifier
}

// Sources returns the connection manager.
func (e *Engine) Sources() *source.Manager { return e.sources }

// Connections returns the configured connections with passwords masked.
func (e *Engine) Connections() []config.ConnectionConfig {
	out := make([]config.ConnectionConfig, 0, len(e.Config.Connections))
	for _, c := range e.Config.Connections {
		out = append(out, c.Redacted())
	}
	return out
}

// ResolveSchema returns schemaName, or the connection's default schema when
// it is empty.
func (e *Engine) ResolveSchema(connectionID, schemaName string) (string, error) {
	cc, ok := e.Config.Connection(connectionID)
	if !ok {
		return "", &source.UnknownConnectionError{ID: connectionID}
	}
	if schemaName != "" {
		return schemaName, nil
	}
	return cc.DefaultSchema(), nil
}

// Tables lists the tables of a schema.
func (e *Engine) Tables(ctx context.Context, connectionID, schemaName string) ([]schema.TableSummary, error) {
	schemaName, err := e.ResolveSchema(connectionID, schemaName)
	if err != nil {
		return nil, err
	}
	return e.sources.FetchTables(ctx, connectionID, schemaName)
}

// TableSchema returns the full descriptor of one table.
func (e *Engine) TableSchema(ctx context.Context, connectionID, schemaName, table string) (*schema.Table, error) {
	schemaName, err := e.ResolveSchema(connectionID, schemaName)
	if err != nil {
		return nil, err
	}
	return e.sources.FetchTableSchema(ctx, connectionID, schemaName, table)
}

// Session returns an already open diagram session.
func (e *Engine) Session(connectionID, schemaName string) (*diagram.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[sessionKey{connectionID, schemaName}]
	return s, ok
}

// Diagram returns the session for (connectionID, schemaName), creating and
// loading it on first use.
func (e *Engine) Diagram(ctx context.Context, connectionID, schemaName string) (*diagram.Session, error) {
	schemaName, err := e.ResolveSchema(connectionID, schemaName)
	if err != nil {
		return nil, err
	}
	if s, ok := e.Session(connectionID, schemaName); ok {
		return s, nil
	}

	eng, err := e.sources.Engine(connectionID)
	if err != nil {
		return nil, err
	}
	policy, err := ddl.ParseDefaultPolicy(e.Config.DDL.DefaultPolicy)
	if err != nil {
		return nil, err
	}

	opts := e.Config.Diagram
	if ws, err := state.Load(e.workspacePath); err == nil && ws.LayoutStrategy != "" {
		opts.Strategy = ws.LayoutStrategy
	}

	rec := &notifyingRecorder{engine: e, store: e.history}
	s := diagram.New(e.sources, connectionID, schemaName, eng,
		diagram.WithLayout(opts),
		diagram.WithDefaultPolicy(policy),
		diagram.WithRecorder(rec),
		diagram.WithLogger(e.Logger),
		diagram.WithOnChange(func(v *diagram.View) {
			if n := e.currentNotifier(); n != nil {
				n.DiagramChanged(connectionID, schemaName, v)
			}
		}),
	)
	rec.session = s

	if err := s.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("loading diagram %s/%s: %w", connectionID, schemaName, err)
	}

	e.mu.Lock()
	if existing, ok := e.sessions[sessionKey{connectionID, schemaName}]; ok {
		e.mu.Unlock()
		return existing, nil
	}
	e.sessions[sessionKey{connectionID, schemaName}] = s
	e.mu.Unlock()

	e.Logger.Info("diagram opened", "connection", connectionID, "schema", schemaName, "engine", eng)
	e.rememberOpened(connectionID, schemaName)
	return s, nil
}

func (e *Engine) rememberOpened(connectionID, schemaName string) {
	ws, err := state.Load(e.workspacePath)
	if err != nil {
		e.Logger.Warn("loading workspace failed", "error", err)
		return
	}
	ws.Opened(connectionID, schemaName, time.Now().UTC())
	if err := ws.Save(e.workspacePath); err != nil {
		e.Logger.Warn("saving workspace failed", "error", err)
	}
}

// History returns recorded operations for a connection, newest first.
func (e *Engine) History(ctx context.Context, connectionID string, limit int) ([]history.Entry, error) {
	return e.history.List(ctx, connectionID, limit)
}

// Workspace loads the persisted workspace.
func (e *Engine) Workspace() (*state.Workspace, error) {
	return state.Load(e.workspacePath)
}

// SaveWorkspace persists ws.
func (e *Engine) SaveWorkspace(ws *state.Workspace) error {
	return ws.Save(e.workspacePath)
}

// ColumnTypes returns the type catalog for an engine tag.
func (e *Engine) ColumnTypes(engineName string) ([]typemap.TypeInfo, error) {
	eng, err := dialect.Parse(engineName)
	if err != nil {
		return nil, err
	}
	return typemap.Catalog(eng), nil
}

// NewExporter creates an S3 exporter from the export config. A non-empty
// bucket overrides the configured one.
func (e *Engine) NewExporter(ctx context.Context, bucket string) (*export.S3Exporter, error) {
	if bucket == "" {
		bucket = e.Config.Export.Bucket
	}
	return export.NewS3Exporter(ctx, bucket, e.Config.Export.Profile, e.Config.Export.Region)
}

// Export writes the diagram bundle for (connectionID, schemaName) through
// exp. An empty prefix uses the configured one.
func (e *Engine) Export(ctx context.Context, connectionID, schemaName string, exp export.Exporter, prefix string) ([]string, error) {
	s, err := e.Diagram(ctx, connectionID, schemaName)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = e.Config.Export.Prefix
	}
	keys, err := export.Bundle(ctx, exp, prefix, s)
	if err != nil {
		return nil, err
	}
	e.Logger.Info("diagram exported", "connection", connectionID, "schema", s.Schema(), "objects", len(keys))
	return keys, nil
}

// Close releases connections and the history store.
func (e *Engine) Close(ctx context.Context) error {
	return errors.Join(e.sources.Close(), e.history.Close(ctx))
}

// notifyingRecorder stores history entries and forwards confirmation and
// failure events to the notifier.
type notifyingRecorder struct {
	engine  *Engine
	store   history.Store
	session *diagram.Session
}

func (r *notifyingRecorder) Record(ctx context.Context, entry history.Entry) error {
	err := r.store.Record(ctx, entry)

	n := r.engine.currentNotifier()
	if n == nil {
		return err
	}
	switch entry.Status {
	case history.StatusConfirmationRequired:
		if p := r.session.Pending(); p != nil {
			n.ConfirmationRequired(entry.ConnectionID, entry.Schema, p)
		}
	case history.StatusFailed:
		n.OperationFailed(entry.ConnectionID, entry.Schema, entry.SQL, entry.Error)
	}
	return err
}
