// Package diagram keeps the live relationship diagram of one schema and turns
// user edits into gated DDL.
package diagram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tablewright/tablewright/internal/ddl"
	"github.com/tablewright/tablewright/internal/dialect"
	"github.com/tablewright/tablewright/internal/executor"
	"github.com/tablewright/tablewright/internal/graph"
	"github.com/tablewright/tablewright/internal/layout"
	"github.com/tablewright/tablewright/internal/schema"
)

// fetchConcurrency bounds parallel table reads during a refresh.
const fetchConcurrency = 8

// Fetcher reads table metadata.
type Fetcher interface {
	FetchTables(ctx context.Context, connectionID, schemaName string) ([]schema.TableSummary, error)
	FetchTableSchema(ctx context.Context, connectionID, schemaName, table string) (*schema.Table, error)
}

// Backend is the query-execution collaborator a session talks to.
type Backend interface {
	Fetcher
	executor.Runner
}

// View is what a client draws.
type View struct {
	ConnectionID   string         `json:"connection_id"`
	Schema         string         `json:"schema"`
	Engine         dialect.Engine `json:"engine"`
	Layout         string         `json:"layout"`
	Nodes          []graph.Node   `json:"nodes"`
	Edges          []graph.Edge   `json:"edges"`
	Cycles         [][]string     `json:"cycles,omitempty"`
	SelfReferences []string       `json:"self_references,omitempty"`
	Tables         []schema.Table `json:"tables"`
	RefreshedAt    time.Time      `json:"refreshed_at"`
}

// IntentError reports an edit that could not be turned into a statement.
// Nothing was sent to the backend.
type IntentError struct {
	Intent string
	Err    error
}

func (e *IntentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Intent, e.Err)
}

func (e *IntentError) Unwrap() error { return e.Err }

// Session is the diagram of one (connection, schema) pair.
type Session struct {
	connectionID string
	schema       string
	engine       dialect.Engine
	backend      Backend
	synth        *ddl.Synthesizer
	gate         *executor.Gate
	logger       *slog.Logger

	gateOpts []executor.Option

	// refreshes numbers Refresh calls in start order; applied is the newest
	// one whose snapshot reached the view.
	refreshes atomic.Uint64

	mu       sync.RWMutex
	applied  uint64
	opts     layout.Options
	tables   []schema.Table
	graph    *graph.Graph
	view     *View
	onChange []func(*View)
}

// Option configures a Session.
type Option func(*Session)

// WithLayout sets the initial layout options.
func WithLayout(opts layout.Options) Option {
	return func(s *Session) {
		s.opts = opts
	}
}

// WithDefaultPolicy sets the DEFAULT expression policy for AddColumn.
func WithDefaultPolicy(p ddl.DefaultPolicy) Option {
	return func(s *Session) {
		s.synth.Policy = p
	}
}

// WithRecorder records every statement outcome.
func WithRecorder(r executor.Recorder) Option {
	return func(s *Session) {
		s.gateOpts = append(s.gateOpts, executor.WithRecorder(r))
	}
}

// WithLogger sets the session's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithOnChange registers a hook fired after every rebuild.
func WithOnChange(fn func(*View)) Option {
	return func(s *Session) {
		s.onChange = append(s.onChange, fn)
	}
}

// New creates a session. Call Refresh to load the first view.
func New(backend Backend, connectionID, schemaName string, engine dialect.Engine, opts ...Option) *Session {
	s := &Session{
		connectionID: connectionID,
		schema:       schemaName,
		engine:       engine,
		backend:      backend,
		synth:        ddl.New(engine),
		logger:       slog.Default(),
		opts:         layout.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	gateOpts := append([]executor.Option{executor.WithLogger(s.logger)}, s.gateOpts...)
	s.gate = executor.NewGate(backend, connectionID, schemaName, s.Refresh, gateOpts...)
	return s
}

// ConnectionID returns the session's connection.
func (s *Session) ConnectionID() string { return s.connectionID }

// Schema returns the session's schema.
func (s *Session) Schema() string { return s.schema }

// Engine returns the session's engine.
func (s *Session) Engine() dialect.Engine { return s.engine }

// OnChange registers fn to be called after every rebuild.
func (s *Session) OnChange(fn func(*View)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// Refresh refetches every table of the schema and replaces the view
// wholesale. On error the previous view is kept. A refresh that finishes
// after a later-started one has been applied is discarded.
func (s *Session) Refresh(ctx context.Context) error {
	gen := s.refreshes.Add(1)
	summaries, err := s.backend.FetchTables(ctx, s.connectionID, s.schema)
	if err != nil {
		return err
	}

	tables := make([]schema.Table, len(summaries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, ts := range summaries {
		g.Go(func() error {
			t, err := s.backend.FetchTableSchema(gctx, s.connectionID, s.schema, ts.Name)
			if err != nil {
				return err
			}
			tables[i] = *t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	if gen < s.applied {
		s.mu.Unlock()
		s.logger.Debug("discarding stale refresh",
			"connection", s.connectionID, "schema", s.schema, "generation", gen)
		return nil
	}
	view, err := s.rebuildLocked(tables)
	if err == nil {
		s.applied = gen
	}
	hooks := append([]func(*View){}, s.onChange...)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Debug("diagram refreshed",
		"connection", s.connectionID, "schema", s.schema,
		"tables", len(view.Nodes), "edges", len(view.Edges))
	for _, fn := range hooks {
		fn(view)
	}
	return nil
}

// rebuildLocked derives graph and view from tables. s.mu must be held.
func (s *Session) rebuildLocked(tables []schema.Table) (*View, error) {
	g := graph.BuildWithLogger(tables, s.logger)
	positions, err := layout.Apply(g, s.opts)
	if err != nil {
		return nil, err
	}
	g = g.WithPositions(positions)

	view := &View{
		ConnectionID:   s.connectionID,
		Schema:         s.schema,
		Engine:         s.engine,
		Layout:         s.opts.Strategy,
		Nodes:          g.Nodes,
		Edges:          g.Edges,
		Cycles:         g.DetectCycles(),
		SelfReferences: g.SelfReferences(),
		Tables:         tables,
		RefreshedAt:    time.Now().UTC(),
	}
	s.tables = tables
	s.graph = g
	s.view = view
	return view, nil
}

// View returns the current view, or nil before the first Refresh.
func (s *Session) View() *View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Graph returns the current positioned graph, or nil before the first
// Refresh.
func (s *Session) Graph() *graph.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// SetLayout re-lays out the current snapshot with another strategy. No
// metadata is refetched.
func (s *Session) SetLayout(strategy string) (*View, error) {
	if _, err := layout.ForName(strategy); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.opts.Strategy = strategy
	if s.view == nil {
		s.mu.Unlock()
		return nil, nil
	}
	view, err := s.rebuildLocked(s.tables)
	hooks := append([]func(*View){}, s.onChange...)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	for _, fn := range hooks {
		fn(view)
	}
	return view, nil
}

// Snapshot returns the current tables as a snapshot document.
func (s *Session) Snapshot() *schema.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := &schema.Snapshot{
		ConnectionID: s.connectionID,
		Engine:       string(s.engine),
		Schema:       s.schema,
		Tables:       s.tables,
	}
	if s.view != nil {
		snap.FetchedAt = s.view.RefreshedAt
	}
	return snap
}

// State returns the gate state.
func (s *Session) State() executor.State { return s.gate.State() }

// Pending returns the operation awaiting confirmation, or nil.
func (s *Session) Pending() *executor.PendingOperation { return s.gate.Pending() }

// Confirm replays the pending operation with confirmation.
func (s *Session) Confirm(ctx context.Context, id uuid.UUID) (*executor.Outcome, error) {
	return s.gate.Confirm(ctx, id)
}

// Cancel discards the pending operation.
func (s *Session) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.gate.Cancel(ctx, id)
}

// CreateTable adds a table holding only an id primary key.
func (s *Session) CreateTable(ctx context.Context, name string) (*executor.Outcome, error) {
	return s.submit(ctx, "create table", func() (string, error) {
		return s.synth.CreateTable(s.schema, name)
	})
}

// AddColumn adds a column to table.
func (s *Session) AddColumn(ctx context.Context, table string, col ddl.ColumnSpec) (*executor.Outcome, error) {
	return s.submit(ctx, "add column", func() (string, error) {
		return s.synth.AddColumn(s.schema, table, col)
	})
}

// DropColumn removes a column from table.
func (s *Session) DropColumn(ctx context.Context, table, column string) (*executor.Outcome, error) {
	return s.submit(ctx, "drop column", func() (string, error) {
		return s.synth.DropColumn(s.schema, table, column)
	})
}

// DropTable removes a table, with dependents when cascade is set.
func (s *Session) DropTable(ctx context.Context, table string, cascade bool) (*executor.Outcome, error) {
	return s.submit(ctx, "drop table", func() (string, error) {
		return s.synth.DropTable(s.schema, table, cascade)
	})
}

// Connect creates a foreign key from sourceTable.sourceColumn to
// targetTable.targetColumn.
func (s *Session) Connect(ctx context.Context, sourceTable, sourceColumn, targetTable, targetColumn string) (*executor.Outcome, error) {
	return s.submit(ctx, "create foreign key", func() (string, error) {
		return s.synth.CreateForeignKey(s.schema, sourceTable, sourceColumn, targetTable, targetColumn)
	})
}

func (s *Session) submit(ctx context.Context, intent string, build func() (string, error)) (*executor.Outcome, error) {
	sql, err := build()
	if err != nil {
		return nil, &IntentError{Intent: intent, Err: err}
	}
	s.logger.Info("submitting statement", "connection", s.connectionID, "intent", intent, "sql", sql)
	return s.gate.Submit(ctx, sql)
}

// IsIntentError reports whether err is a rejected edit.
func IsIntentError(err error) bool {
	var ie *IntentError
	return errors.As(err, &ie)
}
