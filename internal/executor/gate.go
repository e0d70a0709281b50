package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tablewright/tablewright/internal/history"
)

// Recorder receives an entry for every terminal outcome.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// RefreshFunc reloads metadata after a successful statement.
type RefreshFunc func(ctx context.Context) error

// Gate runs statements for one (connection, schema) diagram. At most one
// statement is in flight or pending at a time.
type Gate struct {
	runner       Runner
	connectionID string
	schema       string
	onSuccess    RefreshFunc
	recorder     Recorder
	logger       *slog.Logger
	now          func() time.Time

	mu      sync.Mutex
	state   State
	pending *PendingOperation
}

// Option configures a Gate.
type Option func(*Gate)

// WithRecorder records every outcome to r.
func WithRecorder(r Recorder) Option {
	return func(g *Gate) {
		g.recorder = r
	}
}

// WithLogger sets the gate's logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// NewGate creates an idle gate. onSuccess is called exactly once after each
// statement that executes successfully; it may be nil.
func NewGate(runner Runner, connectionID, schema string, onSuccess RefreshFunc, opts ...Option) *Gate {
	g := &Gate{
		runner:       runner,
		connectionID: connectionID,
		schema:       schema,
		onSuccess:    onSuccess,
		logger:       slog.Default(),
		now:          time.Now,
		state:        Idle,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Pending returns a copy of the operation awaiting confirmation, or nil.
func (g *Gate) Pending() *PendingOperation {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return nil
	}
	p := *g.pending
	return &p
}

// Submit sends sql unconfirmed. It fails with ErrBusy unless the gate is idle.
func (g *Gate) Submit(ctx context.Context, sql string) (*Outcome, error) {
	g.mu.Lock()
	if g.state != Idle {
		g.mu.Unlock()
		return nil, ErrBusy
	}
	g.state = Executing
	g.mu.Unlock()

	return g.run(ctx, sql, false, "")
}

// Confirm replays the pending statement identified by id with the
// confirmation flag set.
func (g *Gate) Confirm(ctx context.Context, id uuid.UUID) (*Outcome, error) {
	g.mu.Lock()
	if g.state != AwaitingConfirmation || g.pending == nil || g.pending.ID != id {
		g.mu.Unlock()
		return nil, ErrNoPending
	}
	sql, dangerousType := g.pending.SQL, g.pending.DangerousType
	g.pending = nil
	g.state = Executing
	g.mu.Unlock()

	return g.run(ctx, sql, true, dangerousType)
}

// Cancel discards the pending statement identified by id. Nothing is sent
// to the backend.
func (g *Gate) Cancel(ctx context.Context, id uuid.UUID) error {
	g.mu.Lock()
	if g.state != AwaitingConfirmation || g.pending == nil || g.pending.ID != id {
		g.mu.Unlock()
		return ErrNoPending
	}
	p := g.pending
	g.pending = nil
	g.state = Idle
	g.mu.Unlock()

	g.logger.Info("operation cancelled", "connection", g.connectionID, "id", p.ID)
	g.record(ctx, history.Entry{
		SQL:           p.SQL,
		Status:        history.StatusCancelled,
		DangerousType: p.DangerousType,
	})
	return nil
}

func (g *Gate) run(ctx context.Context, sql string, confirmed bool, dangerousType string) (*Outcome, error) {
	start := g.now()
	result, err := g.runner.Execute(ctx, g.connectionID, sql, confirmed)
	elapsed := g.now().Sub(start)

	if err != nil {
		if cr, ok := ParseConfirmation(err); ok && !confirmed {
			return g.awaitConfirmation(ctx, sql, cr), nil
		}

		g.setIdle()
		g.logger.Warn("operation failed", "connection", g.connectionID, "confirmed", confirmed, "error", err)
		g.record(ctx, history.Entry{
			SQL:           sql,
			Status:        history.StatusFailed,
			Confirmed:     confirmed,
			DangerousType: dangerousType,
			Error:         err.Error(),
			DurationMs:    elapsed.Milliseconds(),
		})
		return nil, &ExecutionError{SQL: sql, Err: err}
	}

	out := &Outcome{Status: StatusExecuted, SQL: sql, Result: result}
	if g.onSuccess != nil {
		if rerr := g.onSuccess(ctx); rerr != nil {
			g.logger.Warn("refresh after operation failed", "connection", g.connectionID, "error", rerr)
			out.RefreshError = rerr
		}
	}
	g.setIdle()

	g.record(ctx, history.Entry{
		SQL:           sql,
		Status:        history.StatusExecuted,
		Confirmed:     confirmed,
		DangerousType: dangerousType,
		DurationMs:    elapsed.Milliseconds(),
	})
	return out, nil
}

func (g *Gate) awaitConfirmation(ctx context.Context, sql string, cr *ConfirmationRequired) *Outcome {
	p := &PendingOperation{
		ID:            uuid.New(),
		ConnectionID:  g.connectionID,
		Schema:        g.schema,
		SQL:           sql,
		Message:       cr.Message,
		DangerousType: cr.DangerousType,
		CreatedAt:     g.now().UTC(),
	}

	g.mu.Lock()
	g.pending = p
	g.state = AwaitingConfirmation
	g.mu.Unlock()

	g.logger.Info("operation awaiting confirmation",
		"connection", g.connectionID, "id", p.ID, "dangerous_type", p.DangerousType)
	g.record(ctx, history.Entry{
		SQL:           sql,
		Status:        history.StatusConfirmationRequired,
		DangerousType: cr.DangerousType,
	})

	cp := *p
	return &Outcome{Status: StatusConfirmationRequired, SQL: sql, Pending: &cp}
}

func (g *Gate) setIdle() {
	g.mu.Lock()
	g.state = Idle
	g.mu.Unlock()
}

func (g *Gate) record(ctx context.Context, e history.Entry) {
	if g.recorder == nil {
		return
	}
	e.ConnectionID = g.connectionID
	e.Schema = g.schema
	if err := g.recorder.Record(ctx, e); err != nil {
		g.logger.Warn("recording history failed", "connection", g.connectionID, "error", err)
	}
}
