package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/tablewright/tablewright/internal/config"
	"github.com/tablewright/tablewright/internal/history"
	"github.com/tablewright/tablewright/internal/source"
)

type call struct {
	sql       string
	confirmed bool
}

// fakeRunner asks for confirmation on unconfirmed DROP statements.
type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	err   error
	// rawPayload returns the confirmation as a plain error string instead
	// of the typed error.
	rawPayload bool
}

func (r *fakeRunner) Execute(_ context.Context, _ string, sql string, confirmed bool) (*source.QueryResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call{sql, confirmed})
	r.mu.Unlock()

	if strings.HasPrefix(sql, "DROP") && !confirmed {
		if r.rawPayload {
			return nil, errors.New(`{"requiresConfirmation":true,"message":"drop?","dangerousType":"drop_table"}`)
		}
		return nil, &source.ConfirmationRequired{RequiresConfirmation: true, Message: "drop?", DangerousType: "drop_table"}
	}
	if r.err != nil {
		return nil, r.err
	}
	return &source.QueryResult{}, nil
}

type refreshCounter struct {
	n   int
	err error
}

func (c *refreshCounter) refresh(context.Context) error {
	c.n++
	return c.err
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSubmit_SafeStatement(t *testing.T) {
	r := &fakeRunner{}
	rc := &refreshCounter{}
	g := NewGate(r, "main", "public", rc.refresh, quiet())

	out, err := g.Submit(context.Background(), `CREATE TABLE "public"."t" ()`)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != StatusExecuted {
		t.Errorf("status = %s, want executed", out.Status)
	}
	if rc.n != 1 {
		t.Errorf("refreshed %d times, want 1", rc.n)
	}
	if g.State() != Idle {
		t.Errorf("state = %s, want idle", g.State())
	}
	if len(r.calls) != 1 || r.calls[0].confirmed {
		t.Errorf("calls = %+v", r.calls)
	}
}

func TestDropTable_ConfirmFlow(t *testing.T) {
	r := &fakeRunner{}
	rc := &refreshCounter{}
	g := NewGate(r, "main", "public", rc.refresh, quiet())
	ctx := context.Background()
	sql := `DROP TABLE "public"."users" CASCADE`

	out, err := g.Submit(ctx, sql)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != StatusConfirmationRequired {
		t.Fatalf("status = %s, want confirmation_required", out.Status)
	}
	if g.State() != AwaitingConfirmation {
		t.Errorf("state = %s, want awaiting_confirmation", g.State())
	}
	if rc.n != 0 {
		t.Errorf("no refresh expected before confirmation, got %d", rc.n)
	}
	p := g.Pending()
	if p == nil || p.SQL != sql || p.DangerousType != "drop_table" || p.Message != "drop?" {
		t.Fatalf("pending = %+v", p)
	}

	out, err = g.Confirm(ctx, p.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if out.Status != StatusExecuted {
		t.Errorf("status = %s, want executed", out.Status)
	}
	if rc.n != 1 {
		t.Errorf("refreshed %d times, want exactly 1", rc.n)
	}
	if g.Pending() != nil {
		t.Error("pending should be cleared")
	}
	if g.State() != Idle {
		t.Errorf("state = %s, want idle", g.State())
	}

	if len(r.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(r.calls))
	}
	if r.calls[0].confirmed || !r.calls[1].confirmed {
		t.Errorf("confirmed flags = %v, %v", r.calls[0].confirmed, r.calls[1].confirmed)
	}
	if r.calls[1].sql != sql {
		t.Errorf("replayed SQL = %q, want identical %q", r.calls[1].sql, sql)
	}
}

func TestConfirm_RawPayload(t *testing.T) {
	r := &fakeRunner{rawPayload: true}
	g := NewGate(r, "main", "public", nil, quiet())

	out, err := g.Submit(context.Background(), `DROP TABLE "public"."a"`)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != StatusConfirmationRequired || out.Pending == nil {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Pending.DangerousType != "drop_table" {
		t.Errorf("dangerous type = %q", out.Pending.DangerousType)
	}
}

func TestCancel(t *testing.T) {
	r := &fakeRunner{}
	rc := &refreshCounter{}
	g := NewGate(r, "main", "public", rc.refresh, quiet())
	ctx := context.Background()

	out, _ := g.Submit(ctx, `DROP TABLE "public"."a"`)
	if err := g.Cancel(ctx, out.Pending.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if g.State() != Idle || g.Pending() != nil {
		t.Errorf("state = %s, pending = %v", g.State(), g.Pending())
	}
	if len(r.calls) != 1 {
		t.Errorf("cancel must not reach the backend, calls = %d", len(r.calls))
	}
	if rc.n != 0 {
		t.Errorf("refreshed %d times, want 0", rc.n)
	}
}

func TestConfirm_WrongID(t *testing.T) {
	g := NewGate(&fakeRunner{}, "main", "public", nil, quiet())
	ctx := context.Background()

	if _, err := g.Confirm(ctx, uuid.New()); !errors.Is(err, ErrNoPending) {
		t.Errorf("confirm while idle = %v, want ErrNoPending", err)
	}

	g.Submit(ctx, `DROP TABLE "public"."a"`)
	if _, err := g.Confirm(ctx, uuid.New()); !errors.Is(err, ErrNoPending) {
		t.Errorf("confirm with wrong id = %v, want ErrNoPending", err)
	}
	if err := g.Cancel(ctx, uuid.New()); !errors.Is(err, ErrNoPending) {
		t.Errorf("cancel with wrong id = %v, want ErrNoPending", err)
	}
	if g.State() != AwaitingConfirmation {
		t.Errorf("state = %s, want awaiting_confirmation", g.State())
	}
}

func TestSubmit_BusyWhileAwaiting(t *testing.T) {
	g := NewGate(&fakeRunner{}, "main", "public", nil, quiet())
	ctx := context.Background()

	g.Submit(ctx, `DROP TABLE "public"."a"`)
	if _, err := g.Submit(ctx, `CREATE TABLE "public"."b" ()`); !errors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}
}

func TestSubmit_FailureNotRetried(t *testing.T) {
	backendErr := errors.New(`column "x" of relation "t" already exists`)
	r := &fakeRunner{err: backendErr}
	rc := &refreshCounter{}
	g := NewGate(r, "main", "public", rc.refresh, quiet())

	_, err := g.Submit(context.Background(), `ALTER TABLE "public"."t" ADD COLUMN "x" int`)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, backendErr) {
		t.Errorf("error should wrap the backend error, got %v", err)
	}
	if err.Error() != backendErr.Error() {
		t.Errorf("message = %q, want backend message verbatim", err.Error())
	}
	var ee *ExecutionError
	if !errors.As(err, &ee) || ee.SQL == "" {
		t.Errorf("expected ExecutionError carrying the SQL, got %T", err)
	}
	if len(r.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(r.calls))
	}
	if rc.n != 0 {
		t.Errorf("refreshed %d times, want 0", rc.n)
	}
	if g.State() != Idle {
		t.Errorf("state = %s, want idle", g.State())
	}
}

func TestSubmit_RefreshErrorKeepsSuccess(t *testing.T) {
	rc := &refreshCounter{err: errors.New("metadata unavailable")}
	g := NewGate(&fakeRunner{}, "main", "public", rc.refresh, quiet())

	out, err := g.Submit(context.Background(), `CREATE TABLE "public"."t" ()`)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != StatusExecuted {
		t.Errorf("status = %s, want executed", out.Status)
	}
	if out.RefreshError == nil {
		t.Error("RefreshError should be set")
	}
}

func TestRecorder(t *testing.T) {
	store := history.NewMemoryStore(10)
	g := NewGate(&fakeRunner{}, "main", "public", nil, quiet(), WithRecorder(store))
	ctx := context.Background()

	out, _ := g.Submit(ctx, `DROP TABLE "public"."a"`)
	g.Confirm(ctx, out.Pending.ID)
	out, _ = g.Submit(ctx, `DROP TABLE "public"."b"`)
	g.Cancel(ctx, out.Pending.ID)

	entries, _ := store.List(ctx, "main", 0)
	want := []string{
		history.StatusCancelled,
		history.StatusConfirmationRequired,
		history.StatusExecuted,
		history.StatusConfirmationRequired,
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, w := range want {
		if entries[i].Status != w {
			t.Errorf("entry %d status = %s, want %s", i, entries[i].Status, w)
		}
		if entries[i].Schema != "public" {
			t.Errorf("entry %d schema = %q", i, entries[i].Schema)
		}
	}
	if !entries[2].Confirmed || entries[2].DangerousType != "drop_table" {
		t.Errorf("executed entry = %+v", entries[2])
	}
}

func TestParseConfirmation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("syntax error"), false},
		{"typed", &source.ConfirmationRequired{RequiresConfirmation: true, Message: "m", DangerousType: "truncate"}, true},
		{"wrapped", errors.Join(errors.New("ctx"), &source.ConfirmationRequired{RequiresConfirmation: true}), true},
		{"json", errors.New(`{"requiresConfirmation":true,"message":"m","dangerousType":"truncate"}`), true},
		{"json false", errors.New(`{"requiresConfirmation":false}`), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseConfirmation(tt.err)
			if ok != tt.want {
				t.Errorf("ParseConfirmation(%v) = %v, want %v", tt.err, ok, tt.want)
			}
		})
	}
}

func TestEndToEnd_WithManager(t *testing.T) {
	mock := &source.MockConn{}
	mgr := source.NewManager(
		[]config.ConnectionConfig{{ID: "main", Engine: "postgresql"}},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		source.WithOpener(func(context.Context, config.ConnectionConfig) (source.Conn, error) {
			return mock, nil
		}),
	)
	rc := &refreshCounter{}
	g := NewGate(mgr, "main", "public", rc.refresh, quiet())
	ctx := context.Background()
	sql := `DROP TABLE "public"."users"`

	out, err := g.Submit(ctx, sql)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != StatusConfirmationRequired {
		t.Fatalf("status = %s, want confirmation_required", out.Status)
	}
	if len(mock.Executed()) != 0 {
		t.Fatalf("statement ran before confirmation: %v", mock.Executed())
	}

	if _, err := g.Confirm(ctx, out.Pending.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	got := mock.Executed()
	if len(got) != 1 || got[0] != sql {
		t.Errorf("executed = %v, want [%s]", got, sql)
	}
	if rc.n != 1 {
		t.Errorf("refreshed %d times, want 1", rc.n)
	}
}
