package diagram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/tablewright/tablewright/internal/config"
	"github.com/tablewright/tablewright/internal/ddl"
	"github.com/tablewright/tablewright/internal/dialect"
	"github.com/tablewright/tablewright/internal/executor"
	"github.com/tablewright/tablewright/internal/guard"
	"github.com/tablewright/tablewright/internal/history"
	"github.com/tablewright/tablewright/internal/layout"
	"github.com/tablewright/tablewright/internal/schema"
	"github.com/tablewright/tablewright/internal/source"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBackend serves fixed metadata and applies a callback on execution.
type fakeBackend struct {
	mu        sync.Mutex
	tables    map[string]schema.Table
	order     []string
	listCalls int
	executed  []string
	onExec    func(sql string)
	execErr   error
}

func newFakeBackend(tables ...schema.Table) *fakeBackend {
	b := &fakeBackend{tables: map[string]schema.Table{}}
	for _, t := range tables {
		b.tables[t.Name] = t
		b.order = append(b.order, t.Name)
	}
	return b
}

func (b *fakeBackend) FetchTables(_ context.Context, _, schemaName string) ([]schema.TableSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	var out []schema.TableSummary
	for _, name := range b.order {
		out = append(out, schema.TableSummary{Name: name, Schema: schemaName})
	}
	return out, nil
}

func (b *fakeBackend) FetchTableSchema(_ context.Context, _, schemaName, table string) (*schema.Table, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tables[table]
	if !ok {
		return nil, &source.TableNotFoundError{Schema: schemaName, Table: table}
	}
	return &t, nil
}

func (b *fakeBackend) Execute(_ context.Context, _, sql string, confirmed bool) (*source.QueryResult, error) {
	if c, dangerous := guard.Classify(sql); dangerous && !confirmed {
		return nil, &source.ConfirmationRequired{RequiresConfirmation: true, Message: c.Message, DangerousType: c.DangerousType}
	}
	if b.execErr != nil {
		return nil, b.execErr
	}
	b.mu.Lock()
	b.executed = append(b.executed, sql)
	fn := b.onExec
	b.mu.Unlock()
	if fn != nil {
		fn(sql)
	}
	return &source.QueryResult{}, nil
}

func (b *fakeBackend) drop(name string) {
	b.mu.Lock()
	delete(b.tables, name)
	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
}

func shopTables() []schema.Table {
	return []schema.Table{
		{
			Name: "users", Schema: "public",
			Columns: []schema.Column{{Name: "id", DataType: "integer", IsPrimaryKey: true}},
		},
		{
			Name: "orders", Schema: "public",
			Columns: []schema.Column{
				{Name: "id", DataType: "integer", IsPrimaryKey: true},
				{Name: "user_id", DataType: "integer", Nullable: true},
			},
			ForeignKeys: []schema.ForeignKey{{
				Name: "orders_user_id_fkey", Table: "orders",
				Columns: schema.ColumnList{"user_id"}, ReferencedTable: "users", ReferencedColumns: schema.ColumnList{"id"},
			}},
		},
	}
}

func TestRefresh_BuildsView(t *testing.T) {
	b := newFakeBackend(shopTables()...)
	s := New(b, "main", "public", dialect.PostgreSQL, WithLogger(quietLogger()))

	if s.View() != nil {
		t.Error("view should be nil before the first refresh")
	}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	v := s.View()
	if len(v.Nodes) != 2 || len(v.Edges) != 1 {
		t.Fatalf("nodes=%d edges=%d, want 2 and 1", len(v.Nodes), len(v.Edges))
	}
	e := v.Edges[0]
	if e.Source != "orders" || e.Target != "users" || e.SourceColumn != "user_id" || e.TargetColumn != "id" {
		t.Errorf("edge = %+v", e)
	}
	if v.Layout != layout.StrategyTree {
		t.Errorf("layout = %q, want tree", v.Layout)
	}

	var orders *schema.Table
	for i := range v.Tables {
		if v.Tables[i].Name == "orders" {
			orders = &v.Tables[i]
		}
	}
	if orders == nil {
		t.Fatal("orders missing from view tables")
	}
	if v.Nodes[0].Table != "users" {
		t.Errorf("nodes should follow fetch order, first = %q", v.Nodes[0].Table)
	}
}

// stallingBackend holds its first table listing until release is closed.
type stallingBackend struct {
	*fakeBackend
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *stallingBackend) FetchTables(ctx context.Context, connectionID, schemaName string) ([]schema.TableSummary, error) {
	out, err := b.fakeBackend.FetchTables(ctx, connectionID, schemaName)
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.started)
		<-b.release
	}
	return out, err
}

func TestRefresh_OlderSnapshotDoesNotOverwriteNewer(t *testing.T) {
	fake := newFakeBackend(shopTables()...)
	b := &stallingBackend{fakeBackend: fake, started: make(chan struct{}), release: make(chan struct{})}
	s := New(b, "main", "public", dialect.PostgreSQL, WithLogger(quietLogger()))
	ctx := context.Background()

	var changes []int
	var changesMu sync.Mutex
	s.OnChange(func(v *View) {
		changesMu.Lock()
		changes = append(changes, len(v.Nodes))
		changesMu.Unlock()
	})

	slow := make(chan error, 1)
	go func() { slow <- s.Refresh(ctx) }()
	<-b.started

	fake.mu.Lock()
	fake.tables["items"] = schema.Table{
		Name: "items", Schema: "public",
		Columns: []schema.Column{{Name: "id", DataType: "integer", IsPrimaryKey: true}},
	}
	fake.order = append(fake.order, "items")
	fake.mu.Unlock()

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	close(b.release)
	if err := <-slow; err != nil {
		t.Fatalf("stalled Refresh: %v", err)
	}

	if got := len(s.View().Nodes); got != 3 {
		t.Errorf("nodes = %d, want 3 from the newer snapshot", got)
	}
	changesMu.Lock()
	defer changesMu.Unlock()
	if len(changes) != 1 || changes[0] != 3 {
		t.Errorf("change notifications = %v, want [3]", changes)
	}
}

func TestRefresh_ErrorKeepsPreviousView(t *testing.T) {
	b := newFakeBackend(shopTables()...)
	s := New(b, "main", "public", dialect.PostgreSQL, WithLogger(quietLogger()))
	ctx := context.Background()

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := s.View()

	// a listed table that can no longer be read
	b.mu.Lock()
	b.order = append(b.order, "ghost")
	b.mu.Unlock()

	var nf *source.TableNotFoundError
	if err := s.Refresh(ctx); !errors.As(err, &nf) {
		t.Fatalf("Refresh error = %v, want TableNotFoundError", err)
	}
	if s.View() != before {
		t.Error("failed refresh must keep the previous view")
	}
}

func TestSetLayout_Circular(t *testing.T) {
	b := newFakeBackend(shopTables()...)
	s := New(b, "main", "public", dialect.PostgreSQL, WithLogger(quietLogger()))
	ctx := context.Background()
	s.Refresh(ctx)
	calls := b.listCalls

	v, err := s.SetLayout(layout.StrategyCircular)
	if err != nil {
		t.Fatalf("SetLayout: %v", err)
	}
	if v.Layout != layout.StrategyCircular {
		t.Errorf("layout = %q", v.Layout)
	}
	if b.listCalls != calls {
		t.Error("SetLayout must not refetch metadata")
	}
	if _, err := s.SetLayout("spiral"); err == nil {
		t.Error("expected error for unknown layout")
	}
}

func TestDropTable_ConfirmRefetchesOnce(t *testing.T) {
	b := newFakeBackend(shopTables()...)
	b.onExec = func(string) { b.drop("orders") }

	var changes int
	s := New(b, "main", "public", dialect.PostgreSQL,
		WithLogger(quietLogger()),
		WithOnChange(func(*View) { changes++ }),
	)
	ctx := context.Background()
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	listBefore, changesBefore := b.listCalls, changes

	out, err := s.DropTable(ctx, "orders", false)
	if err != nil {
		t.Fatalf("DropTable: %v", err)
	}
	if out.Status != executor.StatusConfirmationRequired {
		t.Fatalf("status = %s, want confirmation_required", out.Status)
	}
	if out.Pending.DangerousType != guard.DropTable {
		t.Errorf("dangerous type = %q", out.Pending.DangerousType)
	}
	if len(b.executed) != 0 {
		t.Fatal("nothing should execute before confirmation")
	}
	if s.State() != executor.AwaitingConfirmation {
		t.Errorf("state = %s", s.State())
	}

	out, err = s.Confirm(ctx, out.Pending.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if out.Status != executor.StatusExecuted {
		t.Errorf("status = %s, want executed", out.Status)
	}
	if len(b.executed) != 1 || b.executed[0] != `DROP TABLE "public"."orders"` {
		t.Errorf("executed = %v", b.executed)
	}
	if b.listCalls-listBefore != 1 {
		t.Errorf("refetched %d times, want 1", b.listCalls-listBefore)
	}
	if changes-changesBefore != 1 {
		t.Errorf("change hook fired %d times, want 1", changes-changesBefore)
	}

	v := s.View()
	if len(v.Nodes) != 1 || len(v.Edges) != 0 {
		t.Errorf("after drop: nodes=%d edges=%d, want 1 and 0", len(v.Nodes), len(v.Edges))
	}
}

func TestIntentErrors(t *testing.T) {
	b := newFakeBackend(shopTables()...)
	s := New(b, "main", "public", dialect.PostgreSQL,
		WithLogger(quietLogger()),
		WithDefaultPolicy(ddl.DefaultStrict),
	)
	ctx := context.Background()

	cases := map[string]func() error{
		"empty table": func() error { _, err := s.CreateTable(ctx, ""); return err },
		"quote in column": func() error {
			_, err := s.AddColumn(ctx, "users", ddl.ColumnSpec{Name: `a"b`, Type: "text", Nullable: true})
			return err
		},
		"bad type": func() error {
			_, err := s.AddColumn(ctx, "users", ddl.ColumnSpec{Name: "x", Type: "int; DROP TABLE users"})
			return err
		},
		"strict default": func() error {
			_, err := s.AddColumn(ctx, "users", ddl.ColumnSpec{Name: "x", Type: "int", Default: "1); DROP TABLE users; --"})
			return err
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			err := fn()
			if !IsIntentError(err) {
				t.Errorf("expected IntentError, got %v", err)
			}
		})
	}
	if len(b.executed) != 0 {
		t.Errorf("rejected intents must not execute, got %v", b.executed)
	}
	if s.State() != executor.Idle {
		t.Errorf("state = %s, want idle", s.State())
	}
}

func TestExecutionFailure(t *testing.T) {
	b := newFakeBackend(shopTables()...)
	b.execErr = errors.New(`relation "public"."users" already exists`)
	s := New(b, "main", "public", dialect.PostgreSQL, WithLogger(quietLogger()))
	ctx := context.Background()
	s.Refresh(ctx)
	calls := b.listCalls

	_, err := s.CreateTable(ctx, "users")
	if err == nil || err.Error() != `relation "public"."users" already exists` {
		t.Errorf("error = %v, want backend message", err)
	}
	if b.listCalls != calls {
		t.Error("failure must not refetch")
	}
}

func TestSnapshot(t *testing.T) {
	b := newFakeBackend(shopTables()...)
	s := New(b, "main", "public", dialect.PostgreSQL, WithLogger(quietLogger()))
	s.Refresh(context.Background())

	snap := s.Snapshot()
	if snap.ConnectionID != "main" || snap.Schema != "public" || snap.Engine != "postgresql" {
		t.Errorf("snapshot header = %+v", snap)
	}
	if len(snap.Tables) != 2 {
		t.Errorf("tables = %d, want 2", len(snap.Tables))
	}
	if snap.FetchedAt.IsZero() {
		t.Error("FetchedAt should be set")
	}
}

func TestSQLite_EndToEnd(t *testing.T) {
	mgr := source.NewManager(
		[]config.ConnectionConfig{{ID: "local", Engine: "sqlite", Path: ":memory:"}},
		quietLogger(),
	)
	t.Cleanup(func() { mgr.Close() })

	store := history.NewMemoryStore(20)
	s := New(mgr, "local", "main", dialect.SQLite, WithLogger(quietLogger()), WithRecorder(store))
	ctx := context.Background()

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(s.View().Nodes) != 0 {
		t.Fatalf("expected empty schema, got %d nodes", len(s.View().Nodes))
	}

	if _, err := s.CreateTable(ctx, "users"); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	out, err := s.AddColumn(ctx, "users", ddl.ColumnSpec{Name: "email", Type: "TEXT", Nullable: false, Default: "''"})
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if out.RefreshError != nil {
		t.Fatalf("refresh: %v", out.RefreshError)
	}

	v := s.View()
	if len(v.Nodes) != 1 || len(v.Nodes[0].Columns) != 2 {
		t.Fatalf("view = %+v", v.Nodes)
	}
	if v.Nodes[0].Columns[1].Name != "email" || v.Nodes[0].Columns[1].Nullable {
		t.Errorf("email column = %+v", v.Nodes[0].Columns[1])
	}

	if _, err := s.Connect(ctx, "users", "email", "users", "id"); !errors.Is(err, ddl.ErrUnsupported) {
		t.Errorf("Connect on sqlite = %v, want ErrUnsupported", err)
	}

	out, err = s.DropColumn(ctx, "users", "email")
	if err != nil {
		t.Fatalf("DropColumn: %v", err)
	}
	if out.Status != executor.StatusConfirmationRequired {
		t.Fatalf("drop column status = %s", out.Status)
	}
	if _, err := s.Confirm(ctx, out.Pending.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if cols := s.View().Nodes[0].Columns; len(cols) != 1 {
		t.Errorf("columns after drop = %d, want 1", len(cols))
	}

	out, _ = s.DropTable(ctx, "users", true)
	if err := s.Cancel(ctx, out.Pending.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(s.View().Nodes) != 1 {
		t.Error("cancelled drop must leave the table")
	}

	entries, _ := store.List(ctx, "local", 0)
	if len(entries) != 6 {
		t.Errorf("history entries = %d, want 6", len(entries))
	}
}
