//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/tablewright/tablewright/internal/config"
	"github.com/tablewright/tablewright/internal/executor"
	"github.com/tablewright/tablewright/internal/source"
)

var seedSQL = []string{
	`CREATE TABLE customers (
		id serial PRIMARY KEY,
		email text NOT NULL,
		tags text[]
	)`,
	`CREATE TABLE orders (
		id serial PRIMARY KEY,
		customer_id integer NOT NULL REFERENCES customers(id),
		parent_id integer REFERENCES orders(id),
		placed_at timestamptz DEFAULT now()
	)`,
	`CREATE TABLE regions (
		country text,
		code text,
		PRIMARY KEY (country, code)
	)`,
	`CREATE TABLE stores (
		id serial PRIMARY KEY,
		country text,
		code text,
		CONSTRAINT stores_region_fk FOREIGN KEY (country, code) REFERENCES regions(country, code)
	)`,
}

func seededManager(t *testing.T) *source.Manager {
	t.Helper()
	dsn := startPostgres(t)
	mgr := source.NewManager([]config.ConnectionConfig{pgConnection(dsn)}, quietLogger())
	t.Cleanup(func() { mgr.Close() })

	for _, stmt := range seedSQL {
		if _, err := mgr.Execute(context.Background(), "pg", stmt, false); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}
	return mgr
}

func TestPostgres_FetchTables(t *testing.T) {
	mgr := seededManager(t)
	tables, err := mgr.FetchTables(context.Background(), "pg", "public")
	if err != nil {
		t.Fatalf("FetchTables: %v", err)
	}
	want := []string{"customers", "orders", "regions", "stores"}
	if len(tables) != len(want) {
		t.Fatalf("tables = %+v", tables)
	}
	for i, name := range want {
		if tables[i].Name != name {
			t.Errorf("table %d = %q, want %q", i, tables[i].Name, name)
		}
	}
}

func TestPostgres_FetchTableSchema(t *testing.T) {
	mgr := seededManager(t)
	ctx := context.Background()

	orders, err := mgr.FetchTableSchema(ctx, "pg", "public", "orders")
	if err != nil {
		t.Fatalf("FetchTableSchema: %v", err)
	}
	if orders.PrimaryKey == nil || len(orders.PrimaryKey.Columns) != 1 || orders.PrimaryKey.Columns[0] != "id" {
		t.Errorf("primary key = %+v", orders.PrimaryKey)
	}
	if len(orders.ForeignKeys) != 2 {
		t.Fatalf("foreign keys = %+v", orders.ForeignKeys)
	}

	stores, err := mgr.FetchTableSchema(ctx, "pg", "public", "stores")
	if err != nil {
		t.Fatalf("FetchTableSchema(stores): %v", err)
	}
	if len(stores.ForeignKeys) != 1 || len(stores.ForeignKeys[0].Columns) != 2 {
		t.Errorf("composite foreign key = %+v", stores.ForeignKeys)
	}

	_, err = mgr.FetchTableSchema(ctx, "pg", "public", "ghost")
	var nf *source.TableNotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("missing table err = %v, want TableNotFoundError", err)
	}
}

func TestPostgres_ConfirmationGate(t *testing.T) {
	mgr := seededManager(t)
	ctx := context.Background()

	refreshes := 0
	gate := executor.NewGate(mgr, "pg", "public", func(context.Context) error {
		refreshes++
		return nil
	})

	out, err := gate.Submit(ctx, `DROP TABLE "public"."stores"`)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != executor.StatusConfirmationRequired {
		t.Fatalf("status = %q", out.Status)
	}
	if _, err := mgr.FetchTableSchema(ctx, "pg", "public", "stores"); err != nil {
		t.Fatalf("stores must still exist before confirmation: %v", err)
	}

	if _, err := gate.Confirm(ctx, out.Pending.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", refreshes)
	}
	if _, err := mgr.FetchTableSchema(ctx, "pg", "public", "stores"); err == nil {
		t.Error("stores still exists after confirmed drop")
	}
}

func TestPostgres_ExecutionErrorVerbatim(t *testing.T) {
	mgr := seededManager(t)
	gate := executor.NewGate(mgr, "pg", "public", nil)

	_, err := gate.Submit(context.Background(), `ALTER TABLE "public"."ghost" ADD COLUMN "x" text`)
	var ee *executor.ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want ExecutionError", err)
	}
	if ee.Error() != ee.Err.Error() {
		t.Errorf("message rewritten: %q", ee.Error())
	}
}
