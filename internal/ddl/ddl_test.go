package ddl

import (
	"errors"
	"strings"
	"testing"

	"github.com/tablewright/tablewright/internal/dialect"
)

func TestCreateTable(t *testing.T) {
	tests := []struct {
		engine dialect.Engine
		want   string
	}{
		{dialect.PostgreSQL, `CREATE TABLE "public"."widgets" ("id" SERIAL PRIMARY KEY)`},
		{dialect.MySQL, "CREATE TABLE `shop`.`widgets` (`id` INT AUTO_INCREMENT PRIMARY KEY)"},
		{dialect.MariaDB, "CREATE TABLE `shop`.`widgets` (`id` INT AUTO_INCREMENT PRIMARY KEY)"},
		{dialect.SQLite, `CREATE TABLE "widgets" ("id" INTEGER PRIMARY KEY AUTOINCREMENT)`},
		{dialect.Oracle, `CREATE TABLE "APP"."widgets" ("id" NUMBER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY)`},
	}
	schemas := map[dialect.Engine]string{
		dialect.PostgreSQL: "public",
		dialect.MySQL:      "shop",
		dialect.MariaDB:    "shop",
		dialect.SQLite:     "main",
		dialect.Oracle:     "APP",
	}

	for _, tt := range tests {
		got, err := New(tt.engine).CreateTable(schemas[tt.engine], "widgets")
		if err != nil {
			t.Errorf("%s: %v", tt.engine, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s:\n got  %s\n want %s", tt.engine, got, tt.want)
		}
	}
}

func TestAddColumn_NotNullNoDefault(t *testing.T) {
	sql, err := New(dialect.PostgreSQL).AddColumn("public", "orders", ColumnSpec{Name: "total", Type: "numeric(10,2)", Nullable: false})
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if !strings.Contains(sql, "NOT NULL") {
		t.Errorf("expected NOT NULL: %s", sql)
	}
	if strings.Contains(sql, "DEFAULT") {
		t.Errorf("expected no DEFAULT clause: %s", sql)
	}
	want := `ALTER TABLE "public"."orders" ADD COLUMN "total" numeric(10,2) NOT NULL`
	if sql != want {
		t.Errorf("got %s, want %s", sql, want)
	}
}

func TestAddColumn_NullableWithDefault(t *testing.T) {
	sql, err := New(dialect.MySQL).AddColumn("shop", "orders", ColumnSpec{Name: "status", Type: "varchar(20)", Nullable: true, Default: "'new'"})
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	want := "ALTER TABLE `shop`.`orders` ADD COLUMN `status` varchar(20) DEFAULT 'new'"
	if sql != want {
		t.Errorf("got %s, want %s", sql, want)
	}
}

func TestAddColumn_Oracle(t *testing.T) {
	sql, err := New(dialect.Oracle).AddColumn("APP", "ORDERS", ColumnSpec{Name: "CREATED", Type: "DATE", Default: "SYSDATE"})
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	want := `ALTER TABLE "APP"."ORDERS" ADD ("CREATED" DATE DEFAULT SYSDATE NOT NULL)`
	if sql != want {
		t.Errorf("got %s, want %s", sql, want)
	}
}

func TestAddColumn_DefaultPassthrough(t *testing.T) {
	sql, err := New(dialect.PostgreSQL).AddColumn("public", "t", ColumnSpec{Name: "c", Type: "int", Nullable: true, Default: "1 + 1"})
	if err != nil {
		t.Fatalf("AddColumn: %v", err)
	}
	if !strings.HasSuffix(sql, "DEFAULT 1 + 1") {
		t.Errorf("default should pass through verbatim: %s", sql)
	}
}

func TestAddColumn_StrictDefaults(t *testing.T) {
	s := &Synthesizer{Engine: dialect.PostgreSQL, Policy: DefaultStrict}

	allowed := []string{"0", "-1.5", "'it''s'", "NULL", "true", "CURRENT_TIMESTAMP", "now()", "gen_random_uuid()"}
	for _, def := range allowed {
		if _, err := s.AddColumn("public", "t", ColumnSpec{Name: "c", Type: "text", Nullable: true, Default: def}); err != nil {
			t.Errorf("default %q should be allowed: %v", def, err)
		}
	}

	rejected := []string{"1; DROP TABLE x", "now() || 'x'", "(SELECT 1)", "'unterminated"}
	for _, def := range rejected {
		if _, err := s.AddColumn("public", "t", ColumnSpec{Name: "c", Type: "text", Nullable: true, Default: def}); err == nil {
			t.Errorf("default %q should be rejected", def)
		}
	}
}

func TestAddColumn_Types(t *testing.T) {
	s := New(dialect.PostgreSQL)
	valid := []string{"integer", "character varying(255)", "NUMERIC(10, 2)", "timestamp with time zone", "text[]", "DOUBLE PRECISION"}
	for _, typ := range valid {
		if _, err := s.AddColumn("public", "t", ColumnSpec{Name: "c", Type: typ, Nullable: true}); err != nil {
			t.Errorf("type %q should be valid: %v", typ, err)
		}
	}
	invalid := []string{"", "int; DROP TABLE t", "int)", "varchar(abc)"}
	for _, typ := range invalid {
		if _, err := s.AddColumn("public", "t", ColumnSpec{Name: "c", Type: typ, Nullable: true}); err == nil {
			t.Errorf("type %q should be rejected", typ)
		}
	}
}

func TestDropColumn(t *testing.T) {
	sql, err := New(dialect.SQLite).DropColumn("main", "orders", "note")
	if err != nil {
		t.Fatalf("DropColumn: %v", err)
	}
	if sql != `ALTER TABLE "orders" DROP COLUMN "note"` {
		t.Errorf("got %s", sql)
	}
}

func TestDropTable(t *testing.T) {
	tests := []struct {
		engine  dialect.Engine
		cascade bool
		want    string
	}{
		{dialect.PostgreSQL, false, `DROP TABLE "public"."orders"`},
		{dialect.PostgreSQL, true, `DROP TABLE "public"."orders" CASCADE`},
		{dialect.MySQL, true, "DROP TABLE `public`.`orders` CASCADE"},
		{dialect.Oracle, true, `DROP TABLE "public"."orders" CASCADE CONSTRAINTS`},
		{dialect.SQLite, true, `DROP TABLE "orders"`},
	}
	for _, tt := range tests {
		got, err := New(tt.engine).DropTable("public", "orders", tt.cascade)
		if err != nil {
			t.Errorf("%s: %v", tt.engine, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s cascade=%v: got %s, want %s", tt.engine, tt.cascade, got, tt.want)
		}
	}
}

func TestCreateForeignKey(t *testing.T) {
	sql, err := New(dialect.PostgreSQL).CreateForeignKey("public", "orders", "customer_id", "customers", "id")
	if err != nil {
		t.Fatalf("CreateForeignKey: %v", err)
	}
	if !strings.Contains(sql, `CONSTRAINT "fk_orders_customer_id"`) {
		t.Errorf("constraint name missing: %s", sql)
	}
	want := `ALTER TABLE "public"."orders" ADD CONSTRAINT "fk_orders_customer_id" FOREIGN KEY ("customer_id") REFERENCES "public"."customers" ("id")`
	if sql != want {
		t.Errorf("got %s, want %s", sql, want)
	}
	if ConstraintName("orders", "customer_id") != "fk_orders_customer_id" {
		t.Error("ConstraintName mismatch")
	}
}

func TestCreateForeignKey_MySQL(t *testing.T) {
	sql, err := New(dialect.MariaDB).CreateForeignKey("shop", "orders", "customer_id", "customers", "id")
	if err != nil {
		t.Fatalf("CreateForeignKey: %v", err)
	}
	if !strings.Contains(sql, "CONSTRAINT `fk_orders_customer_id`") {
		t.Errorf("expected backtick constraint name: %s", sql)
	}
}

func TestCreateForeignKey_SQLiteUnsupported(t *testing.T) {
	_, err := New(dialect.SQLite).CreateForeignKey("main", "orders", "customer_id", "customers", "id")
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestInvalidIdentifiers(t *testing.T) {
	s := New(dialect.PostgreSQL)
	cases := []struct {
		schema, table string
	}{
		{"public", ""},
		{"", "orders"},
		{"public", `or"ders`},
	}
	for _, c := range cases {
		_, err := s.CreateTable(c.schema, c.table)
		var invalid *InvalidIdentifierError
		if !errors.As(err, &invalid) {
			t.Errorf("CreateTable(%q, %q): expected InvalidIdentifierError, got %v", c.schema, c.table, err)
		}
	}

	// a backtick is fine inside a double-quoted identifier
	if _, err := s.CreateTable("public", "odd`name"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := New(dialect.MySQL).DropColumn("shop", "orders", "bad`col"); err == nil {
		t.Error("expected error for backtick in mysql identifier")
	}
	// schema is not needed for sqlite
	if _, err := New(dialect.SQLite).CreateTable("", "t"); err != nil {
		t.Errorf("sqlite should not require a schema: %v", err)
	}
}

func TestParseDefaultPolicy(t *testing.T) {
	if p, err := ParseDefaultPolicy(""); err != nil || p != DefaultPassthrough {
		t.Errorf("empty: %v %v", p, err)
	}
	if p, err := ParseDefaultPolicy("STRICT"); err != nil || p != DefaultStrict {
		t.Errorf("strict: %v %v", p, err)
	}
	if _, err := ParseDefaultPolicy("lenient"); err == nil {
		t.Error("expected error")
	}
}
