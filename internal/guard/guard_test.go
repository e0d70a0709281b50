package guard

import (
	"strings"
	"testing"
)

func TestClassify_Dangerous(t *testing.T) {
	tests := []struct {
		sql    string
		want   string
		target string
	}{
		{`DROP TABLE "public"."orders"`, DropTable, `"public"."orders"`},
		{`drop table if exists orders cascade`, DropTable, "orders"},
		{`DROP TABLE "APP"."ORDERS" CASCADE CONSTRAINTS`, DropTable, `"APP"."ORDERS"`},
		{"DROP DATABASE shop", DropDatabase, "shop"},
		{"DROP SCHEMA reporting CASCADE", DropSchema, "reporting"},
		{`ALTER TABLE "public"."orders" DROP COLUMN "note"`, DropColumn, `"public"."orders"`},
		{"ALTER TABLE `shop`.`orders` DROP `note`", DropColumn, "`shop`.`orders`"},
		{`ALTER TABLE "APP"."T" DROP ("C")`, DropColumn, `"APP"."T"`},
		{`ALTER TABLE orders DROP CONSTRAINT fk_orders_customer_id`, DropConstraint, "orders"},
		{"ALTER TABLE orders DROP FOREIGN KEY fk_orders_customer_id", DropConstraint, "orders"},
		{"TRUNCATE TABLE orders", Truncate, "orders"},
		{"truncate orders", Truncate, "orders"},
		{"DELETE FROM orders", DeleteWithoutWhere, "orders"},
		{"UPDATE orders SET status = 'x'", UpdateWithoutWhere, "orders"},
		{"SELECT 1; DROP TABLE t", DropTable, "t"},
		{"/* cleanup */ DROP   TABLE\n  t -- gone", DropTable, "t"},
	}

	for _, tt := range tests {
		c, ok := Classify(tt.sql)
		if !ok {
			t.Errorf("Classify(%q): expected dangerous", tt.sql)
			continue
		}
		if c.DangerousType != tt.want {
			t.Errorf("Classify(%q) type = %s, want %s", tt.sql, c.DangerousType, tt.want)
		}
		if c.Target != tt.target {
			t.Errorf("Classify(%q) target = %q, want %q", tt.sql, c.Target, tt.target)
		}
		if c.Message == "" {
			t.Errorf("Classify(%q): empty message", tt.sql)
		}
	}
}

func TestClassify_Safe(t *testing.T) {
	safe := []string{
		`CREATE TABLE "public"."widgets" ("id" SERIAL PRIMARY KEY)`,
		`ALTER TABLE "public"."orders" ADD COLUMN "total" numeric NOT NULL`,
		`ALTER TABLE "public"."orders" ADD CONSTRAINT "fk_orders_customer_id" FOREIGN KEY ("customer_id") REFERENCES "public"."customers" ("id")`,
		`ALTER TABLE orders ALTER COLUMN note DROP NOT NULL`,
		`ALTER TABLE orders ALTER COLUMN note DROP DEFAULT`,
		"ALTER TABLE orders DROP INDEX idx_orders_status",
		"DELETE FROM orders WHERE id = 1",
		"UPDATE orders SET status = 'x' WHERE id = 2",
		"SELECT * FROM orders",
		"-- DROP TABLE orders",
		"",
	}
	for _, sql := range safe {
		if c, ok := Classify(sql); ok {
			t.Errorf("Classify(%q) flagged as %s", sql, c.DangerousType)
		}
	}
}

func TestClassify_DropColumnMessageNamesColumn(t *testing.T) {
	c, ok := Classify(`ALTER TABLE "orders" DROP COLUMN "note"`)
	if !ok {
		t.Fatal("expected dangerous")
	}
	if !strings.Contains(c.Message, `"note"`) {
		t.Errorf("message should name the column: %s", c.Message)
	}
}

func TestClassify_QuotedText(t *testing.T) {
	tests := []struct {
		sql    string
		want   string
		target string
	}{
		{`ALTER TABLE "t--x" DROP COLUMN "secret"`, DropColumn, `"t--x"`},
		{`ALTER TABLE "main"."t/*x" DROP COLUMN "secret"`, DropColumn, `"main"."t/*x"`},
		{"ALTER TABLE `t--x` DROP `secret`", DropColumn, "`t--x`"},
		{`DROP TABLE "a;b"`, DropTable, `"a;b"`},
		{`DROP TABLE "my ""odd"" table"`, DropTable, `"my ""odd"" table"`},
		{`DELETE FROM "where"`, DeleteWithoutWhere, `"where"`},
		{`UPDATE t SET note = 'where'`, UpdateWithoutWhere, "t"},
		{`SELECT '--'; DROP TABLE t`, DropTable, "t"},
		{`SELECT $$--$$; DROP TABLE t`, DropTable, "t"},
		// "--1" is a comment for PostgreSQL but an expression for MySQL
		{"SELECT 1--1; DROP TABLE x", DropTable, "x"},
		// "#" starts a comment for MySQL only
		{"DELETE FROM t # WHERE id = 1", DeleteWithoutWhere, "t"},
	}

	for _, tt := range tests {
		c, ok := Classify(tt.sql)
		if !ok {
			t.Errorf("Classify(%q): expected dangerous", tt.sql)
			continue
		}
		if c.DangerousType != tt.want {
			t.Errorf("Classify(%q) type = %s, want %s", tt.sql, c.DangerousType, tt.want)
		}
		if c.Target != tt.target {
			t.Errorf("Classify(%q) target = %q, want %q", tt.sql, c.Target, tt.target)
		}
	}
}

func TestClassify_QuotedTextSafe(t *testing.T) {
	safe := []string{
		`CREATE TABLE "drop table x" ("id" SERIAL PRIMARY KEY)`,
		`UPDATE t SET note = 'a;DROP TABLE x' WHERE id = 1`,
		`INSERT INTO t (note) VALUES ('DELETE FROM t')`,
		`ALTER TABLE "t--x" ADD COLUMN "c" text`,
		"/* DROP TABLE t; */ SELECT 1",
	}
	for _, sql := range safe {
		if c, ok := Classify(sql); ok {
			t.Errorf("Classify(%q) flagged as %s", sql, c.DangerousType)
		}
	}
}

func TestScan_MaskKeepsOffsets(t *testing.T) {
	stmts, _ := scan("UPDATE \"a b\"\n  SET x = 'y'; -- tail\nSELECT 1", standardMode)
	if len(stmts) != 2 {
		t.Fatalf("statements = %+v", stmts)
	}
	if stmts[0].raw != `UPDATE "a b" SET x = 'y'` {
		t.Errorf("raw = %q", stmts[0].raw)
	}
	if stmts[0].masked != `UPDATE "___" SET x = '_'` {
		t.Errorf("masked = %q", stmts[0].masked)
	}
	if stmts[1].raw != "SELECT 1" {
		t.Errorf("second statement = %q", stmts[1].raw)
	}
}
