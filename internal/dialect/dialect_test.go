package dialect

import (
	"errors"
	"testing"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		engine Engine
		want   string
	}{
		{MySQL, "`t`"},
		{MariaDB, "`t`"},
		{PostgreSQL, `"t"`},
		{SQLite, `"t"`},
		{Oracle, `"t"`},
	}
	for _, tt := range tests {
		if got := Quote("t", tt.engine); got != tt.want {
			t.Errorf("Quote(t, %s) = %s, want %s", tt.engine, got, tt.want)
		}
	}
}

func TestQuote_NoEscaping(t *testing.T) {
	if got := Quote(`a"b`, PostgreSQL); got != `"a"b"` {
		t.Errorf("Quote should not escape, got %s", got)
	}
}

func TestQualify(t *testing.T) {
	if got := Qualify("s", "t", SQLite); got != `"t"` {
		t.Errorf("sqlite: got %s, want \"t\"", got)
	}
	if got := Qualify("public", "orders", PostgreSQL); got != `"public"."orders"` {
		t.Errorf("postgres: got %s", got)
	}
	if got := Qualify("shop", "orders", MySQL); got != "`shop`.`orders`" {
		t.Errorf("mysql: got %s", got)
	}
}

func TestParse(t *testing.T) {
	aliases := map[string]Engine{
		"postgres":   PostgreSQL,
		"PG":         PostgreSQL,
		"postgresql": PostgreSQL,
		"mysql":      MySQL,
		"MariaDB":    MariaDB,
		"sqlite3":    SQLite,
		" oracle ":   Oracle,
	}
	for in, want := range aliases {
		got, err := Parse(in)
		if err != nil {
			t.Errorf("Parse(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("Parse(%q) = %s, want %s", in, got, want)
		}
	}

	_, err := Parse("db2")
	var unsupported *UnsupportedEngineError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedEngineError, got %v", err)
	}
	if unsupported.Engine != "db2" {
		t.Errorf("error engine = %q", unsupported.Engine)
	}
}
