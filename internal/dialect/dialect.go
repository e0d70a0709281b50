// Package dialect holds the per-engine identifier rules shared by the DDL
// synthesizer and the connectors.
package dialect

import (
	"fmt"
	"strings"
)

// Engine is a database product tag.
type Engine string

const (
	PostgreSQL Engine = "postgresql"
	MySQL      Engine = "mysql"
	MariaDB    Engine = "mariadb"
	SQLite     Engine = "sqlite"
	Oracle     Engine = "oracle"
)

// Engines lists every supported engine.
var Engines = []Engine{PostgreSQL, MySQL, MariaDB, SQLite, Oracle}

// UnsupportedEngineError is returned for an engine tag that is not recognized.
type UnsupportedEngineError struct {
	Engine string
}

func (e *UnsupportedEngineError) Error() string {
	return fmt.Sprintf("unsupported database engine: %q (supported: postgresql, mysql, mariadb, sqlite, oracle)", e.Engine)
}

// Parse maps an engine tag, including common aliases, to an Engine.
func Parse(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgresql", "postgres", "pg":
		return PostgreSQL, nil
	case "mysql":
		return MySQL, nil
	case "mariadb":
		return MariaDB, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "oracle":
		return Oracle, nil
	}
	return "", &UnsupportedEngineError{Engine: s}
}

// Backtick reports whether the engine delimits identifiers with backticks.
func (e Engine) Backtick() bool {
	return e == MySQL || e == MariaDB
}

// Schemaless reports whether tables are addressed without a schema prefix.
func (e Engine) Schemaless() bool {
	return e == SQLite
}

// Delimiter returns the identifier quote character.
func (e Engine) Delimiter() string {
	if e.Backtick() {
		return "`"
	}
	return `"`
}

// Quote wraps name in the engine's identifier delimiter. Embedded delimiter
// characters are not escaped; callers must reject such names beforehand.
func Quote(name string, engine Engine) string {
	d := engine.Delimiter()
	return d + name + d
}

// Qualify returns schema.table with both parts quoted, or just the quoted
// table for schema-less engines.
func Qualify(schema, table string, engine Engine) string {
	if engine.Schemaless() {
		return Quote(table, engine)
	}
	return Quote(schema, engine) + "." + Quote(table, engine)
}
