// Package typemap lists the column types offered when adding a column, per
// engine.
package typemap

import (
	"regexp"
	"sort"
	"strings"

	"github.com/tablewright/tablewright/internal/dialect"
)

// Category groups column types in the add-column form.
type Category string

const (
	CategoryInteger  Category = "integer"
	CategoryDecimal  Category = "decimal"
	CategoryFloat    Category = "float"
	CategoryText     Category = "text"
	CategoryBoolean  Category = "boolean"
	CategoryDateTime Category = "datetime"
	CategoryBinary   Category = "binary"
	CategoryJSON     Category = "json"
	CategoryUUID     Category = "uuid"
)

// TypeInfo describes one column type.
type TypeInfo struct {
	Name        string   `json:"name" yaml:"name"`
	Category    Category `json:"category" yaml:"category"`
	TakesLength bool     `json:"takes_length" yaml:"takes_length"`
}

var modifiers = regexp.MustCompile(`\s*\(.*\)`)

func postgres() []TypeInfo {
	return []TypeInfo{
		{"smallint", CategoryInteger, false},
		{"integer", CategoryInteger, false},
		{"bigint", CategoryInteger, false},
		{"serial", CategoryInteger, false},
		{"bigserial", CategoryInteger, false},
		{"numeric", CategoryDecimal, true},
		{"real", CategoryFloat, false},
		{"double precision", CategoryFloat, false},
		{"varchar", CategoryText, true},
		{"character varying", CategoryText, true},
		{"char", CategoryText, true},
		{"text", CategoryText, false},
		{"boolean", CategoryBoolean, false},
		{"date", CategoryDateTime, false},
		{"time", CategoryDateTime, false},
		{"timestamp", CategoryDateTime, false},
		{"timestamptz", CategoryDateTime, false},
		{"timestamp with time zone", CategoryDateTime, false},
		{"timestamp without time zone", CategoryDateTime, false},
		{"interval", CategoryDateTime, false},
		{"bytea", CategoryBinary, false},
		{"json", CategoryJSON, false},
		{"jsonb", CategoryJSON, false},
		{"uuid", CategoryUUID, false},
	}
}

func mysql() []TypeInfo {
	return []TypeInfo{
		{"tinyint", CategoryInteger, false},
		{"smallint", CategoryInteger, false},
		{"int", CategoryInteger, false},
		{"bigint", CategoryInteger, false},
		{"decimal", CategoryDecimal, true},
		{"float", CategoryFloat, false},
		{"double", CategoryFloat, false},
		{"varchar", CategoryText, true},
		{"char", CategoryText, true},
		{"text", CategoryText, false},
		{"mediumtext", CategoryText, false},
		{"longtext", CategoryText, false},
		{"boolean", CategoryBoolean, false},
		{"date", CategoryDateTime, false},
		{"time", CategoryDateTime, false},
		{"datetime", CategoryDateTime, false},
		{"timestamp", CategoryDateTime, false},
		{"blob", CategoryBinary, false},
		{"varbinary", CategoryBinary, true},
		{"json", CategoryJSON, false},
	}
}

func sqlite() []TypeInfo {
	return []TypeInfo{
		{"INTEGER", CategoryInteger, false},
		{"REAL", CategoryFloat, false},
		{"NUMERIC", CategoryDecimal, false},
		{"TEXT", CategoryText, false},
		{"BLOB", CategoryBinary, false},
	}
}

func oracle() []TypeInfo {
	return []TypeInfo{
		{"NUMBER", CategoryDecimal, true},
		{"INTEGER", CategoryInteger, false},
		{"BINARY_FLOAT", CategoryFloat, false},
		{"BINARY_DOUBLE", CategoryFloat, false},
		{"VARCHAR2", CategoryText, true},
		{"NVARCHAR2", CategoryText, true},
		{"CHAR", CategoryText, true},
		{"CLOB", CategoryText, false},
		{"DATE", CategoryDateTime, false},
		{"TIMESTAMP", CategoryDateTime, false},
		{"TIMESTAMP WITH TIME ZONE", CategoryDateTime, false},
		{"BLOB", CategoryBinary, false},
		{"RAW", CategoryBinary, true},
	}
}

// Catalog returns the types offered for engine, in display order.
func Catalog(engine dialect.Engine) []TypeInfo {
	switch engine {
	case dialect.PostgreSQL:
		return postgres()
	case dialect.MySQL:
		return mysql()
	case dialect.MariaDB:
		// MariaDB's JSON is an alias for LONGTEXT but is still accepted
		return mysql()
	case dialect.SQLite:
		return sqlite()
	case dialect.Oracle:
		return oracle()
	}
	return nil
}

// Lookup finds the catalog entry for a type as written by a user or reported
// by the database. Length and precision modifiers are ignored and matching is
// case-insensitive.
func Lookup(engine dialect.Engine, typ string) (TypeInfo, bool) {
	base := strings.ToLower(strings.TrimSpace(modifiers.ReplaceAllString(typ, "")))
	base = strings.TrimSuffix(base, "[]")
	for _, ti := range Catalog(engine) {
		if strings.ToLower(ti.Name) == base {
			return ti, true
		}
	}
	return TypeInfo{}, false
}

// Categories returns the distinct categories of engine's catalog, sorted.
func Categories(engine dialect.Engine) []Category {
	seen := make(map[Category]bool)
	var out []Category
	for _, ti := range Catalog(engine) {
		if !seen[ti.Category] {
			seen[ti.Category] = true
			out = append(out, ti.Category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
