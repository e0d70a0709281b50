// Package ddl turns diagram edits into single SQL statements. It never
// executes anything.
package ddl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tablewright/tablewright/internal/dialect"
)

// ErrUnsupported is returned for an intent the engine cannot express as a
// single statement.
var ErrUnsupported = errors.New("operation not supported by this engine")

// InvalidIdentifierError reports a name that cannot be safely quoted.
type InvalidIdentifierError struct {
	Kind string
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s name is required", e.Kind)
	}
	return fmt.Sprintf("invalid %s name %q", e.Kind, e.Name)
}

// ColumnSpec is the add-column intent.
type ColumnSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// Synthesizer renders statements for one engine.
type Synthesizer struct {
	Engine dialect.Engine
	Policy DefaultPolicy
}

// New returns a synthesizer using the passthrough default policy.
func New(engine dialect.Engine) *Synthesizer {
	return &Synthesizer{Engine: engine, Policy: DefaultPassthrough}
}

// ConstraintName is the derived foreign key name fk_<table>_<column>.
func ConstraintName(sourceTable, sourceColumn string) string {
	return "fk_" + sourceTable + "_" + sourceColumn
}

var typePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*( [A-Za-z][A-Za-z0-9_]*)*(\s*\(\s*\d+\s*(,\s*\d+\s*)?\))?( [A-Za-z][A-Za-z0-9_]*)*(\[\])?$`)

// CreateTable creates a table holding only an auto-incrementing id primary
// key. Further columns are added with AddColumn.
func (s *Synthesizer) CreateTable(schemaName, table string) (string, error) {
	if err := s.check(schemaName, table); err != nil {
		return "", err
	}

	var id string
	switch s.Engine {
	case dialect.MySQL, dialect.MariaDB:
		id = s.quote("id") + " INT AUTO_INCREMENT PRIMARY KEY"
	case dialect.SQLite:
		id = s.quote("id") + " INTEGER PRIMARY KEY AUTOINCREMENT"
	case dialect.Oracle:
		id = s.quote("id") + " NUMBER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
	default:
		id = s.quote("id") + " SERIAL PRIMARY KEY"
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", s.qualify(schemaName, table), id), nil
}

// AddColumn adds one column. NOT NULL is added only for non-nullable
// columns; a non-empty default is checked against the synthesizer's policy
// and otherwise written as given.
func (s *Synthesizer) AddColumn(schemaName, table string, col ColumnSpec) (string, error) {
	if err := s.check(schemaName, table); err != nil {
		return "", err
	}
	if err := s.checkIdent("column", col.Name); err != nil {
		return "", err
	}
	typ := strings.TrimSpace(col.Type)
	if !typePattern.MatchString(typ) {
		return "", fmt.Errorf("invalid column type %q", col.Type)
	}
	def := strings.TrimSpace(col.Default)
	if def != "" {
		if err := s.Policy.Check(def); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	b.WriteString(s.quote(col.Name))
	b.WriteString(" ")
	b.WriteString(typ)

	if s.Engine == dialect.Oracle {
		// Oracle requires DEFAULT before NOT NULL and has no COLUMN keyword.
		if def != "" {
			b.WriteString(" DEFAULT " + def)
		}
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
		return fmt.Sprintf("ALTER TABLE %s ADD (%s)", s.qualify(schemaName, table), b.String()), nil
	}

	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if def != "" {
		b.WriteString(" DEFAULT " + def)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", s.qualify(schemaName, table), b.String()), nil
}

// DropColumn removes one column.
func (s *Synthesizer) DropColumn(schemaName, table, column string) (string, error) {
	if err := s.check(schemaName, table); err != nil {
		return "", err
	}
	if err := s.checkIdent("column", column); err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", s.qualify(schemaName, table), s.quote(column)), nil
}

// DropTable drops a table. cascade must be requested explicitly; SQLite has
// no cascade clause and ignores it.
func (s *Synthesizer) DropTable(schemaName, table string, cascade bool) (string, error) {
	if err := s.check(schemaName, table); err != nil {
		return "", err
	}
	stmt := "DROP TABLE " + s.qualify(schemaName, table)
	if cascade {
		switch s.Engine {
		case dialect.SQLite:
		case dialect.Oracle:
			stmt += " CASCADE CONSTRAINTS"
		default:
			stmt += " CASCADE"
		}
	}
	return stmt, nil
}

// CreateForeignKey adds a single-column foreign key named
// fk_<sourceTable>_<sourceColumn>. Name collisions are left to the database.
func (s *Synthesizer) CreateForeignKey(schemaName, sourceTable, sourceColumn, targetTable, targetColumn string) (string, error) {
	if s.Engine == dialect.SQLite {
		return "", fmt.Errorf("adding a foreign key to an existing table: %w", ErrUnsupported)
	}
	if err := s.check(schemaName, sourceTable); err != nil {
		return "", err
	}
	if err := s.checkIdent("table", targetTable); err != nil {
		return "", err
	}
	if err := s.checkIdent("column", sourceColumn); err != nil {
		return "", err
	}
	if err := s.checkIdent("column", targetColumn); err != nil {
		return "", err
	}

	name := ConstraintName(sourceTable, sourceColumn)
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		s.qualify(schemaName, sourceTable),
		s.quote(name),
		s.quote(sourceColumn),
		s.qualify(schemaName, targetTable),
		s.quote(targetColumn),
	), nil
}

func (s *Synthesizer) quote(name string) string {
	return dialect.Quote(name, s.Engine)
}

func (s *Synthesizer) qualify(schemaName, table string) string {
	return dialect.Qualify(schemaName, table, s.Engine)
}

func (s *Synthesizer) check(schemaName, table string) error {
	if !s.Engine.Schemaless() {
		if err := s.checkIdent("schema", schemaName); err != nil {
			return err
		}
	}
	return s.checkIdent("table", table)
}

// checkIdent rejects names that quoting cannot represent, since Quote does
// not escape the delimiter.
func (s *Synthesizer) checkIdent(kind, name string) error {
	if strings.TrimSpace(name) == "" || strings.Contains(name, s.Engine.Delimiter()) || strings.ContainsRune(name, 0) {
		return &InvalidIdentifierError{Kind: kind, Name: name}
	}
	return nil
}
