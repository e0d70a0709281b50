package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// SQLite driver (pure Go)
	_ "modernc.org/sqlite"

	"github.com/tablewright/tablewright/internal/config"
	"github.com/tablewright/tablewright/internal/dialect"
	"github.com/tablewright/tablewright/internal/schema"
)

// SQLite implements Conn for SQLite files. SQLite has no schemas; the schema
// argument is accepted and echoed back but does not affect lookups.
type SQLite struct {
	path string
	db   *sql.DB
}

var _ Conn = (*SQLite)(nil)

// NewSQLite creates a SQLite connection for the file in cfg.Path, or an
// in-memory database when the path is ":memory:".
func NewSQLite(cfg config.ConnectionConfig) *SQLite {
	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	return &SQLite{path: path}
}

func (s *SQLite) Connect(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("opening SQLite database: %w", err)
	}
	// a single connection keeps :memory: databases and PRAGMAs consistent
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("opening SQLite database %s: %w", s.path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	s.db = db
	return nil
}

func (s *SQLite) Engine() dialect.Engine { return dialect.SQLite }

func (s *SQLite) Exec(ctx context.Context, query string) (*QueryResult, error) {
	return execDB(ctx, s.db, query)
}

func (s *SQLite) Tables(ctx context.Context, schemaName string) ([]schema.TableSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []schema.TableSummary
	for rows.Next() {
		t := schema.TableSummary{Schema: schemaName}
		if err := rows.Scan(&t.Name); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (s *SQLite) TableSchema(ctx context.Context, schemaName, table string) (*schema.Table, error) {
	t := &schema.Table{Name: table, Schema: schemaName}

	if err := s.readColumns(ctx, t); err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	if len(t.Columns) == 0 {
		return nil, &TableNotFoundError{Schema: schemaName, Table: table}
	}
	if err := s.readForeignKeys(ctx, t); err != nil {
		return nil, fmt.Errorf("reading foreign keys of %s: %w", table, err)
	}
	markPrimaryKey(t)
	return t, nil
}

func (s *SQLite) readColumns(ctx context.Context, t *schema.Table) error {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+dialect.Quote(t.Name, dialect.SQLite)+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	type pkCol struct {
		name string
		pos  int
	}
	var pks []pkCol

	for rows.Next() {
		var (
			cid     int
			col     schema.Column
			notNull int
			def     sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.DataType, &notNull, &def, &pk); err != nil {
			return err
		}
		col.Nullable = notNull == 0
		if def.Valid {
			v := def.String
			col.DefaultValue = &v
		}
		if pk > 0 {
			pks = append(pks, pkCol{col.Name, pk})
		}
		t.Columns = append(t.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(pks) > 0 {
		t.PrimaryKey = &schema.PrimaryKey{Name: "pk_" + t.Name, Columns: make([]string, len(pks))}
		for _, p := range pks {
			if p.pos-1 < len(pks) {
				t.PrimaryKey.Columns[p.pos-1] = p.name
			}
		}
	}
	return nil
}

// readForeignKeys groups PRAGMA foreign_key_list rows by id. SQLite keeps no
// constraint names, so each key is named fk_<table>_<id>.
func (s *SQLite) readForeignKeys(ctx context.Context, t *schema.Table) error {
	rows, err := s.db.QueryContext(ctx, "PRAGMA foreign_key_list("+dialect.Quote(t.Name, dialect.SQLite)+")")
	if err != nil {
		return err
	}
	defer rows.Close()

	var fkRows []fkRow
	for rows.Next() {
		var (
			id, seq                         int
			refTable, from                  string
			to                              sql.NullString
			onUpdate, onDelete, matchClause string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &matchClause); err != nil {
			return err
		}
		fkRows = append(fkRows, fkRow{
			constraint: fmt.Sprintf("fk_%s_%d", t.Name, id),
			column:     from,
			refTable:   refTable,
			refColumn:  strings.TrimSpace(to.String),
		})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// PRAGMA lists keys in descending id order
	fks := groupForeignKeys(t.Name, fkRows)
	for i, j := 0, len(fks)-1; i < j; i, j = i+1, j-1 {
		fks[i], fks[j] = fks[j], fks[i]
	}
	t.ForeignKeys = fks
	return nil
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
