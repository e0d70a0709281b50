package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/tablewright/tablewright/internal/config"
	"github.com/tablewright/tablewright/internal/dialect"
	"github.com/tablewright/tablewright/internal/schema"
)

// MySQL implements Conn for MySQL and MariaDB. In both a schema is a
// database.
type MySQL struct {
	cfg    config.ConnectionConfig
	engine dialect.Engine
	db     *sql.DB
}

var _ Conn = (*MySQL)(nil)

// NewMySQL creates a MySQL or MariaDB connection from config.
func NewMySQL(cfg config.ConnectionConfig, engine dialect.Engine) *MySQL {
	return &MySQL{cfg: cfg, engine: engine}
}

// DSN returns the driver connection string.
func (m *MySQL) DSN() string {
	mc := mysql.NewConfig()
	mc.User = m.cfg.Username
	mc.Passwd = m.cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	mc.DBName = m.cfg.Database
	mc.ParseTime = true
	if m.cfg.SSL {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

func (m *MySQL) Connect(ctx context.Context) error {
	db, err := sql.Open("mysql", m.DSN())
	if err != nil {
		return fmt.Errorf("opening %s connection: %w", m.engine, err)
	}
	if m.cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(m.cfg.MaxConnections)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("pinging %s: %w", m.engine, err)
	}
	m.db = db
	return nil
}

func (m *MySQL) Engine() dialect.Engine { return m.engine }

func (m *MySQL) Exec(ctx context.Context, query string) (*QueryResult, error) {
	return execDB(ctx, m.db, query)
}

func (m *MySQL) Tables(ctx context.Context, schemaName string) ([]schema.TableSummary, error) {
	query := `
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`

	rows, err := m.db.QueryContext(ctx, query, schemaName)
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

func (m *MySQL) TableSchema(ctx context.Context, schemaName, table string) (*schema.Table, error) {
	t := &schema.Table{Name: table, Schema: schemaName}

	if err := m.readColumns(ctx, t); err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	if len(t.Columns) == 0 {
		return nil, &TableNotFoundError{Schema: schemaName, Table: table}
	}
	if err := m.readForeignKeys(ctx, t); err != nil {
		return nil, fmt.Errorf("reading foreign keys of %s: %w", table, err)
	}
	markPrimaryKey(t)
	return t, nil
}

func (m *MySQL) readColumns(ctx context.Context, t *schema.Table) error {
	query := `
		SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT, COLUMN_KEY
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`

	rows, err := m.db.QueryContext(ctx, query, t.Schema, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var col schema.Column
		var nullable, key string
		var def sql.NullString
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &def, &key); err != nil {
			return err
		}
		col.Nullable = nullable == "YES"
		if def.Valid {
			v := def.String
			col.DefaultValue = &v
		}
		if key == "PRI" {
			if t.PrimaryKey == nil {
				t.PrimaryKey = &schema.PrimaryKey{Name: "PRIMARY"}
			}
			t.PrimaryKey.Columns = append(t.PrimaryKey.Columns, col.Name)
		}
		t.Columns = append(t.Columns, col)
	}
	return rows.Err()
}

func (m *MySQL) readForeignKeys(ctx context.Context, t *schema.Table) error {
	query := `
		SELECT CONSTRAINT_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		  AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY CONSTRAINT_NAME, ORDINAL_POSITION`

	rows, err := m.db.QueryContext(ctx, query, t.Schema, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	var fkRows []fkRow
	for rows.Next() {
		var r fkRow
		if err := rows.Scan(&r.constraint, &r.column, &r.refTable, &r.refColumn); err != nil {
			return err
		}
		fkRows = append(fkRows, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	t.ForeignKeys = groupForeignKeys(t.Name, fkRows)
	return nil
}

func (m *MySQL) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
