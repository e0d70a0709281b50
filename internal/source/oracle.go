package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/tablewright/tablewright/internal/config"
	"github.com/tablewright/tablewright/internal/dialect"
	"github.com/tablewright/tablewright/internal/schema"
)

// Oracle implements Conn for Oracle using go-ora (pure Go, no Instant Client).
// The schema argument is the owning user.
type Oracle struct {
	cfg config.ConnectionConfig
	db  *sql.DB
}

var _ Conn = (*Oracle)(nil)

// NewOracle creates an Oracle connection from config.
func NewOracle(cfg config.ConnectionConfig) *Oracle {
	return &Oracle{cfg: cfg}
}

// ConnString returns the go-ora connection URL.
func (o *Oracle) ConnString() string {
	if dsn := o.cfg.Options["dsn"]; dsn != "" {
		return dsn
	}
	opts := map[string]string{}
	if o.cfg.SSL {
		opts["SSL"] = "true"
	}
	return go_ora.BuildUrl(o.cfg.Host, o.cfg.Port, o.cfg.Database, o.cfg.Username, o.cfg.Password, opts)
}

func (o *Oracle) Connect(ctx context.Context) error {
	db, err := sql.Open("oracle", o.ConnString())
	if err != nil {
		return fmt.Errorf("opening Oracle connection: %w", err)
	}
	if o.cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(o.cfg.MaxConnections)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("pinging Oracle: %w", err)
	}
	o.db = db
	return nil
}

func (o *Oracle) Engine() dialect.Engine { return dialect.Oracle }

func (o *Oracle) Exec(ctx context.Context, query string) (*QueryResult, error) {
	return execDB(ctx, o.db, query)
}

func (o *Oracle) owner(schemaName string) string {
	if schemaName == "" {
		return strings.ToUpper(o.cfg.Username)
	}
	return schemaName
}

func (o *Oracle) Tables(ctx context.Context, schemaName string) ([]schema.TableSummary, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT TABLE_NAME FROM ALL_TABLES
		WHERE OWNER = :1
		ORDER BY TABLE_NAME`, o.owner(schemaName))
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

func (o *Oracle) TableSchema(ctx context.Context, schemaName, table string) (*schema.Table, error) {
	t := &schema.Table{Name: table, Schema: schemaName}
	owner := o.owner(schemaName)

	if err := o.readColumns(ctx, owner, t); err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	if len(t.Columns) == 0 {
		return nil, &TableNotFoundError{Schema: schemaName, Table: table}
	}
	if err := o.readPrimaryKey(ctx, owner, t); err != nil {
		return nil, fmt.Errorf("reading primary key of %s: %w", table, err)
	}
	if err := o.readForeignKeys(ctx, owner, t); err != nil {
		return nil, fmt.Errorf("reading foreign keys of %s: %w", table, err)
	}
	markPrimaryKey(t)
	return t, nil
}

func (o *Oracle) readColumns(ctx context.Context, owner string, t *schema.Table) error {
	rows, err := o.db.QueryContext(ctx, `
		SELECT COLUMN_NAME, DATA_TYPE, NULLABLE, DATA_DEFAULT
		FROM ALL_TAB_COLUMNS
		WHERE OWNER = :1 AND TABLE_NAME = :2
		ORDER BY COLUMN_ID`, owner, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var col schema.Column
		var nullable string
		var def sql.NullString
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &def); err != nil {
			return err
		}
		col.Nullable = nullable == "Y"
		if def.Valid {
			v := strings.TrimSpace(def.String)
			col.DefaultValue = &v
		}
		t.Columns = append(t.Columns, col)
	}
	return rows.Err()
}

func (o *Oracle) readPrimaryKey(ctx context.Context, owner string, t *schema.Table) error {
	rows, err := o.db.QueryContext(ctx, `
		SELECT c.CONSTRAINT_NAME, cc.COLUMN_NAME
		FROM ALL_CONSTRAINTS c
		JOIN ALL_CONS_COLUMNS cc ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME AND c.OWNER = cc.OWNER
		WHERE c.OWNER = :1 AND c.TABLE_NAME = :2
		  AND c.CONSTRAINT_TYPE = 'P'
		ORDER BY cc.POSITION`, owner, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, col string
		if err := rows.Scan(&name, &col); err != nil {
			return err
		}
		if t.PrimaryKey == nil {
			t.PrimaryKey = &schema.PrimaryKey{Name: name}
		}
		t.PrimaryKey.Columns = append(t.PrimaryKey.Columns, col)
	}
	return rows.Err()
}

func (o *Oracle) readForeignKeys(ctx context.Context, owner string, t *schema.Table) error {
	rows, err := o.db.QueryContext(ctx, `
		SELECT c.CONSTRAINT_NAME, cc.COLUMN_NAME, rc.TABLE_NAME, rcc.COLUMN_NAME
		FROM ALL_CONSTRAINTS c
		JOIN ALL_CONS_COLUMNS cc ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME AND c.OWNER = cc.OWNER
		JOIN ALL_CONSTRAINTS rc ON c.R_CONSTRAINT_NAME = rc.CONSTRAINT_NAME AND c.R_OWNER = rc.OWNER
		JOIN ALL_CONS_COLUMNS rcc ON rc.CONSTRAINT_NAME = rcc.CONSTRAINT_NAME AND rc.OWNER = rcc.OWNER
			AND cc.POSITION = rcc.POSITION
		WHERE c.OWNER = :1 AND c.TABLE_NAME = :2
		  AND c.CONSTRAINT_TYPE = 'R'
		ORDER BY c.CONSTRAINT_NAME, cc.POSITION`, owner, t.Name)
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

func (o *Oracle) Close() error {
	if o.db != nil {
		return o.db.Close()
	}
	return nil
}
