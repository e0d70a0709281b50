package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tablewright/tablewright/internal/config"
	"github.com/tablewright/tablewright/internal/dialect"
	"github.com/tablewright/tablewright/internal/schema"
)

// Postgres implements Conn for PostgreSQL using pgx.
type Postgres struct {
	cfg     config.ConnectionConfig
	connStr string
	pool    *pgxpool.Pool
}

var _ Conn = (*Postgres)(nil)

// NewPostgres creates a PostgreSQL connection from config. A "dsn" option
// overrides the individual host/port/database fields.
func NewPostgres(cfg config.ConnectionConfig) *Postgres {
	connStr := cfg.Options["dsn"]
	if connStr == "" {
		connStr = fmt.Sprintf(
			"host=%s port=%d dbname=%s user=%s password=%s default_query_exec_mode=simple_protocol",
			cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password,
		)
		if cfg.SSL {
			connStr += " sslmode=require"
		} else {
			connStr += " sslmode=disable"
		}
	}
	return &Postgres{cfg: cfg, connStr: connStr}
}

func (p *Postgres) Connect(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(p.connStr)
	if err != nil {
		return fmt.Errorf("parsing connection string: %w", err)
	}
	if p.cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(p.cfg.MaxConnections)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging PostgreSQL: %w", err)
	}

	p.pool = pool
	return nil
}

func (p *Postgres) Engine() dialect.Engine { return dialect.PostgreSQL }

func (p *Postgres) Exec(ctx context.Context, sql string) (*QueryResult, error) {
	start := time.Now()
	rows, err := p.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	result := &QueryResult{Columns: make([]string, len(descs)), Rows: [][]any{}}
	for i, d := range descs {
		result.Columns[i] = d.Name
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		result.Rows = append(result.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result.RowsAffected = rows.CommandTag().RowsAffected()
	result.Duration = time.Since(start)
	return result, nil
}

func (p *Postgres) Tables(ctx context.Context, schemaName string) ([]schema.TableSummary, error) {
	query := `
		SELECT c.relname
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		  AND c.relkind IN ('r', 'p')
		  AND NOT c.relispartition
		ORDER BY c.relname`

	rows, err := p.pool.Query(ctx, query, schemaName)
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

func (p *Postgres) TableSchema(ctx context.Context, schemaName, table string) (*schema.Table, error) {
	t := &schema.Table{Name: table, Schema: schemaName}

	if err := p.readColumns(ctx, t); err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	if len(t.Columns) == 0 {
		return nil, &TableNotFoundError{Schema: schemaName, Table: table}
	}
	if err := p.readPrimaryKey(ctx, t); err != nil {
		return nil, fmt.Errorf("reading primary key of %s: %w", table, err)
	}
	if err := p.readForeignKeys(ctx, t); err != nil {
		return nil, fmt.Errorf("reading foreign keys of %s: %w", table, err)
	}
	markPrimaryKey(t)
	return t, nil
}

func (p *Postgres) readColumns(ctx context.Context, t *schema.Table) error {
	query := `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	rows, err := p.pool.Query(ctx, query, t.Schema, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var col schema.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.DefaultValue); err != nil {
			return err
		}
		col.Nullable = nullable == "YES"
		t.Columns = append(t.Columns, col)
	}
	return rows.Err()
}

func (p *Postgres) readPrimaryKey(ctx context.Context, t *schema.Table) error {
	query := `
		SELECT tc.constraint_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1
		  AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`

	rows, err := p.pool.Query(ctx, query, t.Schema, t.Name)
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

// readForeignKeys reads each constraint's column lists as array text
// ({a,b}); the normalizer turns them back into ordered names.
func (p *Postgres) readForeignKeys(ctx context.Context, t *schema.Table) error {
	query := `
		SELECT con.conname,
		       ref.relname,
		       (SELECT array_agg(a.attname ORDER BY k.ord)
		          FROM unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
		          JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum)::text,
		       (SELECT array_agg(a.attname ORDER BY k.ord)
		          FROM unnest(con.confkey) WITH ORDINALITY AS k(attnum, ord)
		          JOIN pg_attribute a ON a.attrelid = con.confrelid AND a.attnum = k.attnum)::text
		FROM pg_constraint con
		JOIN pg_class src ON src.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = src.relnamespace
		JOIN pg_class ref ON ref.oid = con.confrelid
		WHERE con.contype = 'f'
		  AND n.nspname = $1
		  AND src.relname = $2
		ORDER BY con.conname`

	rows, err := p.pool.Query(ctx, query, t.Schema, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, refTable string
		var cols, refCols *string
		if err := rows.Scan(&name, &refTable, &cols, &refCols); err != nil {
			return err
		}
		t.ForeignKeys = append(t.ForeignKeys, schema.ForeignKey{
			Name:              name,
			Table:             t.Name,
			Columns:           schema.NormalizeColumns(cols),
			ReferencedTable:   refTable,
			ReferencedColumns: schema.NormalizeColumns(refCols),
		})
	}
	return rows.Err()
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}
