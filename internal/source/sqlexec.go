package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/tablewright/tablewright/internal/schema"
)

var rowReturning = regexp.MustCompile(`(?is)^\s*(SELECT|WITH|SHOW|PRAGMA|EXPLAIN|DESCRIBE|DESC|VALUES)\b`)

// execDB runs a statement over database/sql, using Query for statements that
// return rows and Exec for everything else.
func execDB(ctx context.Context, db *sql.DB, query string) (*QueryResult, error) {
	start := time.Now()

	if !rowReturning.MatchString(query) {
		res, err := db.ExecContext(ctx, query)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			affected = 0
		}
		return &QueryResult{Columns: []string{}, Rows: [][]any{}, RowsAffected: affected, Duration: time.Since(start)}, nil
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	result := &QueryResult{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	result.RowsAffected = int64(len(result.Rows))
	result.Duration = time.Since(start)
	return result, nil
}

// fkRow is one column pair of a foreign key, as read from the catalog.
type fkRow struct {
	constraint, column, refTable, refColumn string
}

// groupForeignKeys folds per-column rows into one foreign key per
// constraint, preserving first-seen order.
func groupForeignKeys(table string, rows []fkRow) []schema.ForeignKey {
	grouped := make(map[string]*schema.ForeignKey)
	var order []string

	for _, r := range rows {
		fk, ok := grouped[r.constraint]
		if !ok {
			fk = &schema.ForeignKey{
				Name:            r.constraint,
				Table:           table,
				ReferencedTable: r.refTable,
			}
			grouped[r.constraint] = fk
			order = append(order, r.constraint)
		}
		fk.Columns = append(fk.Columns, r.column)
		fk.ReferencedColumns = append(fk.ReferencedColumns, r.refColumn)
	}

	fks := make([]schema.ForeignKey, 0, len(order))
	for _, name := range order {
		fks = append(fks, *grouped[name])
	}
	return fks
}

// markPrimaryKey flags the primary key columns on t.
func markPrimaryKey(t *schema.Table) {
	if t.PrimaryKey == nil {
		return
	}
	pk := make(map[string]bool, len(t.PrimaryKey.Columns))
	for _, c := range t.PrimaryKey.Columns {
		pk[c] = true
	}
	for i := range t.Columns {
		t.Columns[i].IsPrimaryKey = pk[t.Columns[i].Name]
	}
}
