package source

import (
	"context"
	"sort"
	"sync"

	"github.com/tablewright/tablewright/internal/dialect"
	"github.com/tablewright/tablewright/internal/schema"
)

// MockConn is a test double for the Conn interface. Exec records every
// statement it receives.
type MockConn struct {
	EngineName dialect.Engine

	ExecResult *QueryResult
	ExecErr    error

	// Schemas maps table name to descriptor. Without a TableList, Tables
	// returns the map's keys sorted.
	Schemas   map[string]*schema.Table
	TableList []schema.TableSummary
	TablesErr error
	SchemaErr error

	mu          sync.Mutex
	ExecutedSQL []string
	TableCalls  int
	Closed      bool
}

var _ Conn = (*MockConn)(nil)

func (m *MockConn) Engine() dialect.Engine {
	if m.EngineName == "" {
		return dialect.PostgreSQL
	}
	return m.EngineName
}

func (m *MockConn) Exec(_ context.Context, sql string) (*QueryResult, error) {
	m.mu.Lock()
	m.ExecutedSQL = append(m.ExecutedSQL, sql)
	m.mu.Unlock()

	if m.ExecErr != nil {
		return nil, m.ExecErr
	}
	if m.ExecResult != nil {
		return m.ExecResult, nil
	}
	return &QueryResult{Columns: []string{}, Rows: [][]any{}}, nil
}

func (m *MockConn) Tables(_ context.Context, schemaName string) ([]schema.TableSummary, error) {
	m.mu.Lock()
	m.TableCalls++
	m.mu.Unlock()

	if m.TablesErr != nil {
		return nil, m.TablesErr
	}
	if m.TableList != nil {
		return m.TableList, nil
	}
	names := make([]string, 0, len(m.Schemas))
	for name := range m.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]schema.TableSummary, len(names))
	for i, name := range names {
		out[i] = schema.TableSummary{Name: name, Schema: schemaName}
	}
	return out, nil
}

func (m *MockConn) TableSchema(_ context.Context, schemaName, table string) (*schema.Table, error) {
	if m.SchemaErr != nil {
		return nil, m.SchemaErr
	}
	if t, ok := m.Schemas[table]; ok {
		return t, nil
	}
	return nil, &TableNotFoundError{Schema: schemaName, Table: table}
}

func (m *MockConn) Close() error {
	m.Closed = true
	return nil
}

// Executed returns a copy of the statements run so far.
func (m *MockConn) Executed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ExecutedSQL...)
}
