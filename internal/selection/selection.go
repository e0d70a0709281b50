// Package selection narrows a schema to the tables a user asked about.
package selection

import (
	"path"

	"github.com/tablewright/tablewright/internal/schema"
)

// Match reports whether name matches a shell-style pattern such as
// "order_*" or "audit_??". An empty pattern matches everything. A malformed
// pattern only matches a name equal to it.
func Match(name, pattern string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	ok, err := path.Match(pattern, name)
	if err != nil {
		return name == pattern
	}
	return ok
}

// FilterSummaries returns the listed tables whose name matches pattern.
func FilterSummaries(tables []schema.TableSummary, pattern string) []schema.TableSummary {
	matched := []schema.TableSummary{}
	for _, t := range tables {
		if Match(t.Name, pattern) {
			matched = append(matched, t)
		}
	}
	return matched
}

// FilterTables returns the tables whose name matches pattern.
func FilterTables(tables []schema.Table, pattern string) []schema.Table {
	matched := []schema.Table{}
	for _, t := range tables {
		if Match(t.Name, pattern) {
			matched = append(matched, t)
		}
	}
	return matched
}

// DanglingRef is a foreign key pointing at a table outside the selection.
type DanglingRef struct {
	Table           string
	ForeignKey      string
	ReferencedTable string
}

// FindDanglingReferences returns the foreign keys of selected that reference
// tables not in selected.
func FindDanglingReferences(selected []schema.Table) []DanglingRef {
	names := make(map[string]bool, len(selected))
	for _, t := range selected {
		names[t.Name] = true
	}

	var refs []DanglingRef
	for _, t := range selected {
		for _, fk := range t.ForeignKeys {
			if !names[fk.ReferencedTable] {
				refs = append(refs, DanglingRef{
					Table:           t.Name,
					ForeignKey:      fk.Name,
					ReferencedTable: fk.ReferencedTable,
				})
			}
		}
	}
	return refs
}
