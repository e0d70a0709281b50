package schema

// TableSummary is one entry of a schema's table listing.
type TableSummary struct {
	Name   string `yaml:"name" json:"name"`
	Schema string `yaml:"schema" json:"schema"`
}

// Table describes a table as fetched from the database. A Table is an
// immutable snapshot: a refetch replaces it, it is never patched in place.
type Table struct {
	Name        string       `yaml:"name" json:"name"`
	Schema      string       `yaml:"schema,omitempty" json:"schema,omitempty"`
	Columns     []Column     `yaml:"columns" json:"columns"`
	PrimaryKey  *PrimaryKey  `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `yaml:"foreign_keys,omitempty" json:"foreign_keys,omitempty"`
}

// Column represents a table column.
type Column struct {
	Name         string  `yaml:"name" json:"name"`
	DataType     string  `yaml:"data_type" json:"data_type"`
	Nullable     bool    `yaml:"nullable" json:"nullable"`
	IsPrimaryKey bool    `yaml:"is_primary_key,omitempty" json:"is_primary_key"`
	DefaultValue *string `yaml:"default_value,omitempty" json:"default_value,omitempty"`
}

// PrimaryKey represents a table's primary key.
type PrimaryKey struct {
	Name    string   `yaml:"name" json:"name"`
	Columns []string `yaml:"columns" json:"columns"`
}

// ForeignKey represents a foreign key relationship. Columns[i] references
// ReferencedColumns[i].
type ForeignKey struct {
	Name              string     `yaml:"name" json:"name"`
	Table             string     `yaml:"table,omitempty" json:"table,omitempty"`
	Columns           ColumnList `yaml:"columns" json:"columns"`
	ReferencedTable   string     `yaml:"referenced_table" json:"referenced_table"`
	ReferencedColumns ColumnList `yaml:"referenced_columns" json:"referenced_columns"`
}

// Renderable reports whether both column lists normalize to at least one
// name, i.e. whether a primary reference pair exists.
func (fk ForeignKey) Renderable() bool {
	return len(NormalizeColumns(fk.Columns)) > 0 && len(NormalizeColumns(fk.ReferencedColumns)) > 0
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ForeignKeyColumns returns the set of local column names that take part in
// any of the table's foreign keys.
func (t *Table) ForeignKeyColumns() map[string]bool {
	set := make(map[string]bool)
	for _, fk := range t.ForeignKeys {
		for _, c := range NormalizeColumns(fk.Columns) {
			set[c] = true
		}
	}
	return set
}
