package types

// ColDef names a column and its declared UniversalType (spec.md §3.4).
type ColDef struct {
	Name string        `json:"name" yaml:"name"`
	Type UniversalType `json:"type" yaml:"type"`
}

// TableDef describes one table/collection's id column and its other
// columns, in declaration order (spec.md §3.4).
type TableDef struct {
	ID      ColDef   `json:"id" yaml:"id"`
	Columns []ColDef `json:"columns" yaml:"columns"`
}

// ColumnType returns the declared type of the named column, including
// the id column, or false if no such column exists.
func (t TableDef) ColumnType(name string) (UniversalType, bool) {
	if t.ID.Name == name {
		return t.ID.Type, true
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return c.Type, true
		}
	}
	return UniversalType{}, false
}

// Schema maps table name to its TableDef (spec.md §3.4). Schemas are
// loaded once and read-only for the duration of a sync run (spec.md
// §3.6) - callers must not mutate a Schema after construction.
type Schema struct {
	Version int                 `yaml:"version"`
	Tables  map[string]TableDef `yaml:"-"`
}

// NewSchema builds a Schema from an ordered table list, as decoded
// from the YAML schema file format of spec.md §6.
func NewSchema(version int, tables []NamedTableDef) Schema {
	m := make(map[string]TableDef, len(tables))
	for _, t := range tables {
		m[t.Name] = t.TableDef
	}
	return Schema{Version: version, Tables: m}
}

// NamedTableDef pairs a table name with its definition, matching the
// YAML schema file's `tables:` list shape (spec.md §6).
type NamedTableDef struct {
	Name string `yaml:"name"`
	TableDef
}

// Table looks up a table's definition by name.
func (s Schema) Table(name string) (TableDef, bool) {
	t, ok := s.Tables[name]
	return t, ok
}

// UniversalRow bundles a decoded record (spec.md §3.3).
type UniversalRow struct {
	Table    string
	RowIndex uint64
	ID       UniversalValue
	Fields   map[string]UniversalValue
}
