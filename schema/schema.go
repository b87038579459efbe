package schema

import "github.com/pcardune/godb/codec"

// Column describes one field of a table's schema. A computed column
// (Stored=false) is never serialized in the row record; its value is
// produced by Compute on demand.
type Column struct {
	Name string
	Type Type

	// Stored controls whether this column's value is part of the row's
	// byte encoding. Computed columns set this false and supply Compute.
	Stored bool

	// Unique requires the column's value be distinct across every row;
	// checked against the column's index before insert.
	Unique bool
	// Indexed requests a B+-tree index over this column's values for
	// lookup(). Unique columns are always indexed (uniqueness is itself
	// enforced by probing the index), so Indexed is only meaningful to
	// set independently for a non-unique column.
	Indexed bool
	// IndexInMemory requests the in-memory Index variant instead of the
	// on-disk one for this column — a cache-like index that does not
	// survive a restart.
	IndexInMemory bool

	// DefaultValueFactory, when set, supplies a value for this column on
	// insert if the caller's record omits it.
	DefaultValueFactory func() any

	// Compute derives this column's value from the rest of the record.
	// Required (and only valid) when Stored is false.
	Compute func(record map[string]any) (any, error)
}

// HasIndex reports whether this column needs an Index maintained for it:
// every indexed or unique column does.
func (c Column) HasIndex() bool { return c.Unique || c.Indexed }

// Schema names a table's shape: its columns in declared order. Row
// bytes are the concatenation of every Stored column's encoding in
// this exact order.
type Schema struct {
	Name    string
	Version uint32
	Columns []Column
}

// Column looks up a column by name.
func (s *Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// StoredColumns returns the columns serialized into row bytes, in
// declared order.
func (s *Schema) StoredColumns() []Column {
	var out []Column
	for _, c := range s.Columns {
		if c.Stored {
			out = append(out, c)
		}
	}
	return out
}

// IndexedColumns returns every column that needs an Index maintained.
func (s *Schema) IndexedColumns() []Column {
	var out []Column
	for _, c := range s.Columns {
		if c.HasIndex() {
			out = append(out, c)
		}
	}
	return out
}

// RecordFields builds the codec.Field list for this schema's stored
// columns, in declared order — the shape rowstore.Storage serializes
// row bytes with.
func (s *Schema) RecordFields() []codec.Field {
	stored := s.StoredColumns()
	fields := make([]codec.Field, len(stored))
	for i, c := range stored {
		fields[i] = codec.Field{Name: c.Name, Codec: c.Type.Codec()}
	}
	return fields
}
