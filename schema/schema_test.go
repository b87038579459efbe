package schema

import "testing"

func TestColumnHasIndex(t *testing.T) {
	cases := []struct {
		name string
		col  Column
		want bool
	}{
		{"plain", Column{Name: "n"}, false},
		{"unique", Column{Name: "n", Unique: true}, true},
		{"indexed", Column{Name: "n", Indexed: true}, true},
	}
	for _, c := range cases {
		if got := c.col.HasIndex(); got != c.want {
			t.Errorf("%s: HasIndex() = %v, want %v", c.name, got, c.want)
		}
	}
}

func testSchema() *Schema {
	return &Schema{
		Name: "widgets",
		Columns: []Column{
			{Name: "id", Type: U32, Stored: true, Unique: true},
			{Name: "name", Type: String, Stored: true, Indexed: true},
			{
				Name: "lower_name", Type: String, Unique: true,
				Compute: func(r map[string]any) (any, error) {
					return r["name"], nil
				},
			},
		},
	}
}

func TestSchemaColumn(t *testing.T) {
	s := testSchema()
	if _, ok := s.Column("missing"); ok {
		t.Fatalf("Column(missing) reported found")
	}
	c, ok := s.Column("name")
	if !ok || c.Type != String {
		t.Fatalf("Column(name) = %+v, %v", c, ok)
	}
}

func TestSchemaStoredAndIndexedColumns(t *testing.T) {
	s := testSchema()
	stored := s.StoredColumns()
	if len(stored) != 2 || stored[0].Name != "id" || stored[1].Name != "name" {
		t.Fatalf("StoredColumns() = %+v", stored)
	}
	indexed := s.IndexedColumns()
	if len(indexed) != 3 {
		t.Fatalf("IndexedColumns() = %d entries, want 3", len(indexed))
	}
}

func TestSchemaRecordFields(t *testing.T) {
	s := testSchema()
	fields := s.RecordFields()
	if len(fields) != 2 {
		t.Fatalf("RecordFields() = %d fields, want 2 (computed columns excluded)", len(fields))
	}
	if fields[0].Name != "id" || fields[1].Name != "name" {
		t.Fatalf("RecordFields() order = %+v", fields)
	}
}
