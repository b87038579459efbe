package table

import (
	"testing"

	"github.com/pcardune/godb/btree"
	"github.com/pcardune/godb/errs"
	"github.com/pcardune/godb/heapfile"
	"github.com/pcardune/godb/pagestore"
	"github.com/pcardune/godb/rowstore"
	"github.com/pcardune/godb/schema"
)

func newTestPool(t *testing.T) *pagestore.BufferPool {
	t.Helper()
	bp, err := pagestore.Open(pagestore.NewMemoryBackend(), 12, 512)
	if err != nil {
		t.Fatalf("pagestore.Open: %v", err)
	}
	return bp
}

func usersSchema() *schema.Schema {
	return &schema.Schema{
		Name: "users",
		Columns: []schema.Column{
			{Name: "id", Type: schema.U32, Stored: true, Unique: true},
			{Name: "name", Type: schema.String, Stored: true, Indexed: true},
			{Name: "age", Type: schema.Positive(schema.U32), Stored: true, DefaultValueFactory: func() any { return uint32(18) }},
			{
				Name: "lower_name", Type: schema.String, Unique: true,
				Compute: func(r map[string]any) (any, error) {
					return r["name"], nil
				},
			},
		},
	}
}

func newTestTable(t *testing.T) *Table {
	t.Helper()
	bp := newTestPool(t)
	s := usersSchema()
	hf, err := heapfile.Create(bp)
	if err != nil {
		t.Fatalf("heapfile.Create: %v", err)
	}
	storage := rowstore.New(hf, s.RecordFields())

	indexes := make(map[string]btree.Index)
	for _, col := range s.IndexedColumns() {
		headerPage, err := bp.AllocatePage()
		if err != nil {
			t.Fatalf("AllocatePage: %v", err)
		}
		idx, err := NewIndex(bp, headerPage, col)
		if err != nil {
			t.Fatalf("NewIndex(%s): %v", col.Name, err)
		}
		indexes[col.Name] = idx
	}
	return New(s, storage, indexes)
}

func TestTableInsertAppliesDefaultsAndValidates(t *testing.T) {
	tbl := newTestTable(t)

	row, err := tbl.InsertAndReturn(Row{"id": uint32(1), "name": "alice"})
	if err != nil {
		t.Fatalf("InsertAndReturn: %v", err)
	}
	if row["age"] != uint32(18) {
		t.Fatalf("age default = %v, want 18", row["age"])
	}

	_, err = tbl.Insert(Row{"id": uint32(2), "name": "bob", "age": uint32(0)})
	if err == nil {
		t.Fatalf("Insert with age=0 should fail Positive validation")
	}
	if _, ok := err.(*errs.InvalidRecord); !ok {
		t.Fatalf("error = %v, want *errs.InvalidRecord", err)
	}
}

func TestTableUniqueConstraint(t *testing.T) {
	tbl := newTestTable(t)
	if _, err := tbl.Insert(Row{"id": uint32(1), "name": "alice"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	_, err := tbl.Insert(Row{"id": uint32(1), "name": "alice2"})
	if err == nil {
		t.Fatalf("duplicate id should fail")
	}
	if _, ok := err.(*errs.Duplicate); !ok {
		t.Fatalf("error = %v, want *errs.Duplicate", err)
	}
}

func TestTableComputedUniqueIndex(t *testing.T) {
	tbl := newTestTable(t)
	if _, err := tbl.Insert(Row{"id": uint32(1), "name": "alice"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	_, err := tbl.Insert(Row{"id": uint32(2), "name": "alice"})
	if err == nil {
		t.Fatalf("duplicate computed lower_name should fail")
	}
	if _, ok := err.(*errs.Duplicate); !ok {
		t.Fatalf("error = %v, want *errs.Duplicate", err)
	}
}

func TestTableLookupAndScan(t *testing.T) {
	tbl := newTestTable(t)
	for i, name := range []string{"alice", "bob", "carol"} {
		if _, err := tbl.Insert(Row{"id": uint32(i), "name": name}); err != nil {
			t.Fatalf("Insert(%s): %v", name, err)
		}
	}

	rows, err := tbl.Lookup("name", "bob")
	if err != nil || len(rows) != 1 {
		t.Fatalf("Lookup(bob) = %v, %v", rows, err)
	}

	row, ok, err := tbl.LookupUnique("id", uint32(2))
	if err != nil || !ok || row["name"] != "carol" {
		t.Fatalf("LookupUnique(id=2) = %v %v %v", row, ok, err)
	}

	scanned, err := tbl.Scan("name", "alice")
	if err != nil || len(scanned) != 1 {
		t.Fatalf("Scan(alice) = %v, %v", scanned, err)
	}
}

func TestTableRemoveWhere(t *testing.T) {
	tbl := newTestTable(t)
	if _, err := tbl.Insert(Row{"id": uint32(1), "name": "alice"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tbl.RemoveWhere("name", "alice"); err != nil {
		t.Fatalf("RemoveWhere: %v", err)
	}
	rows, err := tbl.Lookup("name", "alice")
	if err != nil || len(rows) != 0 {
		t.Fatalf("Lookup after RemoveWhere = %v, %v", rows, err)
	}
	// The unique column's index entry must also be gone, or a fresh
	// insert with the same id would wrongly collide.
	if _, err := tbl.Insert(Row{"id": uint32(1), "name": "alice2"}); err != nil {
		t.Fatalf("reinsert id=1 after RemoveWhere: %v", err)
	}
}

func TestTableEachAndDrop(t *testing.T) {
	tbl := newTestTable(t)
	for i := 0; i < 3; i++ {
		if _, err := tbl.Insert(Row{"id": uint32(i), "name": string(rune('x' + i))}); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	count := 0
	err := tbl.Each(func(_ RowID, row Row) error {
		count++
		if row["lower_name"] != row["name"] {
			t.Fatalf("computed column not materialized on iterate: %v", row)
		}
		return nil
	})
	if err != nil || count != 3 {
		t.Fatalf("Each: count=%d err=%v", count, err)
	}

	if err := tbl.Drop(); err != nil {
		t.Fatalf("Drop: %v", err)
	}
}
