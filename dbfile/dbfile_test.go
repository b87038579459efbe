package dbfile

import (
	"path/filepath"
	"testing"

	"github.com/pcardune/godb/errs"
	"github.com/pcardune/godb/schema"
	"github.com/pcardune/godb/table"
)

func openTestDB(t *testing.T) *Db {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.godb")
	db, err := Open(path, Options{Create: true, Truncate: true, PageSize: 512})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func widgetsSchema() *schema.Schema {
	return &schema.Schema{
		Name: "widgets",
		Columns: []schema.Column{
			{Name: "id", Type: schema.U32, Stored: true, Unique: true},
			{Name: "name", Type: schema.String, Stored: true, Indexed: true},
		},
	}
}

func TestOpenBootstrapsCatalog(t *testing.T) {
	db := openTestDB(t)
	if db.tablesTable == nil || db.schemasTable == nil || db.columnsTable == nil ||
		db.indexesTable == nil || db.migrationsTable == nil || db.sequencesTable == nil {
		t.Fatalf("system tables not all initialized")
	}

	rows, err := db.Export("system", "")
	if err != nil {
		t.Fatalf("Export(system): %v", err)
	}
	if len(rows) == 0 {
		t.Fatalf("Export(system) returned no rows, want at least the bootstrap catalog rows")
	}
	for _, r := range rows {
		if r.DB != "system" {
			t.Fatalf("Export(system) yielded a row for db %q", r.DB)
		}
	}

	tablesRows, err := db.Export("system", "tablesTable")
	if err != nil {
		t.Fatalf("Export(system, tablesTable): %v", err)
	}
	if len(tablesRows) != 6 {
		t.Fatalf("__dbTables should describe exactly the 6 system tables, got %d rows", len(tablesRows))
	}
}

func TestGetOrCreateTableInsertAndLookup(t *testing.T) {
	db := openTestDB(t)
	tbl, err := db.GetOrCreateTable(widgetsSchema(), "")
	if err != nil {
		t.Fatalf("GetOrCreateTable: %v", err)
	}

	if _, err := tbl.Insert(table.Row{"id": uint32(1), "name": "sprocket"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rows, err := tbl.Lookup("name", "sprocket")
	if err != nil || len(rows) != 1 {
		t.Fatalf("Lookup: rows=%v err=%v", rows, err)
	}
}

func TestGetOrCreateTableIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	s := widgetsSchema()
	first, err := db.GetOrCreateTable(s, "")
	if err != nil {
		t.Fatalf("GetOrCreateTable (first): %v", err)
	}
	if _, err := first.Insert(table.Row{"id": uint32(1), "name": "sprocket"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	second, err := db.GetOrCreateTable(s, "")
	if err != nil {
		t.Fatalf("GetOrCreateTable (second): %v", err)
	}
	rows, err := second.Lookup("name", "sprocket")
	if err != nil || len(rows) != 1 {
		t.Fatalf("second handle can't see first handle's row: %v %v", rows, err)
	}
}

func TestGetOrCreateTableSchemaMismatch(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetOrCreateTable(widgetsSchema(), ""); err != nil {
		t.Fatalf("GetOrCreateTable: %v", err)
	}

	mismatched := &schema.Schema{
		Name: "widgets",
		Columns: []schema.Column{
			{Name: "id", Type: schema.String, Stored: true, Unique: true},
		},
	}
	_, err := db.GetOrCreateTable(mismatched, "")
	if err == nil {
		t.Fatalf("GetOrCreateTable with mismatched schema should fail")
	}
	if _, ok := err.(*errs.SchemaMismatch); !ok {
		t.Fatalf("error = %v, want *errs.SchemaMismatch", err)
	}
}

func TestGetSchemasReconstructsColumns(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetOrCreateTable(widgetsSchema(), ""); err != nil {
		t.Fatalf("GetOrCreateTable: %v", err)
	}
	got, err := db.GetSchemas(DefaultDB, "widgets")
	if err != nil {
		t.Fatalf("GetSchemas: %v", err)
	}
	if len(got.Columns) != 2 || got.Columns[0].Name != "id" || got.Columns[1].Name != "name" {
		t.Fatalf("GetSchemas columns = %+v", got.Columns)
	}
	if !got.Columns[1].Indexed {
		t.Fatalf("GetSchemas lost the Indexed flag on %q", got.Columns[1].Name)
	}
}

func TestRenameTable(t *testing.T) {
	db := openTestDB(t)
	tbl, err := db.GetOrCreateTable(widgetsSchema(), "")
	if err != nil {
		t.Fatalf("GetOrCreateTable: %v", err)
	}
	if _, err := tbl.Insert(table.Row{"id": uint32(1), "name": "sprocket"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := db.RenameTable("widgets", "gadgets", ""); err != nil {
		t.Fatalf("RenameTable: %v", err)
	}

	if _, err := db.GetSchemas(DefaultDB, "widgets"); err == nil {
		t.Fatalf("old name %q should no longer resolve", "widgets")
	}
	renamed, err := db.GetSchemas(DefaultDB, "gadgets")
	if err != nil {
		t.Fatalf("GetSchemas(gadgets): %v", err)
	}
	if renamed.Name != "gadgets" {
		t.Fatalf("renamed schema name = %q", renamed.Name)
	}

	// The already-open handle still points at the same heap/index
	// pages and keeps working after the rename.
	rows, err := tbl.Lookup("name", "sprocket")
	if err != nil || len(rows) != 1 {
		t.Fatalf("Lookup on pre-rename handle: rows=%v err=%v", rows, err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	first, err := db.Migrate("add-widgets-table", "")
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	second, err := db.Migrate("add-widgets-table", "")
	if err != nil {
		t.Fatalf("Migrate (repeat): %v", err)
	}
	if !first.CompletedAt.Equal(second.CompletedAt) {
		t.Fatalf("Migrate re-ran: first=%v second=%v", first.CompletedAt, second.CompletedAt)
	}
}

func TestExportUserTable(t *testing.T) {
	db := openTestDB(t)
	tbl, err := db.GetOrCreateTable(widgetsSchema(), "")
	if err != nil {
		t.Fatalf("GetOrCreateTable: %v", err)
	}
	if _, err := tbl.Insert(table.Row{"id": uint32(1), "name": "sprocket"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	records, err := db.Export(DefaultDB, "widgets")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Export = %d records, want 1", len(records))
	}
	if records[0].DB != DefaultDB || records[0].Table != "widgets" {
		t.Fatalf("Export record = %+v", records[0])
	}
}

func TestNextSerialIsMonotonic(t *testing.T) {
	db := openTestDB(t)
	ids := make(map[uint32]bool)
	for i := 0; i < 5; i++ {
		id, err := db.NextSerial("widgets.serialCol")
		if err != nil {
			t.Fatalf("NextSerial: %v", err)
		}
		if ids[id] {
			t.Fatalf("NextSerial produced repeated id %d", id)
		}
		ids[id] = true
	}
	if !ids[1] {
		t.Fatalf("first NextSerial call should yield 1, got ids %v", ids)
	}
}

func TestReopenPersistsCatalogAndData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.godb")
	db, err := Open(path, Options{Create: true, Truncate: true, PageSize: 512})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tbl, err := db.GetOrCreateTable(widgetsSchema(), "")
	if err != nil {
		t.Fatalf("GetOrCreateTable: %v", err)
	}
	if _, err := tbl.Insert(table.Row{"id": uint32(1), "name": "sprocket"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	tbl2, err := reopened.GetOrCreateTable(widgetsSchema(), "")
	if err != nil {
		t.Fatalf("GetOrCreateTable after reopen: %v", err)
	}
	rows, err := tbl2.Lookup("name", "sprocket")
	if err != nil || len(rows) != 1 {
		t.Fatalf("Lookup after reopen: rows=%v err=%v", rows, err)
	}
}
