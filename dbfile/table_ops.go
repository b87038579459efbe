package dbfile

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pcardune/godb/errs"
	"github.com/pcardune/godb/heapfile"
	"github.com/pcardune/godb/rowstore"
	"github.com/pcardune/godb/schema"
	"github.com/pcardune/godb/table"
)

func compositeDBName(dbName, tableName string) string {
	return dbName + "\x00" + tableName
}

// GetOrCreateTable resolves (dbName, s.Name) against __dbTables,
// creating the backing heap page, schema registration, and column
// indexes on first use, per spec §4.12.
func (db *Db) GetOrCreateTable(s *schema.Schema, dbName string) (*table.Table, error) {
	if dbName == "" {
		dbName = DefaultDB
	}
	cacheKey := dbName + "." + s.Name

	db.mu.Lock()
	if t, ok := db.opened[cacheKey]; ok {
		db.mu.Unlock()
		if badCol, mismatched := schemaMismatch(t.Schema(), s); mismatched {
			return nil, &errs.SchemaMismatch{Column: badCol, Field: "type"}
		}
		return t, nil
	}
	db.mu.Unlock()

	row, ok, err := db.tablesTable.LookupUnique("db_name", compositeDBName(dbName, s.Name))
	if err != nil {
		return nil, err
	}

	var tableID string
	if ok {
		tableID = row["id"].(string)
		existing, err := db.GetSchemas(dbName, s.Name)
		if err != nil {
			return nil, err
		}
		if badCol, mismatched := schemaMismatch(existing, s); mismatched {
			return nil, &errs.SchemaMismatch{Column: badCol, Field: "type"}
		}
	} else {
		tableID = uuid.NewString()
	}

	t, heapPID, idxPages, err := db.tablePages(tableID, s)
	if err != nil {
		return nil, err
	}

	if !ok {
		newRow := table.Row{
			"id": tableID, "db": dbName, "name": s.Name,
			"heapPageId": uint64(heapPID),
		}
		if _, err := db.tablesTable.Insert(newRow); err != nil {
			return nil, err
		}
		if _, err := db.registerSchemaVersion(tableID, s); err != nil {
			return nil, err
		}
		if err := db.registerIndexes(tableID, s, idxPages); err != nil {
			return nil, err
		}
	}

	db.mu.Lock()
	db.opened[cacheKey] = t
	db.mu.Unlock()
	return t, nil
}

// schemaMismatch compares the stored columns of an already-registered
// schema against a freshly supplied one, in declared order (spec §6:
// "compatibility depends on schema columns being stored and replayed
// in catalog order").
func schemaMismatch(existing, want *schema.Schema) (badColumn string, mismatched bool) {
	e, w := existing.StoredColumns(), want.StoredColumns()
	if len(e) != len(w) {
		if len(w) > 0 {
			return w[len(w)-1].Name, true
		}
		return existing.Name, true
	}
	for i := range e {
		if e[i].Name != w[i].Name || e[i].Type.Name() != w[i].Type.Name() {
			return w[i].Name, true
		}
	}
	return "", false
}

// GetSchemas reconstructs the latest stored schema for (dbName,
// tableName) by joining __dbSchemas against __dbTableColumns and
// sorting columns by their recorded order (spec §4.12). The rebuilt
// columns carry no DefaultValueFactory or Compute closures — those are
// Go values, not catalog data, so round-tripping through the catalog
// can only recover a column's name, type, and flags.
func (db *Db) GetSchemas(dbName, tableName string) (*schema.Schema, error) {
	row, ok, err := db.tablesTable.LookupUnique("db_name", compositeDBName(dbName, tableName))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &errs.NotFound{What: "table " + dbName + "." + tableName}
	}
	tableID := row["id"].(string)

	versions, err := db.schemasTable.Lookup("tableId", tableID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, &errs.NotFound{What: "schema for table " + dbName + "." + tableName}
	}
	latest := versions[0]
	for _, v := range versions[1:] {
		if v["version"].(uint32) > latest["version"].(uint32) {
			latest = v
		}
	}

	colRows, err := db.columnsTable.Lookup("schemaId", latest["id"].(uint32))
	if err != nil {
		return nil, err
	}
	ordered := make([]table.Row, len(colRows))
	copy(ordered, colRows)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j-1]["order"].(uint32) > ordered[j]["order"].(uint32); j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}

	cols := make([]schema.Column, len(ordered))
	for i, c := range ordered {
		t, ok := typeByName(c["type"].(string))
		if !ok {
			return nil, &errs.CorruptPage{Reason: "unknown catalog column type " + c["type"].(string)}
		}
		cols[i] = schema.Column{
			Name: c["name"].(string), Type: t,
			Stored:        !c["computed"].(bool),
			Unique:        c["unique"].(bool),
			Indexed:       c["indexed"].(bool),
			IndexInMemory: c["indexInMemory"].(bool),
		}
	}
	return &schema.Schema{Name: tableName, Version: latest["version"].(uint32), Columns: cols}, nil
}

// RenameTable re-points (dbName, oldName) to newName, leaving the
// table's heap and index pages untouched (they are keyed by the
// table's internal id, not its display name).
func (db *Db) RenameTable(oldName, newName, dbName string) error {
	if dbName == "" {
		dbName = DefaultDB
	}
	rows, err := db.tablesTable.Lookup("db_name", compositeDBName(dbName, oldName))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &errs.NotFound{What: "table " + dbName + "." + oldName}
	}
	row := rows[0]
	if err := db.tablesTable.RemoveWhere("db_name", compositeDBName(dbName, oldName)); err != nil {
		return err
	}
	row["name"] = newName
	if _, err := db.tablesTable.Insert(row); err != nil {
		return err
	}

	db.mu.Lock()
	delete(db.opened, dbName+"."+oldName)
	db.mu.Unlock()
	return nil
}

// Migration records one completed migration in __dbMigrations.
type Migration struct {
	Name        string
	DB          string
	CompletedAt time.Time
}

// Migrate applies (idempotently) the named migration: if it already
// ran, its recorded completion is returned unchanged; otherwise a new
// row is written with the current time.
func (db *Db) Migrate(name, dbName string) (*Migration, error) {
	if dbName == "" {
		dbName = DefaultDB
	}
	if row, ok, err := db.migrationsTable.LookupUnique("name", name); err != nil {
		return nil, err
	} else if ok {
		return &Migration{Name: name, DB: row["db"].(string), CompletedAt: row["completedAt"].(time.Time)}, nil
	}

	now := time.Now().Truncate(time.Second)
	if _, err := db.migrationsTable.Insert(table.Row{"name": name, "db": dbName, "completedAt": now}); err != nil {
		return nil, err
	}
	return &Migration{Name: name, DB: dbName, CompletedAt: now}, nil
}

// ExportRecord is one decoded-then-reencoded row yielded by Export.
type ExportRecord struct {
	DB     string
	Table  string
	Record json.RawMessage
}

// Export decodes every row of every table listed in __dbTables (the
// system catalog tables, under db "system", included) matching dbFilter
// and tableFilter (either left "" to match anything), converting each to
// JSON via the table's own schema (spec §4.12). Rows are read directly
// off the table's storage rather than through GetOrCreateTable, so
// Export never registers a fresh schema version for a table it only
// means to read.
func (db *Db) Export(dbFilter, tableFilter string) ([]ExportRecord, error) {
	var out []ExportRecord
	err := db.tablesTable.Each(func(_ table.RowID, row table.Row) error {
		tdb, tname := row["db"].(string), row["name"].(string)
		if dbFilter != "" && tdb != dbFilter {
			return nil
		}
		if tableFilter != "" && tname != tableFilter {
			return nil
		}
		s, err := db.GetSchemas(tdb, tname)
		if err != nil {
			return err
		}
		tableID := row["id"].(string)
		heapPID, err := db.pageFor(tableID + ".heap")
		if err != nil {
			return err
		}
		storage := rowstore.New(heapfile.Open(db.bp, heapPID), s.RecordFields())
		return storage.Each(func(_ rowstore.RowID, r map[string]any) error {
			data, err := json.Marshal(r)
			if err != nil {
				return err
			}
			out = append(out, ExportRecord{DB: tdb, Table: tname, Record: data})
			return nil
		})
	})
	return out, err
}
