package dbfile

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pcardune/godb/btree"
	"github.com/pcardune/godb/heapfile"
	"github.com/pcardune/godb/pagestore"
	"github.com/pcardune/godb/rowstore"
	"github.com/pcardune/godb/schema"
	"github.com/pcardune/godb/table"
)

// ulidFactory substitutes for a dedicated ULID generator (none of the
// retrieved examples carry one); a random UUID serves the same role as
// a unique, opaque catalog primary key.
func ulidFactory() any { return uuid.NewString() }

func tablesSchema() *schema.Schema {
	return &schema.Schema{
		Name: "__dbTables",
		Columns: []schema.Column{
			{Name: "id", Type: schema.ULID, Stored: true, Unique: true, DefaultValueFactory: ulidFactory},
			{Name: "db", Type: schema.String, Stored: true},
			{Name: "name", Type: schema.String, Stored: true},
			{Name: "heapPageId", Type: schema.U64, Stored: true},
			{
				Name: "db_name", Type: schema.String, Unique: true,
				Compute: func(r map[string]any) (any, error) {
					return fmt.Sprintf("%v\x00%v", r["db"], r["name"]), nil
				},
			},
		},
	}
}

func schemasSchema() *schema.Schema {
	return &schema.Schema{
		Name: "__dbSchemas",
		Columns: []schema.Column{
			{Name: "id", Type: schema.U32, Stored: true, Unique: true},
			{Name: "tableId", Type: schema.String, Stored: true, Indexed: true},
			{Name: "version", Type: schema.U32, Stored: true},
			{
				Name: "tableId_version", Type: schema.String, Unique: true,
				Compute: func(r map[string]any) (any, error) {
					return fmt.Sprintf("%v\x00%d", r["tableId"], r["version"]), nil
				},
			},
		},
	}
}

func columnsSchema() *schema.Schema {
	return &schema.Schema{
		Name: "__dbTableColumns",
		Columns: []schema.Column{
			{Name: "id", Type: schema.ULID, Stored: true, Unique: true, DefaultValueFactory: ulidFactory},
			{Name: "schemaId", Type: schema.U32, Stored: true, Indexed: true},
			{Name: "name", Type: schema.String, Stored: true},
			{Name: "type", Type: schema.String, Stored: true},
			{Name: "unique", Type: schema.Bool, Stored: true},
			{Name: "indexed", Type: schema.Bool, Stored: true},
			{Name: "indexInMemory", Type: schema.Bool, Stored: true},
			{Name: "computed", Type: schema.Bool, Stored: true},
			{Name: "order", Type: schema.U32, Stored: true},
			{
				Name: "schemaId_name", Type: schema.String, Unique: true,
				Compute: func(r map[string]any) (any, error) {
					return fmt.Sprintf("%v\x00%v", r["schemaId"], r["name"]), nil
				},
			},
		},
	}
}

func indexesSchema() *schema.Schema {
	return &schema.Schema{
		Name: "__dbIndexes",
		Columns: []schema.Column{
			{Name: "id", Type: schema.ULID, Stored: true, Unique: true, DefaultValueFactory: ulidFactory},
			{Name: "indexName", Type: schema.String, Stored: true},
			{Name: "tableId", Type: schema.String, Stored: true, Indexed: true},
			{Name: "heapPageId", Type: schema.U64, Stored: true},
			{
				Name: "tableId_indexName", Type: schema.String, Unique: true,
				Compute: func(r map[string]any) (any, error) {
					return fmt.Sprintf("%v\x00%v", r["tableId"], r["indexName"]), nil
				},
			},
		},
	}
}

func migrationsSchema() *schema.Schema {
	return &schema.Schema{
		Name: "__dbMigrations",
		Columns: []schema.Column{
			{Name: "name", Type: schema.String, Stored: true, Unique: true},
			{Name: "db", Type: schema.String, Stored: true},
			{Name: "completedAt", Type: schema.Timestamp, Stored: true},
		},
	}
}

func sequencesSchema() *schema.Schema {
	return &schema.Schema{
		Name: "__dbSequences",
		Columns: []schema.Column{
			{Name: "name", Type: schema.String, Stored: true, Unique: true},
			{Name: "value", Type: schema.U32, Stored: true, DefaultValueFactory: func() any { return uint32(0) }},
		},
	}
}

// typeByName reverses schema.Type.Name() for reconstructing a schema
// from __dbTableColumns rows. A trailing "+" (schema.Positive's naming
// convention, schema/type.go) is stripped and the base type rewrapped,
// since Positive itself carries no catalog representation of its own.
func typeByName(name string) (schema.Type, bool) {
	if base, ok := strings.CutSuffix(name, "+"); ok {
		inner, ok := typeByName(base)
		if !ok {
			return nil, false
		}
		return schema.Positive(inner), true
	}
	switch name {
	case "string":
		return schema.String, true
	case "bool":
		return schema.Bool, true
	case "u32":
		return schema.U32, true
	case "i32":
		return schema.I32, true
	case "u64":
		return schema.U64, true
	case "i64":
		return schema.I64, true
	case "f64":
		return schema.F64, true
	case "bytes":
		return schema.Bytes, true
	case "date":
		return schema.Date, true
	case "timestamp":
		return schema.Timestamp, true
	case "json":
		return schema.JSON, true
	case "uuid":
		return schema.UUID, true
	case "ulid":
		return schema.ULID, true
	default:
		return nil, false
	}
}

// tablePages opens (creating on first use) the heap page and one index
// page per indexed column of s, keyed under id — a stable identifier
// immune to a later rename_table, unlike the table's display name.
// Returns the table bound to that storage plus the page ids used, so
// callers can mirror them into the catalog rows spec §3 describes.
func (db *Db) tablePages(id string, s *schema.Schema) (*table.Table, pagestore.PageID, map[string]pagestore.PageID, error) {
	heapPID, err := db.pageFor(id + ".heap")
	if err != nil {
		return nil, 0, nil, err
	}
	hf := heapfile.Open(db.bp, heapPID)

	indexes := make(map[string]btree.Index)
	indexPages := make(map[string]pagestore.PageID)
	for _, col := range s.IndexedColumns() {
		hp, err := db.pageFor(id + ".idx." + col.Name)
		if err != nil {
			return nil, 0, nil, err
		}
		idx, err := table.NewIndex(db.bp, hp, col)
		if err != nil {
			return nil, 0, nil, err
		}
		indexes[col.Name] = idx
		indexPages[col.Name] = hp
	}

	storage := rowstore.New(hf, s.RecordFields())
	return table.New(s, storage, indexes), heapPID, indexPages, nil
}

// bootstrapCatalog opens (and, on a fresh database, creates) the six
// system tables, then — only the first time a fresh database is opened
// — inserts the rows describing those tables into themselves (spec
// §4.12: "The first opening of a fresh database inserts bootstrap rows
// describing the system tables themselves").
func (db *Db) bootstrapCatalog() error {
	alreadyBootstrapped, err := db.pageIDs.Has([]byte("tablesTable"))
	if err != nil {
		return err
	}

	type systemTable struct {
		pageType string
		schema   *schema.Schema
	}
	defs := []systemTable{
		{"tablesTable", tablesSchema()},
		{"schemasTable", schemasSchema()},
		{"columnsTable", columnsSchema()},
		{"indexesTable", indexesSchema()},
		{"migrationsTable", migrationsSchema()},
		{"sequencesTable", sequencesSchema()},
	}

	handles := make(map[string]*table.Table, len(defs))
	heapPages := make(map[string]pagestore.PageID, len(defs))
	indexPages := make(map[string]map[string]pagestore.PageID, len(defs))
	for _, d := range defs {
		t, heapPID, idxPages, err := db.tablePages(d.pageType, d.schema)
		if err != nil {
			return err
		}
		handles[d.pageType] = t
		heapPages[d.pageType] = heapPID
		indexPages[d.pageType] = idxPages
	}

	db.tablesTable = handles["tablesTable"]
	db.schemasTable = handles["schemasTable"]
	db.columnsTable = handles["columnsTable"]
	db.indexesTable = handles["indexesTable"]
	db.migrationsTable = handles["migrationsTable"]
	db.sequencesTable = handles["sequencesTable"]

	if alreadyBootstrapped {
		return nil
	}

	for _, d := range defs {
		// A system table's id is its own pageType name rather than a
		// random one: tablePages above already used that exact string
		// to key its heap and index pages in __dbPageIds, and that
		// keying has to stay reachable by the same deterministic
		// string on every future reopen.
		tableID := d.pageType
		row := table.Row{
			"id": tableID, "db": "system", "name": d.pageType,
			"heapPageId": uint64(heapPages[d.pageType]),
		}
		if _, err := db.tablesTable.Insert(row); err != nil {
			return err
		}
		if _, err := db.registerSchemaVersion(tableID, d.schema); err != nil {
			return err
		}
		if err := db.registerIndexes(tableID, d.schema, indexPages[d.pageType]); err != nil {
			return err
		}
	}
	return nil
}

// registerSchemaVersion records one more __dbSchemas row for tableID
// plus its columns in __dbTableColumns, in declared order (spec
// §4.12: "register schema in __dbSchemas and columns in
// __dbTableColumns").
func (db *Db) registerSchemaVersion(tableID string, s *schema.Schema) (uint32, error) {
	existing, err := db.schemasTable.Lookup("tableId", tableID)
	if err != nil {
		return 0, err
	}
	version := uint32(len(existing) + 1)

	id, err := db.nextSerial("__dbSchemas.id")
	if err != nil {
		return 0, err
	}
	if _, err := db.schemasTable.Insert(table.Row{"id": id, "tableId": tableID, "version": version}); err != nil {
		return 0, err
	}

	for i, c := range s.Columns {
		row := table.Row{
			"schemaId": id, "name": c.Name, "type": c.Type.Name(),
			"unique": c.Unique, "indexed": c.Indexed, "indexInMemory": c.IndexInMemory,
			"computed": !c.Stored, "order": uint32(i),
		}
		if _, err := db.columnsTable.Insert(row); err != nil {
			return 0, err
		}
	}
	return version, nil
}

// registerIndexes records one __dbIndexes row per indexed column of s,
// recording the page id tablePages already allocated for it.
func (db *Db) registerIndexes(tableID string, s *schema.Schema, pages map[string]pagestore.PageID) error {
	for _, c := range s.IndexedColumns() {
		row := table.Row{
			"indexName": c.Name, "tableId": tableID,
			"heapPageId": uint64(pages[c.Name]),
		}
		if _, err := db.indexesTable.Insert(row); err != nil {
			return err
		}
	}
	return nil
}
