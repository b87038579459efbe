package dbfile

import (
	"sync"

	"github.com/pcardune/godb/table"
)

// nextSerial implements the serial-id generator spec §6 describes for
// user `serial()` columns: a durable counter in __dbSequences, read,
// incremented, and written back under a per-name mutex so two calls
// for the same name never observe the same value. Before the first
// call for a given name it lazily inserts a row with value=1.
//
// The catalog also uses this internally to mint __dbSchemas.id values,
// keyed under the name "__dbSchemas.id". NextSerial accepts any name,
// so a caller passing that same string shares the catalog's counter.
func (db *Db) nextSerial(name string) (uint32, error) {
	db.mu.Lock()
	m, ok := db.seriesMu[name]
	if !ok {
		m = &sync.Mutex{}
		db.seriesMu[name] = m
	}
	db.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	id, ok, err := db.sequencesTable.LookupUniqueID("name", name)
	if err != nil {
		return 0, err
	}
	if !ok {
		if _, err := db.sequencesTable.Insert(table.Row{"name": name, "value": uint32(1)}); err != nil {
			return 0, err
		}
		return 1, nil
	}

	row, _, err := db.sequencesTable.Get(id)
	if err != nil {
		return 0, err
	}
	value := row["value"].(uint32) + 1
	row["value"] = value
	if _, err := db.sequencesTable.Set(id, row); err != nil {
		return 0, err
	}
	return value, nil
}

// NextSerial is the public entry point for a schema's serial() column
// default-value factory: column_fqn is conventionally "table.column".
func (db *Db) NextSerial(columnFQN string) (uint32, error) {
	return db.nextSerial(columnFQN)
}
