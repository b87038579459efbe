// Package table implements spec component C11: binding a schema.Schema
// to one rowstore.Storage plus a btree.Index per indexed or unique
// column, enforcing validation, uniqueness, default values, and index
// maintenance around the table operations spec §6 exposes publicly.
package table

import (
	"github.com/pcardune/godb/btree"
	"github.com/pcardune/godb/codec"
	"github.com/pcardune/godb/errs"
	"github.com/pcardune/godb/pagestore"
	"github.com/pcardune/godb/rowstore"
	"github.com/pcardune/godb/schema"
)

// Row is a table record keyed by column name, including computed
// columns when returned from a read.
type Row = map[string]any

// RowID identifies a persisted row (spec §3).
type RowID = rowstore.RowID

// rowIDWidth is the byte width of the fixed-width (page_id:u64,
// slot_index:u32) encoding used for index values — a row id has the exact same shape as a
// B+-tree NodeID (spec GLOSSARY).
const rowIDWidth = 12

func encodeRowID(id RowID) []byte {
	buf := make([]byte, rowIDWidth)
	v := codec.NewView(buf)
	v.SetU64BE(0, uint64(id.PageID))
	v.SetU32BE(8, uint32(id.Index))
	return buf
}

func decodeRowID(b []byte) RowID {
	v := codec.NewView(b)
	pid, _ := v.GetU64BE(0)
	idx, _ := v.GetU32BE(8)
	return RowID{PageID: pagestore.PageID(pid), Index: int(idx)}
}

// Table ties a schema to storage plus one Index per indexed/unique
// column (spec §4.11).
type Table struct {
	schema  *schema.Schema
	storage *rowstore.Storage
	indexes map[string]btree.Index // column name -> index
}

// New builds a Table bound to storage and indexes, which must contain
// one entry per column s.IndexedColumns() names.
func New(s *schema.Schema, storage *rowstore.Storage, indexes map[string]btree.Index) *Table {
	return &Table{schema: s, storage: storage, indexes: indexes}
}

// Schema returns the table's schema.
func (t *Table) Schema() *schema.Schema { return t.schema }

func (t *Table) computedValue(col schema.Column, record Row) (any, error) {
	if col.Compute != nil {
		return col.Compute(record)
	}
	return record[col.Name], nil
}

// applyDefaults fills in DefaultValueFactory values for stored columns
// whose value is absent from record, mutating record in place (spec
// §4.11 step 2).
func (t *Table) applyDefaults(record Row) {
	for _, c := range t.schema.Columns {
		if !c.Stored {
			continue
		}
		if _, present := record[c.Name]; present {
			continue
		}
		if c.DefaultValueFactory != nil {
			record[c.Name] = c.DefaultValueFactory()
		}
	}
}

// validate checks every stored column's value against its type and any
// extra column-level validation (spec §4.11 step 1).
func (t *Table) validate(record Row) error {
	for _, c := range t.schema.Columns {
		if !c.Stored {
			continue
		}
		v := record[c.Name]
		if !c.Type.IsValid(v) {
			return &errs.InvalidRecord{Column: c.Name, Reason: "value failed type validation"}
		}
	}
	return nil
}

// checkUnique probes every unique column's index for a collision (spec
// §4.11 step 3).
func (t *Table) checkUnique(record Row) error {
	for _, c := range t.schema.Columns {
		if !c.Unique {
			continue
		}
		val, err := t.computedValue(c, record)
		if err != nil {
			return err
		}
		idx := t.indexes[c.Name]
		key, err := codec.Encode(c.Type.Codec(), val)
		if err != nil {
			return err
		}
		has, err := idx.Has(key)
		if err != nil {
			return err
		}
		if has {
			return &errs.Duplicate{Column: c.Name}
		}
	}
	return nil
}

// updateIndexes inserts (value, rowid) into every indexed column's
// index (spec §4.11 step 5).
func (t *Table) updateIndexes(id RowID, record Row) error {
	value := encodeRowID(id)
	for _, c := range t.schema.IndexedColumns() {
		val, err := t.computedValue(c, record)
		if err != nil {
			return err
		}
		key, err := codec.Encode(c.Type.Codec(), val)
		if err != nil {
			return err
		}
		if err := t.indexes[c.Name].Insert(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Insert validates, defaults, checks uniqueness, persists, and indexes
// record, per the contract in spec §4.11.
func (t *Table) Insert(record Row) (RowID, error) {
	t.applyDefaults(record)
	if err := t.validate(record); err != nil {
		return RowID{}, err
	}
	if err := t.checkUnique(record); err != nil {
		return RowID{}, err
	}
	id, err := t.storage.Insert(record)
	if err != nil {
		return RowID{}, err
	}
	if err := t.updateIndexes(id, record); err != nil {
		return RowID{}, err
	}
	return id, t.storage.Commit()
}

// InsertMany inserts every record in order, returning their row ids.
func (t *Table) InsertMany(records []Row) ([]RowID, error) {
	ids := make([]RowID, 0, len(records))
	for _, r := range records {
		id, err := t.Insert(r)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// InsertAndReturn inserts record and returns the exact row the table
// now holds for it (with defaults materialized).
func (t *Table) InsertAndReturn(record Row) (Row, error) {
	id, err := t.Insert(record)
	if err != nil {
		return nil, err
	}
	row, _, err := t.storage.Get(id)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Get returns the row at id, or ok=false if it has been removed.
func (t *Table) Get(id RowID) (Row, bool, error) {
	return t.storage.Get(id)
}

// Set overwrites the row at id with row's contents in place. It does
// not touch any index — callers changing an indexed column's value
// must Remove and re-Insert instead, since Set alone would leave stale
// (old value, id) entries behind; Set is for non-indexed updates,
// matching spec §4.10's in-place-only contract.
func (t *Table) Set(id RowID, record Row) (RowID, error) {
	if err := t.validate(record); err != nil {
		return RowID{}, err
	}
	newID, err := t.storage.Set(id, record)
	if err != nil {
		return RowID{}, err
	}
	return newID, t.storage.Commit()
}

// Remove deletes the row at id from storage only; callers responsible
// for index coherence should prefer RemoveWhere, which also strips the
// row's entries from every index.
func (t *Table) Remove(id RowID) error {
	if err := t.storage.Remove(id); err != nil {
		return err
	}
	return t.storage.Commit()
}

// RemoveWhere removes every row the named index yields for value,
// including that row's entries in every other index (spec §4.11).
func (t *Table) RemoveWhere(indexName string, value any) error {
	col, ok := t.schema.Column(indexName)
	if !ok {
		return &errs.NotFound{What: "index " + indexName}
	}
	idx, ok := t.indexes[indexName]
	if !ok {
		return &errs.NotFound{What: "index " + indexName}
	}
	key, err := codec.Encode(col.Type.Codec(), value)
	if err != nil {
		return err
	}
	ridBytes, err := idx.Get(key)
	if err != nil {
		return err
	}
	for _, rb := range ridBytes {
		id := decodeRowID(rb)
		row, ok, err := t.storage.Get(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for _, c := range t.schema.IndexedColumns() {
			v, err := t.computedValue(c, row)
			if err != nil {
				return err
			}
			k, err := codec.Encode(c.Type.Codec(), v)
			if err != nil {
				return err
			}
			if err := t.indexes[c.Name].Remove(k, encodeRowID(id)); err != nil {
				return err
			}
		}
		if err := t.storage.Remove(id); err != nil {
			return err
		}
	}
	return t.storage.Commit()
}

// Lookup fetches every row the named index holds for value.
func (t *Table) Lookup(indexName string, value any) ([]Row, error) {
	col, ok := t.schema.Column(indexName)
	if !ok {
		return nil, &errs.NotFound{What: "index " + indexName}
	}
	key, err := codec.Encode(col.Type.Codec(), value)
	if err != nil {
		return nil, err
	}
	return t.lookupByKey(indexName, key)
}

// LookupComputed fetches every row whose computed column indexName
// evaluates to value.
func (t *Table) LookupComputed(indexName string, value any) ([]Row, error) {
	return t.Lookup(indexName, value)
}

func (t *Table) lookupByKey(indexName string, key []byte) ([]Row, error) {
	idx, ok := t.indexes[indexName]
	if !ok {
		return nil, &errs.NotFound{What: "index " + indexName}
	}
	ridBytes, err := idx.Get(key)
	if err != nil {
		return nil, err
	}
	var rows []Row
	for _, rb := range ridBytes {
		row, ok, err := t.storage.Get(decodeRowID(rb))
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// LookupUniqueID fetches the row id the named unique index holds for
// value, without materializing the row. Exposed for internal callers
// (the catalog's serial-id generator, spec §6) that need a RowID to
// follow up with Set; not part of the public lookup surface spec §6
// names.
func (t *Table) LookupUniqueID(indexName string, value any) (RowID, bool, error) {
	col, ok := t.schema.Column(indexName)
	if !ok {
		return RowID{}, false, &errs.NotFound{What: "index " + indexName}
	}
	idx, ok := t.indexes[indexName]
	if !ok {
		return RowID{}, false, &errs.NotFound{What: "index " + indexName}
	}
	key, err := codec.Encode(col.Type.Codec(), value)
	if err != nil {
		return RowID{}, false, err
	}
	ridBytes, err := idx.Get(key)
	if err != nil {
		return RowID{}, false, err
	}
	if len(ridBytes) == 0 {
		return RowID{}, false, nil
	}
	return decodeRowID(ridBytes[0]), true, nil
}

// LookupUnique fetches the single row the named unique index holds for
// value, ignoring any extras (spec §4.11).
func (t *Table) LookupUnique(indexName string, value any) (Row, bool, error) {
	rows, err := t.Lookup(indexName, value)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0], true, nil
}

// Scan does a full-table iterate filtered by column type's IsEqual.
func (t *Table) Scan(column string, value any) ([]Row, error) {
	col, ok := t.schema.Column(column)
	if !ok {
		return nil, &errs.NotFound{What: "column " + column}
	}
	var rows []Row
	err := t.Each(func(_ RowID, row Row) error {
		v, err := t.computedValue(col, row)
		if err != nil {
			return err
		}
		if col.Type.IsEqual(v, value) {
			rows = append(rows, row)
		}
		return nil
	})
	return rows, err
}

// Each iterates every live row (spec §4.10 "iterate"), decorating each
// with its computed column values.
func (t *Table) Each(fn func(RowID, Row) error) error {
	return t.storage.Each(func(id RowID, row Row) error {
		for _, c := range t.schema.Columns {
			if c.Stored {
				continue
			}
			v, err := c.Compute(row)
			if err != nil {
				return err
			}
			row[c.Name] = v
		}
		return fn(id, row)
	})
}

// Drop frees every page owned by this table's storage and indexes
// (spec §5: "dropping the table frees all its data, index, and
// directory pages").
func (t *Table) Drop() error {
	for _, idx := range t.indexes {
		if err := idx.Drop(); err != nil {
			return err
		}
	}
	_, err := t.storage.Drop()
	return err
}
