// Package rowstore implements spec component C10: mapping a row id to
// its serialized byte range inside a heapfile.HeapPageFile, grounded on
// the same slot-allocate/slot-read shape the B+-tree node store (btree
// package) uses for its own records — here carrying a schema-shaped
// Record codec instead of a tagged node.
package rowstore

import (
	"github.com/pcardune/godb/codec"
	"github.com/pcardune/godb/errs"
	"github.com/pcardune/godb/heapfile"
	"github.com/pcardune/godb/pagestore"
)

// RowID identifies a persisted row: the heap-file slot holding its
// bytes. Stable across commits as long as the slot is not freed (spec
// §3 "Row identifier").
type RowID = heapfile.Slot

// Storage binds a schema's stored-column Record codec to a heap page
// file. Row values are represented positionally, matching the field
// order Fields was built with; callers (the table package) translate to
// and from column-name maps.
type Storage struct {
	hf       *heapfile.HeapPageFile
	names    []string
	rowCodec codec.Variable[[]any]
}

// New binds a Record built from fields (declared column order) to hf.
func New(hf *heapfile.HeapPageFile, fields []codec.Field) *Storage {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return &Storage{
		hf:       hf,
		names:    names,
		rowCodec: codec.Variable[[]any]{Inner: codec.Record{Fields: fields}, Zero: nil},
	}
}

func (s *Storage) toPositional(row map[string]any) []any {
	vals := make([]any, len(s.names))
	for i, n := range s.names {
		vals[i] = row[n]
	}
	return vals
}

func (s *Storage) fromPositional(vals []any) map[string]any {
	row := make(map[string]any, len(s.names))
	for i, n := range s.names {
		row[n] = vals[i]
	}
	return row
}

// Insert encodes row's stored columns and allocates space for it in the
// heap page file, returning the fresh row id.
func (s *Storage) Insert(row map[string]any) (RowID, error) {
	vals := s.toPositional(row)
	n := s.rowCodec.SizeOf(vals)
	slot, err := s.hf.AllocateSpace(n)
	if err != nil {
		return RowID{}, err
	}
	buf := make([]byte, n)
	if err := s.rowCodec.WriteAt(vals, codec.NewView(buf), 0); err != nil {
		return RowID{}, err
	}
	if err := s.hf.WriteSlotInPlace(slot, buf); err != nil {
		return RowID{}, err
	}
	return slot, nil
}

// Get decodes the row at id, reporting ok=false if the slot has been
// freed.
func (s *Storage) Get(id RowID) (map[string]any, bool, error) {
	data, ok, err := s.hf.ReadSlot(id)
	if err != nil || !ok {
		return nil, ok, err
	}
	vals, err := s.rowCodec.ReadAt(codec.NewView(data), 0)
	if err != nil {
		return nil, false, err
	}
	return s.fromPositional(vals), true, nil
}

// Set overwrites the row at id with row's new contents. Per spec §9's
// reading of the source, growing updates are rejected with NoSpace
// rather than forwarded to a new slot — id always identifies the same
// bytes for as long as it is live.
func (s *Storage) Set(id RowID, row map[string]any) (RowID, error) {
	vals := s.toPositional(row)
	n := s.rowCodec.SizeOf(vals)
	curLen, err := s.hf.SlotLength(id)
	if err != nil {
		return RowID{}, err
	}
	if n > curLen {
		return RowID{}, &errs.NoSpace{Needed: n, Available: curLen}
	}
	buf := make([]byte, curLen)
	if err := s.rowCodec.WriteAt(vals, codec.NewView(buf), 0); err != nil {
		return RowID{}, err
	}
	if err := s.hf.WriteSlotInPlace(id, buf); err != nil {
		return RowID{}, err
	}
	return id, nil
}

// Remove frees the slot at id. The row id is not retired: the slotted
// page reuses freed slot indexes, so a later Insert that lands on the
// same page can be handed this same row id again.
func (s *Storage) Remove(id RowID) error {
	return s.hf.FreeSlot(id)
}

// Each walks every header page entry, then every live slot on each data
// page, calling fn with each row's id and decoded value (spec §4.10
// "iterate"). Iteration stops and returns fn's error if it returns one.
func (s *Storage) Each(fn func(RowID, map[string]any) error) error {
	pageIDs, err := s.hf.DataPageIDs()
	if err != nil {
		return err
	}
	for _, pid := range pageIDs {
		slots, err := s.hf.SlotsOnPage(pid)
		if err != nil {
			return err
		}
		for idx, slot := range slots {
			if slot.Length == 0 {
				continue
			}
			id := RowID{PageID: pid, Index: idx}
			row, ok, err := s.Get(id)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := fn(id, row); err != nil {
				return err
			}
		}
	}
	return nil
}

// Commit delegates to the buffer pool underlying this storage's heap
// page file (spec §4.10).
func (s *Storage) Commit() error {
	return s.hf.Commit()
}

// Drop frees every page this storage's heap page file owns, returning
// their ids (spec §5: "dropping the table frees all owned pages").
func (s *Storage) Drop() ([]pagestore.PageID, error) {
	return s.hf.Drop()
}
