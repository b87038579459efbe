package table

import (
	"bytes"

	"github.com/pcardune/godb/btree"
	"github.com/pcardune/godb/codec"
	"github.com/pcardune/godb/pagestore"
	"github.com/pcardune/godb/schema"
)

// DefaultOrder is the B+-tree order used for every column index built
// through NewIndex, matching spec §4.8's stated default.
const DefaultOrder = 2

// columnCompare adapts a column type's Compare into a btree.CompareFunc
// over encoded key bytes: both sides are decoded through the type's
// codec before comparing the decoded values. Spec §4.1: "Decimal
// ordering is delegated to the column type comparator — the codec is
// format-only."
func columnCompare(t schema.Type) btree.CompareFunc {
	c := t.Codec()
	return func(a, b []byte) int {
		av, errA := codec.Decode(c, a)
		bv, errB := codec.Decode(c, b)
		if errA != nil || errB != nil {
			return bytes.Compare(a, b)
		}
		return t.Compare(av, bv)
	}
}

// rowIDEqual compares two encoded row-id index values byte for byte.
func rowIDEqual(a, b []byte) bool { return bytes.Equal(a, b) }

// NewIndex builds the Index for col: an in-memory B+-tree if
// col.IndexInMemory, otherwise a disk-backed one whose header record
// lives at headerPage (spec §4.9).
func NewIndex(bp *pagestore.BufferPool, headerPage pagestore.PageID, col schema.Column) (btree.Index, error) {
	cmp := columnCompare(col.Type)
	if col.IndexInMemory {
		return btree.NewMemoryIndex(DefaultOrder, cmp, rowIDEqual)
	}
	return btree.OpenDiskIndex(bp, headerPage, DefaultOrder, cmp, rowIDEqual), nil
}
