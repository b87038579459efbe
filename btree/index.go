package btree

import (
	"github.com/pcardune/godb/codec"
	"github.com/pcardune/godb/errs"
	"github.com/pcardune/godb/heapfile"
	"github.com/pcardune/godb/pagestore"
)

// Pair is one (key, value) entry for InsertMany.
type Pair struct {
	Key, Value []byte
}

// Index is the uniform key to row-id-list lookup surface shared by the
// in-memory and on-disk B+-tree variants (spec component C9). Every
// method on a dropped Index returns UseAfterDrop.
type Index interface {
	InsertMany(pairs []Pair) error
	Insert(key, value []byte) error
	Get(key []byte) ([][]byte, error)
	Has(key []byte) (bool, error)
	Remove(key, value []byte) error
	RemoveAll(key []byte) error
	GetRange(r RangeSpec) ([]KeyVal, error)
	Drop() error
}

// MemoryIndex is an Index backed entirely by process memory; nothing
// it holds survives a restart.
type MemoryIndex struct {
	tree    *Tree
	dropped bool
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex(order int, compare CompareFunc, valEq EqualFunc) (*MemoryIndex, error) {
	tree, err := Create(NewMemoryNodeStore(), order, compare, valEq)
	if err != nil {
		return nil, err
	}
	return &MemoryIndex{tree: tree}, nil
}

func (idx *MemoryIndex) checkDropped() error {
	if idx.dropped {
		return &errs.UseAfterDrop{What: "index"}
	}
	return nil
}

func (idx *MemoryIndex) InsertMany(pairs []Pair) error {
	if err := idx.checkDropped(); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := idx.tree.Insert(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

func (idx *MemoryIndex) Insert(key, value []byte) error {
	if err := idx.checkDropped(); err != nil {
		return err
	}
	return idx.tree.Insert(key, value)
}

func (idx *MemoryIndex) Get(key []byte) ([][]byte, error) {
	if err := idx.checkDropped(); err != nil {
		return nil, err
	}
	return idx.tree.Get(key)
}

func (idx *MemoryIndex) Has(key []byte) (bool, error) {
	if err := idx.checkDropped(); err != nil {
		return false, err
	}
	return idx.tree.Has(key)
}

func (idx *MemoryIndex) Remove(key, value []byte) error {
	if err := idx.checkDropped(); err != nil {
		return err
	}
	return idx.tree.Remove(key, value)
}

func (idx *MemoryIndex) RemoveAll(key []byte) error {
	if err := idx.checkDropped(); err != nil {
		return err
	}
	return idx.tree.RemoveAll(key)
}

func (idx *MemoryIndex) GetRange(r RangeSpec) ([]KeyVal, error) {
	if err := idx.checkDropped(); err != nil {
		return nil, err
	}
	return idx.tree.GetRange(r)
}

func (idx *MemoryIndex) Drop() error {
	if err := idx.checkDropped(); err != nil {
		return err
	}
	idx.dropped = true
	return nil
}

// DiskIndex is an Index persisted through a pagestore.BufferPool. Its
// whole state is a tiny header record — the backing heap page file's
// head page id plus the tree's root NodeID — at a PageId chosen by the
// caller (a catalog entry, typically). The heap page file and tree are
// created lazily on first use rather than at construction, so opening
// an index that was never written to costs nothing.
type DiskIndex struct {
	bp         *pagestore.BufferPool
	headerPage pagestore.PageID
	order      int
	compare    CompareFunc
	valEq      EqualFunc

	hf      *heapfile.HeapPageFile
	tree    *Tree
	dropped bool
}

const (
	diskIndexHeapHeadOffset = 0
	diskIndexRootOffset     = 8
)

// OpenDiskIndex wraps the index whose header record lives at
// headerPage. If that page has never been initialized (heap head
// reads as zero), the underlying heap page file and tree are built on
// the first mutating or reading call.
func OpenDiskIndex(bp *pagestore.BufferPool, headerPage pagestore.PageID, order int, compare CompareFunc, valEq EqualFunc) *DiskIndex {
	return &DiskIndex{bp: bp, headerPage: headerPage, order: order, compare: compare, valEq: valEq}
}

func (idx *DiskIndex) checkDropped() error {
	if idx.dropped {
		return &errs.UseAfterDrop{What: "index"}
	}
	return nil
}

func (idx *DiskIndex) ensureTree() (*Tree, error) {
	if idx.tree != nil {
		return idx.tree, nil
	}

	v, err := idx.bp.ReadView(idx.headerPage)
	if err != nil {
		return nil, err
	}
	heapHead, err := v.GetU64BE(diskIndexHeapHeadOffset)
	if err != nil {
		return nil, err
	}

	if heapHead == 0 {
		hf, err := heapfile.Create(idx.bp)
		if err != nil {
			return nil, err
		}
		tree, err := Create(NewDiskNodeStore(hf), idx.order, idx.compare, idx.valEq)
		if err != nil {
			return nil, err
		}
		idx.hf, idx.tree = hf, tree
		if err := idx.writeHeader(); err != nil {
			return nil, err
		}
		return tree, nil
	}

	hf := heapfile.Open(idx.bp, pagestore.PageID(heapHead))
	rootID, err := getNodeID(v, diskIndexRootOffset)
	if err != nil {
		return nil, err
	}
	tree := Open(NewDiskNodeStore(hf), idx.order, idx.compare, idx.valEq, rootID)
	idx.hf, idx.tree = hf, tree
	return tree, nil
}

// writeHeader persists the heap file's current head page and the
// tree's current root, called after every mutating operation since
// either can change (a leaf/internal split moves the root; a heap
// page file allocation can push a new header page to its front).
func (idx *DiskIndex) writeHeader() error {
	_, err := pagestore.WriteToPage(idx.bp, idx.headerPage, func(v *codec.View) (struct{}, error) {
		if err := v.SetU64BE(diskIndexHeapHeadOffset, uint64(idx.hf.HeadPageID())); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, putNodeID(v, diskIndexRootOffset, idx.tree.Root())
	})
	return err
}

func (idx *DiskIndex) InsertMany(pairs []Pair) error {
	if err := idx.checkDropped(); err != nil {
		return err
	}
	tree, err := idx.ensureTree()
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := tree.Insert(p.Key, p.Value); err != nil {
			return err
		}
	}
	return idx.writeHeader()
}

func (idx *DiskIndex) Insert(key, value []byte) error {
	if err := idx.checkDropped(); err != nil {
		return err
	}
	tree, err := idx.ensureTree()
	if err != nil {
		return err
	}
	if err := tree.Insert(key, value); err != nil {
		return err
	}
	return idx.writeHeader()
}

func (idx *DiskIndex) Get(key []byte) ([][]byte, error) {
	if err := idx.checkDropped(); err != nil {
		return nil, err
	}
	tree, err := idx.ensureTree()
	if err != nil {
		return nil, err
	}
	return tree.Get(key)
}

func (idx *DiskIndex) Has(key []byte) (bool, error) {
	if err := idx.checkDropped(); err != nil {
		return false, err
	}
	tree, err := idx.ensureTree()
	if err != nil {
		return false, err
	}
	return tree.Has(key)
}

func (idx *DiskIndex) Remove(key, value []byte) error {
	if err := idx.checkDropped(); err != nil {
		return err
	}
	tree, err := idx.ensureTree()
	if err != nil {
		return err
	}
	if err := tree.Remove(key, value); err != nil {
		return err
	}
	return idx.writeHeader()
}

func (idx *DiskIndex) RemoveAll(key []byte) error {
	if err := idx.checkDropped(); err != nil {
		return err
	}
	tree, err := idx.ensureTree()
	if err != nil {
		return err
	}
	if err := tree.RemoveAll(key); err != nil {
		return err
	}
	return idx.writeHeader()
}

func (idx *DiskIndex) GetRange(r RangeSpec) ([]KeyVal, error) {
	if err := idx.checkDropped(); err != nil {
		return nil, err
	}
	tree, err := idx.ensureTree()
	if err != nil {
		return nil, err
	}
	return tree.GetRange(r)
}

// Drop frees the backing heap page file's pages. The header page
// itself belongs to whatever catalog allocated it and is left alone.
func (idx *DiskIndex) Drop() error {
	if err := idx.checkDropped(); err != nil {
		return err
	}
	if idx.hf == nil {
		v, err := idx.bp.ReadView(idx.headerPage)
		if err != nil {
			return err
		}
		heapHead, err := v.GetU64BE(diskIndexHeapHeadOffset)
		if err != nil {
			return err
		}
		if heapHead != 0 {
			idx.hf = heapfile.Open(idx.bp, pagestore.PageID(heapHead))
		}
	}
	if idx.hf != nil {
		if _, err := idx.hf.Drop(); err != nil {
			return err
		}
	}
	idx.dropped = true
	return nil
}
