package btree

import (
	"github.com/pcardune/godb/errs"
	"github.com/pcardune/godb/heapfile"
)

// DiskNodeStore persists node bytes as records inside a heapfile, keyed
// by their (page_id, slot_index) heap-file slot.
type DiskNodeStore struct {
	hf    *heapfile.HeapPageFile
	dirty map[NodeID]Node
}

// NewDiskNodeStore wraps an existing heap page file as a node store.
func NewDiskNodeStore(hf *heapfile.HeapPageFile) *DiskNodeStore {
	return &DiskNodeStore{hf: hf, dirty: make(map[NodeID]Node)}
}

func (s *DiskNodeStore) Get(id NodeID) (Node, error) {
	if n, ok := s.dirty[id]; ok {
		return n, nil
	}
	buf, ok, err := s.hf.ReadSlot(id)
	if err != nil {
		return Node{}, err
	}
	if !ok {
		return Node{}, &errs.NotFound{What: "node"}
	}
	return decodeNode(buf)
}

func (s *DiskNodeStore) CreateLeaf(keyvals []KeyVal, prev, next NodeID) (NodeID, error) {
	n := Node{Leaf: &LeafNode{KeyVals: keyvals, Prev: prev, Next: next}}
	buf, err := encodeLeaf(n.Leaf)
	if err != nil {
		return NodeID{}, err
	}
	slot, err := s.hf.AllocateSpace(len(buf))
	if err != nil {
		return NodeID{}, err
	}
	if err := s.hf.WriteSlotInPlace(slot, buf); err != nil {
		return NodeID{}, err
	}
	s.dirty[slot] = n
	return slot, nil
}

func (s *DiskNodeStore) CreateInternal(keys [][]byte, children []NodeID) (NodeID, error) {
	n := Node{Internal: &InternalNode{Keys: keys, Children: children}}
	buf, err := encodeInternal(n.Internal)
	if err != nil {
		return NodeID{}, err
	}
	slot, err := s.hf.AllocateSpace(len(buf))
	if err != nil {
		return NodeID{}, err
	}
	if err := s.hf.WriteSlotInPlace(slot, buf); err != nil {
		return NodeID{}, err
	}
	s.dirty[slot] = n
	return slot, nil
}

func (s *DiskNodeStore) MarkDirty(id NodeID, n Node) error {
	s.dirty[id] = n
	return nil
}

func (s *DiskNodeStore) DeleteNode(id NodeID) error {
	delete(s.dirty, id)
	return s.hf.FreeSlot(id)
}

// Commit serializes every dirty node into its slot in place. Fails with
// NoSpace if a node's encoded size no longer matches the slot it was
// allocated into — nodes are always reallocated fresh on resize via
// create-new-then-swap, so this only fires if a caller mutated a node
// in place against that convention.
func (s *DiskNodeStore) Commit() error {
	for id, n := range s.dirty {
		buf, err := encodeNode(n)
		if err != nil {
			return err
		}
		length, err := s.hf.SlotLength(id)
		if err != nil {
			return err
		}
		if length != len(buf) {
			return &errs.NoSpace{Needed: len(buf), Available: length}
		}
		if err := s.hf.WriteSlotInPlace(id, buf); err != nil {
			return err
		}
	}
	s.dirty = make(map[NodeID]Node)
	return nil
}
