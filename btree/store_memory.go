package btree

import (
	"github.com/pcardune/godb/errs"
	"github.com/pcardune/godb/pagestore"
)

// MemoryNodeStore is the in-memory node store variant: a hash map of
// NodeID to Node, with NodeIDs synthesized from a monotonic counter
// rather than real heap-file slots. There is nothing to flush, so
// Commit is a no-op.
type MemoryNodeStore struct {
	nodes map[NodeID]Node
	next  pagestore.PageID
}

// NewMemoryNodeStore creates an empty in-memory node store.
func NewMemoryNodeStore() *MemoryNodeStore {
	return &MemoryNodeStore{nodes: make(map[NodeID]Node), next: 1}
}

func (s *MemoryNodeStore) allocID() NodeID {
	id := NodeID{PageID: s.next, Index: 0}
	s.next++
	return id
}

func (s *MemoryNodeStore) Get(id NodeID) (Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return Node{}, &errs.NotFound{What: "node"}
	}
	return n, nil
}

func (s *MemoryNodeStore) CreateLeaf(keyvals []KeyVal, prev, next NodeID) (NodeID, error) {
	id := s.allocID()
	s.nodes[id] = Node{Leaf: &LeafNode{KeyVals: keyvals, Prev: prev, Next: next}}
	return id, nil
}

func (s *MemoryNodeStore) CreateInternal(keys [][]byte, children []NodeID) (NodeID, error) {
	id := s.allocID()
	s.nodes[id] = Node{Internal: &InternalNode{Keys: keys, Children: children}}
	return id, nil
}

func (s *MemoryNodeStore) MarkDirty(id NodeID, n Node) error {
	s.nodes[id] = n
	return nil
}

func (s *MemoryNodeStore) DeleteNode(id NodeID) error {
	delete(s.nodes, id)
	return nil
}

func (s *MemoryNodeStore) Commit() error { return nil }
