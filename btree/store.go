package btree

// NodeStore persists and retrieves B+-tree nodes, with a dirty cache so
// repeated edits within one operation don't round-trip through storage
// until Commit.
type NodeStore interface {
	Get(id NodeID) (Node, error)
	CreateLeaf(keyvals []KeyVal, prev, next NodeID) (NodeID, error)
	CreateInternal(keys [][]byte, children []NodeID) (NodeID, error)
	MarkDirty(id NodeID, n Node) error
	DeleteNode(id NodeID) error
	Commit() error
}
