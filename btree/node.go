// Package btree implements the disk-resident B+-tree (spec components
// C7 node store, C8 tree algorithm, C9 index abstraction): a key to
// row-id-list index with split-on-overflow and doubly linked leaves for
// range scans. Node bytes are tag-dispatched (leaf vs internal) and
// live as records inside a heapfile.HeapPageFile rather than occupying
// a whole page each, per the data model's node-store section.
package btree

import (
	"github.com/pcardune/godb/codec"
	"github.com/pcardune/godb/errs"
	"github.com/pcardune/godb/heapfile"
	"github.com/pcardune/godb/pagestore"
)

// NodeID identifies a node. On disk it is the heap-file slot holding
// the node's encoded bytes: (page_id: u64 BE, slot_index: u32 BE), null
// = (0, 0). The in-memory node store synthesizes NodeIDs from a
// monotonic counter (Index always 0) rather than real heap-file slots.
type NodeID = heapfile.Slot

// NullNodeID is never a valid node.
var NullNodeID = NodeID{}

// KeyVal is one entry in a leaf: a key and the (possibly multi-valued)
// row-id list stored under it.
type KeyVal struct {
	Key  []byte
	Vals [][]byte
}

// LeafNode is a B+-tree leaf: sorted key/value-list pairs plus sibling
// links for range scans.
type LeafNode struct {
	KeyVals []KeyVal
	Prev    NodeID
	Next    NodeID
}

// InternalNode holds m sorted separator keys and m+1 child pointers;
// children[i] is the subtree for keys < keys[i] (children[m] for keys
// >= keys[m-1]).
type InternalNode struct {
	Keys     [][]byte
	Children []NodeID
}

// Node is exactly one of Leaf or Internal.
type Node struct {
	Leaf     *LeafNode
	Internal *InternalNode
}

func (n Node) IsLeaf() bool { return n.Leaf != nil }

const (
	tagLeaf     uint8 = 1
	tagInternal uint8 = 2

	nodeIDWidth = 12 // page_id:u64 + slot_index:u32
)

func putNodeID(v *codec.View, off int, id NodeID) error {
	if err := v.SetU64BE(off, uint64(id.PageID)); err != nil {
		return err
	}
	return v.SetU32BE(off+8, uint32(id.Index))
}

func getNodeID(v *codec.View, off int) (NodeID, error) {
	page, err := v.GetU64BE(off)
	if err != nil {
		return NodeID{}, err
	}
	slot, err := v.GetU32BE(off + 8)
	if err != nil {
		return NodeID{}, err
	}
	return NodeID{PageID: pagestore.PageID(page), Index: int(slot)}, nil
}

func leafSize(l *LeafNode) int {
	size := 1 + 2*nodeIDWidth + 4
	for _, kv := range l.KeyVals {
		size += 4 + len(kv.Key) + 4
		for _, val := range kv.Vals {
			size += 4 + len(val)
		}
	}
	return size
}

func encodeLeaf(l *LeafNode) ([]byte, error) {
	buf := make([]byte, leafSize(l))
	v := codec.NewView(buf)
	if err := v.SetU8(0, tagLeaf); err != nil {
		return nil, err
	}
	off := 1
	if err := putNodeID(v, off, l.Prev); err != nil {
		return nil, err
	}
	off += nodeIDWidth
	if err := putNodeID(v, off, l.Next); err != nil {
		return nil, err
	}
	off += nodeIDWidth
	if err := v.SetU32BE(off, uint32(len(l.KeyVals))); err != nil {
		return nil, err
	}
	off += 4
	for _, kv := range l.KeyVals {
		if err := v.SetU32BE(off, uint32(len(kv.Key))); err != nil {
			return nil, err
		}
		off += 4
		if err := v.SetBytes(off, kv.Key); err != nil {
			return nil, err
		}
		off += len(kv.Key)
		if err := v.SetU32BE(off, uint32(len(kv.Vals))); err != nil {
			return nil, err
		}
		off += 4
		for _, val := range kv.Vals {
			if err := v.SetU32BE(off, uint32(len(val))); err != nil {
				return nil, err
			}
			off += 4
			if err := v.SetBytes(off, val); err != nil {
				return nil, err
			}
			off += len(val)
		}
	}
	return buf, nil
}

// decodeLeaf decodes buf as a leaf, reporting WrongNodeType if the tag
// byte doesn't match — the node store's retry-as-internal signal.
func decodeLeaf(buf []byte) (*LeafNode, error) {
	v := codec.NewView(buf)
	tag, err := v.GetU8(0)
	if err != nil {
		return nil, err
	}
	if tag != tagLeaf {
		return nil, &errs.WrongNodeType{Found: tag, Expected: tagLeaf}
	}
	off := 1
	prev, err := getNodeID(v, off)
	if err != nil {
		return nil, err
	}
	off += nodeIDWidth
	next, err := getNodeID(v, off)
	if err != nil {
		return nil, err
	}
	off += nodeIDWidth
	count, err := v.GetU32BE(off)
	if err != nil {
		return nil, err
	}
	off += 4

	keyvals := make([]KeyVal, count)
	for i := range keyvals {
		keyLen, err := v.GetU32BE(off)
		if err != nil {
			return nil, err
		}
		off += 4
		key, err := v.GetBytes(off, int(keyLen))
		if err != nil {
			return nil, err
		}
		off += int(keyLen)
		valCount, err := v.GetU32BE(off)
		if err != nil {
			return nil, err
		}
		off += 4
		vals := make([][]byte, valCount)
		for j := range vals {
			valLen, err := v.GetU32BE(off)
			if err != nil {
				return nil, err
			}
			off += 4
			val, err := v.GetBytes(off, int(valLen))
			if err != nil {
				return nil, err
			}
			off += int(valLen)
			vals[j] = val
		}
		keyvals[i] = KeyVal{Key: key, Vals: vals}
	}
	return &LeafNode{KeyVals: keyvals, Prev: prev, Next: next}, nil
}

func internalSize(n *InternalNode) int {
	size := 1 + 4 + len(n.Children)*nodeIDWidth
	for _, k := range n.Keys {
		size += 4 + len(k)
	}
	return size
}

func encodeInternal(n *InternalNode) ([]byte, error) {
	buf := make([]byte, internalSize(n))
	v := codec.NewView(buf)
	if err := v.SetU8(0, tagInternal); err != nil {
		return nil, err
	}
	off := 1
	if err := v.SetU32BE(off, uint32(len(n.Keys))); err != nil {
		return nil, err
	}
	off += 4
	for _, c := range n.Children {
		if err := putNodeID(v, off, c); err != nil {
			return nil, err
		}
		off += nodeIDWidth
	}
	for _, k := range n.Keys {
		if err := v.SetU32BE(off, uint32(len(k))); err != nil {
			return nil, err
		}
		off += 4
		if err := v.SetBytes(off, k); err != nil {
			return nil, err
		}
		off += len(k)
	}
	return buf, nil
}

func decodeInternal(buf []byte) (*InternalNode, error) {
	v := codec.NewView(buf)
	tag, err := v.GetU8(0)
	if err != nil {
		return nil, err
	}
	if tag != tagInternal {
		return nil, &errs.WrongNodeType{Found: tag, Expected: tagInternal}
	}
	off := 1
	keyCount, err := v.GetU32BE(off)
	if err != nil {
		return nil, err
	}
	off += 4
	children := make([]NodeID, keyCount+1)
	for i := range children {
		id, err := getNodeID(v, off)
		if err != nil {
			return nil, err
		}
		off += nodeIDWidth
		children[i] = id
	}
	keys := make([][]byte, keyCount)
	for i := range keys {
		keyLen, err := v.GetU32BE(off)
		if err != nil {
			return nil, err
		}
		off += 4
		key, err := v.GetBytes(off, int(keyLen))
		if err != nil {
			return nil, err
		}
		off += int(keyLen)
		keys[i] = key
	}
	return &InternalNode{Keys: keys, Children: children}, nil
}

// encodeNode dispatches on which half of Node is populated.
func encodeNode(n Node) ([]byte, error) {
	if n.IsLeaf() {
		return encodeLeaf(n.Leaf)
	}
	return encodeInternal(n.Internal)
}

// decodeNode tries leaf first; a WrongNodeType error is the signal to
// retry as internal, per the node store's tag-dispatched contract. Any
// other tag is a corrupt page.
func decodeNode(buf []byte) (Node, error) {
	leaf, err := decodeLeaf(buf)
	if err == nil {
		return Node{Leaf: leaf}, nil
	}
	if _, wrongType := err.(*errs.WrongNodeType); !wrongType {
		return Node{}, err
	}
	internal, err := decodeInternal(buf)
	if err == nil {
		return Node{Internal: internal}, nil
	}
	if _, wrongType := err.(*errs.WrongNodeType); wrongType {
		return Node{}, &errs.CorruptPage{Reason: "node tag is neither leaf nor internal"}
	}
	return Node{}, err
}
