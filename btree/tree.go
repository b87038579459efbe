package btree

import "github.com/pcardune/godb/errs"

// CompareFunc orders two encoded keys the way a column's comparator
// would: negative if a < b, zero if equal, positive if a > b.
type CompareFunc func(a, b []byte) int

// EqualFunc reports whether two encoded values represent the same row
// identifier (is_equal in spec terms).
type EqualFunc func(a, b []byte) bool

// Tree is a disk- or memory-backed B+-tree keyed on encoded column
// values, storing a list of values (row ids) per key (spec component
// C8). A sentinel internal root with a single child — the first leaf —
// is created at Create; the root is always internal.
type Tree struct {
	store   NodeStore
	order   int
	compare CompareFunc
	valEq   EqualFunc

	root          NodeID
	onRootChanged func(NodeID)
}

// Create builds a brand new tree: an empty leaf under a single-child
// sentinel root.
func Create(store NodeStore, order int, compare CompareFunc, valEq EqualFunc) (*Tree, error) {
	leafID, err := store.CreateLeaf(nil, NullNodeID, NullNodeID)
	if err != nil {
		return nil, err
	}
	rootID, err := store.CreateInternal(nil, []NodeID{leafID})
	if err != nil {
		return nil, err
	}
	return &Tree{store: store, order: order, compare: compare, valEq: valEq, root: rootID}, nil
}

// Open wraps an existing tree given its persisted root id.
func Open(store NodeStore, order int, compare CompareFunc, valEq EqualFunc, root NodeID) *Tree {
	return &Tree{store: store, order: order, compare: compare, valEq: valEq, root: root}
}

// Root returns the tree's current root NodeID.
func (t *Tree) Root() NodeID { return t.root }

// OnRootChanged registers a callback invoked whenever a mutation
// assigns the tree a new root NodeID, so a caller can persist the new
// pointer (e.g. into an index's header record).
func (t *Tree) OnRootChanged(fn func(NodeID)) { t.onRootChanged = fn }

func (t *Tree) setRoot(id NodeID) {
	t.root = id
	if t.onRootChanged != nil {
		t.onRootChanged(id)
	}
}

// descend walks from the root to the leaf that would contain key,
// returning the path of internal ancestor ids (root first) and the
// leaf itself.
func (t *Tree) descend(key []byte) (path []NodeID, leafID NodeID, leaf *LeafNode, err error) {
	cur := t.root
	for {
		node, err := t.store.Get(cur)
		if err != nil {
			return nil, NodeID{}, nil, err
		}
		if node.IsLeaf() {
			return path, cur, node.Leaf, nil
		}
		path = append(path, cur)
		idx := childIndexForKey(node.Internal, key, t.compare)
		cur = node.Internal.Children[idx]
	}
}

// descendLeftSpine returns the leftmost leaf, for an unbounded range
// scan's starting point.
func (t *Tree) descendLeftSpine() (NodeID, *LeafNode, error) {
	cur := t.root
	for {
		node, err := t.store.Get(cur)
		if err != nil {
			return NodeID{}, nil, err
		}
		if node.IsLeaf() {
			return cur, node.Leaf, nil
		}
		cur = node.Internal.Children[0]
	}
}

// childIndexForKey picks the first index where key < keys[i], or
// len(keys) if key is >= every separator.
func childIndexForKey(n *InternalNode, key []byte, compare CompareFunc) int {
	for i, k := range n.Keys {
		if compare(key, k) < 0 {
			return i
		}
	}
	return len(n.Keys)
}

// searchLeaf finds key's position in a sorted KeyVal slice. If found,
// idx is its index; otherwise idx is the sorted insertion point.
func searchLeaf(kvs []KeyVal, key []byte, compare CompareFunc) (idx int, found bool) {
	lo, hi := 0, len(kvs)
	for lo < hi {
		mid := (lo + hi) / 2
		c := compare(kvs[mid].Key, key)
		if c < 0 {
			lo = mid + 1
		} else if c > 0 {
			hi = mid
		} else {
			return mid, true
		}
	}
	return lo, false
}

// Get returns the value list stored under key, or an empty list if
// absent.
func (t *Tree) Get(key []byte) ([][]byte, error) {
	_, _, leaf, err := t.descend(key)
	if err != nil {
		return nil, err
	}
	idx, found := searchLeaf(leaf.KeyVals, key, t.compare)
	if !found {
		return nil, nil
	}
	return leaf.KeyVals[idx].Vals, nil
}

// Has reports whether key has any values.
func (t *Tree) Has(key []byte) (bool, error) {
	vals, err := t.Get(key)
	return len(vals) > 0, err
}

func cloneKeyVals(kvs []KeyVal) []KeyVal {
	out := make([]KeyVal, len(kvs))
	copy(out, kvs)
	return out
}

func insertKeyVal(kvs []KeyVal, idx int, kv KeyVal) []KeyVal {
	out := make([]KeyVal, 0, len(kvs)+1)
	out = append(out, kvs[:idx]...)
	out = append(out, kv)
	out = append(out, kvs[idx:]...)
	return out
}

func removeKeyVal(kvs []KeyVal, idx int) []KeyVal {
	out := make([]KeyVal, 0, len(kvs)-1)
	out = append(out, kvs[:idx]...)
	out = append(out, kvs[idx+1:]...)
	return out
}

// Insert adds value under key, creating the key if absent.
func (t *Tree) Insert(key, value []byte) error {
	path, leafID, leaf, err := t.descend(key)
	if err != nil {
		return err
	}

	idx, found := searchLeaf(leaf.KeyVals, key, t.compare)
	var kvs []KeyVal
	if found {
		kvs = cloneKeyVals(leaf.KeyVals)
		kvs[idx] = KeyVal{Key: kvs[idx].Key, Vals: append(append([][]byte{}, kvs[idx].Vals...), value)}
	} else {
		kvs = insertKeyVal(leaf.KeyVals, idx, KeyVal{Key: key, Vals: [][]byte{value}})
	}

	newLeafID, err := t.store.CreateLeaf(kvs, leaf.Prev, leaf.Next)
	if err != nil {
		return err
	}
	if err := t.swapLeaf(path, leafID, newLeafID, leaf.Prev, leaf.Next); err != nil {
		return err
	}
	if err := t.store.DeleteNode(leafID); err != nil {
		return err
	}

	if len(kvs) > 2*t.order {
		if err := t.splitLeaf(path, newLeafID, kvs, leaf.Prev, leaf.Next); err != nil {
			return err
		}
	}
	return t.store.Commit()
}

// swapLeaf installs newID in place of oldID: in the nearest parent's
// child list, and in its former neighbors' prev/next links.
func (t *Tree) swapLeaf(path []NodeID, oldID, newID, prev, next NodeID) error {
	if len(path) == 0 {
		return &errs.CorruptPage{Reason: "leaf has no parent; root must always be internal"}
	}
	if err := t.patchParentChild(path[len(path)-1], oldID, newID); err != nil {
		return err
	}
	if prev != NullNodeID {
		if err := t.patchLeafNext(prev, newID); err != nil {
			return err
		}
	}
	if next != NullNodeID {
		if err := t.patchLeafPrev(next, newID); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) patchParentChild(parentID, oldChild, newChild NodeID) error {
	node, err := t.store.Get(parentID)
	if err != nil {
		return err
	}
	for i, c := range node.Internal.Children {
		if c == oldChild {
			node.Internal.Children[i] = newChild
			return t.store.MarkDirty(parentID, node)
		}
	}
	return &errs.CorruptPage{Reason: "child not found in parent during swap"}
}

func (t *Tree) patchLeafNext(id, next NodeID) error {
	node, err := t.store.Get(id)
	if err != nil {
		return err
	}
	node.Leaf.Next = next
	return t.store.MarkDirty(id, node)
}

func (t *Tree) patchLeafPrev(id, prev NodeID) error {
	node, err := t.store.Get(id)
	if err != nil {
		return err
	}
	node.Leaf.Prev = prev
	return t.store.MarkDirty(id, node)
}

// splitLeaf divides an overflowing leaf (already installed as newLeafID
// in its parent) into two, then inserts the separator into the parent.
func (t *Tree) splitLeaf(path []NodeID, leafID NodeID, kvs []KeyVal, prev, next NodeID) error {
	order := t.order
	leftKVs := kvs[:order]
	rightKVs := kvs[order:]

	l2ID, err := t.store.CreateLeaf(rightKVs, NullNodeID, next)
	if err != nil {
		return err
	}
	l1ID, err := t.store.CreateLeaf(leftKVs, prev, l2ID)
	if err != nil {
		return err
	}
	if err := t.store.MarkDirty(l2ID, Node{Leaf: &LeafNode{KeyVals: rightKVs, Prev: l1ID, Next: next}}); err != nil {
		return err
	}

	if prev != NullNodeID {
		if err := t.patchLeafNext(prev, l1ID); err != nil {
			return err
		}
	}
	if next != NullNodeID {
		if err := t.patchLeafPrev(next, l2ID); err != nil {
			return err
		}
	}

	parentID := path[len(path)-1]
	if err := t.patchParentChild(parentID, leafID, l1ID); err != nil {
		return err
	}
	if err := t.store.DeleteNode(leafID); err != nil {
		return err
	}

	return t.insertIntoParent(path[:len(path)-1], parentID, rightKVs[0].Key, l2ID)
}

func insertBytesSlice(keys [][]byte, idx int, key []byte) [][]byte {
	out := make([][]byte, 0, len(keys)+1)
	out = append(out, keys[:idx]...)
	out = append(out, key)
	out = append(out, keys[idx:]...)
	return out
}

func insertNodeID(children []NodeID, idx int, id NodeID) []NodeID {
	out := make([]NodeID, 0, len(children)+1)
	out = append(out, children[:idx]...)
	out = append(out, id)
	out = append(out, children[idx:]...)
	return out
}

// insertIntoParent inserts (key, newChild) into the internal node
// nodeID (whose ancestors are path, root first). nodeID already holds
// one fewer child than it needs — newChild belongs immediately after
// the position key would occupy.
func (t *Tree) insertIntoParent(path []NodeID, nodeID NodeID, key []byte, newChild NodeID) error {
	node, err := t.store.Get(nodeID)
	if err != nil {
		return err
	}
	internal := node.Internal
	idx := childIndexForKey(internal, key, t.compare)
	newKeys := insertBytesSlice(internal.Keys, idx, key)
	newChildren := insertNodeID(internal.Children, idx+1, newChild)

	if len(newKeys) <= 2*t.order {
		newNodeID, err := t.store.CreateInternal(newKeys, newChildren)
		if err != nil {
			return err
		}
		if len(path) == 0 {
			t.setRoot(newNodeID)
		} else if err := t.patchParentChild(path[len(path)-1], nodeID, newNodeID); err != nil {
			return err
		}
		return t.store.DeleteNode(nodeID)
	}

	// Overflow: split. If nodeID has no parent, wrap it under a fresh
	// sentinel root first so there is somewhere to install L1 and
	// recurse the (keyToMove, L2) insertion.
	parentPath := path
	if len(path) == 0 {
		newRootID, err := t.store.CreateInternal(nil, []NodeID{nodeID})
		if err != nil {
			return err
		}
		t.setRoot(newRootID)
		parentPath = []NodeID{newRootID}
	}

	keyToMove := newKeys[t.order]
	l1ID, err := t.store.CreateInternal(newKeys[:t.order], newChildren[:t.order+1])
	if err != nil {
		return err
	}
	l2ID, err := t.store.CreateInternal(newKeys[t.order+1:], newChildren[t.order+1:])
	if err != nil {
		return err
	}

	grandParentID := parentPath[len(parentPath)-1]
	if err := t.patchParentChild(grandParentID, nodeID, l1ID); err != nil {
		return err
	}
	if err := t.store.DeleteNode(nodeID); err != nil {
		return err
	}

	return t.insertIntoParent(parentPath[:len(parentPath)-1], grandParentID, keyToMove, l2ID)
}

// RemoveAll deletes the entire keyvals entry for key (no rebalancing).
func (t *Tree) RemoveAll(key []byte) error {
	path, leafID, leaf, err := t.descend(key)
	if err != nil {
		return err
	}
	idx, found := searchLeaf(leaf.KeyVals, key, t.compare)
	if !found {
		return nil
	}
	kvs := removeKeyVal(leaf.KeyVals, idx)
	newLeafID, err := t.store.CreateLeaf(kvs, leaf.Prev, leaf.Next)
	if err != nil {
		return err
	}
	if err := t.swapLeaf(path, leafID, newLeafID, leaf.Prev, leaf.Next); err != nil {
		return err
	}
	if err := t.store.DeleteNode(leafID); err != nil {
		return err
	}
	return t.store.Commit()
}

// Remove filters value out of key's value list via the tree's
// EqualFunc; the entry stays even if its value list becomes empty.
func (t *Tree) Remove(key, value []byte) error {
	path, leafID, leaf, err := t.descend(key)
	if err != nil {
		return err
	}
	idx, found := searchLeaf(leaf.KeyVals, key, t.compare)
	if !found {
		return nil
	}
	kvs := cloneKeyVals(leaf.KeyVals)
	var filtered [][]byte
	for _, v := range kvs[idx].Vals {
		if !t.valEq(v, value) {
			filtered = append(filtered, v)
		}
	}
	kvs[idx] = KeyVal{Key: kvs[idx].Key, Vals: filtered}

	newLeafID, err := t.store.CreateLeaf(kvs, leaf.Prev, leaf.Next)
	if err != nil {
		return err
	}
	if err := t.swapLeaf(path, leafID, newLeafID, leaf.Prev, leaf.Next); err != nil {
		return err
	}
	if err := t.store.DeleteNode(leafID); err != nil {
		return err
	}
	return t.store.Commit()
}

// RangeSpec bounds a GetRange scan. Set HasGt/HasGte/HasLt/HasLte to
// indicate which bound (if any) applies.
type RangeSpec struct {
	Gt     []byte
	HasGt  bool
	Gte    []byte
	HasGte bool
	Lt     []byte
	HasLt  bool
	Lte    []byte
	HasLte bool
}

// GetRange returns every (key, values) pair satisfying r's predicates,
// in sorted order.
func (t *Tree) GetRange(r RangeSpec) ([]KeyVal, error) {
	if r.HasGt && r.HasGte {
		return nil, &errs.InvalidRecord{Column: "range", Reason: "both gt and gte supplied"}
	}
	if r.HasLt && r.HasLte {
		return nil, &errs.InvalidRecord{Column: "range", Reason: "both lt and lte supplied"}
	}

	var leafID NodeID
	var leaf *LeafNode
	var err error
	if r.HasGt {
		_, leafID, leaf, err = t.descend(r.Gt)
	} else if r.HasGte {
		_, leafID, leaf, err = t.descend(r.Gte)
	} else {
		leafID, leaf, err = t.descendLeftSpine()
	}
	if err != nil {
		return nil, err
	}

	passesLow := func(key []byte) bool {
		switch {
		case r.HasGt:
			return t.compare(key, r.Gt) > 0
		case r.HasGte:
			return t.compare(key, r.Gte) >= 0
		default:
			return true
		}
	}
	passesHigh := func(key []byte) bool {
		switch {
		case r.HasLt:
			return t.compare(key, r.Lt) < 0
		case r.HasLte:
			return t.compare(key, r.Lte) <= 0
		default:
			return true
		}
	}

	var out []KeyVal
	for {
		for _, kv := range leaf.KeyVals {
			if !passesLow(kv.Key) {
				continue
			}
			if !passesHigh(kv.Key) {
				return out, nil
			}
			out = append(out, kv)
		}
		if leaf.Next == NullNodeID {
			return out, nil
		}
		leafID = leaf.Next
		node, err := t.store.Get(leafID)
		if err != nil {
			return nil, err
		}
		leaf = node.Leaf
	}
}
