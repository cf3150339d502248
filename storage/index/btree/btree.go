// Grounded in
// _examples/original_source/src/storage/index/b_plus_tree.cpp: FindLeafPage's
// latch crabbing, Insert's split-and-propagate, and Remove's
// redistribute-or-merge all keep the same control flow, adapted from
// pointer-chasing B_PLUS_TREE_INTERNAL_PAGE_TYPE templates into fetch/unpin
// calls against this module's BufferPoolManager. The ancestor-latch stack
// uses github.com/golang-collections/collections/stack, the one dependency
// the teacher repo otherwise reserves for its query optimizer.

package btree

import (
	"unsafe"

	"github.com/golang-collections/collections/stack"

	"github.com/yuzudb/yuzudb/storage/buffer"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/types"
)

// BPlusTree is a latch-coupled, disk-backed B+-tree index over a single
// column. Keys are restricted to Integer, Float and Boolean (see key.go);
// values are RIDs pointing back into the indexed table's heap.
type BPlusTree struct {
	indexName       string
	bpm             *buffer.BufferPoolManager
	headerPageId    types.PageID
	keyType         types.TypeID
	cmp             Comparator
	leafMaxSize     int
	internalMaxSize int
}

func NewBPlusTree(indexName string, bpm *buffer.BufferPoolManager, headerPageId types.PageID, keyType types.TypeID, cmp Comparator, leafMaxSize, internalMaxSize int) *BPlusTree {
	if cmp == nil {
		cmp = DefaultComparator
	}
	return &BPlusTree{
		indexName:       indexName,
		bpm:             bpm,
		headerPageId:    headerPageId,
		keyType:         keyType,
		cmp:             cmp,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
	}
}

func (t *BPlusTree) header() *page.HeaderPage {
	return page.NewHeaderPage(t.bpm.FetchPage(t.headerPageId))
}

func (t *BPlusTree) releaseHeader() {
	t.bpm.UnpinPage(t.headerPageId, true)
}

func (t *BPlusTree) getRootPageId() types.PageID {
	p := t.bpm.FetchPage(t.headerPageId)
	p.RLatch()
	id, ok := page.NewHeaderPage(p).GetRecord(t.indexName)
	p.RUnlatch()
	t.bpm.UnpinPage(t.headerPageId, false)
	if !ok {
		return types.InvalidPageID
	}
	return id
}

func (t *BPlusTree) setRootPageId(rootId types.PageID) {
	p := t.bpm.FetchPage(t.headerPageId)
	p.WLatch()
	h := page.NewHeaderPage(p)
	if _, ok := h.GetRecord(t.indexName); ok {
		h.UpdateRecord(t.indexName, rootId)
	} else {
		h.InsertRecord(t.indexName, rootId)
	}
	p.WUnlatch()
	t.releaseHeader()
}

func (t *BPlusTree) IsEmpty() bool { return t.getRootPageId() == types.InvalidPageID }

func (t *BPlusTree) asInternal(p *btreePage) *InternalPage { return (*InternalPage)(unsafe.Pointer(p)) }
func (t *BPlusTree) asLeaf(p *btreePage) *LeafPage         { return (*LeafPage)(unsafe.Pointer(p)) }

func (t *BPlusTree) fetch(id types.PageID) *btreePage { return castAsBTreePage(t.bpm.FetchPage(id)) }

// GetValue returns the RID stored under key, if any, using shared-latch
// crabbing: each child is latched before its parent is released.
func (t *BPlusTree) GetValue(key types.Value) (*page.RID, bool) {
	if t.IsEmpty() {
		return nil, false
	}
	leaf := t.findLeafForRead(key)
	defer func() {
		leaf.RUnlatch()
		t.bpm.UnpinPage(leaf.GetPageId(), false)
	}()
	i := leaf.KeyIndex(key, t.keyType, t.cmp)
	if i >= leaf.GetSize() || t.cmp(leaf.KeyAt(i, t.keyType), key) != 0 {
		return nil, false
	}
	return leaf.ValueAt(i), true
}

func (t *BPlusTree) findLeafForRead(key types.Value) *LeafPage {
	cur := t.fetch(t.getRootPageId())
	cur.RLatch()
	for !cur.IsLeafPage() {
		internal := t.asInternal(cur)
		childId := internal.LookUp(key, t.keyType, t.cmp)
		child := t.fetch(childId)
		child.RLatch()
		cur.RUnlatch()
		t.bpm.UnpinPage(cur.GetPageId(), false)
		cur = child
	}
	return t.asLeaf(cur)
}

func (t *BPlusTree) releaseAncestors(ancestors *stack.Stack, dirty bool) {
	for ancestors.Len() > 0 {
		node := ancestors.Pop().(*btreePage)
		node.WUnlatch()
		t.bpm.UnpinPage(node.GetPageId(), dirty)
	}
}

// findLeafForWrite descends with exclusive latches, keeping every ancestor
// pinned and latched on ancestors until a node proven "safe" for the
// operation is reached, at which point everything above it is released.
func (t *BPlusTree) findLeafForWrite(key types.Value, isSafe func(*btreePage) bool, ancestors *stack.Stack) *LeafPage {
	cur := t.fetch(t.getRootPageId())
	cur.WLatch()
	for !cur.IsLeafPage() {
		if isSafe(cur) {
			t.releaseAncestors(ancestors, false)
		}
		ancestors.Push(cur)
		internal := t.asInternal(cur)
		childId := internal.LookUp(key, t.keyType, t.cmp)
		child := t.fetch(childId)
		child.WLatch()
		cur = child
	}
	if isSafe(cur) {
		t.releaseAncestors(ancestors, false)
	}
	return t.asLeaf(cur)
}

func isSafeForInsert(p *btreePage) bool {
	if p.IsLeafPage() {
		return p.GetSize()+1 < p.GetMaxSize()
	}
	return p.GetSize() < p.GetMaxSize()-1
}

func isSafeForRemove(p *btreePage) bool {
	if p.IsRootPage() {
		return true
	}
	return p.GetSize() > p.GetMinSize()
}

// Insert adds (key, rid) to the tree, returning false if key already exists.
func (t *BPlusTree) Insert(key types.Value, rid *page.RID) bool {
	if t.IsEmpty() {
		t.startNewTree(key, rid)
		return true
	}
	ancestors := stack.New()
	leaf := t.findLeafForWrite(key, isSafeForInsert, ancestors)
	defer func() {
		leaf.WUnlatch()
	}()

	ok := leaf.Insert(key, rid, t.keyType, t.cmp)
	if !ok {
		t.bpm.UnpinPage(leaf.GetPageId(), false)
		t.releaseAncestors(ancestors, false)
		return false
	}

	if leaf.GetSize() < leaf.GetMaxSize() {
		t.bpm.UnpinPage(leaf.GetPageId(), true)
		t.releaseAncestors(ancestors, false)
		return true
	}

	newLeaf := t.newLeafPage(leaf.GetParentPageId())
	leaf.SplitInto(newLeaf)
	sepKey := newLeaf.KeyAt(0, t.keyType)
	t.insertIntoParent(&leaf.btreePage, sepKey, &newLeaf.btreePage, ancestors)

	t.bpm.UnpinPage(leaf.GetPageId(), true)
	t.bpm.UnpinPage(newLeaf.GetPageId(), true)
	return true
}

func (t *BPlusTree) newLeafPage(parentId types.PageID) *LeafPage {
	p := t.bpm.NewPage()
	lp := CastPageAsLeafPage(p)
	lp.Init(p.ID(), parentId, t.leafMaxSize)
	return lp
}

func (t *BPlusTree) newInternalPage(parentId types.PageID) *InternalPage {
	p := t.bpm.NewPage()
	ip := CastPageAsInternalPage(p)
	ip.Init(p.ID(), parentId, t.internalMaxSize)
	return ip
}

func (t *BPlusTree) startNewTree(key types.Value, rid *page.RID) {
	leaf := t.newLeafPage(types.InvalidPageID)
	leaf.Insert(key, rid, t.keyType, t.cmp)
	t.setRootPageId(leaf.GetPageId())
	t.bpm.UnpinPage(leaf.GetPageId(), true)
}

// insertIntoParent attaches newNode as oldNode's right sibling under key,
// splitting the parent (recursively, up to a new root) if it's now full.
// ancestors holds the still-latched chain above oldNode, closest first.
func (t *BPlusTree) insertIntoParent(oldNode *btreePage, key types.Value, newNode *btreePage, ancestors *stack.Stack) {
	if oldNode.IsRootPage() {
		root := t.newInternalPage(types.InvalidPageID)
		root.SetValueAt(0, oldNode.GetPageId())
		root.Insert(key, newNode.GetPageId(), t.keyType, t.cmp)
		oldNode.SetParentPageId(root.GetPageId())
		newNode.SetParentPageId(root.GetPageId())
		t.setRootPageId(root.GetPageId())
		t.bpm.UnpinPage(root.GetPageId(), true)
		return
	}

	parent := t.asInternal(ancestors.Pop().(*btreePage))
	parent.Insert(key, newNode.GetPageId(), t.keyType, t.cmp)
	newNode.SetParentPageId(parent.GetPageId())

	if parent.GetSize() <= parent.GetMaxSize()-1 {
		parent.WUnlatch()
		t.bpm.UnpinPage(parent.GetPageId(), true)
		return
	}

	newInternal := t.newInternalPage(parent.GetParentPageId())
	sepKey := parent.SplitInto(newInternal, t.keyType)
	t.insertIntoParent(&parent.btreePage, sepKey, &newInternal.btreePage, ancestors)
	parent.WUnlatch()
	t.bpm.UnpinPage(parent.GetPageId(), true)
	t.bpm.UnpinPage(newInternal.GetPageId(), true)
}

// Remove deletes key from the tree if present.
func (t *BPlusTree) Remove(key types.Value) {
	if t.IsEmpty() {
		return
	}
	ancestors := stack.New()
	leaf := t.findLeafForWrite(key, isSafeForRemove, ancestors)

	if !leaf.Remove(key, t.keyType, t.cmp) {
		leaf.WUnlatch()
		t.bpm.UnpinPage(leaf.GetPageId(), false)
		t.releaseAncestors(ancestors, false)
		return
	}

	t.coalesceOrRedistribute(&leaf.btreePage, ancestors)
}

// coalesceOrRedistribute handles node underflow after a delete: if node
// still meets min_size (or is the root) nothing further happens; otherwise
// it borrows from a sibling or merges with one, recursing upward on merge.
func (t *BPlusTree) coalesceOrRedistribute(node *btreePage, ancestors *stack.Stack) {
	if node.IsRootPage() {
		t.adjustRoot(node)
		return
	}

	if node.GetSize() >= node.GetMinSize() {
		node.WUnlatch()
		t.bpm.UnpinPage(node.GetPageId(), true)
		t.releaseAncestors(ancestors, false)
		return
	}

	parent := t.asInternal(ancestors.Pop().(*btreePage))
	firstKey := t.firstKeyOf(node)
	parentIndex, brotherId, isLeft := parent.GetAdjacentBrother(firstKey, t.keyType, t.cmp)
	brother := t.fetch(brotherId)
	brother.WLatch()

	if node.IsLeafPage() {
		t.coalesceOrRedistributeLeaf(t.asLeaf(node), t.asLeaf(brother), parent, parentIndex, isLeft, ancestors)
	} else {
		t.coalesceOrRedistributeInternal(t.asInternal(node), t.asInternal(brother), parent, parentIndex, isLeft, ancestors)
	}
}

func (t *BPlusTree) firstKeyOf(node *btreePage) types.Value {
	if node.IsLeafPage() {
		return t.asLeaf(node).KeyAt(0, t.keyType)
	}
	return t.asInternal(node).KeyAt(1, t.keyType)
}

func (t *BPlusTree) coalesceOrRedistributeLeaf(node, brother *LeafPage, parent *InternalPage, parentIndex int, isLeft bool, ancestors *stack.Stack) {
	combined := node.GetSize() + brother.GetSize()
	if combined >= node.GetMaxSize() {
		if isLeft {
			node.StealFromLeft(brother, parent, parentIndex, t.keyType)
		} else {
			node.StealFromRight(brother, parent, parentIndex, t.keyType)
		}
		brother.WUnlatch()
		t.bpm.UnpinPage(brother.GetPageId(), true)
		node.WUnlatch()
		t.bpm.UnpinPage(node.GetPageId(), true)
		parent.WUnlatch()
		t.bpm.UnpinPage(parent.GetPageId(), true)
		t.releaseAncestors(ancestors, false)
		return
	}

	if isLeft {
		brother.ConcatWith(node)
		parent.RemoveAt(parentIndex)
		node.WUnlatch()
		t.bpm.UnpinPage(node.GetPageId(), false)
		t.bpm.DeletePage(node.GetPageId())
		brother.WUnlatch()
		t.bpm.UnpinPage(brother.GetPageId(), true)
	} else {
		node.ConcatWith(brother)
		parent.RemoveAt(parentIndex)
		brother.WUnlatch()
		t.bpm.UnpinPage(brother.GetPageId(), false)
		t.bpm.DeletePage(brother.GetPageId())
		node.WUnlatch()
		t.bpm.UnpinPage(node.GetPageId(), true)
	}
	t.coalesceOrRedistribute(&parent.btreePage, ancestors)
}

func (t *BPlusTree) coalesceOrRedistributeInternal(node, brother *InternalPage, parent *InternalPage, parentIndex int, isLeft bool, ancestors *stack.Stack) {
	combined := node.GetSize() + brother.GetSize() + 1
	if combined > node.GetMaxSize() {
		if isLeft {
			node.StealFromLeft(brother, parent, parentIndex, t.keyType, t.bpm)
		} else {
			node.StealFromRight(brother, parent, parentIndex, t.keyType, t.bpm)
		}
		brother.WUnlatch()
		t.bpm.UnpinPage(brother.GetPageId(), true)
		node.WUnlatch()
		t.bpm.UnpinPage(node.GetPageId(), true)
		parent.WUnlatch()
		t.bpm.UnpinPage(parent.GetPageId(), true)
		t.releaseAncestors(ancestors, false)
		return
	}

	if isLeft {
		sepKey := parent.KeyAt(parentIndex, t.keyType)
		brother.ConcatWith(node, sepKey, t.bpm)
		parent.RemoveAt(parentIndex)
		node.WUnlatch()
		t.bpm.UnpinPage(node.GetPageId(), false)
		t.bpm.DeletePage(node.GetPageId())
		brother.WUnlatch()
		t.bpm.UnpinPage(brother.GetPageId(), true)
	} else {
		sepKey := parent.KeyAt(parentIndex, t.keyType)
		node.ConcatWith(brother, sepKey, t.bpm)
		parent.RemoveAt(parentIndex)
		brother.WUnlatch()
		t.bpm.UnpinPage(brother.GetPageId(), false)
		t.bpm.DeletePage(brother.GetPageId())
		node.WUnlatch()
		t.bpm.UnpinPage(node.GetPageId(), true)
	}
	t.coalesceOrRedistribute(&parent.btreePage, ancestors)
}

// adjustRoot handles the two ways the root can become degenerate: an empty
// internal root with exactly one child promotes that child, and an empty
// leaf root (the tree going empty) clears the root pointer entirely. It is
// responsible for the root page's own latch, pin and (if applicable)
// deletion - the caller never touches it afterward.
func (t *BPlusTree) adjustRoot(root *btreePage) {
	if !root.IsLeafPage() && root.GetSize() == 0 {
		internal := t.asInternal(root)
		newRootId := internal.ValueAt(0)
		newRoot := t.fetch(newRootId)
		newRoot.WLatch()
		newRoot.SetParentPageId(types.InvalidPageID)
		newRoot.WUnlatch()
		t.bpm.UnpinPage(newRootId, true)
		t.setRootPageId(newRootId)
		root.WUnlatch()
		t.bpm.UnpinPage(root.GetPageId(), false)
		t.bpm.DeletePage(root.GetPageId())
		return
	}
	if root.IsLeafPage() && root.GetSize() == 0 {
		t.setRootPageId(types.InvalidPageID)
		root.WUnlatch()
		t.bpm.UnpinPage(root.GetPageId(), false)
		t.bpm.DeletePage(root.GetPageId())
		return
	}
	root.WUnlatch()
	t.bpm.UnpinPage(root.GetPageId(), true)
}

// Begin returns an iterator positioned at the smallest key in the tree.
func (t *BPlusTree) Begin() *Iterator {
	if t.IsEmpty() {
		return &Iterator{tree: t, leaf: nil}
	}
	leaf := t.findLeafLeftmost()
	return &Iterator{tree: t, leaf: leaf, index: 0}
}

// BeginAt returns an iterator positioned at the first key >= key.
func (t *BPlusTree) BeginAt(key types.Value) *Iterator {
	if t.IsEmpty() {
		return &Iterator{tree: t, leaf: nil}
	}
	leaf := t.findLeafForRead(key)
	idx := leaf.KeyIndex(key, t.keyType, t.cmp)
	for idx >= leaf.GetSize() {
		nextId := leaf.GetNextPageId()
		leaf.RUnlatch()
		t.bpm.UnpinPage(leaf.GetPageId(), false)
		if nextId == types.InvalidPageID {
			return &Iterator{tree: t, leaf: nil}
		}
		leaf = t.asLeaf(t.fetch(nextId))
		leaf.RLatch()
		idx = 0
	}
	return &Iterator{tree: t, leaf: leaf, index: idx}
}

func (t *BPlusTree) findLeafLeftmost() *LeafPage {
	cur := t.fetch(t.getRootPageId())
	cur.RLatch()
	for !cur.IsLeafPage() {
		internal := t.asInternal(cur)
		childId := internal.ValueAt(0)
		child := t.fetch(childId)
		child.RLatch()
		cur.RUnlatch()
		t.bpm.UnpinPage(cur.GetPageId(), false)
		cur = child
	}
	return t.asLeaf(cur)
}
