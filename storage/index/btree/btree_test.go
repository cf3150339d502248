package btree

import (
	"testing"

	"github.com/yuzudb/yuzudb/recovery"
	"github.com/yuzudb/yuzudb/storage/buffer"
	"github.com/yuzudb/yuzudb/storage/disk"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/types"
)

func newTestTree(t *testing.T, leafMaxSize, internalMaxSize int) *BPlusTree {
	t.Helper()
	dm := disk.NewDiskManagerTest()
	logManager := recovery.NewLogManager(dm)
	bpm := buffer.NewBufferPoolManager(64, 2, dm, logManager)
	headerPage := bpm.NewPage()
	headerPageId := headerPage.ID()
	bpm.UnpinPage(headerPageId, true)
	return NewBPlusTree("widgets_idx", bpm, headerPageId, types.Integer, DefaultComparator, leafMaxSize, internalMaxSize)
}

func TestInsertAndGetValueSingleLeaf(t *testing.T) {
	tree := newTestTree(t, 5, 5)
	rid := page.NewRID(1, 0)
	if !tree.Insert(types.NewInteger(10), rid) {
		t.Fatalf("expected insert to succeed")
	}
	got, ok := tree.GetValue(types.NewInteger(10))
	if !ok {
		t.Fatalf("expected key to be found")
	}
	if got.GetPageId() != rid.GetPageId() || got.GetSlot() != rid.GetSlot() {
		t.Fatalf("got rid %v, want %v", got, rid)
	}
	if _, ok := tree.GetValue(types.NewInteger(99)); ok {
		t.Fatalf("expected missing key to report not found")
	}
}

func TestInsertDuplicateRejected(t *testing.T) {
	tree := newTestTree(t, 5, 5)
	rid := page.NewRID(1, 0)
	if !tree.Insert(types.NewInteger(1), rid) {
		t.Fatalf("first insert should succeed")
	}
	if tree.Insert(types.NewInteger(1), page.NewRID(2, 0)) {
		t.Fatalf("duplicate insert should fail")
	}
}

// Mirrors the worked example of a leaf with max_size 4: inserting keys
// 1,2,3,4 overflows the root leaf, splitting it into {1,2} and {3,4} under a
// new internal root whose separator is 3.
func TestInsertSplitsLeafAndCreatesRoot(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	for i := int32(1); i <= 4; i++ {
		if !tree.Insert(types.NewInteger(i), page.NewRID(types.PageID(i), 0)) {
			t.Fatalf("insert %d failed", i)
		}
	}

	for i := int32(1); i <= 4; i++ {
		rid, ok := tree.GetValue(types.NewInteger(i))
		if !ok {
			t.Fatalf("key %d missing after split", i)
		}
		if rid.GetPageId() != types.PageID(i) {
			t.Fatalf("key %d: got page id %v, want %v", i, rid.GetPageId(), types.PageID(i))
		}
	}
}

func TestIteratorWalksInOrder(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	values := []int32{5, 3, 8, 1, 4, 7, 2, 6}
	for _, v := range values {
		tree.Insert(types.NewInteger(v), page.NewRID(types.PageID(v), 0))
	}

	it := tree.Begin()
	var seen []int32
	for !it.End() {
		key, _ := it.Current()
		seen = append(seen, key.ToInteger())
		it.Next()
	}

	if len(seen) != len(values) {
		t.Fatalf("got %d entries, want %d", len(seen), len(values))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i-1] >= seen[i] {
			t.Fatalf("iterator not in ascending order at %d: %v", i, seen)
		}
	}
}

func TestInsertThenRemoveShrinksTree(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	for i := int32(1); i <= 20; i++ {
		tree.Insert(types.NewInteger(i), page.NewRID(types.PageID(i), 0))
	}
	for i := int32(1); i <= 20; i++ {
		tree.Remove(types.NewInteger(i))
	}
	if !tree.IsEmpty() {
		t.Fatalf("expected tree to be empty after removing every key")
	}
}

func TestRemoveKeepsRemainingKeysReachable(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	for i := int32(1); i <= 20; i++ {
		tree.Insert(types.NewInteger(i), page.NewRID(types.PageID(i), 0))
	}
	for i := int32(1); i <= 20; i += 2 {
		tree.Remove(types.NewInteger(i))
	}
	for i := int32(2); i <= 20; i += 2 {
		if _, ok := tree.GetValue(types.NewInteger(i)); !ok {
			t.Fatalf("key %d should still be present", i)
		}
	}
	for i := int32(1); i <= 20; i += 2 {
		if _, ok := tree.GetValue(types.NewInteger(i)); ok {
			t.Fatalf("key %d should have been removed", i)
		}
	}
}
