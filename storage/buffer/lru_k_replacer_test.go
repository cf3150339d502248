package buffer

import (
	"testing"

	"github.com/yuzudb/yuzudb/common"
)

func TestLRUKReplacerEvictPrefersFewerAccesses(t *testing.T) {
	r := NewLRUKReplacer(5, 2)

	// frame 0: two accesses, frame 1: one access. With k=2, frame 1 has an
	// infinite backward distance and must be chosen over frame 0.
	r.RecordAccess(0)
	r.RecordAccess(1)
	r.RecordAccess(0)

	r.SetEvictable(0, true)
	r.SetEvictable(1, true)

	frame, ok := r.Evict()
	if !ok {
		t.Fatalf("expected an evictable frame")
	}
	if frame != common.FrameID(1) {
		t.Fatalf("expected frame 1 (fewer than k accesses) to be evicted first, got %d", frame)
	}
}

func TestLRUKReplacerEvictTiesBrokenByLeastRecent(t *testing.T) {
	r := NewLRUKReplacer(5, 2)

	r.RecordAccess(0)
	r.RecordAccess(1)

	r.SetEvictable(0, true)
	r.SetEvictable(1, true)

	frame, ok := r.Evict()
	if !ok {
		t.Fatalf("expected an evictable frame")
	}
	if frame != common.FrameID(0) {
		t.Fatalf("both frames have <k accesses; the least-recently accessed (0) should be evicted, got %d", frame)
	}
}

func TestLRUKReplacerSetEvictableAndSize(t *testing.T) {
	r := NewLRUKReplacer(5, 2)
	r.RecordAccess(0)

	if r.Size() != 0 {
		t.Fatalf("new frames start non-evictable; expected size 0, got %d", r.Size())
	}

	r.SetEvictable(0, true)
	if r.Size() != 1 {
		t.Fatalf("expected size 1 after marking frame 0 evictable, got %d", r.Size())
	}

	r.SetEvictable(0, false)
	if r.Size() != 0 {
		t.Fatalf("expected size 0 after marking frame 0 non-evictable again, got %d", r.Size())
	}
}

func TestLRUKReplacerEvictReturnsFalseWhenNothingEvictable(t *testing.T) {
	r := NewLRUKReplacer(5, 2)
	r.RecordAccess(0)

	if _, ok := r.Evict(); ok {
		t.Fatalf("no frame is evictable yet, Evict should return false")
	}
}

func TestLRUKReplacerRemove(t *testing.T) {
	r := NewLRUKReplacer(5, 2)
	r.RecordAccess(0)
	r.SetEvictable(0, true)

	r.Remove(0)
	if r.Size() != 0 {
		t.Fatalf("expected size 0 after Remove, got %d", r.Size())
	}
	if _, ok := r.Evict(); ok {
		t.Fatalf("frame 0 was removed, nothing should be left to evict")
	}
}
