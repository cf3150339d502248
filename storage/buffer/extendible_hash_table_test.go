package buffer

import "testing"

func intKey(k int32) uint32 {
	return HashInt32(k)
}

func TestExtendibleHashTableFindAndInsert(t *testing.T) {
	ht := NewExtendibleHashTable[int32, int32](4, intKey)

	if _, ok := ht.Find(1); ok {
		t.Fatalf("empty table should not find key 1")
	}

	ht.Insert(1, 100)
	ht.Insert(2, 200)

	v, ok := ht.Find(1)
	if !ok || v != 100 {
		t.Fatalf("expected (100, true), got (%v, %v)", v, ok)
	}

	ht.Insert(1, 101)
	v, ok = ht.Find(1)
	if !ok || v != 101 {
		t.Fatalf("insert of an existing key should update its value: got (%v, %v)", v, ok)
	}
}

func TestExtendibleHashTableRemove(t *testing.T) {
	ht := NewExtendibleHashTable[int32, int32](4, intKey)
	ht.Insert(1, 100)

	if !ht.Remove(1) {
		t.Fatalf("Remove(1) should succeed")
	}
	if ht.Remove(1) {
		t.Fatalf("Remove(1) twice should fail the second time")
	}
	if _, ok := ht.Find(1); ok {
		t.Fatalf("key should be gone after Remove")
	}
}

func TestExtendibleHashTableGrowsOnOverflow(t *testing.T) {
	ht := NewExtendibleHashTable[int32, int32](2, intKey)

	for i := int32(0); i < 50; i++ {
		ht.Insert(i, i*10)
	}

	for i := int32(0); i < 50; i++ {
		v, ok := ht.Find(i)
		if !ok || v != i*10 {
			t.Fatalf("key %d: expected (%d, true), got (%v, %v)", i, i*10, v, ok)
		}
	}

	if ht.GlobalDepth() == 0 {
		t.Fatalf("global depth should have grown past 0 after 50 inserts into bucket size 2")
	}
	if ht.NumBuckets() <= 1 {
		t.Fatalf("expected more than one bucket after repeated splits, got %d", ht.NumBuckets())
	}
}
