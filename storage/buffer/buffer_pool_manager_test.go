// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package buffer

import (
	"crypto/rand"
	"testing"

	"github.com/yuzudb/yuzudb/recovery"
	"github.com/yuzudb/yuzudb/storage/disk"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/types"
)

func TestBufferPoolManagerBinaryData(t *testing.T) {
	poolSize := uint32(10)

	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	logManager := recovery.NewLogManager(dm)
	bpm := NewBufferPoolManager(poolSize, 2, dm, logManager)

	page0 := bpm.NewPage()
	if page0.ID() != types.PageID(0) {
		t.Fatalf("expected page id 0, got %v", page0.ID())
	}

	randomBinaryData := make([]byte, page.PageSize)
	rand.Read(randomBinaryData)
	randomBinaryData[page.PageSize/2] = '0'
	randomBinaryData[page.PageSize-1] = '0'

	var fixedRandomBinaryData [page.PageSize]byte
	copy(fixedRandomBinaryData[:], randomBinaryData[:page.PageSize])

	page0.Copy(0, randomBinaryData)
	if *page0.Data() != fixedRandomBinaryData {
		t.Fatalf("page data mismatch after copy")
	}

	for i := uint32(1); i < poolSize; i++ {
		p := bpm.NewPage()
		if p.ID() != types.PageID(i) {
			t.Fatalf("expected page id %d, got %v", i, p.ID())
		}
	}

	for i := poolSize; i < poolSize*2; i++ {
		if p := bpm.NewPage(); p != nil {
			t.Fatalf("expected nil once the pool is full and every frame pinned, got %v", p)
		}
	}

	for i := 0; i < 5; i++ {
		if !bpm.UnpinPage(types.PageID(i), true) {
			t.Fatalf("UnpinPage(%d) should succeed", i)
		}
		bpm.FlushPage(types.PageID(i))
	}
	for i := 0; i < 4; i++ {
		p := bpm.NewPage()
		bpm.UnpinPage(p.ID(), false)
	}

	page0 = bpm.FetchPage(types.PageID(0))
	if *page0.Data() != fixedRandomBinaryData {
		t.Fatalf("refetched page 0 data mismatch")
	}
	bpm.UnpinPage(types.PageID(0), true)
}

func TestBufferPoolManagerEvictsViaReplacer(t *testing.T) {
	poolSize := uint32(2)

	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	logManager := recovery.NewLogManager(dm)
	bpm := NewBufferPoolManager(poolSize, 2, dm, logManager)

	p0 := bpm.NewPage()
	p1 := bpm.NewPage()
	if p0 == nil || p1 == nil {
		t.Fatalf("expected both frames to be usable")
	}

	if p := bpm.NewPage(); p != nil {
		t.Fatalf("expected nil: both frames pinned, nothing evictable")
	}

	if !bpm.UnpinPage(p0.ID(), false) {
		t.Fatalf("unpin of p0 should succeed")
	}

	p2 := bpm.NewPage()
	if p2 == nil {
		t.Fatalf("expected eviction of the now-unpinned frame to free a slot")
	}
	if p2.ID() == p0.ID() {
		t.Fatalf("new page should not reuse p0's id")
	}

	if bpm.FetchPage(p0.ID()) != nil {
		t.Fatalf("both frames (p1, p2) are pinned again; fetching the evicted page should fail for lack of a free frame")
	}
}

func TestBufferPoolManagerDeletePage(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	defer dm.ShutDown()
	logManager := recovery.NewLogManager(dm)
	bpm := NewBufferPoolManager(10, 2, dm, logManager)

	p := bpm.NewPage()
	id := p.ID()

	if bpm.DeletePage(id) {
		t.Fatalf("DeletePage should fail while the page is pinned")
	}

	bpm.UnpinPage(id, false)
	if !bpm.DeletePage(id) {
		t.Fatalf("DeletePage should succeed once unpinned")
	}

	if !bpm.DeletePage(id) {
		t.Fatalf("DeletePage on an absent id should return true")
	}
}
