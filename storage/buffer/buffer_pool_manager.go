// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package buffer

import (
	"github.com/sasha-s/go-deadlock"
	"github.com/yuzudb/yuzudb/common"
	"github.com/yuzudb/yuzudb/recovery"
	"github.com/yuzudb/yuzudb/storage/disk"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/types"
)

// BufferPoolManager owns the frame array, the free list, the page table
// (an ExtendibleHashTable from page id to frame id), and the LRU-K
// replacer. Every public operation is serialized under a single mutex, so
// the frame array, free list, and page table always move together.
type BufferPoolManager struct {
	mu          deadlock.Mutex
	diskManager disk.DiskManager
	logManager  *recovery.LogManager
	pages       []*page.Page
	replacer    *LRUKReplacer
	freeList    []common.FrameID
	pageTable   *ExtendibleHashTable[types.PageID, common.FrameID]
}

// NewBufferPoolManager returns an empty buffer pool manager with poolSize
// frames, evicting via LRU-K with history depth k. logManager is flushed
// before a dirty frame is written back on eviction, so an evicted page's WAL
// records reach the log file first; FlushPage writes a page back without
// flushing the log.
func NewBufferPoolManager(poolSize uint32, k int, diskManager disk.DiskManager, logManager *recovery.LogManager) *BufferPoolManager {
	freeList := make([]common.FrameID, poolSize)
	pages := make([]*page.Page, poolSize)
	for i := uint32(0); i < poolSize; i++ {
		freeList[i] = common.FrameID(i)
	}

	return &BufferPoolManager{
		diskManager: diskManager,
		logManager:  logManager,
		pages:       pages,
		replacer:    NewLRUKReplacer(int(poolSize), k),
		freeList:    freeList,
		pageTable:   NewExtendibleHashTable[types.PageID, common.FrameID](common.BucketSize, HashInt32[types.PageID]),
	}
}

// getFrame returns a frame to host a new resident page, writing back and
// evicting the frame's previous occupant if it came from the replacer
// rather than the free list.
func (b *BufferPoolManager) getFrame() (common.FrameID, bool) {
	if len(b.freeList) > 0 {
		frameID := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		return frameID, true
	}

	frameID, ok := b.replacer.Evict()
	if !ok {
		return 0, false
	}

	evicted := b.pages[frameID]
	if evicted != nil {
		if evicted.IsDirty() {
			b.logManager.Flush()
			data := evicted.Data()
			b.diskManager.WritePage(evicted.ID(), data[:])
		}
		b.pageTable.Remove(evicted.ID())
	}
	return frameID, true
}

// NewPage allocates a fresh page id and pins it in a frame.
func (b *BufferPoolManager) NewPage() *page.Page {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.getFrame()
	if !ok {
		return nil
	}

	pageID := b.diskManager.AllocatePage()
	pg := page.NewEmpty(pageID)
	pg.SetPinCount(1)

	b.pageTable.Insert(pageID, frameID)
	b.pages[frameID] = pg

	b.replacer.RecordAccess(frameID)
	b.replacer.SetEvictable(frameID, false)

	return pg
}

// FetchPage returns the page identified by pageID, reading it from disk if
// it is not already resident, or nil if no frame can be obtained.
func (b *BufferPoolManager) FetchPage(pageID types.PageID) *page.Page {
	b.mu.Lock()
	defer b.mu.Unlock()

	if frameID, ok := b.pageTable.Find(pageID); ok {
		pg := b.pages[frameID]
		pg.IncPinCount()
		b.replacer.RecordAccess(frameID)
		b.replacer.SetEvictable(frameID, false)
		return pg
	}

	frameID, ok := b.getFrame()
	if !ok {
		return nil
	}

	data := make([]byte, common.PageSize)
	if err := b.diskManager.ReadPage(pageID, data); err != nil {
		b.freeList = append(b.freeList, frameID)
		return nil
	}
	var pageData [common.PageSize]byte
	copy(pageData[:], data)
	pg := page.New(pageID, 1, false, &pageData)

	b.pageTable.Insert(pageID, frameID)
	b.pages[frameID] = pg

	b.replacer.RecordAccess(frameID)
	b.replacer.SetEvictable(frameID, false)

	return pg
}

// UnpinPage decrements pageID's pin count, marking its frame evictable once
// it reaches zero. isDirty, if true, marks the frame dirty; it never clears
// an already-dirty frame.
func (b *BufferPoolManager) UnpinPage(pageID types.PageID, isDirty bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable.Find(pageID)
	if !ok {
		return false
	}
	pg := b.pages[frameID]
	if pg.PinCount() <= 0 {
		return false
	}

	pg.DecPinCount()
	if pg.PinCount() == 0 {
		b.replacer.SetEvictable(frameID, true)
	}
	if isDirty {
		pg.SetIsDirty(true)
	}
	return true
}

// FlushPage writes pageID's frame contents to disk regardless of pin count,
// then clears the dirty flag.
func (b *BufferPoolManager) FlushPage(pageID types.PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable.Find(pageID)
	if !ok {
		return false
	}
	pg := b.pages[frameID]
	data := pg.Data()
	b.diskManager.WritePage(pageID, data[:])
	pg.SetIsDirty(false)
	return true
}

// FlushAllPages flushes every resident page.
func (b *BufferPoolManager) FlushAllPages() {
	b.mu.Lock()
	pageIDs := make([]types.PageID, 0, len(b.pages))
	for _, pg := range b.pages {
		if pg != nil {
			pageIDs = append(pageIDs, pg.ID())
		}
	}
	b.mu.Unlock()

	for _, id := range pageIDs {
		b.FlushPage(id)
	}
}

// DeletePage removes pageID from the buffer pool and tells the disk manager
// to deallocate it. Returns true if pageID is absent or pin_count is 0 and
// deletion succeeds; false if the page is still pinned.
func (b *BufferPoolManager) DeletePage(pageID types.PageID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameID, ok := b.pageTable.Find(pageID)
	if !ok {
		return true
	}

	pg := b.pages[frameID]
	if pg.PinCount() > 0 {
		return false
	}

	b.pageTable.Remove(pageID)
	b.replacer.Remove(frameID)
	pg.ResetMemory()
	b.pages[frameID] = nil
	b.diskManager.DeallocatePage(pageID)
	b.freeList = append(b.freeList, frameID)

	return true
}
