// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package disk

import (
	"errors"
	"strings"
	"sync"

	"github.com/dsnet/golib/memfile"
	"github.com/yuzudb/yuzudb/common"
	"github.com/yuzudb/yuzudb/types"
)

// MemDiskManager is a DiskManager backed entirely by in-memory buffers
// (github.com/dsnet/golib/memfile) instead of real files. It gives
// deterministic, hermetic storage without touching the filesystem, and
// behaves identically to FileDiskManager from the buffer pool manager's
// point of view. The module's own tests use the file-backed
// NewDiskManagerTest instead.
type MemDiskManager struct {
	db              *memfile.File
	fileName        string
	log             *memfile.File
	fileNameLog     string
	nextPageID      types.PageID
	numWrites       uint64
	size            int64
	numFlushes      uint64
	dbFileMutex     *sync.Mutex
	logFileMutex    *sync.Mutex
	reusableSpceIDs []types.PageID
	spaceIDConvMap  map[types.PageID]types.PageID
	deallocedIDMap  map[types.PageID]bool
}

// NewMemDiskManager returns a DiskManager instance whose backing storage
// lives entirely in memory. dbFilename is only used to derive a companion
// log "file" name; nothing is ever written to disk.
func NewMemDiskManager(dbFilename string) DiskManager {
	file := memfile.New(make([]byte, 0))

	logfname := dbFilename + ".log"
	if idx := strings.LastIndex(dbFilename, "."); idx >= 0 {
		logfname = dbFilename[:idx] + ".log"
	}

	logFile := memfile.New(make([]byte, 0))

	return &MemDiskManager{
		db:              file,
		fileName:        dbFilename,
		log:             logFile,
		fileNameLog:     logfname,
		nextPageID:      types.PageID(0),
		dbFileMutex:     new(sync.Mutex),
		logFileMutex:    new(sync.Mutex),
		reusableSpceIDs: make([]types.PageID, 0),
		spaceIDConvMap:  make(map[types.PageID]types.PageID),
		deallocedIDMap:  make(map[types.PageID]bool),
	}
}

// ShutDown is a no-op: there is no file descriptor to close.
func (d *MemDiskManager) ShutDown() {}

// convToSpaceID maps a page id to the backing-buffer offset slot it should
// use, redirecting to a reclaimed deallocated page's slot when one exists.
func (d *MemDiskManager) convToSpaceID(pageID types.PageID) (spaceID types.PageID) {
	if convedID, exist := d.spaceIDConvMap[pageID]; exist {
		return convedID
	}
	return pageID
}

func (d *MemDiskManager) WritePage(pageId types.PageID, pageData []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	offset := int64(d.convToSpaceID(pageId)) * int64(common.PageSize)
	d.db.WriteAt(pageData, offset)

	if end := offset + int64(len(pageData)); end > d.size {
		d.size = end
	}
	d.numWrites++
	return nil
}

func (d *MemDiskManager) ReadPage(pageID types.PageID, pageData []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	if _, exist := d.deallocedIDMap[pageID]; exist {
		return types.DeallocatedPageErr
	}

	offset := int64(d.convToSpaceID(pageID)) * int64(common.PageSize)
	if offset > d.size || offset+int64(len(pageData)) > d.size {
		return errors.New("I/O error past end of file")
	}

	_, err := d.db.ReadAt(pageData, offset)
	return err
}

func (d *MemDiskManager) AllocatePage() types.PageID {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	ret := d.nextPageID
	if len(d.reusableSpceIDs) > 0 {
		reuseID := d.reusableSpceIDs[0]
		d.reusableSpceIDs = d.reusableSpceIDs[1:]
		d.spaceIDConvMap[ret] = reuseID
	}
	d.nextPageID++
	return ret
}

// DeallocatePage does not reclaim the underlying buffer space; it records
// the id so the slot can be reused on the next AllocatePage.
func (d *MemDiskManager) DeallocatePage(pageID types.PageID) {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	d.deallocedIDMap[pageID] = true
	if convedID, exist := d.spaceIDConvMap[pageID]; exist {
		d.reusableSpceIDs = append(d.reusableSpceIDs, convedID)
		delete(d.spaceIDConvMap, pageID)
	} else {
		d.reusableSpceIDs = append(d.reusableSpceIDs, pageID)
	}
}

func (d *MemDiskManager) GetNumWrites() uint64 {
	return d.numWrites
}

func (d *MemDiskManager) Size() int64 {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	return d.size
}

// WriteLog appends log_data to the in-memory log buffer.
func (d *MemDiskManager) WriteLog(logData []byte) {
	d.logFileMutex.Lock()
	defer d.logFileMutex.Unlock()

	d.numFlushes++
	d.log.WriteAt(logData, d.getLogFileSizeLocked())
}

// ReadLog reads len(logData) bytes starting at offset from the in-memory log
// buffer. Returns false once offset is past the end of the log.
func (d *MemDiskManager) ReadLog(logData []byte, offset int32) bool {
	d.logFileMutex.Lock()
	defer d.logFileMutex.Unlock()

	if int64(offset) >= d.getLogFileSizeLocked() {
		return false
	}
	d.log.ReadAt(logData, int64(offset))
	return true
}

func (d *MemDiskManager) getLogFileSizeLocked() int64 {
	return int64(len(d.log.Bytes()))
}
