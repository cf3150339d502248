// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package disk

import (
	"errors"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/yuzudb/yuzudb/common"
	"github.com/yuzudb/yuzudb/types"
)

// FileDiskManager is the disk implementation of DiskManager. Its page and log
// I/O mirrors MemDiskManager's reusable-space-id bookkeeping so a
// BufferPoolManager sees identical AllocatePage/DeallocatePage behavior
// whether it's backed by a real file or an in-memory buffer.
type FileDiskManager struct {
	db           *os.File
	fileName     string
	log          *os.File
	fileNameLog  string
	nextPageID   types.PageID
	numWrites    uint64
	size         int64
	numFlushes   uint64
	dbFileMutex  sync.Mutex
	logFileMutex sync.Mutex

	reusableSpaceIDs []types.PageID
	spaceIDConvMap   map[types.PageID]types.PageID
	deallocedIDMap   map[types.PageID]bool
}

// NewFileDiskManager returns a DiskManager instance
func NewFileDiskManager(dbFilename string) DiskManager {
	file, err := os.OpenFile(dbFilename, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		log.Fatalln("can't open db file")
		return nil
	}

	periodIdx := strings.LastIndex(dbFilename, ".")
	logfnameBase := dbFilename[:periodIdx]
	logfname := logfnameBase + "." + "log"
	logFile, err := os.OpenFile(logfname, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		log.Fatalln("can't open log file")
		return nil
	}

	fileInfo, err := file.Stat()
	if err != nil {
		log.Fatalln("file info error")
		return nil
	}

	logFileInfo, err := logFile.Stat()
	if err != nil {
		log.Fatalln("file info error (log file)")
		return nil
	}

	logFile.Seek(logFileInfo.Size(), io.SeekStart)

	fileSize := fileInfo.Size()
	nPages := fileSize / common.PageSize

	nextPageID := types.PageID(0)
	if nPages > 0 {
		nextPageID = types.PageID(int32(nPages + 1))
	}

	return &FileDiskManager{
		db:               file,
		fileName:         dbFilename,
		log:              logFile,
		fileNameLog:      logfname,
		nextPageID:       nextPageID,
		size:             fileSize,
		reusableSpaceIDs: make([]types.PageID, 0),
		spaceIDConvMap:   make(map[types.PageID]types.PageID),
		deallocedIDMap:   make(map[types.PageID]bool),
	}
}

// ShutDown closes of the database file
func (d *FileDiskManager) ShutDown() {
	d.db.Close()
	d.log.Close()
}

func (d *FileDiskManager) convToSpaceID(pageID types.PageID) types.PageID {
	if convedID, exist := d.spaceIDConvMap[pageID]; exist {
		return convedID
	}
	return pageID
}

// Write a page to the database file
func (d *FileDiskManager) WritePage(pageId types.PageID, pageData []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	offset := int64(d.convToSpaceID(pageId)) * common.PageSize
	d.db.Seek(offset, io.SeekStart)
	bytesWritten, err := d.db.Write(pageData)
	if err != nil {
		return err
	}

	if bytesWritten != common.PageSize {
		return errors.New("bytes written not equals page size")
	}

	if offset >= d.size {
		d.size = offset + int64(bytesWritten)
	}
	d.numWrites++

	d.db.Sync()
	return nil
}

// Read a page from the database file
func (d *FileDiskManager) ReadPage(pageID types.PageID, pageData []byte) error {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	if d.deallocedIDMap[pageID] {
		return types.DeallocatedPageErr
	}

	offset := int64(d.convToSpaceID(pageID)) * common.PageSize

	fileInfo, err := d.db.Stat()
	if err != nil {
		return errors.New("file info error")
	}

	if offset > fileInfo.Size() {
		return errors.New("I/O error past end of file")
	}

	d.db.Seek(offset, io.SeekStart)

	bytesRead, err := d.db.Read(pageData)
	if err != nil {
		return errors.New("I/O error while reading")
	}

	if bytesRead < common.PageSize {
		for i := bytesRead; i < common.PageSize; i++ {
			pageData[i] = 0
		}
	}
	return nil
}

// AllocatePage allocates a new page, handing back a previously deallocated
// page's on-disk slot when one is available instead of growing the file.
func (d *FileDiskManager) AllocatePage() types.PageID {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	ret := d.nextPageID
	if len(d.reusableSpaceIDs) > 0 {
		reuseID := d.reusableSpaceIDs[0]
		d.reusableSpaceIDs = d.reusableSpaceIDs[1:]
		d.spaceIDConvMap[ret] = reuseID
	}
	d.nextPageID++
	return ret
}

// DeallocatePage records pageID's backing slot as free for the next
// AllocatePage call, and marks pageID itself unreadable.
func (d *FileDiskManager) DeallocatePage(pageID types.PageID) {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()

	d.deallocedIDMap[pageID] = true
	if convedID, exist := d.spaceIDConvMap[pageID]; exist {
		d.reusableSpaceIDs = append(d.reusableSpaceIDs, convedID)
		delete(d.spaceIDConvMap, pageID)
	} else {
		d.reusableSpaceIDs = append(d.reusableSpaceIDs, pageID)
	}
}

// GetNumWrites returns the number of disk writes
func (d *FileDiskManager) GetNumWrites() uint64 {
	return d.numWrites
}

// Size returns the size of the file in disk
func (d *FileDiskManager) Size() int64 {
	d.dbFileMutex.Lock()
	defer d.dbFileMutex.Unlock()
	return d.size
}

// ATTENTION: this method can be call after calling of Shutdown method
func (d *FileDiskManager) RemoveDBFile() {
	os.Remove(d.fileName)
}

// ATTENTION: this method can be call after calling of Shutdown method
func (d *FileDiskManager) RemoveLogFile() {
	os.Remove(d.fileNameLog)
}

// WriteLog appends the contents of a flushed log buffer to the log file,
// performing a sequential write followed by a sync so the call only returns
// once the bytes are durable.
func (d *FileDiskManager) WriteLog(logData []byte) {
	d.logFileMutex.Lock()
	defer d.logFileMutex.Unlock()

	d.numFlushes++
	if _, err := d.log.Write(logData); err != nil {
		log.Println("I/O error while writing log:", err)
		return
	}
	d.log.Sync()
}

// ReadLog reads len(logData) bytes starting at offset from the log file.
// Returns false once offset is past the
// end of the log; zero-pads logData past whatever was actually read.
func (d *FileDiskManager) ReadLog(logData []byte, offset int32) bool {
	d.logFileMutex.Lock()
	defer d.logFileMutex.Unlock()

	if int64(offset) >= d.getLogFileSizeLocked() {
		return false
	}

	d.log.Seek(int64(offset), io.SeekStart)
	readBytes, err := d.log.Read(logData)
	if err != nil {
		log.Println("I/O error at log data reading:", err)
		return false
	}

	if readBytes < len(logData) {
		for i := readBytes; i < len(logData); i++ {
			logData[i] = 0
		}
	}
	return true
}

// GetLogFileSize returns the current size of the log file.
func (d *FileDiskManager) GetLogFileSize() int64 {
	return d.getLogFileSizeLocked()
}

func (d *FileDiskManager) getLogFileSizeLocked() int64 {
	fileInfo, err := d.log.Stat()
	if err != nil {
		return -1
	}
	return fileInfo.Size()
}
