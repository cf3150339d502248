package disk

import (
	"github.com/yuzudb/yuzudb/types"
)

// DiskManager is responsible for interacting with disk. It is the only
// component permitted to block on real I/O; the buffer pool manager holds
// its own pool mutex across a ReadPage/WritePage call.
type DiskManager interface {
	ReadPage(types.PageID, []byte) error
	WritePage(types.PageID, []byte) error
	AllocatePage() types.PageID
	DeallocatePage(types.PageID)
	GetNumWrites() uint64
	ShutDown()
	Size() int64

	// WriteLog appends already-serialized log bytes to the log file. Called
	// by LogManager.Flush, never directly by the BPM.
	WriteLog(logData []byte)
	// ReadLog reads len(logData) bytes starting at offset from the log
	// file. Returns false once offset is past the end of the file.
	ReadLog(logData []byte, offset int32) bool
}
