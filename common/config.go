// this code is from https://github.com/pzhzqt/goostub
// there is license and copyright notice in licenses/goostub dir

package common

import (
	"time"
)

var CycleDetectionInterval time.Duration = 50 * time.Millisecond
var EnableLogging bool = false
var LogTimeout time.Duration
var EnableDebug bool = false

const (
	// invalid page id
	InvalidPageID = -1
	// invalid transaction id
	InvalidTxnID = -1
	// invalid log sequence number
	InvalidLSN = -1
	// the header page id
	HeaderPageID = 0
	// size of a data page in byte
	PageSize = 4096
	// size of buffer pool
	LogBufferPoolSize = 32
	// size of a log buffer in byte
	LogBufferSize = ((LogBufferPoolSize + 1) * PageSize)
	// size of extendible hash bucket
	BucketSize = 50
	// default number of frames tracked by LRU-K
	DefaultBufferPoolSize = 64
	// default K for the LRU-K replacer
	DefaultLRUKReplacerK = 2
	// default max entries in a B+-tree leaf node before it splits
	DefaultBTreeLeafMaxSize = 5
	// default max children in a B+-tree internal node before it splits
	DefaultBTreeInternalMaxSize = 5
)

// FrameID identifies a slot in the buffer pool's frame array.
type FrameID int32

// SlotOffset is a byte offset within a page used by slotted-page layouts.
type SlotOffset uintptr
