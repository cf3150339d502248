package recovery

import (
	"bytes"
	"encoding/binary"
	"sync"
	"unsafe"

	"github.com/yuzudb/yuzudb/common"
	"github.com/yuzudb/yuzudb/storage/disk"
	"github.com/yuzudb/yuzudb/storage/tuple"
	"github.com/yuzudb/yuzudb/types"
)

/**
 * LogManager maintains an append-only log buffer that is flushed to the log
 * file whenever it fills or a caller forces a flush. Logging is advisory: it
 * never blocks or alters the control flow of the operation it records.
 */
type LogManager struct {
	offset          uint32
	log_buffer_lsn  types.LSN
	next_lsn        types.LSN
	persistent_lsn  types.LSN
	log_buffer      []byte
	flush_buffer    []byte
	latch           common.ReaderWriterLatch
	flush_mutex     sync.Mutex
	disk_manager    disk.DiskManager
	isEnableLogging bool
}

func NewLogManager(disk_manager disk.DiskManager) *LogManager {
	ret := new(LogManager)
	ret.next_lsn = 0
	ret.persistent_lsn = common.InvalidLSN
	ret.disk_manager = disk_manager
	ret.log_buffer = make([]byte, common.LogBufferSize)
	ret.flush_buffer = make([]byte, common.LogBufferSize)
	ret.latch = common.NewRWLatch()
	ret.offset = 0
	return ret
}

func (log_manager *LogManager) GetNextLSN() types.LSN       { return log_manager.next_lsn }
func (log_manager *LogManager) GetPersistentLSN() types.LSN { return log_manager.persistent_lsn }

func (log_manager *LogManager) ActivateLogging()   { log_manager.isEnableLogging = true }
func (log_manager *LogManager) DeactivateLogging() { log_manager.isEnableLogging = false }
func (log_manager *LogManager) IsEnabledLogging() bool {
	return log_manager.isEnableLogging
}

// Flush swaps the log and flush buffers and writes the previously active
// buffer's contents to the log file. Safe to call concurrently with
// AppendLogRecord.
func (log_manager *LogManager) Flush() {
	log_manager.flush_mutex.Lock()
	defer log_manager.flush_mutex.Unlock()

	log_manager.latch.WLock()
	lsn := log_manager.log_buffer_lsn
	offset := log_manager.offset
	log_manager.offset = 0
	log_manager.log_buffer, log_manager.flush_buffer = log_manager.flush_buffer, log_manager.log_buffer
	log_manager.latch.WUnlock()

	log_manager.disk_manager.WriteLog(log_manager.flush_buffer[:offset])
	log_manager.persistent_lsn = lsn
}

// AppendLogRecord assigns the record its LSN and copies its serialized form
// into the log buffer, flushing first if there isn't room.
func (log_manager *LogManager) AppendLogRecord(log_record *LogRecord) types.LSN {
	log_manager.latch.WLock()
	if common.LogBufferSize-log_manager.offset < HEADER_SIZE {
		log_manager.latch.WUnlock()
		log_manager.Flush()
		log_manager.latch.WLock()
	}

	log_record.Lsn = log_manager.next_lsn
	log_manager.next_lsn += 1
	copy(log_manager.log_buffer[log_manager.offset:], log_record.GetLogHeaderData())

	if common.LogBufferSize-log_manager.offset < log_record.Size {
		log_manager.latch.WUnlock()
		log_manager.Flush()
		log_manager.latch.WLock()
		copy(log_manager.log_buffer[log_manager.offset:], log_record.GetLogHeaderData())
	}
	log_manager.log_buffer_lsn = log_record.Lsn
	pos := log_manager.offset + HEADER_SIZE
	log_manager.offset += log_record.Size

	switch log_record.Log_record_type {
	case INSERT:
		buf := new(bytes.Buffer)
		binary.Write(buf, binary.LittleEndian, log_record.Insert_rid)
		copy(log_manager.log_buffer[pos:], buf.Bytes())
		pos += uint32(unsafe.Sizeof(log_record.Insert_rid))
		log_record.Insert_tuple.SerializeTo(log_manager.log_buffer[pos:])
	case APPLYDELETE, MARKDELETE, ROLLBACKDELETE:
		buf := new(bytes.Buffer)
		binary.Write(buf, binary.LittleEndian, log_record.Delete_rid)
		copy(log_manager.log_buffer[pos:], buf.Bytes())
		pos += uint32(unsafe.Sizeof(log_record.Delete_rid))
		log_record.Delete_tuple.SerializeTo(log_manager.log_buffer[pos:])
	case UPDATE:
		buf := new(bytes.Buffer)
		binary.Write(buf, binary.LittleEndian, log_record.Update_rid)
		copy(log_manager.log_buffer[pos:], buf.Bytes())
		pos += uint32(unsafe.Sizeof(log_record.Update_rid))
		log_record.Old_tuple.SerializeTo(log_manager.log_buffer[pos:])
		pos += log_record.Old_tuple.Size() + uint32(tuple.TupleSizeOffsetInLogrecord)
		log_record.New_tuple.SerializeTo(log_manager.log_buffer[pos:])
	case NEWPAGE:
		buf := new(bytes.Buffer)
		binary.Write(buf, binary.LittleEndian, log_record.Prev_page_id)
		copy(log_manager.log_buffer[pos:], buf.Bytes())
	}

	log_manager.latch.WUnlock()
	return log_record.Lsn
}
