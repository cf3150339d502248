package recovery

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/storage/tuple"
	"github.com/yuzudb/yuzudb/types"
)

const HEADER_SIZE uint32 = 20

type LogRecordType int32

/** The type of the log record. */
const (
	INVALID LogRecordType = iota
	INSERT
	MARKDELETE
	APPLYDELETE
	ROLLBACKDELETE
	UPDATE
	BEGIN
	COMMIT
	ABORT
	// Creating a new page in the table heap.
	NEWPAGE
)

/**
 * For every write operation on the table page, a corresponding log record is
 * written ahead of it.
 *
 * HEADER is 5 fields in common, 20 bytes in total.
 *---------------------------------------------
 * | size | LSN | transID | prevLSN | LogType |
 *---------------------------------------------
 * For insert/delete type log records:
 *---------------------------------------------------------------
 * | HEADER | tuple_rid | tuple_size | tuple_data(char[] array) |
 *---------------------------------------------------------------
 * For update type log record:
 *-----------------------------------------------------------------------------------
 * | HEADER | tuple_rid | tuple_size | old_tuple_data | tuple_size | new_tuple_data |
 *-----------------------------------------------------------------------------------
 * For new page type log record:
 *--------------------------
 * | HEADER | prev_page_id |
 *--------------------------
 */
type LogRecord struct {
	Size            uint32
	Lsn             types.LSN
	Txn_id          types.TxnID
	Prev_lsn        types.LSN
	Log_record_type LogRecordType

	// case1: for delete operation, delete_tuple is used for UNDO
	Delete_rid   page.RID
	Delete_tuple tuple.Tuple

	// case2: for insert operation
	Insert_rid   page.RID
	Insert_tuple tuple.Tuple

	// case3: for update operation
	Update_rid page.RID
	Old_tuple  tuple.Tuple
	New_tuple  tuple.Tuple

	// case4: for new page operation
	Prev_page_id types.PageID
}

// NewLogRecordTxn builds a BEGIN/COMMIT/ABORT record.
func NewLogRecordTxn(txn_id types.TxnID, prev_lsn types.LSN, log_record_type LogRecordType) *LogRecord {
	ret := new(LogRecord)
	ret.Size = HEADER_SIZE
	ret.Txn_id = txn_id
	ret.Prev_lsn = prev_lsn
	ret.Log_record_type = log_record_type
	return ret
}

// NewLogRecordInsertDelete builds an INSERT or one of the three delete-phase records.
func NewLogRecordInsertDelete(txn_id types.TxnID, prev_lsn types.LSN, log_record_type LogRecordType, rid page.RID, tup *tuple.Tuple) *LogRecord {
	ret := new(LogRecord)
	ret.Txn_id = txn_id
	ret.Prev_lsn = prev_lsn
	ret.Log_record_type = log_record_type
	if log_record_type == INSERT {
		ret.Insert_rid = rid
		ret.Insert_tuple = *tup
	} else {
		ret.Delete_rid = rid
		ret.Delete_tuple = *tup
	}
	ret.Size = HEADER_SIZE + uint32(unsafe.Sizeof(rid)) + uint32(unsafe.Sizeof(int32(0))) + tup.Size()
	return ret
}

// NewLogRecordUpdate builds an UPDATE record carrying both tuple images.
func NewLogRecordUpdate(txn_id types.TxnID, prev_lsn types.LSN, update_rid page.RID, old_tuple tuple.Tuple, new_tuple tuple.Tuple) *LogRecord {
	ret := new(LogRecord)
	ret.Txn_id = txn_id
	ret.Prev_lsn = prev_lsn
	ret.Log_record_type = UPDATE
	ret.Update_rid = update_rid
	ret.Old_tuple = old_tuple
	ret.New_tuple = new_tuple
	ret.Size = HEADER_SIZE + uint32(unsafe.Sizeof(update_rid)) + old_tuple.Size() + new_tuple.Size() + 2*uint32(unsafe.Sizeof(int32(0)))
	return ret
}

// NewLogRecordNewPage builds a NEWPAGE record noting the preceding page in the chain.
func NewLogRecordNewPage(txn_id types.TxnID, prev_lsn types.LSN, prev_page_id types.PageID) *LogRecord {
	ret := new(LogRecord)
	ret.Txn_id = txn_id
	ret.Prev_lsn = prev_lsn
	ret.Log_record_type = NEWPAGE
	ret.Prev_page_id = prev_page_id
	ret.Size = HEADER_SIZE + uint32(unsafe.Sizeof(prev_page_id))
	return ret
}

func (log_record *LogRecord) GetDeleteRID() page.RID          { return log_record.Delete_rid }
func (log_record *LogRecord) GetInsertTuple() tuple.Tuple     { return log_record.Insert_tuple }
func (log_record *LogRecord) GetInsertRID() page.RID          { return log_record.Insert_rid }
func (log_record *LogRecord) GetNewPageRecord() types.PageID  { return log_record.Prev_page_id }
func (log_record *LogRecord) GetSize() uint32                 { return log_record.Size }
func (log_record *LogRecord) GetLSN() types.LSN               { return log_record.Lsn }
func (log_record *LogRecord) GetTxnId() types.TxnID           { return log_record.Txn_id }
func (log_record *LogRecord) GetPrevLSN() types.LSN           { return log_record.Prev_lsn }
func (log_record *LogRecord) GetLogRecordType() LogRecordType { return log_record.Log_record_type }

func (log_record *LogRecord) GetLogHeaderData() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, log_record.Size)
	binary.Write(buf, binary.LittleEndian, log_record.Lsn)
	binary.Write(buf, binary.LittleEndian, log_record.Txn_id)
	binary.Write(buf, binary.LittleEndian, log_record.Prev_lsn)
	binary.Write(buf, binary.LittleEndian, log_record.Log_record_type)
	return buf.Bytes()
}
