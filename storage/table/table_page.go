// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package table

import (
	"unsafe"

	"github.com/yuzudb/yuzudb/common"
	"github.com/yuzudb/yuzudb/concurrency"
	"github.com/yuzudb/yuzudb/errors"
	"github.com/yuzudb/yuzudb/recovery"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
	"github.com/yuzudb/yuzudb/types"
)

// deleteMask flags a slot's size field to mark its tuple a tombstone rather
// than physically compacting the page on every delete.
const deleteMask = uint32(1 << 31)

const (
	offsetLSN           = 4
	offsetPrevPageID    = 8
	offsetNextPageID    = 12
	offsetFreeSpace     = 16
	offsetTupleCount    = 20
	offsetTupleOffset   = 24
	offsetTupleSize     = 28
	sizeTablePageHeader = 24
	sizeTupleEntry      = 8
)

const ErrEmptyTuple = errors.Error("tuple cannot be empty")
const ErrNotEnoughSpace = errors.Error("there is not enough space")
const ErrNoFreeSlot = errors.Error("could not find a free slot")

// TablePage is a slotted page holding tuples for one table:
//
//	---------------------------------------------------------
//	| HEADER | ... FREE SPACE ... | ... INSERTED TUPLES ... |
//	---------------------------------------------------------
//	                              ^
//	                              free space pointer
//
// Header layout:
//
//	----------------------------------------------------------------------------
//	| PageId (4)| LSN (4)| PrevPageId (4)| NextPageId (4)| FreeSpacePointer(4) |
//	----------------------------------------------------------------------------
//	----------------------------------------------------------------
//	| TupleCount (4) | Tuple_1 offset (4) | Tuple_1 size (4) | ... |
//	----------------------------------------------------------------
//
// A deleted tuple isn't compacted out; its size slot carries deleteMask
// until the owning transaction commits and ApplyDelete reclaims the space.
type TablePage struct {
	page.Page
}

// CastPageAsTablePage casts the abstract Page struct into TablePage.
func CastPageAsTablePage(p *page.Page) *TablePage {
	if p == nil {
		return nil
	}
	return (*TablePage)(unsafe.Pointer(p))
}

// Init sets up a freshly allocated page as the header of a new table page.
func (tp *TablePage) Init(pageId types.PageID, prevPageId types.PageID, logManager *recovery.LogManager, txn *concurrency.Transaction) {
	if logManager.IsEnabledLogging() {
		record := recovery.NewLogRecordNewPage(txn.GetTransactionId(), txn.GetPrevLSN(), prevPageId)
		lsn := logManager.AppendLogRecord(record)
		tp.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}
	tp.SetPageId(pageId)
	tp.SetPrevPageId(prevPageId)
	tp.SetNextPageId(types.InvalidPageID)
	tp.SetTupleCount(0)
	tp.SetFreeSpacePointer(common.PageSize)
}

func (tp *TablePage) GetLSN() types.LSN { return types.NewLSNFromBytes(tp.Data()[offsetLSN:]) }
func (tp *TablePage) SetLSN(lsn types.LSN) { tp.Copy(offsetLSN, lsn.Serialize()) }

func (tp *TablePage) SetPageId(pageId types.PageID)     { tp.Copy(0, pageId.Serialize()) }
func (tp *TablePage) SetPrevPageId(pageId types.PageID)  { tp.Copy(offsetPrevPageID, pageId.Serialize()) }
func (tp *TablePage) SetNextPageId(pageId types.PageID)  { tp.Copy(offsetNextPageID, pageId.Serialize()) }
func (tp *TablePage) SetFreeSpacePointer(fsp uint32)     { tp.Copy(offsetFreeSpace, types.UInt32(fsp).Serialize()) }
func (tp *TablePage) SetTupleCount(count uint32)         { tp.Copy(offsetTupleCount, types.UInt32(count).Serialize()) }

func (tp *TablePage) GetTablePageId() types.PageID { return types.NewPageIDFromBytes(tp.Data()[:]) }
func (tp *TablePage) GetPrevPageId() types.PageID {
	return types.NewPageIDFromBytes(tp.Data()[offsetPrevPageID:])
}
func (tp *TablePage) GetNextPageId() types.PageID {
	return types.NewPageIDFromBytes(tp.Data()[offsetNextPageID:])
}
func (tp *TablePage) GetFreeSpacePointer() uint32 {
	return uint32(types.NewUInt32FromBytes(tp.Data()[offsetFreeSpace:]))
}
func (tp *TablePage) GetTupleCount() uint32 {
	return uint32(types.NewUInt32FromBytes(tp.Data()[offsetTupleCount:]))
}

func (tp *TablePage) GetTupleOffsetAtSlot(slot uint32) uint32 {
	return uint32(types.NewUInt32FromBytes(tp.Data()[offsetTupleOffset+sizeTupleEntry*slot:]))
}
func (tp *TablePage) SetTupleOffsetAtSlot(slot uint32, offset uint32) {
	tp.Copy(offsetTupleOffset+int(sizeTupleEntry*slot), types.UInt32(offset).Serialize())
}
func (tp *TablePage) GetTupleSize(slot uint32) uint32 {
	return uint32(types.NewUInt32FromBytes(tp.Data()[offsetTupleSize+sizeTupleEntry*slot:]))
}
func (tp *TablePage) SetTupleSize(slot uint32, size uint32) {
	tp.Copy(offsetTupleSize+int(sizeTupleEntry*slot), types.UInt32(size).Serialize())
}

func (tp *TablePage) getFreeSpaceRemaining() uint32 {
	return tp.GetFreeSpacePointer() - sizeTablePageHeader - sizeTupleEntry*tp.GetTupleCount()
}

func (tp *TablePage) setTupleData(slot uint32, tup *tuple.Tuple) {
	fsp := tp.GetFreeSpacePointer()
	tp.Copy(int(fsp), tup.Data())
	tp.SetTupleOffsetAtSlot(slot, fsp)
	tp.SetTupleSize(slot, tup.Size())
}

// IsDeleted reports whether a slot's size carries the tombstone bit, or is
// simply empty.
func IsDeleted(size uint32) bool {
	return size&deleteMask == deleteMask || size == 0
}

func SetDeletedFlag(size uint32) uint32   { return size | deleteMask }
func UnsetDeletedFlag(size uint32) uint32 { return size &^ deleteMask }

// InsertTuple writes tup into the first free slot with enough room. The
// caller must hold the page's write latch.
func (tp *TablePage) InsertTuple(tup *tuple.Tuple, logManager *recovery.LogManager, txn *concurrency.Transaction) (*page.RID, error) {
	if tup.Size() == 0 {
		return nil, ErrEmptyTuple
	}
	if tp.getFreeSpaceRemaining() < tup.Size()+sizeTupleEntry {
		return nil, ErrNotEnoughSpace
	}

	var slot uint32
	for slot = 0; slot < tp.GetTupleCount(); slot++ {
		if tp.GetTupleSize(slot) == 0 {
			break
		}
	}
	if slot == tp.GetTupleCount() && tup.Size()+sizeTupleEntry > tp.getFreeSpaceRemaining() {
		return nil, ErrNoFreeSlot
	}

	rid := page.NewRID(tp.GetTablePageId(), slot)
	tup.SetRID(rid)

	tp.SetFreeSpacePointer(tp.GetFreeSpacePointer() - tup.Size())
	tp.setTupleData(slot, tup)
	if slot == tp.GetTupleCount() {
		tp.SetTupleCount(tp.GetTupleCount() + 1)
	}

	if logManager.IsEnabledLogging() {
		record := recovery.NewLogRecordInsertDelete(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.INSERT, *rid, tup)
		lsn := logManager.AppendLogRecord(record)
		tp.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}
	return rid, nil
}

// UpdateTuple replaces the tuple at rid. When updateColIdxs/schema_ are nil
// the whole tuple is replaced; otherwise only the named columns are taken
// from newTuple and the rest carried over from the existing value. Returns
// ErrNotEnoughSpace (with the tuple the caller should delete-then-reinsert
// instead) when the new value doesn't fit in the freed slot.
func (tp *TablePage) UpdateTuple(newTuple *tuple.Tuple, updateColIdxs []int, schema_ *schema.Schema, oldTuple *tuple.Tuple, rid *page.RID, logManager *recovery.LogManager, txn *concurrency.Transaction) (bool, error, *tuple.Tuple) {
	slot := rid.GetSlot()
	if slot >= tp.GetTupleCount() {
		return false, nil, nil
	}
	tupleSize := tp.GetTupleSize(slot)
	if IsDeleted(tupleSize) {
		return false, nil, nil
	}

	tupleOffset := tp.GetTupleOffsetAtSlot(slot)
	oldTuple.SetSize(tupleSize)
	oldData := make([]byte, oldTuple.Size())
	copy(oldData, tp.Data()[tupleOffset:tupleOffset+oldTuple.Size()])
	oldTuple.SetData(oldData)
	oldTuple.SetRID(rid)

	var updateTuple *tuple.Tuple
	if updateColIdxs == nil || schema_ == nil {
		updateTuple = newTuple
	} else {
		values := make([]types.Value, 0, schema_.GetColumnCount())
		matched := 0
		for idx := range schema_.GetColumns() {
			if matched < len(updateColIdxs) && idx == updateColIdxs[matched] {
				values = append(values, newTuple.GetValue(schema_, uint32(idx)))
				matched++
			} else {
				values = append(values, oldTuple.GetValue(schema_, uint32(idx)))
			}
		}
		updateTuple = tuple.NewTupleFromSchema(values, schema_)
	}

	if tp.getFreeSpaceRemaining()+tupleSize < updateTuple.Size() {
		return false, ErrNotEnoughSpace, updateTuple
	}

	if logManager.IsEnabledLogging() {
		record := recovery.NewLogRecordUpdate(txn.GetTransactionId(), txn.GetPrevLSN(), *rid, *oldTuple, *updateTuple)
		lsn := logManager.AppendLogRecord(record)
		tp.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}

	fsp := tp.GetFreeSpacePointer()
	copy(tp.Data()[fsp+tupleSize-updateTuple.Size():], tp.Data()[fsp:tupleOffset])
	tp.SetFreeSpacePointer(fsp + tupleSize - updateTuple.Size())
	copy(tp.Data()[tupleOffset+tupleSize-updateTuple.Size():], updateTuple.Data()[:updateTuple.Size()])
	tp.SetTupleSize(slot, updateTuple.Size())

	count := tp.GetTupleCount()
	for i := uint32(0); i < count; i++ {
		off := tp.GetTupleOffsetAtSlot(i)
		if tp.GetTupleSize(i) > 0 && off < tupleOffset+tupleSize {
			tp.SetTupleOffsetAtSlot(i, off+tupleSize-updateTuple.Size())
		}
	}
	return true, nil, nil
}

// MarkDelete flags the slot a tombstone without reclaiming its space. The
// caller must hold the page's write latch.
func (tp *TablePage) MarkDelete(rid *page.RID, logManager *recovery.LogManager, txn *concurrency.Transaction) bool {
	slot := rid.GetSlot()
	if slot >= tp.GetTupleCount() {
		return false
	}
	tupleSize := tp.GetTupleSize(slot)
	if IsDeleted(tupleSize) {
		return false
	}

	if logManager.IsEnabledLogging() {
		record := recovery.NewLogRecordInsertDelete(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.MARKDELETE, *rid, new(tuple.Tuple))
		lsn := logManager.AppendLogRecord(record)
		tp.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}

	if tupleSize > 0 {
		tp.SetTupleSize(slot, SetDeletedFlag(tupleSize))
	}
	return true
}

// ApplyDelete reclaims a tombstoned slot's space, committing the delete. It
// is also used to undo an insert on abort: applied to a live (non-tombstone)
// slot it just removes that tuple outright.
func (tp *TablePage) ApplyDelete(rid *page.RID, logManager *recovery.LogManager, txn *concurrency.Transaction) {
	slot := rid.GetSlot()
	common.SH_Assert(slot < tp.GetTupleCount(), "cannot have more slots than tuples")

	tupleOffset := tp.GetTupleOffsetAtSlot(slot)
	tupleSize := tp.GetTupleSize(slot)
	if IsDeleted(tupleSize) {
		tupleSize = UnsetDeletedFlag(tupleSize)
	}

	deletedTuple := new(tuple.Tuple)
	deletedTuple.SetSize(tupleSize)
	deletedData := make([]byte, deletedTuple.Size())
	copy(deletedData, tp.Data()[tupleOffset:tupleOffset+deletedTuple.Size()])
	deletedTuple.SetData(deletedData)
	deletedTuple.SetRID(rid)

	if logManager.IsEnabledLogging() {
		record := recovery.NewLogRecordInsertDelete(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.APPLYDELETE, *rid, deletedTuple)
		lsn := logManager.AppendLogRecord(record)
		tp.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}

	fsp := tp.GetFreeSpacePointer()
	copy(tp.Data()[fsp+tupleSize:], tp.Data()[fsp:tupleOffset])
	tp.SetFreeSpacePointer(fsp + tupleSize)
	tp.SetTupleSize(slot, 0)
	tp.SetTupleOffsetAtSlot(slot, 0)

	count := tp.GetTupleCount()
	for i := uint32(0); i < count; i++ {
		off := tp.GetTupleOffsetAtSlot(i)
		if tp.GetTupleSize(i) != 0 && off < tupleOffset {
			tp.SetTupleOffsetAtSlot(i, off+tupleSize)
		}
	}
}

// RollbackDelete clears a tombstone set by MarkDelete, undoing an aborted
// transaction's delete.
func (tp *TablePage) RollbackDelete(rid *page.RID, logManager *recovery.LogManager, txn *concurrency.Transaction) {
	if logManager.IsEnabledLogging() {
		record := recovery.NewLogRecordInsertDelete(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.ROLLBACKDELETE, *rid, new(tuple.Tuple))
		lsn := logManager.AppendLogRecord(record)
		tp.SetLSN(lsn)
		txn.SetPrevLSN(lsn)
	}

	slot := rid.GetSlot()
	common.SH_Assert(slot < tp.GetTupleCount(), "cannot have more slots than tuples")
	tupleSize := tp.GetTupleSize(slot)
	if IsDeleted(tupleSize) {
		tp.SetTupleSize(slot, UnsetDeletedFlag(tupleSize))
	}
}

// GetTuple reads the tuple at rid, or nil if the slot is out of range or
// tombstoned.
func (tp *TablePage) GetTuple(rid *page.RID) *tuple.Tuple {
	slot := rid.GetSlot()
	if slot >= tp.GetTupleCount() {
		return nil
	}
	tupleOffset := tp.GetTupleOffsetAtSlot(slot)
	tupleSize := tp.GetTupleSize(slot)
	if IsDeleted(tupleSize) {
		return nil
	}
	data := make([]byte, tupleSize)
	copy(data, tp.Data()[tupleOffset:])
	return tuple.NewTuple(rid, tupleSize, data)
}

// GetTupleFirstRID returns the RID of the first live tuple on the page, or
// nil if the page holds none.
func (tp *TablePage) GetTupleFirstRID() *page.RID {
	count := tp.GetTupleCount()
	for i := uint32(0); i < count; i++ {
		if !IsDeleted(tp.GetTupleSize(i)) {
			return page.NewRID(tp.GetTablePageId(), i)
		}
	}
	return nil
}

// GetNextTupleRID returns the RID of the first live tuple after curRID's
// slot, or after slot 0 if fromNewPage (curRID belongs to the prior page).
func (tp *TablePage) GetNextTupleRID(curRID *page.RID, fromNewPage bool) *page.RID {
	count := tp.GetTupleCount()
	start := curRID.GetSlot() + 1
	if fromNewPage {
		start = 0
	}
	for i := start; i < count; i++ {
		if !IsDeleted(tp.GetTupleSize(i)) {
			return page.NewRID(tp.GetTablePageId(), i)
		}
	}
	return nil
}
