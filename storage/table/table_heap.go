// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package table

import (
	"github.com/yuzudb/yuzudb/concurrency"
	"github.com/yuzudb/yuzudb/recovery"
	"github.com/yuzudb/yuzudb/storage/buffer"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
	"github.com/yuzudb/yuzudb/types"
)

// TableHeap is a physical table on disk: the oid of a catalog entry, the id
// of its first page, and a doubly-linked chain of TablePages from there.
type TableHeap struct {
	oid         uint32
	bpm         *buffer.BufferPoolManager
	firstPageId types.PageID
	logManager  *recovery.LogManager
	lockManager *concurrency.LockManager
}

// NewTableHeap allocates a fresh, empty table heap.
func NewTableHeap(bpm *buffer.BufferPoolManager, logManager *recovery.LogManager, lockManager *concurrency.LockManager, txn *concurrency.Transaction, oid uint32) *TableHeap {
	p := bpm.NewPage()
	first := CastPageAsTablePage(p)
	first.WLatch()
	first.Init(p.ID(), types.InvalidPageID, logManager, txn)
	first.WUnlatch()
	bpm.FlushPage(p.ID())
	bpm.UnpinPage(p.ID(), true)
	return &TableHeap{oid: oid, bpm: bpm, firstPageId: p.ID(), logManager: logManager, lockManager: lockManager}
}

// InitTableHeap reopens a table heap whose first page is already on disk,
// as recorded in the catalog.
func InitTableHeap(bpm *buffer.BufferPoolManager, firstPageId types.PageID, logManager *recovery.LogManager, lockManager *concurrency.LockManager, oid uint32) *TableHeap {
	return &TableHeap{oid: oid, bpm: bpm, firstPageId: firstPageId, logManager: logManager, lockManager: lockManager}
}

func (t *TableHeap) GetFirstPageId() types.PageID                    { return t.firstPageId }
func (t *TableHeap) GetBufferPoolManager() *buffer.BufferPoolManager { return t.bpm }
func (t *TableHeap) GetOID() uint32                                  { return t.oid }

// ensureTableReadLock acquires an intention-shared table lock unless txn
// already holds a lock at least that strong; a table lock is a prerequisite
// for taking any row lock under two-phase multi-granularity locking.
func (t *TableHeap) ensureTableReadLock(txn *concurrency.Transaction) error {
	if t.holdsAnyTableLock(txn) {
		return nil
	}
	return t.lockManager.LockTable(txn, concurrency.LOCK_INTENTION_SHARED, t.oid)
}

// ensureTableWriteLock acquires an intention-exclusive table lock unless txn
// already holds IX, SIX or X.
func (t *TableHeap) ensureTableWriteLock(txn *concurrency.Transaction) error {
	if txn.IsTableLockHeld(t.oid, concurrency.LOCK_INTENTION_EXCLUSIVE) ||
		txn.IsTableLockHeld(t.oid, concurrency.LOCK_EXCLUSIVE) ||
		txn.IsTableLockHeld(t.oid, concurrency.LOCK_SHARED_INTENTION_EXCLUSIVE) {
		return nil
	}
	return t.lockManager.LockTable(txn, concurrency.LOCK_INTENTION_EXCLUSIVE, t.oid)
}

func (t *TableHeap) holdsAnyTableLock(txn *concurrency.Transaction) bool {
	return txn.IsTableLockHeld(t.oid, concurrency.LOCK_SHARED) ||
		txn.IsTableLockHeld(t.oid, concurrency.LOCK_EXCLUSIVE) ||
		txn.IsTableLockHeld(t.oid, concurrency.LOCK_INTENTION_SHARED) ||
		txn.IsTableLockHeld(t.oid, concurrency.LOCK_INTENTION_EXCLUSIVE) ||
		txn.IsTableLockHeld(t.oid, concurrency.LOCK_SHARED_INTENTION_EXCLUSIVE)
}

// InsertTuple inserts tup, walking the page chain for one with enough free
// space and appending a new page if none is found. Index maintenance is the
// caller's responsibility.
func (t *TableHeap) InsertTuple(tup *tuple.Tuple, txn *concurrency.Transaction) (*page.RID, error) {
	if err := t.ensureTableWriteLock(txn); err != nil {
		return nil, err
	}

	currentPage := CastPageAsTablePage(t.bpm.FetchPage(t.firstPageId))
	var rid *page.RID
	var err error

	for {
		currentPage.WLatch()
		rid, err = currentPage.InsertTuple(tup, t.logManager, txn)
		if err == nil || err == ErrEmptyTuple {
			currentPage.WUnlatch()
			break
		}
		if err != ErrNotEnoughSpace && err != ErrNoFreeSlot {
			currentPage.WUnlatch()
			return nil, err
		}

		nextPageId := currentPage.GetNextPageId()
		if nextPageId.IsValid() {
			t.bpm.UnpinPage(currentPage.GetTablePageId(), false)
			currentPage.WUnlatch()
			currentPage = CastPageAsTablePage(t.bpm.FetchPage(nextPageId))
		} else {
			p := t.bpm.NewPage()
			currentPage.SetNextPageId(p.ID())
			currentPage.WUnlatch()
			newPage := CastPageAsTablePage(p)
			newPage.Init(p.ID(), currentPage.GetTablePageId(), t.logManager, txn)
			t.bpm.FlushPage(newPage.GetTablePageId())
			t.bpm.UnpinPage(currentPage.GetTablePageId(), true)
			currentPage = newPage
		}
	}
	t.bpm.UnpinPage(currentPage.GetTablePageId(), true)

	if err := t.lockManager.LockRow(txn, concurrency.LOCK_EXCLUSIVE, t.oid, *rid); err != nil {
		return nil, err
	}
	txn.AddIntoWriteSet(&concurrency.WriteRecord{Rid: *rid, Wtype: concurrency.INSERT, TableOid: t.oid})
	return rid, nil
}

// UpdateTuple replaces the tuple at rid. When the new value no longer fits
// the slot it deletes the old tuple and reinserts at a new RID, returning it.
func (t *TableHeap) UpdateTuple(newTuple *tuple.Tuple, updateColIdxs []int, schema_ *schema.Schema, rid page.RID, txn *concurrency.Transaction) (bool, *page.RID) {
	if err := t.ensureTableWriteLock(txn); err != nil {
		return false, nil
	}
	if err := t.lockManager.LockRow(txn, concurrency.LOCK_EXCLUSIVE, t.oid, rid); err != nil {
		return false, nil
	}

	tablePage := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	if tablePage == nil {
		return false, nil
	}

	oldTuple := new(tuple.Tuple)
	oldTuple.SetRID(new(page.RID))

	tablePage.WLatch()
	updated, err, needFollowTuple := tablePage.UpdateTuple(newTuple, updateColIdxs, schema_, oldTuple, &rid, t.logManager, txn)
	tablePage.WUnlatch()
	t.bpm.UnpinPage(tablePage.GetTablePageId(), updated)

	var newRid *page.RID
	if !updated && err == ErrNotEnoughSpace {
		if !t.MarkDelete(&rid, txn) {
			return false, nil
		}
		newRid, err = t.InsertTuple(needFollowTuple, txn)
		if err != nil {
			return false, nil
		}
		updated = true
	}

	if updated {
		txn.AddIntoWriteSet(&concurrency.WriteRecord{Rid: rid, Wtype: concurrency.UPDATE, OldTuple: oldTuple.Data(), TableOid: t.oid})
	}
	return updated, newRid
}

// MarkDelete tombstones the tuple at rid without reclaiming its space.
func (t *TableHeap) MarkDelete(rid *page.RID, txn *concurrency.Transaction) bool {
	if err := t.ensureTableWriteLock(txn); err != nil {
		return false
	}
	if err := t.lockManager.LockRow(txn, concurrency.LOCK_EXCLUSIVE, t.oid, *rid); err != nil {
		return false
	}

	tablePage := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	if tablePage == nil {
		return false
	}
	tablePage.WLatch()
	marked := tablePage.MarkDelete(rid, t.logManager, txn)
	tablePage.WUnlatch()
	t.bpm.UnpinPage(tablePage.GetTablePageId(), true)

	if marked {
		txn.AddIntoWriteSet(&concurrency.WriteRecord{Rid: *rid, Wtype: concurrency.DELETE, TableOid: t.oid})
	}
	return marked
}

// ApplyTableDelete finalizes a tombstoned delete at commit time, reclaiming
// its slot. Satisfies concurrency.TableHeap.
func (t *TableHeap) ApplyTableDelete(rid page.RID, txn *concurrency.Transaction) {
	tablePage := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	tablePage.WLatch()
	tablePage.ApplyDelete(&rid, t.logManager, txn)
	tablePage.WUnlatch()
	t.bpm.UnpinPage(tablePage.GetTablePageId(), true)
}

// RollbackTableDelete undoes a MarkDelete on abort. Satisfies
// concurrency.TableHeap.
func (t *TableHeap) RollbackTableDelete(rid page.RID, txn *concurrency.Transaction) {
	tablePage := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	tablePage.WLatch()
	tablePage.RollbackDelete(&rid, t.logManager, txn)
	tablePage.WUnlatch()
	t.bpm.UnpinPage(tablePage.GetTablePageId(), true)
}

// RollbackTableInsert undoes an InsertTuple on abort by deleting the row
// outright. Satisfies concurrency.TableHeap.
func (t *TableHeap) RollbackTableInsert(rid page.RID, txn *concurrency.Transaction) {
	tablePage := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	tablePage.WLatch()
	tablePage.ApplyDelete(&rid, t.logManager, txn)
	tablePage.WUnlatch()
	t.bpm.UnpinPage(tablePage.GetTablePageId(), true)
}

// RollbackTableUpdate undoes an UpdateTuple on abort by restoring the
// pre-update bytes. Satisfies concurrency.TableHeap.
func (t *TableHeap) RollbackTableUpdate(rid page.RID, oldTuple []byte, txn *concurrency.Transaction) {
	restored := tuple.NewTuple(&rid, uint32(len(oldTuple)), append([]byte(nil), oldTuple...))
	tablePage := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	tablePage.WLatch()
	dummy := new(tuple.Tuple)
	dummy.SetRID(new(page.RID))
	tablePage.UpdateTuple(restored, nil, nil, dummy, &rid, t.logManager, txn)
	tablePage.WUnlatch()
	t.bpm.UnpinPage(tablePage.GetTablePageId(), true)
}

// GetTuple reads the tuple at rid, acquiring a shared row lock first.
func (t *TableHeap) GetTuple(rid *page.RID, txn *concurrency.Transaction) *tuple.Tuple {
	if err := t.ensureTableReadLock(txn); err != nil {
		return nil
	}
	if !txn.IsRowLockHeld(t.oid, *rid, concurrency.LOCK_SHARED) && !txn.IsRowLockHeld(t.oid, *rid, concurrency.LOCK_EXCLUSIVE) {
		if err := t.lockManager.LockRow(txn, concurrency.LOCK_SHARED, t.oid, *rid); err != nil {
			return nil
		}
	}

	tablePage := CastPageAsTablePage(t.bpm.FetchPage(rid.GetPageId()))
	defer t.bpm.UnpinPage(tablePage.GetTablePageId(), false)
	tablePage.RLatch()
	defer tablePage.RUnlatch()
	return tablePage.GetTuple(rid)
}

// GetFirstTuple reads the first live tuple in the table, skipping tombstones
// and empty leading pages.
func (t *TableHeap) GetFirstTuple(txn *concurrency.Transaction) *tuple.Tuple {
	var rid *page.RID
	pageId := t.firstPageId
	for pageId.IsValid() {
		tablePage := CastPageAsTablePage(t.bpm.FetchPage(pageId))
		tablePage.RLatch()
		rid = tablePage.GetTupleFirstRID()
		t.bpm.UnpinPage(pageId, false)
		if rid != nil {
			tablePage.RUnlatch()
			break
		}
		pageId = tablePage.GetNextPageId()
		tablePage.RUnlatch()
	}
	if rid == nil {
		return nil
	}
	return t.GetTuple(rid, txn)
}

// Iterator returns a tombstone-skipping iterator positioned at the table's
// first live tuple.
func (t *TableHeap) Iterator(txn *concurrency.Transaction) *TableHeapIterator {
	return NewTableHeapIterator(t, txn)
}
