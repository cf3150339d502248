package concurrency

import (
	"sync"

	"github.com/yuzudb/yuzudb/common"
	"github.com/yuzudb/yuzudb/recovery"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/types"
)

// TableHeap is the rollback surface TransactionManager needs from the table
// storage layer. It lives here, rather than being imported from
// storage/table, so that package can import concurrency for Transaction and
// LockManager without creating a cycle.
type TableHeap interface {
	ApplyTableDelete(rid page.RID, txn *Transaction)
	RollbackTableDelete(rid page.RID, txn *Transaction)
	RollbackTableInsert(rid page.RID, txn *Transaction)
	RollbackTableUpdate(rid page.RID, oldTuple []byte, txn *Transaction)
}

// CatalogInterface resolves a write record's table oid to the heap that has
// to roll it back or finalize it.
type CatalogInterface interface {
	GetTableHeapByOID(oid uint32) TableHeap
}

/**
 * TransactionManager owns transaction lifecycle: issuing ids, logging
 * BEGIN/COMMIT/ABORT, driving write-set rollback on abort, and releasing a
 * transaction's locks when it ends.
 */
type TransactionManager struct {
	mu             sync.Mutex
	nextTxnId      types.TxnID
	lockManager    *LockManager
	logManager     *recovery.LogManager
	globalTxnLatch common.ReaderWriterLatch
	txnMap         map[types.TxnID]*Transaction
	catalog        CatalogInterface
}

func NewTransactionManager(lockManager *LockManager, logManager *recovery.LogManager) *TransactionManager {
	tm := &TransactionManager{
		lockManager:    lockManager,
		logManager:     logManager,
		globalTxnLatch: common.NewRWLatch(),
		txnMap:         make(map[types.TxnID]*Transaction),
	}
	lockManager.SetAbortCallback(tm.abortByDeadlock)
	return tm
}

// SetCatalog wires the catalog after construction, since the catalog itself
// is typically built after the transaction manager and needs a fully formed
// TransactionManager to bootstrap its own tables.
func (tm *TransactionManager) SetCatalog(catalog CatalogInterface) {
	tm.catalog = catalog
}

func (tm *TransactionManager) GetTransaction(txnId types.TxnID) *Transaction {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.txnMap[txnId]
}

// Begin starts a new transaction under the global transaction latch held in
// shared mode, so BlockAllTransactions can still force a checkpoint barrier.
func (tm *TransactionManager) Begin(isolationLevel IsolationLevel) *Transaction {
	tm.globalTxnLatch.RLock()

	tm.mu.Lock()
	tm.nextTxnId++
	txn := NewTransaction(tm.nextTxnId, isolationLevel)
	tm.txnMap[txn.GetTransactionId()] = txn
	tm.mu.Unlock()

	if tm.logManager.IsEnabledLogging() {
		record := recovery.NewLogRecordTxn(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.BEGIN)
		lsn := tm.logManager.AppendLogRecord(record)
		txn.SetPrevLSN(lsn)
	}
	return txn
}

// Commit finalizes pending tombstoned deletes, logs the commit, releases
// every lock the transaction holds, and releases the global transaction
// latch acquired in Begin.
func (tm *TransactionManager) Commit(txn *Transaction) {
	txn.SetState(COMMITTED)

	writeSet := txn.GetWriteSet()
	for i := len(writeSet) - 1; i >= 0; i-- {
		item := writeSet[i]
		if item.Wtype != DELETE {
			continue
		}
		if table := tm.tableFor(item.TableOid); table != nil {
			table.ApplyTableDelete(item.Rid, txn)
		}
	}

	if tm.logManager.IsEnabledLogging() {
		record := recovery.NewLogRecordTxn(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.COMMIT)
		lsn := tm.logManager.AppendLogRecord(record)
		txn.SetPrevLSN(lsn)
		tm.logManager.Flush()
	}

	tm.releaseLocks(txn)
	tm.globalTxnLatch.RUnlock()
}

// Abort walks the write set in reverse, undoing each write against the
// table heap that owns it, logs the abort, releases locks, and releases the
// global transaction latch acquired in Begin.
func (tm *TransactionManager) Abort(txn *Transaction) {
	txn.SetState(ABORTED)

	writeSet := txn.GetWriteSet()
	for i := len(writeSet) - 1; i >= 0; i-- {
		item := writeSet[i]
		table := tm.tableFor(item.TableOid)
		if table == nil {
			continue
		}
		switch item.Wtype {
		case DELETE:
			table.RollbackTableDelete(item.Rid, txn)
		case INSERT:
			table.RollbackTableInsert(item.Rid, txn)
		case UPDATE:
			table.RollbackTableUpdate(item.Rid, item.OldTuple, txn)
		}
	}

	if tm.logManager.IsEnabledLogging() {
		record := recovery.NewLogRecordTxn(txn.GetTransactionId(), txn.GetPrevLSN(), recovery.ABORT)
		lsn := tm.logManager.AppendLogRecord(record)
		txn.SetPrevLSN(lsn)
	}

	tm.releaseLocks(txn)
	tm.globalTxnLatch.RUnlock()
}

// abortByDeadlock is handed to the LockManager as its cycle-detector
// callback. It only flips transaction state and reason; the lock manager
// calls it just before stripping the victim's queue entries and
// broadcasting the affected queues, so every Lock* call the victim is
// blocked in wakes up, observes ABORTED and returns a DEADLOCK AbortError. The
// caller driving that transaction is responsible for then calling Abort to
// unwind its write set.
func (tm *TransactionManager) abortByDeadlock(txnId types.TxnID) {
	txn := tm.GetTransaction(txnId)
	if txn == nil {
		return
	}
	txn.Lock()
	txn.SetState(ABORTED)
	txn.SetAbortReason(DEADLOCK)
	txn.Unlock()
}

func (tm *TransactionManager) BlockAllTransactions() { tm.globalTxnLatch.WLock() }
func (tm *TransactionManager) ResumeTransactions()   { tm.globalTxnLatch.WUnlock() }

func (tm *TransactionManager) tableFor(oid uint32) TableHeap {
	if tm.catalog == nil {
		return nil
	}
	return tm.catalog.GetTableHeapByOID(oid)
}

func (tm *TransactionManager) releaseLocks(txn *Transaction) {
	// Snapshot every set to a slice before unlocking: Unlock* mutates the
	// transaction's own lock sets, and mutating a mapset while ranging its
	// live Iter() channel can deadlock against the iterator's internal lock.
	for oid, set := range txn.GetSharedRowLockSet() {
		for _, rid := range set.ToSlice() {
			tm.lockManager.UnlockRow(txn, oid, rid)
		}
	}
	for oid, set := range txn.GetExclusiveRowLockSet() {
		for _, rid := range set.ToSlice() {
			tm.lockManager.UnlockRow(txn, oid, rid)
		}
	}
	for _, oid := range txn.GetSharedTableLockSet().ToSlice() {
		tm.lockManager.UnlockTable(txn, oid)
	}
	for _, oid := range txn.GetExclusiveTableLockSet().ToSlice() {
		tm.lockManager.UnlockTable(txn, oid)
	}
	for _, oid := range txn.GetIntentionSharedTableLockSet().ToSlice() {
		tm.lockManager.UnlockTable(txn, oid)
	}
	for _, oid := range txn.GetIntentionExclusiveTableLockSet().ToSlice() {
		tm.lockManager.UnlockTable(txn, oid)
	}
	for _, oid := range txn.GetSharedIntentionExclusiveTableLockSet().ToSlice() {
		tm.lockManager.UnlockTable(txn, oid)
	}
}
