// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package concurrency

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/yuzudb/yuzudb/common"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/types"
)

/**
 * Transaction states:
 *
 *     _________________________
 *    |                         v
 * GROWING -> SHRINKING -> COMMITTED   ABORTED
 *    |__________|________________________^
 *
 **/
type TransactionState int32

const (
	GROWING TransactionState = iota
	SHRINKING
	COMMITTED
	ABORTED
)

// IsolationLevel governs which lock acquisitions the lock manager allows.
type IsolationLevel int32

const (
	READ_UNCOMMITTED IsolationLevel = iota
	READ_COMMITTED
	REPEATABLE_READ
)

// AbortReason is the typed reason a transaction's ABORTED state carries, so
// the executor can surface a meaningful error to the caller.
type AbortReason int32

const (
	LOCK_ON_SHRINKING AbortReason = iota
	UPGRADE_CONFLICT
	INCOMPATIBLE_UPGRADE
	LOCK_SHARED_ON_READ_UNCOMMITTED
	ATTEMPTED_UNLOCK_BUT_NO_LOCK_HELD
	TABLE_UNLOCKED_BEFORE_UNLOCKING_ROWS
	ATTEMPTED_INTENTION_LOCK_ON_ROW
	TABLE_LOCK_NOT_PRESENT
	DEADLOCK
)

func (r AbortReason) String() string {
	switch r {
	case LOCK_ON_SHRINKING:
		return "LOCK_ON_SHRINKING"
	case UPGRADE_CONFLICT:
		return "UPGRADE_CONFLICT"
	case INCOMPATIBLE_UPGRADE:
		return "INCOMPATIBLE_UPGRADE"
	case LOCK_SHARED_ON_READ_UNCOMMITTED:
		return "LOCK_SHARED_ON_READ_UNCOMMITTED"
	case ATTEMPTED_UNLOCK_BUT_NO_LOCK_HELD:
		return "ATTEMPTED_UNLOCK_BUT_NO_LOCK_HELD"
	case TABLE_UNLOCKED_BEFORE_UNLOCKING_ROWS:
		return "TABLE_UNLOCKED_BEFORE_UNLOCKING_ROWS"
	case ATTEMPTED_INTENTION_LOCK_ON_ROW:
		return "ATTEMPTED_INTENTION_LOCK_ON_ROW"
	case TABLE_LOCK_NOT_PRESENT:
		return "TABLE_LOCK_NOT_PRESENT"
	case DEADLOCK:
		return "DEADLOCK"
	default:
		return "UNKNOWN_ABORT_REASON"
	}
}

// AbortError is the typed exception the lock manager raises when a lock
// request cannot be granted and the transaction must abort.
type AbortError struct {
	TxnId  types.TxnID
	Reason AbortReason
}

func (e *AbortError) Error() string {
	return "transaction aborted: " + e.Reason.String()
}

func NewAbortError(txnId types.TxnID, reason AbortReason) *AbortError {
	return &AbortError{TxnId: txnId, Reason: reason}
}

type WType int32

const (
	INSERT WType = iota
	DELETE
	UPDATE
)

// WriteRecord tracks one write a transaction made, enough to undo it on abort.
type WriteRecord struct {
	Rid      page.RID
	Wtype    WType
	OldTuple []byte
	TableOid uint32
}

/**
 * Transaction tracks everything the lock manager and the transaction manager
 * need to enforce strict two-phase locking and roll back an aborted
 * transaction's writes: its lock sets, write set, state and isolation level.
 */
type Transaction struct {
	mu sync.Mutex

	txnId          types.TxnID
	state          TransactionState
	isolationLevel IsolationLevel
	prevLsn        types.LSN
	abortReason    AbortReason

	writeSet []*WriteRecord

	sharedTableLockSet    mapset.Set[uint32]
	exclusiveTableLockSet mapset.Set[uint32]
	isTableLockSet        mapset.Set[uint32]
	ixTableLockSet        mapset.Set[uint32]
	sixTableLockSet       mapset.Set[uint32]

	sharedRowLockSet    map[uint32]mapset.Set[page.RID]
	exclusiveRowLockSet map[uint32]mapset.Set[page.RID]
}

func NewTransaction(txnId types.TxnID, isolationLevel IsolationLevel) *Transaction {
	return &Transaction{
		txnId:                 txnId,
		state:                 GROWING,
		isolationLevel:        isolationLevel,
		prevLsn:               types.LSN(common.InvalidLSN),
		sharedTableLockSet:    mapset.NewSet[uint32](),
		exclusiveTableLockSet: mapset.NewSet[uint32](),
		isTableLockSet:        mapset.NewSet[uint32](),
		ixTableLockSet:        mapset.NewSet[uint32](),
		sixTableLockSet:       mapset.NewSet[uint32](),
		sharedRowLockSet:      make(map[uint32]mapset.Set[page.RID]),
		exclusiveRowLockSet:   make(map[uint32]mapset.Set[page.RID]),
	}
}

func (txn *Transaction) GetTransactionId() types.TxnID    { return txn.txnId }
func (txn *Transaction) GetIsolationLevel() IsolationLevel { return txn.isolationLevel }

func (txn *Transaction) GetState() TransactionState { return txn.state }
func (txn *Transaction) SetState(state TransactionState) {
	if common.EnableDebug && state == ABORTED {
		common.ShPrintf(common.RDB_OP_FUNC_CALL, "Transaction::SetState called. txn_id:%d state:ABORTED\n", txn.txnId)
	}
	txn.state = state
}

func (txn *Transaction) GetAbortReason() AbortReason   { return txn.abortReason }
func (txn *Transaction) SetAbortReason(r AbortReason)  { txn.abortReason = r }

func (txn *Transaction) GetPrevLSN() types.LSN      { return txn.prevLsn }
func (txn *Transaction) SetPrevLSN(lsn types.LSN)   { txn.prevLsn = lsn }

func (txn *Transaction) GetWriteSet() []*WriteRecord { return txn.writeSet }
func (txn *Transaction) AddIntoWriteSet(wr *WriteRecord) {
	txn.writeSet = append(txn.writeSet, wr)
}

func (txn *Transaction) GetSharedTableLockSet() mapset.Set[uint32]    { return txn.sharedTableLockSet }
func (txn *Transaction) GetExclusiveTableLockSet() mapset.Set[uint32] { return txn.exclusiveTableLockSet }
func (txn *Transaction) GetIntentionSharedTableLockSet() mapset.Set[uint32] {
	return txn.isTableLockSet
}
func (txn *Transaction) GetIntentionExclusiveTableLockSet() mapset.Set[uint32] {
	return txn.ixTableLockSet
}
func (txn *Transaction) GetSharedIntentionExclusiveTableLockSet() mapset.Set[uint32] {
	return txn.sixTableLockSet
}

func (txn *Transaction) tableSetFor(mode LockMode) mapset.Set[uint32] {
	switch mode {
	case LOCK_SHARED:
		return txn.sharedTableLockSet
	case LOCK_EXCLUSIVE:
		return txn.exclusiveTableLockSet
	case LOCK_INTENTION_SHARED:
		return txn.isTableLockSet
	case LOCK_INTENTION_EXCLUSIVE:
		return txn.ixTableLockSet
	case LOCK_SHARED_INTENTION_EXCLUSIVE:
		return txn.sixTableLockSet
	default:
		panic("tableSetFor: unknown lock mode")
	}
}

func (txn *Transaction) IsTableLockHeld(oid uint32, mode LockMode) bool {
	return txn.tableSetFor(mode).Contains(oid)
}

func (txn *Transaction) rowSetFor(mode LockMode, oid uint32) mapset.Set[page.RID] {
	var table map[uint32]mapset.Set[page.RID]
	switch mode {
	case LOCK_SHARED:
		table = txn.sharedRowLockSet
	case LOCK_EXCLUSIVE:
		table = txn.exclusiveRowLockSet
	default:
		panic("rowSetFor: row locks are only ever shared or exclusive")
	}
	set, ok := table[oid]
	if !ok {
		set = mapset.NewSet[page.RID]()
		table[oid] = set
	}
	return set
}

func (txn *Transaction) IsRowLockHeld(oid uint32, rid page.RID, mode LockMode) bool {
	var table map[uint32]mapset.Set[page.RID]
	switch mode {
	case LOCK_SHARED:
		table = txn.sharedRowLockSet
	case LOCK_EXCLUSIVE:
		table = txn.exclusiveRowLockSet
	default:
		return false
	}
	set, ok := table[oid]
	return ok && set.Contains(rid)
}

func (txn *Transaction) GetSharedRowLockSet() map[uint32]mapset.Set[page.RID]    { return txn.sharedRowLockSet }
func (txn *Transaction) GetExclusiveRowLockSet() map[uint32]mapset.Set[page.RID] { return txn.exclusiveRowLockSet }

// Lock and Unlock take and release the transaction's own mutex.
// TransactionManager.abortByDeadlock holds it while setting the ABORTED
// state and reason; the lock manager does not take it.
func (txn *Transaction) Lock()   { txn.mu.Lock() }
func (txn *Transaction) Unlock() { txn.mu.Unlock() }
