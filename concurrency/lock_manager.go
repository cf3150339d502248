// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package concurrency

import (
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	pair "github.com/notEpsilon/go-pair"
	"github.com/sasha-s/go-deadlock"

	"github.com/yuzudb/yuzudb/common"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/types"
)

// LockMode is one of the five multi-granularity lock modes. Table locks may
// be any of the five; row locks are only ever LOCK_SHARED or LOCK_EXCLUSIVE.
type LockMode int32

const (
	LOCK_INTENTION_SHARED LockMode = iota
	LOCK_INTENTION_EXCLUSIVE
	LOCK_SHARED
	LOCK_SHARED_INTENTION_EXCLUSIVE
	LOCK_EXCLUSIVE
)

// compatibilityMatrix[held][requested] is true when requested can be granted
// alongside an already-granted held lock on the same resource.
var compatibilityMatrix = map[LockMode]map[LockMode]bool{
	LOCK_INTENTION_SHARED: {
		LOCK_INTENTION_SHARED: true, LOCK_INTENTION_EXCLUSIVE: true, LOCK_SHARED: true,
		LOCK_SHARED_INTENTION_EXCLUSIVE: true, LOCK_EXCLUSIVE: false,
	},
	LOCK_INTENTION_EXCLUSIVE: {
		LOCK_INTENTION_SHARED: true, LOCK_INTENTION_EXCLUSIVE: true, LOCK_SHARED: false,
		LOCK_SHARED_INTENTION_EXCLUSIVE: false, LOCK_EXCLUSIVE: false,
	},
	LOCK_SHARED: {
		LOCK_INTENTION_SHARED: true, LOCK_INTENTION_EXCLUSIVE: false, LOCK_SHARED: true,
		LOCK_SHARED_INTENTION_EXCLUSIVE: false, LOCK_EXCLUSIVE: false,
	},
	LOCK_SHARED_INTENTION_EXCLUSIVE: {
		LOCK_INTENTION_SHARED: true, LOCK_INTENTION_EXCLUSIVE: false, LOCK_SHARED: false,
		LOCK_SHARED_INTENTION_EXCLUSIVE: false, LOCK_EXCLUSIVE: false,
	},
	LOCK_EXCLUSIVE: {
		LOCK_INTENTION_SHARED: false, LOCK_INTENTION_EXCLUSIVE: false, LOCK_SHARED: false,
		LOCK_SHARED_INTENTION_EXCLUSIVE: false, LOCK_EXCLUSIVE: false,
	},
}

// validUpgradePaths[current] is the set of modes current may upgrade to.
var validUpgradePaths = map[LockMode]mapset.Set[LockMode]{
	LOCK_INTENTION_SHARED: mapset.NewSet(LOCK_SHARED, LOCK_EXCLUSIVE, LOCK_INTENTION_EXCLUSIVE, LOCK_SHARED_INTENTION_EXCLUSIVE),
	LOCK_SHARED:           mapset.NewSet(LOCK_EXCLUSIVE, LOCK_SHARED_INTENTION_EXCLUSIVE),
	LOCK_INTENTION_EXCLUSIVE: mapset.NewSet(LOCK_EXCLUSIVE, LOCK_SHARED_INTENTION_EXCLUSIVE),
	LOCK_SHARED_INTENTION_EXCLUSIVE: mapset.NewSet(LOCK_EXCLUSIVE),
}

type lockRequest struct {
	txnId    types.TxnID
	lockMode LockMode
	granted  bool
}

// lockRequestQueue is the strict FIFO of requesters for one resource (a
// table oid or a row RID). A request, upgrade or otherwise, is granted only
// once every request ahead of it in the queue is compatible with it.
type lockRequestQueue struct {
	mu        deadlock.Mutex
	cv        *sync.Cond
	requests  []*lockRequest
	upgrading types.TxnID
}

func newLockRequestQueue() *lockRequestQueue {
	q := &lockRequestQueue{upgrading: types.TxnID(common.InvalidTxnID)}
	q.cv = sync.NewCond(&q.mu)
	return q
}

// LockManager grants and tracks table and row locks for every live
// transaction, and runs a background deadlock detector over the wait-for
// graph implied by the lock request queues.
type LockManager struct {
	mu            deadlock.Mutex
	tableLockMap  map[uint32]*lockRequestQueue
	rowLockMap    map[page.RID]*lockRequestQueue
	waitsForMu    deadlock.Mutex
	waitsFor      map[types.TxnID]mapset.Set[types.TxnID]
	stopDetection chan struct{}

	// abortVictim is called by the deadlock detector to mark a transaction
	// ABORTED and wake every queue it may be waiting on. Wired by the
	// transaction manager after construction to avoid an import cycle.
	abortVictim func(types.TxnID)
}

func NewLockManager() *LockManager {
	return &LockManager{
		tableLockMap:  make(map[uint32]*lockRequestQueue),
		rowLockMap:    make(map[page.RID]*lockRequestQueue),
		waitsFor:      make(map[types.TxnID]mapset.Set[types.TxnID]),
		stopDetection: make(chan struct{}),
	}
}

func (lm *LockManager) SetAbortCallback(cb func(types.TxnID)) { lm.abortVictim = cb }

func (lm *LockManager) tableQueue(oid uint32) *lockRequestQueue {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	q, ok := lm.tableLockMap[oid]
	if !ok {
		q = newLockRequestQueue()
		lm.tableLockMap[oid] = q
	}
	return q
}

func (lm *LockManager) rowQueue(rid page.RID) *lockRequestQueue {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	q, ok := lm.rowLockMap[rid]
	if !ok {
		q = newLockRequestQueue()
		lm.rowLockMap[rid] = q
	}
	return q
}

func compatible(held LockMode, requested LockMode) bool {
	return compatibilityMatrix[held][requested]
}

// LockTable acquires a table-level lock, blocking until granted or aborted.
func (lm *LockManager) LockTable(txn *Transaction, mode LockMode, oid uint32) error {
	if txn.GetState() == SHRINKING {
		if !(mode == LOCK_INTENTION_SHARED || mode == LOCK_SHARED) || txn.GetIsolationLevel() != REPEATABLE_READ {
			txn.SetState(ABORTED)
			txn.SetAbortReason(LOCK_ON_SHRINKING)
			return NewAbortError(txn.GetTransactionId(), LOCK_ON_SHRINKING)
		}
	}
	if mode == LOCK_SHARED && txn.GetIsolationLevel() == READ_UNCOMMITTED {
		txn.SetState(ABORTED)
		txn.SetAbortReason(LOCK_SHARED_ON_READ_UNCOMMITTED)
		return NewAbortError(txn.GetTransactionId(), LOCK_SHARED_ON_READ_UNCOMMITTED)
	}

	q := lm.tableQueue(oid)
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, r := range q.requests {
		if r.txnId == txn.GetTransactionId() && r.granted {
			if r.lockMode == mode {
				return nil
			}
			if !validUpgradePaths[r.lockMode].Contains(mode) {
				txn.SetState(ABORTED)
				txn.SetAbortReason(INCOMPATIBLE_UPGRADE)
				return NewAbortError(txn.GetTransactionId(), INCOMPATIBLE_UPGRADE)
			}
			if q.upgrading != types.TxnID(common.InvalidTxnID) {
				txn.SetState(ABORTED)
				txn.SetAbortReason(UPGRADE_CONFLICT)
				return NewAbortError(txn.GetTransactionId(), UPGRADE_CONFLICT)
			}
			return lm.upgradeTableLocked(txn, q, r, mode, oid)
		}
	}

	req := &lockRequest{txnId: txn.GetTransactionId(), lockMode: mode}
	q.requests = append(q.requests, req)
	lm.waitForQueueLocked(txn, q)

	for !lm.grantable(q, req) {
		if txn.GetState() == ABORTED {
			lm.removeRequestLocked(q, req)
			q.cv.Broadcast()
			return NewAbortError(txn.GetTransactionId(), DEADLOCK)
		}
		q.cv.Wait()
	}
	req.granted = true
	txn.tableSetFor(mode).Add(oid)
	return nil
}

func (lm *LockManager) upgradeTableLocked(txn *Transaction, q *lockRequestQueue, old *lockRequest, mode LockMode, oid uint32) error {
	q.upgrading = txn.GetTransactionId()
	lm.removeRequestLocked(q, old)
	txn.tableSetFor(old.lockMode).Remove(oid)

	req := &lockRequest{txnId: txn.GetTransactionId(), lockMode: mode}
	q.requests = append(q.requests, req)

	for !lm.grantable(q, req) {
		if txn.GetState() == ABORTED {
			lm.removeRequestLocked(q, req)
			q.upgrading = types.TxnID(common.InvalidTxnID)
			q.cv.Broadcast()
			return NewAbortError(txn.GetTransactionId(), DEADLOCK)
		}
		q.cv.Wait()
	}
	req.granted = true
	q.upgrading = types.TxnID(common.InvalidTxnID)
	txn.tableSetFor(mode).Add(oid)
	return nil
}

// grantable reports whether req may be granted: every other request ahead of
// it in the queue, granted or still pending, must be compatible with it.
// Treating pending requests the same as granted ones preserves FIFO order —
// a later-arriving compatible request can never jump ahead of an earlier,
// still-waiting incompatible one. Must be called with q.mu held.
func (lm *LockManager) grantable(q *lockRequestQueue, req *lockRequest) bool {
	for _, r := range q.requests {
		if r == req {
			return true
		}
		if r.txnId != req.txnId && !compatible(r.lockMode, req.lockMode) {
			return false
		}
	}
	// req isn't in the queue at all: it was stripped out from under its own
	// waiter (deadlock victim). Never grantable; the waiter's own ABORTED
	// check is what breaks it out of the wait loop.
	return false
}

func (lm *LockManager) removeRequestLocked(q *lockRequestQueue, target *lockRequest) {
	for i, r := range q.requests {
		if r == target {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			return
		}
	}
}

// waitForQueueLocked registers wait-for edges from txn to every transaction
// currently holding an incompatible granted lock on q.
func (lm *LockManager) waitForQueueLocked(txn *Transaction, q *lockRequestQueue) {
	lm.waitsForMu.Lock()
	defer lm.waitsForMu.Unlock()
	for _, r := range q.requests {
		if r.granted && r.txnId != txn.GetTransactionId() {
			lm.addEdgeLocked(txn.GetTransactionId(), r.txnId)
		}
	}
}

// UnlockTable releases a table lock. All row locks on the table must already
// be released.
func (lm *LockManager) UnlockTable(txn *Transaction, oid uint32) error {
	q := lm.tableQueue(oid)
	q.mu.Lock()
	defer q.mu.Unlock()

	if hasRowLocksOnTable(txn, oid) {
		txn.SetState(ABORTED)
		txn.SetAbortReason(TABLE_UNLOCKED_BEFORE_UNLOCKING_ROWS)
		return NewAbortError(txn.GetTransactionId(), TABLE_UNLOCKED_BEFORE_UNLOCKING_ROWS)
	}

	var held LockMode
	found := false
	for _, r := range q.requests {
		if r.txnId == txn.GetTransactionId() && r.granted {
			held = r.lockMode
			found = true
			lm.removeRequestLocked(q, r)
			break
		}
	}
	if !found {
		txn.SetState(ABORTED)
		txn.SetAbortReason(ATTEMPTED_UNLOCK_BUT_NO_LOCK_HELD)
		return NewAbortError(txn.GetTransactionId(), ATTEMPTED_UNLOCK_BUT_NO_LOCK_HELD)
	}
	txn.tableSetFor(held).Remove(oid)
	lm.transitionOnUnlock(txn, held)
	q.cv.Broadcast()
	return nil
}

func hasRowLocksOnTable(txn *Transaction, oid uint32) bool {
	if set, ok := txn.GetSharedRowLockSet()[oid]; ok && set.Cardinality() > 0 {
		return true
	}
	if set, ok := txn.GetExclusiveRowLockSet()[oid]; ok && set.Cardinality() > 0 {
		return true
	}
	return false
}

func (lm *LockManager) transitionOnUnlock(txn *Transaction, held LockMode) {
	if txn.GetState() != GROWING {
		return
	}
	switch txn.GetIsolationLevel() {
	case REPEATABLE_READ:
		if held == LOCK_SHARED || held == LOCK_EXCLUSIVE {
			txn.SetState(SHRINKING)
		}
	case READ_COMMITTED, READ_UNCOMMITTED:
		if held == LOCK_EXCLUSIVE {
			txn.SetState(SHRINKING)
		}
	}
}

// LockRow acquires a row lock; LOCK_INTENTION_SHARED, LOCK_INTENTION_EXCLUSIVE
// and LOCK_SHARED_INTENTION_EXCLUSIVE are never valid row lock modes. The caller must already hold a table lock
// of at least intention strength matching mode.
func (lm *LockManager) LockRow(txn *Transaction, mode LockMode, oid uint32, rid page.RID) error {
	if mode == LOCK_INTENTION_SHARED || mode == LOCK_INTENTION_EXCLUSIVE || mode == LOCK_SHARED_INTENTION_EXCLUSIVE {
		txn.SetState(ABORTED)
		txn.SetAbortReason(ATTEMPTED_INTENTION_LOCK_ON_ROW)
		return NewAbortError(txn.GetTransactionId(), ATTEMPTED_INTENTION_LOCK_ON_ROW)
	}
	if !lm.holdsCompatibleTableLock(txn, mode, oid) {
		txn.SetState(ABORTED)
		txn.SetAbortReason(TABLE_LOCK_NOT_PRESENT)
		return NewAbortError(txn.GetTransactionId(), TABLE_LOCK_NOT_PRESENT)
	}

	q := lm.rowQueue(rid)
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, r := range q.requests {
		if r.txnId == txn.GetTransactionId() && r.granted {
			if r.lockMode == mode {
				return nil
			}
			if mode == LOCK_EXCLUSIVE && r.lockMode == LOCK_SHARED {
				return lm.upgradeRowLocked(txn, q, r, mode, oid, rid)
			}
		}
	}

	req := &lockRequest{txnId: txn.GetTransactionId(), lockMode: mode}
	q.requests = append(q.requests, req)
	lm.waitForQueueLocked(txn, q)
	for !lm.grantable(q, req) {
		if txn.GetState() == ABORTED {
			lm.removeRequestLocked(q, req)
			q.cv.Broadcast()
			return NewAbortError(txn.GetTransactionId(), DEADLOCK)
		}
		q.cv.Wait()
	}
	req.granted = true
	txn.rowSetFor(mode, oid).Add(rid)
	return nil
}

func (lm *LockManager) upgradeRowLocked(txn *Transaction, q *lockRequestQueue, old *lockRequest, mode LockMode, oid uint32, rid page.RID) error {
	if q.upgrading != types.TxnID(common.InvalidTxnID) && q.upgrading != txn.GetTransactionId() {
		txn.SetState(ABORTED)
		txn.SetAbortReason(UPGRADE_CONFLICT)
		return NewAbortError(txn.GetTransactionId(), UPGRADE_CONFLICT)
	}
	q.upgrading = txn.GetTransactionId()
	lm.removeRequestLocked(q, old)
	txn.rowSetFor(old.lockMode, oid).Remove(rid)

	req := &lockRequest{txnId: txn.GetTransactionId(), lockMode: mode}
	q.requests = append(q.requests, req)
	for !lm.grantable(q, req) {
		if txn.GetState() == ABORTED {
			lm.removeRequestLocked(q, req)
			q.upgrading = types.TxnID(common.InvalidTxnID)
			q.cv.Broadcast()
			return NewAbortError(txn.GetTransactionId(), DEADLOCK)
		}
		q.cv.Wait()
	}
	req.granted = true
	q.upgrading = types.TxnID(common.InvalidTxnID)
	txn.rowSetFor(mode, oid).Add(rid)
	return nil
}

func (lm *LockManager) holdsCompatibleTableLock(txn *Transaction, rowMode LockMode, oid uint32) bool {
	if rowMode == LOCK_EXCLUSIVE {
		return txn.IsTableLockHeld(oid, LOCK_EXCLUSIVE) || txn.IsTableLockHeld(oid, LOCK_INTENTION_EXCLUSIVE) ||
			txn.IsTableLockHeld(oid, LOCK_SHARED_INTENTION_EXCLUSIVE)
	}
	return txn.IsTableLockHeld(oid, LOCK_SHARED) || txn.IsTableLockHeld(oid, LOCK_INTENTION_SHARED) ||
		txn.IsTableLockHeld(oid, LOCK_EXCLUSIVE) || txn.IsTableLockHeld(oid, LOCK_INTENTION_EXCLUSIVE) ||
		txn.IsTableLockHeld(oid, LOCK_SHARED_INTENTION_EXCLUSIVE)
}

func (lm *LockManager) UnlockRow(txn *Transaction, oid uint32, rid page.RID) error {
	q := lm.rowQueue(rid)
	q.mu.Lock()
	defer q.mu.Unlock()

	var held LockMode
	found := false
	for _, r := range q.requests {
		if r.txnId == txn.GetTransactionId() && r.granted {
			held = r.lockMode
			found = true
			lm.removeRequestLocked(q, r)
			break
		}
	}
	if !found {
		txn.SetState(ABORTED)
		txn.SetAbortReason(ATTEMPTED_UNLOCK_BUT_NO_LOCK_HELD)
		return NewAbortError(txn.GetTransactionId(), ATTEMPTED_UNLOCK_BUT_NO_LOCK_HELD)
	}
	txn.rowSetFor(held, oid).Remove(rid)
	lm.transitionOnUnlock(txn, held)
	q.cv.Broadcast()
	return nil
}

/*** Wait-for graph ***/

func (lm *LockManager) addEdgeLocked(from types.TxnID, to types.TxnID) {
	set, ok := lm.waitsFor[from]
	if !ok {
		set = mapset.NewSet[types.TxnID]()
		lm.waitsFor[from] = set
	}
	set.Add(to)
}

func (lm *LockManager) AddEdge(from types.TxnID, to types.TxnID) {
	lm.waitsForMu.Lock()
	defer lm.waitsForMu.Unlock()
	lm.addEdgeLocked(from, to)
}

func (lm *LockManager) RemoveEdge(from types.TxnID, to types.TxnID) {
	lm.waitsForMu.Lock()
	defer lm.waitsForMu.Unlock()
	if set, ok := lm.waitsFor[from]; ok {
		set.Remove(to)
	}
}

// HasCycle does a DFS over the wait-for graph, visiting out-edges in
// ascending txn id order so the result is deterministic. On a cycle, it
// returns the youngest (numerically largest) transaction id on the cycle as
// the deadlock victim.
func (lm *LockManager) HasCycle() (types.TxnID, bool) {
	lm.waitsForMu.Lock()
	defer lm.waitsForMu.Unlock()

	visited := mapset.NewSet[types.TxnID]()
	onStack := mapset.NewSet[types.TxnID]()
	var youngestInCycle types.TxnID
	foundCycle := false

	nodes := make([]types.TxnID, 0, len(lm.waitsFor))
	for n := range lm.waitsFor {
		nodes = append(nodes, n)
	}
	sortTxnIDs(nodes)

	var dfs func(node types.TxnID, path []types.TxnID)
	dfs = func(node types.TxnID, path []types.TxnID) {
		if foundCycle {
			return
		}
		visited.Add(node)
		onStack.Add(node)
		path = append(path, node)

		neighbors := make([]types.TxnID, 0)
		if set, ok := lm.waitsFor[node]; ok {
			for n := range set.Iter() {
				neighbors = append(neighbors, n)
			}
		}
		sortTxnIDs(neighbors)

		for _, next := range neighbors {
			if foundCycle {
				return
			}
			if onStack.Contains(next) {
				foundCycle = true
				youngestInCycle = next
				inCycle := false
				for _, id := range path {
					if id == next {
						inCycle = true
					}
					if inCycle && id > youngestInCycle {
						youngestInCycle = id
					}
				}
				return
			}
			if !visited.Contains(next) {
				dfs(next, path)
			}
		}
		onStack.Remove(node)
	}

	for _, n := range nodes {
		if foundCycle {
			break
		}
		if !visited.Contains(n) {
			dfs(n, make([]types.TxnID, 0, len(nodes)))
		}
	}
	return youngestInCycle, foundCycle
}

func sortTxnIDs(ids []types.TxnID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// GetEdgeList returns every wait-for edge, for tests.
func (lm *LockManager) GetEdgeList() []pair.Pair[types.TxnID, types.TxnID] {
	lm.waitsForMu.Lock()
	defer lm.waitsForMu.Unlock()
	edges := make([]pair.Pair[types.TxnID, types.TxnID], 0)
	for from, set := range lm.waitsFor {
		for to := range set.Iter() {
			edges = append(edges, *pair.New(from, to))
		}
	}
	return edges
}

// RemoveAllRequestsForTxn strips every lock request belonging to txnId from
// every table and row queue it appears in, granted or still waiting, and
// wakes each queue it touched so blocked waiters re-check their predicate.
// Used to fully unwind a deadlock victim's footprint in the lock table.
func (lm *LockManager) RemoveAllRequestsForTxn(txnId types.TxnID) {
	lm.mu.Lock()
	queues := make([]*lockRequestQueue, 0, len(lm.tableLockMap)+len(lm.rowLockMap))
	for _, q := range lm.tableLockMap {
		queues = append(queues, q)
	}
	for _, q := range lm.rowLockMap {
		queues = append(queues, q)
	}
	lm.mu.Unlock()

	for _, q := range queues {
		q.mu.Lock()
		touched := false
		remaining := q.requests[:0]
		for _, r := range q.requests {
			if r.txnId == txnId {
				touched = true
				continue
			}
			remaining = append(remaining, r)
		}
		q.requests = remaining
		if q.upgrading == txnId {
			q.upgrading = types.TxnID(common.InvalidTxnID)
		}
		if touched {
			q.cv.Broadcast()
		}
		q.mu.Unlock()
	}

	lm.waitsForMu.Lock()
	delete(lm.waitsFor, txnId)
	for _, edges := range lm.waitsFor {
		edges.Remove(txnId)
	}
	lm.waitsForMu.Unlock()
}

// RunCycleDetection polls the wait-for graph at common.CycleDetectionInterval
// and aborts the youngest transaction in any cycle it finds.
func (lm *LockManager) RunCycleDetection() {
	ticker := time.NewTicker(common.CycleDetectionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-lm.stopDetection:
			return
		case <-ticker.C:
			if victim, ok := lm.HasCycle(); ok {
				common.DumpGoroutineStack(common.WARN, "deadlock detected, aborting txn")
				// Flip state before stripping queue entries: a waiter woken by
				// the broadcast below must see ABORTED immediately, since
				// nothing broadcasts its queue again afterward.
				if lm.abortVictim != nil {
					lm.abortVictim(victim)
				}
				lm.RemoveAllRequestsForTxn(victim)
			}
		}
	}
}

func (lm *LockManager) StopCycleDetection() {
	close(lm.stopDetection)
}
