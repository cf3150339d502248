// Grounded in
// _examples/ryogrid-SamehadaDB/execution/executors/executor_context.go: same
// bundle-of-dependencies shape, extended with the transaction and lock
// manager every executor needs to acquire locks under its isolation level.

package execution

import (
	"github.com/yuzudb/yuzudb/catalog"
	"github.com/yuzudb/yuzudb/concurrency"
	"github.com/yuzudb/yuzudb/storage/buffer"
)

// ExecutorContext bundles everything an executor needs to run: the
// requesting transaction, the lock manager it acquires locks through, the
// catalog it resolves table/index metadata from, and the buffer pool.
type ExecutorContext struct {
	txn         *concurrency.Transaction
	lockManager *concurrency.LockManager
	catalog     *catalog.Catalog
	bpm         *buffer.BufferPoolManager
}

func NewExecutorContext(txn *concurrency.Transaction, lockManager *concurrency.LockManager, catalog_ *catalog.Catalog, bpm *buffer.BufferPoolManager) *ExecutorContext {
	return &ExecutorContext{txn: txn, lockManager: lockManager, catalog: catalog_, bpm: bpm}
}

func (e *ExecutorContext) GetTransaction() *concurrency.Transaction        { return e.txn }
func (e *ExecutorContext) GetLockManager() *concurrency.LockManager        { return e.lockManager }
func (e *ExecutorContext) GetCatalog() *catalog.Catalog                    { return e.catalog }
func (e *ExecutorContext) GetBufferPoolManager() *buffer.BufferPoolManager { return e.bpm }

// CheckAborted reports the transaction's abort as a typed error once some
// lock request has moved it into the ABORTED state, so a caller that got a
// zero-value "not found" back from a storage method (MarkDelete's bool,
// GetTuple's nil) can tell that apart from a lock failure that silently
// killed the transaction underneath it.
func (e *ExecutorContext) CheckAborted() error {
	if e.txn.GetState() != concurrency.ABORTED {
		return nil
	}
	return concurrency.NewAbortError(e.txn.GetTransactionId(), e.txn.GetAbortReason())
}
