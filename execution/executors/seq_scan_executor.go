// Grounded in
// _examples/ryogrid-SamehadaDB/execution/executors/seq_scan_executor.go: a
// thin wrapper around the table heap's iterator with an optional predicate,
// extended with the isolation-dependent table locking spec.md requires.

package executors

import (
	"github.com/yuzudb/yuzudb/catalog"
	"github.com/yuzudb/yuzudb/concurrency"
	"github.com/yuzudb/yuzudb/execution"
	"github.com/yuzudb/yuzudb/execution/plans"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/storage/table"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
)

type SeqScanExecutor struct {
	ctx       *execution.ExecutorContext
	plan      *plans.SeqScanPlan
	tableMeta *catalog.TableMetadata
	it        *table.TableHeapIterator
	eof       bool
	ownsLock  bool
}

func NewSeqScanExecutor(ctx *execution.ExecutorContext, plan *plans.SeqScanPlan) *SeqScanExecutor {
	return &SeqScanExecutor{ctx: ctx, plan: plan}
}

func (e *SeqScanExecutor) OutputSchema() *schema.Schema { return e.plan.Schema }

func (e *SeqScanExecutor) Init() error {
	e.tableMeta = e.ctx.GetCatalog().GetTableByOID(e.plan.TableOID)
	txn := e.ctx.GetTransaction()
	held := false
	for _, m := range []concurrency.LockMode{concurrency.LOCK_INTENTION_SHARED, concurrency.LOCK_INTENTION_EXCLUSIVE,
		concurrency.LOCK_SHARED, concurrency.LOCK_SHARED_INTENTION_EXCLUSIVE, concurrency.LOCK_EXCLUSIVE} {
		held = held || txn.IsTableLockHeld(e.plan.TableOID, m)
	}
	e.ownsLock = false
	if txn.GetIsolationLevel() != concurrency.READ_UNCOMMITTED && !held {
		if err := e.ctx.GetLockManager().LockTable(txn, concurrency.LOCK_INTENTION_SHARED, e.plan.TableOID); err != nil {
			return err
		}
		e.ownsLock = true
	}
	e.it = e.tableMeta.Table().Iterator(txn)
	e.eof = false
	return nil
}

func (e *SeqScanExecutor) Next(tup *tuple.Tuple, rid *page.RID) (bool, error) {
	for !e.it.End() {
		cur := e.it.Current()
		if e.plan.Predicate == nil || e.plan.Predicate.Evaluate(cur, e.tableMeta.Schema()).ToBoolean() {
			*tup = *cur
			*rid = *cur.GetRID()
			e.it.Next()
			return true, nil
		}
		e.it.Next()
	}
	return false, e.releaseOnExhaustion()
}

func (e *SeqScanExecutor) releaseOnExhaustion() error {
	if e.eof {
		return nil
	}
	e.eof = true
	txn := e.ctx.GetTransaction()
	if e.ownsLock && txn.GetIsolationLevel() == concurrency.READ_COMMITTED {
		return e.ctx.GetLockManager().UnlockTable(txn, e.plan.TableOID)
	}
	return nil
}
