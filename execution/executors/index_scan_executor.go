// Grounded in
// _examples/ryogrid-SamehadaDB/execution/executors/point_scan_with_index_executor.go
// and range_scan_with_index_executor.go: a point probe when the plan carries
// a search key, otherwise a full ascending walk of the index, fetching each
// tuple from the table heap by the RID the index yields.

package executors

import (
	"github.com/yuzudb/yuzudb/catalog"
	"github.com/yuzudb/yuzudb/execution"
	"github.com/yuzudb/yuzudb/execution/plans"
	"github.com/yuzudb/yuzudb/storage/index/btree"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
)

type IndexScanExecutor struct {
	ctx       *execution.ExecutorContext
	plan      *plans.IndexScanPlan
	tableMeta *catalog.TableMetadata
	iter      *btree.Iterator
	pointRid  *page.RID
	pointDone bool
}

func NewIndexScanExecutor(ctx *execution.ExecutorContext, plan *plans.IndexScanPlan) *IndexScanExecutor {
	return &IndexScanExecutor{ctx: ctx, plan: plan}
}

func (e *IndexScanExecutor) OutputSchema() *schema.Schema { return e.plan.Schema }

func (e *IndexScanExecutor) Init() error {
	e.tableMeta = e.ctx.GetCatalog().GetTableByOID(e.plan.TableOID)
	idx := e.tableMeta.GetIndex(e.plan.ColIndex)

	if e.plan.SearchKey != nil {
		e.pointRid, _ = idx.GetValue(*e.plan.SearchKey)
		e.pointDone = false
		return nil
	}
	e.iter = idx.Begin()
	return nil
}

func (e *IndexScanExecutor) Next(tup *tuple.Tuple, rid *page.RID) (bool, error) {
	txn := e.ctx.GetTransaction()

	if e.plan.SearchKey != nil {
		if e.pointDone || e.pointRid == nil {
			return false, nil
		}
		e.pointDone = true
		cur := e.tableMeta.Table().GetTuple(e.pointRid, txn)
		if cur == nil {
			return false, e.ctx.CheckAborted()
		}
		*tup = *cur
		*rid = *e.pointRid
		return true, nil
	}

	for !e.iter.End() {
		_, r := e.iter.Current()
		e.iter.Next()
		cur := e.tableMeta.Table().GetTuple(r, txn)
		if cur == nil {
			if err := e.ctx.CheckAborted(); err != nil {
				return false, err
			}
			continue
		}
		*tup = *cur
		*rid = *r
		return true, nil
	}
	return false, nil
}
