// Grounded in _examples/ryogrid-SamehadaDB/execution/executors/hash_scan_index_executor.go's
// probe-the-inner-index-per-outer-row shape, adapted from a hash index probe
// to a B+-tree GetValue probe. The tree rejects duplicate keys, so a probe
// yields at most one inner row.

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

type NestedIndexJoinExecutor struct {
	ctx       *execution.ExecutorContext
	plan      *plans.NestedIndexJoinPlan
	outer     execution.Executor
	innerMeta *catalog.TableMetadata
	idx       *btree.BPlusTree
}

func NewNestedIndexJoinExecutor(ctx *execution.ExecutorContext, plan *plans.NestedIndexJoinPlan, outer execution.Executor) *NestedIndexJoinExecutor {
	return &NestedIndexJoinExecutor{ctx: ctx, plan: plan, outer: outer}
}

func (e *NestedIndexJoinExecutor) OutputSchema() *schema.Schema { return e.plan.Schema }

func (e *NestedIndexJoinExecutor) Init() error {
	if err := e.outer.Init(); err != nil {
		return err
	}
	e.innerMeta = e.ctx.GetCatalog().GetTableByOID(e.plan.InnerTableOID)
	e.idx = e.innerMeta.GetIndex(e.plan.InnerColIndex)
	return nil
}

func (e *NestedIndexJoinExecutor) Next(tup *tuple.Tuple, rid *page.RID) (bool, error) {
	outerSchema := e.outer.OutputSchema()
	innerSchema := e.innerMeta.Schema()
	txn := e.ctx.GetTransaction()

	var outerTup tuple.Tuple
	var outerRid page.RID
	for {
		ok, err := e.outer.Next(&outerTup, &outerRid)
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}

		key := e.plan.KeyExpr.Evaluate(&outerTup, outerSchema)
		if innerRid, found := e.idx.GetValue(key); found {
			innerTup := e.innerMeta.Table().GetTuple(innerRid, txn)
			if innerTup == nil {
				if err := e.ctx.CheckAborted(); err != nil {
					return false, err
				}
			} else {
				*tup = combineTuples(&outerTup, outerSchema, innerTup, innerSchema, e.plan.Schema)
				*rid = page.RID{}
				return true, nil
			}
		}
		if e.plan.JoinType == plans.Left {
			*tup = combineTuples(&outerTup, outerSchema, nullTuple(innerSchema), innerSchema, e.plan.Schema)
			*rid = page.RID{}
			return true, nil
		}
	}
	return false, nil
}
