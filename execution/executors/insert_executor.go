// Grounded in _examples/ryogrid-SamehadaDB/execution/executors/insert_executor.go:
// drain the child, insert into the table heap, then into every index on an
// indexed column.

package executors

import (
	"github.com/yuzudb/yuzudb/catalog"
	"github.com/yuzudb/yuzudb/concurrency"
	"github.com/yuzudb/yuzudb/execution"
	"github.com/yuzudb/yuzudb/execution/plans"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
	"github.com/yuzudb/yuzudb/types"
)

type InsertExecutor struct {
	ctx       *execution.ExecutorContext
	plan      *plans.InsertPlan
	child     execution.Executor
	tableMeta *catalog.TableMetadata
	done      bool
}

func NewInsertExecutor(ctx *execution.ExecutorContext, plan *plans.InsertPlan, child execution.Executor) *InsertExecutor {
	return &InsertExecutor{ctx: ctx, plan: plan, child: child}
}

func (e *InsertExecutor) OutputSchema() *schema.Schema { return e.plan.Schema }

func (e *InsertExecutor) Init() error {
	e.tableMeta = e.ctx.GetCatalog().GetTableByOID(e.plan.TableOID)
	if err := e.ctx.GetLockManager().LockTable(e.ctx.GetTransaction(), concurrency.LOCK_INTENTION_EXCLUSIVE, e.plan.TableOID); err != nil {
		return err
	}
	if err := e.child.Init(); err != nil {
		return err
	}
	e.done = false
	return nil
}

func (e *InsertExecutor) Next(tup *tuple.Tuple, rid *page.RID) (bool, error) {
	if e.done {
		return false, nil
	}
	e.done = true

	var childTup tuple.Tuple
	var childRid page.RID
	count := int32(0)
	txn := e.ctx.GetTransaction()
	schema_ := e.tableMeta.Schema()

	for {
		ok, err := e.child.Next(&childTup, &childRid)
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}

		insertedRid, err := e.tableMeta.Table().InsertTuple(&childTup, txn)
		if err != nil {
			return false, err
		}
		for colIdx, idx := range e.tableMeta.Indexes() {
			if idx == nil {
				continue
			}
			idx.Insert(childTup.GetValue(schema_, uint32(colIdx)), insertedRid)
		}
		count++
	}

	*tup = *tuple.NewTupleFromSchema([]types.Value{types.NewInteger(count)}, e.plan.Schema)
	*rid = page.RID{}
	return true, nil
}
