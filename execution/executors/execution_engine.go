// Grounded in _examples/ryogrid-SamehadaDB/execution/executors/execution_engine.go:
// the same plan-type switch building one executor per node, generalized to
// recurse into every plan's children and to cover the full nine-variant set.

package executors

import (
	"github.com/yuzudb/yuzudb/execution"
	"github.com/yuzudb/yuzudb/execution/plans"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/storage/tuple"
)

// Build constructs the executor tree for plan, recursively building any
// child plans first.
func Build(ctx *execution.ExecutorContext, plan plans.Plan) execution.Executor {
	switch p := plan.(type) {
	case *plans.SeqScanPlan:
		return NewSeqScanExecutor(ctx, p)
	case *plans.IndexScanPlan:
		return NewIndexScanExecutor(ctx, p)
	case *plans.ValuesPlan:
		return NewValuesExecutor(ctx, p)
	case *plans.InsertPlan:
		return NewInsertExecutor(ctx, p, Build(ctx, p.Child))
	case *plans.DeletePlan:
		return NewDeleteExecutor(ctx, p, Build(ctx, p.Child))
	case *plans.NestedLoopJoinPlan:
		return NewNestedLoopJoinExecutor(ctx, p, Build(ctx, p.Left), Build(ctx, p.Right))
	case *plans.NestedIndexJoinPlan:
		return NewNestedIndexJoinExecutor(ctx, p, Build(ctx, p.Outer))
	case *plans.AggregationPlan:
		return NewAggregationExecutor(ctx, p, Build(ctx, p.Child))
	case *plans.SortPlan:
		return NewSortExecutor(ctx, p, Build(ctx, p.Child))
	case *plans.TopNPlan:
		return NewTopNExecutor(ctx, p, Build(ctx, p.Child))
	}
	panic("executors.Build: unhandled plan type")
}

// ExecutionEngine drives a plan to completion, collecting every row it
// produces. Callers that want to pull one row at a time should call Build
// directly instead.
type ExecutionEngine struct{}

// Execute stops and returns an error the moment either the executor tree
// itself reports one or the transaction it runs under moves to ABORTED —
// strict two-phase locking's abort/rollback contract means a partially
// executed statement must never be reported as having fully succeeded, so a
// caller must never see a non-error, partial row set once a lock request
// aborted the transaction underneath it.
func (e *ExecutionEngine) Execute(ctx *execution.ExecutorContext, plan plans.Plan) ([]*tuple.Tuple, error) {
	exec := Build(ctx, plan)
	if err := exec.Init(); err != nil {
		return nil, err
	}
	if err := ctx.CheckAborted(); err != nil {
		return nil, err
	}

	rows := make([]*tuple.Tuple, 0)
	var tup tuple.Tuple
	var rid page.RID
	for {
		ok, err := exec.Next(&tup, &rid)
		if err != nil {
			return nil, err
		}
		if err := ctx.CheckAborted(); err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		row := tup
		rows = append(rows, &row)
	}
	return rows, nil
}
