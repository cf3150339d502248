// Grounded in
// _examples/ryogrid-SamehadaDB/execution/executors/nested_loop_join_executor.go:
// materialize the right side once, then scan it fully per left row. Only
// INNER and LEFT are supported, matching plans.JoinType's two variants.

package executors

import (
	"github.com/yuzudb/yuzudb/execution"
	"github.com/yuzudb/yuzudb/execution/plans"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
)

type NestedLoopJoinExecutor struct {
	ctx   *execution.ExecutorContext
	plan  *plans.NestedLoopJoinPlan
	left  execution.Executor
	right execution.Executor

	rightRows []tuple.Tuple

	leftTup     tuple.Tuple
	leftValid   bool
	leftMatched bool
	rightPos    int
}

func NewNestedLoopJoinExecutor(ctx *execution.ExecutorContext, plan *plans.NestedLoopJoinPlan, left, right execution.Executor) *NestedLoopJoinExecutor {
	return &NestedLoopJoinExecutor{ctx: ctx, plan: plan, left: left, right: right}
}

func (e *NestedLoopJoinExecutor) OutputSchema() *schema.Schema { return e.plan.Schema }

func (e *NestedLoopJoinExecutor) Init() error {
	if err := e.left.Init(); err != nil {
		return err
	}
	if err := e.right.Init(); err != nil {
		return err
	}

	e.rightRows = e.rightRows[:0]
	var t tuple.Tuple
	var r page.RID
	for {
		ok, err := e.right.Next(&t, &r)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		e.rightRows = append(e.rightRows, t)
	}

	var leftRid page.RID
	leftValid, err := e.left.Next(&e.leftTup, &leftRid)
	if err != nil {
		return err
	}
	e.leftValid = leftValid
	e.rightPos = 0
	e.leftMatched = false
	return nil
}

func (e *NestedLoopJoinExecutor) Next(tup *tuple.Tuple, rid *page.RID) (bool, error) {
	leftSchema := e.left.OutputSchema()
	rightSchema := e.right.OutputSchema()

	for e.leftValid {
		for e.rightPos < len(e.rightRows) {
			rightTup := e.rightRows[e.rightPos]
			e.rightPos++
			if e.plan.Predicate != nil && !e.plan.Predicate.EvaluateJoin(&e.leftTup, leftSchema, &rightTup, rightSchema).ToBoolean() {
				continue
			}
			e.leftMatched = true
			*tup = combineTuples(&e.leftTup, leftSchema, &rightTup, rightSchema, e.plan.Schema)
			*rid = page.RID{}
			return true, nil
		}

		prevLeft := e.leftTup
		wasMatched := e.leftMatched
		var leftRid page.RID
		leftValid, err := e.left.Next(&e.leftTup, &leftRid)
		if err != nil {
			return false, err
		}
		e.leftValid = leftValid
		e.rightPos = 0
		e.leftMatched = false

		if e.plan.JoinType == plans.Left && !wasMatched {
			*tup = combineTuples(&prevLeft, leftSchema, nullTuple(rightSchema), rightSchema, e.plan.Schema)
			*rid = page.RID{}
			return true, nil
		}
	}
	return false, nil
}
