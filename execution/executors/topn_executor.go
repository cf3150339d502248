// Grounded in _examples/ryogrid-SamehadaDB/execution/executors/orderby_executor.go's
// materialize-then-order shape, adapted to a bounded max-heap of size N so
// the executor never holds more than N rows at once, same as the teacher's
// LIMIT handling in execution_engine.go but generalized to an arbitrary
// ordering. No third-party priority-queue library appears in the example
// pack, so this is built on the standard library's container/heap.

package executors

import (
	"container/heap"
	"sort"

	"github.com/yuzudb/yuzudb/execution"
	"github.com/yuzudb/yuzudb/execution/plans"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
)

// topNHeap is a max-heap by the *inverted* comparator: its root is the
// current worst of the best-N-seen-so-far, so it is the one evicted when a
// better row arrives.
type topNHeap struct {
	rows     []tuple.Tuple
	schema   *schema.Schema
	orderBys []plans.OrderBy
}

func (h *topNHeap) Len() int { return len(h.rows) }
func (h *topNHeap) Less(i, j int) bool {
	return lessByOrderBys(&h.rows[j], &h.rows[i], h.schema, h.orderBys)
}
func (h *topNHeap) Swap(i, j int) { h.rows[i], h.rows[j] = h.rows[j], h.rows[i] }
func (h *topNHeap) Push(x any)    { h.rows = append(h.rows, x.(tuple.Tuple)) }
func (h *topNHeap) Pop() any {
	old := h.rows
	n := len(old)
	item := old[n-1]
	h.rows = old[:n-1]
	return item
}

type TopNExecutor struct {
	ctx   *execution.ExecutorContext
	plan  *plans.TopNPlan
	child execution.Executor
	rows  []tuple.Tuple
	pos   int
}

func NewTopNExecutor(ctx *execution.ExecutorContext, plan *plans.TopNPlan, child execution.Executor) *TopNExecutor {
	return &TopNExecutor{ctx: ctx, plan: plan, child: child}
}

func (e *TopNExecutor) OutputSchema() *schema.Schema { return e.plan.Schema }

func (e *TopNExecutor) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}
	h := &topNHeap{schema: e.plan.Schema, orderBys: e.plan.OrderBys}

	var t tuple.Tuple
	var r page.RID
	for {
		ok, err := e.child.Next(&t, &r)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if h.Len() < e.plan.N {
			heap.Push(h, t)
			continue
		}
		if h.Len() > 0 && lessByOrderBys(&t, &h.rows[0], e.plan.Schema, e.plan.OrderBys) {
			h.rows[0] = t
			heap.Fix(h, 0)
		}
	}

	e.rows = h.rows
	sort.SliceStable(e.rows, func(i, j int) bool {
		return lessByOrderBys(&e.rows[i], &e.rows[j], e.plan.Schema, e.plan.OrderBys)
	})
	e.pos = 0
	return nil
}

func (e *TopNExecutor) Next(tup *tuple.Tuple, rid *page.RID) (bool, error) {
	if e.pos >= len(e.rows) {
		return false, nil
	}
	*tup = e.rows[e.pos]
	*rid = page.RID{}
	e.pos++
	return true, nil
}
