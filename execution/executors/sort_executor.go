// Grounded in _examples/ryogrid-SamehadaDB/execution/executors/orderby_executor.go:
// materialize the child fully, then sort in place. No priority-queue library
// appears anywhere in the example pack, so this reaches for the standard
// library's sort.SliceStable rather than inventing or importing one.

package executors

import (
	"sort"

	"github.com/yuzudb/yuzudb/execution"
	"github.com/yuzudb/yuzudb/execution/plans"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
)

type SortExecutor struct {
	ctx   *execution.ExecutorContext
	plan  *plans.SortPlan
	child execution.Executor
	rows  []tuple.Tuple
	pos   int
}

func NewSortExecutor(ctx *execution.ExecutorContext, plan *plans.SortPlan, child execution.Executor) *SortExecutor {
	return &SortExecutor{ctx: ctx, plan: plan, child: child}
}

func (e *SortExecutor) OutputSchema() *schema.Schema { return e.plan.Schema }

func (e *SortExecutor) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}
	e.rows = e.rows[:0]
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
		e.rows = append(e.rows, t)
	}
	sort.SliceStable(e.rows, func(i, j int) bool {
		return lessByOrderBys(&e.rows[i], &e.rows[j], e.plan.Schema, e.plan.OrderBys)
	})
	e.pos = 0
	return nil
}

func (e *SortExecutor) Next(tup *tuple.Tuple, rid *page.RID) (bool, error) {
	if e.pos >= len(e.rows) {
		return false, nil
	}
	*tup = e.rows[e.pos]
	*rid = page.RID{}
	e.pos++
	return true, nil
}

// lessByOrderBys orders lexicographically across keys: the first key that
// differs between a and b decides, later keys only break ties.
func lessByOrderBys(a, b *tuple.Tuple, schema_ *schema.Schema, orderBys []plans.OrderBy) bool {
	for _, ob := range orderBys {
		av := a.GetValue(schema_, ob.ColIndex)
		bv := b.GetValue(schema_, ob.ColIndex)
		if av.CompareEquals(bv) {
			continue
		}
		if ob.Desc {
			return av.CompareGreaterThan(bv)
		}
		return av.CompareLessThan(bv)
	}
	return false
}
