package executors

import (
	"github.com/yuzudb/yuzudb/execution"
	"github.com/yuzudb/yuzudb/execution/plans"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
)

// ValuesExecutor produces one tuple per literal row in its plan, in order.
// It is the child Insert drains for a plain VALUES list.
type ValuesExecutor struct {
	ctx  *execution.ExecutorContext
	plan *plans.ValuesPlan
	pos  int
}

func NewValuesExecutor(ctx *execution.ExecutorContext, plan *plans.ValuesPlan) *ValuesExecutor {
	return &ValuesExecutor{ctx: ctx, plan: plan}
}

func (e *ValuesExecutor) OutputSchema() *schema.Schema { return e.plan.Schema }

func (e *ValuesExecutor) Init() error { e.pos = 0; return nil }

func (e *ValuesExecutor) Next(tup *tuple.Tuple, rid *page.RID) (bool, error) {
	if e.pos >= len(e.plan.Rows) {
		return false, nil
	}
	*tup = *tuple.NewTupleFromSchema(e.plan.Rows[e.pos], e.plan.Schema)
	*rid = page.RID{}
	e.pos++
	return true, nil
}
