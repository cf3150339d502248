// Grounded in
// _examples/ryogrid-SamehadaDB/execution/executors/aggregation_executor.go:
// same AggregateKey/AggregateValue/initial-value shape, rehomed onto a
// bucketed hash table keyed by container/hash.HashValue instead of the
// teacher's bespoke hash map, with one correction: spec.md requires SUM/MIN/
// MAX to start NULL (not sentinel int extremes) so an empty group reports
// NULL rather than a bogus zero/extreme.

package executors

import (
	"github.com/yuzudb/yuzudb/container/hash"
	"github.com/yuzudb/yuzudb/execution"
	"github.com/yuzudb/yuzudb/execution/plans"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
	"github.com/yuzudb/yuzudb/types"
)

type aggregateGroup struct {
	groupBys   []types.Value
	aggregates []types.Value
}

type AggregationExecutor struct {
	ctx     *execution.ExecutorContext
	plan    *plans.AggregationPlan
	child   execution.Executor
	buckets map[uint32][]*aggregateGroup
	order   []*aggregateGroup
	pos     int
}

func NewAggregationExecutor(ctx *execution.ExecutorContext, plan *plans.AggregationPlan, child execution.Executor) *AggregationExecutor {
	return &AggregationExecutor{ctx: ctx, plan: plan, child: child}
}

func (e *AggregationExecutor) OutputSchema() *schema.Schema { return e.plan.Schema }

func (e *AggregationExecutor) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}
	e.buckets = make(map[uint32][]*aggregateGroup)
	e.order = nil

	childSchema := e.child.OutputSchema()
	var tup tuple.Tuple
	var rid page.RID
	for {
		ok, err := e.child.Next(&tup, &rid)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		groupBys := make([]types.Value, len(e.plan.GroupBys))
		for i, expr := range e.plan.GroupBys {
			groupBys[i] = expr.Evaluate(&tup, childSchema)
		}
		group := e.findOrCreate(groupBys)
		for i, expr := range e.plan.Aggregates {
			val := expr.Evaluate(&tup, childSchema)
			group.aggregates[i] = combineAggregate(e.plan.AggregateTypes[i], group.aggregates[i], val)
		}
	}

	if len(e.order) == 0 && len(e.plan.GroupBys) == 0 {
		e.order = append(e.order, &aggregateGroup{aggregates: initialAggregateValues(e.plan.AggregateTypes)})
	}
	e.pos = 0
	return nil
}

func (e *AggregationExecutor) findOrCreate(groupBys []types.Value) *aggregateGroup {
	h := hashGroupBys(groupBys)
	for _, g := range e.buckets[h] {
		if groupBysEqual(g.groupBys, groupBys) {
			return g
		}
	}
	g := &aggregateGroup{groupBys: groupBys, aggregates: initialAggregateValues(e.plan.AggregateTypes)}
	e.buckets[h] = append(e.buckets[h], g)
	e.order = append(e.order, g)
	return g
}

func hashGroupBys(groupBys []types.Value) uint32 {
	h := uint32(0)
	for _, v := range groupBys {
		v := v
		h = hash.CombineHashes(h, hash.HashValue(&v))
	}
	return h
}

func groupBysEqual(a, b []types.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].CompareEquals(b[i]) {
			return false
		}
	}
	return true
}

func initialAggregateValues(types_ []plans.AggregationType) []types.Value {
	values := make([]types.Value, len(types_))
	for i, t := range types_ {
		switch t {
		case plans.CountAggregate:
			values[i] = types.NewInteger(0)
		default:
			v := types.NewInteger(0)
			v.SetNull()
			values[i] = v
		}
	}
	return values
}

func combineAggregate(aggType plans.AggregationType, acc types.Value, val types.Value) types.Value {
	switch aggType {
	case plans.CountAggregate:
		if val.IsNull() {
			return acc
		}
		return types.NewInteger(acc.ToInteger() + 1)
	case plans.SumAggregate:
		if val.IsNull() {
			return acc
		}
		if acc.IsNull() {
			return val
		}
		return *acc.Add(&val)
	case plans.MinAggregate:
		if val.IsNull() {
			return acc
		}
		if acc.IsNull() {
			return val
		}
		return *acc.Min(&val)
	case plans.MaxAggregate:
		if val.IsNull() {
			return acc
		}
		if acc.IsNull() {
			return val
		}
		return *acc.Max(&val)
	}
	return acc
}

func (e *AggregationExecutor) Next(tup *tuple.Tuple, rid *page.RID) (bool, error) {
	if e.pos >= len(e.order) {
		return false, nil
	}
	g := e.order[e.pos]
	e.pos++
	values := make([]types.Value, 0, len(g.groupBys)+len(g.aggregates))
	values = append(values, g.groupBys...)
	values = append(values, g.aggregates...)
	*tup = *tuple.NewTupleFromSchema(values, e.plan.Schema)
	*rid = page.RID{}
	return true, nil
}
