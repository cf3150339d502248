// Grounded in _examples/ryogrid-SamehadaDB/execution/plans/plan.go: a plan
// node is just a typed bag of parameters an executor is constructed from,
// carrying its own output schema. Planning/optimization itself stays out of
// scope; these are the leaves the execution module is handed.

package plans

import (
	"github.com/yuzudb/yuzudb/execution/expression"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/types"
)

type Plan interface {
	OutputSchema() *schema.Schema
}

// JoinType restricts NestedLoopJoin/NestedIndexJoin to the two variants
// spec.md names.
type JoinType int

const (
	Inner JoinType = iota
	Left
)

// OrderBy is one sort key for Sort/TopN: ascending unless Desc is set.
type OrderBy struct {
	ColIndex uint32
	Desc     bool
}

type SeqScanPlan struct {
	Schema    *schema.Schema
	TableOID  uint32
	Predicate expression.Expression // nil means no filter
}

func (p *SeqScanPlan) OutputSchema() *schema.Schema { return p.Schema }

type IndexScanPlan struct {
	Schema   *schema.Schema
	TableOID uint32
	ColIndex int
	SearchKey *types.Value // equality probe
}

func (p *IndexScanPlan) OutputSchema() *schema.Schema { return p.Schema }

// ValuesPlan is the literal-row source Insert drains when its input is a
// VALUES list rather than a sub-query.
type ValuesPlan struct {
	Schema *schema.Schema
	Rows   [][]types.Value
}

func (p *ValuesPlan) OutputSchema() *schema.Schema { return p.Schema }

type InsertPlan struct {
	Schema   *schema.Schema // count-of-inserted output schema
	TableOID uint32
	Child    Plan
}

func (p *InsertPlan) OutputSchema() *schema.Schema { return p.Schema }

type DeletePlan struct {
	Schema   *schema.Schema
	TableOID uint32
	Child    Plan
}

func (p *DeletePlan) OutputSchema() *schema.Schema { return p.Schema }

type NestedLoopJoinPlan struct {
	Schema    *schema.Schema
	Left      Plan
	Right     Plan
	Predicate expression.Expression
	JoinType  JoinType
}

func (p *NestedLoopJoinPlan) OutputSchema() *schema.Schema { return p.Schema }

type NestedIndexJoinPlan struct {
	Schema         *schema.Schema
	Outer          Plan
	InnerTableOID  uint32
	InnerColIndex  int
	KeyExpr        expression.Expression // evaluated against the outer tuple
	JoinType       JoinType
}

func (p *NestedIndexJoinPlan) OutputSchema() *schema.Schema { return p.Schema }

type AggregationType int

const (
	CountAggregate AggregationType = iota
	SumAggregate
	MinAggregate
	MaxAggregate
)

type AggregationPlan struct {
	Schema         *schema.Schema
	Child          Plan
	GroupBys       []expression.Expression
	Aggregates     []expression.Expression
	AggregateTypes []AggregationType
}

func (p *AggregationPlan) OutputSchema() *schema.Schema { return p.Schema }

type SortPlan struct {
	Schema   *schema.Schema
	Child    Plan
	OrderBys []OrderBy
}

func (p *SortPlan) OutputSchema() *schema.Schema { return p.Schema }

type TopNPlan struct {
	Schema   *schema.Schema
	Child    Plan
	OrderBys []OrderBy
	N        int
}

func (p *TopNPlan) OutputSchema() *schema.Schema { return p.Schema }
