// Grounded in
// _examples/ryogrid-SamehadaDB/execution/expression/{abstract_expression,column_value,comparison,constant_value}.go:
// the same Evaluate/EvaluateJoin split, trimmed to the operators this module's
// executors actually call (predicates for joins, group-by/aggregate column
// references).

package expression

import (
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
	"github.com/yuzudb/yuzudb/types"
)

// Expression is evaluated against a single tuple, or against a pair of
// tuples on either side of a join.
type Expression interface {
	Evaluate(tuple_ *tuple.Tuple, schema_ *schema.Schema) types.Value
	EvaluateJoin(left *tuple.Tuple, leftSchema *schema.Schema, right *tuple.Tuple, rightSchema *schema.Schema) types.Value
}

// ColumnValue reads one column out of a tuple. tupleIndex picks which side of
// a join to read from when evaluated via EvaluateJoin: 0 is left, 1 is right.
type ColumnValue struct {
	tupleIndex uint32
	colIndex   uint32
}

func NewColumnValue(tupleIndex, colIndex uint32) *ColumnValue {
	return &ColumnValue{tupleIndex: tupleIndex, colIndex: colIndex}
}

func (c *ColumnValue) ColIndex() uint32 { return c.colIndex }

func (c *ColumnValue) Evaluate(tuple_ *tuple.Tuple, schema_ *schema.Schema) types.Value {
	return tuple_.GetValue(schema_, c.colIndex)
}

func (c *ColumnValue) EvaluateJoin(left *tuple.Tuple, leftSchema *schema.Schema, right *tuple.Tuple, rightSchema *schema.Schema) types.Value {
	if c.tupleIndex == 0 {
		return left.GetValue(leftSchema, c.colIndex)
	}
	return right.GetValue(rightSchema, c.colIndex)
}

// Constant always evaluates to the same value, regardless of tuple.
type Constant struct {
	value types.Value
}

func NewConstant(value types.Value) *Constant { return &Constant{value: value} }

func (c *Constant) Evaluate(*tuple.Tuple, *schema.Schema) types.Value { return c.value }
func (c *Constant) EvaluateJoin(*tuple.Tuple, *schema.Schema, *tuple.Tuple, *schema.Schema) types.Value {
	return c.value
}

type ComparisonType int

const (
	Equal ComparisonType = iota
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
)

// Comparison wraps two child expressions and evaluates to a boolean Value.
type Comparison struct {
	left, right Expression
	op          ComparisonType
}

func NewComparison(left, right Expression, op ComparisonType) *Comparison {
	return &Comparison{left: left, right: right, op: op}
}

func (c *Comparison) Evaluate(tuple_ *tuple.Tuple, schema_ *schema.Schema) types.Value {
	lhs := c.left.Evaluate(tuple_, schema_)
	rhs := c.right.Evaluate(tuple_, schema_)
	return types.NewBoolean(c.apply(lhs, rhs))
}

func (c *Comparison) EvaluateJoin(left *tuple.Tuple, leftSchema *schema.Schema, right *tuple.Tuple, rightSchema *schema.Schema) types.Value {
	lhs := c.left.EvaluateJoin(left, leftSchema, right, rightSchema)
	rhs := c.right.EvaluateJoin(left, leftSchema, right, rightSchema)
	return types.NewBoolean(c.apply(lhs, rhs))
}

func (c *Comparison) apply(lhs, rhs types.Value) bool {
	switch c.op {
	case Equal:
		return lhs.CompareEquals(rhs)
	case NotEqual:
		return lhs.CompareNotEquals(rhs)
	case LessThan:
		return lhs.CompareLessThan(rhs)
	case LessThanOrEqual:
		return lhs.CompareLessThanOrEqual(rhs)
	case GreaterThan:
		return lhs.CompareGreaterThan(rhs)
	case GreaterThanOrEqual:
		return lhs.CompareGreaterThanOrEqual(rhs)
	}
	return false
}
