package executors

import (
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
	"github.com/yuzudb/yuzudb/types"
)

// combineTuples concatenates left's and right's column values, in that
// order, into a tuple shaped by outSchema.
func combineTuples(left *tuple.Tuple, leftSchema *schema.Schema, right *tuple.Tuple, rightSchema *schema.Schema, outSchema *schema.Schema) tuple.Tuple {
	leftN := leftSchema.GetColumnCount()
	rightN := rightSchema.GetColumnCount()
	values := make([]types.Value, leftN+rightN)
	for i := uint32(0); i < leftN; i++ {
		values[i] = left.GetValue(leftSchema, i)
	}
	for i := uint32(0); i < rightN; i++ {
		values[leftN+i] = right.GetValue(rightSchema, i)
	}
	return *tuple.NewTupleFromSchema(values, outSchema)
}

// nullTuple builds a tuple of the given schema's shape with every column
// NULL, for LEFT join rows with no match on the other side.
func nullTuple(schema_ *schema.Schema) *tuple.Tuple {
	n := schema_.GetColumnCount()
	values := make([]types.Value, n)
	for i := uint32(0); i < n; i++ {
		values[i] = nullValue(schema_.GetColumn(i).GetType())
	}
	return tuple.NewTupleFromSchema(values, schema_)
}

func nullValue(t types.TypeID) types.Value {
	var v types.Value
	switch t {
	case types.Boolean:
		v = types.NewBoolean(false)
	case types.Varchar:
		v = types.NewVarchar("")
	case types.Float:
		v = types.NewFloat(0)
	default:
		v = types.NewInteger(0)
	}
	v.SetNull()
	return v
}
