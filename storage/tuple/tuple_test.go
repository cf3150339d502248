// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package tuple

import (
	"testing"

	"github.com/yuzudb/yuzudb/storage/table/column"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/types"
)

func TestTuple(t *testing.T) {
	columnA := column.NewColumn("a", types.Integer, false)
	columnB := column.NewColumn("b", types.Varchar, false)
	columnC := column.NewColumn("c", types.Integer, false)
	columnD := column.NewColumn("d", types.Varchar, false)
	columnE := column.NewColumn("e", types.Varchar, false)

	sch := schema.NewSchema([]*column.Column{columnA, columnB, columnC, columnD, columnE})

	expA, expB, expC, expD, expE := int32(99), "Hello World", int32(100), "áé&@#+\\çç", "blablablablabalbalalabalbalbalablablabalbalaba"
	row := []types.Value{
		types.NewInteger(expA),
		types.NewVarchar(expB),
		types.NewInteger(expC),
		types.NewVarchar(expD),
		types.NewVarchar(expE),
	}
	tup := NewTupleFromSchema(row, sch)

	if got := tup.GetValue(sch, 0).ToInteger(); got != expA {
		t.Errorf("column a: got %d, want %d", got, expA)
	}
	if got := tup.GetValue(sch, 1).ToVarchar(); got != expB {
		t.Errorf("column b: got %q, want %q", got, expB)
	}
	if got := tup.GetValue(sch, 2).ToInteger(); got != expC {
		t.Errorf("column c: got %d, want %d", got, expC)
	}
	if got := tup.GetValue(sch, 3).ToVarchar(); got != expD {
		t.Errorf("column d: got %q, want %q", got, expD)
	}
	if got := tup.GetValue(sch, 4).ToVarchar(); got != expE {
		t.Errorf("column e: got %q, want %q", got, expE)
	}
}

func TestTupleDeepCopy(t *testing.T) {
	columnA := column.NewColumn("a", types.Integer, false)
	sch := schema.NewSchema([]*column.Column{columnA})

	tup := NewTupleFromSchema([]types.Value{types.NewInteger(7)}, sch)
	cp := tup.GetDeepCopy()

	if got := cp.GetValue(sch, 0).ToInteger(); got != 7 {
		t.Errorf("deep copy: got %d, want 7", got)
	}

	tup.Copy(0, []byte{0xff, 0xff, 0xff, 0xff, 0xff})
	if got := cp.GetValue(sch, 0).ToInteger(); got != 7 {
		t.Errorf("deep copy should not alias the original's backing array, got %d", got)
	}
}
