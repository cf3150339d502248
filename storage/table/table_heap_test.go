package table

import (
	"testing"

	"github.com/yuzudb/yuzudb/concurrency"
	"github.com/yuzudb/yuzudb/recovery"
	"github.com/yuzudb/yuzudb/storage/buffer"
	"github.com/yuzudb/yuzudb/storage/disk"
	"github.com/yuzudb/yuzudb/storage/table/column"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
	"github.com/yuzudb/yuzudb/types"
)

func newTestHeap(t *testing.T) (*TableHeap, *concurrency.Transaction, *schema.Schema) {
	t.Helper()
	dm := disk.NewDiskManagerTest()
	t.Cleanup(func() { dm.ShutDown() })

	logManager := recovery.NewLogManager(dm)
	bpm := buffer.NewBufferPoolManager(10, 2, dm, logManager)
	lockManager := concurrency.NewLockManager()
	txnManager := concurrency.NewTransactionManager(lockManager, logManager)
	txn := txnManager.Begin(concurrency.REPEATABLE_READ)

	heap := NewTableHeap(bpm, logManager, lockManager, txn, 0)
	columnA := column.NewColumn("a", types.Integer, false)
	columnB := column.NewColumn("b", types.Integer, false)
	schema_ := schema.NewSchema([]*column.Column{columnA, columnB})
	return heap, txn, schema_
}

func TestTableHeapInsertAndScan(t *testing.T) {
	heap, txn, schema_ := newTestHeap(t)

	const rows = 500
	for i := 0; i < rows; i++ {
		values := []types.Value{types.NewInteger(int32(i)), types.NewInteger(int32(i * 2))}
		tup := tuple.NewTupleFromSchema(values, schema_)
		if _, err := heap.InsertTuple(tup, txn); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	it := heap.Iterator(txn)
	count := 0
	for !it.End() {
		got := it.Current().GetValue(schema_, 0).ToInteger()
		if got != int32(count) {
			t.Fatalf("row %d: expected a=%d, got %d", count, count, got)
		}
		count++
		it.Next()
	}
	if count != rows {
		t.Fatalf("expected %d rows, scanned %d", rows, count)
	}
}

func TestTableHeapMarkDeleteSkippedByIterator(t *testing.T) {
	heap, txn, schema_ := newTestHeap(t)

	values := []types.Value{types.NewInteger(1), types.NewInteger(2)}
	tup1 := tuple.NewTupleFromSchema(values, schema_)
	rid1, err := heap.InsertTuple(tup1, txn)
	if err != nil {
		t.Fatalf("insert 1: %v", err)
	}

	values2 := []types.Value{types.NewInteger(3), types.NewInteger(4)}
	tup2 := tuple.NewTupleFromSchema(values2, schema_)
	if _, err := heap.InsertTuple(tup2, txn); err != nil {
		t.Fatalf("insert 2: %v", err)
	}

	if !heap.MarkDelete(rid1, txn) {
		t.Fatalf("MarkDelete failed")
	}

	it := heap.Iterator(txn)
	if it.End() {
		t.Fatalf("expected one live tuple after delete")
	}
	if got := it.Current().GetValue(schema_, 0).ToInteger(); got != 3 {
		t.Fatalf("expected the surviving row (a=3), got %d", got)
	}
	if it.Next() != nil {
		t.Fatalf("expected iteration to end after the one live tuple")
	}
}
