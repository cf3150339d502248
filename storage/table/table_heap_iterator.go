// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package table

import (
	"github.com/yuzudb/yuzudb/concurrency"
	"github.com/yuzudb/yuzudb/storage/tuple"
)

// TableHeapIterator walks a table heap's page chain in RID order, skipping
// tombstoned slots, starting from its first live tuple.
type TableHeapIterator struct {
	tableHeap *TableHeap
	tuple     *tuple.Tuple
	txn       *concurrency.Transaction
}

func NewTableHeapIterator(tableHeap *TableHeap, txn *concurrency.Transaction) *TableHeapIterator {
	return &TableHeapIterator{tableHeap: tableHeap, tuple: tableHeap.GetFirstTuple(txn), txn: txn}
}

func (it *TableHeapIterator) Current() *tuple.Tuple { return it.tuple }
func (it *TableHeapIterator) End() bool             { return it.tuple == nil }

// Next advances to the next live tuple, which may be on the same page or
// require following the page chain forward. Returns nil once the chain is
// exhausted.
func (it *TableHeapIterator) Next() *tuple.Tuple {
	bpm := it.tableHeap.bpm
	currentPage := CastPageAsTablePage(bpm.FetchPage(it.tuple.GetRID().GetPageId()))
	currentPage.RLatch()

	nextRID := currentPage.GetNextTupleRID(it.tuple.GetRID(), false)
	if nextRID == nil {
		for currentPage.GetNextPageId().IsValid() {
			nextPage := CastPageAsTablePage(bpm.FetchPage(currentPage.GetNextPageId()))
			bpm.UnpinPage(currentPage.GetTablePageId(), false)
			nextPage.RLatch()
			currentPage.RUnlatch()
			currentPage = nextPage
			nextRID = currentPage.GetNextTupleRID(it.tuple.GetRID(), true)
			if nextRID != nil {
				break
			}
		}
	}

	if nextRID != nil {
		it.tuple = currentPage.GetTuple(nextRID)
	} else {
		it.tuple = nil
	}

	bpm.UnpinPage(currentPage.GetTablePageId(), false)
	currentPage.RUnlatch()
	return it.tuple
}
