// Grounded in _examples/ryogrid-SamehadaDB/execution/executors/executor.go:
// same Init-then-Next pull contract, adapted to the out-parameter Next
// signature and output_schema() accessor this module's executors share.

package execution

import (
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
)

// Executor is the pull-based interface every query operator implements.
// Init must be called once before the first Next. Next writes the next
// produced tuple and its RID into the out parameters and returns true; it
// returns false once exhausted, and must keep returning false afterward.
//
// Either call can fail: a lock request issued during Init or Next may abort
// the executor's transaction (an incompatible granted lock, a deadlock
// victim, a SHRINKING-phase violation), in which case it returns a non-nil
// error and the executor must not be driven further. The same holds for any
// underlying storage failure.
type Executor interface {
	Init() error
	Next(tup *tuple.Tuple, rid *page.RID) (bool, error)
	OutputSchema() *schema.Schema
}
