package executors

import (
	"testing"

	"github.com/yuzudb/yuzudb/catalog"
	"github.com/yuzudb/yuzudb/concurrency"
	"github.com/yuzudb/yuzudb/execution"
	"github.com/yuzudb/yuzudb/execution/expression"
	"github.com/yuzudb/yuzudb/execution/plans"
	"github.com/yuzudb/yuzudb/recovery"
	"github.com/yuzudb/yuzudb/storage/buffer"
	"github.com/yuzudb/yuzudb/storage/disk"
	"github.com/yuzudb/yuzudb/storage/page"
	"github.com/yuzudb/yuzudb/storage/table/column"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
	"github.com/yuzudb/yuzudb/types"
)

type testEnv struct {
	ctx     *execution.ExecutorContext
	catalog *catalog.Catalog
	txn     *concurrency.Transaction
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dm := disk.NewDiskManagerTest()
	t.Cleanup(func() { dm.ShutDown() })

	logManager := recovery.NewLogManager(dm)
	bpm := buffer.NewBufferPoolManager(64, 2, dm, logManager)
	lockManager := concurrency.NewLockManager()
	txnManager := concurrency.NewTransactionManager(lockManager, logManager)
	txn := txnManager.Begin(concurrency.READ_COMMITTED)

	cat := catalog.BootstrapCatalog(bpm, logManager, lockManager, txn)
	ctx := execution.NewExecutorContext(txn, lockManager, cat, bpm)
	return &testEnv{ctx: ctx, catalog: cat, txn: txn}
}

func widgetsSchema() *schema.Schema {
	return schema.NewSchema([]*column.Column{
		column.NewColumn("id", types.Integer, true),
		column.NewColumn("qty", types.Integer, false),
	})
}

func drain(t *testing.T, exec execution.Executor) []*tuple.Tuple {
	t.Helper()
	if err := exec.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var rows []*tuple.Tuple
	var tup tuple.Tuple
	var rid page.RID
	for {
		ok, err := exec.Next(&tup, &rid)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		row := tup
		rows = append(rows, &row)
	}
	return rows
}

func insertWidgets(t *testing.T, env *testEnv, oid uint32, rows [][]types.Value) {
	t.Helper()
	schema_ := widgetsSchema()
	valuesPlan := &plans.ValuesPlan{Schema: schema_, Rows: rows}
	insertPlan := &plans.InsertPlan{Schema: execution.CountSchema(), TableOID: oid, Child: valuesPlan}
	out := drain(t, Build(env.ctx, insertPlan))
	if len(out) != 1 {
		t.Fatalf("insert should emit exactly one count row, got %d", len(out))
	}
	if got := out[0].GetValue(execution.CountSchema(), 0).ToInteger(); int(got) != len(rows) {
		t.Fatalf("insert count = %d, want %d", got, len(rows))
	}
}

func TestSeqScanWithPredicate(t *testing.T) {
	env := newTestEnv(t)
	meta := env.catalog.CreateTable("widgets", widgetsSchema(), env.txn)
	insertWidgets(t, env, meta.OID(), [][]types.Value{
		{types.NewInteger(1), types.NewInteger(3)},
		{types.NewInteger(2), types.NewInteger(9)},
		{types.NewInteger(3), types.NewInteger(7)},
	})

	predicate := expression.NewComparison(
		expression.NewColumnValue(0, 1), expression.NewConstant(types.NewInteger(5)), expression.GreaterThan)
	plan := &plans.SeqScanPlan{Schema: widgetsSchema(), TableOID: meta.OID(), Predicate: predicate}
	rows := drain(t, Build(env.ctx, plan))
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows with qty > 5, got %d", len(rows))
	}
}

func TestIndexScanPointLookup(t *testing.T) {
	env := newTestEnv(t)
	meta := env.catalog.CreateTable("widgets", widgetsSchema(), env.txn)
	insertWidgets(t, env, meta.OID(), [][]types.Value{
		{types.NewInteger(1), types.NewInteger(3)},
		{types.NewInteger(2), types.NewInteger(9)},
	})

	key := types.NewInteger(2)
	plan := &plans.IndexScanPlan{Schema: widgetsSchema(), TableOID: meta.OID(), ColIndex: 0, SearchKey: &key}
	rows := drain(t, Build(env.ctx, plan))
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row for point lookup, got %d", len(rows))
	}
	if got := rows[0].GetValue(widgetsSchema(), 1).ToInteger(); got != 9 {
		t.Fatalf("got qty %d, want 9", got)
	}
}

func TestDeleteRemovesFromTableAndIndex(t *testing.T) {
	env := newTestEnv(t)
	meta := env.catalog.CreateTable("widgets", widgetsSchema(), env.txn)
	insertWidgets(t, env, meta.OID(), [][]types.Value{
		{types.NewInteger(1), types.NewInteger(3)},
		{types.NewInteger(2), types.NewInteger(9)},
	})

	scanPlan := &plans.SeqScanPlan{Schema: widgetsSchema(), TableOID: meta.OID(),
		Predicate: expression.NewComparison(expression.NewColumnValue(0, 0), expression.NewConstant(types.NewInteger(1)), expression.Equal)}
	deletePlan := &plans.DeletePlan{Schema: execution.CountSchema(), TableOID: meta.OID(), Child: scanPlan}
	out := drain(t, Build(env.ctx, deletePlan))
	if got := out[0].GetValue(execution.CountSchema(), 0).ToInteger(); got != 1 {
		t.Fatalf("delete count = %d, want 1", got)
	}

	key := types.NewInteger(1)
	lookupPlan := &plans.IndexScanPlan{Schema: widgetsSchema(), TableOID: meta.OID(), ColIndex: 0, SearchKey: &key}
	if rows := drain(t, Build(env.ctx, lookupPlan)); len(rows) != 0 {
		t.Fatalf("expected deleted key to be gone from the index, found %d rows", len(rows))
	}
}

func TestNestedLoopJoinLeftOuter(t *testing.T) {
	env := newTestEnv(t)
	leftSchema := widgetsSchema()
	rightSchema := widgetsSchema()
	leftMeta := env.catalog.CreateTable("left_t", leftSchema, env.txn)
	rightMeta := env.catalog.CreateTable("right_t", rightSchema, env.txn)
	insertWidgets(t, env, leftMeta.OID(), [][]types.Value{
		{types.NewInteger(1), types.NewInteger(10)},
		{types.NewInteger(2), types.NewInteger(20)},
	})
	insertWidgets(t, env, rightMeta.OID(), [][]types.Value{
		{types.NewInteger(1), types.NewInteger(100)},
	})

	outSchema := schema.NewSchema([]*column.Column{
		column.NewColumn("l_id", types.Integer, false),
		column.NewColumn("l_qty", types.Integer, false),
		column.NewColumn("r_id", types.Integer, false),
		column.NewColumn("r_qty", types.Integer, false),
	})
	predicate := expression.NewComparison(expression.NewColumnValue(0, 0), expression.NewColumnValue(1, 0), expression.Equal)
	joinPlan := &plans.NestedLoopJoinPlan{
		Schema:    outSchema,
		Left:      &plans.SeqScanPlan{Schema: leftSchema, TableOID: leftMeta.OID()},
		Right:     &plans.SeqScanPlan{Schema: rightSchema, TableOID: rightMeta.OID()},
		Predicate: predicate,
		JoinType:  plans.Left,
	}
	rows := drain(t, Build(env.ctx, joinPlan))
	if len(rows) != 2 {
		t.Fatalf("expected 2 joined rows (one matched, one NULL-padded), got %d", len(rows))
	}
	unmatchedFound := false
	for _, r := range rows {
		if r.GetValue(outSchema, 0).ToInteger() == 2 {
			if !r.GetValue(outSchema, 2).IsNull() {
				t.Fatalf("expected unmatched left row to carry NULL right side")
			}
			unmatchedFound = true
		}
	}
	if !unmatchedFound {
		t.Fatalf("expected to find the unmatched left row id=2")
	}
}

func TestAggregationCountAndSum(t *testing.T) {
	env := newTestEnv(t)
	meta := env.catalog.CreateTable("widgets", widgetsSchema(), env.txn)
	insertWidgets(t, env, meta.OID(), [][]types.Value{
		{types.NewInteger(1), types.NewInteger(3)},
		{types.NewInteger(2), types.NewInteger(9)},
		{types.NewInteger(3), types.NewInteger(7)},
	})

	outSchema := schema.NewSchema([]*column.Column{
		column.NewColumn("count", types.Integer, false),
		column.NewColumn("sum", types.Integer, false),
	})
	aggPlan := &plans.AggregationPlan{
		Schema:         outSchema,
		Child:          &plans.SeqScanPlan{Schema: widgetsSchema(), TableOID: meta.OID()},
		GroupBys:       nil,
		Aggregates:     []expression.Expression{expression.NewColumnValue(0, 1), expression.NewColumnValue(0, 1)},
		AggregateTypes: []plans.AggregationType{plans.CountAggregate, plans.SumAggregate},
	}
	rows := drain(t, Build(env.ctx, aggPlan))
	if len(rows) != 1 {
		t.Fatalf("expected one aggregate row with no group-by, got %d", len(rows))
	}
	if got := rows[0].GetValue(outSchema, 0).ToInteger(); got != 3 {
		t.Fatalf("count = %d, want 3", got)
	}
	if got := rows[0].GetValue(outSchema, 1).ToInteger(); got != 19 {
		t.Fatalf("sum = %d, want 19", got)
	}
}

func TestAggregationEmptyInputEmitsInitialRow(t *testing.T) {
	env := newTestEnv(t)
	meta := env.catalog.CreateTable("widgets", widgetsSchema(), env.txn)

	outSchema := schema.NewSchema([]*column.Column{
		column.NewColumn("count", types.Integer, false),
		column.NewColumn("sum", types.Integer, false),
	})
	aggPlan := &plans.AggregationPlan{
		Schema:         outSchema,
		Child:          &plans.SeqScanPlan{Schema: widgetsSchema(), TableOID: meta.OID()},
		Aggregates:     []expression.Expression{expression.NewColumnValue(0, 1), expression.NewColumnValue(0, 1)},
		AggregateTypes: []plans.AggregationType{plans.CountAggregate, plans.SumAggregate},
	}
	rows := drain(t, Build(env.ctx, aggPlan))
	if len(rows) != 1 {
		t.Fatalf("expected exactly one initial-value row, got %d", len(rows))
	}
	if got := rows[0].GetValue(outSchema, 0).ToInteger(); got != 0 {
		t.Fatalf("count over empty input = %d, want 0", got)
	}
	if !rows[0].GetValue(outSchema, 1).IsNull() {
		t.Fatalf("sum over empty input should be NULL")
	}
}

func TestSortAndTopN(t *testing.T) {
	env := newTestEnv(t)
	meta := env.catalog.CreateTable("widgets", widgetsSchema(), env.txn)
	insertWidgets(t, env, meta.OID(), [][]types.Value{
		{types.NewInteger(1), types.NewInteger(3)},
		{types.NewInteger(2), types.NewInteger(9)},
		{types.NewInteger(3), types.NewInteger(7)},
		{types.NewInteger(4), types.NewInteger(1)},
	})

	sortPlan := &plans.SortPlan{
		Schema:   widgetsSchema(),
		Child:    &plans.SeqScanPlan{Schema: widgetsSchema(), TableOID: meta.OID()},
		OrderBys: []plans.OrderBy{{ColIndex: 1, Desc: true}},
	}
	sorted := drain(t, Build(env.ctx, sortPlan))
	want := []int32{9, 7, 3, 1}
	for i, r := range sorted {
		if got := r.GetValue(widgetsSchema(), 1).ToInteger(); got != want[i] {
			t.Fatalf("sorted[%d] qty = %d, want %d", i, got, want[i])
		}
	}

	topPlan := &plans.TopNPlan{
		Schema:   widgetsSchema(),
		Child:    &plans.SeqScanPlan{Schema: widgetsSchema(), TableOID: meta.OID()},
		OrderBys: []plans.OrderBy{{ColIndex: 1, Desc: true}},
		N:        2,
	}
	top := drain(t, Build(env.ctx, topPlan))
	if len(top) != 2 {
		t.Fatalf("expected top-2, got %d rows", len(top))
	}
	if got := top[0].GetValue(widgetsSchema(), 1).ToInteger(); got != 9 {
		t.Fatalf("top[0] qty = %d, want 9", got)
	}
	if got := top[1].GetValue(widgetsSchema(), 1).ToInteger(); got != 7 {
		t.Fatalf("top[1] qty = %d, want 7", got)
	}
}
