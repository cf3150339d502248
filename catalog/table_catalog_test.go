package catalog

import (
	"testing"

	"github.com/yuzudb/yuzudb/concurrency"
	"github.com/yuzudb/yuzudb/recovery"
	"github.com/yuzudb/yuzudb/storage/buffer"
	"github.com/yuzudb/yuzudb/storage/disk"
	"github.com/yuzudb/yuzudb/storage/table/column"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/types"
)

func newTestCatalog(t *testing.T) (*Catalog, *concurrency.Transaction, *buffer.BufferPoolManager, *recovery.LogManager, *concurrency.LockManager) {
	t.Helper()
	dm := disk.NewDiskManagerTest()
	t.Cleanup(func() { dm.ShutDown() })

	logManager := recovery.NewLogManager(dm)
	bpm := buffer.NewBufferPoolManager(32, 2, dm, logManager)
	lockManager := concurrency.NewLockManager()
	txnManager := concurrency.NewTransactionManager(lockManager, logManager)
	txn := txnManager.Begin(concurrency.REPEATABLE_READ)

	c := BootstrapCatalog(bpm, logManager, lockManager, txn)
	return c, txn, bpm, logManager, lockManager
}

func TestCreateTableAndLookup(t *testing.T) {
	c, txn, _, _, _ := newTestCatalog(t)

	columnA := column.NewColumn("a", types.Integer, false)
	columnB := column.NewColumn("b", types.Varchar, true)
	schema_ := schema.NewSchema([]*column.Column{columnA, columnB})

	created := c.CreateTable("widgets", schema_, txn)
	if created.OID() < 2 {
		t.Fatalf("expected user table oid >= 2 (0/1 reserved for system catalogs), got %d", created.OID())
	}

	byName := c.GetTableByName("widgets")
	if byName == nil || byName.OID() != created.OID() {
		t.Fatalf("GetTableByName did not return the created table")
	}

	byOID := c.GetTableByOID(created.OID())
	if byOID == nil || byOID.Name() != "widgets" {
		t.Fatalf("GetTableByOID did not return the created table")
	}

	if c.GetTableByName("missing") != nil {
		t.Fatalf("expected nil for a table that was never created")
	}
}

func TestGetTableHeapByOID(t *testing.T) {
	c, txn, _, _, _ := newTestCatalog(t)

	columnA := column.NewColumn("a", types.Integer, false)
	schema_ := schema.NewSchema([]*column.Column{columnA})
	created := c.CreateTable("gadgets", schema_, txn)

	heap := c.GetTableHeapByOID(created.OID())
	if heap == nil {
		t.Fatalf("expected a table heap for oid %d", created.OID())
	}
	if c.GetTableHeapByOID(9999) != nil {
		t.Fatalf("expected nil table heap for unknown oid")
	}
}

func TestReloadCatalogFromDisk(t *testing.T) {
	dm := disk.NewDiskManagerTest()
	t.Cleanup(func() { dm.ShutDown() })

	logManager := recovery.NewLogManager(dm)
	bpm := buffer.NewBufferPoolManager(32, 2, dm, logManager)
	lockManager := concurrency.NewLockManager()
	txnManager := concurrency.NewTransactionManager(lockManager, logManager)
	txn := txnManager.Begin(concurrency.REPEATABLE_READ)

	c := BootstrapCatalog(bpm, logManager, lockManager, txn)
	columnA := column.NewColumn("a", types.Integer, false)
	columnB := column.NewColumn("b", types.Integer, true)
	schema_ := schema.NewSchema([]*column.Column{columnA, columnB})
	c.CreateTable("reloaded", schema_, txn)
	txnManager.Commit(txn)
	bpm.FlushAllPages()

	txn2 := txnManager.Begin(concurrency.REPEATABLE_READ)
	reloaded := GetCatalog(bpm, logManager, lockManager, txn2)

	meta := reloaded.GetTableByName("reloaded")
	if meta == nil {
		t.Fatalf("expected reloaded catalog to know about table 'reloaded'")
	}
	if meta.Schema().GetColumnCount() != 2 {
		t.Fatalf("expected 2 columns, got %d", meta.Schema().GetColumnCount())
	}
	if got := meta.Schema().GetColumn(1).GetColumnName(); got != "b" {
		t.Fatalf("expected second column named 'b', got %q", got)
	}
	if !meta.Schema().GetColumn(1).HasIndex() {
		t.Fatalf("expected second column to have has_index=true preserved across reload")
	}
}
