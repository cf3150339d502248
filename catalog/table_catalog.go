// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package catalog

import (
	"github.com/yuzudb/yuzudb/concurrency"
	"github.com/yuzudb/yuzudb/recovery"
	"github.com/yuzudb/yuzudb/storage/buffer"
	"github.com/yuzudb/yuzudb/storage/table"
	"github.com/yuzudb/yuzudb/storage/table/column"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/storage/tuple"
	"github.com/yuzudb/yuzudb/types"
)

// TableCatalogPageId indicates the page where the table catalog can be found.
// The first page is reserved for the table catalog.
const TableCatalogPageId = 0

// ColumnsCatalogPageId indicates the page where the columns catalog can be
// found. The second page is reserved for the columns catalog.
const ColumnsCatalogPageId = 1

// IndexCatalogPageId is the root-page-id directory shared by every B+-tree
// index in the database. The third page is reserved for it.
const IndexCatalogPageId = 2

const TableCatalogOID = 0
const ColumnsCatalogOID = 1

// Catalog is a non-persistent, in-memory index over the on-disk table and
// column catalogs: it handles table creation and table lookup for the
// executor, rebuilding itself from the two system tables on startup.
type Catalog struct {
	bpm              *buffer.BufferPoolManager
	tableIds         map[uint32]*TableMetadata
	tableNames       map[string]*TableMetadata
	nextTableId      uint32
	tableHeap        *table.TableHeap
	logManager       *recovery.LogManager
	lockManager      *concurrency.LockManager
	indexHeaderPageId types.PageID
}

// BootstrapCatalog creates the system catalogs on first database
// initialization: the table catalog occupies TableCatalogPageId, the columns
// catalog occupies ColumnsCatalogPageId, and the index root-id directory
// occupies IndexCatalogPageId.
func BootstrapCatalog(bpm *buffer.BufferPoolManager, logManager *recovery.LogManager, lockManager *concurrency.LockManager, txn *concurrency.Transaction) *Catalog {
	tableCatalogHeap := table.NewTableHeap(bpm, logManager, lockManager, txn, TableCatalogOID)
	columnsHeap := table.NewTableHeap(bpm, logManager, lockManager, txn, ColumnsCatalogOID)
	indexHeaderPage := bpm.NewPage()
	indexHeaderPageId := indexHeaderPage.ID()
	bpm.UnpinPage(indexHeaderPageId, true)

	c := &Catalog{
		bpm:               bpm,
		tableIds:          make(map[uint32]*TableMetadata),
		tableNames:        make(map[string]*TableMetadata),
		nextTableId:       2,
		tableHeap:         tableCatalogHeap,
		logManager:        logManager,
		lockManager:       lockManager,
		indexHeaderPageId: indexHeaderPageId,
	}
	columnsMeta := NewTableMetadata(ColumnsCatalogSchema(), "columns_catalog", columnsHeap, ColumnsCatalogOID)
	columnsMeta.BuildIndexes(bpm, indexHeaderPageId)
	c.tableIds[ColumnsCatalogOID] = columnsMeta
	c.tableNames["columns_catalog"] = columnsMeta
	return c
}

// GetCatalog reloads table and column metadata from disk into memory.
func GetCatalog(bpm *buffer.BufferPoolManager, logManager *recovery.LogManager, lockManager *concurrency.LockManager, txn *concurrency.Transaction) *Catalog {
	tableCatalogHeap := table.InitTableHeap(bpm, TableCatalogPageId, logManager, lockManager, TableCatalogOID)
	columnsCatalogHeap := table.InitTableHeap(bpm, ColumnsCatalogPageId, logManager, lockManager, ColumnsCatalogOID)

	tableIds := make(map[uint32]*TableMetadata)
	tableNames := make(map[string]*TableMetadata)
	indexHeaderPageId := types.PageID(IndexCatalogPageId)

	tableIds[ColumnsCatalogOID] = NewTableMetadata(ColumnsCatalogSchema(), "columns_catalog", columnsCatalogHeap, ColumnsCatalogOID)
	tableIds[ColumnsCatalogOID].BuildIndexes(bpm, indexHeaderPageId)
	tableNames["columns_catalog"] = tableIds[ColumnsCatalogOID]

	maxOID := uint32(ColumnsCatalogOID)
	tableCatalogIt := tableCatalogHeap.Iterator(txn)
	for !tableCatalogIt.End() {
		tup := tableCatalogIt.Current()
		oid := uint32(tup.GetValue(TableCatalogSchema(), TableCatalogSchema().GetColIndex("oid")).ToInteger())
		name := tup.GetValue(TableCatalogSchema(), TableCatalogSchema().GetColIndex("name")).ToVarchar()
		firstPage := tup.GetValue(TableCatalogSchema(), TableCatalogSchema().GetColIndex("first_page")).ToInteger()

		var columns []*column.Column
		columnsIt := columnsCatalogHeap.Iterator(txn)
		for !columnsIt.End() {
			colTuple := columnsIt.Current()
			tableOid := uint32(colTuple.GetValue(ColumnsCatalogSchema(), ColumnsCatalogSchema().GetColIndex("table_oid")).ToInteger())
			if tableOid == oid {
				columnType := colTuple.GetValue(ColumnsCatalogSchema(), ColumnsCatalogSchema().GetColIndex("type")).ToInteger()
				columnName := colTuple.GetValue(ColumnsCatalogSchema(), ColumnsCatalogSchema().GetColIndex("name")).ToVarchar()
				hasIndex := colTuple.GetValue(ColumnsCatalogSchema(), ColumnsCatalogSchema().GetColIndex("has_index")).ToInteger() != 0
				columns = append(columns, column.NewColumn(columnName, types.TypeID(columnType), hasIndex))
			}
			columnsIt.Next()
		}

		tableMetadata := NewTableMetadata(
			schema.NewSchema(columns),
			name,
			table.InitTableHeap(bpm, types.PageID(firstPage), logManager, lockManager, oid),
			oid,
		)
		tableMetadata.BuildIndexes(bpm, indexHeaderPageId)
		tableIds[oid] = tableMetadata
		tableNames[name] = tableMetadata
		if oid > maxOID {
			maxOID = oid
		}
		tableCatalogIt.Next()
	}

	return &Catalog{
		bpm:               bpm,
		tableIds:          tableIds,
		tableNames:        tableNames,
		nextTableId:       maxOID + 1,
		tableHeap:         tableCatalogHeap,
		logManager:        logManager,
		lockManager:       lockManager,
		indexHeaderPageId: indexHeaderPageId,
	}
}

func (c *Catalog) GetTableByName(name string) *TableMetadata {
	if t, ok := c.tableNames[name]; ok {
		return t
	}
	return nil
}

func (c *Catalog) GetTableByOID(oid uint32) *TableMetadata {
	if t, ok := c.tableIds[oid]; ok {
		return t
	}
	return nil
}

// GetTableHeapByOID satisfies concurrency.CatalogInterface, letting the
// transaction manager reach a table heap by oid for write-set rollback
// without importing this package directly.
func (c *Catalog) GetTableHeapByOID(oid uint32) concurrency.TableHeap {
	t := c.GetTableByOID(oid)
	if t == nil {
		return nil
	}
	return t.Table()
}

// CreateTable creates a new table, persists its row in the table catalog and
// one row per column in the columns catalog, and returns its metadata.
func (c *Catalog) CreateTable(name string, schema_ *schema.Schema, txn *concurrency.Transaction) *TableMetadata {
	oid := c.nextTableId
	c.nextTableId++

	tableHeap := table.NewTableHeap(c.bpm, c.logManager, c.lockManager, txn, oid)
	tableMetadata := NewTableMetadata(schema_, name, tableHeap, oid)
	tableMetadata.BuildIndexes(c.bpm, c.indexHeaderPageId)

	c.tableIds[oid] = tableMetadata
	c.tableNames[name] = tableMetadata
	c.InsertTable(tableMetadata, txn)

	return tableMetadata
}

// InsertTable persists a table's catalog row and its columns' catalog rows.
func (c *Catalog) InsertTable(tableMetadata *TableMetadata, txn *concurrency.Transaction) {
	row := []types.Value{
		types.NewInteger(int32(tableMetadata.OID())),
		types.NewVarchar(tableMetadata.Name()),
		types.NewInteger(int32(tableMetadata.Table().GetFirstPageId())),
	}
	tableRow := tuple.NewTupleFromSchema(row, TableCatalogSchema())
	c.tableHeap.InsertTuple(tableRow, txn)

	columnsHeap := c.tableIds[ColumnsCatalogOID].Table()
	for _, col := range tableMetadata.Schema().GetColumns() {
		hasIndex := int32(0)
		if col.HasIndex() {
			hasIndex = 1
		}
		colRow := []types.Value{
			types.NewInteger(int32(tableMetadata.OID())),
			types.NewInteger(int32(col.GetType())),
			types.NewVarchar(col.GetColumnName()),
			types.NewInteger(int32(col.FixedLength())),
			types.NewInteger(int32(col.VariableLength())),
			types.NewInteger(int32(col.GetOffset())),
			types.NewInteger(hasIndex),
		}
		colTuple := tuple.NewTupleFromSchema(colRow, ColumnsCatalogSchema())
		columnsHeap.InsertTuple(colTuple, txn)
	}
}
