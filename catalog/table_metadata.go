// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package catalog

import (
	"github.com/yuzudb/yuzudb/common"
	"github.com/yuzudb/yuzudb/storage/buffer"
	"github.com/yuzudb/yuzudb/storage/index/btree"
	"github.com/yuzudb/yuzudb/storage/table"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/types"
)

// TableMetadata bundles a table's schema, name, oid and the table heap that
// holds its rows, plus one B+-tree index per indexed column.
type TableMetadata struct {
	schema  *schema.Schema
	name    string
	table   *table.TableHeap
	oid     uint32
	indexes []*btree.BPlusTree // indexes[i] is nil when column i has no index
}

func NewTableMetadata(schema_ *schema.Schema, name string, table_ *table.TableHeap, oid uint32) *TableMetadata {
	return &TableMetadata{schema: schema_, name: name, table: table_, oid: oid}
}

func (tm *TableMetadata) Schema() *schema.Schema  { return tm.schema }
func (tm *TableMetadata) Name() string            { return tm.name }
func (tm *TableMetadata) Table() *table.TableHeap { return tm.table }
func (tm *TableMetadata) OID() uint32             { return tm.oid }

// BuildIndexes instantiates a B+-tree over every column that carries
// has_index, rooted in indexHeaderPageId's directory under the key
// "<table>.<column>". Idempotent: call once per TableMetadata lifetime, after
// the schema is final.
func (tm *TableMetadata) BuildIndexes(bpm *buffer.BufferPoolManager, indexHeaderPageId types.PageID) {
	cols := tm.schema.GetColumns()
	tm.indexes = make([]*btree.BPlusTree, len(cols))
	for i, col := range cols {
		if !col.HasIndex() {
			continue
		}
		indexName := tm.name + "." + col.GetColumnName()
		tm.indexes[i] = btree.NewBPlusTree(indexName, bpm, indexHeaderPageId, col.GetType(), btree.DefaultComparator,
			common.DefaultBTreeLeafMaxSize, common.DefaultBTreeInternalMaxSize)
	}
}

// GetIndex returns the B+-tree over colIndex, or nil if that column isn't
// indexed.
func (tm *TableMetadata) GetIndex(colIndex int) *btree.BPlusTree {
	if colIndex < 0 || colIndex >= len(tm.indexes) {
		return nil
	}
	return tm.indexes[colIndex]
}

// Indexes returns one slot per column; nil where the column has no index.
func (tm *TableMetadata) Indexes() []*btree.BPlusTree { return tm.indexes }
