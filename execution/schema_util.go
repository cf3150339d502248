package execution

import (
	"github.com/yuzudb/yuzudb/storage/table/column"
	"github.com/yuzudb/yuzudb/storage/table/schema"
	"github.com/yuzudb/yuzudb/types"
)

// CountSchema is the one-column Integer output schema Insert and Delete emit
// at EOF.
func CountSchema() *schema.Schema {
	return schema.NewSchema([]*column.Column{column.NewColumn("count", types.Integer, false)})
}
