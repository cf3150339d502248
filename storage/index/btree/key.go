package btree

import (
	"github.com/yuzudb/yuzudb/types"
)

// keySize is the fixed width reserved for one key in an entry array. It
// comfortably holds a serialized Integer, Float or Boolean Value (at most
// 1 null-flag byte + 4 value bytes); Varchar keys aren't supported since a
// slotted entry array needs every entry the same width.
const keySize = 8

// Comparator orders two keys the way the index's caller wants: <0 if a<b,
// 0 if equal, >0 if a>b. Parameterizing this (rather than hardcoding
// Value's own comparisons) is what lets the same tree implementation serve
// ascending or descending indexes.
type Comparator func(a, b types.Value) int

// DefaultComparator orders keys the way types.Value already compares itself.
func DefaultComparator(a, b types.Value) int {
	if a.CompareLessThan(b) {
		return -1
	}
	if a.CompareEquals(b) {
		return 0
	}
	return 1
}

func encodeKey(v types.Value) [keySize]byte {
	var buf [keySize]byte
	switch v.ValueType() {
	case types.Integer, types.Float, types.Boolean:
		copy(buf[:], v.Serialize())
	default:
		panic("btree: unsupported key type")
	}
	return buf
}

func decodeKey(data []byte, valueType types.TypeID) types.Value {
	v := types.NewValueFromBytes(data, valueType)
	return *v
}
