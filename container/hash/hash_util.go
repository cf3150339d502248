package hash

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
	"github.com/yuzudb/yuzudb/types"
)

const prime_factor uint32 = 10000019

// GenHashMurMur hashes an arbitrary byte slice with murmur3's 128-bit
// variant, truncated to 32 bits. Both the extendible hash table's directory
// index and the aggregation executor's group-by key hashing go through
// here.
func GenHashMurMur(key []byte) uint32 {
	h := murmur3.New128()
	h.Write(key)
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint32(sum)
}

func CombineHashes(l uint32, r uint32) uint32 {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], l)
	binary.LittleEndian.PutUint32(buf[4:8], r)
	return GenHashMurMur(buf)
}

func SumHashes(l uint32, r uint32) uint32 { return (l%prime_factor + r%prime_factor) % prime_factor }

// HashValue hashes a single SQL value for use as an aggregation group-by key
// component. NULL values of any type all hash to the same bucket so GROUP BY
// treats NULL as one group.
func HashValue(val *types.Value) uint32 {
	if val.IsNull() {
		return 0
	}
	switch val.ValueType() {
	case types.Integer, types.BigInt, types.Float, types.Boolean, types.Varchar:
		return GenHashMurMur(val.Serialize())
	default:
		panic("HashValue: unsupported type")
	}
}
