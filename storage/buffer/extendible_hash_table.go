// this code is from https://github.com/brunocalza/go-bustub
// there is license and copyright notice in licenses/go-bustub dir

package buffer

import (
	"github.com/sasha-s/go-deadlock"
	"github.com/yuzudb/yuzudb/container/hash"
)

// HashKeyFn derives a directory hash for a key. The buffer pool manager
// hashes types.PageID by its little-endian byte representation.
type HashKeyFn[K any] func(K) uint32

// ExtendibleHashTable is a directory of shared buckets keyed by the low
// global_depth bits of hash(key). Directory size is always 2^global_depth.
// A single mutex guards the whole table; the per-bucket latch of the
// original design is subsumed, since the buffer pool manager already
// serializes all its operations under one mutex.
type ExtendibleHashTable[K comparable, V any] struct {
	mu          deadlock.Mutex
	globalDepth int
	bucketSize  int
	numBuckets  int
	dir         []*hashBucket[K, V]
	hashKey     HashKeyFn[K]
}

type hashBucketEntry[K comparable, V any] struct {
	key   K
	value V
}

type hashBucket[K comparable, V any] struct {
	size    int
	depth   int
	entries []hashBucketEntry[K, V]
}

func newHashBucket[K comparable, V any](size int, depth int) *hashBucket[K, V] {
	return &hashBucket[K, V]{size: size, depth: depth}
}

func (b *hashBucket[K, V]) isFull() bool {
	return len(b.entries) >= b.size
}

func (b *hashBucket[K, V]) find(key K) (V, bool) {
	for _, e := range b.entries {
		if e.key == key {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

func (b *hashBucket[K, V]) remove(key K) bool {
	for i, e := range b.entries {
		if e.key == key {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (b *hashBucket[K, V]) insert(key K, value V) bool {
	for i, e := range b.entries {
		if e.key == key {
			b.entries[i].value = value
			return true
		}
	}
	if b.isFull() {
		return false
	}
	b.entries = append(b.entries, hashBucketEntry[K, V]{key, value})
	return true
}

// NewExtendibleHashTable returns a table with a single bucket at depth 0.
func NewExtendibleHashTable[K comparable, V any](bucketSize int, hashKey HashKeyFn[K]) *ExtendibleHashTable[K, V] {
	t := &ExtendibleHashTable[K, V]{
		bucketSize: bucketSize,
		numBuckets: 1,
		hashKey:    hashKey,
	}
	t.dir = []*hashBucket[K, V]{newHashBucket[K, V](bucketSize, 0)}
	return t
}

func (t *ExtendibleHashTable[K, V]) indexOf(key K) int {
	mask := (1 << t.globalDepth) - 1
	return int(t.hashKey(key)) & mask
}

// GlobalDepth returns the number of bits of the hash used to index the
// directory.
func (t *ExtendibleHashTable[K, V]) GlobalDepth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.globalDepth
}

// LocalDepth returns the depth of the bucket at directory slot i.
func (t *ExtendibleHashTable[K, V]) LocalDepth(i int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[i].depth
}

// NumBuckets returns the number of distinct buckets, counting directory
// slots that alias the same bucket only once.
func (t *ExtendibleHashTable[K, V]) NumBuckets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.numBuckets
}

// Find reports whether key is present and, if so, its value.
func (t *ExtendibleHashTable[K, V]) Find(key K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[t.indexOf(key)].find(key)
}

// Remove deletes key. Shrinking the directory back down is never performed.
func (t *ExtendibleHashTable[K, V]) Remove(key K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir[t.indexOf(key)].remove(key)
}

// Insert adds or updates the key/value pair, splitting and doubling the
// directory as many times as necessary to make room.
func (t *ExtendibleHashTable[K, V]) Insert(key K, value V) {
	t.mu.Lock()
	defer t.mu.Unlock()

	index := t.indexOf(key)
	for !t.dir[index].insert(key, value) {
		if t.dir[index].depth == t.globalDepth {
			t.globalDepth++
			size := len(t.dir)
			t.dir = append(t.dir, t.dir[:size]...)
		}

		current := t.dir[index]
		current.depth++
		localDepth := current.depth
		splitBit := 1 << (localDepth - 1)

		zeroBucket := newHashBucket[K, V](t.bucketSize, localDepth)
		oneBucket := newHashBucket[K, V](t.bucketSize, localDepth)
		for _, e := range current.entries {
			if int(t.hashKey(e.key))&splitBit != 0 {
				oneBucket.insert(e.key, e.value)
			} else {
				zeroBucket.insert(e.key, e.value)
			}
		}

		for i := range t.dir {
			if t.dir[i] != current {
				continue
			}
			if i&splitBit != 0 {
				t.dir[i] = oneBucket
			} else {
				t.dir[i] = zeroBucket
			}
		}
		t.numBuckets++
		index = t.indexOf(key)
	}
}

// HashInt32 is a HashKeyFn for any integer-backed key type, used by the
// buffer pool manager to hash types.PageID.
func HashInt32[K ~int32](key K) uint32 {
	v := int32(key)
	return hash.GenHashMurMur([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}
