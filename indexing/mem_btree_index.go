package indexing

import (
	"bytes"

	"github.com/tidwall/btree"

	"mit.edu/dsg/probedb/transaction"
)

type btreeItem[K, V any] struct {
	key   K
	value V
	// valueBytes is the codec-encoded form of value, kept so the tree can
	// order duplicates of the same key without a value comparator.
	valueBytes []byte
}

// MemBTreeIndex is a memory-resident point index over github.com/tidwall/btree,
// specialized to the same (key, value) semantics as the disk hash table:
// non-unique keys, pair-exact insert and remove. It serves as the
// memory-only index variant and as a differential-testing oracle for the
// disk-backed index.
type MemBTreeIndex[K, V any] struct {
	tree       *btree.BTreeG[btreeItem[K, V]]
	cmp        Comparator[K]
	valueCodec Codec[V]
}

// NewMemBTreeIndex creates an empty index.
// Primary order is by key via the comparator; ties are broken by the
// encoded value bytes so the same key can hold several values.
func NewMemBTreeIndex[K, V any](cmp Comparator[K], valueCodec Codec[V]) *MemBTreeIndex[K, V] {
	less := func(a, b btreeItem[K, V]) bool {
		if c := cmp(a.key, b.key); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.valueBytes, b.valueBytes) < 0
	}
	return &MemBTreeIndex[K, V]{
		tree:       btree.NewBTreeG(less),
		cmp:        cmp,
		valueCodec: valueCodec,
	}
}

func (index *MemBTreeIndex[K, V]) encode(value V) []byte {
	buf := make([]byte, index.valueCodec.Size())
	index.valueCodec.Encode(buf, value)
	return buf
}

// Insert adds the pair; returns false if the exact pair already exists.
func (index *MemBTreeIndex[K, V]) Insert(txn *transaction.TransactionContext, key K, value V) bool {
	item := btreeItem[K, V]{key: key, value: value, valueBytes: index.encode(value)}
	if _, ok := index.tree.Get(item); ok {
		return false
	}
	index.tree.Set(item)
	return true
}

// Remove deletes the exact pair; returns false if it is absent.
func (index *MemBTreeIndex[K, V]) Remove(txn *transaction.TransactionContext, key K, value V) bool {
	item := btreeItem[K, V]{key: key, value: value, valueBytes: index.encode(value)}
	_, deleted := index.tree.Delete(item)
	return deleted
}

// GetValue collects every value stored under key.
func (index *MemBTreeIndex[K, V]) GetValue(txn *transaction.TransactionContext, key K) ([]V, bool) {
	// An empty valueBytes pivot sorts before every real entry of this key.
	pivot := btreeItem[K, V]{key: key}

	var result []V
	index.tree.Ascend(pivot, func(item btreeItem[K, V]) bool {
		if index.cmp(item.key, key) != 0 {
			return false
		}
		result = append(result, item.value)
		return true
	})
	return result, len(result) > 0
}

// Len returns the number of stored pairs.
func (index *MemBTreeIndex[K, V]) Len() int {
	return index.tree.Len()
}
