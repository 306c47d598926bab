package indexing

import (
	"mit.edu/dsg/probedb/transaction"
)

// PointIndex is the interface for indexes that support exact-match lookup
// of (key, value) pairs. Keys may be non-unique: a key can map to several
// values, and removal is (key, value) specific.
//
// The transaction handle is carried through without interpretation; callers
// that have no transaction pass nil.
type PointIndex[K, V any] interface {
	// Insert adds the (key, value) pair. Duplicate rejection is
	// best-effort: a return of false means the exact pair was found live
	// during the probe, but an implementation that reuses tombstoned slots
	// may admit a second copy of a pair whose live twin sits later in the
	// probe chain. Only MemBTreeIndex guarantees strict pair uniqueness.
	Insert(txn *transaction.TransactionContext, key K, value V) bool

	// Remove deletes the (key, value) pair. Returns false if the pair is
	// not present.
	Remove(txn *transaction.TransactionContext, key K, value V) bool

	// GetValue finds all values associated with key. The order of values
	// is unspecified. The bool reports whether at least one match exists.
	GetValue(txn *transaction.TransactionContext, key K) ([]V, bool)
}
