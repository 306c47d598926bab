package transaction

import (
	"sync"
	"sync/atomic"

	"mit.edu/dsg/probedb/common"
)

// TransactionContext holds the runtime state of a single transaction.
//
// The storage substrate treats it as an opaque handle: index operations
// carry it through without interpretation. Concurrency control and
// WAL-driven rollback live above this layer.
type TransactionContext struct {
	id common.TransactionID
}

// ID returns the transaction's identifier.
func (txn *TransactionContext) ID() common.TransactionID {
	return txn.id
}

// Reset clears the transaction context for reuse.
// This is critical when using sync.Pool to avoid leaking state between users.
func (txn *TransactionContext) Reset(id common.TransactionID) {
	txn.id = id
}

// Manager hands out transaction contexts with unique ids, recycling them
// through a pool.
type Manager struct {
	nextID atomic.Uint64
	pool   sync.Pool
}

func NewManager() *Manager {
	return &Manager{
		pool: sync.Pool{
			New: func() any { return &TransactionContext{} },
		},
	}
}

// Begin returns a fresh transaction context.
func (m *Manager) Begin() *TransactionContext {
	txn := m.pool.Get().(*TransactionContext)
	txn.Reset(common.TransactionID(m.nextID.Add(1)))
	return txn
}

// Complete returns the context to the pool once the caller is done with it.
func (m *Manager) Complete(txn *TransactionContext) {
	txn.Reset(common.InvalidTransactionID)
	m.pool.Put(txn)
}
