// Package probedb is the storage substrate of a teaching-grade relational
// database: a fixed-capacity buffer pool over a page-addressed disk file,
// and a linear-probing hash index stored entirely in pages owned by that
// pool.
package probedb

import (
	"os"

	"mit.edu/dsg/probedb/logging"
	"mit.edu/dsg/probedb/storage"
	"mit.edu/dsg/probedb/transaction"
)

// DB is the top-level container wiring the storage substrate together.
type DB struct {
	Registry           *storage.Registry
	DiskManager        storage.DiskManager
	BufferPool         *storage.BufferPoolManager
	LogManager         logging.LogManager
	TransactionManager *transaction.Manager
}

// NewDB opens (or creates) the named database file under storageDir and
// stands up a buffer pool of bufferPoolSize frames over it.
//
// The log manager is the no-op write-point: LSNs are carried on pages but
// WAL-driven recovery is not part of this layer.
func NewDB(storageDir, name string, bufferPoolSize int) (*DB, error) {
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		return nil, err
	}

	registry := storage.NewRegistry(storageDir)
	diskManager, err := registry.Get(name)
	if err != nil {
		return nil, err
	}

	logManager := logging.NoopLogManager{}
	return &DB{
		Registry:           registry,
		DiskManager:        diskManager,
		BufferPool:         storage.NewBufferPoolManager(bufferPoolSize, diskManager, logManager),
		LogManager:         logManager,
		TransactionManager: transaction.NewManager(),
	}, nil
}

// Close flushes every resident page and syncs and closes the database file.
func (db *DB) Close() error {
	if err := db.BufferPool.FlushAllPages(); err != nil {
		return err
	}
	if err := db.DiskManager.Sync(); err != nil {
		return err
	}
	return db.DiskManager.Close()
}
