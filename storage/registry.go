package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry manages a collection of FileDiskManagers rooted at a specific
// directory, one per named page space. It acts as the registry for all open
// database files in the process.
type Registry struct {
	rootPath string
	managers *xsync.MapOf[string, DiskManager]
}

// NewRegistry initializes a registry rooted at rootPath.
func NewRegistry(rootPath string) *Registry {
	return &Registry{
		rootPath: rootPath,
		managers: xsync.NewMapOf[string, DiskManager](),
	}
}

// Get retrieves or creates the DiskManager for the given name.
//
// It maintains a cache of open files to ensure only one FileDiskManager
// exists per physical file.
func (r *Registry) Get(name string) (DiskManager, error) {
	if dm, ok := r.managers.Load(name); ok {
		return dm, nil
	}

	path := filepath.Join(r.rootPath, fmt.Sprintf("%s.db", name))
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, err
	}
	newDM, err := NewFileDiskManager(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	actual, loaded := r.managers.LoadOrStore(name, newDM)
	if loaded {
		// We lost the race. Another thread opened the file and inserted it
		// first. Close our unnecessary file handle and use theirs.
		_ = newDM.Close()
		return actual, nil
	}
	return newDM, nil
}

// Delete permanently deletes the file backing the given name.
//
// Warning: The caller must ensure that no other threads are currently using
// the manager (e.g., via a BufferPoolManager).
func (r *Registry) Delete(name string) error {
	dm, loaded := r.managers.LoadAndDelete(name)
	if loaded {
		if err := dm.Close(); err != nil {
			// We continue even if close fails, to ensure physical deletion
			fmt.Printf("Failed to close db file %q when deleting: %v, proceeding with deletion\n", name, err)
		}
	}
	return os.Remove(filepath.Join(r.rootPath, fmt.Sprintf("%s.db", name)))
}
