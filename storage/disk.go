package storage

import "mit.edu/dsg/probedb/common"

// DiskManager abstracts the block device under the buffer pool: a flat,
// page-addressed space with allocation. Pages are fixed size
// (common.PageSize) and identified by non-negative PageIDs.
//
// Implementations must be safe for concurrent use. Specifically, multiple
// threads should be able to ReadPage and WritePage different pages
// simultaneously, and AllocatePage must be atomic with respect to other
// allocations.
type DiskManager interface {
	// AllocatePage reserves a page and returns its id. Deallocated pages
	// are reused before the underlying file is extended. The page contents
	// are unspecified until the first WritePage.
	AllocatePage() (common.PageID, error)

	// DeallocatePage releases a page so a later AllocatePage may reuse it.
	// Deallocating an unallocated page is a no-op.
	DeallocatePage(pageID common.PageID)

	// ReadPage reads the contents of the page identified by pageID into the
	// provided slice, which must be exactly common.PageSize bytes.
	ReadPage(pageID common.PageID, frame []byte) error

	// WritePage writes frame to the page identified by pageID. The slice
	// must be exactly common.PageSize bytes and the page must be allocated;
	// this method cannot be used to extend the page space.
	WritePage(pageID common.PageID, frame []byte) error

	// Sync forces any buffered writes to stable storage.
	Sync() error

	// Close closes the underlying file handle and releases resources.
	Close() error

	// NumPages returns the size of the page space, including deallocated
	// pages that have not been reused yet.
	NumPages() int
}
