package storage

import (
	"sync"

	"mit.edu/dsg/probedb/common"
)

// pageMetadata is the buffer pool's bookkeeping for one frame. It is owned
// by the pool's mutex, not by the page latch: the latch protects the bytes,
// the pool mutex protects residency, pinning, and the dirty flag.
type pageMetadata struct {
	pageID   common.PageID
	pinCount int
	dirty    bool
}

// Page represents one frame of the buffer pool: a fixed-size byte buffer
// that can host any on-disk page, plus the metadata the pool needs to manage
// it. Frames are allocated once at pool construction and reused for the life
// of the pool.
type Page struct {
	// Bytes holds the raw physical data of the hosted page.
	Bytes [common.PageSize]byte
	// Latch protects the content of the page from concurrent access.
	// Higher layers acquire it in shared mode for reads and exclusive mode
	// for writes; it is always taken outside the pool's mutex.
	Latch sync.RWMutex

	pageMetadata
}

// Data returns the page's byte buffer.
func (p *Page) Data() []byte {
	return p.Bytes[:]
}

// PageID returns the id of the page currently hosted by this frame, or
// common.InvalidPageID if the frame is free.
func (p *Page) PageID() common.PageID {
	return p.pageID
}

// PinCount returns the number of outstanding references to this frame.
func (p *Page) PinCount() int {
	return p.pinCount
}

// IsDirty reports whether the frame holds modifications that have not been
// written back to disk.
func (p *Page) IsDirty() bool {
	return p.dirty
}

// ResetMemory zeroes the page's byte buffer.
func (p *Page) ResetMemory() {
	clear(p.Bytes[:])
}
