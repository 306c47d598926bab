package storage

import (
	"sync"

	"mit.edu/dsg/probedb/common"
	"mit.edu/dsg/probedb/logging"
)

// BufferPoolManager mediates all access to the on-disk, page-addressed heap.
// It owns a fixed array of frames, keeps a page-id to frame-index map for
// residency lookups, a free list of never-or-no-longer used frames, and a
// replacer that picks eviction victims among unpinned resident frames.
//
// A single mutex guards the page table, the free list, and the frames'
// metadata; the replacer serializes internally but is only ever called with
// the pool mutex held, so victim selection and page-table updates are
// serialized. Page content latches are acquired by higher layers outside
// the pool mutex.
//
// At any quiescent moment every frame is in exactly one of three states:
// on the free list, a replacer candidate (resident, pin count zero), or
// pinned (resident, pin count positive).
type BufferPoolManager struct {
	mu          sync.Mutex
	diskManager DiskManager
	logManager  logging.LogManager
	pages       []Page
	pageTable   map[common.PageID]common.FrameID
	freeList    []common.FrameID
	replacer    Replacer
}

// NewBufferPoolManager creates a pool with poolSize frames over the given
// disk manager. The log manager is an opaque write-point carried for the
// page LSNs; it may be nil.
func NewBufferPoolManager(poolSize int, diskManager DiskManager, logManager logging.LogManager) *BufferPoolManager {
	common.Assert(poolSize > 0, "buffer pool must have at least one frame")

	bpm := &BufferPoolManager{
		diskManager: diskManager,
		logManager:  logManager,
		pages:       make([]Page, poolSize),
		pageTable:   make(map[common.PageID]common.FrameID, poolSize),
		freeList:    make([]common.FrameID, 0, poolSize),
		replacer:    NewClockReplacer(poolSize),
	}
	// Initially, every frame is on the free list.
	for i := 0; i < poolSize; i++ {
		bpm.pages[i].pageID = common.InvalidPageID
		bpm.freeList = append(bpm.freeList, common.FrameID(i))
	}
	return bpm
}

// DiskManager returns the underlying disk manager.
func (bpm *BufferPoolManager) DiskManager() DiskManager {
	return bpm.diskManager
}

// LogManager returns the opaque log write-point, which may be nil.
func (bpm *BufferPoolManager) LogManager() logging.LogManager {
	return bpm.logManager
}

// PoolSize returns the fixed number of frames.
func (bpm *BufferPoolManager) PoolSize() int {
	return len(bpm.pages)
}

// obtainFrame picks a frame to host a new resident page, always preferring
// the free list over the replacer: a free frame is already clean and
// unmapped, saving a dirty write-back and a map erase. A frame taken from
// the replacer is evicted: written back if dirty and unmapped.
//
// Called with the pool mutex held. Returns OutOfFramesError when the free
// list is empty and every resident page is pinned.
func (bpm *BufferPoolManager) obtainFrame() (common.FrameID, error) {
	if len(bpm.freeList) > 0 {
		frameID := bpm.freeList[0]
		bpm.freeList = bpm.freeList[1:]
		return frameID, nil
	}

	frameID, ok := bpm.replacer.Victim()
	if !ok {
		// Nothing on the free list and nothing evictable: every frame is pinned.
		return 0, common.StorageError{Code: common.OutOfFramesError, ErrString: "all frames are pinned"}
	}

	page := &bpm.pages[frameID]
	common.Assert(page.pinCount == 0, "replacer handed out a pinned frame %d", frameID)
	if page.dirty {
		if err := bpm.diskManager.WritePage(page.pageID, page.Bytes[:]); err != nil {
			// Write-back failed; the frame keeps its page and stays evictable.
			bpm.replacer.Unpin(frameID)
			return 0, err
		}
		page.dirty = false
	}
	delete(bpm.pageTable, page.pageID)
	return frameID, nil
}

// releaseFrame returns a frame obtained by obtainFrame but never installed,
// undoing the residency bookkeeping. Called with the pool mutex held.
func (bpm *BufferPoolManager) releaseFrame(frameID common.FrameID) {
	page := &bpm.pages[frameID]
	page.pageID = common.InvalidPageID
	page.pinCount = 0
	page.dirty = false
	bpm.freeList = append(bpm.freeList, frameID)
}

// FetchPage returns the frame hosting pageID, pinned, reading it from disk
// if it is not resident. The caller must pair this with exactly one
// UnpinPage. Returns OutOfFramesError if no frame can be obtained.
func (bpm *BufferPoolManager) FetchPage(pageID common.PageID) (*Page, error) {
	common.Assert(pageID.IsValid(), "fetching invalid page id")
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	if frameID, ok := bpm.pageTable[pageID]; ok {
		page := &bpm.pages[frameID]
		page.pinCount++
		bpm.replacer.Pin(frameID)
		return page, nil
	}

	frameID, err := bpm.obtainFrame()
	if err != nil {
		return nil, err
	}

	page := &bpm.pages[frameID]
	page.ResetMemory()
	page.pageID = pageID
	page.pinCount = 1
	page.dirty = false
	if err := bpm.diskManager.ReadPage(pageID, page.Bytes[:]); err != nil {
		bpm.releaseFrame(frameID)
		return nil, err
	}
	bpm.pageTable[pageID] = frameID
	return page, nil
}

// NewPage allocates a fresh page on disk and returns its zeroed, pinned
// frame. The caller must pair this with exactly one UnpinPage.
func (bpm *BufferPoolManager) NewPage() (*Page, error) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, err := bpm.obtainFrame()
	if err != nil {
		return nil, err
	}

	pageID, err := bpm.diskManager.AllocatePage()
	if err != nil {
		bpm.releaseFrame(frameID)
		return nil, err
	}

	page := &bpm.pages[frameID]
	page.ResetMemory()
	page.pageID = pageID
	page.pinCount = 1
	page.dirty = false
	bpm.pageTable[pageID] = frameID
	return page, nil
}

// UnpinPage drops one reference to the page. The dirty flag is sticky: once
// a caller reports the page modified it stays dirty until a flush. When the
// pin count reaches zero the frame becomes an eviction candidate.
// Returns false if the page is not resident.
func (bpm *BufferPoolManager) UnpinPage(pageID common.PageID, isDirty bool) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return false
	}

	page := &bpm.pages[frameID]
	common.Assert(page.pinCount > 0, "unpinning page %s with zero pin count", pageID)
	if isDirty {
		page.dirty = true
	}
	page.pinCount--
	if page.pinCount == 0 {
		bpm.replacer.Unpin(frameID)
	}
	return true
}

// FlushPage writes the page's bytes to disk regardless of the dirty flag and
// clears the flag. Pin state is unchanged. The bool reports residency; a
// non-resident page is a benign no-op (false, nil).
func (bpm *BufferPoolManager) FlushPage(pageID common.PageID) (bool, error) {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()
	return bpm.flushLocked(pageID)
}

func (bpm *BufferPoolManager) flushLocked(pageID common.PageID) (bool, error) {
	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return false, nil
	}
	page := &bpm.pages[frameID]
	if err := bpm.diskManager.WritePage(pageID, page.Bytes[:]); err != nil {
		return true, err
	}
	page.dirty = false
	return true, nil
}

// FlushAllPages writes every resident page to disk and clears its dirty
// flag. Pin state is unchanged.
func (bpm *BufferPoolManager) FlushAllPages() error {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	for pageID := range bpm.pageTable {
		if _, err := bpm.flushLocked(pageID); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage removes the page from the pool and deallocates it on disk.
// A non-resident page is trivially deleted (true); a pinned page cannot be
// deleted (false) and the caller must drop references before retrying.
func (bpm *BufferPoolManager) DeletePage(pageID common.PageID) bool {
	bpm.mu.Lock()
	defer bpm.mu.Unlock()

	frameID, ok := bpm.pageTable[pageID]
	if !ok {
		return true
	}

	page := &bpm.pages[frameID]
	if page.pinCount > 0 {
		return false
	}

	delete(bpm.pageTable, pageID)
	bpm.replacer.Pin(frameID)
	bpm.releaseFrame(frameID)
	bpm.diskManager.DeallocatePage(pageID)
	return true
}
