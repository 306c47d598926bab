package storage

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"mit.edu/dsg/probedb/common"
)

// FileDiskManager implements DiskManager on top of a standard OS file.
type FileDiskManager struct {
	file *os.File
	// numPages is a cached value of the file size (in pages) to avoid stat()
	// syscalls on every read. It is updated atomically after physical
	// allocation.
	numPages atomic.Int32
	// allocMu serializes allocation state: file expansion (Truncate) and the
	// allocation bitmap.
	allocMu sync.Mutex
	// allocBits is a bitmap with one bit per page of the file; a set bit
	// means the page is allocated. DeallocatePage clears the bit and the
	// next AllocatePage reuses the page instead of growing the file.
	allocBits []byte
}

// NewFileDiskManager creates a FileDiskManager around an already open OS
// file. Every existing page is considered allocated.
//
// Note: We assume the file size is always a multiple of common.PageSize.
func NewFileDiskManager(file *os.File) (*FileDiskManager, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	numPages := int32(stat.Size() / int64(common.PageSize))

	d := &FileDiskManager{file: file}
	d.numPages.Store(numPages)
	if numPages > 0 {
		d.allocBits = make([]byte, bitmapBytesFor(int(numPages)))
		bm := AsBitmap(d.allocBits, int(numPages))
		for i := 0; i < int(numPages); i++ {
			bm.SetBit(i, true)
		}
	}
	return d, nil
}

// bitmapBytesFor returns the byte length of an allocation bitmap covering
// numPages pages, padded so the word-level Bitmap view can be taken.
func bitmapBytesFor(numPages int) int {
	return (numPages + 63) / 64 * 8
}

// AllocatePage reserves a page, reusing a deallocated one when possible and
// growing the file otherwise.
func (d *FileDiskManager) AllocatePage() (common.PageID, error) {
	d.allocMu.Lock()
	defer d.allocMu.Unlock()

	numPages := int(d.numPages.Load())
	if numPages > 0 {
		bm := AsBitmap(d.allocBits, numPages)
		if free := bm.FindFirstZero(0); free != -1 {
			bm.SetBit(free, true)
			return common.PageID(free), nil
		}
	}

	// Physically extend the file. This ensures the OS changes the file size
	// immediately, although it may not be backed by physical pages yet;
	// reads from the new area return zeros.
	newSizeBytes := int64(numPages+1) * int64(common.PageSize)
	if err := d.file.Truncate(newSizeBytes); err != nil {
		return common.InvalidPageID, fmt.Errorf("failed to allocate page: %w", err)
	}

	if needed := bitmapBytesFor(numPages + 1); needed > len(d.allocBits) {
		grown := make([]byte, needed)
		copy(grown, d.allocBits)
		d.allocBits = grown
	}
	bm := AsBitmap(d.allocBits, numPages+1)
	bm.SetBit(numPages, true)
	d.numPages.Store(int32(numPages + 1))
	return common.PageID(numPages), nil
}

// DeallocatePage marks the page free for reuse. The file is not shrunk.
func (d *FileDiskManager) DeallocatePage(pageID common.PageID) {
	d.allocMu.Lock()
	defer d.allocMu.Unlock()

	numPages := int(d.numPages.Load())
	if int(pageID) < 0 || int(pageID) >= numPages {
		return
	}
	bm := AsBitmap(d.allocBits, numPages)
	bm.SetBit(int(pageID), false)
}

// ReadPage reads the content of the page identified by pageID into frame.
// Returns an error if the page does not exist.
func (d *FileDiskManager) ReadPage(pageID common.PageID, frame []byte) error {
	common.Assert(len(frame) == common.PageSize, "buffer size must match PageSize")
	if int32(pageID) < 0 || int32(pageID) >= d.numPages.Load() {
		return fmt.Errorf("read out of bounds: page %d does not exist (file has %d pages)", pageID, d.numPages.Load())
	}

	offset := int64(pageID) * int64(common.PageSize)
	_, err := d.file.ReadAt(frame, offset)
	return err
}

// WritePage writes the content of frame to the page identified by pageID.
// Returns an error if the page does not exist.
func (d *FileDiskManager) WritePage(pageID common.PageID, frame []byte) error {
	common.Assert(len(frame) == common.PageSize, "buffer size must match PageSize")
	if int32(pageID) < 0 || int32(pageID) >= d.numPages.Load() {
		return fmt.Errorf("write out of bounds: page %d does not exist", pageID)
	}

	offset := int64(pageID) * int64(common.PageSize)
	_, err := d.file.WriteAt(frame, offset)
	return err
}

// Sync flushes writes to stable storage.
func (d *FileDiskManager) Sync() error {
	return d.file.Sync()
}

// Close closes the underlying OS file.
func (d *FileDiskManager) Close() error {
	return d.file.Close()
}

// NumPages returns the number of pages currently in the file.
func (d *FileDiskManager) NumPages() int {
	return int(d.numPages.Load())
}
