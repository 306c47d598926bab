package storage

import (
	"encoding/binary"

	"mit.edu/dsg/probedb/common"
)

// HashTableHeaderPage is the in-page directory of a linear-probe hash table.
//
// Layout:
// PageID (4) | Padding (4) | LSN (8) | Size (8) | NextInd (8) | BlockPageIDs (4 each)
//
// Size is the logical slot count of the table. BlockPageIDs is an
// append-only inline array of the table's block pages; NextInd is the write
// cursor, so NumBlocks() == NextInd at all times.
type HashTableHeaderPage struct {
	*Page
}

const (
	hashHeaderOffsetPageID  = 0
	hashHeaderOffsetLSN     = 8
	hashHeaderOffsetSize    = 16
	hashHeaderOffsetNextInd = 24
	hashHeaderSize          = 32
)

// HashHeaderBlockCapacity is the number of block page ids the inline array
// can record.
const HashHeaderBlockCapacity = (common.PageSize - hashHeaderSize) / 4

// AsHashTableHeaderPage reinterprets the frame's bytes as a header page.
func (p *Page) AsHashTableHeaderPage() HashTableHeaderPage {
	return HashTableHeaderPage{Page: p}
}

// HeaderPageID returns the header's self identifier.
func (hp HashTableHeaderPage) HeaderPageID() common.PageID {
	return common.PageID(binary.LittleEndian.Uint32(hp.Bytes[hashHeaderOffsetPageID:]))
}

// SetHeaderPageID records the header's self identifier.
func (hp HashTableHeaderPage) SetHeaderPageID(pageID common.PageID) {
	binary.LittleEndian.PutUint32(hp.Bytes[hashHeaderOffsetPageID:], uint32(pageID))
}

// LSN returns the log sequence number carried on the header, verbatim.
func (hp HashTableHeaderPage) LSN() common.LSN {
	return common.LSN(binary.LittleEndian.Uint64(hp.Bytes[hashHeaderOffsetLSN:]))
}

// SetLSN records the log sequence number, verbatim.
func (hp HashTableHeaderPage) SetLSN(lsn common.LSN) {
	binary.LittleEndian.PutUint64(hp.Bytes[hashHeaderOffsetLSN:], uint64(lsn))
}

// Size returns the table's logical slot count.
func (hp HashTableHeaderPage) Size() int {
	return int(binary.LittleEndian.Uint64(hp.Bytes[hashHeaderOffsetSize:]))
}

// SetSize records the table's logical slot count.
func (hp HashTableHeaderPage) SetSize(size int) {
	binary.LittleEndian.PutUint64(hp.Bytes[hashHeaderOffsetSize:], uint64(size))
}

// NumBlocks returns the number of block page ids recorded.
func (hp HashTableHeaderPage) NumBlocks() int {
	return int(binary.LittleEndian.Uint64(hp.Bytes[hashHeaderOffsetNextInd:]))
}

func (hp HashTableHeaderPage) setNumBlocks(n int) {
	binary.LittleEndian.PutUint64(hp.Bytes[hashHeaderOffsetNextInd:], uint64(n))
}

// BlockPageID returns the block page id at logical slot index, or 0 if the
// index is past the write cursor.
func (hp HashTableHeaderPage) BlockPageID(index int) common.PageID {
	if index < 0 || index >= hp.NumBlocks() {
		return 0
	}
	offset := hashHeaderSize + index*4
	return common.PageID(binary.LittleEndian.Uint32(hp.Bytes[offset:]))
}

// AddBlockPageID appends a block page id at the write cursor.
func (hp HashTableHeaderPage) AddBlockPageID(pageID common.PageID) {
	next := hp.NumBlocks()
	common.Assert(next < HashHeaderBlockCapacity, "header block directory full")
	offset := hashHeaderSize + next*4
	binary.LittleEndian.PutUint32(hp.Bytes[offset:], uint32(pageID))
	hp.setNumBlocks(next + 1)
}

// ResetBlockIndex rewinds the write cursor so the block directory can be
// rebuilt, as during a resize. The old ids remain as garbage past the
// cursor and are unreachable.
func (hp HashTableHeaderPage) ResetBlockIndex() {
	hp.setNumBlocks(0)
}
