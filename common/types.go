package common

import (
	"encoding/binary"
	"fmt"
)

const (
	// PageSize is the fixed size in bytes of every on-disk page and every
	// in-memory frame.
	PageSize int = 4096
)

// PageID uniquely identifies a page within the database file.
type PageID int32

// InvalidPageID marks a frame that currently hosts no page.
const InvalidPageID PageID = -1

// IsValid reports whether the PageID refers to an allocated page.
func (p PageID) IsValid() bool {
	return p >= 0
}

func (p PageID) String() string {
	return fmt.Sprintf("Page(%d)", int32(p))
}

// FrameID identifies a slot in the buffer pool. Frames are created once at
// pool construction and never freed; a FrameID is always in [0, poolSize).
type FrameID int32

// RecordID identifies a specific tuple (row) in the database via its PageID and Slot index.
type RecordID struct {
	PageID PageID
	Slot   int32
}

// RecordIDSize is the serialized size of a RecordID (PageID (4) + slot (4) = 8)
const RecordIDSize = 8

func (r *RecordID) String() string {
	return fmt.Sprintf("rid(%s, %d)", r.PageID.String(), r.Slot)
}

// WriteTo serializes the RecordID into the provided buffer. The buffer must be large enough to hold a RecordID.
func (r *RecordID) WriteTo(data []byte) {
	if len(data) < RecordIDSize {
		panic("buffer too small")
	}
	binary.LittleEndian.PutUint32(data, uint32(r.PageID))
	binary.LittleEndian.PutUint32(data[4:], uint32(r.Slot))
}

// LoadFrom deserializes a RecordID from the provided buffer. The buffer must be large enough to hold a RecordID.
func (r *RecordID) LoadFrom(data []byte) {
	if len(data) < RecordIDSize {
		panic("buffer too small")
	}
	r.PageID = PageID(binary.LittleEndian.Uint32(data))
	r.Slot = int32(binary.LittleEndian.Uint32(data[4:]))
}

type TransactionID uint64

const InvalidTransactionID TransactionID = 0

// LSN is a log sequence number, an opaque position in the write-ahead log.
type LSN int64

const InvalidLSN LSN = -1
