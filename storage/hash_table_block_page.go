package storage

import (
	"mit.edu/dsg/probedb/common"
)

// HashTableBlockPage is an in-page open-addressed bucket array. Slot state
// is encoded in two parallel bitmaps over fixed-width (key, value) slots:
//
//	occupied=0, readable=0 — empty, never used
//	occupied=1, readable=1 — live entry
//	occupied=1, readable=0 — tombstone: probes continue past it, inserts may reuse it
//
// Layout:
// Occupied bitmap | Readable bitmap | (Key, Value) slots
//
// Both bitmap regions are padded to 8 bytes so the word-level Bitmap view
// can be taken over them. Key and value widths come from the table's codecs;
// the slot count is whatever fits in one page (see HashBlockCapacity).
type HashTableBlockPage struct {
	*Page

	occupied  Bitmap
	readable  Bitmap
	keySize   int
	valueSize int
	numSlots  int
	slotStart int
}

// HashBlockCapacity returns the number of slots of the given byte width that
// fit in one block page alongside the two bitmaps.
func HashBlockCapacity(slotSize int) int {
	common.Assert(slotSize > 0, "slot size must be positive")
	n := common.PageSize / slotSize
	for n > 0 && 2*common.Align8((n+7)/8)+n*slotSize > common.PageSize {
		n--
	}
	common.Assert(n > 0, "slot of %d bytes does not fit a page", slotSize)
	return n
}

// AsHashTableBlockPage reinterprets the frame's bytes as a block page
// holding slots of keySize+valueSize bytes.
func (p *Page) AsHashTableBlockPage(keySize, valueSize int) HashTableBlockPage {
	numSlots := HashBlockCapacity(keySize + valueSize)
	bitmapBytes := common.Align8((numSlots + 7) / 8)

	bp := HashTableBlockPage{
		Page:      p,
		keySize:   keySize,
		valueSize: valueSize,
		numSlots:  numSlots,
		slotStart: 2 * bitmapBytes,
	}
	bp.occupied = AsBitmap(p.Bytes[:bitmapBytes], numSlots)
	bp.readable = AsBitmap(p.Bytes[bitmapBytes:2*bitmapBytes], numSlots)
	return bp
}

// NumSlots returns the bucket array's capacity.
func (bp HashTableBlockPage) NumSlots() int {
	return bp.numSlots
}

// IsOccupied reports whether the slot has ever held an entry (live or
// tombstone). Out-of-range indices are benignly unoccupied.
func (bp HashTableBlockPage) IsOccupied(index int) bool {
	if index < 0 || index >= bp.numSlots {
		return false
	}
	return bp.occupied.LoadBit(index)
}

// IsReadable reports whether the slot holds a live entry. Out-of-range
// indices are benignly unreadable.
func (bp HashTableBlockPage) IsReadable(index int) bool {
	if index < 0 || index >= bp.numSlots {
		return false
	}
	return bp.readable.LoadBit(index)
}

// KeyAt returns the slot's key bytes, or nil unless the slot is live.
func (bp HashTableBlockPage) KeyAt(index int) []byte {
	if !bp.IsReadable(index) {
		return nil
	}
	offset := bp.slotStart + index*(bp.keySize+bp.valueSize)
	return bp.Bytes[offset : offset+bp.keySize]
}

// ValueAt returns the slot's value bytes, or nil unless the slot is live.
func (bp HashTableBlockPage) ValueAt(index int) []byte {
	if !bp.IsReadable(index) {
		return nil
	}
	offset := bp.slotStart + index*(bp.keySize+bp.valueSize) + bp.keySize
	return bp.Bytes[offset : offset+bp.valueSize]
}

// Insert writes the pair into the slot iff it is empty or a tombstone.
// Returns false if the slot is live or the index is out of range.
func (bp HashTableBlockPage) Insert(index int, key, value []byte) bool {
	common.Assert(len(key) == bp.keySize && len(value) == bp.valueSize, "slot width mismatch")
	if index < 0 || index >= bp.numSlots {
		return false
	}
	if bp.readable.LoadBit(index) {
		return false
	}

	offset := bp.slotStart + index*(bp.keySize+bp.valueSize)
	copy(bp.Bytes[offset:], key)
	copy(bp.Bytes[offset+bp.keySize:], value)
	bp.occupied.SetBit(index, true)
	bp.readable.SetBit(index, true)
	return true
}

// Remove turns a live slot into a tombstone: readable is cleared, occupied
// stays set so probes continue past it. The key/value bytes are
// intentionally not wiped. Out-of-range indices are a benign no-op.
func (bp HashTableBlockPage) Remove(index int) {
	if index < 0 || index >= bp.numSlots {
		return
	}
	bp.readable.SetBit(index, false)
}
