package indexing

import (
	"encoding/binary"

	"mit.edu/dsg/probedb/common"
)

// Codec serializes values of a fixed-width type into the byte slots of an
// on-disk index page. The index stores keys and values by value: every slot
// holds exactly Size() bytes and Decode must round-trip what Encode wrote.
type Codec[T any] interface {
	// Size returns the fixed serialized width in bytes.
	Size() int
	// Encode writes v into dst, which holds at least Size() bytes.
	Encode(dst []byte, v T)
	// Decode reads a value back from src, which holds at least Size() bytes.
	Decode(src []byte) T
}

// Int64Codec serializes int64 keys or values as 8 little-endian bytes.
type Int64Codec struct{}

func (Int64Codec) Size() int { return 8 }

func (Int64Codec) Encode(dst []byte, v int64) {
	binary.LittleEndian.PutUint64(dst, uint64(v))
}

func (Int64Codec) Decode(src []byte) int64 {
	return int64(binary.LittleEndian.Uint64(src))
}

// RecordIDCodec serializes common.RecordID index values, the payload of a
// secondary index over a heap table.
type RecordIDCodec struct{}

func (RecordIDCodec) Size() int { return common.RecordIDSize }

func (RecordIDCodec) Encode(dst []byte, v common.RecordID) {
	v.WriteTo(dst)
}

func (RecordIDCodec) Decode(src []byte) common.RecordID {
	var rid common.RecordID
	rid.LoadFrom(src)
	return rid
}

// Comparator reports the ordering of two keys: negative, zero, or positive.
// The index core only relies on the == 0 case.
type Comparator[K any] func(a, b K) int

// Int64Comparator orders int64 keys numerically.
func Int64Comparator(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
