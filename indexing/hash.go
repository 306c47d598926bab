package indexing

import (
	"github.com/cespare/xxhash/v2"

	"mit.edu/dsg/probedb/common"
)

// HashFunc maps a key to the 64-bit value that seeds the probe sequence.
type HashFunc[K any] func(k K) uint64

// XXHashOf builds the default hash function for a key type: xxhash over the
// codec's serialized form, so the hash seen at probe time matches the bytes
// stored in the slots.
func XXHashOf[K any](codec Codec[K]) HashFunc[K] {
	size := codec.Size()
	return func(k K) uint64 {
		buf := make([]byte, size)
		codec.Encode(buf, k)
		return xxhash.Sum64(buf)
	}
}

// FNVHashOf builds an allocation-light FNV-1a alternative, useful where the
// key width is tiny and hash quality matters less than speed.
func FNVHashOf[K any](codec Codec[K]) HashFunc[K] {
	size := codec.Size()
	return func(k K) uint64 {
		var stack [16]byte
		buf := stack[:]
		if size > len(stack) {
			buf = make([]byte, size)
		}
		codec.Encode(buf[:size], k)
		return common.Hash(buf[:size])
	}
}
