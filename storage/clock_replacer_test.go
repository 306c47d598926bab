package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mit.edu/dsg/probedb/common"
)

func TestClockReplacerVictimOrder(t *testing.T) {
	r := NewClockReplacer(8)

	_, ok := r.Victim()
	assert.False(t, ok, "empty replacer should have no victim")

	r.Unpin(1)
	r.Unpin(2)
	r.Unpin(3)
	assert.Equal(t, 3, r.Size())

	// Victims come out in insertion order.
	for _, want := range []common.FrameID{1, 2, 3} {
		got, ok := r.Victim()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, r.Size())
}

func TestClockReplacerPinRemovesCandidate(t *testing.T) {
	r := NewClockReplacer(8)

	r.Unpin(1)
	r.Unpin(2)
	r.Unpin(3)

	r.Pin(2)
	assert.Equal(t, 2, r.Size())

	got, ok := r.Victim()
	require.True(t, ok)
	assert.Equal(t, common.FrameID(1), got)
	got, ok = r.Victim()
	require.True(t, ok)
	assert.Equal(t, common.FrameID(3), got)

	_, ok = r.Victim()
	assert.False(t, ok)
}

func TestClockReplacerIdempotence(t *testing.T) {
	r := NewClockReplacer(4)

	// Double unpin keeps a single candidate in its original position.
	r.Unpin(1)
	r.Unpin(2)
	r.Unpin(1)
	assert.Equal(t, 2, r.Size())

	got, ok := r.Victim()
	require.True(t, ok)
	assert.Equal(t, common.FrameID(1), got)

	// Pinning an absent frame is a no-op.
	r.Pin(1)
	r.Pin(7)
	assert.Equal(t, 1, r.Size())
}

func TestClockReplacerReinsertGoesToTail(t *testing.T) {
	r := NewClockReplacer(4)

	r.Unpin(1)
	r.Unpin(2)
	r.Pin(1)
	r.Unpin(1)

	got, ok := r.Victim()
	require.True(t, ok)
	assert.Equal(t, common.FrameID(2), got, "re-unpinned frame must move behind older candidates")
	got, ok = r.Victim()
	require.True(t, ok)
	assert.Equal(t, common.FrameID(1), got)
}
