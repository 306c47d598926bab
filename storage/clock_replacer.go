package storage

import (
	"container/list"
	"sync"

	"mit.edu/dsg/probedb/common"
)

// ClockReplacer is a first-in-first-out rendering of the clock policy: the
// candidate set is an insertion-ordered queue and Victim always evicts the
// head. A frame that has been Unpinned and not subsequently Pinned is
// returned from Victim within one full sweep of the candidate set, which is
// the guarantee the buffer pool relies on.
type ClockReplacer struct {
	mu         sync.Mutex
	candidates *list.List
	// elements maps a candidate frame id to its queue node so Pin can remove
	// it in O(1). Membership in this map is the presence bit: a frame id is
	// in the map iff it is in the queue.
	elements map[common.FrameID]*list.Element
}

// NewClockReplacer creates a replacer able to track up to numFrames frames.
func NewClockReplacer(numFrames int) *ClockReplacer {
	common.Assert(numFrames > 0, "replacer must track at least one frame")
	return &ClockReplacer{
		candidates: list.New(),
		elements:   make(map[common.FrameID]*list.Element, numFrames),
	}
}

// Victim removes and returns the oldest candidate.
func (c *ClockReplacer) Victim() (common.FrameID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	front := c.candidates.Front()
	if front == nil {
		return 0, false
	}
	frameID := front.Value.(common.FrameID)
	c.candidates.Remove(front)
	delete(c.elements, frameID)
	return frameID, true
}

// Pin removes the frame from the candidate set. No-op if absent.
func (c *ClockReplacer) Pin(frameID common.FrameID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.elements[frameID]; ok {
		c.candidates.Remove(elem)
		delete(c.elements, frameID)
	}
}

// Unpin appends the frame to the candidate queue. No-op if already present.
func (c *ClockReplacer) Unpin(frameID common.FrameID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.elements[frameID]; ok {
		return
	}
	c.elements[frameID] = c.candidates.PushBack(frameID)
}

// Size returns the number of eviction candidates.
func (c *ClockReplacer) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.candidates.Len()
}
