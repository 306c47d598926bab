package storage

import "mit.edu/dsg/probedb/common"

// Replacer tracks the set of frames that are candidates for eviction and
// picks victims in the policy's order. The buffer pool reports pin state
// transitions to the replacer; the replacer never touches frame contents.
//
// Implementations must be safe for concurrent use.
type Replacer interface {
	// Victim removes and returns one candidate in the policy's order.
	// The second return value is false if the candidate set is empty.
	Victim() (common.FrameID, bool)

	// Pin removes the frame from the candidate set if present. A pinned
	// frame must not be handed out by Victim. Idempotent.
	Pin(frameID common.FrameID)

	// Unpin inserts the frame at the policy's tail, making it a candidate
	// for eviction. Idempotent if the frame is already a candidate.
	Unpin(frameID common.FrameID)

	// Size returns the count of current candidates.
	Size() int
}
