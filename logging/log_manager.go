package logging

import "mit.edu/dsg/probedb/common"

// LogManager is the opaque write-point of the system's write-ahead log.
// The storage substrate only appends records and carries the returned LSNs
// verbatim (e.g., on the hash table header page); it never interprets them.
// Recovery is out of scope for this layer.
type LogManager interface {
	// Append writes a serialized log record to the log buffer.
	// It returns the LSN (Log Sequence Number) assigned to the record.
	// Note: This does not guarantee the record is on disk yet.
	Append(record []byte) (common.LSN, error)

	// FlushedUntil returns the highest LSN that is currently known to be on
	// disk.
	FlushedUntil() common.LSN

	// Close cleans up file handles and ensures any pending buffers are flushed.
	Close() error
}
