package logging

import (
	"sync"
	"sync/atomic"

	"mit.edu/dsg/probedb/common"
)

// NoopLogManager is a no-op implementation of LogManager for use before
// recovery is relevant.
type NoopLogManager struct{}

func (n NoopLogManager) Append(record []byte) (common.LSN, error) {
	return 0, nil
}

func (n NoopLogManager) FlushedUntil() common.LSN {
	return 0
}

func (n NoopLogManager) Close() error {
	return nil
}

// MemoryLogManager is an in-memory implementation of LogManager for testing.
// It uses a single flat byte slice to store records to minimize allocation
// overhead.
type MemoryLogManager struct {
	mu           sync.Mutex
	buffer       []byte
	flushedUntil atomic.Int64
}

func NewMemoryLogManager() *MemoryLogManager {
	return &MemoryLogManager{
		buffer: make([]byte, 0, 4096),
	}
}

func (m *MemoryLogManager) Append(record []byte) (common.LSN, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lsn := len(m.buffer)
	m.buffer = append(m.buffer, record...)
	return common.LSN(lsn), nil
}

func (m *MemoryLogManager) FlushedUntil() common.LSN {
	return common.LSN(m.flushedUntil.Load())
}

// SetFlushedLSN simulates the background flusher catching up to lsn.
func (m *MemoryLogManager) SetFlushedLSN(lsn common.LSN) {
	m.flushedUntil.Store(int64(lsn))
}

func (m *MemoryLogManager) Close() error {
	return nil
}
