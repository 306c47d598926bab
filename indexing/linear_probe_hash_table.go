package indexing

import (
	"bytes"
	"sync"

	"mit.edu/dsg/probedb/common"
	"mit.edu/dsg/probedb/storage"
	"mit.edu/dsg/probedb/transaction"
)

// LinearProbeHashTable is a disk-backed open-addressing hash index. All of
// its state lives in pages owned by the buffer pool: one header page
// recording the block directory and logical size, and a set of block pages
// holding the (key, value) slots.
//
// Keys may be non-unique; the exact (key, value) pair is the unit of
// insertion and removal. A full table grows transparently: Insert never
// fails with a full condition, it resizes and retries.
//
// Latching is two-level. The table latch is held shared by every probe and
// exclusively by Resize while it swaps the block directory; individual
// slots are protected by the hosting page's content latch. The buffer
// pool's pin discipline applies throughout: every fetched page is unpinned
// on every path out of a probe.
type LinearProbeHashTable[K, V any] struct {
	bpm          *storage.BufferPoolManager
	headerPageID common.PageID
	cmp          Comparator[K]
	hash         HashFunc[K]
	keyCodec     Codec[K]
	valueCodec   Codec[V]
	// blockSlots is the slot capacity of one block page for this table's
	// key and value widths. The probe horizon is NumBlocks * blockSlots.
	blockSlots int

	tableLatch sync.RWMutex
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// NewLinearProbeHashTable allocates a new table sized for at least
// numBuckets logical slots. The header and block pages are allocated from
// the pool, registered in the header, and the header is flushed so the
// directory survives the pool.
func NewLinearProbeHashTable[K, V any](
	bpm *storage.BufferPoolManager,
	cmp Comparator[K],
	hash HashFunc[K],
	keyCodec Codec[K],
	valueCodec Codec[V],
	numBuckets int,
) (*LinearProbeHashTable[K, V], error) {
	common.Assert(numBuckets > 0, "hash table must have at least one bucket")

	ht := &LinearProbeHashTable[K, V]{
		bpm:        bpm,
		cmp:        cmp,
		hash:       hash,
		keyCodec:   keyCodec,
		valueCodec: valueCodec,
		blockSlots: storage.HashBlockCapacity(keyCodec.Size() + valueCodec.Size()),
	}

	headerPage, err := bpm.NewPage()
	if err != nil {
		return nil, err
	}
	ht.headerPageID = headerPage.PageID()
	header := headerPage.AsHashTableHeaderPage()
	header.SetHeaderPageID(ht.headerPageID)
	header.SetLSN(0)

	numBlocks := ceilDiv(numBuckets, ht.blockSlots)
	for i := 0; i < numBlocks; i++ {
		blockPage, err := bpm.NewPage()
		if err != nil {
			bpm.UnpinPage(ht.headerPageID, true)
			return nil, err
		}
		header.AddBlockPageID(blockPage.PageID())
		bpm.UnpinPage(blockPage.PageID(), true)
	}
	header.SetSize(numBlocks * ht.blockSlots)

	bpm.UnpinPage(ht.headerPageID, true)
	if _, err := bpm.FlushPage(ht.headerPageID); err != nil {
		return nil, err
	}
	return ht, nil
}

// OpenLinearProbeHashTable attaches to a table whose header page already
// exists, as after reopening the database file.
func OpenLinearProbeHashTable[K, V any](
	bpm *storage.BufferPoolManager,
	headerPageID common.PageID,
	cmp Comparator[K],
	hash HashFunc[K],
	keyCodec Codec[K],
	valueCodec Codec[V],
) (*LinearProbeHashTable[K, V], error) {
	ht := &LinearProbeHashTable[K, V]{
		bpm:          bpm,
		headerPageID: headerPageID,
		cmp:          cmp,
		hash:         hash,
		keyCodec:     keyCodec,
		valueCodec:   valueCodec,
		blockSlots:   storage.HashBlockCapacity(keyCodec.Size() + valueCodec.Size()),
	}

	headerPage, err := bpm.FetchPage(headerPageID)
	if err != nil {
		return nil, err
	}
	header := headerPage.AsHashTableHeaderPage()
	common.Assert(header.HeaderPageID() == headerPageID, "header page does not identify itself")
	common.Assert(header.Size() == header.NumBlocks()*ht.blockSlots,
		"header size disagrees with block directory; key/value widths changed?")
	bpm.UnpinPage(headerPageID, false)
	return ht, nil
}

// HeaderPageID returns the id of the table's header page, the handle needed
// to reopen the table later.
func (ht *LinearProbeHashTable[K, V]) HeaderPageID() common.PageID {
	return ht.headerPageID
}

// GetSize returns the table's logical slot count, the probe horizon.
func (ht *LinearProbeHashTable[K, V]) GetSize() int {
	ht.tableLatch.RLock()
	defer ht.tableLatch.RUnlock()

	headerPage, err := ht.bpm.FetchPage(ht.headerPageID)
	if err != nil {
		return 0
	}
	defer ht.bpm.UnpinPage(ht.headerPageID, false)
	return headerPage.AsHashTableHeaderPage().Size()
}

// NumBlocks returns the number of block pages currently in the directory.
func (ht *LinearProbeHashTable[K, V]) NumBlocks() int {
	ht.tableLatch.RLock()
	defer ht.tableLatch.RUnlock()

	headerPage, err := ht.bpm.FetchPage(ht.headerPageID)
	if err != nil {
		return 0
	}
	defer ht.bpm.UnpinPage(ht.headerPageID, false)
	return headerPage.AsHashTableHeaderPage().NumBlocks()
}

func (ht *LinearProbeHashTable[K, V]) fetchBlock(header storage.HashTableHeaderPage, i int) (storage.HashTableBlockPage, error) {
	page, err := ht.bpm.FetchPage(header.BlockPageID(i))
	if err != nil {
		return storage.HashTableBlockPage{}, err
	}
	return page.AsHashTableBlockPage(ht.keyCodec.Size(), ht.valueCodec.Size()), nil
}

// GetValue finds all values stored under key. Tombstones do not terminate
// the probe, so the walk visits the full horizon.
func (ht *LinearProbeHashTable[K, V]) GetValue(txn *transaction.TransactionContext, key K) ([]V, bool) {
	ht.tableLatch.RLock()
	defer ht.tableLatch.RUnlock()

	headerPage, err := ht.bpm.FetchPage(ht.headerPageID)
	if err != nil {
		return nil, false
	}
	defer ht.bpm.UnpinPage(ht.headerPageID, false)
	header := headerPage.AsHashTableHeaderPage()
	numBlocks := header.NumBlocks()
	common.Assert(numBlocks > 0, "hash table has no block pages")

	h := ht.hash(key)
	i0 := int(h % uint64(numBlocks))
	j0 := int(h % uint64(ht.blockSlots))

	var result []V
	i, j := i0, j0
	block, err := ht.fetchBlock(header, i)
	if err != nil {
		return nil, false
	}
	for {
		block.Latch.RLock()
		if block.IsReadable(j) && ht.cmp(ht.keyCodec.Decode(block.KeyAt(j)), key) == 0 {
			result = append(result, ht.valueCodec.Decode(block.ValueAt(j)))
		}
		block.Latch.RUnlock()

		j = (j + 1) % ht.blockSlots
		if j != j0 {
			continue
		}
		ht.bpm.UnpinPage(block.PageID(), false)
		i = (i + 1) % numBlocks
		if i == i0 {
			break
		}
		if block, err = ht.fetchBlock(header, i); err != nil {
			return result, len(result) > 0
		}
	}
	return result, len(result) > 0
}

// Insert adds the (key, value) pair. If the probe traverses the whole table
// without finding a reusable slot the table is grown and the insert retried
// once. A probe that reaches the exact pair live in its chain refuses it as
// a duplicate; a tombstone earlier in the chain is reused first, so a pair
// removed and re-added around a surviving twin can end up live twice.
func (ht *LinearProbeHashTable[K, V]) Insert(txn *transaction.TransactionContext, key K, value V) bool {
	// Grow-then-retry as a bounded loop: one growth is always enough to
	// open a slot, so a second full traversal means the pair is
	// uninsertable and we give up rather than recurse.
	for attempt := 0; ; attempt++ {
		ht.tableLatch.RLock()
		inserted, full := ht.insertLocked(txn, key, value)
		ht.tableLatch.RUnlock()
		if !full {
			return inserted
		}
		if attempt > 0 {
			return false
		}
		if err := ht.Resize(ht.GetSize()); err != nil {
			return false
		}
	}
}

// insertLocked probes for a slot with the table latch already held shared.
// The second result reports a full traversal with no empty or tombstone
// slot and no duplicate, which is the caller's cue to grow the table.
func (ht *LinearProbeHashTable[K, V]) insertLocked(txn *transaction.TransactionContext, key K, value V) (inserted, full bool) {
	keyBytes := make([]byte, ht.keyCodec.Size())
	ht.keyCodec.Encode(keyBytes, key)
	valueBytes := make([]byte, ht.valueCodec.Size())
	ht.valueCodec.Encode(valueBytes, value)

	headerPage, err := ht.bpm.FetchPage(ht.headerPageID)
	if err != nil {
		return false, false
	}
	defer ht.bpm.UnpinPage(ht.headerPageID, false)
	header := headerPage.AsHashTableHeaderPage()
	numBlocks := header.NumBlocks()
	common.Assert(numBlocks > 0, "hash table has no block pages")

	h := ht.hash(key)
	i0 := int(h % uint64(numBlocks))
	j0 := int(h % uint64(ht.blockSlots))

	i, j := i0, j0
	block, err := ht.fetchBlock(header, i)
	if err != nil {
		return false, false
	}
	for {
		block.Latch.Lock()
		if block.Insert(j, keyBytes, valueBytes) {
			block.Latch.Unlock()
			ht.bpm.UnpinPage(block.PageID(), true)
			return true, false
		}
		if block.IsReadable(j) &&
			ht.cmp(ht.keyCodec.Decode(block.KeyAt(j)), key) == 0 &&
			bytes.Equal(block.ValueAt(j), valueBytes) {
			// Exact duplicate; non-unique keys only differ by value.
			block.Latch.Unlock()
			ht.bpm.UnpinPage(block.PageID(), false)
			return false, false
		}
		block.Latch.Unlock()

		j = (j + 1) % ht.blockSlots
		if j != j0 {
			continue
		}
		ht.bpm.UnpinPage(block.PageID(), false)
		i = (i + 1) % numBlocks
		if i == i0 {
			return false, true
		}
		if block, err = ht.fetchBlock(header, i); err != nil {
			return false, false
		}
	}
}

// Remove deletes the exact (key, value) pair, leaving a tombstone so later
// probes keep walking past the slot. Returns false if the pair is absent.
func (ht *LinearProbeHashTable[K, V]) Remove(txn *transaction.TransactionContext, key K, value V) bool {
	ht.tableLatch.RLock()
	defer ht.tableLatch.RUnlock()

	valueBytes := make([]byte, ht.valueCodec.Size())
	ht.valueCodec.Encode(valueBytes, value)

	headerPage, err := ht.bpm.FetchPage(ht.headerPageID)
	if err != nil {
		return false
	}
	defer ht.bpm.UnpinPage(ht.headerPageID, false)
	header := headerPage.AsHashTableHeaderPage()
	numBlocks := header.NumBlocks()
	common.Assert(numBlocks > 0, "hash table has no block pages")

	h := ht.hash(key)
	i0 := int(h % uint64(numBlocks))
	j0 := int(h % uint64(ht.blockSlots))

	i, j := i0, j0
	block, err := ht.fetchBlock(header, i)
	if err != nil {
		return false
	}
	for {
		block.Latch.Lock()
		if block.IsReadable(j) &&
			ht.cmp(ht.keyCodec.Decode(block.KeyAt(j)), key) == 0 &&
			bytes.Equal(block.ValueAt(j), valueBytes) {
			block.Remove(j)
			block.Latch.Unlock()
			ht.bpm.UnpinPage(block.PageID(), true)
			return true
		}
		block.Latch.Unlock()

		j = (j + 1) % ht.blockSlots
		if j != j0 {
			continue
		}
		ht.bpm.UnpinPage(block.PageID(), false)
		i = (i + 1) % numBlocks
		if i == i0 {
			return false
		}
		if block, err = ht.fetchBlock(header, i); err != nil {
			return false
		}
	}
}

// Resize grows the table to at least 2*newSize logical slots: a fresh block
// directory is installed under the exclusive table latch, then the latch is
// downgraded to shared while every live entry of the old blocks is rehashed
// through the normal insert path. Tombstones are dropped; the old block
// pages are deleted. Growth is monotone; a hint that would shrink the table
// is ignored.
func (ht *LinearProbeHashTable[K, V]) Resize(newSize int) error {
	ht.tableLatch.Lock()

	headerPage, err := ht.bpm.FetchPage(ht.headerPageID)
	if err != nil {
		ht.tableLatch.Unlock()
		return err
	}
	header := headerPage.AsHashTableHeaderPage()

	if 2*newSize < header.Size() {
		ht.bpm.UnpinPage(ht.headerPageID, false)
		ht.tableLatch.Unlock()
		return nil
	}

	oldBlockIDs := make([]common.PageID, header.NumBlocks())
	for i := range oldBlockIDs {
		oldBlockIDs[i] = header.BlockPageID(i)
	}
	header.ResetBlockIndex()

	numBlocks := ceilDiv(2*newSize, ht.blockSlots)
	newBlockIDs := make([]common.PageID, 0, numBlocks)
	for i := 0; i < numBlocks; i++ {
		blockPage, err := ht.bpm.NewPage()
		if err != nil {
			// Roll the directory back so the table stays usable.
			header.ResetBlockIndex()
			for _, id := range oldBlockIDs {
				header.AddBlockPageID(id)
			}
			for _, id := range newBlockIDs {
				ht.bpm.DeletePage(id)
			}
			ht.bpm.UnpinPage(ht.headerPageID, true)
			ht.tableLatch.Unlock()
			return err
		}
		header.AddBlockPageID(blockPage.PageID())
		newBlockIDs = append(newBlockIDs, blockPage.PageID())
		ht.bpm.UnpinPage(blockPage.PageID(), true)
	}
	header.SetSize(numBlocks * ht.blockSlots)
	ht.bpm.UnpinPage(ht.headerPageID, true)

	// Re-topology is done; downgrade so concurrent probes run against the
	// new directory while we rehash.
	ht.tableLatch.Unlock()
	ht.tableLatch.RLock()
	defer ht.tableLatch.RUnlock()

	for _, oldID := range oldBlockIDs {
		page, err := ht.bpm.FetchPage(oldID)
		if err != nil {
			return err
		}
		block := page.AsHashTableBlockPage(ht.keyCodec.Size(), ht.valueCodec.Size())
		for j := 0; j < block.NumSlots(); j++ {
			if !block.IsReadable(j) {
				continue
			}
			k := ht.keyCodec.Decode(block.KeyAt(j))
			v := ht.valueCodec.Decode(block.ValueAt(j))
			_, full := ht.insertLocked(nil, k, v)
			common.Assert(!full, "resized table has no room for rehashed entries")
		}
		ht.bpm.UnpinPage(oldID, false)
		deleted := ht.bpm.DeletePage(oldID)
		common.Assert(deleted, "old block page still pinned after resize")
	}
	return nil
}
