package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mit.edu/dsg/probedb/common"
)

func newTestDiskManager(t *testing.T) *FileDiskManager {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "test.db"), os.O_RDWR|os.O_CREATE, 0666)
	require.NoError(t, err)
	dm, err := NewFileDiskManager(f)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	return dm
}

func pageFilledWith(b byte) []byte {
	page := make([]byte, common.PageSize)
	for i := range page {
		page[i] = b
	}
	return page
}

func TestDiskManagerReadWriteRoundTrip(t *testing.T) {
	dm := newTestDiskManager(t)

	p0, err := dm.AllocatePage()
	require.NoError(t, err)
	p1, err := dm.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, common.PageID(0), p0)
	assert.Equal(t, common.PageID(1), p1)
	assert.Equal(t, 2, dm.NumPages())

	want := pageFilledWith('x')
	require.NoError(t, dm.WritePage(p1, want))

	got := make([]byte, common.PageSize)
	require.NoError(t, dm.ReadPage(p1, got))
	assert.True(t, bytes.Equal(want, got))

	// A never-written page reads back as zeros.
	require.NoError(t, dm.ReadPage(p0, got))
	assert.True(t, bytes.Equal(make([]byte, common.PageSize), got))
}

func TestDiskManagerBoundsChecked(t *testing.T) {
	dm := newTestDiskManager(t)

	buf := make([]byte, common.PageSize)
	assert.Error(t, dm.ReadPage(0, buf), "read past the end of the file must fail")
	assert.Error(t, dm.WritePage(5, buf), "write cannot extend the file")
}

func TestDiskManagerDeallocateReusesPages(t *testing.T) {
	dm := newTestDiskManager(t)

	var ids []common.PageID
	for i := 0; i < 4; i++ {
		id, err := dm.AllocatePage()
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.Equal(t, 4, dm.NumPages())

	dm.DeallocatePage(ids[1])
	dm.DeallocatePage(ids[3])

	// Reuse the lowest free page first; the file does not grow.
	id, err := dm.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, ids[1], id)
	id, err = dm.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, ids[3], id)
	assert.Equal(t, 4, dm.NumPages())

	// Exhausted free set extends the file again.
	id, err = dm.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, common.PageID(4), id)

	// Deallocating nonsense is benign.
	dm.DeallocatePage(common.PageID(99))
	dm.DeallocatePage(common.InvalidPageID)
}

func TestDiskManagerReopenKeepsPages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.db")

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	require.NoError(t, err)
	dm, err := NewFileDiskManager(f)
	require.NoError(t, err)

	id, err := dm.AllocatePage()
	require.NoError(t, err)
	require.NoError(t, dm.WritePage(id, pageFilledWith('r')))
	require.NoError(t, dm.Sync())
	require.NoError(t, dm.Close())

	f, err = os.OpenFile(path, os.O_RDWR, 0666)
	require.NoError(t, err)
	dm, err = NewFileDiskManager(f)
	require.NoError(t, err)
	defer dm.Close()

	assert.Equal(t, 1, dm.NumPages())
	got := make([]byte, common.PageSize)
	require.NoError(t, dm.ReadPage(id, got))
	assert.True(t, bytes.Equal(pageFilledWith('r'), got))

	// Existing pages count as allocated: a new allocation extends the file.
	next, err := dm.AllocatePage()
	require.NoError(t, err)
	assert.Equal(t, common.PageID(1), next)
}

func TestRegistryCachesAndDeletes(t *testing.T) {
	reg := NewRegistry(t.TempDir())

	a, err := reg.Get("accounts")
	require.NoError(t, err)
	b, err := reg.Get("accounts")
	require.NoError(t, err)
	assert.Same(t, a, b, "registry must hand out one manager per name")

	other, err := reg.Get("orders")
	require.NoError(t, err)
	assert.NotSame(t, a, other)

	_, err = a.AllocatePage()
	require.NoError(t, err)

	require.NoError(t, reg.Delete("accounts"))

	// A fresh Get reopens an empty file.
	a2, err := reg.Get("accounts")
	require.NoError(t, err)
	assert.Equal(t, 0, a2.NumPages())
}
