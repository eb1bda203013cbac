package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrehsu/blockfs/blockdev"
	"github.com/andrehsu/blockfs/cache"
	"github.com/andrehsu/blockfs/layout"
)

func newManager(t *testing.T, blocks uint32) *cache.Manager {
	t.Helper()
	dev := blockdev.NewInMemory(make([]byte, uint64(blocks)*blockdev.BlockSize))
	return cache.NewManager(dev)
}

// allocSequential hands out blocks 1, 2, 3, ... so tests don't need a real
// bitmap allocator to exercise IncreaseSize/DecreaseSize.
type allocSequential struct{ next uint32 }

func (a *allocSequential) take(n uint32) []uint32 {
	ids := make([]uint32, n)
	for i := range ids {
		a.next++
		ids[i] = a.next
	}
	return ids
}

func TestTotalBlocksCrossesDirectThreshold(t *testing.T) {
	assert.Equal(t, uint32(0), layout.TotalBlocks(0))
	assert.Equal(t, uint32(1), layout.TotalBlocks(1))
	assert.Equal(t, uint32(layout.NumDirect), layout.TotalBlocks(layout.NumDirect*blockdev.BlockSize))
	// One more byte needs a 29th data block, plus the indirect1 meta block.
	assert.Equal(t, uint32(layout.NumDirect+2), layout.TotalBlocks(layout.NumDirect*blockdev.BlockSize+1))
}

func TestIncreaseSizeThenReadAtRoundTrips(t *testing.T) {
	mgr := newManager(t, 4096)
	alloc := &allocSequential{}

	var inode layout.DiskInode
	inode.Initialize(layout.TypeFile)

	payload := []byte("hello, block filesystem")
	newSize := uint32(len(payload))
	needed := inode.BlocksNumNeeded(newSize)
	inode.IncreaseSize(newSize, alloc.take(needed), mgr)
	inode.WriteAt(0, payload, mgr)

	buf := make([]byte, len(payload))
	n := inode.ReadAt(0, buf, mgr)
	require.Equal(t, len(payload), n)
	assert.Equal(t, payload, buf)
}

func TestIncreaseSizeAcrossIndirectBoundary(t *testing.T) {
	mgr := newManager(t, 4096)
	alloc := &allocSequential{}

	var inode layout.DiskInode
	inode.Initialize(layout.TypeFile)

	// Grow well past the direct region, into the single-indirect region.
	newSize := uint32((layout.NumDirect + 10) * blockdev.BlockSize)
	needed := inode.BlocksNumNeeded(newSize)
	inode.IncreaseSize(newSize, alloc.take(needed), mgr)

	payload := make([]byte, blockdev.BlockSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	offset := (layout.NumDirect + 5) * blockdev.BlockSize
	inode.WriteAt(offset, payload, mgr)

	buf := make([]byte, blockdev.BlockSize)
	n := inode.ReadAt(offset, buf, mgr)
	require.Equal(t, len(payload), n)
	assert.Equal(t, payload, buf)
}

func TestClearSizeFreesExactlyTotalBlocks(t *testing.T) {
	mgr := newManager(t, 4096)
	alloc := &allocSequential{}

	var inode layout.DiskInode
	inode.Initialize(layout.TypeFile)

	size := uint32((layout.NumDirect + 3) * blockdev.BlockSize)
	inode.IncreaseSize(size, alloc.take(inode.BlocksNumNeeded(size)), mgr)

	want := layout.TotalBlocks(inode.Size)
	freed := inode.ClearSize(mgr)
	assert.Len(t, freed, int(want))
	assert.Equal(t, uint32(0), inode.Size)
}

func TestDirentRoundTrip(t *testing.T) {
	d := layout.NewDirent("report.txt", 7)
	buf, err := d.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, layout.DirentSize)

	var got layout.Dirent
	require.NoError(t, got.UnmarshalBinary(buf))
	assert.Equal(t, "report.txt", got.NameString())
	assert.Equal(t, uint32(7), got.InodeNumber)
}
