package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrehsu/blockfs/blockdev"
	"github.com/andrehsu/blockfs/cache"
)

func newDevice(t *testing.T, totalBlocks uint32) *blockdev.InMemory {
	t.Helper()
	return blockdev.NewInMemory(make([]byte, uint64(totalBlocks)*blockdev.BlockSize))
}

func TestManagerGetReturnsSameEntryForSameBlock(t *testing.T) {
	dev := newDevice(t, 4)
	mgr := cache.NewManager(dev)

	h1 := mgr.Get(2)
	cache.Modify(h1, 0, func(v *uint32) { *v = 42 })
	h1.Release()

	h2 := mgr.Get(2)
	var got uint32
	cache.Read(h2, 0, func(v *uint32) { got = *v })
	h2.Release()

	assert.Equal(t, uint32(42), got)
	assert.Equal(t, 1, mgr.Len())
}

func TestManagerFlushAllWritesThroughToDevice(t *testing.T) {
	dev := newDevice(t, 1)
	mgr := cache.NewManager(dev)

	h := mgr.Get(0)
	cache.Modify(h, 0, func(v *uint32) { *v = 0xdeadbeef })
	h.Release()
	mgr.FlushAll()

	mgr2 := cache.NewManager(dev)
	h2 := mgr2.Get(0)
	var got uint32
	cache.Read(h2, 0, func(v *uint32) { got = *v })
	h2.Release()
	assert.Equal(t, uint32(0xdeadbeef), got)
}

func TestManagerEvictsOldestUnreferencedEntry(t *testing.T) {
	dev := newDevice(t, cache.Capacity+1)
	mgr := cache.NewManager(dev)

	for i := uint32(0); i < cache.Capacity; i++ {
		h := mgr.Get(i)
		h.Release()
	}
	require.Equal(t, cache.Capacity, mgr.Len())

	// block 0 should now be evicted to make room for block Capacity.
	h := mgr.Get(cache.Capacity)
	h.Release()
	assert.Equal(t, cache.Capacity, mgr.Len())
}

func TestManagerPanicsWhenEveryEntryIsHeld(t *testing.T) {
	dev := newDevice(t, cache.Capacity+1)
	mgr := cache.NewManager(dev)

	handles := make([]*cache.Handle, cache.Capacity)
	for i := uint32(0); i < cache.Capacity; i++ {
		handles[i] = mgr.Get(i)
	}
	defer func() {
		for _, h := range handles {
			h.Release()
		}
	}()

	assert.Panics(t, func() {
		mgr.Get(cache.Capacity)
	})
}

func TestHandleReleaseIsIdempotent(t *testing.T) {
	dev := newDevice(t, 1)
	mgr := cache.NewManager(dev)
	h := mgr.Get(0)
	h.Release()
	assert.NotPanics(t, func() { h.Release() })
}
