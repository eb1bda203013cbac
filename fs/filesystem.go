// Package fs ties together the block cache and the two bitmap allocators
// into the filesystem as a whole: it knows the on-disk layout, formats a
// fresh device, opens an existing one, and hands out inode and data block
// numbers to the vnode layer above it. A single mutex, held for the
// duration of every mutating (and, for simplicity, every reading) call,
// serializes all access to a Filesystem.
package fs

import (
	"github.com/andrehsu/blockfs/bitmap"
	"github.com/andrehsu/blockfs/blockdev"
	"github.com/andrehsu/blockfs/cache"
	"github.com/andrehsu/blockfs/layout"

	"sync"
)

// RootInodeNumber is the inode number of the filesystem root, always
// allocated first during Create.
const RootInodeNumber uint32 = 0

// Filesystem is one formatted, mounted filesystem over a block device.
type Filesystem struct {
	mu sync.Mutex

	cache *cache.Manager

	inodeBitmap *bitmap.Allocator
	dataBitmap  *bitmap.Allocator

	inodeAreaStart    uint32
	dataAreaStart     uint32
	totalBlocks       uint32
	inodeBitmapBlocks uint32
	inodeAreaBlocks   uint32
	dataBitmapBlocks  uint32
	dataAreaBlocks    uint32
}

func ceilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}

// Create formats device as a fresh filesystem of totalBlocks blocks, with
// inodeBitmapBlocks blocks reserved for the inode bitmap (which in turn
// determines how many inodes the filesystem can hold), and returns the
// filesystem positioned at its freshly-created, empty root directory.
func Create(device blockdev.Device, totalBlocks, inodeBitmapBlocks uint32) *Filesystem {
	mgr := cache.NewManager(device)

	inodeBitmap := bitmap.New(1, inodeBitmapBlocks)
	inodeNum := inodeBitmap.Maximum()
	inodeAreaBlocks := ceilDiv(inodeNum*layout.DiskInodeSize, blockdev.BlockSize)
	inodeTotalBlocks := inodeBitmapBlocks + inodeAreaBlocks

	if totalBlocks < 1+inodeTotalBlocks {
		panic("fs: not enough blocks for the requested inode table")
	}
	dataTotal := totalBlocks - 1 - inodeTotalBlocks
	dataBitmapBlocks := (dataTotal + bitmap.BitsPerBlock) / (bitmap.BitsPerBlock + 1)
	dataAreaBlocks := dataTotal - dataBitmapBlocks

	dataBitmap := bitmap.New(1+inodeBitmapBlocks+inodeAreaBlocks, dataBitmapBlocks)

	f := &Filesystem{
		cache:             mgr,
		inodeBitmap:       inodeBitmap,
		dataBitmap:        dataBitmap,
		inodeAreaStart:    1 + inodeBitmapBlocks,
		dataAreaStart:     1 + inodeBitmapBlocks + inodeAreaBlocks + dataBitmapBlocks,
		totalBlocks:       totalBlocks,
		inodeBitmapBlocks: inodeBitmapBlocks,
		inodeAreaBlocks:   inodeAreaBlocks,
		dataBitmapBlocks:  dataBitmapBlocks,
		dataAreaBlocks:    dataAreaBlocks,
	}

	for i := uint32(0); i < totalBlocks; i++ {
		h := mgr.Get(i)
		cache.ZeroBlock(h)
		h.Release()
	}

	h := mgr.Get(0)
	cache.Modify(h, 0, func(sb *layout.Superblock) {
		*sb = layout.Superblock{
			Magic:             layout.Magic,
			TotalBlocks:       totalBlocks,
			InodeBitmapBlocks: inodeBitmapBlocks,
			InodeAreaBlocks:   inodeAreaBlocks,
			DataBitmapBlocks:  dataBitmapBlocks,
			DataAreaBlocks:    dataAreaBlocks,
		}
	})
	h.Release()

	root := f.AllocInode()
	if root != RootInodeNumber {
		panic("fs: root directory did not get inode 0")
	}
	blockID, offset := f.GetDiskInodePos(root)
	h = mgr.Get(blockID)
	cache.Modify(h, offset, func(inode *layout.DiskInode) {
		inode.Initialize(layout.TypeDirectory)
	})
	h.Release()

	f.Flush()
	return f
}

// Open reconstructs a Filesystem from a device that was previously formatted
// with Create. A bad magic number means the device wasn't formatted by this
// filesystem, or block 0 has been corrupted, and Open panics rather than
// return a half-usable Filesystem.
func Open(device blockdev.Device) *Filesystem {
	mgr := cache.NewManager(device)

	var sb layout.Superblock
	h := mgr.Get(0)
	cache.Read(h, 0, func(v *layout.Superblock) { sb = *v })
	h.Release()

	if !sb.Valid() {
		panic("fs: bad magic number, device was not formatted by this filesystem")
	}

	return &Filesystem{
		cache:             mgr,
		inodeBitmap:       bitmap.New(1, sb.InodeBitmapBlocks),
		dataBitmap:        bitmap.New(1+sb.InodeBitmapBlocks+sb.InodeAreaBlocks, sb.DataBitmapBlocks),
		inodeAreaStart:    1 + sb.InodeBitmapBlocks,
		dataAreaStart:     1 + sb.InodeBitmapBlocks + sb.InodeAreaBlocks + sb.DataBitmapBlocks,
		totalBlocks:       sb.TotalBlocks,
		inodeBitmapBlocks: sb.InodeBitmapBlocks,
		inodeAreaBlocks:   sb.InodeAreaBlocks,
		dataBitmapBlocks:  sb.DataBitmapBlocks,
		dataAreaBlocks:    sb.DataAreaBlocks,
	}
}

// Lock acquires the filesystem-wide mutex. Every mutating vnode operation,
// and for simplicity every reading one too, holds it for its duration.
func (f *Filesystem) Lock() { f.mu.Lock() }

// Unlock releases the filesystem-wide mutex.
func (f *Filesystem) Unlock() { f.mu.Unlock() }

// Cache returns the cache manager backing this filesystem.
func (f *Filesystem) Cache() *cache.Manager { return f.cache }

// Flush writes every dirty cached block back to the device.
func (f *Filesystem) Flush() { f.cache.FlushAll() }

// InodeAreaStart returns the block id of the first inode-table block.
func (f *Filesystem) InodeAreaStart() uint32 { return f.inodeAreaStart }

// DataAreaStart returns the block id of the first data-area block.
func (f *Filesystem) DataAreaStart() uint32 { return f.dataAreaStart }

// DataAreaBlocks returns the number of blocks in the data area.
func (f *Filesystem) DataAreaBlocks() uint32 { return f.dataAreaBlocks }

// TotalBlocks returns the device's total block count.
func (f *Filesystem) TotalBlocks() uint32 { return f.totalBlocks }

// MaxInodes returns the number of inodes this filesystem can hold.
func (f *Filesystem) MaxInodes() uint32 { return f.inodeBitmap.Maximum() }

// GetDiskInodePos returns the block id and in-block byte offset of inode id.
func (f *Filesystem) GetDiskInodePos(id uint32) (uint32, int) {
	const inodesPerBlock = blockdev.BlockSize / layout.DiskInodeSize
	return f.inodeAreaStart + id/inodesPerBlock, int(id%inodesPerBlock) * layout.DiskInodeSize
}

// AllocInode reserves and returns a fresh inode number. It panics if the
// inode table is full.
func (f *Filesystem) AllocInode() uint32 {
	id, ok := f.inodeBitmap.Alloc(f.cache)
	if !ok {
		panic("fs: inode table exhausted")
	}
	return id
}

// AllocData reserves and returns a fresh, zeroed data block id. It panics if
// the data area is full.
func (f *Filesystem) AllocData() uint32 {
	id, ok := f.dataBitmap.Alloc(f.cache)
	if !ok {
		panic("fs: data area exhausted")
	}
	return f.dataAreaStart + id
}

// DataBlockAllocated reports whether blockID, an absolute block id in the
// data area, is currently marked allocated in the data bitmap.
func (f *Filesystem) DataBlockAllocated(blockID uint32) bool {
	return f.dataBitmap.Get(f.cache, blockID-f.dataAreaStart)
}

// DeallocData zeroes and releases a previously-allocated data block.
func (f *Filesystem) DeallocData(blockID uint32) {
	h := f.cache.Get(blockID)
	cache.ZeroBlock(h)
	h.Release()
	f.dataBitmap.Dealloc(f.cache, blockID-f.dataAreaStart)
}
