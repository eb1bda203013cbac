package fs

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/hashicorp/go-multierror"

	"github.com/andrehsu/blockfs/cache"
	"github.com/andrehsu/blockfs/layout"
)

// Check walks every inode reachable from the root directory and reports
// every structural violation it finds, instead of stopping at the first one.
// It is read-only: a clean filesystem is left exactly as it was found.
//
// For each reachable inode it checks that the inode's bitmap bit is set,
// that every direct/indirect/indirect2 block pointer (including the
// indirect meta-blocks themselves) names a block inside the data area and
// marked allocated in the data bitmap, that no two inodes claim the same
// data block, and that every directory's size and dirent list are
// well-formed.
func (f *Filesystem) Check() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := &checker{
		fs:         f,
		seenInodes: bitmap.New(int(f.MaxInodes())),
		blockOwner: make(map[uint32]uint32),
	}
	c.walk(RootInodeNumber)
	return c.errs.ErrorOrNil()
}

type checker struct {
	fs         *Filesystem
	seenInodes bitmap.Bitmap
	blockOwner map[uint32]uint32
	errs       *multierror.Error
}

func (c *checker) fail(format string, args ...any) {
	c.errs = multierror.Append(c.errs, fmt.Errorf(format, args...))
}

// claimBlock checks that blockID lies in the data area and is marked
// allocated, and records inodeID as its owner, flagging any inode that
// already claimed it.
func (c *checker) claimBlock(inodeID, blockID uint32) {
	start, end := c.fs.dataAreaStart, c.fs.dataAreaStart+c.fs.dataAreaBlocks
	if blockID < start || blockID >= end {
		c.fail("inode %d: block pointer %d falls outside the data area [%d, %d)", inodeID, blockID, start, end)
		return
	}
	if !c.fs.DataBlockAllocated(blockID) {
		c.fail("inode %d: block %d is referenced but not marked allocated in the data bitmap", inodeID, blockID)
	}
	if owner, claimed := c.blockOwner[blockID]; claimed && owner != inodeID {
		c.fail("inode %d: block %d is also claimed by inode %d", inodeID, blockID, owner)
		return
	}
	c.blockOwner[blockID] = inodeID
}

func (c *checker) walk(inodeID uint32) {
	if inodeID >= c.fs.MaxInodes() {
		c.fail("inode %d: out of range for a table of %d inodes", inodeID, c.fs.MaxInodes())
		return
	}
	if c.seenInodes.Get(int(inodeID)) {
		return
	}
	c.seenInodes.Set(int(inodeID), true)

	if !c.fs.inodeBitmap.Get(c.fs.cache, inodeID) {
		c.fail("inode %d: reachable from the root but not marked allocated in the inode bitmap", inodeID)
	}

	blockID, offset := c.fs.GetDiskInodePos(inodeID)
	h := c.fs.cache.Get(blockID)
	var inode layout.DiskInode
	cache.Read(h, offset, func(v *layout.DiskInode) { inode = *v })
	h.Release()

	if inode.IsDir() && inode.Size%layout.DirentSize != 0 {
		c.fail("inode %d: directory size %d is not a multiple of the dirent size %d", inodeID, inode.Size, layout.DirentSize)
	}

	for _, id := range inode.MetaBlockIDs(c.fs.cache) {
		c.claimBlock(inodeID, id)
	}
	n := layout.DataBlocks(inode.Size)
	for i := uint32(0); i < n; i++ {
		c.claimBlock(inodeID, inode.BlockIDAt(i, c.fs.cache))
	}

	if !inode.IsDir() {
		return
	}

	count := int(inode.Size) / layout.DirentSize
	buf := make([]byte, layout.DirentSize)
	var d layout.Dirent
	seenNames := make(map[string]bool)
	for i := 0; i < count; i++ {
		got := inode.ReadAt(i*layout.DirentSize, buf, c.fs.cache)
		if got != layout.DirentSize {
			c.fail("inode %d: short read of dirent %d", inodeID, i)
			continue
		}
		if err := d.UnmarshalBinary(buf); err != nil {
			c.fail("inode %d: dirent %d: %v", inodeID, i, err)
			continue
		}
		if d.InodeNumber == 0 {
			continue
		}
		name := d.NameString()
		if seenNames[name] {
			c.fail("inode %d: duplicate directory entry %q", inodeID, name)
		}
		seenNames[name] = true
		c.walk(d.InodeNumber)
	}
}
