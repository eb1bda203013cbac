// Package layout defines the on-disk structures of the filesystem: the
// superblock, the disk inode with its direct/indirect block pointers, and
// the directory entry format. Every struct here is fixed-size and
// little-endian, decoded and encoded through encoding/binary by the cache
// package's Read and Modify helpers.
package layout

import "github.com/andrehsu/blockfs/blockdev"

// Magic identifies a block 0 as holding a valid superblock for this
// filesystem.
const Magic uint32 = 0x3b800001

const (
	// NumDirect is the number of direct block pointers held in a disk inode.
	NumDirect = 28

	// PointersPerBlock is the number of 4-byte block pointers that fit in one
	// block; it is the fan-out of both the single- and double-indirect
	// blocks.
	PointersPerBlock = blockdev.BlockSize / 4

	// MaxDataBlocks is the largest number of data blocks a single inode can
	// address: direct, plus one level of indirection, plus two.
	MaxDataBlocks = NumDirect + PointersPerBlock + PointersPerBlock*PointersPerBlock

	// NameMax is the longest name (in bytes) a directory entry can hold.
	NameMax = 27

	nameField = NameMax + 1 // +1 for a guaranteed trailing NUL.

	// DirentSize is the fixed size, in bytes, of one directory entry.
	DirentSize = nameField + 4

	// DiskInodeSize is the fixed size, in bytes, of one disk inode: size,
	// direct pointers, two indirect pointers, and a type tag, all u32.
	DiskInodeSize = 4 * (1 + NumDirect + 1 + 1 + 1)
)
