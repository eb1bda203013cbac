package layout

import "github.com/andrehsu/blockfs/blockdev"

// FileStat summarizes a DiskInode the way callers outside this package want
// to see it, independent of the on-disk encoding.
type FileStat struct {
	InodeNumber uint32
	Nlinks      uint32
	IsDirectory bool
	Size        uint32
	BlockSize   uint32
	NumBlocks   uint32
}

// Stat builds a FileStat for inode, given its inode number and a link count
// computed by the caller (the disk inode itself doesn't store one).
func (inode *DiskInode) Stat(inodeNumber, nlinks uint32) FileStat {
	return FileStat{
		InodeNumber: inodeNumber,
		Nlinks:      nlinks,
		IsDirectory: inode.IsDir(),
		Size:        inode.Size,
		BlockSize:   blockdev.BlockSize,
		NumBlocks:   TotalBlocks(inode.Size),
	}
}
