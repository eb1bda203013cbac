// Package vnode implements the directory and file operations exposed to
// callers: find, list, create, link, unlink, read, write, truncate, and
// stat. Every mutating operation — and, for simplicity, every read — holds
// the filesystem-wide lock for its duration, so nothing here does its own
// synchronization beyond that.
package vnode

import (
	"github.com/andrehsu/blockfs/blockdev"
	"github.com/andrehsu/blockfs/cache"
	"github.com/andrehsu/blockfs/fs"
	"github.com/andrehsu/blockfs/layout"
)

// Vnode is a handle on one inode: the block and offset of its DiskInode, and
// the filesystem it belongs to.
type Vnode struct {
	blockID uint32
	offset  int
	fs      *fs.Filesystem
}

// Root returns a Vnode for f's root directory.
func Root(f *fs.Filesystem) *Vnode {
	blockID, offset := f.GetDiskInodePos(fs.RootInodeNumber)
	return &Vnode{blockID: blockID, offset: offset, fs: f}
}

func (v *Vnode) forInode(id uint32) *Vnode {
	blockID, offset := v.fs.GetDiskInodePos(id)
	return &Vnode{blockID: blockID, offset: offset, fs: v.fs}
}

func (v *Vnode) readInode() layout.DiskInode {
	h := v.fs.Cache().Get(v.blockID)
	defer h.Release()
	var inode layout.DiskInode
	cache.Read(h, v.offset, func(x *layout.DiskInode) { inode = *x })
	return inode
}

func (v *Vnode) modifyInode(fn func(*layout.DiskInode)) {
	h := v.fs.Cache().Get(v.blockID)
	defer h.Release()
	cache.Modify(h, v.offset, fn)
}

// InodeNumber recovers this vnode's inode number from its (block, offset)
// position, the inverse of Filesystem.GetDiskInodePos.
func (v *Vnode) InodeNumber() uint32 {
	const inodesPerBlock = blockdev.BlockSize / layout.DiskInodeSize
	return (v.blockID-v.fs.InodeAreaStart())*inodesPerBlock + uint32(v.offset/layout.DiskInodeSize)
}

// findLocked scans inode's dirents for name. The caller must already hold
// the filesystem lock and inode must be a directory.
func (v *Vnode) findLocked(name string, inode *layout.DiskInode) (uint32, bool) {
	count := int(inode.Size) / layout.DirentSize
	buf := make([]byte, layout.DirentSize)
	var d layout.Dirent
	for i := 0; i < count; i++ {
		n := inode.ReadAt(i*layout.DirentSize, buf, v.fs.Cache())
		if n != layout.DirentSize {
			panic("vnode: short dirent read")
		}
		if err := d.UnmarshalBinary(buf); err != nil {
			panic(err)
		}
		if d.InodeNumber != 0 && d.NameString() == name {
			return d.InodeNumber, true
		}
	}
	return 0, false
}

// Find looks up name in the directory v and returns a Vnode for it.
func (v *Vnode) Find(name string) (*Vnode, bool) {
	v.fs.Lock()
	defer v.fs.Unlock()

	inode := v.readInode()
	if !inode.IsDir() {
		panic("vnode: Find called on a non-directory")
	}
	id, ok := v.findLocked(name, &inode)
	if !ok {
		return nil, false
	}
	return v.forInode(id), true
}

// Ls returns every name in the directory v, in dirent order. Names left
// behind by an unlink that wasn't the directory's last entry are never
// visible here because Unlinkat always compacts them away; a name is only
// ever absent, not present with a dangling inode number.
func (v *Vnode) Ls() []string {
	v.fs.Lock()
	defer v.fs.Unlock()

	inode := v.readInode()
	if !inode.IsDir() {
		panic("vnode: Ls called on a non-directory")
	}
	count := int(inode.Size) / layout.DirentSize
	names := make([]string, 0, count)
	buf := make([]byte, layout.DirentSize)
	var d layout.Dirent
	for i := 0; i < count; i++ {
		inode.ReadAt(i*layout.DirentSize, buf, v.fs.Cache())
		if err := d.UnmarshalBinary(buf); err != nil {
			panic(err)
		}
		names = append(names, d.NameString())
	}
	return names
}

// growLocked allocates whatever new blocks are needed to reach newSize and
// splices them into inode. The caller must already hold the filesystem lock.
func (v *Vnode) growLocked(inode *layout.DiskInode, newSize uint32) {
	if newSize <= inode.Size {
		return
	}
	needed := inode.BlocksNumNeeded(newSize)
	blocks := make([]uint32, needed)
	for i := range blocks {
		blocks[i] = v.fs.AllocData()
	}
	inode.IncreaseSize(newSize, blocks, v.fs.Cache())
}

// shrinkLocked frees whatever blocks become unreachable when inode is
// truncated to newSize. The caller must already hold the filesystem lock.
func (v *Vnode) shrinkLocked(inode *layout.DiskInode, newSize uint32) {
	if newSize >= inode.Size {
		return
	}
	for _, b := range inode.DecreaseSize(newSize, v.fs.Cache()) {
		v.fs.DeallocData(b)
	}
}

// appendDirentLocked grows v's directory by one entry and writes it. The
// caller must already hold the filesystem lock and v must be a directory.
func (v *Vnode) appendDirentLocked(name string, inodeNumber uint32) {
	v.modifyInode(func(dirInode *layout.DiskInode) {
		count := int(dirInode.Size) / layout.DirentSize
		v.growLocked(dirInode, uint32((count+1)*layout.DirentSize))
		d := layout.NewDirent(name, inodeNumber)
		b, err := d.MarshalBinary()
		if err != nil {
			panic(err)
		}
		dirInode.WriteAt(count*layout.DirentSize, b, v.fs.Cache())
	})
}

// Create makes a new, empty file named name in directory v and returns its
// Vnode. It reports false if name already exists.
func (v *Vnode) Create(name string) (*Vnode, bool) {
	v.fs.Lock()
	defer v.fs.Unlock()

	inode := v.readInode()
	if !inode.IsDir() {
		panic("vnode: Create called on a non-directory")
	}
	if _, exists := v.findLocked(name, &inode); exists {
		return nil, false
	}

	newID := v.fs.AllocInode()
	newBlockID, newOffset := v.fs.GetDiskInodePos(newID)
	h := v.fs.Cache().Get(newBlockID)
	cache.Modify(h, newOffset, func(ino *layout.DiskInode) { ino.Initialize(layout.TypeFile) })
	h.Release()

	v.appendDirentLocked(name, newID)
	v.fs.Flush()

	return &Vnode{blockID: newBlockID, offset: newOffset, fs: v.fs}, true
}

// Linkat adds newname as another name for whatever oldname currently
// resolves to in v. It does not check whether newname already exists, and
// does not distinguish files from directories: linking a directory a second
// time is not prevented here. Returns 0 on success, -1 if oldname does not
// exist.
func (v *Vnode) Linkat(oldname, newname string) int {
	v.fs.Lock()
	defer v.fs.Unlock()

	inode := v.readInode()
	if !inode.IsDir() {
		panic("vnode: Linkat called on a non-directory")
	}
	id, ok := v.findLocked(oldname, &inode)
	if !ok {
		return -1
	}

	v.appendDirentLocked(newname, id)
	return 0
}

// Unlinkat removes name from directory v. If name is found anywhere but the
// last slot, its slot is overwritten with the directory's last entry and the
// directory shrinks by one dirent — so the matched entry's old inode number
// is only ever physically removed by being overwritten with live data, not
// zeroed in place. This never frees the target inode or its data blocks;
// that remains the caller's responsibility, and today nothing reclaims it,
// so unlinking a file's last name leaks its inode and blocks.
// Returns 0 on success, -1 if name is not found.
func (v *Vnode) Unlinkat(name string) int {
	v.fs.Lock()
	defer v.fs.Unlock()

	result := -1
	v.modifyInode(func(dirInode *layout.DiskInode) {
		if !dirInode.IsDir() {
			panic("vnode: Unlinkat called on a non-directory")
		}
		count := int(dirInode.Size) / layout.DirentSize
		buf := make([]byte, layout.DirentSize)
		var d layout.Dirent
		for i := 0; i < count; i++ {
			dirInode.ReadAt(i*layout.DirentSize, buf, v.fs.Cache())
			if err := d.UnmarshalBinary(buf); err != nil {
				panic(err)
			}
			if d.NameString() != name {
				continue
			}
			last := make([]byte, layout.DirentSize)
			dirInode.ReadAt((count-1)*layout.DirentSize, last, v.fs.Cache())
			dirInode.WriteAt(i*layout.DirentSize, last, v.fs.Cache())
			v.shrinkLocked(dirInode, uint32((count-1)*layout.DirentSize))
			result = 0
			return
		}
	})
	return result
}

// ReadAt reads from v's data into buf starting at offset and returns the
// number of bytes read.
func (v *Vnode) ReadAt(offset int, buf []byte) int {
	v.fs.Lock()
	defer v.fs.Unlock()
	inode := v.readInode()
	return inode.ReadAt(offset, buf, v.fs.Cache())
}

// WriteAt writes buf into v's data starting at offset, growing v if
// necessary, and returns the number of bytes written.
func (v *Vnode) WriteAt(offset int, buf []byte) int {
	v.fs.Lock()
	defer v.fs.Unlock()

	var n int
	v.modifyInode(func(inode *layout.DiskInode) {
		v.growLocked(inode, uint32(offset+len(buf)))
		n = inode.WriteAt(offset, buf, v.fs.Cache())
	})
	v.fs.Flush()
	return n
}

// Clear truncates v to zero length, freeing every data block it occupied.
func (v *Vnode) Clear() {
	v.fs.Lock()
	defer v.fs.Unlock()

	v.modifyInode(func(inode *layout.DiskInode) {
		for _, b := range inode.ClearSize(v.fs.Cache()) {
			v.fs.DeallocData(b)
		}
	})
	v.fs.Flush()
}

// Stat returns the inode number and whether v is a directory.
func (v *Vnode) Stat() (uint32, bool) {
	v.fs.Lock()
	defer v.fs.Unlock()
	inode := v.readInode()
	return v.InodeNumber(), inode.IsDir()
}

// FileStat returns a full layout.FileStat for v, with its link count
// computed by scanning the parent directory.
func (v *Vnode) FileStat(parent *Vnode) layout.FileStat {
	v.fs.Lock()
	defer v.fs.Unlock()
	inode := v.readInode()
	inodeNumber := v.InodeNumber()
	nlinks := uint32(0)
	if parent != nil {
		parentInode := parent.readInode()
		count := int(parentInode.Size) / layout.DirentSize
		buf := make([]byte, layout.DirentSize)
		var d layout.Dirent
		for i := 0; i < count; i++ {
			parentInode.ReadAt(i*layout.DirentSize, buf, v.fs.Cache())
			if err := d.UnmarshalBinary(buf); err != nil {
				panic(err)
			}
			if d.InodeNumber == inodeNumber {
				nlinks++
			}
		}
	}
	return inode.Stat(inodeNumber, nlinks)
}

// Nlink counts how many entries in directory v refer to inodeNumber.
func (v *Vnode) Nlink(inodeNumber uint32) int {
	v.fs.Lock()
	defer v.fs.Unlock()

	inode := v.readInode()
	if !inode.IsDir() {
		panic("vnode: Nlink called on a non-directory")
	}
	count := int(inode.Size) / layout.DirentSize
	buf := make([]byte, layout.DirentSize)
	var d layout.Dirent
	n := 0
	for i := 0; i < count; i++ {
		inode.ReadAt(i*layout.DirentSize, buf, v.fs.Cache())
		if err := d.UnmarshalBinary(buf); err != nil {
			panic(err)
		}
		if d.InodeNumber == inodeNumber {
			n++
		}
	}
	return n
}
