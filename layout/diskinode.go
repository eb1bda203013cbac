package layout

import (
	"github.com/andrehsu/blockfs/blockdev"
	"github.com/andrehsu/blockfs/cache"
)

// Type distinguishes a file inode from a directory inode. Nothing else
// (symlinks, devices, permissions) is represented.
type Type uint32

const (
	TypeFile Type = iota
	TypeDirectory
)

// DiskInode is the fixed-size, on-disk representation of one file or
// directory: its byte size, up to NumDirect direct block pointers, one
// single-indirect and one double-indirect pointer, and a type tag. All block
// allocation happens one level up, in fs.Filesystem; DiskInode only knows how
// to splice already-allocated block ids into its own address structure and
// to read and write through it.
type DiskInode struct {
	Size      uint32
	Direct    [NumDirect]uint32
	Indirect1 uint32
	Indirect2 uint32
	Type      Type
}

// Initialize resets inode to an empty inode of the given type, with size 0
// and every block pointer set to 0.
func (inode *DiskInode) Initialize(t Type) {
	inode.Size = 0
	inode.Direct = [NumDirect]uint32{}
	inode.Indirect1 = 0
	inode.Indirect2 = 0
	inode.Type = t
}

// IsDir reports whether inode represents a directory.
func (inode *DiskInode) IsDir() bool { return inode.Type == TypeDirectory }

// IsFile reports whether inode represents a plain file.
func (inode *DiskInode) IsFile() bool { return inode.Type == TypeFile }

// DataBlocks returns the number of payload blocks an inode of the given byte
// size occupies, not counting any indirect meta-blocks.
func DataBlocks(size uint32) uint32 {
	return (size + blockdev.BlockSize - 1) / blockdev.BlockSize
}

// TotalBlocks returns the number of blocks an inode of the given byte size
// occupies, counting payload blocks and any indirect blocks needed to
// address them.
func TotalBlocks(size uint32) uint32 {
	n := DataBlocks(size)
	total := n
	if n > NumDirect {
		total++
	}
	if n > NumDirect+PointersPerBlock {
		total++
		rem := n - NumDirect - PointersPerBlock
		total += (rem + PointersPerBlock - 1) / PointersPerBlock
	}
	return total
}

// BlocksNumNeeded returns how many additional blocks growing to newSize
// would require, including any newly-needed indirect blocks. newSize must be
// at least inode.Size.
func (inode *DiskInode) BlocksNumNeeded(newSize uint32) uint32 {
	if newSize < inode.Size {
		panic("layout: BlocksNumNeeded called with a smaller size")
	}
	return TotalBlocks(newSize) - TotalBlocks(inode.Size)
}

func pointerAt(h *cache.Handle, index uint32) uint32 {
	var v uint32
	cache.Read(h, int(index)*4, func(p *uint32) { v = *p })
	return v
}

func setPointerAt(h *cache.Handle, index uint32, value uint32) {
	cache.Modify(h, int(index)*4, func(p *uint32) { *p = value })
}

// BlockIDAt resolves the logical data-block index i (0-based, within the
// inode's own address space) to a physical block id on the device.
func (inode *DiskInode) BlockIDAt(i uint32, mgr *cache.Manager) uint32 {
	switch {
	case i < NumDirect:
		return inode.Direct[i]
	case i < NumDirect+PointersPerBlock:
		h := mgr.Get(inode.Indirect1)
		defer h.Release()
		return pointerAt(h, i-NumDirect)
	default:
		j := i - NumDirect - PointersPerBlock
		a, b := j/PointersPerBlock, j%PointersPerBlock
		h2 := mgr.Get(inode.Indirect2)
		lvl1 := pointerAt(h2, a)
		h2.Release()
		h1 := mgr.Get(lvl1)
		defer h1.Release()
		return pointerAt(h1, b)
	}
}

// MetaBlockIDs returns the block ids of every indirect-addressing block this
// inode currently uses: Indirect1 (if any payload is addressed through it),
// Indirect2 (if any payload is addressed through it), and each second-level
// indirect1 block Indirect2 itself points to. These hold pointers, not file
// data, but they occupy real blocks in the data area and consume a data
// bitmap bit like any other allocated block.
func (inode *DiskInode) MetaBlockIDs(mgr *cache.Manager) []uint32 {
	n := DataBlocks(inode.Size)
	var ids []uint32
	if n <= NumDirect {
		return ids
	}
	ids = append(ids, inode.Indirect1)
	if n <= NumDirect+PointersPerBlock {
		return ids
	}
	ids = append(ids, inode.Indirect2)

	groups := ceilDivU32(n-NumDirect-PointersPerBlock, PointersPerBlock)
	h2 := mgr.Get(inode.Indirect2)
	for g := uint32(0); g < groups; g++ {
		ids = append(ids, pointerAt(h2, g))
	}
	h2.Release()
	return ids
}

func ceilDivU32(a, b uint32) uint32 {
	return (a + b - 1) / b
}

// ReadAt copies min(len(buf), inode.Size-offset) bytes starting at offset
// into buf and returns the number of bytes copied.
func (inode *DiskInode) ReadAt(offset int, buf []byte, mgr *cache.Manager) int {
	size := int(inode.Size)
	if offset >= size || len(buf) == 0 {
		return 0
	}
	end := offset + len(buf)
	if end > size {
		end = size
	}
	read := 0
	pos := offset
	for pos < end {
		blockIdx := uint32(pos / blockdev.BlockSize)
		blockOff := pos % blockdev.BlockSize
		chunk := blockdev.BlockSize - blockOff
		if pos+chunk > end {
			chunk = end - pos
		}
		h := mgr.Get(inode.BlockIDAt(blockIdx, mgr))
		cache.ReadRange(h, blockOff, buf[read:read+chunk])
		h.Release()
		read += chunk
		pos += chunk
	}
	return read
}

// WriteAt copies buf into the inode's data starting at offset and returns
// the number of bytes written. The caller is responsible for growing the
// inode (via IncreaseSize) before calling WriteAt past the current size.
func (inode *DiskInode) WriteAt(offset int, buf []byte, mgr *cache.Manager) int {
	if len(buf) == 0 {
		return 0
	}
	end := offset + len(buf)
	written := 0
	pos := offset
	for pos < end {
		blockIdx := uint32(pos / blockdev.BlockSize)
		blockOff := pos % blockdev.BlockSize
		chunk := blockdev.BlockSize - blockOff
		if pos+chunk > end {
			chunk = end - pos
		}
		h := mgr.Get(inode.BlockIDAt(blockIdx, mgr))
		cache.WriteRange(h, blockOff, buf[written:written+chunk])
		h.Release()
		written += chunk
		pos += chunk
	}
	return written
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// IncreaseSize grows inode to newSize, splicing newBlocks into the direct and
// indirect tables in logical-block order — consuming entries from newBlocks
// for direct payload first, then the Indirect1 meta-block and its payload,
// then the Indirect2 meta-block, with each second-level meta-block taken just
// before the payload it addresses.
// len(newBlocks) must equal inode.BlocksNumNeeded(newSize), computed by the
// caller before allocating them.
func (inode *DiskInode) IncreaseSize(newSize uint32, newBlocks []uint32, mgr *cache.Manager) {
	current := DataBlocks(inode.Size)
	inode.Size = newSize
	total := DataBlocks(newSize)
	pool := newBlocks
	pop := func() uint32 {
		b := pool[0]
		pool = pool[1:]
		return b
	}

	for current < minU32(total, NumDirect) {
		inode.Direct[current] = pop()
		current++
	}
	if total <= NumDirect {
		return
	}
	current -= NumDirect
	total -= NumDirect

	if current == 0 {
		inode.Indirect1 = pop()
	}
	h1 := mgr.Get(inode.Indirect1)
	for current < minU32(total, PointersPerBlock) {
		setPointerAt(h1, current, pop())
		current++
	}
	h1.Release()

	if total <= PointersPerBlock {
		return
	}
	current -= PointersPerBlock
	total -= PointersPerBlock

	if current == 0 {
		inode.Indirect2 = pop()
	}
	a0, b0 := current/PointersPerBlock, current%PointersPerBlock
	a1, b1 := total/PointersPerBlock, total%PointersPerBlock

	h2 := mgr.Get(inode.Indirect2)
	defer h2.Release()
	for a0 < a1 || (a0 == a1 && b0 < b1) {
		var lvl1 uint32
		if b0 == 0 {
			lvl1 = pop()
			setPointerAt(h2, a0, lvl1)
		} else {
			lvl1 = pointerAt(h2, a0)
		}
		hInner := mgr.Get(lvl1)
		setPointerAt(hInner, b0, pop())
		hInner.Release()

		b0++
		if b0 == PointersPerBlock {
			b0 = 0
			a0++
		}
	}
}

// DecreaseSize shrinks inode to newSize and returns every data block (payload
// blocks and any indirect blocks that are now entirely unused) that the
// caller must deallocate.
func (inode *DiskInode) DecreaseSize(newSize uint32, mgr *cache.Manager) []uint32 {
	var freed []uint32

	oldTotal := DataBlocks(inode.Size)
	newTotal := DataBlocks(newSize)
	inode.Size = newSize
	current := oldTotal

	for current > newTotal && current > NumDirect+PointersPerBlock {
		current--
		i := current - NumDirect - PointersPerBlock
		a, b := i/PointersPerBlock, i%PointersPerBlock

		h2 := mgr.Get(inode.Indirect2)
		lvl1 := pointerAt(h2, a)
		h1 := mgr.Get(lvl1)
		freed = append(freed, pointerAt(h1, b))
		h1.Release()
		h2.Release()

		if b == 0 {
			freed = append(freed, lvl1)
		}
	}
	if oldTotal > NumDirect+PointersPerBlock && newTotal <= NumDirect+PointersPerBlock {
		freed = append(freed, inode.Indirect2)
		inode.Indirect2 = 0
	}

	for current > newTotal && current > NumDirect {
		current--
		i := current - NumDirect
		h1 := mgr.Get(inode.Indirect1)
		freed = append(freed, pointerAt(h1, i))
		h1.Release()
	}
	if oldTotal > NumDirect && newTotal <= NumDirect {
		freed = append(freed, inode.Indirect1)
		inode.Indirect1 = 0
	}

	for current > newTotal {
		current--
		freed = append(freed, inode.Direct[current])
		inode.Direct[current] = 0
	}

	return freed
}

// ClearSize truncates inode to empty and returns every block it occupied,
// exactly TotalBlocks(inode.Size) of them (measured before the call).
func (inode *DiskInode) ClearSize(mgr *cache.Manager) []uint32 {
	return inode.DecreaseSize(0, mgr)
}
