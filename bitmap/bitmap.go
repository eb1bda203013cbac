// Package bitmap implements the on-disk bitmap allocator used for both the
// inode table and the data region: a run of whole blocks, each treated as
// 64 eight-byte words, scanned one word at a time for the first clear bit.
package bitmap

import (
	"encoding/binary"
	"math/bits"

	gobitmap "github.com/boljen/go-bitmap"

	"github.com/andrehsu/blockfs/blockdev"
	"github.com/andrehsu/blockfs/cache"
)

const wordsPerBlock = blockdev.BlockSize / 8

// BitsPerBlock is the number of bits one bitmap block can track.
const BitsPerBlock = blockdev.BlockSize * 8

// Allocator tracks which bits in a run of bitmap blocks are set, without
// holding any of those blocks in memory itself — every operation goes
// through a cache.Manager shared with the rest of the filesystem.
type Allocator struct {
	startBlock uint32
	blocks     uint32
}

// New describes an allocator whose bitmap occupies blocks
// [startBlock, startBlock+blocks). It does not touch the device; the caller
// is responsible for having zeroed those blocks when formatting.
func New(startBlock, blocks uint32) *Allocator {
	return &Allocator{startBlock: startBlock, blocks: blocks}
}

// Blocks reports how many blocks this allocator's bitmap occupies.
func (a *Allocator) Blocks() uint32 { return a.blocks }

// Maximum is the number of bits this allocator can track.
func (a *Allocator) Maximum() uint32 {
	return a.blocks * BitsPerBlock
}

// Alloc finds the first clear bit across the allocator's blocks, sets it,
// and returns its index. It reports false if every bit is already set.
//
// Finding the bit is a read-only scan; only the single block that actually
// contains the winning bit is ever modified, so each successful call to
// Alloc performs exactly one cache.Modify.
func (a *Allocator) Alloc(mgr *cache.Manager) (uint32, bool) {
	for blockPos := uint32(0); blockPos < a.blocks; blockPos++ {
		h := mgr.Get(a.startBlock + blockPos)
		pos, found := scanFirstClearBit(h)
		if found {
			cache.ModifyRaw(h, func(buf []byte) {
				gobitmap.Bitmap(buf).Set(int(pos), true)
			})
			h.Release()
			return blockPos*BitsPerBlock + pos, true
		}
		h.Release()
	}
	return 0, false
}

// Dealloc clears bit, which must currently be set. Clearing an already-clear
// bit is a bug in the caller and panics.
func (a *Allocator) Dealloc(mgr *cache.Manager, bit uint32) {
	blockPos := bit / BitsPerBlock
	posInBlock := int(bit % BitsPerBlock)
	h := mgr.Get(a.startBlock + blockPos)
	defer h.Release()
	cache.ModifyRaw(h, func(buf []byte) {
		b := gobitmap.Bitmap(buf)
		if !b.Get(posInBlock) {
			panic("bitmap: dealloc of an already-clear bit")
		}
		b.Set(posInBlock, false)
	})
}

// Get reports whether bit is currently set.
func (a *Allocator) Get(mgr *cache.Manager, bit uint32) bool {
	blockPos := bit / BitsPerBlock
	posInBlock := int(bit % BitsPerBlock)
	h := mgr.Get(a.startBlock + blockPos)
	defer h.Release()
	var set bool
	cache.ReadRaw(h, func(buf []byte) {
		set = gobitmap.Bitmap(buf).Get(posInBlock)
	})
	return set
}

// scanFirstClearBit finds the first bit in h's block that is clear, scanning
// one 64-bit little-endian word at a time via bits.TrailingZeros64 of the
// word's complement, rather than testing individual bits.
func scanFirstClearBit(h *cache.Handle) (pos uint32, found bool) {
	cache.ReadRaw(h, func(buf []byte) {
		for w := 0; w < wordsPerBlock; w++ {
			word := binary.LittleEndian.Uint64(buf[w*8 : w*8+8])
			if word != ^uint64(0) {
				// The first clear bit in a word is the first set bit in its
				// complement.
				inner := bits.TrailingZeros64(^word)
				pos = uint32(w*64 + inner)
				found = true
				return
			}
		}
	})
	return
}
