// Package blockdev defines the narrow capability the rest of the storage
// engine is built on: reading or writing exactly one fixed-size block by
// index. Every higher layer (cache, bitmap, layout, fs, vnode) only ever
// talks to a Device, never to a file or byte slice directly.
package blockdev

// BlockSize is the fixed unit of I/O for every Device implementation and the
// size of every on-disk structure described by the layout package.
const BlockSize = 512

// Device reads and writes single blocks. Implementations are synchronous and
// trusted: a short read, a short write, or an out-of-range block index is a
// bug in the caller or a failure of the underlying medium, and is reported by
// panicking rather than by an error return. Nothing above this layer is
// expected to recover from it.
type Device interface {
	// ReadBlock fills buf (which must be exactly BlockSize bytes) with the
	// contents of block id.
	ReadBlock(id uint32, buf []byte)

	// WriteBlock writes buf (which must be exactly BlockSize bytes) to block
	// id.
	WriteBlock(id uint32, buf []byte)

	// TotalBlocks returns the number of addressable blocks on the device.
	TotalBlocks() uint32
}
