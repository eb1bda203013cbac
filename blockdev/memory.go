package blockdev

import (
	"github.com/xaionaro-go/bytesextra"
)

// InMemory is a Device backed entirely by a byte slice. It's the device used
// by every test in this module; blockfsctl works on file-backed images only.
type InMemory struct {
	*streamDevice
	data []byte
}

// NewInMemory wraps data as a Device of len(data)/BlockSize blocks. len(data)
// must be an exact multiple of BlockSize.
func NewInMemory(data []byte) *InMemory {
	if len(data)%BlockSize != 0 {
		panic("blockdev: in-memory image length is not a multiple of the block size")
	}
	total := uint32(len(data) / BlockSize)
	return &InMemory{
		streamDevice: newStreamDevice(bytesextra.NewReadWriteSeeker(data), total),
		data:         data,
	}
}

// Bytes returns the underlying storage. Mutating it directly bypasses the
// Device interface and is only safe when no cache is holding dirty blocks.
func (d *InMemory) Bytes() []byte {
	return d.data
}
