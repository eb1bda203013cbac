package blockdev

import (
	"fmt"
	"io"
)

// streamDevice adapts any io.ReadWriteSeeker whose length is a whole number
// of BlockSize-sized blocks into a Device. Both InMemory and File are thin
// constructors around it.
type streamDevice struct {
	stream      io.ReadWriteSeeker
	totalBlocks uint32
}

func newStreamDevice(stream io.ReadWriteSeeker, totalBlocks uint32) *streamDevice {
	return &streamDevice{stream: stream, totalBlocks: totalBlocks}
}

func (d *streamDevice) TotalBlocks() uint32 {
	return d.totalBlocks
}

func (d *streamDevice) checkBounds(id uint32, bufLen int) {
	if bufLen != BlockSize {
		panic(fmt.Sprintf("blockdev: buffer must be exactly %d bytes, got %d", BlockSize, bufLen))
	}
	if id >= d.totalBlocks {
		panic(fmt.Sprintf("blockdev: block %d out of range [0, %d)", id, d.totalBlocks))
	}
}

func (d *streamDevice) ReadBlock(id uint32, buf []byte) {
	d.checkBounds(id, len(buf))
	if _, err := d.stream.Seek(int64(id)*BlockSize, io.SeekStart); err != nil {
		panic(fmt.Sprintf("blockdev: seek to block %d: %v", id, err))
	}
	if _, err := io.ReadFull(d.stream, buf); err != nil {
		panic(fmt.Sprintf("blockdev: read block %d: %v", id, err))
	}
}

func (d *streamDevice) WriteBlock(id uint32, buf []byte) {
	d.checkBounds(id, len(buf))
	if _, err := d.stream.Seek(int64(id)*BlockSize, io.SeekStart); err != nil {
		panic(fmt.Sprintf("blockdev: seek to block %d: %v", id, err))
	}
	if _, err := d.stream.Write(buf); err != nil {
		panic(fmt.Sprintf("blockdev: write block %d: %v", id, err))
	}
}
