package blockdev

import (
	"fmt"
	"os"
)

// File is a Device backed by an *os.File, used by blockfsctl when operating
// on an image stored on disk instead of in memory.
type File struct {
	*streamDevice
	f *os.File
}

// OpenFile opens path and wraps it as a Device. The file's size must already
// be an exact multiple of BlockSize; use Truncate to create a fresh image of
// a given size before calling OpenFile.
func OpenFile(path string, flag int) (*File, error) {
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blockdev: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev: stat %s: %w", path, err)
	}
	if info.Size()%BlockSize != 0 {
		f.Close()
		return nil, fmt.Errorf("blockdev: %s is %d bytes, not a multiple of the block size", path, info.Size())
	}
	total := uint32(info.Size() / BlockSize)
	return &File{streamDevice: newStreamDevice(f, total), f: f}, nil
}

// Truncate creates or resizes the file at path to exactly totalBlocks blocks,
// then opens it as a Device.
func Truncate(path string, totalBlocks uint32) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blockdev: create %s: %w", path, err)
	}
	size := int64(totalBlocks) * BlockSize
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev: truncate %s to %d bytes: %w", path, size, err)
	}
	return &File{streamDevice: newStreamDevice(f, totalBlocks), f: f}, nil
}

// Close closes the underlying file.
func (d *File) Close() error {
	return d.f.Close()
}
