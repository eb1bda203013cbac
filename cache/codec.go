package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/noxer/bytewriter"
)

// ReadRaw calls fn with the cached block's full byte buffer for inspection.
// The buffer must not be retained past fn returning.
func ReadRaw(h *Handle, fn func(buf []byte)) {
	h.entry.mu.Lock()
	defer h.entry.mu.Unlock()
	fn(h.entry.buf)
}

// ModifyRaw calls fn with the cached block's full byte buffer, open for
// mutation, and marks the block dirty unconditionally before calling fn —
// callers that decide not to change anything still pay for a future
// write-back. Bitmap scans that may or may not flip a bit use ReadRaw to
// decide first, and only reach for ModifyRaw once they know they will.
func ModifyRaw(h *Handle, fn func(buf []byte)) {
	h.entry.mu.Lock()
	defer h.entry.mu.Unlock()
	h.entry.dirty = true
	fn(h.entry.buf)
}

// ReadRange copies length(dst) bytes starting at offset into dst.
func ReadRange(h *Handle, offset int, dst []byte) {
	ReadRaw(h, func(buf []byte) {
		if offset < 0 || offset+len(dst) > len(buf) {
			panic(fmt.Sprintf("cache: range [%d, %d) crosses the block boundary", offset, offset+len(dst)))
		}
		copy(dst, buf[offset:offset+len(dst)])
	})
}

// WriteRange copies src into the block starting at offset and marks it dirty.
func WriteRange(h *Handle, offset int, src []byte) {
	ModifyRaw(h, func(buf []byte) {
		if offset < 0 || offset+len(src) > len(buf) {
			panic(fmt.Sprintf("cache: range [%d, %d) crosses the block boundary", offset, offset+len(src)))
		}
		copy(buf[offset:offset+len(src)], src)
	})
}

// Read decodes a little-endian, fixed-size value of type T at offset and
// passes it to fn for inspection.
func Read[T any](h *Handle, offset int, fn func(*T)) {
	var zero T
	size := binary.Size(zero)
	if size < 0 {
		panic("cache: type has no fixed binary size")
	}
	ReadRaw(h, func(buf []byte) {
		if offset < 0 || offset+size > len(buf) {
			panic(fmt.Sprintf("cache: value of size %d at offset %d crosses the block boundary", size, offset))
		}
		var value T
		if err := binary.Read(bytes.NewReader(buf[offset:offset+size]), binary.LittleEndian, &value); err != nil {
			panic(err)
		}
		fn(&value)
	})
}

// Modify decodes a little-endian, fixed-size value of type T at offset,
// passes it to fn for mutation, then re-encodes it in place. The block is
// marked dirty before fn runs, regardless of whether fn changes anything.
func Modify[T any](h *Handle, offset int, fn func(*T)) {
	var zero T
	size := binary.Size(zero)
	if size < 0 {
		panic("cache: type has no fixed binary size")
	}
	ModifyRaw(h, func(buf []byte) {
		if offset < 0 || offset+size > len(buf) {
			panic(fmt.Sprintf("cache: value of size %d at offset %d crosses the block boundary", size, offset))
		}
		var value T
		if err := binary.Read(bytes.NewReader(buf[offset:offset+size]), binary.LittleEndian, &value); err != nil {
			panic(err)
		}
		fn(&value)
		w := bytewriter.New(buf[offset : offset+size])
		if err := binary.Write(w, binary.LittleEndian, &value); err != nil {
			panic(err)
		}
	})
}

// ZeroBlock clears the entire cached block and marks it dirty, used when a
// device is formatted and when a data block is freed.
func ZeroBlock(h *Handle) {
	ModifyRaw(h, func(buf []byte) {
		for i := range buf {
			buf[i] = 0
		}
	})
}
