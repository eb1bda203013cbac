package cache

import (
	"sync"
	"sync/atomic"

	"github.com/andrehsu/blockfs/blockdev"
)

// entry holds one cached block. A block is read from the device exactly once,
// when the entry is created, and written back exactly when it is dirty and
// either evicted or flushed.
type entry struct {
	mu    sync.Mutex
	id    uint32
	buf   []byte
	dirty bool

	device blockdev.Device

	// refs counts outstanding Handles plus one for the manager's own slot in
	// its queue. An entry is only a candidate for eviction when refs == 1,
	// i.e. nobody but the manager is holding it.
	refs int32
}

func newEntry(id uint32, device blockdev.Device) *entry {
	e := &entry{id: id, buf: make([]byte, blockdev.BlockSize), device: device, refs: 1}
	device.ReadBlock(id, e.buf)
	return e
}

func (e *entry) blockID() uint32 { return e.id }

func (e *entry) acquire() { atomic.AddInt32(&e.refs, 1) }

func (e *entry) release() { atomic.AddInt32(&e.refs, -1) }

func (e *entry) refCount() int32 { return atomic.LoadInt32(&e.refs) }

// flushLocked writes the block back if dirty. Caller must hold e.mu.
func (e *entry) flushLocked() {
	if e.dirty {
		e.device.WriteBlock(e.id, e.buf)
		e.dirty = false
	}
}

func (e *entry) flush() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushLocked()
}
