// Package cache implements a small, bounded write-back cache of fixed-size
// blocks, modeled directly on the block cache used by teaching filesystems
// that sit on top of a raw block device: a handful of in-memory slots shared
// by reference, evicted in roughly the order they were first touched, with
// writes deferred until eviction or an explicit flush.
package cache

import (
	"sync"

	"github.com/andrehsu/blockfs/blockdev"
)

// Capacity is the maximum number of blocks the cache holds at once. It is
// small and fixed deliberately: exhausting it is a sign that callers are
// holding onto more cache entries at the same time than this design expects,
// and Manager.Get reports that loudly instead of silently growing.
const Capacity = 16

// Manager owns the set of cached entries and arbitrates access to them. All
// reads and writes to the underlying device go through a Manager; nothing
// above this package talks to a blockdev.Device directly.
type Manager struct {
	mu      sync.Mutex
	entries []*entry
	device  blockdev.Device
}

// NewManager creates a Manager over device. The manager starts empty; blocks
// are faulted in lazily on first Get.
func NewManager(device blockdev.Device) *Manager {
	return &Manager{device: device}
}

// Device returns the device the manager is backed by.
func (m *Manager) Device() blockdev.Device {
	return m.device
}

// Get returns a Handle on block id, fetching it from the device if it isn't
// already cached. The caller must call Handle.Release when done with it.
//
// If the cache is full and every entry currently has an outstanding Handle,
// Get panics: this is the bounded cache's only way of surfacing that more
// blocks are in simultaneous use than its capacity allows.
func (m *Manager) Get(id uint32) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.blockID() == id {
			e.acquire()
			return &Handle{entry: e}
		}
	}

	if len(m.entries) >= Capacity {
		victim := -1
		for i, e := range m.entries {
			if e.refCount() == 1 {
				victim = i
				break
			}
		}
		if victim < 0 {
			panic("cache: exhausted — every entry is held by a caller")
		}
		evicted := m.entries[victim]
		m.entries = append(m.entries[:victim:victim], m.entries[victim+1:]...)
		evicted.flush()
	}

	e := newEntry(id, m.device)
	m.entries = append(m.entries, e)
	e.acquire()
	return &Handle{entry: e}
}

// FlushAll writes every dirty entry back to the device, in cache order,
// without evicting any of them.
func (m *Manager) FlushAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		e.flush()
	}
}

// Len reports how many blocks are currently cached. It exists for tests, not
// for production control flow.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
