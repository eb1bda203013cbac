// Package testutil provides the same kind of test fixtures the driver this
// module is built from keeps in its own testing package: helpers for
// building random in-memory images and wiring up devices to exercise
// without a real disk.
package testutil

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrehsu/blockfs/blockdev"
)

// RandomImage returns totalBlocks*blockdev.BlockSize random bytes, failing
// the test if the system's random source is unavailable.
func RandomImage(t *testing.T, totalBlocks uint32) []byte {
	t.Helper()
	data := make([]byte, uint64(totalBlocks)*blockdev.BlockSize)
	_, err := rand.Read(data)
	require.NoErrorf(t, err, "failed to fill %d blocks with random bytes", totalBlocks)
	return data
}

// NewDevice returns a fresh in-memory device of totalBlocks blocks, backed
// by random data, along with the backing slice for inspection.
func NewDevice(t *testing.T, totalBlocks uint32) (*blockdev.InMemory, []byte) {
	t.Helper()
	data := RandomImage(t, totalBlocks)
	return blockdev.NewInMemory(data), data
}
