package vnode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrehsu/blockfs/fs"
	"github.com/andrehsu/blockfs/internal/testutil"
	"github.com/andrehsu/blockfs/vnode"
)

func newRoot(t *testing.T) *vnode.Vnode {
	t.Helper()
	dev, _ := testutil.NewDevice(t, 4096)
	f := fs.Create(dev, 4096, 1)
	return vnode.Root(f)
}

func TestCreateThenFind(t *testing.T) {
	root := newRoot(t)

	created, ok := root.Create("hello.txt")
	require.True(t, ok)

	found, ok := root.Find("hello.txt")
	require.True(t, ok)
	assert.Equal(t, created.InodeNumber(), found.InodeNumber())
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	root := newRoot(t)
	_, ok := root.Create("dup.txt")
	require.True(t, ok)

	_, ok = root.Create("dup.txt")
	assert.False(t, ok)
}

func TestLsListsCreatedFiles(t *testing.T) {
	root := newRoot(t)
	root.Create("a.txt")
	root.Create("b.txt")

	names := root.Ls()
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)
}

func TestWriteAtThenReadAtRoundTrips(t *testing.T) {
	root := newRoot(t)
	f, ok := root.Create("data.bin")
	require.True(t, ok)

	payload := []byte("round trip this please")
	n := f.WriteAt(0, payload)
	require.Equal(t, len(payload), n)

	buf := make([]byte, len(payload))
	got := f.ReadAt(0, buf)
	require.Equal(t, len(payload), got)
	assert.Equal(t, payload, buf)
}

func TestLinkatAddsSecondName(t *testing.T) {
	root := newRoot(t)
	root.Create("original.txt")

	rc := root.Linkat("original.txt", "alias.txt")
	assert.Equal(t, 0, rc)

	orig, ok := root.Find("original.txt")
	require.True(t, ok)
	alias, ok := root.Find("alias.txt")
	require.True(t, ok)
	assert.Equal(t, orig.InodeNumber(), alias.InodeNumber())
	assert.Equal(t, 2, root.Nlink(orig.InodeNumber()))
}

func TestLinkatMissingSourceReturnsNegativeOne(t *testing.T) {
	root := newRoot(t)
	assert.Equal(t, -1, root.Linkat("nope.txt", "alias.txt"))
}

func TestUnlinkatRemovesNameButLeaksInode(t *testing.T) {
	root := newRoot(t)
	f, ok := root.Create("gone.txt")
	require.True(t, ok)

	rc := root.Unlinkat("gone.txt")
	assert.Equal(t, 0, rc)

	_, ok = root.Find("gone.txt")
	assert.False(t, ok)

	// The inode itself is never reclaimed by Unlinkat: no name reaches it
	// any more, but the handle f still reads it as the empty file it was.
	assert.Equal(t, 0, f.ReadAt(0, make([]byte, 1)))
}

func TestUnlinkatMissingNameReturnsNegativeOne(t *testing.T) {
	root := newRoot(t)
	assert.Equal(t, -1, root.Unlinkat("nope.txt"))
}

func TestUnlinkatSwapsLastEntryIntoRemovedSlot(t *testing.T) {
	root := newRoot(t)
	root.Create("first.txt")
	root.Create("second.txt")
	root.Create("third.txt")

	require.Equal(t, 0, root.Unlinkat("first.txt"))

	names := root.Ls()
	assert.Equal(t, []string{"third.txt", "second.txt"}, names)
}

func TestClearTruncatesToZero(t *testing.T) {
	root := newRoot(t)
	f, ok := root.Create("big.bin")
	require.True(t, ok)
	f.WriteAt(0, make([]byte, 4096))

	f.Clear()
	assert.Equal(t, 0, f.ReadAt(0, make([]byte, 1)))
}
