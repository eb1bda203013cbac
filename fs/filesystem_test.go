package fs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrehsu/blockfs/fs"
	"github.com/andrehsu/blockfs/internal/testutil"
)

func TestCreateThenOpenRecoversLayout(t *testing.T) {
	dev, _ := testutil.NewDevice(t, 2048)
	created := fs.Create(dev, 2048, 1)
	created.Flush()

	reopened := fs.Open(dev)
	assert.Equal(t, created.TotalBlocks(), reopened.TotalBlocks())
	assert.Equal(t, created.DataAreaStart(), reopened.DataAreaStart())
	assert.Equal(t, created.DataAreaBlocks(), reopened.DataAreaBlocks())
	assert.Equal(t, created.MaxInodes(), reopened.MaxInodes())
}

func TestOpenPanicsOnBadMagic(t *testing.T) {
	dev, _ := testutil.NewDevice(t, 64)
	assert.Panics(t, func() { fs.Open(dev) })
}

func TestAllocInodeStartsAtRootThenIncrements(t *testing.T) {
	dev, _ := testutil.NewDevice(t, 2048)
	f := fs.Create(dev, 2048, 1)

	next := f.AllocInode()
	assert.NotEqual(t, fs.RootInodeNumber, next)
	assert.Greater(t, next, fs.RootInodeNumber)
}

func TestAllocDataThenDeallocReclaims(t *testing.T) {
	dev, _ := testutil.NewDevice(t, 2048)
	f := fs.Create(dev, 2048, 1)

	a := f.AllocData()
	b := f.AllocData()
	require.NotEqual(t, a, b)

	f.DeallocData(a)
	c := f.AllocData()
	assert.Equal(t, a, c)
}

func TestCheckReportsCleanOnFreshFilesystem(t *testing.T) {
	dev, _ := testutil.NewDevice(t, 2048)
	f := fs.Create(dev, 2048, 1)
	assert.NoError(t, f.Check())
}
