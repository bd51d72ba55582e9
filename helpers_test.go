package blockfs_test

import (
	"path/filepath"
	"testing"

	blockfs "github.com/dargueta/blockfs"
	"github.com/stretchr/testify/require"
)

// testLayout uses the real 4096-byte block size but a much smaller disk than
// DefaultLayout's 8192 blocks, so tests run against scratch files of a few
// tens of kilobytes instead of 32 MiB.
func testLayout() blockfs.Layout {
	return blockfs.NewLayout(4096, 20)
}

func formatAndMount(t *testing.T) *blockfs.Volume {
	t.Helper()
	path := filepath.Join(t.TempDir(), "volume.img")
	layout := testLayout()

	require.NoError(t, blockfs.Format(path, layout))

	v, err := blockfs.OpenVolume(path, layout.BlockSize, layout.DiskBlocks)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = v.Unmount()
	})
	return v
}
