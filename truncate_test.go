package blockfs_test

import (
	"bytes"
	"testing"

	"github.com/dargueta/blockfs/directory"
	ferrors "github.com/dargueta/blockfs/errors"
	"github.com/dargueta/blockfs/fsck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateShrinksAndFreesBlocks(t *testing.T) {
	v := formatAndMount(t)
	require.NoError(t, v.Create("a"))
	fd, err := v.Open("a")
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0x11}, 9000) // spans three 4096-byte blocks
	_, err = v.Write(fd, payload)
	require.NoError(t, err)

	require.NoError(t, v.Truncate(fd, 100))

	size, err := v.Size(fd)
	require.NoError(t, err)
	assert.EqualValues(t, 100, size)

	table, dir, layout := v.Diagnostics()
	violations := fsck.Check(table, dir, layout.BlockSize)
	assert.Empty(t, violations, "freed blocks must be reachable by no one and double-freed by no one")
}

func TestTruncateToZeroClearsHead(t *testing.T) {
	v := formatAndMount(t)
	require.NoError(t, v.Create("a"))
	fd, err := v.Open("a")
	require.NoError(t, err)

	_, err = v.Write(fd, []byte("hello"))
	require.NoError(t, err)

	require.NoError(t, v.Truncate(fd, 0))
	size, err := v.Size(fd)
	require.NoError(t, err)
	assert.Zero(t, size)

	_, dir, _ := v.Diagnostics()
	idx, ok := dir.Find("a")
	require.True(t, ok)
	assert.Equal(t, directory.FreeBlock, dir.Get(idx).Head)
}

func TestTruncateToExactCurrentSizeIsNoOp(t *testing.T) {
	v := formatAndMount(t)
	require.NoError(t, v.Create("a"))
	fd, err := v.Open("a")
	require.NoError(t, err)

	_, err = v.Write(fd, []byte("hello"))
	require.NoError(t, err)

	require.NoError(t, v.Truncate(fd, 5))
	size, err := v.Size(fd)
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)
}

func TestTruncateBeyondCurrentSizeRejected(t *testing.T) {
	v := formatAndMount(t)
	require.NoError(t, v.Create("a"))
	fd, err := v.Open("a")
	require.NoError(t, err)

	_, err = v.Write(fd, []byte("hello"))
	require.NoError(t, err)

	err = v.Truncate(fd, 1000)
	assert.ErrorIs(t, err, ferrors.InvalidArgument, "truncate only shrinks; growing is InvalidArgument")

	size, err := v.Size(fd)
	require.NoError(t, err)
	assert.EqualValues(t, 5, size, "a rejected truncate must not change size")
}

func TestTruncateClampsOtherOpenDescriptors(t *testing.T) {
	v := formatAndMount(t)
	require.NoError(t, v.Create("a"))

	fd1, err := v.Open("a")
	require.NoError(t, err)
	fd2, err := v.Open("a")
	require.NoError(t, err)

	_, err = v.Write(fd1, bytes.Repeat([]byte{0x22}, 200))
	require.NoError(t, err)

	require.NoError(t, v.Seek(fd2, 150))
	require.NoError(t, v.Truncate(fd1, 50))

	// fd2's offset must have been clamped down to the new size, not left
	// dangling past it.
	buf := make([]byte, 10)
	n, err := v.Read(fd2, buf)
	require.NoError(t, err)
	assert.Zero(t, n, "fd2 was clamped to offset 50, which is now EOF")
}
