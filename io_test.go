package blockfs_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTripWithSeekAndEOF(t *testing.T) {
	v := formatAndMount(t)
	require.NoError(t, v.Create("a"))
	fd, err := v.Open("a")
	require.NoError(t, err)

	payload := []byte("the quick brown fox")
	n, err := v.Write(fd, payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)

	size, err := v.Size(fd)
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), size)

	require.NoError(t, v.Seek(fd, 0))
	buf := make([]byte, len(payload))
	n, err = v.Read(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:n])

	// Reading past EOF returns 0, not an error.
	n, err = v.Read(fd, buf)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWriteCrossingBlockBoundary(t *testing.T) {
	v := formatAndMount(t)
	require.NoError(t, v.Create("a"))
	fd, err := v.Open("a")
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0xAB}, 5000)
	n, err := v.Write(fd, payload)
	require.NoError(t, err)
	assert.Equal(t, 5000, n)

	size, err := v.Size(fd)
	require.NoError(t, err)
	assert.EqualValues(t, 5000, size, "size must be exact, not rounded up to a block boundary")

	require.NoError(t, v.Seek(fd, 0))
	buf := make([]byte, 5000)
	n, err = v.Read(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, 5000, n)
	assert.True(t, bytes.Equal(payload, buf))
}

func TestSeekPastEndOfFileRejected(t *testing.T) {
	v := formatAndMount(t)
	require.NoError(t, v.Create("a"))
	fd, err := v.Open("a")
	require.NoError(t, err)

	_, err = v.Write(fd, []byte("abc"))
	require.NoError(t, err)

	err = v.Seek(fd, 100)
	assert.Error(t, err)
}

func TestSequentialSmallWritesGrowChainAcrossBlockBoundary(t *testing.T) {
	v := formatAndMount(t)
	require.NoError(t, v.Create("a"))
	fd, err := v.Open("a")
	require.NoError(t, err)

	// Seek never permits offset > size (spec.md §4.4), so the only way to
	// position past the current end of file is to have already written up
	// to it: every Write call here starts exactly at the previous call's
	// new size, one byte at a time, straddling the 4096-byte block
	// boundary. This exercises the growth path repeatedly across separate
	// Write calls rather than within a single one.
	payload := bytes.Repeat([]byte{0x03}, 4100)
	for i, b := range payload {
		n, err := v.Write(fd, []byte{b})
		require.NoError(t, err)
		require.Equal(t, 1, n, "byte %d", i)
	}

	size, err := v.Size(fd)
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), size)

	require.NoError(t, v.Seek(fd, 0))
	buf := make([]byte, len(payload))
	n, err := v.Read(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, buf)
}

func TestWriteExhaustsAllocatorAsShortWrite(t *testing.T) {
	v := formatAndMount(t)
	require.NoError(t, v.Create("a"))
	fd, err := v.Open("a")
	require.NoError(t, err)

	// testLayout() leaves only a handful of data blocks; ask for far more
	// than fits so the allocator runs dry mid-write.
	huge := bytes.Repeat([]byte{0x7F}, 4096*64)
	n, err := v.Write(fd, huge)
	require.NoError(t, err, "running out of space must be a short write, not an error")
	assert.Less(t, n, len(huge))
	assert.Greater(t, n, 0)
}
