package block_test

import (
	"bytes"
	"testing"

	"github.com/dargueta/blockfs/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeviceReadWriteRoundTrip(t *testing.T) {
	dev := block.NewMemoryDevice(512, 4)

	data := bytes.Repeat([]byte{0xAB}, 512)
	require.NoError(t, dev.WriteBlock(2, data))

	buf := make([]byte, 512)
	require.NoError(t, dev.ReadBlock(2, buf))
	assert.Equal(t, data, buf)

	// Unwritten blocks start out zeroed.
	zeroBuf := make([]byte, 512)
	require.NoError(t, dev.ReadBlock(0, zeroBuf))
	assert.Equal(t, make([]byte, 512), zeroBuf)
}

func TestWriteBlockWrongSize(t *testing.T) {
	dev := block.NewMemoryDevice(512, 4)
	err := dev.WriteBlock(0, make([]byte, 10))
	assert.Error(t, err)
}

func TestReadBlockOutOfRange(t *testing.T) {
	dev := block.NewMemoryDevice(512, 4)
	err := dev.ReadBlock(4, make([]byte, 512))
	assert.Error(t, err)
}

func TestWriteBlocksMultiple(t *testing.T) {
	dev := block.NewMemoryDevice(128, 8)
	data := bytes.Repeat([]byte{0x11}, 128*3)
	require.NoError(t, dev.WriteBlocks(1, data))

	got, err := dev.ReadBlocks(1, 3)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
