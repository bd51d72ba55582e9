// Package block implements the block-device contract blockfs is layered on
// top of: fixed-size block reads and writes against an underlying
// io.ReadWriteSeeker, with no partial I/O. It is the Go stand-in for the
// "pre-existing block device driver" the core specification treats as an
// external collaborator.
package block

import (
	"fmt"
	"io"
	"os"
)

// ID identifies a single block on a device, numbered from 0.
type ID uint32

// Device is a fixed-size block device backed by an io.ReadWriteSeeker. All
// reads and writes are done in whole multiples of BlockSize; there is no
// partial I/O.
//
// The exposed fields are informational only and must not be changed directly.
type Device struct {
	// BlockSize is the size of a single block, in bytes.
	BlockSize uint
	// TotalBlocks is the total number of blocks on the device.
	TotalBlocks uint

	stream io.ReadWriteSeeker
	closer io.Closer
}

// New wraps an already-open stream as a block device of the given geometry.
func New(stream io.ReadWriteSeeker, blockSize, totalBlocks uint) *Device {
	closer, _ := stream.(io.Closer)
	return &Device{
		BlockSize:   blockSize,
		TotalBlocks: totalBlocks,
		stream:      stream,
		closer:      closer,
	}
}

// Make creates a new device file of totalBlocks*blockSize bytes, entirely
// zero-initialized, and returns it already open. It corresponds to the
// make_disk operation of the block-device contract.
func Make(name string, blockSize, totalBlocks uint) (*Device, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("make_disk %s: %w", name, err)
	}

	size := int64(blockSize) * int64(totalBlocks)
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("make_disk %s: %w", name, err)
	}

	return New(f, blockSize, totalBlocks), nil
}

// Open opens an existing device file. It corresponds to the open_disk
// operation of the block-device contract. At most one device may be open for
// a given mounted volume at a time; blockfs enforces that at the volume
// level, not here.
func Open(name string, blockSize, totalBlocks uint) (*Device, error) {
	f, err := os.OpenFile(name, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open_disk %s: %w", name, err)
	}
	return New(f, blockSize, totalBlocks), nil
}

// NewMemoryDevice creates an in-memory block device backed by a plain byte
// slice, useful for tests that shouldn't need a scratch file on disk.
func NewMemoryDevice(blockSize, totalBlocks uint) *Device {
	backing := make([]byte, int(blockSize)*int(totalBlocks))
	return New(newMemoryStream(backing), blockSize, totalBlocks)
}

// Close closes the currently open device. It corresponds to close_disk.
func (d *Device) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

func (d *Device) byteOffset(id ID) (int64, error) {
	if uint(id) >= d.TotalBlocks {
		return -1, fmt.Errorf("block %d not in range [0, %d)", id, d.TotalBlocks)
	}
	return int64(id) * int64(d.BlockSize), nil
}

// ReadBlock reads exactly one block into buf, which must be BlockSize bytes
// long. It corresponds to block_read.
func (d *Device) ReadBlock(id ID, buf []byte) error {
	if uint(len(buf)) != d.BlockSize {
		return fmt.Errorf(
			"read buffer is %d bytes, want exactly %d", len(buf), d.BlockSize)
	}
	offset, err := d.byteOffset(id)
	if err != nil {
		return err
	}
	if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	_, err = io.ReadFull(d.stream, buf)
	return err
}

// WriteBlock writes exactly one block from data, which must be BlockSize
// bytes long. It corresponds to block_write.
func (d *Device) WriteBlock(id ID, data []byte) error {
	if uint(len(data)) != d.BlockSize {
		return fmt.Errorf(
			"write buffer is %d bytes, want exactly %d", len(data), d.BlockSize)
	}
	offset, err := d.byteOffset(id)
	if err != nil {
		return err
	}
	if _, err := d.stream.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	n, err := d.stream.Write(data)
	if err != nil {
		return err
	}
	if uint(n) != d.BlockSize {
		return fmt.Errorf("short write: wrote %d of %d bytes", n, d.BlockSize)
	}
	return nil
}

// ReadBlocks reads count consecutive blocks starting at id into a freshly
// allocated buffer.
func (d *Device) ReadBlocks(id ID, count uint) ([]byte, error) {
	buf := make([]byte, count*d.BlockSize)
	for i := uint(0); i < count; i++ {
		if err := d.ReadBlock(ID(uint(id)+i), buf[i*d.BlockSize:(i+1)*d.BlockSize]); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// WriteBlocks writes data, a whole multiple of BlockSize bytes, as
// consecutive blocks starting at id.
func (d *Device) WriteBlocks(id ID, data []byte) error {
	if uint(len(data))%d.BlockSize != 0 {
		return fmt.Errorf(
			"data length %d is not a multiple of the block size (%d)",
			len(data), d.BlockSize)
	}
	count := uint(len(data)) / d.BlockSize
	for i := uint(0); i < count; i++ {
		if err := d.WriteBlock(ID(uint(id)+i), data[i*d.BlockSize:(i+1)*d.BlockSize]); err != nil {
			return err
		}
	}
	return nil
}
