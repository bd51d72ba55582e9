package blockfs

import (
	"sync"

	"github.com/dargueta/blockfs/block"
	"github.com/dargueta/blockfs/directory"
	ferrors "github.com/dargueta/blockfs/errors"
	"github.com/dargueta/blockfs/fat"
	"github.com/hashicorp/go-multierror"
)

// fildes is one slot of the descriptor table: an open file handle holding
// (file, offset). `used` distinguishes a genuinely open descriptor from a
// zero-valued, closed one.
type fildes struct {
	used   bool
	file   int
	offset uint32
}

// Volume is a mounted file system: the superblock layout, the in-memory FAT
// and directory, the descriptor table, and the underlying block device. All
// of its public methods are safe to call from multiple goroutines -- each
// one is serialized by volume's own mutex, per the specification's "single
// mutual-exclusion region" requirement for threaded callers.
type Volume struct {
	mu sync.Mutex

	device  *block.Device
	layout  Layout
	fat     *fat.Table
	dir     *directory.Directory
	fds     [MaxFildes]fildes
	mounted bool
}

// Format creates a zero-initialized volume on a fresh block device: an empty
// FAT (every slot Free), an empty directory (every entry unused), and the
// given layout written into the superblock. Re-formatting an existing image
// destroys its prior contents, exactly like the reference mkfs.
func Format(name string, layout Layout) error {
	if err := layout.Validate(); err != nil {
		return err
	}

	dev, err := block.Make(name, layout.BlockSize, layout.DiskBlocks)
	if err != nil {
		return ferrors.DeviceError.WrapError(err)
	}
	defer dev.Close()

	if err := dev.WriteBlock(0, encodeSuperblock(layout)); err != nil {
		return ferrors.DeviceError.WrapError(err)
	}

	emptyFAT := fat.New(int(layout.DiskBlocks), layout.DataIndex, block.ID(layout.DiskBlocks))
	if err := writeRegion(dev, layout.FATIndex, layout.FATLen, emptyFAT.Encode()); err != nil {
		return err
	}

	emptyDir := directory.New(MaxFiles)
	if err := writeRegion(dev, layout.DirIndex, layout.DirLen, emptyDir.Encode()); err != nil {
		return err
	}

	return nil
}

// writeRegion writes data across count consecutive blocks starting at
// start, zero-padding data out to the region's full size if it's shorter.
func writeRegion(dev *block.Device, start block.ID, count uint, data []byte) error {
	regionSize := count * dev.BlockSize
	if uint(len(data)) > regionSize {
		return ferrors.Newf(ferrors.DeviceError,
			"%d bytes do not fit in a %d-byte region", len(data), regionSize)
	}
	padded := data
	if uint(len(data)) < regionSize {
		padded = make([]byte, regionSize)
		copy(padded, data)
	}
	if err := dev.WriteBlocks(start, padded); err != nil {
		return ferrors.DeviceError.WrapError(err)
	}
	return nil
}

func readRegion(dev *block.Device, start block.ID, count uint) ([]byte, error) {
	data, err := dev.ReadBlocks(start, count)
	if err != nil {
		return nil, ferrors.DeviceError.WrapError(err)
	}
	return data, nil
}

// OpenVolume mounts a volume from an existing device image: it reads the
// superblock, loads the full FAT and directory into memory, and starts with
// an empty descriptor table. blockSize and diskBlocks describe the device's
// fixed geometry, which (per the block-device contract) is known out of
// band rather than stored on the medium itself.
func OpenVolume(name string, blockSize, diskBlocks uint) (*Volume, error) {
	dev, err := block.Open(name, blockSize, diskBlocks)
	if err != nil {
		return nil, ferrors.DeviceError.WrapError(err)
	}

	v, err := mountDevice(dev, blockSize, diskBlocks)
	if err != nil {
		dev.Close()
		return nil, err
	}
	return v, nil
}

func mountDevice(dev *block.Device, blockSize, diskBlocks uint) (*Volume, error) {
	sbBlock, err := readRegion(dev, 0, 1)
	if err != nil {
		return nil, err
	}
	layout, err := decodeSuperblock(sbBlock, diskBlocks, blockSize)
	if err != nil {
		return nil, err
	}

	fatBytes, err := readRegion(dev, layout.FATIndex, layout.FATLen)
	if err != nil {
		return nil, err
	}
	// FAT_ENTRIES always equals DISK_BLOCKS (one slot per disk block); the
	// FAT region may be padded out to a whole number of blocks, but only the
	// first DiskBlocks slots are meaningful.
	table, err := fat.Decode(
		fatBytes[:layout.DiskBlocks*4], int(layout.DiskBlocks), layout.DataIndex, block.ID(layout.DiskBlocks))
	if err != nil {
		return nil, err
	}

	dirBytes, err := readRegion(dev, layout.DirIndex, layout.DirLen)
	if err != nil {
		return nil, err
	}
	// Likewise, the directory always holds exactly MaxFiles entries; the
	// region may be padded out to a whole number of blocks beyond that.
	dir, err := directory.Decode(dirBytes[:MaxFiles*directory.EntrySize], MaxFiles)
	if err != nil {
		return nil, err
	}

	return &Volume{
		device:  dev,
		layout:  layout,
		fat:     table,
		dir:     dir,
		mounted: true,
	}, nil
}

// Unmount flushes the in-memory FAT and directory back to their on-disk
// regions and closes the device. Any descriptors still open are implicitly
// cleared; using them afterwards is a programmer error but will not corrupt
// on-disk state since they simply report NotMounted going forward.
func (v *Volume) Unmount() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		return ferrors.New(ferrors.NotMounted)
	}

	var result *multierror.Error

	fatData := v.fat.Encode()
	if err := writeRegion(v.device, v.layout.FATIndex, v.layout.FATLen, fatData); err != nil {
		result = multierror.Append(result, err)
	}

	dirData := v.dir.Encode()
	if err := writeRegion(v.device, v.layout.DirIndex, v.layout.DirLen, dirData); err != nil {
		result = multierror.Append(result, err)
	}

	if err := v.device.Close(); err != nil {
		result = multierror.Append(result, ferrors.DeviceError.WrapError(err))
	}

	v.mounted = false
	for i := range v.fds {
		v.fds[i] = fildes{}
	}

	return result.ErrorOrNil()
}

// requireMounted returns NotMounted if the volume has already been
// unmounted. Callers must hold v.mu.
func (v *Volume) requireMounted() error {
	if !v.mounted {
		return ferrors.New(ferrors.NotMounted)
	}
	return nil
}

// Diagnostics exposes the volume's in-memory FAT, directory, and layout for
// read-only consistency checking (see package fsck). It's not meant for
// general use: nothing stops a caller from mutating the returned table and
// directory out from under the volume's own mutex.
func (v *Volume) Diagnostics() (*fat.Table, *directory.Directory, Layout) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fat, v.dir, v.layout
}
