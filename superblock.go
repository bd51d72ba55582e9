package blockfs

import (
	"encoding/binary"
	"fmt"

	"github.com/dargueta/blockfs/block"
)

// Layout describes the four on-disk regions of a volume: the FAT, the
// directory, and the data region (the superblock itself is always exactly
// block 0). It's both the persisted superblock record and the set of
// parameters Format needs to lay one out.
type Layout struct {
	FATIndex   block.ID
	FATLen     uint
	DirIndex   block.ID
	DirLen     uint
	DataIndex  block.ID
	DiskBlocks uint
	BlockSize  uint
}

// DefaultLayout returns the layout mandated by the specification:
// fat_idx=2, fat_len=8, dir_idx=1, dir_len=1, data_idx=10, over an
// 8192-block, 4096-byte-block volume.
func DefaultLayout() Layout {
	return Layout{
		FATIndex:   2,
		FATLen:     8,
		DirIndex:   1,
		DirLen:     1,
		DataIndex:  10,
		DiskBlocks: DiskBlocks,
		BlockSize:  BlockSize,
	}
}

// NewLayout computes a layout for a volume of the given geometry: the FAT
// region is sized to hold exactly one int32 slot per disk block (so
// FATEntries == DiskBlocks, as the specification requires), the directory
// region is sized to hold MaxFiles entries, and the data region begins
// immediately after. It's mainly useful for tests that want a much smaller
// volume than DefaultLayout's 8192 blocks.
func NewLayout(blockSize, diskBlocks uint) Layout {
	fatBytesNeeded := diskBlocks * 4
	fatLen := (fatBytesNeeded + blockSize - 1) / blockSize
	if fatLen == 0 {
		fatLen = 1
	}

	dirBytesNeeded := uint(MaxFiles) * 64 // directory.EntrySize, avoiding an import cycle
	dirLen := (dirBytesNeeded + blockSize - 1) / blockSize
	if dirLen == 0 {
		dirLen = 1
	}

	return Layout{
		FATIndex:   1,
		FATLen:     fatLen,
		DirIndex:   1 + block.ID(fatLen),
		DirLen:     dirLen,
		DataIndex:  block.ID(1 + fatLen + dirLen),
		DiskBlocks: diskBlocks,
		BlockSize:  blockSize,
	}
}

// Validate checks the layout invariants from the specification:
// fat_idx+fat_len <= dir_idx, dir_idx+dir_len <= data_idx, data_idx <= DiskBlocks.
func (l Layout) Validate() error {
	if uint(l.FATIndex)+l.FATLen > uint(l.DirIndex) {
		return fmt.Errorf("FAT region [%d, %d) overlaps directory at block %d",
			l.FATIndex, uint(l.FATIndex)+l.FATLen, l.DirIndex)
	}
	if uint(l.DirIndex)+l.DirLen > uint(l.DataIndex) {
		return fmt.Errorf("directory region [%d, %d) overlaps data region at block %d",
			l.DirIndex, uint(l.DirIndex)+l.DirLen, l.DataIndex)
	}
	if uint(l.DataIndex) > l.DiskBlocks {
		return fmt.Errorf("data region starts at block %d, past the end of the %d-block disk",
			l.DataIndex, l.DiskBlocks)
	}
	return nil
}

// superblockSize is the number of bytes the packed superblock record
// occupies within block 0. The remainder of the block is zero padding.
const superblockSize = 5 * 4

func encodeSuperblock(l Layout) []byte {
	buf := make([]byte, l.BlockSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(l.FATIndex))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(l.FATLen))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(l.DirIndex))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(l.DirLen))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(l.DataIndex))
	return buf
}

func decodeSuperblock(buf []byte, diskBlocks, blockSize uint) (Layout, error) {
	if len(buf) < superblockSize {
		return Layout{}, fmt.Errorf("superblock record truncated: got %d bytes", len(buf))
	}
	l := Layout{
		FATIndex:   block.ID(binary.LittleEndian.Uint32(buf[0:4])),
		FATLen:     uint(binary.LittleEndian.Uint32(buf[4:8])),
		DirIndex:   block.ID(binary.LittleEndian.Uint32(buf[8:12])),
		DirLen:     uint(binary.LittleEndian.Uint32(buf[12:16])),
		DataIndex:  block.ID(binary.LittleEndian.Uint32(buf[16:20])),
		DiskBlocks: diskBlocks,
		BlockSize:  blockSize,
	}
	if err := l.Validate(); err != nil {
		return Layout{}, fmt.Errorf("corrupt superblock: %w", err)
	}
	return l, nil
}
