// Package blockfs implements a single-volume, flat block file system over a
// fixed-size block device: a superblock, a linked-allocation File Allocation
// Table, a flat directory of named entries, and a descriptor table mediating
// concurrent open handles.
//
// Only one volume may be mounted per process at a time; Mount/Unmount
// maintain that invariant, though callers that need more than one
// simultaneously mounted volume (tests, mainly) can sidestep it by calling
// OpenVolume directly and holding the returned *Volume themselves.
package blockfs

// Compile-time layout constants, matching the specification's defaults.
const (
	// BlockSize is the size of a block, in bytes.
	BlockSize = 4096
	// DiskBlocks is the total number of blocks on a default-formatted volume.
	DiskBlocks = 8192
	// MaxName is the longest file name, in bytes, not counting a terminator.
	MaxName = 15
	// MaxFiles is the directory's capacity.
	MaxFiles = 64
	// MaxFildes is the number of descriptors that may be open at once.
	MaxFildes = 32
	// FATEntries is the number of slots in the FAT: one per disk block.
	FATEntries = DiskBlocks
)
