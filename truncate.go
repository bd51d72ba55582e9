package blockfs

import (
	"github.com/dargueta/blockfs/directory"
	ferrors "github.com/dargueta/blockfs/errors"
)

// Seek sets the descriptor's offset. Unlike POSIX lseek, a position past the
// end of the file is rejected outright rather than silently accepted and
// materialized as a hole on the next write.
func (v *Volume) Seek(fd int, offset uint32) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireMounted(); err != nil {
		return err
	}
	if err := v.checkFd(fd); err != nil {
		return err
	}

	entry := v.dir.Get(v.fds[fd].file)
	if offset > entry.Size {
		return ferrors.Newf(ferrors.InvalidArgument,
			"offset %d is past end of file (size %d)", offset, entry.Size)
	}
	v.fds[fd].offset = offset
	return nil
}

// Truncate shrinks a file to length bytes, freeing every block past the last
// one the new length still needs. It only shrinks: growing a file happens
// implicitly through Write, never through Truncate, so a length greater than
// the current size is rejected with InvalidArgument rather than silently
// accepted as a no-op.
//
// Every open descriptor on the file -- not just fd -- has its offset clamped
// down to length if it now exceeds it. The specification doesn't pin down
// what happens to a sibling descriptor's offset when another one truncates
// the file out from under it; leaving a stale offset past the new end would
// let a subsequent Read silently see fewer bytes than Size reports (since
// Read clamps to entry.Size-offset) while Write would resume from a
// since-freed block range, corrupting rather than extending the file. Since
// those two behaviors are both worse than just clamping, truncate clamps
// every descriptor pointing at the file.
func (v *Volume) Truncate(fd int, length uint32) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireMounted(); err != nil {
		return err
	}
	if err := v.checkFd(fd); err != nil {
		return err
	}

	dirIndex := v.fds[fd].file
	entry := v.dir.Get(dirIndex)
	if length > entry.Size {
		return ferrors.Newf(ferrors.InvalidArgument,
			"truncate length %d exceeds current size %d", length, entry.Size)
	}
	if length == entry.Size {
		return nil
	}

	if length == 0 {
		v.fat.FreeChain(entry.Head, false)
		v.dir.SetSize(dirIndex, 0, directory.FreeBlock)
	} else {
		blocksToKeep := int((length + v.layout.BlockSize - 1) / v.layout.BlockSize)
		v.fat.TruncateChain(entry.Head, blocksToKeep)
		v.dir.SetSize(dirIndex, length, entry.Head)
	}

	for i := range v.fds {
		if v.fds[i].used && v.fds[i].file == dirIndex && v.fds[i].offset > length {
			v.fds[i].offset = length
		}
	}
	return nil
}
