package blockfs

import (
	stderrors "errors"

	"github.com/dargueta/blockfs/block"
	"github.com/dargueta/blockfs/directory"
	ferrors "github.com/dargueta/blockfs/errors"
)

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// zeroBlock fills a freshly allocated block with null bytes before any
// caller data is patched into it. Since Seek never permits an offset past
// the current size (spec.md §4.4), Write can never skip ahead and leave a
// file-visible hole -- every block this touches gets its leading bytes
// overwritten by the same Write call that allocated it. The zero-fill exists
// so a block a previous file freed never surfaces that file's leftover
// bytes on disk, not to make some "hole" region read back as zero.
func (v *Volume) zeroBlock(id block.ID) error {
	zero := make([]byte, v.layout.BlockSize)
	if err := v.device.WriteBlock(id, zero); err != nil {
		return ferrors.DeviceError.WrapError(err)
	}
	return nil
}

// chainLength returns the number of blocks currently in the chain rooted at
// head (0 if headIsFree).
func (v *Volume) chainLength(head block.ID, headIsFree bool) int {
	if headIsFree {
		return 0
	}
	n := 0
	for {
		if _, ok := v.fat.Walk(head, n); !ok {
			return n
		}
		n++
	}
}

// resolveOrGrowBlock returns the block holding byte-index targetIndex's
// block number (0-based), allocating and zero-filling new blocks as needed
// to extend the chain that far. dirIndex's head is updated immediately as
// each new block is linked in, so a failure partway through growth (e.g.
// OutOfSpace) leaves the file correctly shorter, not corrupt.
//
// Because lseek never permits offset > size, and size never exceeds the
// byte capacity of the file's current chain, a single call here only ever
// needs to append at most one new block: targetIndex (== offset/BlockSize
// at the time Write calls in) can exceed the chain's current length by at
// most one block. That's what keeps the size==0 iff head==Free invariant
// safe across a failed allocation -- there's no multi-block partial-growth
// state to leave inconsistent.
func (v *Volume) resolveOrGrowBlock(dirIndex, targetIndex int) (block.ID, error) {
	entry := v.dir.Get(dirIndex)
	// headIsFree must be derived from Head, not Size: within a single Write
	// spanning more than one block, Head is updated immediately as each new
	// block is linked in (see below), but Size isn't updated until Write's
	// caller-visible commitProgress runs once at the very end. Using Size
	// here would make every growth step after the first misread an
	// already-installed head as absent and silently re-allocate (and orphan)
	// a fresh one in its place.
	headIsFree := entry.Head == directory.FreeBlock
	head := entry.Head

	length := v.chainLength(head, headIsFree)

	for length <= targetIndex {
		if headIsFree {
			newHead, err := v.fat.Allocate()
			if err != nil {
				return 0, err
			}
			if err := v.zeroBlock(newHead); err != nil {
				return 0, err
			}
			head = newHead
			headIsFree = false
			// Install the new head right away. Size stays 0 until Write's
			// commitProgress advances it, and commitProgress releases the
			// head again if no byte was written, so the window where
			// size==0 but head!=Free never becomes externally observable
			// (the volume mutex is held for the whole of Write).
			v.dir.SetSize(dirIndex, entry.Size, head)
		} else {
			newBlock, err := v.fat.Append(head, false)
			if err != nil {
				return 0, err
			}
			if err := v.zeroBlock(newBlock); err != nil {
				return 0, err
			}
		}
		length++
	}

	id, ok := v.fat.Walk(head, targetIndex)
	if !ok {
		// Unreachable given the growth loop above, but fail closed.
		return 0, ferrors.New(ferrors.OutOfSpace)
	}
	return id, nil
}

// Read copies up to len(buf) bytes starting at the descriptor's current
// offset into buf, and returns the number of bytes actually copied. It
// never returns an error for reading past end-of-file -- that simply
// yields 0 -- but does fail for a bad descriptor or a dead device.
func (v *Volume) Read(fd int, buf []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireMounted(); err != nil {
		return 0, err
	}
	if err := v.checkFd(fd); err != nil {
		return 0, err
	}

	desc := v.fds[fd]
	entry := v.dir.Get(desc.file)

	remaining := int(entry.Size) - int(desc.offset)
	toRead := min(len(buf), remaining)
	if toRead <= 0 {
		return 0, nil
	}

	totalRead := 0
	offset := desc.offset
	for totalRead < toRead {
		blockIndex := int(offset) / int(v.layout.BlockSize)
		byteInBlock := int(offset) % int(v.layout.BlockSize)

		blockID, ok := v.fat.Walk(entry.Head, blockIndex)
		if !ok {
			break
		}

		blockBuf := make([]byte, v.layout.BlockSize)
		if err := v.device.ReadBlock(blockID, blockBuf); err != nil {
			return totalRead, ferrors.DeviceError.WrapError(err)
		}

		n := min(toRead-totalRead, int(v.layout.BlockSize)-byteInBlock)
		copy(buf[totalRead:totalRead+n], blockBuf[byteInBlock:byteInBlock+n])

		totalRead += n
		offset += uint32(n)
	}

	v.fds[fd].offset = offset
	return totalRead, nil
}

// Write writes len(buf) bytes to the descriptor's file starting at its
// current offset, growing the file (and allocating new blocks) as needed.
// If the allocator runs out of space partway through, Write returns the
// number of bytes it managed to write with no error -- a short write, not
// a failure. If it runs out before any byte is written, Write returns 0
// and an OutOfSpace error. A block-device I/O error is always reported as an error, and
// the file's size/chain reflect only the successful prefix (no rollback).
func (v *Volume) Write(fd int, buf []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireMounted(); err != nil {
		return 0, err
	}
	if err := v.checkFd(fd); err != nil {
		return 0, err
	}

	desc := v.fds[fd]
	dirIndex := desc.file
	offset := desc.offset
	totalWritten := 0

	for totalWritten < len(buf) {
		blockIndex := int(offset) / int(v.layout.BlockSize)
		byteInBlock := int(offset) % int(v.layout.BlockSize)

		blockID, err := v.resolveOrGrowBlock(dirIndex, blockIndex)
		if err != nil {
			if stderrors.Is(err, ferrors.OutOfSpace) {
				// Allocator exhausted before a single byte landed: that is
				// an error, not a zero-length short write.
				if totalWritten == 0 {
					return 0, err
				}
				// Otherwise report the partial progress made so far, not an
				// error.
				break
			}
			// A real device failure (e.g. zero-filling the new block
			// failed): the chain mutation already applied stays applied,
			// but we must surface the failure, not swallow it as a short
			// write.
			v.commitProgress(fd, dirIndex, offset, totalWritten)
			return totalWritten, err
		}

		blockBuf := make([]byte, v.layout.BlockSize)
		if err := v.device.ReadBlock(blockID, blockBuf); err != nil {
			v.commitProgress(fd, dirIndex, offset, totalWritten)
			return totalWritten, ferrors.DeviceError.WrapError(err)
		}

		n := min(len(buf)-totalWritten, int(v.layout.BlockSize)-byteInBlock)
		copy(blockBuf[byteInBlock:byteInBlock+n], buf[totalWritten:totalWritten+n])

		if err := v.device.WriteBlock(blockID, blockBuf); err != nil {
			v.commitProgress(fd, dirIndex, offset, totalWritten)
			return totalWritten, ferrors.DeviceError.WrapError(err)
		}

		totalWritten += n
		offset += uint32(n)
	}

	v.commitProgress(fd, dirIndex, offset, totalWritten)
	return totalWritten, nil
}

// commitProgress updates the descriptor's offset and the file's size to
// reflect bytes actually written so far. It's called both on the normal
// path and when an error cuts a write short, since the specification
// requires the successful prefix to be durable either way.
func (v *Volume) commitProgress(fd, dirIndex int, newOffset uint32, _ int) {
	entry := v.dir.Get(dirIndex)
	size := entry.Size
	if newOffset > size {
		size = newOffset
	}
	head := entry.Head
	if size == 0 && head != directory.FreeBlock {
		// A device error cut the write short before any byte landed in a
		// freshly installed head block: release it so size==0 still means
		// the file has no blocks.
		v.fat.FreeChain(head, false)
		head = directory.FreeBlock
	}
	v.dir.SetSize(dirIndex, size, head)
	v.fds[fd].offset = newOffset
}

// Size returns the current size, in bytes, of the descriptor's file.
func (v *Volume) Size(fd int) (uint32, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireMounted(); err != nil {
		return 0, err
	}
	if err := v.checkFd(fd); err != nil {
		return 0, err
	}
	return v.dir.Get(v.fds[fd].file).Size, nil
}
