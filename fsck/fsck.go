// Package fsck provides an independent consistency check for a mounted
// volume: it re-derives block reachability from the directory and FAT by
// walking every file's chain into a fresh bitmap, rather than trusting
// whatever bookkeeping the allocator already did, so it can catch bugs in
// that bookkeeping instead of just confirming it.
package fsck

import (
	"fmt"

	"github.com/boljen/go-bitmap"

	"github.com/dargueta/blockfs/block"
	"github.com/dargueta/blockfs/directory"
	"github.com/dargueta/blockfs/fat"
)

// Kind categorizes a consistency violation.
type Kind int

const (
	// BrokenChain means a file's block chain doesn't terminate in an End
	// slot within bounds (cyclic, or it runs off the data region).
	BrokenChain Kind = iota
	// SizeMismatch means a file's size doesn't fit within the byte capacity
	// of its own chain.
	SizeMismatch
	// HeadInvariant means size == 0 and head != FreeBlock, or vice versa.
	HeadInvariant
	// CrossLinked means two files share a block somewhere in their chains.
	CrossLinked
	// Leaked means a FAT slot is allocated (End or Next) but unreachable
	// from any directory entry: the space is lost, not corrupt.
	Leaked
)

func (k Kind) String() string {
	switch k {
	case BrokenChain:
		return "broken chain"
	case SizeMismatch:
		return "size mismatch"
	case HeadInvariant:
		return "head invariant"
	case CrossLinked:
		return "cross-linked block"
	case Leaked:
		return "leaked block"
	default:
		return "unknown"
	}
}

// Violation describes one consistency problem found by Check.
type Violation struct {
	Kind    Kind
	File    string // empty for violations not tied to a single file
	Block   block.ID
	Message string
}

func (v Violation) String() string {
	return v.Message
}

// Check walks every used directory entry's block chain and cross-references
// it against an independently built allocation bitmap, returning every
// violation it finds. An empty result means the volume is internally
// consistent.
func Check(table *fat.Table, dir *directory.Directory, blockSize uint) []Violation {
	var violations []Violation

	seen := bitmap.New(table.Entries())
	seenBy := make(map[block.ID]string, table.Entries())

	for i := 0; i < dir.Capacity(); i++ {
		entry := dir.Get(i)
		if !entry.Used {
			continue
		}

		headIsFree := entry.Head == directory.FreeBlock
		if headIsFree != (entry.Size == 0) {
			violations = append(violations, Violation{
				Kind: HeadInvariant,
				File: entry.Name,
				Message: fmt.Sprintf(
					"%q has size %d but head %v (free=%v)",
					entry.Name, entry.Size, entry.Head, headIsFree),
			})
		}

		chain, ok := table.Chain(entry.Head, headIsFree)
		if !ok {
			violations = append(violations, Violation{
				Kind:    BrokenChain,
				File:    entry.Name,
				Message: fmt.Sprintf("%q's block chain does not terminate cleanly", entry.Name),
			})
			continue
		}

		capacity := uint(len(chain)) * blockSize
		if uint(entry.Size) > capacity {
			violations = append(violations, Violation{
				Kind: SizeMismatch,
				File: entry.Name,
				Message: fmt.Sprintf(
					"%q has size %d but its chain only holds %d bytes",
					entry.Name, entry.Size, capacity),
			})
		}

		for _, id := range chain {
			if seen.Get(int(id)) {
				violations = append(violations, Violation{
					Kind:  CrossLinked,
					File:  entry.Name,
					Block: id,
					Message: fmt.Sprintf(
						"block %d is claimed by both %q and %q", id, seenBy[id], entry.Name),
				})
				continue
			}
			seen.Set(int(id), true)
			seenBy[id] = entry.Name
		}
	}

	for i := uint(table.DataStart); i < uint(table.DataEnd); i++ {
		id := block.ID(i)
		slot := table.Get(id)
		if slot.Kind != fat.Free && !seen.Get(int(id)) {
			violations = append(violations, Violation{
				Kind:    Leaked,
				Block:   id,
				Message: fmt.Sprintf("block %d is allocated but not reachable from any file", id),
			})
		}
	}

	return violations
}
