// Package fat implements the linked-allocation block manager: the File
// Allocation Table that threads a file's data blocks into a chain anchored
// by a directory entry's head block and terminated by an End slot.
//
// On disk, slots are packed as signed little-endian int32s using the classic
// sentinels (Free=-1, End=-2) so the format round-trips with the layout
// described by the specification. In memory, Table exposes only the tagged
// Slot variant below; raw sentinel integers never leak past Encode/Decode.
package fat

import (
	"encoding/binary"
	"fmt"

	"github.com/dargueta/blockfs/block"
	ferrors "github.com/dargueta/blockfs/errors"
)

// Kind distinguishes the three states a FAT slot can be in.
type Kind int

const (
	// Free means the block is unallocated.
	Free Kind = iota
	// End means the block is the last one in its chain.
	End
	// Next means the slot holds the index of the next block in the chain.
	Next
)

// Slot is one entry of the table: either Free, End, or a link to the next
// block in a chain.
type Slot struct {
	Kind Kind
	Next block.ID
}

const (
	sentinelFree int32 = -1
	sentinelEnd  int32 = -2
)

// Table is the in-memory File Allocation Table for a mounted volume. Only
// blocks in [DataStart, DataEnd) are eligible for allocation; everything
// outside that range (the superblock, the FAT itself, the directory) has no
// corresponding slot that the allocator will ever return.
type Table struct {
	slots     []Slot
	DataStart block.ID
	DataEnd   block.ID
}

// New creates a Table with entries slots, all Free, where only block indexes
// in [dataStart, dataEnd) may ever be allocated.
func New(entries int, dataStart, dataEnd block.ID) *Table {
	slots := make([]Slot, entries)
	for i := range slots {
		slots[i] = Slot{Kind: Free}
	}
	return &Table{slots: slots, DataStart: dataStart, DataEnd: dataEnd}
}

// Decode unpacks a Table from its on-disk byte representation: data must be
// exactly entries*4 bytes, as produced by Encode.
func Decode(data []byte, entries int, dataStart, dataEnd block.ID) (*Table, error) {
	if len(data) != entries*4 {
		return nil, fmt.Errorf(
			"FAT buffer is %d bytes, want exactly %d for %d entries",
			len(data), entries*4, entries)
	}

	slots := make([]Slot, entries)
	for i := 0; i < entries; i++ {
		raw := int32(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
		switch raw {
		case sentinelFree:
			slots[i] = Slot{Kind: Free}
		case sentinelEnd:
			slots[i] = Slot{Kind: End}
		default:
			if raw < 0 {
				return nil, fmt.Errorf("FAT slot %d has unrecognized sentinel %d", i, raw)
			}
			slots[i] = Slot{Kind: Next, Next: block.ID(raw)}
		}
	}
	return &Table{slots: slots, DataStart: dataStart, DataEnd: dataEnd}, nil
}

// Encode packs the table into its on-disk byte representation.
func (t *Table) Encode() []byte {
	out := make([]byte, len(t.slots)*4)
	for i, slot := range t.slots {
		var raw int32
		switch slot.Kind {
		case Free:
			raw = sentinelFree
		case End:
			raw = sentinelEnd
		case Next:
			raw = int32(slot.Next)
		}
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], uint32(raw))
	}
	return out
}

// Entries returns the number of slots in the table (FAT_ENTRIES).
func (t *Table) Entries() int {
	return len(t.slots)
}

func (t *Table) inDataRegion(id block.ID) bool {
	return id >= t.DataStart && id < t.DataEnd
}

// Allocate scans the data region in ascending order for the first Free slot,
// marks it End, and returns its index. The scan order is deterministic by
// design: it's part of the specification's testable behavior, not an
// implementation detail, so it must never be replaced with e.g. a bitmap
// first-fit search that doesn't preserve ascending order.
func (t *Table) Allocate() (block.ID, error) {
	for i := uint(t.DataStart); i < uint(t.DataEnd); i++ {
		if t.slots[i].Kind == Free {
			t.slots[i] = Slot{Kind: End}
			return block.ID(i), nil
		}
	}
	return 0, ferrors.New(ferrors.OutOfSpace)
}

// FreeChain walks the chain starting at head, setting every visited slot back
// to Free. headIsFree == true (i.e. the file has no chain) is a no-op and
// does not error; head is then ignored.
func (t *Table) FreeChain(head block.ID, headIsFree bool) {
	if headIsFree {
		return
	}

	current := head
	for {
		if !t.inDataRegion(current) {
			return
		}
		slot := t.slots[current]
		t.slots[current] = Slot{Kind: Free}
		if slot.Kind != Next {
			return
		}
		current = slot.Next
	}
}

// Walk returns the n-th block (0-based) in the chain rooted at head, or
// ok=false if the chain is shorter than n+1 blocks.
func (t *Table) Walk(head block.ID, n int) (id block.ID, ok bool) {
	current := head
	for i := 0; i < n; i++ {
		if !t.inDataRegion(current) {
			return 0, false
		}
		slot := t.slots[current]
		if slot.Kind != Next {
			return 0, false
		}
		current = slot.Next
	}
	if !t.inDataRegion(current) {
		return 0, false
	}
	return current, true
}

// Append extends the chain rooted at head by one freshly allocated block,
// linking the current tail to it and marking the new block End. If
// headIsFree is true (the file currently has no blocks at all), it simply
// returns the newly allocated block so the caller can install it as the new
// head; there's no existing tail to link from.
func (t *Table) Append(head block.ID, headIsFree bool) (block.ID, error) {
	newBlock, err := t.Allocate()
	if err != nil {
		return 0, err
	}

	if headIsFree {
		return newBlock, nil
	}

	tail := head
	for {
		slot := t.slots[tail]
		if slot.Kind != Next {
			break
		}
		tail = slot.Next
	}
	t.slots[tail] = Slot{Kind: Next, Next: newBlock}
	return newBlock, nil
}

// Get returns the raw slot for a given block index, for diagnostics (see
// package fsck).
func (t *Table) Get(id block.ID) Slot {
	return t.slots[id]
}

// Chain returns every block index in the chain rooted at head, in order. ok
// is false if the chain doesn't terminate in an End slot within Entries()
// hops -- i.e. it's cyclic or runs through a slot outside the data region --
// which should never happen on a volume nobody has corrupted by hand.
func (t *Table) Chain(head block.ID, headIsFree bool) (blocks []block.ID, ok bool) {
	if headIsFree {
		return nil, true
	}

	current := head
	for i := 0; i < len(t.slots)+1; i++ {
		if !t.inDataRegion(current) {
			return blocks, false
		}
		blocks = append(blocks, current)
		slot := t.slots[current]
		if slot.Kind == End {
			return blocks, true
		}
		if slot.Kind != Next {
			return blocks, false
		}
		current = slot.Next
	}
	return blocks, false
}

// TruncateChain keeps only the first `keep` blocks of the chain rooted at
// head, frees everything past that point, and marks the new tail End. keep
// must be at least 1; truncating a file to zero blocks entirely is the
// caller's job (free the whole chain and clear the head instead of calling
// this).
func (t *Table) TruncateChain(head block.ID, keep int) {
	if keep < 1 {
		return
	}

	tail := head
	for i := 0; i < keep-1; i++ {
		slot := t.slots[tail]
		if slot.Kind != Next {
			// Chain is already no longer than keep blocks.
			return
		}
		tail = slot.Next
	}

	slot := t.slots[tail]
	if slot.Kind != Next {
		return
	}
	rest := slot.Next
	t.slots[tail] = Slot{Kind: End}
	t.FreeChain(rest, false)
}
