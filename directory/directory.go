// Package directory implements the flat directory index: a fixed-capacity
// table of named entries, each pointing at the head of a FAT chain and
// carrying the file's size and the number of open descriptors referencing
// it.
package directory

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dargueta/blockfs/block"
	ferrors "github.com/dargueta/blockfs/errors"
)

// MaxNameLength is the longest name (in bytes) a directory entry may hold,
// not counting the implicit terminator.
const MaxNameLength = 15

// EntrySize is the packed on-disk size of one directory entry, in bytes:
// used(1) + name(15) + nameLen(1) + size(4) + head(4) + refCnt(4) + 35 bytes
// of reserved padding to round out to a clean 64-byte record.
const EntrySize = 64

// FreeBlock is the sentinel head value meaning "this file has no blocks".
const FreeBlock = block.ID(0xFFFFFFFF)

// Entry is one directory record.
type Entry struct {
	Used   bool
	Name   string
	Size   uint32
	Head   block.ID
	RefCnt uint32
}

// Directory is the in-memory directory table for a mounted volume.
type Directory struct {
	entries []Entry
}

// New creates a Directory with capacity unused entries.
func New(capacity int) *Directory {
	entries := make([]Entry, capacity)
	for i := range entries {
		entries[i] = Entry{Head: FreeBlock}
	}
	return &Directory{entries: entries}
}

// Capacity returns the number of entries in the table, as given to New
// (MAX_FILES for a mounted volume).
func (d *Directory) Capacity() int {
	return len(d.entries)
}

// Get returns the entry at index i. The caller is responsible for only
// calling this with indexes obtained from Find/Create/List.
func (d *Directory) Get(i int) Entry {
	return d.entries[i]
}

// set replaces the entry at index i.
func (d *Directory) set(i int, e Entry) {
	d.entries[i] = e
}

// Find returns the index of the used entry with the given name, or
// ok=false if no such entry exists.
func (d *Directory) Find(name string) (index int, ok bool) {
	for i, e := range d.entries {
		if e.Used && e.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Create validates name, rejects duplicates, allocates the lowest-indexed
// unused entry, and initializes it to an empty file. It returns the new
// entry's index.
func (d *Directory) Create(name string) (int, error) {
	if len(name) == 0 || len(name) > MaxNameLength {
		return 0, ferrors.Newf(ferrors.NameTooLong,
			"%q is %d bytes, max is %d", name, len(name), MaxNameLength)
	}
	if _, exists := d.Find(name); exists {
		return 0, ferrors.Newf(ferrors.Exists, "a file named %q already exists", name)
	}

	for i, e := range d.entries {
		if !e.Used {
			d.entries[i] = Entry{Used: true, Name: name, Size: 0, Head: FreeBlock, RefCnt: 0}
			return i, nil
		}
	}
	return 0, ferrors.New(ferrors.DirectoryFull)
}

// Delete removes the entry with the given name. It fails if the name is
// unknown or the entry's reference count is nonzero. It returns the entry's
// former head (and whether the file had any blocks) so the caller can free
// the block chain afterwards; Delete only clears the directory record itself.
func (d *Directory) Delete(name string) (freedHead block.ID, hadBlocks bool, err error) {
	index, ok := d.Find(name)
	if !ok {
		return 0, false, ferrors.Newf(ferrors.NotFound, "no file named %q", name)
	}

	entry := d.entries[index]
	if entry.RefCnt > 0 {
		return 0, false, ferrors.Newf(ferrors.Busy,
			"file %q has %d open descriptor(s)", name, entry.RefCnt)
	}

	hadBlocks = entry.Size > 0
	freedHead = entry.Head
	d.entries[index] = Entry{Head: FreeBlock}
	return freedHead, hadBlocks, nil
}

// List enumerates the names of every used entry, in directory-index order.
func (d *Directory) List() []string {
	names := make([]string, 0, len(d.entries))
	for _, e := range d.entries {
		if e.Used {
			names = append(names, e.Name)
		}
	}
	return names
}

// SetSize updates the size and head of a file, e.g. after a write grows it or
// a truncate shrinks it.
func (d *Directory) SetSize(index int, size uint32, head block.ID) {
	e := d.entries[index]
	e.Size = size
	e.Head = head
	d.entries[index] = e
}

// IncRef increments the reference count of the entry at index, for Open.
func (d *Directory) IncRef(index int) {
	e := d.entries[index]
	e.RefCnt++
	d.entries[index] = e
}

// DecRef decrements the reference count of the entry at index, for Close.
func (d *Directory) DecRef(index int) {
	e := d.entries[index]
	if e.RefCnt > 0 {
		e.RefCnt--
	}
	d.entries[index] = e
}

// Encode packs the directory into its on-disk byte representation:
// Capacity()*EntrySize bytes. Reference counts are not meaningful across a
// mount boundary (descriptors never survive one) and are always encoded as
// 0, per Decode's contract.
func (d *Directory) Encode() []byte {
	out := make([]byte, len(d.entries)*EntrySize)
	for i, e := range d.entries {
		rec := out[i*EntrySize : (i+1)*EntrySize]
		if e.Used {
			rec[0] = 1
		}
		nameBytes := []byte(e.Name)
		copy(rec[1:1+MaxNameLength], nameBytes)
		rec[1+MaxNameLength] = byte(len(nameBytes))
		binary.LittleEndian.PutUint32(rec[17:21], e.Size)
		binary.LittleEndian.PutUint32(rec[21:25], uint32(e.Head))
		// Bytes 25:29 (refCnt) and 29:64 (reserved) are left zeroed.
	}
	return out
}

// Decode unpacks a Directory from its on-disk byte representation. Reference
// counts are always reset to 0, matching the mount contract: descriptors
// never survive a mount boundary, so no entry can have live references
// before any file has been opened in the new mount.
func Decode(data []byte, capacity int) (*Directory, error) {
	if len(data) != capacity*EntrySize {
		return nil, fmt.Errorf(
			"directory buffer is %d bytes, want exactly %d for %d entries",
			len(data), capacity*EntrySize, capacity)
	}

	entries := make([]Entry, capacity)
	for i := 0; i < capacity; i++ {
		rec := data[i*EntrySize : (i+1)*EntrySize]
		used := rec[0] != 0
		nameLen := int(rec[1+MaxNameLength])
		if nameLen > MaxNameLength {
			return nil, fmt.Errorf("directory entry %d has invalid name length %d", i, nameLen)
		}
		name := string(bytes.TrimRight(rec[1:1+nameLen], "\x00"))
		size := binary.LittleEndian.Uint32(rec[17:21])
		head := block.ID(binary.LittleEndian.Uint32(rec[21:25]))

		entry := Entry{Used: used, Head: FreeBlock}
		if used {
			entry.Name = name
			entry.Size = size
			entry.Head = head
		}
		entries[i] = entry
	}
	return &Directory{entries: entries}, nil
}
