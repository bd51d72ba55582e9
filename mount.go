package blockfs

import (
	"sync"

	ferrors "github.com/dargueta/blockfs/errors"
)

// Exactly one volume may be mounted per process at a time: globalMount holds
// it, guarded by globalMu. Tests and any other caller that genuinely needs
// more than one mounted volume concurrently should sidestep this altogether
// and call OpenVolume/Volume.Unmount directly instead of these package-level
// functions.
var (
	globalMu    sync.Mutex
	globalMount *Volume
)

// Mount opens the volume image at name and installs it as the process-wide
// mounted volume. It fails with Busy if a volume is already mounted.
func Mount(name string, blockSize, diskBlocks uint) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMount != nil {
		return ferrors.Newf(ferrors.Busy, "a volume is already mounted")
	}

	v, err := OpenVolume(name, blockSize, diskBlocks)
	if err != nil {
		return err
	}
	globalMount = v
	return nil
}

// Unmount flushes and closes the process-wide mounted volume.
func Unmount() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMount == nil {
		return ferrors.New(ferrors.NotMounted)
	}
	err := globalMount.Unmount()
	globalMount = nil
	return err
}

func current() (*Volume, error) {
	globalMu.Lock()
	v := globalMount
	globalMu.Unlock()

	if v == nil {
		return nil, ferrors.New(ferrors.NotMounted)
	}
	return v, nil
}

// Create adds a new, empty file to the process-wide mounted volume.
func Create(name string) error {
	v, err := current()
	if err != nil {
		return err
	}
	return v.Create(name)
}

// Delete removes a file from the process-wide mounted volume.
func Delete(name string) error {
	v, err := current()
	if err != nil {
		return err
	}
	return v.Delete(name)
}

// ListFiles enumerates the files on the process-wide mounted volume.
func ListFiles() ([]string, error) {
	v, err := current()
	if err != nil {
		return nil, err
	}
	return v.ListFiles()
}

// Open opens a file on the process-wide mounted volume and returns a
// descriptor id.
func Open(name string) (int, error) {
	v, err := current()
	if err != nil {
		return 0, err
	}
	return v.Open(name)
}

// Close invalidates a descriptor on the process-wide mounted volume.
func Close(fd int) error {
	v, err := current()
	if err != nil {
		return err
	}
	return v.Close(fd)
}

// Read reads from a descriptor on the process-wide mounted volume.
func Read(fd int, buf []byte) (int, error) {
	v, err := current()
	if err != nil {
		return 0, err
	}
	return v.Read(fd, buf)
}

// Write writes to a descriptor on the process-wide mounted volume.
func Write(fd int, buf []byte) (int, error) {
	v, err := current()
	if err != nil {
		return 0, err
	}
	return v.Write(fd, buf)
}

// Seek repositions a descriptor on the process-wide mounted volume.
func Seek(fd int, offset uint32) error {
	v, err := current()
	if err != nil {
		return err
	}
	return v.Seek(fd, offset)
}

// Truncate shrinks a file on the process-wide mounted volume.
func Truncate(fd int, length uint32) error {
	v, err := current()
	if err != nil {
		return err
	}
	return v.Truncate(fd, length)
}

// GetFilesize returns the current size of a descriptor's file on the
// process-wide mounted volume.
func GetFilesize(fd int) (uint32, error) {
	v, err := current()
	if err != nil {
		return 0, err
	}
	return v.Size(fd)
}
