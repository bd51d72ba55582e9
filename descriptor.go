package blockfs

import (
	ferrors "github.com/dargueta/blockfs/errors"
)

// Create adds a new, empty file to the directory. It fails if name is too
// long, a file with that name already exists, or the directory is full.
func (v *Volume) Create(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireMounted(); err != nil {
		return err
	}
	_, err := v.dir.Create(name)
	return err
}

// Delete removes a file from the directory and frees its block chain. It
// fails if the name is unknown or the file still has open descriptors.
func (v *Volume) Delete(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireMounted(); err != nil {
		return err
	}

	head, hadBlocks, err := v.dir.Delete(name)
	if err != nil {
		return err
	}
	if hadBlocks {
		v.fat.FreeChain(head, false)
	}
	return nil
}

// ListFiles enumerates every file name in directory-index order.
func (v *Volume) ListFiles() ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireMounted(); err != nil {
		return nil, err
	}
	return v.dir.List(), nil
}

// Open finds the directory entry named name, allocates the lowest-indexed
// free descriptor slot for it with offset 0, and returns the new
// descriptor's id. It fails if the file is unknown or every descriptor slot
// is in use.
func (v *Volume) Open(name string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireMounted(); err != nil {
		return 0, err
	}

	dirIndex, ok := v.dir.Find(name)
	if !ok {
		return 0, ferrors.Newf(ferrors.NotFound, "no file named %q", name)
	}

	for fd := range v.fds {
		if !v.fds[fd].used {
			v.fds[fd] = fildes{used: true, file: dirIndex, offset: 0}
			v.dir.IncRef(dirIndex)
			return fd, nil
		}
	}
	return 0, ferrors.New(ferrors.DescriptorTableFull)
}

// Close invalidates a descriptor and decrements the reference count of the
// file it pointed to.
func (v *Volume) Close(fd int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.requireMounted(); err != nil {
		return err
	}
	if err := v.checkFd(fd); err != nil {
		return err
	}

	dirIndex := v.fds[fd].file
	v.fds[fd] = fildes{}
	v.dir.DecRef(dirIndex)
	return nil
}

// checkFd validates that fd is in range and currently in use. Callers must
// hold v.mu.
func (v *Volume) checkFd(fd int) error {
	if fd < 0 || fd >= len(v.fds) || !v.fds[fd].used {
		return ferrors.Newf(ferrors.BadDescriptor, "fd %d is not an open descriptor", fd)
	}
	return nil
}
