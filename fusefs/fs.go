package fusefs

import (
	"errors"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	logging "github.com/op/go-logging"

	"github.com/viert/flatfs/storage"
)

var (
	log = logging.MustGetLogger("fusefs")
)

// FS exposes a storage engine as a flat directory
type FS struct {
	storage  *storage.Storage
	readOnly bool
}

// New creates a FUSE filesystem on top of st
func New(st *storage.Storage, readOnly bool) *FS {
	return &FS{storage: st, readOnly: readOnly}
}

// Root returns the root directory of the filesystem
func (f *FS) Root() (fs.Node, error) {
	return &Dir{fs: f}, nil
}

var errnos = []struct {
	err   error
	errno fuse.Errno
}{
	{storage.ErrNotFound, fuse.ENOENT},
	{storage.ErrDuplicateName, fuse.Errno(syscall.EEXIST)},
	{storage.ErrTableFull, fuse.Errno(syscall.ENOSPC)},
	{storage.ErrAllocationExhausted, fuse.Errno(syscall.ENOSPC)},
	{storage.ErrFileTooLarge, fuse.Errno(syscall.EFBIG)},
	{storage.ErrInvalidName, fuse.Errno(syscall.EINVAL)},
}

// errno maps an engine error onto the errno reported to the kernel
func errno(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range errnos {
		if errors.Is(err, e.err) {
			return e.errno
		}
	}
	log.Errorf("storage error: %s", err)
	return fuse.EIO
}
