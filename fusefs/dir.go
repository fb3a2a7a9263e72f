package fusefs

import (
	"context"
	"os"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
)

// Dir is the only directory of the filesystem
type Dir struct {
	fs *FS
}

const rootInode = 1

func (d *Dir) Attr(ctx context.Context, attr *fuse.Attr) error {
	attr.Inode = rootInode
	attr.Mode = os.ModeDir | 0755
	if d.fs.readOnly {
		attr.Mode = os.ModeDir | 0555
	}
	return nil
}

func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	if _, err := d.fs.storage.Stat(name); err != nil {
		return nil, errno(err)
	}
	return &File{fs: d.fs, name: name}, nil
}

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	names, err := d.fs.storage.List()
	if err != nil {
		return nil, errno(err)
	}
	dirents := make([]fuse.Dirent, 0, len(names))
	for _, name := range names {
		dirents = append(dirents, fuse.Dirent{Name: name, Type: fuse.DT_File})
	}
	return dirents, nil
}

func (d *Dir) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fs.Node, fs.Handle, error) {
	if d.fs.readOnly {
		return nil, nil, fuse.Errno(syscall.EROFS)
	}
	if err := d.fs.storage.Create(req.Name); err != nil {
		return nil, nil, errno(err)
	}
	log.Debugf("created %q", req.Name)
	f := &File{fs: d.fs, name: req.Name}
	return f, &Handle{file: f}, nil
}

func (d *Dir) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	if d.fs.readOnly {
		return fuse.Errno(syscall.EROFS)
	}
	if req.Dir {
		return fuse.Errno(syscall.ENOTDIR)
	}
	return errno(d.fs.storage.Delete(req.Name))
}
