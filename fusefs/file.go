package fusefs

import (
	"context"
	"sync"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"bazil.org/fuse/fuseutil"
)

// File is a node for one engine file
type File struct {
	fs   *FS
	name string
}

func (f *File) Attr(ctx context.Context, attr *fuse.Attr) error {
	fi, err := f.fs.storage.Stat(f.name)
	if err != nil {
		return errno(err)
	}
	attr.Mode = 0644
	if f.fs.readOnly {
		attr.Mode = 0444
	}
	attr.Size = uint64(fi.Size)
	attr.BlockSize = uint32(f.fs.storage.Geometry().BlockSize)
	attr.Blocks = uint64(fi.Blocks*f.fs.storage.Geometry().BlockSize) / 512
	return nil
}

// Open loads the whole content into a handle. Writes go to the handle
// buffer and replace the file on flush.
func (f *File) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	if f.fs.readOnly && !req.Flags.IsReadOnly() {
		return nil, fuse.Errno(syscall.EROFS)
	}
	h := &Handle{file: f}
	if req.Flags&fuse.OpenTruncate != 0 {
		h.dirty = true
		return h, nil
	}
	data, err := f.fs.storage.Read(f.name)
	if err != nil {
		return nil, errno(err)
	}
	h.data = data
	return h, nil
}

func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	if req.Valid.Size() {
		if f.fs.readOnly {
			return fuse.Errno(syscall.EROFS)
		}
		data, err := f.fs.storage.Read(f.name)
		if err != nil {
			return errno(err)
		}
		data = resize(data, int(req.Size))
		if err := f.fs.storage.Write(f.name, data); err != nil {
			return errno(err)
		}
	}
	return f.Attr(ctx, &resp.Attr)
}

// Handle is an open file. It keeps a private copy of the content.
type Handle struct {
	file  *File
	lock  sync.Mutex
	data  []byte
	dirty bool
}

func (h *Handle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	fuseutil.HandleRead(req, resp, h.data)
	return nil
}

func (h *Handle) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	end := int(req.Offset) + len(req.Data)
	if end > h.file.fs.storage.Geometry().MaxFileSize() {
		return fuse.Errno(syscall.EFBIG)
	}
	if end > len(h.data) {
		h.data = resize(h.data, end)
	}
	copy(h.data[req.Offset:], req.Data)
	h.dirty = true
	resp.Size = len(req.Data)
	return nil
}

func (h *Handle) Flush(ctx context.Context, req *fuse.FlushRequest) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.flush()
}

func (h *Handle) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.flush()
}

func (h *Handle) flush() error {
	if !h.dirty {
		return nil
	}
	if err := h.file.fs.storage.Write(h.file.name, h.data); err != nil {
		return errno(err)
	}
	log.Debugf("flushed %d bytes to %q", len(h.data), h.file.name)
	h.dirty = false
	return nil
}

func resize(data []byte, size int) []byte {
	if size <= len(data) {
		return data[:size]
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}
