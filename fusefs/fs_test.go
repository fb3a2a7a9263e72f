package fusefs

import (
	"context"
	"syscall"
	"testing"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/stretchr/testify/require"

	"github.com/viert/flatfs/storage"
)

var (
	_ fs.FS                 = (*FS)(nil)
	_ fs.NodeStringLookuper = (*Dir)(nil)
	_ fs.HandleReadDirAller = (*Dir)(nil)
	_ fs.NodeCreater        = (*Dir)(nil)
	_ fs.NodeRemover        = (*Dir)(nil)
	_ fs.NodeOpener         = (*File)(nil)
	_ fs.NodeSetattrer      = (*File)(nil)
	_ fs.HandleReader       = (*Handle)(nil)
	_ fs.HandleWriter       = (*Handle)(nil)
	_ fs.HandleFlusher      = (*Handle)(nil)
	_ fs.HandleReleaser     = (*Handle)(nil)
)

func newTestFS(t *testing.T, readOnly bool) (*Dir, *storage.Storage) {
	t.Helper()
	st, err := storage.OpenBackend(storage.NewMemBackend(), storage.DefaultGeometry(storage.DefaultTotalBlocks))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	root, err := New(st, readOnly).Root()
	require.NoError(t, err)
	return root.(*Dir), st
}

func TestCreateWriteFlush(t *testing.T) {
	ctx := context.Background()
	dir, st := newTestFS(t, false)

	node, handle, err := dir.Create(ctx, &fuse.CreateRequest{Name: "a.txt"}, &fuse.CreateResponse{})
	require.NoError(t, err)
	h := handle.(*Handle)

	resp := &fuse.WriteResponse{}
	require.NoError(t, h.Write(ctx, &fuse.WriteRequest{Offset: 0, Data: []byte("hello ")}, resp))
	require.Equal(t, 6, resp.Size)
	require.NoError(t, h.Write(ctx, &fuse.WriteRequest{Offset: 6, Data: []byte("world")}, resp))

	// nothing reaches the engine before flush
	data, err := st.Read("a.txt")
	require.NoError(t, err)
	require.Empty(t, data)

	require.NoError(t, h.Flush(ctx, &fuse.FlushRequest{}))
	data, err = st.Read("a.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), data)

	var attr fuse.Attr
	require.NoError(t, node.Attr(ctx, &attr))
	require.Equal(t, uint64(11), attr.Size)
}

func TestLookupAndReadDir(t *testing.T) {
	ctx := context.Background()
	dir, st := newTestFS(t, false)
	require.NoError(t, st.Create("a"))
	require.NoError(t, st.Create("b"))
	require.NoError(t, st.Write("b", []byte("some content")))

	dirents, err := dir.ReadDirAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []fuse.Dirent{{Name: "a", Type: fuse.DT_File}, {Name: "b", Type: fuse.DT_File}}, dirents)

	_, err = dir.Lookup(ctx, "missing")
	require.Equal(t, fuse.ENOENT, err)

	node, err := dir.Lookup(ctx, "b")
	require.NoError(t, err)
	handle, err := node.(*File).Open(ctx, &fuse.OpenRequest{Flags: fuse.OpenReadOnly}, &fuse.OpenResponse{})
	require.NoError(t, err)

	resp := &fuse.ReadResponse{Data: make([]byte, 0, 100)}
	require.NoError(t, handle.(*Handle).Read(ctx, &fuse.ReadRequest{Offset: 5, Size: 100}, resp))
	require.Equal(t, []byte("content"), resp.Data)
}

func TestOpenTruncate(t *testing.T) {
	ctx := context.Background()
	dir, st := newTestFS(t, false)
	require.NoError(t, st.Create("a"))
	require.NoError(t, st.Write("a", []byte("old content")))

	node, err := dir.Lookup(ctx, "a")
	require.NoError(t, err)
	handle, err := node.(*File).Open(ctx, &fuse.OpenRequest{Flags: fuse.OpenWriteOnly | fuse.OpenTruncate}, &fuse.OpenResponse{})
	require.NoError(t, err)
	h := handle.(*Handle)
	require.NoError(t, h.Write(ctx, &fuse.WriteRequest{Data: []byte("new")}, &fuse.WriteResponse{}))
	require.NoError(t, h.Release(ctx, &fuse.ReleaseRequest{}))

	data, err := st.Read("a")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), data)
}

func TestSetattrSize(t *testing.T) {
	ctx := context.Background()
	dir, st := newTestFS(t, false)
	require.NoError(t, st.Create("a"))
	require.NoError(t, st.Write("a", []byte("0123456789")))

	node, err := dir.Lookup(ctx, "a")
	require.NoError(t, err)
	resp := &fuse.SetattrResponse{}
	require.NoError(t, node.(*File).Setattr(ctx, &fuse.SetattrRequest{Valid: fuse.SetattrSize, Size: 4}, resp))
	require.Equal(t, uint64(4), resp.Attr.Size)

	data, err := st.Read("a")
	require.NoError(t, err)
	require.Equal(t, []byte("0123"), data)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	dir, st := newTestFS(t, false)

	_, _, err := dir.Create(ctx, &fuse.CreateRequest{Name: "a"}, &fuse.CreateResponse{})
	require.NoError(t, err)
	_, _, err = dir.Create(ctx, &fuse.CreateRequest{Name: "a"}, &fuse.CreateResponse{})
	require.Equal(t, fuse.Errno(syscall.EEXIST), err)
	_, _, err = dir.Create(ctx, &fuse.CreateRequest{Name: "twelve.bytes"}, &fuse.CreateResponse{})
	require.Equal(t, fuse.Errno(syscall.EINVAL), err)

	require.Equal(t, fuse.ENOENT, dir.Remove(ctx, &fuse.RemoveRequest{Name: "b"}))

	node, err := dir.Lookup(ctx, "a")
	require.NoError(t, err)
	handle, err := node.(*File).Open(ctx, &fuse.OpenRequest{Flags: fuse.OpenReadWrite}, &fuse.OpenResponse{})
	require.NoError(t, err)
	big := make([]byte, st.Geometry().MaxFileSize()+1)
	err = handle.(*Handle).Write(ctx, &fuse.WriteRequest{Data: big}, &fuse.WriteResponse{})
	require.Equal(t, fuse.Errno(syscall.EFBIG), err)

	for _, name := range []string{"b", "c", "d", "e"} {
		require.NoError(t, st.Create(name))
	}
	_, _, err = dir.Create(ctx, &fuse.CreateRequest{Name: "f"}, &fuse.CreateResponse{})
	require.Equal(t, fuse.Errno(syscall.ENOSPC), err)

	require.NoError(t, dir.Remove(ctx, &fuse.RemoveRequest{Name: "a"}))
	_, err = st.Stat("a")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	dir, st := newTestFS(t, true)
	require.NoError(t, st.Create("a"))

	_, _, err := dir.Create(ctx, &fuse.CreateRequest{Name: "b"}, &fuse.CreateResponse{})
	require.Equal(t, fuse.Errno(syscall.EROFS), err)
	require.Equal(t, fuse.Errno(syscall.EROFS), dir.Remove(ctx, &fuse.RemoveRequest{Name: "a"}))

	node, err := dir.Lookup(ctx, "a")
	require.NoError(t, err)
	_, err = node.(*File).Open(ctx, &fuse.OpenRequest{Flags: fuse.OpenWriteOnly}, &fuse.OpenResponse{})
	require.Equal(t, fuse.Errno(syscall.EROFS), err)

	var attr fuse.Attr
	require.NoError(t, node.Attr(ctx, &attr))
	require.Equal(t, uint32(0444), uint32(attr.Mode))
}
