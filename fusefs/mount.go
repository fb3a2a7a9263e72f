package fusefs

import (
	"context"
	"fmt"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/viert/flatfs/storage"
)

// Mount serves st at mountPoint until the filesystem is unmounted
// or ctx is cancelled
func Mount(ctx context.Context, st *storage.Storage, mountPoint string, readOnly bool) error {
	opts := []fuse.MountOption{
		fuse.FSName("flatfs"),
		fuse.Subtype("flatfs"),
	}
	if readOnly {
		opts = append(opts, fuse.ReadOnly())
	}

	log.Infof("mounting at %s", mountPoint)
	c, err := fuse.Mount(mountPoint, opts...)
	if err != nil {
		return fmt.Errorf("failed to mount: %w", err)
	}
	defer c.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			log.Infof("unmounting %s", mountPoint)
			if err := fuse.Unmount(mountPoint); err != nil {
				log.Errorf("failed to unmount cleanly: %s", err)
			}
		case <-done:
		}
	}()

	if err := fs.Serve(c, New(st, readOnly)); err != nil {
		return fmt.Errorf("error serving filesystem: %w", err)
	}
	return nil
}
