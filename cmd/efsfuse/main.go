// efsfuse mounts an easy-fs image on the host through FUSE so images
// built by mkfs can be inspected and edited with ordinary tools.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"syscall"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	rfs "rvos/fs"
	"rvos/ufs"
)

// efsroot is the image's root directory.
type efsroot struct {
	gofs.Inode
	u *ufs.Ufs_t
}

// efsfile is one regular file in the image.
type efsfile struct {
	gofs.Inode
	ino *rfs.Inode_t
}

var _ = (gofs.NodeReaddirer)((*efsroot)(nil))
var _ = (gofs.NodeLookuper)((*efsroot)(nil))
var _ = (gofs.NodeCreater)((*efsroot)(nil))
var _ = (gofs.NodeUnlinker)((*efsroot)(nil))

func (r *efsroot) Readdir(ctx context.Context) (gofs.DirStream, syscall.Errno) {
	var ents []fuse.DirEntry
	for _, name := range r.u.Ls() {
		ents = append(ents, fuse.DirEntry{Mode: fuse.S_IFREG, Name: name})
	}
	return gofs.NewListDirStream(ents), 0
}

func (r *efsroot) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	ino, ok := r.u.Root().Find(name)
	if !ok {
		return nil, syscall.ENOENT
	}
	out.Attr.Mode = fuse.S_IFREG | 0644
	out.Attr.Size = uint64(ino.Size())
	ch := r.NewInode(ctx, &efsfile{ino: ino}, gofs.StableAttr{Mode: fuse.S_IFREG})
	return ch, 0
}

func (r *efsroot) Create(ctx context.Context, name string, flags, mode uint32, out *fuse.EntryOut) (*gofs.Inode, gofs.FileHandle, uint32, syscall.Errno) {
	ino, err := r.u.Root().Create(name)
	if err != 0 {
		return nil, nil, 0, syscall.EIO
	}
	out.Attr.Mode = fuse.S_IFREG | 0644
	ch := r.NewInode(ctx, &efsfile{ino: ino}, gofs.StableAttr{Mode: fuse.S_IFREG})
	return ch, nil, 0, 0
}

func (r *efsroot) Unlink(ctx context.Context, name string) syscall.Errno {
	if err := r.u.Root().Unlink(name); err != 0 {
		return syscall.ENOENT
	}
	return 0
}

var _ = (gofs.NodeGetattrer)((*efsfile)(nil))
var _ = (gofs.NodeOpener)((*efsfile)(nil))
var _ = (gofs.NodeReader)((*efsfile)(nil))
var _ = (gofs.NodeWriter)((*efsfile)(nil))

func (f *efsfile) Getattr(ctx context.Context, fh gofs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = fuse.S_IFREG | 0644
	out.Size = uint64(f.ino.Size())
	return 0
}

func (f *efsfile) Open(ctx context.Context, flags uint32) (gofs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (f *efsfile) Read(ctx context.Context, fh gofs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n := f.ino.Read_at(int(off), dest)
	return fuse.ReadResultData(dest[:n]), 0
}

func (f *efsfile) Write(ctx context.Context, fh gofs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	n, err := f.ino.Write_at(int(off), data)
	if err != 0 {
		return uint32(n), syscall.ENOSPC
	}
	return uint32(n), 0
}

func main() {
	img := flag.String("img", "fs.img", "image to mount")
	flag.Parse()
	if flag.NArg() != 1 {
		slog.Error("usage: efsfuse [-img fs.img] <mountpoint>")
		os.Exit(1)
	}

	disk, err := ufs.Opendisk(*img)
	if err != nil {
		slog.Error("open image", "err", err)
		os.Exit(1)
	}
	u, err := ufs.BootFS(disk)
	if err != nil {
		slog.Error("mount image", "err", err)
		os.Exit(1)
	}

	srv, err := gofs.Mount(flag.Arg(0), &efsroot{u: u}, &gofs.Options{})
	if err != nil {
		slog.Error("fuse mount", "err", err)
		os.Exit(1)
	}
	slog.Info("mounted", "img", *img, "at", flag.Arg(0))
	srv.Wait()
	u.Sync()
	if err := disk.Close(); err != nil {
		slog.Error("close image", "err", err)
	}
}
