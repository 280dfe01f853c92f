// mkfs formats an easy-fs image and packs a skeleton directory of
// host files into it, flat, the way the kernel expects to find
// initproc and friends at the root.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"rvos/fs"
	"rvos/ufs"
)

const (
	defblocks = 8192 // 4 MiB
	defibmap  = 1
)

func addfiles(u *ufs.Ufs_t, skeldir string) error {
	return filepath.WalkDir(skeldir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		name := filepath.Base(path)
		if err := u.MkFile(name, data); err != nil {
			return err
		}
		slog.Info("packed", "name", name, "bytes", len(data))
		return nil
	})
}

func main() {
	img := flag.String("img", "fs.img", "output image path")
	blocks := flag.Int("blocks", defblocks, "total image blocks")
	flag.Parse()
	if flag.NArg() != 1 {
		slog.Error("usage: mkfs [-img out] [-blocks n] <skel dir>")
		os.Exit(1)
	}

	disk, err := ufs.Opendisk(*img)
	if err != nil {
		slog.Error("open image", "err", err)
		os.Exit(1)
	}
	u := ufs.Format(disk, *blocks, defibmap)
	if err := addfiles(u, flag.Arg(0)); err != nil {
		slog.Error("pack", "err", err)
		os.Exit(1)
	}
	ni, nd := u.Sizes()
	slog.Info("image ready", "img", *img, "inodes", ni, "datablocks", nd)
	fs.Sync_all()
	if err := disk.Close(); err != nil {
		slog.Error("close image", "err", err)
		os.Exit(1)
	}
}
