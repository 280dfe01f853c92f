package ufs

import "github.com/pkg/errors"

import "rvos/fs"

//
// FS
//

/// Ufs_t wraps a mounted filesystem and its root for host-side use.
type Ufs_t struct {
	dev  fs.Blockdev_i
	efs  *fs.Efs_t
	root *fs.Inode_t
}

/// Format creates a filesystem on the device and mounts it.
func Format(dev fs.Blockdev_i, total_blocks, inode_bitmap_blocks int) *Ufs_t {
	efs := fs.Create(dev, total_blocks, inode_bitmap_blocks)
	return &Ufs_t{dev: dev, efs: efs, root: efs.Root_inode()}
}

/// BootFS mounts an already-formatted device.
func BootFS(dev fs.Blockdev_i) (*Ufs_t, error) {
	efs := fs.Open(dev)
	return &Ufs_t{dev: dev, efs: efs, root: efs.Root_inode()}, nil
}

/// Efs exposes the filesystem structure.
func (u *Ufs_t) Efs() *fs.Efs_t {
	return u.efs
}

/// Root returns the root directory inode.
func (u *Ufs_t) Root() *fs.Inode_t {
	return u.root
}

/// MkFile creates name in the root directory and writes data into it.
func (u *Ufs_t) MkFile(name string, data []uint8) error {
	ino, err := u.root.Create(name)
	if err != 0 {
		return errors.Errorf("create %s: err %d", name, err)
	}
	if data == nil {
		return nil
	}
	n, werr := ino.Write_at(0, data)
	if werr != 0 || n != len(data) {
		return errors.Errorf("write %s: %d of %d bytes, err %d", name, n, len(data), werr)
	}
	return nil
}

/// Read returns the whole named file.
func (u *Ufs_t) Read(name string) ([]uint8, error) {
	ino, ok := u.root.Find(name)
	if !ok {
		return nil, errors.Errorf("no such file %s", name)
	}
	return ino.Read_all(), nil
}

/// Ls lists the root directory.
func (u *Ufs_t) Ls() []string {
	return u.root.Ls()
}

/// Unlink removes the named file.
func (u *Ufs_t) Unlink(name string) error {
	if err := u.root.Unlink(name); err != 0 {
		return errors.Errorf("unlink %s: err %d", name, err)
	}
	return nil
}

/// Sizes reports inode and data bits in use.
func (u *Ufs_t) Sizes() (int, int) {
	return u.efs.Inode_bitmap.Inuse(u.dev), u.efs.Data_bitmap.Inuse(u.dev)
}

/// Sync flushes the block cache to the device.
func (u *Ufs_t) Sync() {
	fs.Sync_all()
}
