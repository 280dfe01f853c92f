package fs

import "rvos/defs"

/// Inode_t is the in-kernel handle for one on-disk inode, named by
/// its block and byte offset in the inode area. Operations that touch
/// a bitmap or the directory hold the filesystem lock for their whole
/// extent.
type Inode_t struct {
	Block int
	Off   int
	fs    *Efs_t
	dev   Blockdev_i
}

func (ino *Inode_t) read_disk_inode(f func(*Diskinode_t)) {
	Get_cache(ino.Block, ino.dev).Read(ino.Off, func(b []uint8) {
		f(Inodeview(b))
	})
}

func (ino *Inode_t) modify_disk_inode(f func(*Diskinode_t)) {
	Get_cache(ino.Block, ino.dev).Modify(ino.Off, func(b []uint8) {
		f(Inodeview(b))
	})
}

// inum recovers the inode id from the handle's position.
func (ino *Inode_t) inum() int {
	per := BLKSIZE / INODESZ
	return (ino.Block-ino.fs.inode_start)*per + ino.Off/INODESZ
}

// find_inum scans a directory for name. Caller holds the fs lock.
func (ino *Inode_t) find_inum(name string, di *Diskinode_t) (uint32, int, bool) {
	n := int(di.Size) / DIRENTSZ
	var de Direntry_t
	for i := 0; i < n; i++ {
		if di.Read_at(i*DIRENTSZ, Dirent_bytes(&de), ino.dev) != DIRENTSZ {
			panic("short dirent read")
		}
		if de.Filename() == name {
			return de.Inum, i, true
		}
	}
	return 0, 0, false
}

func (ino *Inode_t) inode_at(inum uint32) *Inode_t {
	blk, off := ino.fs.Inode_pos(int(inum))
	return &Inode_t{Block: blk, Off: off, fs: ino.fs, dev: ino.dev}
}

/// Find returns the child of this directory with the given name.
func (ino *Inode_t) Find(name string) (*Inode_t, bool) {
	ino.fs.Lock()
	defer ino.fs.Unlock()
	var ret *Inode_t
	ino.read_disk_inode(func(di *Diskinode_t) {
		if inum, _, ok := ino.find_inum(name, di); ok {
			ret = ino.inode_at(inum)
		}
	})
	return ret, ret != nil
}

/// Ls lists the directory's entry names.
func (ino *Inode_t) Ls() []string {
	ino.fs.Lock()
	defer ino.fs.Unlock()
	var names []string
	ino.read_disk_inode(func(di *Diskinode_t) {
		n := int(di.Size) / DIRENTSZ
		var de Direntry_t
		for i := 0; i < n; i++ {
			if di.Read_at(i*DIRENTSZ, Dirent_bytes(&de), ino.dev) != DIRENTSZ {
				panic("short dirent read")
			}
			names = append(names, de.Filename())
		}
	})
	return names
}

// grow allocates data blocks and wires them; holds the fs lock via
// the caller. Rolls the allocations back on exhaustion.
func (ino *Inode_t) grow(di *Diskinode_t, new_size uint32) defs.Err_t {
	if new_size <= di.Size {
		return 0
	}
	need := int(di.Blocks_needed(new_size))
	blocks := make([]uint32, 0, need)
	for i := 0; i < need; i++ {
		blk, ok := ino.fs.Alloc_data()
		if !ok {
			for _, b := range blocks {
				ino.fs.Dealloc_data(int(b))
			}
			return -defs.ENOSPC
		}
		blocks = append(blocks, uint32(blk))
	}
	di.Increase_size(new_size, blocks, ino.dev)
	return 0
}

/// Create adds an empty file named name to this directory and
/// returns its inode. Fails with EEXIST for a duplicate name and
/// ENOSPC when either allocation cannot be satisfied.
func (ino *Inode_t) Create(name string) (*Inode_t, defs.Err_t) {
	if len(name) > NAMELEN {
		return nil, -defs.EINVAL
	}
	ino.fs.Lock()
	defer ino.fs.Unlock()
	var err defs.Err_t
	exists := false
	ino.read_disk_inode(func(di *Diskinode_t) {
		if !di.Isdir() {
			err = -defs.ENOTDIR
			return
		}
		_, _, exists = ino.find_inum(name, di)
	})
	if err != 0 {
		return nil, err
	}
	if exists {
		return nil, -defs.EEXIST
	}
	inum, ok := ino.fs.Alloc_inode()
	if !ok {
		return nil, -defs.ENOSPC
	}
	nblk, noff := ino.fs.Inode_pos(inum)
	Get_cache(nblk, ino.dev).Modify(noff, func(b []uint8) {
		Inodeview(b).Initialize(IFILE)
	})
	ino.modify_disk_inode(func(di *Diskinode_t) {
		cnt := int(di.Size) / DIRENTSZ
		if err = ino.grow(di, uint32((cnt+1)*DIRENTSZ)); err != 0 {
			return
		}
		de := Mkdirent(name, uint32(inum))
		di.Write_at(cnt*DIRENTSZ, Dirent_bytes(&de), ino.dev)
	})
	if err != 0 {
		ino.fs.Dealloc_inode(inum)
		return nil, err
	}
	return ino.inode_at(uint32(inum)), 0
}

/// Read_at copies file bytes into buf.
func (ino *Inode_t) Read_at(off int, buf []uint8) int {
	ino.fs.Lock()
	defer ino.fs.Unlock()
	var n int
	ino.read_disk_inode(func(di *Diskinode_t) {
		n = di.Read_at(off, buf, ino.dev)
	})
	return n
}

/// Write_at writes buf at off, growing the file first. Returns the
/// byte count or ENOSPC.
func (ino *Inode_t) Write_at(off int, buf []uint8) (int, defs.Err_t) {
	ino.fs.Lock()
	defer ino.fs.Unlock()
	var n int
	var err defs.Err_t
	ino.modify_disk_inode(func(di *Diskinode_t) {
		if err = ino.grow(di, uint32(off+len(buf))); err != 0 {
			return
		}
		n = di.Write_at(off, buf, ino.dev)
	})
	return n, err
}

/// Size returns the current file size.
func (ino *Inode_t) Size() int {
	ino.fs.Lock()
	defer ino.fs.Unlock()
	var sz int
	ino.read_disk_inode(func(di *Diskinode_t) {
		sz = int(di.Size)
	})
	return sz
}

/// Isdir reports whether the inode is a directory.
func (ino *Inode_t) Isdir() bool {
	ino.fs.Lock()
	defer ino.fs.Unlock()
	var d bool
	ino.read_disk_inode(func(di *Diskinode_t) {
		d = di.Isdir()
	})
	return d
}

/// Read_all reads the whole file.
func (ino *Inode_t) Read_all() []uint8 {
	ino.fs.Lock()
	defer ino.fs.Unlock()
	var out []uint8
	ino.read_disk_inode(func(di *Diskinode_t) {
		out = make([]uint8, di.Size)
		if di.Read_at(0, out, ino.dev) != len(out) {
			panic("short read_all")
		}
	})
	return out
}

/// Clear truncates the file to zero, returning every data block to
/// the bitmap.
func (ino *Inode_t) Clear() {
	ino.fs.Lock()
	defer ino.fs.Unlock()
	ino.clear_locked()
}

func (ino *Inode_t) clear_locked() {
	ino.modify_disk_inode(func(di *Diskinode_t) {
		for _, blk := range di.Clear_size(ino.dev) {
			ino.fs.Dealloc_data(int(blk))
		}
	})
}

/// Unlink removes the named file from this directory: its data blocks
/// and inode bit return to the bitmaps, and the directory is rebuilt
/// without the entry so its own tail blocks return as well.
func (ino *Inode_t) Unlink(name string) defs.Err_t {
	ino.fs.Lock()
	defer ino.fs.Unlock()
	var inum uint32
	var slot int
	found := false
	var kept []Direntry_t
	ino.read_disk_inode(func(di *Diskinode_t) {
		inum, slot, found = ino.find_inum(name, di)
		if !found {
			return
		}
		n := int(di.Size) / DIRENTSZ
		for i := 0; i < n; i++ {
			if i == slot {
				continue
			}
			var de Direntry_t
			if di.Read_at(i*DIRENTSZ, Dirent_bytes(&de), ino.dev) != DIRENTSZ {
				panic("short dirent read")
			}
			kept = append(kept, de)
		}
	})
	if !found {
		return -defs.ENOENT
	}
	victim := ino.inode_at(inum)
	victim.clear_locked()
	ino.fs.Dealloc_inode(int(inum))
	var gerr defs.Err_t
	ino.modify_disk_inode(func(di *Diskinode_t) {
		for _, blk := range di.Clear_size(ino.dev) {
			ino.fs.Dealloc_data(int(blk))
		}
		if gerr = ino.grow(di, uint32(len(kept)*DIRENTSZ)); gerr != 0 {
			return
		}
		for i := range kept {
			di.Write_at(i*DIRENTSZ, Dirent_bytes(&kept[i]), ino.dev)
		}
	})
	return gerr
}
