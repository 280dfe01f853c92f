package fs

import "sync"

/// Efs_t owns the bitmaps and the region layout of one mounted
/// filesystem. The mutex is held across any whole operation that
/// touches a bitmap or the inode area; block-cache locks may nest
/// inside it, never the reverse.
type Efs_t struct {
	sync.Mutex
	dev          Blockdev_i
	Inode_bitmap *Bitmap_t
	Data_bitmap  *Bitmap_t
	inode_start  int
	data_start   int
}

/// Create formats a device: superblock, cleared bitmaps, root
/// directory at inode 0.
func Create(dev Blockdev_i, total_blocks, inode_bitmap_blocks int) *Efs_t {
	ibm := Mkbitmap(1, inode_bitmap_blocks)
	inodes := ibm.Maximum()
	inode_area := (inodes*INODESZ + BLKSIZE - 1) / BLKSIZE
	inode_total := inode_bitmap_blocks + inode_area
	data_total := total_blocks - 1 - inode_total
	data_bitmap_blocks := (data_total + BLKBITS) / (BLKBITS + 1)
	data_area := data_total - data_bitmap_blocks
	efs := &Efs_t{
		dev:          dev,
		Inode_bitmap: ibm,
		Data_bitmap:  Mkbitmap(inode_total+1, data_bitmap_blocks),
		inode_start:  1 + inode_bitmap_blocks,
		data_start:   1 + inode_total + data_bitmap_blocks,
	}
	for i := 0; i < total_blocks; i++ {
		Get_cache(i, dev).Modify(0, func(b []uint8) {
			for j := range b[:BLKSIZE] {
				b[j] = 0
			}
		})
	}
	Get_cache(0, dev).Modify(0, func(b []uint8) {
		Sbview(b).Initialize(uint32(total_blocks), uint32(inode_bitmap_blocks),
			uint32(inode_area), uint32(data_bitmap_blocks), uint32(data_area))
	})
	// the root directory is always inode 0
	if id, ok := efs.Alloc_inode(); !ok || id != 0 {
		panic("root inode must be 0")
	}
	blk, off := efs.Inode_pos(0)
	Get_cache(blk, dev).Modify(off, func(b []uint8) {
		Inodeview(b).Initialize(IDIR)
	})
	Sync_all()
	return efs
}

/// Open mounts an already-formatted device.
func Open(dev Blockdev_i) *Efs_t {
	var efs *Efs_t
	Get_cache(0, dev).Read(0, func(b []uint8) {
		sb := Sbview(b)
		if !sb.Valid() {
			panic("bad superblock magic")
		}
		inode_total := int(sb.Inode_bitmap_blocks + sb.Inode_area_blocks)
		efs = &Efs_t{
			dev:          dev,
			Inode_bitmap: Mkbitmap(1, int(sb.Inode_bitmap_blocks)),
			Data_bitmap:  Mkbitmap(inode_total+1, int(sb.Data_bitmap_blocks)),
			inode_start:  1 + int(sb.Inode_bitmap_blocks),
			data_start:   1 + inode_total + int(sb.Data_bitmap_blocks),
		}
	})
	return efs
}

/// Dev returns the underlying device.
func (efs *Efs_t) Dev() Blockdev_i {
	return efs.dev
}

/// Inode_pos maps an inode id to its block and byte offset.
func (efs *Efs_t) Inode_pos(id int) (int, int) {
	per := BLKSIZE / INODESZ
	return efs.inode_start + id/per, (id % per) * INODESZ
}

/// Alloc_inode takes an inode id from the bitmap.
func (efs *Efs_t) Alloc_inode() (int, bool) {
	return efs.Inode_bitmap.Alloc(efs.dev)
}

/// Dealloc_inode returns an inode id.
func (efs *Efs_t) Dealloc_inode(id int) {
	efs.Inode_bitmap.Dealloc(efs.dev, id)
}

/// Alloc_data takes a data block and returns its absolute block id,
/// or ok=false once the data area is exhausted.
func (efs *Efs_t) Alloc_data() (int, bool) {
	bit, ok := efs.Data_bitmap.Alloc(efs.dev)
	if !ok {
		return 0, false
	}
	// the bitmap holds more bits than the data area has blocks
	var area int
	Get_cache(0, efs.dev).Read(0, func(b []uint8) {
		area = int(Sbview(b).Data_area_blocks)
	})
	if bit >= area {
		efs.Data_bitmap.Dealloc(efs.dev, bit)
		return 0, false
	}
	return bit + efs.data_start, true
}

/// Dealloc_data zeroes and returns a data block.
func (efs *Efs_t) Dealloc_data(blk int) {
	Get_cache(blk, efs.dev).Modify(0, func(b []uint8) {
		for j := range b[:BLKSIZE] {
			b[j] = 0
		}
	})
	efs.Data_bitmap.Dealloc(efs.dev, blk-efs.data_start)
}

/// Root_inode returns the root directory's VFS inode.
func (efs *Efs_t) Root_inode() *Inode_t {
	blk, off := efs.Inode_pos(0)
	return &Inode_t{Block: blk, Off: off, fs: efs, dev: efs.dev}
}
