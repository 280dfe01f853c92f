package fs

import "sync"
import "testing"
import "unsafe"

import "rvos/defs"

// testdev is a map-backed block device; untouched blocks read zero.
type testdev_t struct {
	sync.Mutex
	blocks  map[int]*[BLKSIZE]uint8
	nreads  int
	nwrites int
}

func mktestdev() *testdev_t {
	return &testdev_t{blocks: make(map[int]*[BLKSIZE]uint8)}
}

func (d *testdev_t) Read_block(id int, buf *[BLKSIZE]uint8) {
	d.Lock()
	defer d.Unlock()
	d.nreads++
	if b, ok := d.blocks[id]; ok {
		*buf = *b
	} else {
		*buf = [BLKSIZE]uint8{}
	}
}

func (d *testdev_t) Write_block(id int, buf *[BLKSIZE]uint8) {
	d.Lock()
	defer d.Unlock()
	d.nwrites++
	b := *buf
	d.blocks[id] = &b
}

func TestLayoutSizes(t *testing.T) {
	if sz := unsafe.Sizeof(Superblock_t{}); sz != 24 {
		t.Fatalf("superblock %v bytes", sz)
	}
	if sz := unsafe.Sizeof(Diskinode_t{}); sz != INODESZ {
		t.Fatalf("diskinode %v bytes", sz)
	}
	if sz := unsafe.Sizeof(Direntry_t{}); sz != DIRENTSZ {
		t.Fatalf("direntry %v bytes", sz)
	}
}

func TestSuperblockView(t *testing.T) {
	raw := make([]uint8, BLKSIZE)
	Sbview(raw).Initialize(100, 1, 26, 1, 71)
	// magic little-endian at offset 0
	if raw[0] != 0x01 || raw[1] != 0x00 || raw[2] != 0x80 || raw[3] != 0x3b {
		t.Fatalf("magic bytes %x", raw[:4])
	}
	sb := Sbview(raw)
	if !sb.Valid() || sb.Total_blocks != 100 || sb.Data_area_blocks != 71 {
		t.Fatalf("superblock reread: %+v", sb)
	}
}

func TestDirentView(t *testing.T) {
	de := Mkdirent("initproc", 7)
	if de.Filename() != "initproc" {
		t.Fatalf("name %q", de.Filename())
	}
	raw := (*[DIRENTSZ]uint8)(unsafe.Pointer(&de))
	if raw[28] != 7 || raw[29] != 0 {
		t.Fatalf("inum not at offset 28: %x", raw[24:])
	}
}

func TestBitmap(t *testing.T) {
	Cache_reset()
	dev := mktestdev()
	bm := Mkbitmap(0, 1)
	for i := 0; i < 100; i++ {
		bit, ok := bm.Alloc(dev)
		if !ok || bit != i {
			t.Fatalf("alloc %v gave %v ok %v", i, bit, ok)
		}
	}
	bm.Dealloc(dev, 31)
	bm.Dealloc(dev, 64)
	if bit, _ := bm.Alloc(dev); bit != 31 {
		t.Fatalf("realloc gave %v, want lowest clear bit", bit)
	}
	if bm.Inuse(dev) != 99 {
		t.Fatalf("inuse %v", bm.Inuse(dev))
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("clear-bit dealloc did not panic")
			}
		}()
		bm.Dealloc(dev, 64)
	}()
}

func TestBitmapFull(t *testing.T) {
	Cache_reset()
	dev := mktestdev()
	bm := Mkbitmap(0, 1)
	for i := 0; i < bm.Maximum(); i++ {
		if _, ok := bm.Alloc(dev); !ok {
			t.Fatalf("alloc %v failed early", i)
		}
	}
	if _, ok := bm.Alloc(dev); ok {
		t.Fatalf("alloc from full bitmap succeeded")
	}
}

func TestTotalBlocks(t *testing.T) {
	specs := []struct {
		size uint32
		want uint32
	}{
		{0, 0},
		{1, 1},
		{BLKSIZE, 1},
		{NDIRECT * BLKSIZE, NDIRECT},
		{(NDIRECT + 1) * BLKSIZE, NDIRECT + 2},
		{IND1_END * BLKSIZE, IND1_END + 1},
		{(IND1_END + 1) * BLKSIZE, IND1_END + 1 + 3},
	}
	for _, s := range specs {
		if got := Total_blocks(s.size); got != s.want {
			t.Fatalf("total_blocks(%v) = %v, want %v", s.size, got, s.want)
		}
	}
}

// grow then clear must hand back exactly the set of blocks wired in.
func TestGrowClear(t *testing.T) {
	Cache_reset()
	dev := mktestdev()
	var di Diskinode_t
	di.Initialize(IFILE)

	size := uint32((IND1_END + 200) * BLKSIZE)
	need := int(di.Blocks_needed(size))
	handed := make([]uint32, need)
	for i := range handed {
		handed[i] = uint32(1000 + i)
	}
	di.Increase_size(size, handed, dev)
	if di.Size != size {
		t.Fatalf("size %v after grow", di.Size)
	}
	// every logical block resolves to one of the handed blocks
	seen := make(map[uint32]bool)
	for i := uint32(0); i < di.Data_blocks(); i++ {
		seen[di.Get_block_id(i, dev)] = true
	}
	got := di.Clear_size(dev)
	if di.Size != 0 || di.Indirect1 != 0 || di.Indirect2 != 0 {
		t.Fatalf("clear left state: %v %v %v", di.Size, di.Indirect1, di.Indirect2)
	}
	want := make(map[uint32]bool)
	for _, b := range handed {
		want[b] = true
	}
	gotset := make(map[uint32]bool)
	for _, b := range got {
		gotset[b] = true
	}
	if len(gotset) != len(want) {
		t.Fatalf("clear returned %v distinct blocks, handed %v", len(gotset), len(want))
	}
	for b := range want {
		if !gotset[b] {
			t.Fatalf("block %v not returned by clear", b)
		}
	}
	for b := range seen {
		if !want[b] {
			t.Fatalf("data resolved to unhanded block %v", b)
		}
	}
}

func mkfs_t(t *testing.T, total int) (*Efs_t, *testdev_t) {
	t.Helper()
	Cache_reset()
	dev := mktestdev()
	return Create(dev, total, 1), dev
}

func TestCreateFindLs(t *testing.T) {
	efs, _ := mkfs_t(t, 2048)
	root := efs.Root_inode()
	if _, ok := root.Find("a"); ok {
		t.Fatalf("find on empty root succeeded")
	}
	ino, err := root.Create("a")
	if err != 0 || ino == nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := root.Create("a"); err != -defs.EEXIST {
		t.Fatalf("duplicate create: %v", err)
	}
	if _, ok := root.Find("a"); !ok {
		t.Fatalf("find after create failed")
	}
	names := root.Ls()
	if len(names) != 1 || names[0] != "a" {
		t.Fatalf("ls %v", names)
	}
}

func TestFileRoundtrip(t *testing.T) {
	efs, _ := mkfs_t(t, 8192)
	root := efs.Root_inode()
	ni0 := efs.Inode_bitmap.Inuse(efs.Dev())
	nd0 := efs.Data_bitmap.Inuse(efs.Dev())

	ino, err := root.Create("a")
	if err != 0 {
		t.Fatalf("create: %v", err)
	}
	pattern := make([]uint8, 10000)
	for i := range pattern {
		pattern[i] = uint8(i % 251)
	}
	if n, err := ino.Write_at(0, pattern); n != len(pattern) || err != 0 {
		t.Fatalf("write %v %v", n, err)
	}
	Sync_all()
	Cache_reset()

	// reopen from the device and reread
	efs2 := Open(efs.Dev())
	ino2, ok := efs2.Root_inode().Find("a")
	if !ok {
		t.Fatalf("find after reopen failed")
	}
	if ino2.Size() != len(pattern) {
		t.Fatalf("size %v after reopen", ino2.Size())
	}
	back := ino2.Read_all()
	for i := range pattern {
		if back[i] != pattern[i] {
			t.Fatalf("byte %v differs after reopen", i)
		}
	}

	// unlink returns both bitmaps to their pre-create state
	if err := efs2.Root_inode().Unlink("a"); err != 0 {
		t.Fatalf("unlink: %v", err)
	}
	if ni := efs2.Inode_bitmap.Inuse(efs2.Dev()); ni != ni0 {
		t.Fatalf("inode bitmap %v != %v after unlink", ni, ni0)
	}
	if nd := efs2.Data_bitmap.Inuse(efs2.Dev()); nd != nd0 {
		t.Fatalf("data bitmap %v != %v after unlink", nd, nd0)
	}
}

func TestWriteOffsets(t *testing.T) {
	efs, _ := mkfs_t(t, 2048)
	root := efs.Root_inode()
	ino, _ := root.Create("f")
	msg := []uint8("cross-block")
	off := BLKSIZE - 4
	if n, err := ino.Write_at(off, msg); n != len(msg) || err != 0 {
		t.Fatalf("write %v %v", n, err)
	}
	buf := make([]uint8, len(msg))
	if n := ino.Read_at(off, buf); n != len(msg) || string(buf) != string(msg) {
		t.Fatalf("read %v %q", n, buf)
	}
	// reads clamp at size
	long := make([]uint8, 100)
	if n := ino.Read_at(off, long); n != len(msg) {
		t.Fatalf("clamped read %v", n)
	}
}

func TestDiskFull(t *testing.T) {
	efs, _ := mkfs_t(t, 1100)
	root := efs.Root_inode()
	ino, err := root.Create("big")
	if err != 0 {
		t.Fatalf("create: %v", err)
	}
	nd0 := efs.Data_bitmap.Inuse(efs.Dev())
	huge := make([]uint8, 1<<20)
	n, werr := ino.Write_at(0, huge)
	if werr != -defs.ENOSPC {
		t.Fatalf("overfull write gave n %v err %v", n, werr)
	}
	// failed grow must roll its allocations back
	if nd := efs.Data_bitmap.Inuse(efs.Dev()); nd != nd0 {
		t.Fatalf("failed grow leaked data blocks: %v != %v", nd, nd0)
	}
}

func TestCacheWriteback(t *testing.T) {
	Cache_reset()
	dev := mktestdev()
	Get_cache(5, dev).Modify(0, func(b []uint8) {
		b[0] = 0xaa
	})
	if dev.blocks[5] != nil {
		t.Fatalf("write-through before sync")
	}
	Sync_all()
	if dev.blocks[5] == nil || dev.blocks[5][0] != 0xaa {
		t.Fatalf("sync did not write back")
	}

	// same id hits the cache, no second device read
	r0 := dev.nreads
	Get_cache(5, dev).Read(0, func(b []uint8) {})
	if dev.nreads != r0 {
		t.Fatalf("cache hit read the device")
	}

	// pushing past capacity evicts and writes dirty blocks back
	for i := 10; i < 10+CACHESZ+4; i++ {
		Get_cache(i, dev).Modify(0, func(b []uint8) {
			b[0] = uint8(i)
		})
	}
	found := false
	for i := 10; i < 10+4; i++ {
		if b, ok := dev.blocks[i]; ok && b[0] == uint8(i) {
			found = true
		}
	}
	if !found {
		t.Fatalf("eviction did not write back any dirty block")
	}
}
