package vm

import "testing"

import "rvos/defs"
import "rvos/mem"

func TestAddrProjections(t *testing.T) {
	specs := []struct {
		va    Va_t
		floor Vpn_t
		ceil  Vpn_t
		off   int
	}{
		{0, 0, 0, 0},
		{1, 0, 1, 1},
		{4096, 1, 1, 0},
		{4097, 1, 2, 1},
		{Va_t(defs.TRAMPOLINE), Vpn_t(defs.TRAMPOLINE >> 12), Vpn_t(defs.TRAMPOLINE >> 12), 0},
	}
	for _, s := range specs {
		if s.va.Floor() != s.floor || s.va.Ceil() != s.ceil || s.va.Off() != s.off {
			t.Fatalf("va %#x: floor %v ceil %v off %v", s.va, s.va.Floor(),
				s.va.Ceil(), s.va.Off())
		}
	}
}

func TestVpnIndexes(t *testing.T) {
	vpn := Vpn_t(1<<18 | 2<<9 | 3)
	idx := vpn.Indexes()
	if idx[0] != 1 || idx[1] != 2 || idx[2] != 3 {
		t.Fatalf("indexes %v", idx)
	}
}

func TestPteBits(t *testing.T) {
	pte := Mkpte(42, PTE_R|PTE_U)
	if pte.Ppn() != 42 {
		t.Fatalf("ppn %v", pte.Ppn())
	}
	if !pte.Leaf() || pte.Valid() {
		t.Fatalf("flag confusion: %#x", pte)
	}
	ptr := Mkpte(7, PTE_V)
	if ptr.Leaf() || !ptr.Valid() {
		t.Fatalf("pointer entry misread: %#x", ptr)
	}
}

func TestMapUnmapTranslate(t *testing.T) {
	phys := mem.Phys_init(64)
	pt := Mkpagetable(phys)
	f, _ := phys.Frame_alloc()
	vpn := Va_t(0x10000).Floor()
	pt.Map(vpn, f.Ppn, PTE_R|PTE_W|PTE_U)
	pte, ok := pt.Translate(vpn)
	if !ok || pte.Ppn() != f.Ppn || !pte.Writable() {
		t.Fatalf("translate after map: %#x %v", pte, ok)
	}
	pa, ok := pt.Translate_va(Va_t(0x10000 + 12))
	if !ok || pa != f.Ppn.Addr()+12 {
		t.Fatalf("translate_va %#x", pa)
	}
	pt.Unmap(vpn)
	if _, ok := pt.Translate(vpn); ok {
		t.Fatalf("translate after unmap succeeded")
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("unmap of absent page did not panic")
			}
		}()
		pt.Unmap(vpn)
	}()
	f.Free()
	pt.Free()
}

func TestRemapPanics(t *testing.T) {
	phys := mem.Phys_init(64)
	pt := Mkpagetable(phys)
	f, _ := phys.Frame_alloc()
	vpn := Vpn_t(5)
	pt.Map(vpn, f.Ppn, PTE_R)
	defer func() {
		if recover() == nil {
			t.Fatalf("double map did not panic")
		}
	}()
	pt.Map(vpn, f.Ppn, PTE_R)
}

func TestTokenBorrow(t *testing.T) {
	phys := mem.Phys_init(64)
	pt := Mkpagetable(phys)
	f, _ := phys.Frame_alloc()
	pt.Map(3, f.Ppn, PTE_R|PTE_U)
	bt := From_token(pt.Token(), phys)
	if pte, ok := bt.Translate(3); !ok || pte.Ppn() != f.Ppn {
		t.Fatalf("borrowed table cannot translate")
	}
	if pt.Token()>>60 != 8 {
		t.Fatalf("token mode bits %#x", pt.Token())
	}
}

// every vpn covered by an area must be valid in the table. Valid
// pages outside every area are not looked for.
func checkcover(t *testing.T, as *Aspace_t) {
	t.Helper()
	covered := as.Vpns()
	for vpn := range covered {
		if _, ok := as.Translate(vpn); !ok {
			t.Fatalf("area vpn %v not mapped", vpn)
		}
	}
}

func TestAspaceAreas(t *testing.T) {
	phys := mem.Phys_init(128)
	as := Mkaspace(phys)
	as.Map_trampoline()
	as.Insert_framed(0x10000, 0x13000, PTE_R|PTE_W|PTE_U)
	checkcover(t, as)
	free0 := phys.Nfree()
	as.Insert_framed(0x20000, 0x21000, PTE_R|PTE_U)
	as.Remove_area(Va_t(0x20000).Floor())
	if phys.Nfree() < free0 {
		t.Fatalf("area removal leaked frames: %v -> %v", free0, phys.Nfree())
	}
	as.Free()
}

func TestUserAccessors(t *testing.T) {
	phys := mem.Phys_init(128)
	as := Mkaspace(phys)
	as.Insert_framed(0x10000, 0x12000, PTE_R|PTE_W|PTE_U)
	tok := as.Token()

	if err := Userwriten(phys, tok, 0x10ffc, 8, 0x1122334455667788); err != 0 {
		t.Fatalf("userwriten across pages: %v", err)
	}
	v, err := Userreadn(phys, tok, 0x10ffc, 8)
	if err != 0 || v != 0x1122334455667788 {
		t.Fatalf("userreadn %#x err %v", v, err)
	}

	// NUL-terminated string
	msg := "hello"
	for i := 0; i < len(msg); i++ {
		Userwriten(phys, tok, 0x11000+i, 1, int(msg[i]))
	}
	Userwriten(phys, tok, 0x11000+len(msg), 1, 0)
	s, err := Translated_str(phys, tok, 0x11000)
	if err != 0 || s != msg {
		t.Fatalf("translated_str %q err %v", s, err)
	}

	// page-split buffers
	bufs, err := Translated_bytebuf(phys, tok, 0x10ff0, 32)
	if err != 0 || len(bufs) != 2 || len(bufs[0]) != 16 || len(bufs[1]) != 16 {
		t.Fatalf("bytebuf split wrong: %v pieces", len(bufs))
	}

	if _, err := Userreadn(phys, tok, 0x50000, 4); err != -defs.EFAULT {
		t.Fatalf("unmapped read gave %v", err)
	}
	as.Free()
}

func TestUserbuf(t *testing.T) {
	phys := mem.Phys_init(128)
	as := Mkaspace(phys)
	as.Insert_framed(0x10000, 0x12000, PTE_R|PTE_W|PTE_U)
	tok := as.Token()

	src := make([]uint8, 5000)
	for i := range src {
		src[i] = uint8(i * 7)
	}
	ub := Mkuserbuf(phys, tok, 0x10100, len(src))
	if n, err := ub.Uiowrite(src); n != len(src) || err != 0 {
		t.Fatalf("uiowrite %v %v", n, err)
	}
	dst := make([]uint8, 5000)
	ub = Mkuserbuf(phys, tok, 0x10100, len(dst))
	if n, err := ub.Uioread(dst); n != len(dst) || err != 0 {
		t.Fatalf("uioread %v %v", n, err)
	}
	for i := range dst {
		if dst[i] != src[i] {
			t.Fatalf("byte %v differs", i)
		}
	}
	as.Free()
}

func TestFromElf(t *testing.T) {
	phys := mem.Phys_init(256)
	code := []uint8{0x13, 0x00, 0x00, 0x00} // nop
	img := mkelf(0x10338, []elfseg_t{
		{vaddr: 0x10000, flags: 4 | 1, data: append(make([]uint8, 0x338%4096), code...)},
		{vaddr: 0x11000, flags: 4 | 2, data: []uint8{1, 2, 3}, extra: 32},
	})
	as, ubase, entry, err := From_elf(phys, img)
	if err != 0 {
		t.Fatalf("from_elf: %v", err)
	}
	if entry != 0x10338 {
		t.Fatalf("entry %#x", entry)
	}
	// stack base: highest segment end rounded up plus one guard page
	if ubase != 0x12000+defs.PGSIZE {
		t.Fatalf("ustack base %#x", ubase)
	}
	tok := as.Token()
	if v, _ := Userreadn(phys, tok, 0x10338, 4); v != 0x13 {
		t.Fatalf("code not loaded: %#x", v)
	}
	if v, _ := Userreadn(phys, tok, 0x11000, 3); v != 0x030201 {
		t.Fatalf("data not loaded: %#x", v)
	}
	// memsz past filesz reads zero
	if v, _ := Userreadn(phys, tok, 0x11003, 4); v != 0 {
		t.Fatalf("bss not zero: %#x", v)
	}
	checkcover(t, as)
	as.Free()
}

func TestForkCopy(t *testing.T) {
	phys := mem.Phys_init(256)
	parent := Mkaspace(phys)
	parent.Map_trampoline()
	parent.Insert_framed(0x10000, 0x12000, PTE_R|PTE_W|PTE_U)
	ptok := parent.Token()
	for i := 0; i < 64; i++ {
		Userwriten(phys, ptok, 0x10000+i*64, 8, i*0x01010101)
	}

	child := From_existed(parent)
	ctok := child.Token()
	for i := 0; i < 64; i++ {
		pv, _ := Userreadn(phys, ptok, 0x10000+i*64, 8)
		cv, _ := Userreadn(phys, ctok, 0x10000+i*64, 8)
		if pv != cv {
			t.Fatalf("offset %v differs after copy", i*64)
		}
	}
	// writes stay private
	Userwriten(phys, ctok, 0x10000, 8, 0xdead)
	pv, _ := Userreadn(phys, ptok, 0x10000, 8)
	if pv == 0xdead {
		t.Fatalf("child write visible in parent")
	}
	Userwriten(phys, ptok, 0x10100, 8, 0xbeef)
	cv, _ := Userreadn(phys, ctok, 0x10100, 8)
	if cv == 0xbeef {
		t.Fatalf("parent write visible in child")
	}
	parent.Free()
	child.Free()
}
