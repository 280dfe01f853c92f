package kernel

// Minimal RISC-V ELF64 images for loader tests.

type elfseg_t struct {
	vaddr int
	flags int // PF_X|PF_W|PF_R
	data  []uint8
	extra int // memsz beyond filesz
}

func le16(b []uint8, off, v int) {
	b[off] = uint8(v)
	b[off+1] = uint8(v >> 8)
}

func le32(b []uint8, off, v int) {
	for i := 0; i < 4; i++ {
		b[off+i] = uint8(v >> (8 * uint(i)))
	}
}

func le64(b []uint8, off, v int) {
	for i := 0; i < 8; i++ {
		b[off+i] = uint8(v >> (8 * uint(i)))
	}
}

func mkelf(entry int, segs []elfseg_t) []uint8 {
	const ehsize = 64
	const phsize = 56
	hdrs := ehsize + phsize*len(segs)
	img := make([]uint8, hdrs)
	copy(img, []uint8{0x7f, 'E', 'L', 'F', 2, 1, 1})
	le16(img, 16, 2)   // ET_EXEC
	le16(img, 18, 243) // EM_RISCV
	le32(img, 20, 1)
	le64(img, 24, entry)
	le64(img, 32, ehsize) // phoff
	le16(img, 52, ehsize)
	le16(img, 54, phsize)
	le16(img, 56, len(segs))

	off := hdrs
	for i, s := range segs {
		ph := img[ehsize+i*phsize:]
		le32(ph, 0, 1) // PT_LOAD
		le32(ph, 4, s.flags)
		le64(ph, 8, off)
		le64(ph, 16, s.vaddr)
		le64(ph, 24, s.vaddr)
		le64(ph, 32, len(s.data))
		le64(ph, 40, len(s.data)+s.extra)
		le64(ph, 48, 0x1000)
		img = append(img, s.data...)
		off += len(s.data)
	}
	return img
}
