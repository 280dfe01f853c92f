package vm

import "bytes"
import "debug/elf"

import "rvos/defs"
import "rvos/mem"

/// From_elf builds a user address space from an ELF image: every
/// PT_LOAD segment mapped framed with the segment's permissions plus
/// U, the trampoline on top. Returns the space, the user stack base
/// (one guard page above the highest segment), and the entry point.
func From_elf(phys *mem.Physmem_t, elfbytes []uint8) (*Aspace_t, int, int, defs.Err_t) {
	f, err := elf.NewFile(bytes.NewReader(elfbytes))
	if err != nil {
		return nil, 0, 0, -defs.EINVAL
	}
	defer f.Close()
	if f.Class != elf.ELFCLASS64 || f.Machine != elf.EM_RISCV {
		return nil, 0, 0, -defs.EINVAL
	}
	as := Mkaspace(phys)
	as.Map_trampoline()
	maxend := Vpn_t(0)
	for _, ph := range f.Progs {
		if ph.Type != elf.PT_LOAD {
			continue
		}
		start := Va_t(ph.Vaddr)
		end := Va_t(ph.Vaddr + ph.Memsz)
		perm := PTE_U
		if ph.Flags&elf.PF_R != 0 {
			perm |= PTE_R
		}
		if ph.Flags&elf.PF_W != 0 {
			perm |= PTE_W
		}
		if ph.Flags&elf.PF_X != 0 {
			perm |= PTE_X
		}
		ma := Mkarea(start, end, MapFramed, perm)
		// pad to the segment's page offset so the copy lands at the
		// right place; memsz past filesz stays zero.
		data := make([]uint8, start.Off()+int(ph.Filesz))
		if n, _ := ph.ReadAt(data[start.Off():], 0); n < int(ph.Filesz) {
			as.Free()
			return nil, 0, 0, -defs.EINVAL
		}
		as.push(ma, data)
		if ma.end > maxend {
			maxend = ma.end
		}
	}
	ustack_base := int(maxend)<<defs.PGSHIFT + defs.PGSIZE
	return as, ustack_base, int(f.Entry), 0
}

/// From_existed deep-copies a user space: same areas, fresh frames,
/// byte-identical contents. Trap-context pages and user stacks are
/// ordinary framed areas of the parent and copy with the rest.
func From_existed(parent *Aspace_t) *Aspace_t {
	as := Mkaspace(parent.Pt.phys)
	as.Map_trampoline()
	for _, ma := range parent.areas {
		na := ma.from_another()
		as.push(na, nil)
		for vpn := ma.start; vpn < ma.end; vpn++ {
			src, ok := parent.Pt.Translate(vpn)
			if !ok {
				panic("parent area page unmapped")
			}
			dst, ok := as.Pt.Translate(vpn)
			if !ok {
				panic("child area page unmapped")
			}
			sp := parent.Pt.phys.Dmappg(src.Ppn())
			dp := as.Pt.phys.Dmappg(dst.Ppn())
			*dp = *sp
		}
	}
	return as
}
