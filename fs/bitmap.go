package fs

import "math/bits"

/// BLKBITS is the number of allocation bits per bitmap block.
const BLKBITS = BLKSIZE * 8

/// Bitmap_t allocates bits out of a span of bitmap blocks, each
/// viewed as 64 u64 words.
type Bitmap_t struct {
	start  int
	blocks int
}

/// Mkbitmap covers blocks [start, start+blocks).
func Mkbitmap(start, blocks int) *Bitmap_t {
	return &Bitmap_t{start: start, blocks: blocks}
}

/// Maximum is the bit capacity.
func (bm *Bitmap_t) Maximum() int {
	return bm.blocks * BLKBITS
}

/// Alloc finds, sets, and returns the first clear bit, or ok=false
/// when the span is full.
func (bm *Bitmap_t) Alloc(dev Blockdev_i) (int, bool) {
	for blk := 0; blk < bm.blocks; blk++ {
		found := -1
		Get_cache(bm.start+blk, dev).Modify(0, func(b []uint8) {
			words := Bmview(b)
			for wi, w := range words {
				if w != ^uint64(0) {
					bit := bits.TrailingZeros64(^w)
					words[wi] |= 1 << uint(bit)
					found = blk*BLKBITS + wi*64 + bit
					return
				}
			}
		})
		if found >= 0 {
			return found, true
		}
	}
	return 0, false
}

/// Dealloc clears a bit that must be set.
func (bm *Bitmap_t) Dealloc(dev Blockdev_i, bit int) {
	blk := bit / BLKBITS
	bit %= BLKBITS
	wi, bi := bit>>6, uint(bit&0x3f)
	Get_cache(bm.start+blk, dev).Modify(0, func(b []uint8) {
		words := Bmview(b)
		if words[wi]&(1<<bi) == 0 {
			panic("bitmap bit already clear")
		}
		words[wi] &^= 1 << bi
	})
}

/// Inuse counts set bits; the host tools report it and tests check
/// reclamation against it.
func (bm *Bitmap_t) Inuse(dev Blockdev_i) int {
	n := 0
	for blk := 0; blk < bm.blocks; blk++ {
		Get_cache(bm.start+blk, dev).Read(0, func(b []uint8) {
			for _, w := range Bmview(b) {
				n += bits.OnesCount64(w)
			}
		})
	}
	return n
}
