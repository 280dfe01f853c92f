package kalloc

import "math/rand"
import "reflect"
import "testing"

func TestDecompose(t *testing.T) {
	specs := []struct {
		bytes  int
		orders map[int]int // order -> expected block count
	}{
		{1 << 10, map[int]int{10: 1}},
		{1<<10 + 8, map[int]int{10: 1, 3: 1}},
		{1 << 20, map[int]int{20: 1}},
		{3 << 10, map[int]int{11: 1, 10: 1}},
	}
	for _, s := range specs {
		h := Mkheap(make([]uint8, s.bytes))
		if h.Total != s.bytes {
			t.Fatalf("total %v != %v", h.Total, s.bytes)
		}
		fl := h.Freelists()
		for order, want := range s.orders {
			if got := len(fl[order]); got != want {
				t.Fatalf("%v bytes: order %v has %v blocks, want %v",
					s.bytes, order, got, want)
			}
		}
	}
}

func TestAllocAligned(t *testing.T) {
	h := Mkheap(make([]uint8, 1<<16))
	for _, size := range []int{8, 16, 24, 100, 4096} {
		off, ok := h.Alloc(size, 8)
		if !ok {
			t.Fatalf("alloc %v failed", size)
		}
		bs := blocksize(size, 8)
		if off%bs != 0 {
			t.Fatalf("offset %v not aligned to block size %v", off, bs)
		}
	}
}

func TestRoundtrip(t *testing.T) {
	h := Mkheap(make([]uint8, 1<<16))
	initial := h.Freelists()
	off, ok := h.Alloc(4096, 8)
	if !ok {
		t.Fatalf("alloc failed")
	}
	h.Free(off, 4096, 8)
	if !reflect.DeepEqual(initial, h.Freelists()) {
		t.Fatalf("freelists differ after roundtrip")
	}
	if h.User != 0 || h.Allocated != 0 {
		t.Fatalf("counters leak: user %v allocated %v", h.User, h.Allocated)
	}
}

func TestCoalesce(t *testing.T) {
	h := Mkheap(make([]uint8, 1<<12))
	a, _ := h.Alloc(1<<11, 8)
	b, _ := h.Alloc(1<<11, 8)
	if a == b {
		t.Fatalf("same block twice")
	}
	h.Free(a, 1<<11, 8)
	h.Free(b, 1<<11, 8)
	fl := h.Freelists()
	if len(fl[12]) != 1 {
		t.Fatalf("buddies did not merge: %v", fl)
	}
}

func TestExhaustion(t *testing.T) {
	h := Mkheap(make([]uint8, 1<<12))
	if _, ok := h.Alloc(1<<13, 8); ok {
		t.Fatalf("oversize alloc succeeded")
	}
	a, ok := h.Alloc(1<<12, 8)
	if !ok {
		t.Fatalf("full-heap alloc failed")
	}
	if _, ok := h.Alloc(8, 8); ok {
		t.Fatalf("alloc from empty heap succeeded")
	}
	h.Free(a, 1<<12, 8)
}

// 1 MiB heap, 256 random layouts, random-order free; the freelists
// must come back to their initial state.
func TestStress(t *testing.T) {
	h := Mkheap(make([]uint8, 1<<20))
	initial := Mkheap(make([]uint8, 1<<20)).Freelists()
	rnd := rand.New(rand.NewSource(0x1dea))
	type alloc_t struct {
		off, size int
	}
	var live []alloc_t
	for i := 0; i < 256; i++ {
		size := 16 + rnd.Intn(16384-16)
		off, ok := h.Alloc(size, 8)
		if !ok {
			// a full heap under fragmentation is fine; free one
			// and retry once.
			if len(live) == 0 {
				t.Fatalf("empty heap refused %v bytes", size)
			}
			j := rnd.Intn(len(live))
			h.Free(live[j].off, live[j].size, 8)
			live = append(live[:j], live[j+1:]...)
			off, ok = h.Alloc(size, 8)
			if !ok {
				continue
			}
		}
		live = append(live, alloc_t{off, size})
	}
	for len(live) > 0 {
		j := rnd.Intn(len(live))
		h.Free(live[j].off, live[j].size, 8)
		live = append(live[:j], live[j+1:]...)
	}
	if !reflect.DeepEqual(initial, h.Freelists()) {
		t.Fatalf("freelists differ from initial state after stress")
	}
}
