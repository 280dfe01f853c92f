package fd

import "sync"

import "rvos/defs"
import "rvos/fdops"
import "rvos/kalloc"
import "rvos/task"

/// PIPESZ is the ring capacity; the ring comes from the kernel heap.
const PIPESZ = 4096

// pipebuf_t is the shared ring. head is the write position, tail the
// read position; both grow without wrapping and index modulo the
// capacity, circbuf style.
type pipebuf_t struct {
	sync.Mutex
	buf     []uint8
	rel     func()
	head    int
	tail    int
	readers int
	writers int
}

func (pb *pipebuf_t) used() int { return pb.head - pb.tail }

func (pb *pipebuf_t) left() int { return len(pb.buf) - pb.used() }

/// Pipeend_t is one half of a pipe; writer selects which.
type Pipeend_t struct {
	pb     *pipebuf_t
	writer bool
}

/// Mkpipe builds a pipe and returns its read and write ends. Fails
/// only when the kernel heap cannot supply the ring.
func Mkpipe() (*Pipeend_t, *Pipeend_t, defs.Err_t) {
	ring, rel, ok := kalloc.Kmem.Balloc(PIPESZ)
	if !ok {
		return nil, nil, -defs.ENOMEM
	}
	pb := &pipebuf_t{buf: ring, rel: rel, readers: 1, writers: 1}
	return &Pipeend_t{pb: pb}, &Pipeend_t{pb: pb, writer: true}, 0
}

/// Read copies out up to the buffer's remaining space, blocking while
/// the pipe is empty and a writer is still open. A drained pipe with
/// no writers reads as end of file.
func (pe *Pipeend_t) Read(ub fdops.Userio_i) (int, defs.Err_t) {
	if pe.writer {
		return 0, -defs.EBADF
	}
	pb := pe.pb
	ret := 0
	var tmp [64]uint8
	for ub.Remain() > 0 {
		pb.Lock()
		for pb.used() == 0 {
			if pb.writers == 0 || ret > 0 {
				pb.Unlock()
				return ret, 0
			}
			pb.Unlock()
			task.Suspend_current_and_run_next()
			pb.Lock()
		}
		n := pb.used()
		if n > len(tmp) {
			n = len(tmp)
		}
		if r := ub.Remain(); n > r {
			n = r
		}
		for i := 0; i < n; i++ {
			tmp[i] = pb.buf[(pb.tail+i)%len(pb.buf)]
		}
		pb.tail += n
		pb.Unlock()
		c, err := ub.Uiowrite(tmp[:n])
		ret += c
		if err != 0 {
			return ret, err
		}
	}
	return ret, 0
}

/// Write copies the whole buffer in, yielding while the ring is full.
/// Writing with no reader left fails.
func (pe *Pipeend_t) Write(ub fdops.Userio_i) (int, defs.Err_t) {
	if !pe.writer {
		return 0, -defs.EBADF
	}
	pb := pe.pb
	ret := 0
	var tmp [64]uint8
	for ub.Remain() > 0 {
		pb.Lock()
		if pb.readers == 0 {
			pb.Unlock()
			return ret, -defs.EPIPE
		}
		for pb.left() == 0 {
			pb.Unlock()
			task.Suspend_current_and_run_next()
			pb.Lock()
			if pb.readers == 0 {
				pb.Unlock()
				return ret, -defs.EPIPE
			}
		}
		n := pb.left()
		if n > len(tmp) {
			n = len(tmp)
		}
		if r := ub.Remain(); n > r {
			n = r
		}
		c, err := ub.Uioread(tmp[:n])
		if err != 0 {
			pb.Unlock()
			return ret, err
		}
		for i := 0; i < c; i++ {
			pb.buf[(pb.head+i)%len(pb.buf)] = tmp[i]
		}
		pb.head += c
		ret += c
		pb.Unlock()
	}
	return ret, 0
}

func (pe *Pipeend_t) Readable() bool { return !pe.writer }

func (pe *Pipeend_t) Writable() bool { return pe.writer }

/// Reopen adds a reference to this end; fork duplicates descriptors
/// through it.
func (pe *Pipeend_t) Reopen() defs.Err_t {
	pb := pe.pb
	pb.Lock()
	if pe.writer {
		pb.writers++
	} else {
		pb.readers++
	}
	pb.Unlock()
	return 0
}

/// Close drops a reference; the ring returns to the heap when both
/// sides are gone.
func (pe *Pipeend_t) Close() defs.Err_t {
	pb := pe.pb
	pb.Lock()
	if pe.writer {
		pb.writers--
	} else {
		pb.readers--
	}
	dead := pb.readers == 0 && pb.writers == 0
	rel := pb.rel
	if dead {
		pb.buf = nil
		pb.rel = nil
	}
	pb.Unlock()
	if dead && rel != nil {
		rel()
	}
	return 0
}
