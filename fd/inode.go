package fd

import "sync"

import "rvos/defs"
import "rvos/fdops"
import "rvos/fs"

// The mounted filesystem's root. Fs_init installs it at boot, after
// the block device is up.
var rootino *fs.Inode_t

/// Fs_init mounts the root filesystem for the open path.
func Fs_init(efs *fs.Efs_t) {
	rootino = efs.Root_inode()
}

/// Root returns the root directory inode.
func Root() *fs.Inode_t {
	if rootino == nil {
		panic("fs not initted")
	}
	return rootino
}

/// Fsfile_t is an open regular file: an inode plus a cursor and the
/// access mode from open time.
type Fsfile_t struct {
	sync.Mutex
	ino      *fs.Inode_t
	off      int
	readable bool
	writable bool
}

/// Open_file resolves flags against the root directory: CREATE makes
/// or truncates, TRUNC clears, plain opens fail on absent names.
func Open_file(name string, flags int) (*Fsfile_t, defs.Err_t) {
	readable := flags&defs.O_WRONLY == 0
	writable := flags&(defs.O_WRONLY|defs.O_RDWR) != 0
	root := Root()
	if flags&defs.O_CREAT != 0 {
		if ino, ok := root.Find(name); ok {
			ino.Clear()
			return &Fsfile_t{ino: ino, readable: readable, writable: writable}, 0
		}
		ino, err := root.Create(name)
		if err != 0 {
			return nil, err
		}
		return &Fsfile_t{ino: ino, readable: readable, writable: writable}, 0
	}
	ino, ok := root.Find(name)
	if !ok {
		return nil, -defs.ENOENT
	}
	if flags&defs.O_TRUNC != 0 {
		ino.Clear()
	}
	return &Fsfile_t{ino: ino, readable: readable, writable: writable}, 0
}

/// Inode exposes the backing inode to the host tools.
func (f *Fsfile_t) Inode() *fs.Inode_t {
	return f.ino
}

/// Read fills ub from the cursor, advancing it.
func (f *Fsfile_t) Read(ub fdops.Userio_i) (int, defs.Err_t) {
	if !f.readable {
		return 0, -defs.EBADF
	}
	f.Lock()
	defer f.Unlock()
	total := 0
	var buf [512]uint8
	for ub.Remain() > 0 {
		want := ub.Remain()
		if want > len(buf) {
			want = len(buf)
		}
		n := f.ino.Read_at(f.off, buf[:want])
		if n == 0 {
			break
		}
		c, err := ub.Uiowrite(buf[:n])
		f.off += c
		total += c
		if err != 0 {
			return total, err
		}
	}
	return total, 0
}

/// Write drains ub at the cursor, growing the file.
func (f *Fsfile_t) Write(ub fdops.Userio_i) (int, defs.Err_t) {
	if !f.writable {
		return 0, -defs.EBADF
	}
	f.Lock()
	defer f.Unlock()
	total := 0
	var buf [512]uint8
	for ub.Remain() > 0 {
		n, err := ub.Uioread(buf[:])
		if err != 0 {
			return total, err
		}
		c, werr := f.ino.Write_at(f.off, buf[:n])
		f.off += c
		total += c
		if werr != 0 {
			return total, werr
		}
	}
	return total, 0
}

func (f *Fsfile_t) Readable() bool { return f.readable }

func (f *Fsfile_t) Writable() bool { return f.writable }

func (f *Fsfile_t) Reopen() defs.Err_t { return 0 }

func (f *Fsfile_t) Close() defs.Err_t { return 0 }
