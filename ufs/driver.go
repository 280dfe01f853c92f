// Package ufs runs the filesystem on a host: file- and memory-backed
// block devices plus convenience wrappers over the VFS layer. The
// image tools and the kernel tests build on it.
package ufs

import "sync"

import "github.com/pkg/errors"
import "golang.org/x/sys/unix"

import "rvos/fs"

//
// The "driver"
//

/// Filedisk_t is a block device backed by a host file via
/// pread/pwrite.
type Filedisk_t struct {
	sync.Mutex
	fd int
}

/// Opendisk opens (or creates) an image file as a block device.
func Opendisk(path string) (*Filedisk_t, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return &Filedisk_t{fd: fd}, nil
}

/// Read_block reads one block; short reads past the end come back
/// zero-filled so freshly created images work unformatted.
func (d *Filedisk_t) Read_block(id int, buf *[fs.BLKSIZE]uint8) {
	d.Lock()
	defer d.Unlock()
	n, err := unix.Pread(d.fd, buf[:], int64(id*fs.BLKSIZE))
	if err != nil {
		panic(err)
	}
	for i := n; i < fs.BLKSIZE; i++ {
		buf[i] = 0
	}
}

/// Write_block writes one block.
func (d *Filedisk_t) Write_block(id int, buf *[fs.BLKSIZE]uint8) {
	d.Lock()
	defer d.Unlock()
	n, err := unix.Pwrite(d.fd, buf[:], int64(id*fs.BLKSIZE))
	if n != fs.BLKSIZE || err != nil {
		panic(err)
	}
}

/// Close flushes and closes the image.
func (d *Filedisk_t) Close() error {
	d.Lock()
	defer d.Unlock()
	if err := unix.Fsync(d.fd); err != nil {
		return errors.Wrap(err, "fsync image")
	}
	return unix.Close(d.fd)
}

/// Memdisk_t is an in-memory block device for tests.
type Memdisk_t struct {
	sync.Mutex
	blocks map[int]*[fs.BLKSIZE]uint8
	/// Nreads and Nwrites count device operations.
	Nreads  int
	Nwrites int
}

/// Mkmemdisk returns an empty in-memory device.
func Mkmemdisk() *Memdisk_t {
	return &Memdisk_t{blocks: make(map[int]*[fs.BLKSIZE]uint8)}
}

/// Read_block copies the stored block, or zeroes for untouched ids.
func (d *Memdisk_t) Read_block(id int, buf *[fs.BLKSIZE]uint8) {
	d.Lock()
	defer d.Unlock()
	d.Nreads++
	if b, ok := d.blocks[id]; ok {
		*buf = *b
	} else {
		*buf = [fs.BLKSIZE]uint8{}
	}
}

/// Write_block stores a copy of the block.
func (d *Memdisk_t) Write_block(id int, buf *[fs.BLKSIZE]uint8) {
	d.Lock()
	defer d.Unlock()
	d.Nwrites++
	b := *buf
	d.blocks[id] = &b
}
