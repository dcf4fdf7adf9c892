// Package storage provides the backing byte-addressable device the engine
// writes pages to. It is deliberately dumb: callers seek by absolute byte
// offset and are responsible for page alignment, erase-before-reuse
// semantics, and anything else region.Manager needs.
package storage

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Device is the storage I/O collaborator contract the engine depends on. A
// region never holds a *os.File directly; it holds a Device, so tests can
// swap in an in-memory implementation and a NOR-flash-backed host can swap in
// one that actually erases blocks before reuse.
type Device interface {
	io.ReaderAt
	io.WriterAt
	// Erase clears length bytes starting at off, returning the device to its
	// post-erase state (all-ones, as on real NOR flash; see erasedFill). A
	// caller must erase a block before rewriting any physical page inside it.
	Erase(off int64, length int64) error
	// Size returns the current allocated size of the device in bytes.
	Size() int64
	// Close releases the device's resources.
	Close() error
}

// erasedFill is the byte value a freshly-erased region reads back as,
// matching real NOR flash (erases to all-ones). Recovery scanning relies on
// an erased page's logical id decoding to 0xFFFFFFFF, which can never be a
// legitimately written logical id at any practical region size, to tell
// "never written" apart from "written with logical id 0".
const erasedFill = 0xFF

// MemoryDevice is an in-memory Device, grounded on pager/storage.go's
// memoryStorage. It is used by tests and by engines opened in "in-memory"
// mode that never touch a filesystem.
type MemoryDevice struct {
	buf []byte
}

// NewMemoryDevice allocates a memory-backed device pre-sized to size bytes,
// pre-filled to the erased state so recovery scanning behaves the same as
// on a freshly formatted file-backed device.
func NewMemoryDevice(size int64) *MemoryDevice {
	d := &MemoryDevice{buf: make([]byte, size)}
	fillErased(d.buf)
	return d
}

func fillErased(b []byte) {
	for i := range b {
		b[i] = erasedFill
	}
}

func (m *MemoryDevice) growTo(n int) {
	if len(m.buf) >= n {
		return
	}
	grown := make([]byte, n)
	copy(grown, m.buf)
	fillErased(grown[len(m.buf):])
	m.buf = grown
}

func (m *MemoryDevice) WriteAt(p []byte, off int64) (int, error) {
	m.growTo(int(off) + len(p))
	copy(m.buf[off:int(off)+len(p)], p)
	return len(p), nil
}

func (m *MemoryDevice) ReadAt(p []byte, off int64) (int, error) {
	if int(off)+len(p) > len(m.buf) {
		return 0, errors.Errorf("read past end of memory device at offset %d length %d", off, len(p))
	}
	copy(p, m.buf[off:int(off)+len(p)])
	return len(p), nil
}

func (m *MemoryDevice) Erase(off int64, length int64) error {
	m.growTo(int(off) + int(length))
	fill := m.buf[off : off+length]
	for i := range fill {
		fill[i] = erasedFill
	}
	return nil
}

func (m *MemoryDevice) Size() int64 {
	return int64(len(m.buf))
}

func (m *MemoryDevice) Close() error {
	return nil
}

// FileDevice is an *os.File-backed Device, grounded on pager/storage.go's
// fileStorage. Unlike the teacher it has no journal-recovery behavior: the
// engine's own three-region recovery scan (region.Manager.Recover) is what
// reconstructs state after an unclean shutdown, so a separate journal file
// would be redundant machinery the spec does not call for.
type FileDevice struct {
	file *os.File
}

// OpenFileDevice opens or creates path for read/write access.
func OpenFileDevice(path string) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening storage file %s", path)
	}
	return &FileDevice{file: f}, nil
}

func (f *FileDevice) WriteAt(p []byte, off int64) (int, error) {
	return f.file.WriteAt(p, off)
}

func (f *FileDevice) ReadAt(p []byte, off int64) (int, error) {
	return f.file.ReadAt(p, off)
}

func (f *FileDevice) Erase(off int64, length int64) error {
	fill := make([]byte, length)
	for i := range fill {
		fill[i] = erasedFill
	}
	if _, err := f.file.WriteAt(fill, off); err != nil {
		return errors.Wrap(err, "erasing file region")
	}
	return nil
}

func (f *FileDevice) Size() int64 {
	info, err := f.file.Stat()
	if err != nil {
		return 0
	}
	return info.Size()
}

func (f *FileDevice) Close() error {
	return f.file.Close()
}
