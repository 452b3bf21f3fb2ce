//go:build darwin || linux

package blockindex

import (
	"fmt"
	"os"
	"runtime/debug"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapSlab backs the bucket array with a memory-mapped, unlinked temp file
// so the kernel can reclaim pages under memory pressure instead of pinning
// the whole table in the Go heap. Grounded on bureau-foundation-bureau's
// artifactstore CacheDevice: create in os.TempDir, truncate to size, mmap
// MAP_SHARED, unlink immediately (the mapping keeps the pages alive).
type mmapSlab struct {
	data []byte
	n    int
}

func newMmapSlab(n int) (*mmapSlab, error) {
	f, err := os.CreateTemp("", "bidelta-index-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp index file: %v", ErrIO, err)
	}
	name := f.Name()
	defer os.Remove(name)

	size := int64(n) * 4
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: truncate temp index file: %v", ErrIO, err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: mmap temp index file: %v", ErrIO, err)
	}

	s := &mmapSlab{data: data, n: n}
	for i := 0; i < n; i++ {
		s.store(i, emptySlot)
	}
	return s, nil
}

func (s *mmapSlab) ptr(i int) *uint32 {
	return (*uint32)(unsafe.Pointer(&s.data[i*4]))
}

func (s *mmapSlab) len() int { return s.n }

// load and store/cas run under SetPanicOnFault so a SIGBUS from a truncated
// backing file (e.g. disk full during the initial truncate) surfaces as a
// recovered panic (load then reports emptySlot, cas reports failure and
// store drops the write), matching CacheDevice.ReadAt's guard, rather than
// crashing the process.
func (s *mmapSlab) load(i int) (v uint32) {
	defer func() {
		if recover() != nil {
			v = emptySlot
		}
	}()
	debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(false)
	return loadUint32(s.ptr(i))
}

func (s *mmapSlab) store(i int, v uint32) {
	debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(false)
	defer func() { recover() }()
	*s.ptr(i) = v
}

func (s *mmapSlab) cas(i int, old, new uint32) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(false)
	return casUint32(s.ptr(i), old, new)
}

func (s *mmapSlab) close() error {
	if s.data == nil {
		return nil
	}
	err := unix.Munmap(s.data)
	s.data = nil
	if err != nil {
		return fmt.Errorf("%w: munmap index: %v", ErrIO, err)
	}
	return nil
}
