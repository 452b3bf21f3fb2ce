package blockindex

import "sync/atomic"

// loadUint32 and casUint32 wrap sync/atomic so both the anonymous slab
// (backed by a plain []uint32) and the mmap slab (backed by raw mapped
// bytes reinterpreted via unsafe.Pointer, see slab_unix.go) share one CAS
// vocabulary in index.go.
func loadUint32(addr *uint32) uint32 {
	return atomic.LoadUint32(addr)
}

func casUint32(addr *uint32, old, new uint32) bool {
	return atomic.CompareAndSwapUint32(addr, old, new)
}
