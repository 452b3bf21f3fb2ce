// Package blockindex builds a fixed-block-size hash index over an "older"
// byte sequence so a scanner can find candidate match positions in a
// "newer" sequence in roughly constant time per probe.
package blockindex

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/zeebo/xxh3"
)

// Backend selects where the bucket array lives.
type Backend int

const (
	// BackendMmap stores the table in a memory-mapped, unlinked temp file
	// so the OS can page it out under memory pressure. Default.
	BackendMmap Backend = iota
	// BackendRAM keeps the table as a plain Go slice.
	BackendRAM
)

// Params configures index construction.
type Params struct {
	BlockSize int     // bytes per indexed block, must be >= 4
	Backend   Backend // storage backend for the bucket array
	Threads   int     // build parallelism; <= 0 means runtime.GOMAXPROCS(0)
}

// Index is a read-only, block-aligned hash index over an older byte buffer.
// Safe for concurrent lookups from multiple goroutines.
type Index struct {
	older     []byte
	blockSize int
	mask      uint32
	table     slab
}

// Build indexes every non-overlapping BlockSize-aligned block of older and
// returns a queryable Index. Building is parallelized across p.Threads
// goroutines; ctx cancellation stops further inserts from starting, waits
// for those already running, and returns ErrCanceled.
func Build(ctx context.Context, older []byte, p Params) (*Index, error) {
	if p.BlockSize < 4 {
		return nil, fmt.Errorf("%w: block size must be >= 4, got %d", ErrConfigInvalid, p.BlockSize)
	}
	if uint64(len(older)) >= uint64(emptySlot) {
		return nil, fmt.Errorf("%w: older buffer of %d bytes exceeds the 32-bit offset range", ErrConfigInvalid, len(older))
	}

	threads := p.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}

	numBlocks := len(older) / p.BlockSize
	size := nextPow2(max32(16, numBlocks*3/2))

	var table slab
	var err error
	switch p.Backend {
	case BackendRAM:
		table = newAnonSlab(size)
	default:
		table, err = newMmapSlab(size)
		if err != nil {
			return nil, err
		}
	}

	idx := &Index{older: older, blockSize: p.BlockSize, mask: uint32(size - 1), table: table}
	if numBlocks == 0 {
		return idx, nil
	}

	sem := make(chan struct{}, threads)
	var wg sync.WaitGroup
	errCh := make(chan error, threads)

	for i := 0; i < numBlocks; i++ {
		select {
		case <-ctx.Done():
			wg.Wait()
			table.close()
			return nil, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := idx.insert(uint32(offset)); err != nil {
				select {
				case errCh <- err:
				default:
				}
			}
		}(i * p.BlockSize)
	}
	wg.Wait()

	select {
	case err := <-errCh:
		table.close()
		return nil, err
	default:
	}

	return idx, nil
}

// insert places block offset into the table. Distinct offsets whose block
// content is byte-identical converge on the smaller offset regardless of
// arrival order, so the result of a build does not depend on goroutine
// scheduling for that case. Two distinct block contents that hash to
// overlapping probe chains are ordered by whichever wins the race to claim
// its slot first; the index still returns a correct (verified) match for
// both, just not always the same slot layout across runs.
func (idx *Index) insert(offset uint32) error {
	block := idx.older[offset : offset+uint32(idx.blockSize)]
	h := hashBlock(block) & idx.mask

	for probe := uint32(0); probe <= idx.mask; probe++ {
		slot := int((h + probe) & idx.mask)
		for {
			cur := idx.table.load(slot)
			if cur == emptySlot {
				if idx.table.cas(slot, emptySlot, offset) {
					return nil
				}
				continue // lost the race, re-read and reconsider this slot
			}
			if bytes.Equal(idx.blockAt(cur), block) {
				if offset < cur {
					if !idx.table.cas(slot, cur, offset) {
						continue // another writer changed it, re-check
					}
				}
				return nil
			}
			break // different content occupies this slot, probe onward
		}
	}
	return fmt.Errorf("%w: could not place block at offset %d within %d probes", ErrOverfull, offset, uint64(idx.mask)+1)
}

func (idx *Index) blockAt(offset uint32) []byte {
	end := int(offset) + idx.blockSize
	if end > len(idx.older) {
		end = len(idx.older)
	}
	return idx.older[offset:end]
}

// Lookup returns the offset of a block in the older buffer whose content
// equals window (which must be at least BlockSize bytes), and whether one
// was found. A miss is not an error; it just means the scanner has no
// candidate at this position.
func (idx *Index) Lookup(window []byte) (uint32, bool) {
	if len(window) < idx.blockSize {
		return 0, false
	}
	block := window[:idx.blockSize]
	h := hashBlock(block) & idx.mask

	for probe := uint32(0); probe <= idx.mask; probe++ {
		slot := int((h + probe) & idx.mask)
		cur := idx.table.load(slot)
		if cur == emptySlot {
			return 0, false
		}
		if bytes.Equal(idx.blockAt(cur), block) {
			return cur, true
		}
	}
	return 0, false
}

// BlockSize returns the block size the index was built with.
func (idx *Index) BlockSize() int { return idx.blockSize }

// Close releases the backing storage. The Index must not be used
// afterwards.
func (idx *Index) Close() error {
	return idx.table.close()
}

func hashBlock(b []byte) uint32 {
	return uint32(xxh3.Hash(b))
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func max32(a, b int) int {
	if a > b {
		return a
	}
	return b
}
