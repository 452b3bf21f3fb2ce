// Package diffengine ties internal/blockindex, internal/scanner and
// internal/patch together into the three end-user operations: Diff, Apply
// and Cycle (round-trip verification).
package diffengine

import (
	"fmt"

	"github.com/gwillem/bidelta/internal/blockindex"
	"github.com/gwillem/bidelta/internal/patch"
	"github.com/gwillem/bidelta/internal/scanner"
)

// Options bundles every tunable knob exposed by the CLI's --block-size,
// --scan-chunk-mb, --threads and --max flags.
type Options struct {
	BlockSize     int
	ScanChunkSize int
	Threads       int
	RAM           bool // true selects blockindex.BackendRAM instead of mmap
	Max           bool // true selects patch.LevelBest instead of LevelDefault
}

// DefaultBlockSize matches the design's default block size.
const DefaultBlockSize = 32

func (o Options) normalized() Options {
	if o.BlockSize <= 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.ScanChunkSize <= 0 {
		o.ScanChunkSize = scanner.DefaultScanChunkSize
	}
	return o
}

func (o Options) indexParams() blockindex.Params {
	backend := blockindex.BackendMmap
	if o.RAM {
		backend = blockindex.BackendRAM
	}
	return blockindex.Params{BlockSize: o.BlockSize, Backend: backend, Threads: o.Threads}
}

func (o Options) scanOptions() scanner.Options {
	return scanner.Options{ScanChunkSize: o.ScanChunkSize, Threads: o.Threads}
}

func (o Options) patchLevel() patch.Level {
	if o.Max {
		return patch.LevelBest
	}
	return patch.LevelDefault
}

func validate(o Options) error {
	if o.BlockSize < 4 {
		return fmt.Errorf("%w: block size must be >= 4, got %d", blockindex.ErrConfigInvalid, o.BlockSize)
	}
	if o.ScanChunkSize < o.BlockSize {
		return fmt.Errorf("%w: scan chunk size (%d) must be >= block size (%d)", blockindex.ErrConfigInvalid, o.ScanChunkSize, o.BlockSize)
	}
	return nil
}
