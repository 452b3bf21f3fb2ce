package scanner

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/gwillem/bidelta/internal/blockindex"
)

// DefaultScanChunkSize matches the 1 MiB default from the original design.
const DefaultScanChunkSize = 1 << 20

// DefaultRingDepth bounds how many chunk results may be pending reassembly
// at once, translating the original condvar-guarded ring buffer
// (ring_channel.rs) into a bounded set of pre-assigned result channels
// drained strictly in chunk order.
const DefaultRingDepth = 128

// Options configures a parallel scan.
type Options struct {
	ScanChunkSize int
	Threads       int
	RingDepth     int
}

// Chunk is one independently-scanned slice of the newer buffer and the
// Control records needed to reconstruct newer[NewStart:NewEnd]. OldStart is
// the absolute old-buffer position the chunk's control stream starts from:
// NewStart clamped to len(older). Each chunk keeps its own old-position
// bookkeeping from there, so chunks never share state, which is what makes
// them safe to scan concurrently.
type Chunk struct {
	NewStart int
	NewEnd   int
	OldStart int
	Controls []Control
}

type chunkResult struct {
	controls []Control
	err      error
}

// Scan splits newer into chunks of Options.ScanChunkSize bytes and scans
// each one against idx concurrently, bounded by Options.Threads goroutines.
// Results are reassembled in chunk order regardless of completion order.
func Scan(ctx context.Context, older, newer []byte, idx *blockindex.Index, opts Options) ([]Chunk, error) {
	chunkSize := opts.ScanChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultScanChunkSize
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	ringDepth := opts.RingDepth
	if ringDepth <= 0 {
		ringDepth = DefaultRingDepth
	}

	n := len(newer)
	type bound struct{ start, end int }
	var bounds []bound
	if n == 0 {
		bounds = append(bounds, bound{0, 0})
	}
	for s := 0; s < n; s += chunkSize {
		e := s + chunkSize
		if e > n {
			e = n
		}
		bounds = append(bounds, bound{s, e})
	}

	type slot struct {
		out chan chunkResult
	}
	ring := make(chan slot, ringDepth)
	sem := make(chan struct{}, threads)
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer close(ring)
		for _, b := range bounds {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			s := slot{out: make(chan chunkResult, 1)}
			select {
			case ring <- s:
			case <-ctx.Done():
				<-sem
				return
			}
			wg.Add(1)
			go func(start, end int, out chan chunkResult) {
				defer wg.Done()
				defer func() { <-sem }()
				defer func() {
					if r := recover(); r != nil {
						out <- chunkResult{err: fmt.Errorf("scanner: chunk [%d,%d) panicked: %v", start, end, r)}
					}
				}()
				controls, err := scanChunk(ctx, older, newer, idx, start, end)
				out <- chunkResult{controls: controls, err: err}
			}(b.start, b.end, s.out)
		}
	}()

	chunks := make([]Chunk, 0, len(bounds))
	i := 0
	var firstErr error
	for s := range ring {
		res := <-s.out
		if res.err != nil && firstErr == nil {
			firstErr = res.err
			cancel()
		}
		if firstErr == nil {
			chunks = append(chunks, Chunk{
				NewStart: bounds[i].start,
				NewEnd:   bounds[i].end,
				OldStart: min(bounds[i].start, len(older)),
				Controls: res.controls,
			})
		}
		i++
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return chunks, nil
}
