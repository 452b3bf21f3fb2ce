package patch

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
)

// Applier reconstructs the newer buffer from an older buffer and a decoded
// patch container.
type Applier struct {
	dec     *Decoder
	Threads int
}

// NewApplier returns an Applier for dec, using threads goroutines (0 means
// runtime.GOMAXPROCS(0)).
func NewApplier(dec *Decoder, threads int) *Applier {
	return &Applier{dec: dec, Threads: threads}
}

// Apply reconstructs the newer buffer described by the container against
// older, verifying older's length matches the header, and writes each
// chunk's output to w with non-overlapping WriteAt calls so chunks may be
// decoded and written concurrently.
func (a *Applier) Apply(ctx context.Context, older []byte, w io.WriterAt) error {
	if uint64(len(older)) != a.dec.Header.OldSize {
		return fmt.Errorf("%w: older buffer is %d bytes, patch expects %d", ErrSizeMismatch, len(older), a.dec.Header.OldSize)
	}

	threads := a.Threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}

	n := a.dec.NumChunks()
	sem := make(chan struct{}, threads)
	var wg sync.WaitGroup
	errCh := make(chan error, n)

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			wg.Wait()
			return fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			out, err := a.dec.decodeChunk(older, i)
			if err != nil {
				select {
				case errCh <- err:
				default:
				}
				return
			}
			desc := a.dec.descriptors[i]
			if _, err := w.WriteAt(out, int64(desc.NewStart)); err != nil {
				select {
				case errCh <- fmt.Errorf("%w: writing chunk %d: %v", ErrIO, i, err):
				default:
				}
			}
		}(i)
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
	}
	return nil
}
