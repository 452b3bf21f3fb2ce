package diffengine

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gwillem/bidelta/internal/blockindex"
	"github.com/gwillem/bidelta/internal/patch"
	"github.com/gwillem/bidelta/internal/scanner"
)

// bytesWriterAt adapts a plain byte slice to io.WriterAt so Applier can
// write chunk output directly into memory during a Cycle run.
type bytesWriterAt struct {
	buf []byte
}

func (w *bytesWriterAt) WriteAt(p []byte, off int64) (int, error) {
	n := copy(w.buf[off:], p)
	return n, nil
}

// Cycle diffs older against newer entirely in memory, applies the result,
// and confirms the reconstructed buffer is byte-identical to newer. It is
// the production form of the original design's test-only assert_cycle
// helper: instead of panicking on mismatch, it returns an error.
func Cycle(ctx context.Context, older, newer []byte, opts Options) error {
	opts = opts.normalized()
	if err := validate(opts); err != nil {
		return err
	}

	idx, err := blockindex.Build(ctx, older, opts.indexParams())
	if err != nil {
		return err
	}
	defer idx.Close()

	chunks, err := scanner.Scan(ctx, older, newer, idx, opts.scanOptions())
	if err != nil {
		return err
	}

	raw, err := patch.EncodeBuffer(older, newer, chunks, opts.patchLevel())
	if err != nil {
		return err
	}

	dec, err := patch.Parse(raw)
	if err != nil {
		return err
	}

	out := &bytesWriterAt{buf: make([]byte, dec.Header.NewSize)}
	applier := patch.NewApplier(dec, opts.Threads)
	if err := applier.Apply(ctx, older, out); err != nil {
		return err
	}

	if !bytes.Equal(out.buf, newer) {
		return fmt.Errorf("%w: reconstructed buffer does not match newer input", patch.ErrSizeMismatch)
	}
	return nil
}
