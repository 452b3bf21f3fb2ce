package diffengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gwillem/bidelta/internal/blockindex"
	"github.com/gwillem/bidelta/internal/patch"
	"github.com/gwillem/bidelta/internal/scanner"
)

// Diff builds a block-hash index over older, scans newer against it, and
// writes the resulting patch container to patchPath.
func Diff(ctx context.Context, older, newer []byte, patchPath string, opts Options) error {
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

	return patch.Encode(patchPath, older, newer, chunks, opts.patchLevel())
}

// Apply reconstructs the newer buffer described by the patch at patchPath
// against older, and writes it atomically to outPath using threads worker
// goroutines (0 means runtime.GOMAXPROCS(0)).
func Apply(ctx context.Context, older []byte, patchPath, outPath string, threads int) error {
	dec, err := patch.Open(patchPath)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(outPath), ".bidelta-out-*")
	if err != nil {
		return fmt.Errorf("%w: create temp output file: %v", patch.ErrIO, err)
	}
	tmpName := f.Name()
	defer os.Remove(tmpName)
	defer f.Close()

	if err := f.Truncate(int64(dec.Header.NewSize)); err != nil {
		return fmt.Errorf("%w: sizing output file: %v", patch.ErrIO, err)
	}

	applier := patch.NewApplier(dec, threads)
	if err := applier.Apply(ctx, older, f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing output file: %v", patch.ErrIO, err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return fmt.Errorf("%w: renaming output file into place: %v", patch.ErrIO, err)
	}
	return nil
}
