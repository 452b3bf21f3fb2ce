// Package patch implements the chunked, independently-decompressible patch
// container: encoding a scanner.Chunk stream into a .bidelta file, and
// decoding/applying such a file against an older buffer to reconstruct the
// newer one.
package patch

import "errors"

// Sentinel errors forming the taxonomy every layer wraps its failures into,
// so callers can classify with errors.Is regardless of which layer failed.
var (
	ErrConfigInvalid = errors.New("patch: invalid configuration")
	ErrIO            = errors.New("patch: i/o error")
	ErrCorrupt       = errors.New("patch: corrupt container")
	ErrSizeMismatch  = errors.New("patch: size mismatch")
	ErrCanceled      = errors.New("patch: canceled")
)
