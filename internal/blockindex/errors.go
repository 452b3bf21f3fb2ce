package blockindex

import "errors"

// Sentinel errors classifying failures from index construction and lookup.
// Wrapped with %w at each call site so errors.Is keeps working through the
// diffengine and CLI layers.
var (
	ErrConfigInvalid = errors.New("blockindex: invalid configuration")
	ErrIO            = errors.New("blockindex: i/o error")
	ErrOverfull      = errors.New("blockindex: index overfull")
	ErrCanceled      = errors.New("blockindex: canceled")
)
