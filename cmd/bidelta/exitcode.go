package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/gwillem/bidelta/internal/blockindex"
	"github.com/gwillem/bidelta/internal/patch"
)

// exitCodeFor classifies an error returned from a subcommand's Execute (or
// from flag parsing itself) into the CLI's documented exit codes:
// 0 success, 1 usage/config error, 2 I/O error, 3 patch corrupt/mismatch.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	var flagsErr *flags.Error
	if errors.As(err, &flagsErr) {
		if flagsErr.Type == flags.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	switch {
	case errors.Is(err, blockindex.ErrConfigInvalid), errors.Is(err, patch.ErrConfigInvalid):
		fmt.Fprintln(os.Stderr, boldred("config error:"), err)
		return 1
	case errors.Is(err, patch.ErrCorrupt), errors.Is(err, patch.ErrSizeMismatch):
		fmt.Fprintln(os.Stderr, boldred("patch error:"), err)
		return 3
	case errors.Is(err, blockindex.ErrIO), errors.Is(err, patch.ErrIO):
		fmt.Fprintln(os.Stderr, boldred("i/o error:"), err)
		return 2
	default:
		fmt.Fprintln(os.Stderr, boldred("error:"), err)
		return 1
	}
}
