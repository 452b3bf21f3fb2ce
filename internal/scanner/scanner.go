// Package scanner sweeps a "newer" byte buffer against a block-hash index
// built over an "older" buffer and emits an ordered stream of Control
// records describing how to reconstruct the newer buffer from the older
// one plus a small amount of literal data.
package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/gwillem/bidelta/internal/blockindex"
)

// matchSlack is the "8 more matches than mismatches" tolerance carried over
// from the original bsdiff heuristic: a candidate match is accepted once its
// exact length beats the running score of the previous match's diagonal by
// more than this many bytes. The forward/backward extensions (scoreForward,
// scoreBackward) do not use this constant; they keep the prefix that
// maximizes matches minus mismatches.
const matchSlack = 8

// Control describes one reconstruction step: copy AddLen bytes from the
// older buffer starting at the current old-position (mutated byte-for-byte
// by the accompanying diff data), then copy CopyLen literal bytes, then
// move the old-position pointer by Seek (which may be negative).
type Control struct {
	AddLen  int
	CopyLen int
	Seek    int64
}

// ErrCanceled is returned when ctx is canceled mid-scan.
var ErrCanceled = errors.New("scanner: canceled")

// scanChunk runs the match-finding loop over newer[start:end], using idx to
// find candidate positions in older. It never looks outside [start:end) in
// newer, so chunks can run fully independently in parallel.
//
// This follows the shape of BsdiffIterator's next() (bidiff's lib.rs): an
// outer loop that walks scan forward accumulating an "oldscore" for the
// diagonal implied by lastoffset, breaking out once a candidate is either
// significantly better than that diagonal (by more than matchSlack) or ties
// it exactly; then a scored forward/backward extension (lenf/lenb) that
// maximizes matches-minus-mismatches rather than requiring an exact run, and
// an overlap-resolution pass when the previous match's forward extension
// runs into this match's backward extension.
func scanChunk(ctx context.Context, older, newer []byte, idx *blockindex.Index, start, end int) ([]Control, error) {
	blockSize := idx.BlockSize()
	oldLen := len(older)

	var controls []Control
	scan := start
	pos := 0
	length := 0
	lastscan := start
	lastpos := min(start, oldLen)
	lastoffset := lastpos - lastscan

	for scan < end {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCanceled, err)
		}

		oldscore := 0
		scan += length
		scsc := scan

		for scan < end {
			pos, length = 0, 0
			if scan+blockSize <= end {
				if cand, found := idx.Lookup(newer[scan:min(scan+blockSize, len(newer))]); found {
					pos = int(cand)
					length = commonPrefixLen(older[pos:], newer[scan:end])
				}
			}

			if e := scan + length; scsc < e {
				for i := scsc; i < e; i++ {
					if oi := i + lastoffset; oi >= 0 && oi < oldLen && older[oi] == newer[i] {
						oldscore++
					}
				}
				scsc = e
			}

			significantlyBetter := length > oldscore+matchSlack
			sameLength := length == oldscore && length != 0
			if significantlyBetter || sameLength {
				break
			}

			if oi := scan + lastoffset; oi >= 0 && oi < oldLen && older[oi] == newer[scan] {
				oldscore--
			}
			scan++
		}

		doneScanning := scan >= end
		if length == oldscore && !doneScanning {
			// Tied the running diagonal exactly: absorb it into the current
			// scan rather than emitting a redundant match, matching the
			// original's "same_length" skip.
			continue
		}

		lenf := scoreForward(older, newer, lastscan, lastpos, scan)

		lenb := 0
		if !doneScanning {
			lenb = scoreBackward(older, newer, lastscan, scan, pos)
		}

		if lastscan+lenf > scan-lenb {
			overlap := (lastscan + lenf) - (scan - lenb)
			lens := resolveOverlap(older, newer, lastscan, lastpos, lenf, scan, pos, lenb, overlap)
			lenf += lens
			lenf -= overlap
			lenb -= lens
		}

		addLen := lenf
		copyStart := lastscan + lenf
		copyEnd := scan - lenb
		copyLen := copyEnd - copyStart

		// The final control in a chunk has no following match to seek
		// toward (mirrors Translator::close sending seek: 0 once the
		// iterator is exhausted), so pos here would otherwise be stale.
		var seek int64
		if !doneScanning {
			seek = int64(pos-lenb) - int64(lastpos+lenf)
		}

		if addLen != 0 || copyLen != 0 || seek != 0 || doneScanning {
			controls = append(controls, Control{AddLen: addLen, CopyLen: copyLen, Seek: seek})
		}

		lastscan = copyEnd
		lastpos = pos - lenb
		lastoffset = lastpos - lastscan
	}

	return controls, nil
}

// commonPrefixLen returns the number of leading bytes a and b share.
func commonPrefixLen(a, b []byte) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// scoreForward extends forward from (lastpos, lastscan), returning the
// prefix length lenf that maximizes matches-minus-mismatches (s*2-i) rather
// than stopping at the first mismatch, so it can absorb a few substituted
// bytes when doing so keeps the running score ahead of any shorter, exact
// prefix. Mirrors bidiff's lenf computation in BsdiffIterator::next.
func scoreForward(older, newer []byte, lastscan, lastpos, scan int) int {
	n := min(scan-lastscan, len(older)-lastpos)
	if n <= 0 {
		return 0
	}
	oSlice := older[lastpos : lastpos+n]
	nSlice := newer[lastscan : lastscan+n]

	var s, sf, lenf int
	for i := 0; i < n; i++ {
		if oSlice[i] == nSlice[i] {
			s++
		}
		if s*2-(i+1) > sf*2-lenf {
			sf = s
			lenf = i + 1
		}
	}
	return lenf
}

// scoreBackward extends backward from (pos, scan), the mirror image of
// scoreForward: it walks from the end of the [lastscan, scan) gap toward its
// start, maximizing matches-minus-mismatches. Mirrors bidiff's lenb
// computation in BsdiffIterator::next.
func scoreBackward(older, newer []byte, lastscan, scan, pos int) int {
	n := min(scan-lastscan, pos)
	if n <= 0 {
		return 0
	}
	oSlice := older[pos-n : pos]
	nSlice := newer[scan-n : scan]

	var s, sb, lenb int
	for i := 1; i <= n; i++ {
		if oSlice[n-i] == nSlice[n-i] {
			s++
		}
		if s*2-i > sb*2-lenb {
			sb = s
			lenb = i
		}
	}
	return lenb
}

// resolveOverlap decides, byte by byte across the overlapping region, how
// many leading bytes should stay attributed to the previous match's forward
// extension (lenf) versus the current match's backward extension (lenb),
// when the two extensions cross. Mirrors bidiff's lens computation.
func resolveOverlap(older, newer []byte, lastscan, lastpos, lenf, scan, pos, lenb, overlap int) int {
	lastN := newer[lastscan+lenf-overlap : lastscan+lenf]
	lastO := older[lastpos+lenf-overlap : lastpos+lenf]
	curN := newer[scan-lenb : scan-lenb+overlap]
	curO := older[pos-lenb : pos-lenb+overlap]

	var s, ss, lens int
	for i := 0; i < overlap; i++ {
		if lastN[i] == lastO[i] {
			s++
		}
		if curN[i] == curO[i] {
			s--
		}
		if s > ss {
			ss = s
			lens = i + 1
		}
	}
	return lens
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
