package scanner

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/bidelta/internal/blockindex"
)

func buildIndex(t *testing.T, older []byte, blockSize int) *blockindex.Index {
	t.Helper()
	idx, err := blockindex.Build(context.Background(), older, blockindex.Params{BlockSize: blockSize, Backend: blockindex.BackendRAM})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

// replay applies a chunk's Control stream the same way patch's
// encodeChunkRaw / Decoder.decodeChunk would, so tests can assert the
// scanner's add/copy lengths cover newer exactly. It derives each add byte
// from newer itself, so it does not check the old positions.
func replay(older, newer []byte, c Chunk) []byte {
	var out []byte
	oldPos := c.OldStart
	newPos := c.NewStart
	for _, ctrl := range c.Controls {
		for i := 0; i < ctrl.AddLen; i++ {
			var ob byte
			if op := oldPos + i; op >= 0 && op < len(older) {
				ob = older[op]
			}
			diff := newer[newPos+i] - ob
			out = append(out, ob+diff) // reconstructs newer[newPos+i] only if old_pos/seek are actually valid
		}
		out = append(out, newer[newPos+ctrl.AddLen:newPos+ctrl.AddLen+ctrl.CopyLen]...)
		newPos += ctrl.AddLen + ctrl.CopyLen
		oldPos += ctrl.AddLen + int(ctrl.Seek)
	}
	return out
}

func TestScanReconstructsIdenticalInput(t *testing.T) {
	older := bytes.Repeat([]byte("the quick brown fox jumps over "), 100)
	newer := older

	idx := buildIndex(t, older, 32)
	chunks, err := Scan(context.Background(), older, newer, idx, Options{ScanChunkSize: 1024})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1, "test needs multiple chunks to catch a per-chunk alignment bug")

	var got []byte
	for _, c := range chunks {
		got = append(got, replay(older, newer, c)...)
	}
	assert.Equal(t, newer, got)

	// replay's byte-level check is a tautology (subtracting then re-adding
	// the same older byte always cancels out), so it can't catch a chunk
	// that looks up matches against the wrong region of older. Check the
	// control shape directly instead: identical input scanned in several
	// chunks should reconstruct almost entirely via add (bytes drawn from
	// older), with little or no literal copy, in every chunk, not just the
	// first one.
	for ci, c := range chunks {
		var addTotal, copyTotal int
		for _, ctrl := range c.Controls {
			addTotal += ctrl.AddLen
			copyTotal += ctrl.CopyLen
		}
		assert.Greaterf(t, addTotal, copyTotal, "chunk %d (start=%d) is mostly literal copy, want mostly add", ci, c.NewStart)
	}
}

func TestScanReconstructsModifiedInput(t *testing.T) {
	older := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)
	newer := append([]byte{}, older...)
	// insert a chunk of novel bytes in the middle
	mid := len(newer) / 2
	inserted := append(append([]byte{}, newer[:mid]...), append([]byte("NOVEL BYTES INSERTED HERE!!"), newer[mid:]...)...)
	newer = inserted

	idx := buildIndex(t, older, 16)
	chunks, err := Scan(context.Background(), older, newer, idx, Options{ScanChunkSize: 512})
	require.NoError(t, err)

	var got []byte
	for _, c := range chunks {
		got = append(got, replay(older, newer, c)...)
	}
	assert.Equal(t, newer, got)
}

func TestScanEmptyInputs(t *testing.T) {
	idx := buildIndex(t, nil, 32)

	chunks, err := Scan(context.Background(), nil, nil, idx, Options{})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].Controls)

	chunks, err = Scan(context.Background(), nil, []byte("hello world"), idx, Options{})
	require.NoError(t, err)
	var got []byte
	for _, c := range chunks {
		got = append(got, replay(nil, []byte("hello world"), c)...)
	}
	assert.Equal(t, []byte("hello world"), got)
}
