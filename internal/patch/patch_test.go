package patch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/bidelta/internal/blockindex"
	"github.com/gwillem/bidelta/internal/scanner"
)

func scanFixture(t *testing.T, older, newer []byte) []scanner.Chunk {
	t.Helper()
	idx, err := blockindex.Build(context.Background(), older, blockindex.Params{BlockSize: 16, Backend: blockindex.BackendRAM})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	chunks, err := scanner.Scan(context.Background(), older, newer, idx, scanner.Options{ScanChunkSize: 256})
	require.NoError(t, err)
	return chunks
}

type memWriterAt struct{ buf []byte }

func (m *memWriterAt) WriteAt(p []byte, off int64) (int, error) {
	return copy(m.buf[off:], p), nil
}

func TestEncodeDecodeApplyRoundTrip(t *testing.T) {
	older := bytes.Repeat([]byte("0123456789abcdef"), 64)
	newer := append([]byte{}, older...)
	newer = append(newer[:200], append([]byte("--inserted content here--"), newer[200:]...)...)

	chunks := scanFixture(t, older, newer)

	dir := t.TempDir()
	patchPath := filepath.Join(dir, "test.bidelta")
	require.NoError(t, Encode(patchPath, older, newer, chunks, LevelDefault))

	dec, err := Open(patchPath)
	require.NoError(t, err)
	assert.EqualValues(t, len(older), dec.Header.OldSize)
	assert.EqualValues(t, len(newer), dec.Header.NewSize)

	out := &memWriterAt{buf: make([]byte, dec.Header.NewSize)}
	applier := NewApplier(dec, 4)
	require.NoError(t, applier.Apply(context.Background(), older, out))

	assert.Equal(t, newer, out.buf)
}

func TestEncodeDecodeEqualInputs(t *testing.T) {
	data := bytes.Repeat([]byte("stable content"), 500)
	chunks := scanFixture(t, data, data)

	raw, err := EncodeBuffer(data, data, chunks, LevelDefault)
	require.NoError(t, err)

	dec, err := Parse(raw)
	require.NoError(t, err)

	out := &memWriterAt{buf: make([]byte, dec.Header.NewSize)}
	require.NoError(t, NewApplier(dec, 1).Apply(context.Background(), data, out))
	assert.Equal(t, data, out.buf)
}

func TestApplyRejectsWrongOlderSize(t *testing.T) {
	older := bytes.Repeat([]byte("x"), 64)
	newer := bytes.Repeat([]byte("y"), 64)
	chunks := scanFixture(t, older, newer)

	raw, err := EncodeBuffer(older, newer, chunks, LevelDefault)
	require.NoError(t, err)
	dec, err := Parse(raw)
	require.NoError(t, err)

	out := &memWriterAt{buf: make([]byte, dec.Header.NewSize)}
	err = NewApplier(dec, 1).Apply(context.Background(), older[:32], out)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.bidelta")
	require.NoError(t, os.WriteFile(p, []byte("not a patch file"), 0o644))

	_, err := Open(p)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestOpenRejectsTruncatedHeader(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "short.bidelta")
	require.NoError(t, os.WriteFile(p, []byte("BIDF"), 0o644))

	_, err := Open(p)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestVarintRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	writeUvarint(&buf, 0)
	writeUvarint(&buf, 300)
	writeVarint(&buf, -12345)
	writeVarint(&buf, 12345)

	r := bytes.NewReader(buf.Bytes())
	u1, err := readUvarint(r)
	require.NoError(t, err)
	assert.EqualValues(t, 0, u1)

	u2, err := readUvarint(r)
	require.NoError(t, err)
	assert.EqualValues(t, 300, u2)

	v1, err := readVarint(r)
	require.NoError(t, err)
	assert.EqualValues(t, -12345, v1)

	v2, err := readVarint(r)
	require.NoError(t, err)
	assert.EqualValues(t, 12345, v2)
}
