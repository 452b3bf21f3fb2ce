package patch

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gwillem/bidelta/internal/scanner"
	"github.com/klauspost/compress/zstd"
)

// Level selects the zstd compression effort applied to each chunk payload.
type Level int

const (
	LevelDefault Level = iota
	LevelBest
)

func (l Level) zstdLevel() zstd.EncoderLevel {
	if l == LevelBest {
		return zstd.SpeedBestCompression
	}
	return zstd.SpeedDefault
}

// Encode writes a complete .bidelta container to path, atomically (via a
// temp file + rename, the same pattern the teacher's hashdb.Save uses for
// its CDDB files). older and newer must be the full buffers the chunks were
// scanned from; chunks must be in ascending NewStart order and must cover
// [0, len(newer)) contiguously (Scan's output already satisfies this).
func Encode(path string, older, newer []byte, chunks []scanner.Chunk, level Level) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".bidelta-tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp patch file: %v", ErrIO, err)
	}
	tmpName := f.Name()
	defer os.Remove(tmpName)
	defer f.Close()

	if err := encodeTo(f, older, newer, chunks, level); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing temp patch file: %v", ErrIO, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: renaming patch file into place: %v", ErrIO, err)
	}
	return nil
}

// EncodeBuffer serializes a container into memory instead of a file, used
// by the round-trip verification path (diffengine.Cycle) which never needs
// the patch to touch disk.
func EncodeBuffer(older, newer []byte, chunks []scanner.Chunk, level Level) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeTo(&buf, older, newer, chunks, level); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeTo(w io.Writer, older, newer []byte, chunks []scanner.Chunk, level Level) error {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level.zstdLevel()))
	if err != nil {
		return fmt.Errorf("%w: creating zstd encoder: %v", ErrIO, err)
	}
	defer enc.Close()

	payloads := make([][]byte, len(chunks))
	descriptors := make([]chunkDescriptor, len(chunks))

	for i, c := range chunks {
		raw, err := encodeChunkRaw(older, newer, c)
		if err != nil {
			return err
		}
		compressed := enc.EncodeAll(raw, nil)
		payloads[i] = compressed
		descriptors[i] = chunkDescriptor{
			CompressedLen: uint64(len(compressed)),
			NewStart:      uint64(c.NewStart),
			NewEnd:        uint64(c.NewEnd),
			OldStart:      uint64(c.OldStart),
		}
	}

	hdr := header{
		OldSize:    uint64(len(older)),
		NewSize:    uint64(len(newer)),
		ChunkCount: uint64(len(chunks)),
	}
	if err := writeHeader(w, hdr); err != nil {
		return err
	}
	for _, d := range descriptors {
		if err := writeDescriptor(w, d); err != nil {
			return err
		}
	}
	for _, p := range payloads {
		if _, err := w.Write(p); err != nil {
			return fmt.Errorf("%w: writing chunk payload: %v", ErrIO, err)
		}
	}
	return nil
}

// encodeChunkRaw serializes one chunk's Control stream into the
// self-contained per-record wire format: uvarint(add_len) + add bytes +
// uvarint(copy_len) + copy bytes + zigzag-varint(seek), one after another.
// add bytes are the wrapping byte-difference between newer and older at the
// chunk's running position; copy bytes are literal newer bytes.
func encodeChunkRaw(older, newer []byte, c scanner.Chunk) ([]byte, error) {
	var buf bytes.Buffer
	oldPos := c.OldStart
	newPos := c.NewStart

	for _, ctrl := range c.Controls {
		writeUvarint(&buf, uint64(ctrl.AddLen))
		for i := 0; i < ctrl.AddLen; i++ {
			var ob byte
			if op := oldPos + i; op >= 0 && op < len(older) {
				ob = older[op]
			}
			buf.WriteByte(newer[newPos+i] - ob)
		}
		writeUvarint(&buf, uint64(ctrl.CopyLen))
		buf.Write(newer[newPos+ctrl.AddLen : newPos+ctrl.AddLen+ctrl.CopyLen])
		writeVarint(&buf, ctrl.Seek)

		newPos += ctrl.AddLen + ctrl.CopyLen
		oldPos += ctrl.AddLen + int(ctrl.Seek)
	}

	if newPos != c.NewEnd {
		return nil, fmt.Errorf("%w: chunk control stream reconstructs %d bytes, expected %d", ErrCorrupt, newPos-c.NewStart, c.NewEnd-c.NewStart)
	}
	return buf.Bytes(), nil
}
