package patch

import (
	"bytes"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
)

// Decoder holds a fully-parsed container: the header, the chunk table, and
// the raw (still-compressed) file bytes each chunk's payload lives in.
// Chunks are independently decompressible, which is what lets Applier
// process them in parallel.
type Decoder struct {
	Header      header
	descriptors []chunkDescriptor
	raw         []byte
	payloadOff  []int
}

// Open reads and validates a .bidelta container from path.
func Open(path string) (*Decoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening patch file: %v", ErrIO, err)
	}
	return Parse(data)
}

// Parse validates and indexes an in-memory container.
func Parse(data []byte) (*Decoder, error) {
	r := bytes.NewReader(data)
	hdr, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	descriptors := make([]chunkDescriptor, hdr.ChunkCount)
	for i := range descriptors {
		d, err := readDescriptor(r)
		if err != nil {
			return nil, err
		}
		if d.NewStart > d.NewEnd || d.NewEnd > hdr.NewSize {
			return nil, fmt.Errorf("%w: chunk %d has invalid range [%d,%d)", ErrCorrupt, i, d.NewStart, d.NewEnd)
		}
		descriptors[i] = d
	}

	payloadOff := make([]int, len(descriptors)+1)
	off := headerSize + len(descriptors)*descriptorSize
	payloadOff[0] = off
	for i, d := range descriptors {
		off += int(d.CompressedLen)
		if off > len(data) {
			return nil, fmt.Errorf("%w: chunk %d payload runs past end of file", ErrCorrupt, i)
		}
		payloadOff[i+1] = off
	}
	if off != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes after last chunk", ErrCorrupt, len(data)-off)
	}

	return &Decoder{Header: hdr, descriptors: descriptors, raw: data, payloadOff: payloadOff}, nil
}

// NumChunks returns the number of chunks in the container.
func (d *Decoder) NumChunks() int { return len(d.descriptors) }

func (d *Decoder) payload(i int) []byte {
	return d.raw[d.payloadOff[i]:d.payloadOff[i+1]]
}

// decodeChunk decompresses chunk i and replays its Control stream against
// older, returning exactly (NewEnd-NewStart) reconstructed bytes.
func (d *Decoder) decodeChunk(older []byte, i int) ([]byte, error) {
	desc := d.descriptors[i]
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating zstd decoder: %v", ErrIO, err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(d.payload(i), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing chunk %d: %v", ErrCorrupt, i, err)
	}

	chunkLen := desc.NewEnd - desc.NewStart
	out := make([]byte, 0, chunkLen)
	oldPos := int(desc.OldStart)
	r := bytes.NewReader(raw)

	for r.Len() > 0 {
		remaining := chunkLen - uint64(len(out))

		addLen, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		if addLen > remaining {
			return nil, fmt.Errorf("%w: chunk %d: add length %d exceeds remaining chunk budget %d", ErrCorrupt, i, addLen, remaining)
		}
		if addLen > 0 && (oldPos < 0 || uint64(oldPos)+addLen > uint64(len(older))) {
			return nil, fmt.Errorf("%w: chunk %d: add region [%d,%d) out of bounds for older (%d bytes)", ErrCorrupt, i, oldPos, uint64(oldPos)+addLen, len(older))
		}
		for k := uint64(0); k < addLen; k++ {
			diffByte, err := r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("%w: chunk %d: truncated add data: %v", ErrCorrupt, i, err)
			}
			out = append(out, older[oldPos+int(k)]+diffByte)
		}
		oldPos += int(addLen)
		remaining -= addLen

		copyLen, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		if copyLen > remaining {
			return nil, fmt.Errorf("%w: chunk %d: copy length %d exceeds remaining chunk budget %d", ErrCorrupt, i, copyLen, remaining)
		}
		if copyLen > uint64(r.Len()) {
			return nil, fmt.Errorf("%w: chunk %d: copy length %d exceeds remaining payload bytes", ErrCorrupt, i, copyLen)
		}
		lit := make([]byte, copyLen)
		if _, err := readFull(r, lit); err != nil {
			return nil, fmt.Errorf("%w: chunk %d: truncated copy data: %v", ErrCorrupt, i, err)
		}
		out = append(out, lit...)

		seek, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		oldPos += int(seek)
	}

	if uint64(len(out)) != desc.NewEnd-desc.NewStart {
		return nil, fmt.Errorf("%w: chunk %d reconstructed %d bytes, expected %d", ErrCorrupt, i, len(out), desc.NewEnd-desc.NewStart)
	}
	return out, nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
