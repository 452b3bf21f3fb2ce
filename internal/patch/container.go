package patch

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	magic          = "BIDF"
	magicSize      = 4
	version        = 0x02
	headerSize     = magicSize + 1 + 8 + 8 + 8 // magic + version + old_size + new_size + chunk_count
	descriptorSize = 8 + 8 + 8 + 8             // compressed_len + new_start + new_end + old_start
)

// header is the fixed-size preamble of a .bidelta container. ChunkCount is a
// u64 to match spec.md's bit-exact wire layout, even though no real patch
// will ever approach 2^32 chunks.
type header struct {
	OldSize    uint64
	NewSize    uint64
	ChunkCount uint64
}

func writeHeader(w io.Writer, h header) error {
	buf := make([]byte, headerSize)
	copy(buf[0:magicSize], magic)
	buf[magicSize] = version
	binary.LittleEndian.PutUint64(buf[5:13], h.OldSize)
	binary.LittleEndian.PutUint64(buf[13:21], h.NewSize)
	binary.LittleEndian.PutUint64(buf[21:29], h.ChunkCount)
	_, err := w.Write(buf)
	if err != nil {
		return fmt.Errorf("%w: writing header: %v", ErrIO, err)
	}
	return nil
}

func readHeader(r io.Reader) (header, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return header{}, fmt.Errorf("%w: reading header: %v", ErrCorrupt, err)
	}
	if string(buf[0:magicSize]) != magic {
		return header{}, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if buf[magicSize] != version {
		return header{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, buf[magicSize])
	}
	h := header{
		OldSize:    binary.LittleEndian.Uint64(buf[5:13]),
		NewSize:    binary.LittleEndian.Uint64(buf[13:21]),
		ChunkCount: binary.LittleEndian.Uint64(buf[21:29]),
	}
	return h, nil
}

// chunkDescriptor locates one compressed, independently-decodable payload
// within the container and the (old, new) byte ranges it reconstructs.
// CompressedLen is a u64 to match spec.md's wire layout.
type chunkDescriptor struct {
	CompressedLen uint64
	NewStart      uint64
	NewEnd        uint64
	OldStart      uint64
}

func writeDescriptor(w io.Writer, d chunkDescriptor) error {
	buf := make([]byte, descriptorSize)
	binary.LittleEndian.PutUint64(buf[0:8], d.CompressedLen)
	binary.LittleEndian.PutUint64(buf[8:16], d.NewStart)
	binary.LittleEndian.PutUint64(buf[16:24], d.NewEnd)
	binary.LittleEndian.PutUint64(buf[24:32], d.OldStart)
	_, err := w.Write(buf)
	if err != nil {
		return fmt.Errorf("%w: writing chunk descriptor: %v", ErrIO, err)
	}
	return nil
}

func readDescriptor(r io.Reader) (chunkDescriptor, error) {
	buf := make([]byte, descriptorSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return chunkDescriptor{}, fmt.Errorf("%w: reading chunk descriptor: %v", ErrCorrupt, err)
	}
	return chunkDescriptor{
		CompressedLen: binary.LittleEndian.Uint64(buf[0:8]),
		NewStart:      binary.LittleEndian.Uint64(buf[8:16]),
		NewEnd:        binary.LittleEndian.Uint64(buf[16:24]),
		OldStart:      binary.LittleEndian.Uint64(buf[24:32]),
	}, nil
}
