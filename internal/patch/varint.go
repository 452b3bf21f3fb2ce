package patch

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Unsigned varints use encoding/binary's standard 7-bit-group, high-bit
// continuation format. This is the same primitive BGMUSTC-delta reaches
// for to encode its own record lengths, so it stays on the standard
// library rather than pulling in a dedicated varint package the corpus
// never uses either.

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

// readUvarint decodes one unsigned varint from r, capped at
// binary.MaxVarintLen64 (10) bytes as required by the wire format.
func readUvarint(r *bytes.Reader) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, fmt.Errorf("%w: reading varint: %v", ErrCorrupt, err)
	}
	return v, nil
}

func writeVarint(buf *bytes.Buffer, v int64) {
	writeUvarint(buf, zigzagEncode(v))
}

func readVarint(r *bytes.Reader) (int64, error) {
	u, err := readUvarint(r)
	if err != nil {
		return 0, err
	}
	return zigzagDecode(u), nil
}

func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func zigzagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}
