package bsbi

// ═══════════════════════════════════════════════════════════════════════════════
// BINARY FRAMING HELPERS
// ═══════════════════════════════════════════════════════════════════════════════
// Shared length-prefixed binary encoding used by idmap.go and indexfile.go.
// Every sidecar file this package writes starts with a 4-byte magic and a
// single version byte, per spec.md's design note: "Add a 4-byte magic and
// a version byte at the head" so the .dict sidecars are portable and
// versioned rather than relying on a language-specific pickle format.
// ═══════════════════════════════════════════════════════════════════════════════

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}

// byteReader is a small cursor over an in-memory byte slice used when
// decoding the .dict / IDMap sidecar formats. Unlike bytes.Reader it
// returns ErrIndexIntegrity (wrapped with context) instead of panicking
// or returning io.EOF on truncated input, since a short sidecar file is a
// structural integrity problem, not an ordinary end-of-stream condition.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader {
	return &byteReader{data: data}
}

func (r *byteReader) need(n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("%w: expected %d more bytes at offset %d, have %d", ErrIndexIntegrity, n, r.pos, len(r.data)-r.pos)
	}
	return nil
}

func (r *byteReader) expectHeader(magic string, version byte) error {
	if err := r.need(len(magic) + 1); err != nil {
		return err
	}
	if string(r.data[r.pos:r.pos+len(magic)]) != magic {
		return fmt.Errorf("%w: bad magic", ErrIndexIntegrity)
	}
	r.pos += len(magic)
	if r.data[r.pos] != version {
		return fmt.Errorf("%w: unsupported version %d", ErrIndexIntegrity, r.data[r.pos])
	}
	r.pos++
	return nil
}

func (r *byteReader) readUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *byteReader) readUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *byteReader) readString() (string, error) {
	n, err := r.readUint32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *byteReader) atEnd() bool {
	return r.pos >= len(r.data)
}
