package bsbi

// ═══════════════════════════════════════════════════════════════════════════════
// POSTINGS CODEC: Encoding Doc-ID Lists and Term-Frequency Lists as Bytes
// ═══════════════════════════════════════════════════════════════════════════════
// A posting list for a term is a strictly increasing sequence of doc ids,
// with a parallel sequence of term frequencies. Two wire formats are
// supported, selected once per Writer/Reader:
//
//	Standard — fixed 4-byte little-endian unsigned integers, no gap
//	           transform. Simple, used as a size/behavior reference.
//
//	VBE      — variable-byte encoding. Doc ids are gap-coded first (each
//	           value after the first is the delta from its predecessor),
//	           then each integer in the resulting stream is VBE-encoded.
//	           Term frequencies are VBE-encoded directly, with no gap
//	           transform (they aren't sorted, so gaps would be meaningless).
//
// VBE GROUP LAYOUT:
// ------------------
// An integer n >= 0 is split into 7-bit groups, most significant group
// first. Every byte carries 7 payload bits in its low 7 bits; the last
// byte of the sequence has its high bit set to 1 (continuation stops),
// every earlier byte has its high bit clear.
//
// Example: n = 130 (0b1_0000010) splits into two 7-bit groups [0b0000001,
// 0b0000010], encoded as [0x01, 0x82] (0x82 = 0b1000_0010, continuation
// bit set on the final byte).
//
// WHY A DEDICATED INTERFACE?
// ---------------------------
// Writer and Reader are constructed with a Codec value and never branch
// on which codec they hold; see spec.md's design note on dual codec
// dispatch ("implement as a tagged variant or a small virtual interface
// chosen at Writer/Reader construction").
// ═══════════════════════════════════════════════════════════════════════════════

import (
	"encoding/binary"
	"fmt"
)

// Codec encodes and decodes posting lists and term-frequency lists to and
// from their on-disk byte representation.
type Codec interface {
	// EncodePostings encodes a strictly increasing, non-empty doc-id list.
	EncodePostings(docIDs []int) ([]byte, error)
	// DecodePostings decodes bytes previously produced by EncodePostings.
	DecodePostings(data []byte) ([]int, error)
	// EncodeTF encodes a list of positive term frequencies.
	EncodeTF(tfs []int) ([]byte, error)
	// DecodeTF decodes bytes previously produced by EncodeTF.
	DecodeTF(data []byte) ([]int, error)
	// Name identifies the codec for persistence/debugging.
	Name() string
}

// ═══════════════════════════════════════════════════════════════════════════════
// STANDARD CODEC
// ═══════════════════════════════════════════════════════════════════════════════

// StandardCodec encodes every integer as 4 bytes, little-endian, no gap
// transform. Used as a reference implementation and for size comparisons
// against VBE.
type StandardCodec struct{}

func (StandardCodec) Name() string { return "standard" }

func (StandardCodec) EncodePostings(docIDs []int) ([]byte, error) {
	return standardEncode(docIDs)
}

func (StandardCodec) DecodePostings(data []byte) ([]int, error) {
	return standardDecode(data)
}

func (StandardCodec) EncodeTF(tfs []int) ([]byte, error) {
	return standardEncode(tfs)
}

func (StandardCodec) DecodeTF(data []byte) ([]int, error) {
	return standardDecode(data)
}

func standardEncode(values []int) ([]byte, error) {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		if v < 0 || uint64(v) > 0xFFFFFFFF {
			return nil, fmt.Errorf("%w: value %d out of range for standard codec", ErrEncodingOverflow, v)
		}
		binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
	}
	return out, nil
}

func standardDecode(data []byte) ([]int, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: standard postings length %d not a multiple of 4", ErrMalformedPostings, len(data))
	}
	out := make([]int, len(data)/4)
	for i := range out {
		out[i] = int(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// VBE (VARIABLE-BYTE ENCODING) CODEC
// ═══════════════════════════════════════════════════════════════════════════════

// VBECodec gap-codes doc-id lists before variable-byte-encoding them, and
// variable-byte-encodes term-frequency lists directly.
type VBECodec struct{}

func (VBECodec) Name() string { return "vbe" }

// EncodePostings gap-codes D = [d1 < d2 < ...] into G = [d1, d2-d1, ...]
// then VBE-encodes each element of G and concatenates the results.
func (VBECodec) EncodePostings(docIDs []int) ([]byte, error) {
	gaps := make([]uint64, len(docIDs))
	var prev uint64
	for i, d := range docIDs {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative doc id %d", ErrEncodingOverflow, d)
		}
		v := uint64(d)
		if i == 0 {
			gaps[i] = v
		} else {
			if v <= prev {
				return nil, fmt.Errorf("%w: doc ids not strictly increasing at index %d", ErrMalformedPostings, i)
			}
			gaps[i] = v - prev
		}
		prev = v
	}
	return vbeEncodeAll(gaps), nil
}

// DecodePostings VBE-decodes a gap list then prefix-sums it back into
// absolute doc ids.
func (VBECodec) DecodePostings(data []byte) ([]int, error) {
	gaps, err := vbeDecodeAll(data)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(gaps))
	var sum uint64
	for i, g := range gaps {
		next := sum + g
		if next < sum {
			return nil, fmt.Errorf("%w: prefix sum overflow", ErrEncodingOverflow)
		}
		sum = next
		out[i] = int(sum)
	}
	return out, nil
}

// EncodeTF VBE-encodes raw (non-gap-coded) term frequencies.
func (VBECodec) EncodeTF(tfs []int) ([]byte, error) {
	vals := make([]uint64, len(tfs))
	for i, f := range tfs {
		if f < 0 {
			return nil, fmt.Errorf("%w: negative term frequency %d", ErrEncodingOverflow, f)
		}
		vals[i] = uint64(f)
	}
	return vbeEncodeAll(vals), nil
}

// DecodeTF VBE-decodes a raw term-frequency list.
func (VBECodec) DecodeTF(data []byte) ([]int, error) {
	vals, err := vbeDecodeAll(data)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = int(v)
	}
	return out, nil
}

// vbeEncodeOne appends the VBE encoding of n to dst and returns the
// extended slice.
func vbeEncodeOne(dst []byte, n uint64) []byte {
	var groups [10]byte // ceil(64/7) = 10 groups max
	i := len(groups)
	i--
	groups[i] = byte(n & 0x7F)
	n >>= 7
	for n > 0 {
		i--
		groups[i] = byte(n & 0x7F)
		n >>= 7
	}
	// Terminator bit goes on the LAST byte of the sequence (the original
	// least-significant group), every earlier (more significant) byte is
	// left with its high bit clear.
	last := len(groups) - 1
	groups[last] |= 0x80
	return append(dst, groups[i:]...)
}

func vbeEncodeAll(values []uint64) []byte {
	out := make([]byte, 0, len(values)*2)
	for _, v := range values {
		out = vbeEncodeOne(out, v)
	}
	return out
}

// vbeDecodeOne reads one VBE-encoded integer starting at data[pos] and
// returns its value and the position just past it.
func vbeDecodeOne(data []byte, pos int) (uint64, int, error) {
	var n uint64
	start := pos
	for {
		if pos >= len(data) {
			return 0, 0, fmt.Errorf("%w: stream ends mid-number starting at offset %d", ErrMalformedPostings, start)
		}
		b := data[pos]
		pos++
		if n>>57 != 0 {
			return 0, 0, fmt.Errorf("%w: VBE number exceeds 64 bits starting at offset %d", ErrEncodingOverflow, start)
		}
		n = (n << 7) | uint64(b&0x7F)
		if b&0x80 != 0 {
			return n, pos, nil
		}
		if pos-start > 10 {
			return 0, 0, fmt.Errorf("%w: VBE number exceeds 64 bits starting at offset %d", ErrEncodingOverflow, start)
		}
	}
}

func vbeDecodeAll(data []byte) ([]uint64, error) {
	out := make([]uint64, 0, len(data)/2+1)
	pos := 0
	for pos < len(data) {
		v, next, err := vbeDecodeOne(data, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		pos = next
	}
	return out, nil
}

// CodecByName resolves a codec selector to its implementation, matching
// spec §6's postings_encoding selector {Standard, VBE}.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "standard", "Standard":
		return StandardCodec{}, nil
	case "vbe", "VBE":
		return VBECodec{}, nil
	default:
		return nil, fmt.Errorf("bsbi: unknown postings encoding %q", name)
	}
}
