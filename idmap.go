package bsbi

// ═══════════════════════════════════════════════════════════════════════════════
// IDMAP: Bidirectional String <-> Integer Dictionary
// ═══════════════════════════════════════════════════════════════════════════════
// BSBI needs every term and every document path turned into a dense,
// non-negative integer so postings lists can be stored as plain integer
// sequences instead of repeating strings. IDMap is that dictionary, used
// twice per index build: once for terms, once for document paths.
//
// INVARIANT:
// ----------
// For every id i in [0, Len()): strToID[idToStr[i]] == i. IDs are
// assigned monotonically in first-seen order and are never reused or
// renumbered once assigned.
//
// Each IDMap instance owns its own maps and slice. Earlier ports of this
// kind of dictionary are notorious for sharing a package-level map across
// instances (the classic mutable-default-argument trap); this type never
// does that, since both containers are always allocated in NewIDMap.
// ═══════════════════════════════════════════════════════════════════════════════

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// IDMap is a bidirectional dictionary between strings and dense integer ids.
type IDMap struct {
	strToID map[string]int
	idToStr []string
}

// NewIDMap creates an empty IDMap with freshly allocated storage.
func NewIDMap() *IDMap {
	return &IDMap{
		strToID: make(map[string]int),
		idToStr: make([]string, 0),
	}
}

// ID returns the integer id for s, assigning a new one if s has not been
// seen before. IDs are assigned in first-seen order starting at 0.
func (m *IDMap) ID(s string) int {
	if id, ok := m.strToID[s]; ok {
		return id
	}
	id := len(m.idToStr)
	m.strToID[s] = id
	m.idToStr = append(m.idToStr, s)
	return id
}

// TryID looks up the id for s without assigning a new one.
func (m *IDMap) TryID(s string) (int, bool) {
	id, ok := m.strToID[s]
	return id, ok
}

// String returns the string for id, or false if id is out of range.
func (m *IDMap) String(id int) (string, bool) {
	if id < 0 || id >= len(m.idToStr) {
		return "", false
	}
	return m.idToStr[id], true
}

// Len returns the number of distinct strings registered in the map.
func (m *IDMap) Len() int {
	return len(m.idToStr)
}

// ═══════════════════════════════════════════════════════════════════════════════
// SERIALIZATION
// ═══════════════════════════════════════════════════════════════════════════════
// Two on-disk halves, matching spec §6's four sidecar files (two per
// IDMap: a "_str_to_id.dict" and an "_id_to_str.dict"). Both start with
// the 4-byte magic "IDM1" and a version byte, the same header layout the
// .dict format uses with its own magic "BDI1" (see indexfile.go), so the
// two halves and the index metadata all share one versioning scheme.
// ═══════════════════════════════════════════════════════════════════════════════

const (
	idMapMagic   = "IDM1"
	idMapVersion = byte(1)
)

// EncodeIDToStr serializes the ordered id -> string list: the canonical
// half of the dictionary (ids are simply the slice index).
func (m *IDMap) EncodeIDToStr() []byte {
	buf := new(bytes.Buffer)
	buf.WriteString(idMapMagic)
	buf.WriteByte(idMapVersion)
	binary.Write(buf, binary.LittleEndian, uint32(len(m.idToStr)))
	for _, s := range m.idToStr {
		writeString(buf, s)
	}
	return buf.Bytes()
}

// EncodeStrToID serializes the string -> id half. This is redundant with
// EncodeIDToStr in content but kept as an independent file per spec §6;
// DecodeIDMap cross-checks the two halves agree.
func (m *IDMap) EncodeStrToID() []byte {
	buf := new(bytes.Buffer)
	buf.WriteString(idMapMagic)
	buf.WriteByte(idMapVersion)
	binary.Write(buf, binary.LittleEndian, uint32(len(m.strToID)))
	for s, id := range m.strToID {
		writeString(buf, s)
		binary.Write(buf, binary.LittleEndian, uint32(id))
	}
	return buf.Bytes()
}

// DecodeIDMap reconstructs an IDMap from its two serialized halves,
// failing with ErrIndexIntegrity if they disagree on contents.
func DecodeIDMap(idToStrData, strToIDData []byte) (*IDMap, error) {
	idToStr, err := decodeIDToStr(idToStrData)
	if err != nil {
		return nil, err
	}
	strToID, err := decodeStrToID(strToIDData)
	if err != nil {
		return nil, err
	}

	if len(idToStr) != len(strToID) {
		return nil, fmt.Errorf("%w: id_to_str has %d entries, str_to_id has %d", ErrIndexIntegrity, len(idToStr), len(strToID))
	}
	for id, s := range idToStr {
		gotID, ok := strToID[s]
		if !ok || gotID != id {
			return nil, fmt.Errorf("%w: str_to_id mismatch for %q", ErrIndexIntegrity, s)
		}
	}

	return &IDMap{strToID: strToID, idToStr: idToStr}, nil
}

func decodeIDToStr(data []byte) ([]string, error) {
	r := newByteReader(data)
	if err := r.expectHeader(idMapMagic, idMapVersion); err != nil {
		return nil, err
	}
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := r.readString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeStrToID(data []byte) (map[string]int, error) {
	r := newByteReader(data)
	if err := r.expectHeader(idMapMagic, idMapVersion); err != nil {
		return nil, err
	}
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, n)
	for i := uint32(0); i < n; i++ {
		s, err := r.readString()
		if err != nil {
			return nil, err
		}
		id, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		out[s] = int(id)
	}
	return out, nil
}
