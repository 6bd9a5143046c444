package bsbi

// ═══════════════════════════════════════════════════════════════════════════════
// INVERTED INDEX FILE: On-Disk Representation of One Index
// ═══════════════════════════════════════════════════════════════════════════════
// Every index (each BSBI intermediate index, and the final merged index)
// is stored as a pair of files sharing a base name B:
//
//	B.index — the data file: concatenated encoded postings and tf lists,
//	          one (postings, tf) pair per term, back to back, no
//	          delimiters, no header. Random access is by byte offset.
//
//	B.dict  — the metadata sidecar: the postings directory (termID ->
//	          offset/df/lengths), the term insertion order, and the
//	          doc_length map, all length-prefixed and versioned (magic
//	          "BDI1"). Written exactly once, on a clean Close.
//
// Writer is append-only; Reader supports O(1) seek-based random access via
// Get, plus a single streaming forward iterator via Iterate/Reset.
// ═══════════════════════════════════════════════════════════════════════════════

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"sort"
)

type dirEntry struct {
	offset      int64
	df          int
	lenPostings int
	lenTF       int
}

// ─────────────────────────────────────────────────────────────────────────
// WRITER
// ─────────────────────────────────────────────────────────────────────────

// Writer appends postings for successive terms to a new .index/.dict
// pair. It is append-only: once a termID has been written it cannot be
// rewritten, matching spec §4.2's append precondition.
type Writer struct {
	f         *os.File
	indexPath string
	dictPath  string
	codec     Codec
	offset    int64

	directory map[int]dirEntry
	terms     []int
	docLength map[int]int
	closed    bool
}

// NewWriter creates a new Writer for the index base-named indexName in
// dir, using codec for postings/tf encoding.
func NewWriter(dir, indexName string, codec Codec) (*Writer, error) {
	indexPath := indexFilePath(dir, indexName)
	f, err := os.Create(indexPath)
	if err != nil {
		return nil, fmt.Errorf("bsbi: creating index file: %w", err)
	}
	return &Writer{
		f:         f,
		indexPath: indexPath,
		dictPath:  dictFilePath(dir, indexName),
		codec:     codec,
		directory: make(map[int]dirEntry),
		terms:     make([]int, 0),
		docLength: make(map[int]int),
	}, nil
}

// Append encodes and writes the postings for termID. Preconditions:
// termID has not been appended before; docIDs is strictly increasing;
// len(docIDs) == len(tfs) >= 1; every tf is >= 1.
func (w *Writer) Append(termID int, docIDs, tfs []int) error {
	if _, exists := w.directory[termID]; exists {
		return fmt.Errorf("%w: term %d", ErrDuplicateTermAppend, termID)
	}
	if len(docIDs) == 0 || len(docIDs) != len(tfs) {
		return ErrEmptyPostings
	}
	for i, tf := range tfs {
		if tf < 1 {
			return fmt.Errorf("%w: term %d has non-positive tf %d", ErrEmptyPostings, termID, tf)
		}
		if i > 0 && docIDs[i] <= docIDs[i-1] {
			return fmt.Errorf("%w: term %d", ErrUnsortedPostings, termID)
		}
	}

	postingsBytes, err := w.codec.EncodePostings(docIDs)
	if err != nil {
		return err
	}
	tfBytes, err := w.codec.EncodeTF(tfs)
	if err != nil {
		return err
	}

	startOffset := w.offset
	if _, err := w.f.Write(postingsBytes); err != nil {
		return fmt.Errorf("bsbi: writing postings: %w", err)
	}
	if _, err := w.f.Write(tfBytes); err != nil {
		return fmt.Errorf("bsbi: writing tf list: %w", err)
	}
	w.offset += int64(len(postingsBytes)) + int64(len(tfBytes))

	w.directory[termID] = dirEntry{
		offset:      startOffset,
		df:          len(docIDs),
		lenPostings: len(postingsBytes),
		lenTF:       len(tfBytes),
	}
	w.terms = append(w.terms, termID)

	for i, d := range docIDs {
		w.docLength[d] += tfs[i]
	}
	return nil
}

// Close flushes the data file and writes the .dict sidecar. The sidecar
// is written last and only on a clean close, so a crash mid-indexing
// leaves a redo-safe state: no .dict means the .index contents must not
// be trusted (spec §5).
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return fmt.Errorf("bsbi: syncing index file: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("bsbi: closing index file: %w", err)
	}

	data := encodeDict(w.directory, w.terms, w.docLength)
	tmpPath := w.dictPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("bsbi: writing dict sidecar: %w", err)
	}
	if err := os.Rename(tmpPath, w.dictPath); err != nil {
		return fmt.Errorf("bsbi: finalizing dict sidecar: %w", err)
	}
	return nil
}

func indexFilePath(dir, name string) string { return dir + "/" + name + ".index" }
func dictFilePath(dir, name string) string  { return dir + "/" + name + ".dict" }

// ─────────────────────────────────────────────────────────────────────────
// DICT SIDECAR ENCODING
// ─────────────────────────────────────────────────────────────────────────

const (
	dictMagic   = "BDI1"
	dictVersion = byte(1)
)

func encodeDict(directory map[int]dirEntry, terms []int, docLength map[int]int) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString(dictMagic)
	buf.WriteByte(dictVersion)

	binary.Write(buf, binary.LittleEndian, uint32(len(terms)))
	for _, termID := range terms {
		e := directory[termID]
		binary.Write(buf, binary.LittleEndian, uint32(termID))
		binary.Write(buf, binary.LittleEndian, uint64(e.offset))
		binary.Write(buf, binary.LittleEndian, uint32(e.df))
		binary.Write(buf, binary.LittleEndian, uint32(e.lenPostings))
		binary.Write(buf, binary.LittleEndian, uint32(e.lenTF))
	}

	docIDs := make([]int, 0, len(docLength))
	for d := range docLength {
		docIDs = append(docIDs, d)
	}
	sort.Ints(docIDs)
	binary.Write(buf, binary.LittleEndian, uint32(len(docIDs)))
	for _, d := range docIDs {
		binary.Write(buf, binary.LittleEndian, uint32(d))
		binary.Write(buf, binary.LittleEndian, uint32(docLength[d]))
	}

	return buf.Bytes()
}

func decodeDict(data []byte) (directory map[int]dirEntry, terms []int, docLength map[int]int, err error) {
	r := newByteReader(data)
	if err = r.expectHeader(dictMagic, dictVersion); err != nil {
		return nil, nil, nil, err
	}

	numTerms, err := r.readUint32()
	if err != nil {
		return nil, nil, nil, err
	}
	directory = make(map[int]dirEntry, numTerms)
	terms = make([]int, 0, numTerms)
	for i := uint32(0); i < numTerms; i++ {
		termID, err := r.readUint32()
		if err != nil {
			return nil, nil, nil, err
		}
		offset, err := r.readUint64()
		if err != nil {
			return nil, nil, nil, err
		}
		df, err := r.readUint32()
		if err != nil {
			return nil, nil, nil, err
		}
		lenPostings, err := r.readUint32()
		if err != nil {
			return nil, nil, nil, err
		}
		lenTF, err := r.readUint32()
		if err != nil {
			return nil, nil, nil, err
		}
		directory[int(termID)] = dirEntry{
			offset:      int64(offset),
			df:          int(df),
			lenPostings: int(lenPostings),
			lenTF:       int(lenTF),
		}
		terms = append(terms, int(termID))
	}

	numDocs, err := r.readUint32()
	if err != nil {
		return nil, nil, nil, err
	}
	docLength = make(map[int]int, numDocs)
	for i := uint32(0); i < numDocs; i++ {
		docID, err := r.readUint32()
		if err != nil {
			return nil, nil, nil, err
		}
		length, err := r.readUint32()
		if err != nil {
			return nil, nil, nil, err
		}
		docLength[int(docID)] = int(length)
	}

	return directory, terms, docLength, nil
}

// ─────────────────────────────────────────────────────────────────────────
// READER
// ─────────────────────────────────────────────────────────────────────────

// Reader provides random-access (Get) and single-pass streaming (Iterate)
// access to a closed .index/.dict pair. A Reader is not safe for
// concurrent use: it holds exactly one iteration cursor and one open file
// handle (spec §5 — multiple concurrent queries must each use an
// independent Reader instance).
type Reader struct {
	f         *os.File
	path      string
	codec     Codec
	directory map[int]dirEntry
	terms     []int
	docLength map[int]int
	fileSize  int64

	iterPos int
}

// OpenReader opens a previously-closed Writer's output for reading.
func OpenReader(dir, indexName string, codec Codec) (*Reader, error) {
	indexPath := indexFilePath(dir, indexName)
	dictPath := dictFilePath(dir, indexName)

	dictBytes, err := os.ReadFile(dictPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading dict sidecar: %v", ErrIndexIntegrity, err)
	}
	directory, terms, docLength, err := decodeDict(dictBytes)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("bsbi: opening index file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bsbi: stat index file: %w", err)
	}

	for termID, e := range directory {
		if e.offset < 0 || e.offset+int64(e.lenPostings)+int64(e.lenTF) > info.Size() {
			f.Close()
			return nil, fmt.Errorf("%w: term %d directory entry points past EOF", ErrIndexIntegrity, termID)
		}
	}

	return &Reader{
		f:         f,
		path:      indexPath,
		codec:     codec,
		directory: directory,
		terms:     terms,
		docLength: docLength,
		fileSize:  info.Size(),
	}, nil
}

// Close releases the Reader's file handle.
func (r *Reader) Close() error {
	return r.f.Close()
}

// NumDocs returns N, the number of distinct documents in the collection.
func (r *Reader) NumDocs() int { return len(r.docLength) }

// DocLength returns the token count for docID, or (0, false) if unknown.
func (r *Reader) DocLength(docID int) (int, bool) {
	l, ok := r.docLength[docID]
	return l, ok
}

// AllDocLengths returns the full docID -> token-count map. Callers must
// not mutate the returned map.
func (r *Reader) AllDocLengths() map[int]int { return r.docLength }

// Get performs an O(1) seek + O(df) decode of termID's postings.
func (r *Reader) Get(termID int) (docIDs, tfs []int, err error) {
	e, ok := r.directory[termID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownTerm, termID)
	}
	return r.readEntry(e)
}

// HasTerm reports whether termID is present in this index without
// decoding its postings.
func (r *Reader) HasTerm(termID int) bool {
	_, ok := r.directory[termID]
	return ok
}

func (r *Reader) readEntry(e dirEntry) (docIDs, tfs []int, err error) {
	buf := make([]byte, e.lenPostings+e.lenTF)
	if _, err := r.f.ReadAt(buf, e.offset); err != nil {
		return nil, nil, fmt.Errorf("bsbi: reading postings at offset %d: %w", e.offset, err)
	}
	docIDs, err = r.codec.DecodePostings(buf[:e.lenPostings])
	if err != nil {
		return nil, nil, err
	}
	tfs, err = r.codec.DecodeTF(buf[e.lenPostings:])
	if err != nil {
		return nil, nil, err
	}
	if len(docIDs) != e.df {
		return nil, nil, fmt.Errorf("%w: directory df %d does not match decoded length %d", ErrIndexIntegrity, e.df, len(docIDs))
	}
	return docIDs, tfs, nil
}

// Iterate returns the next (termID, docIDs, tfs) triple in insertion
// order, streaming one term's postings at a time. ok is false once all
// terms have been yielded.
func (r *Reader) Iterate() (termID int, docIDs, tfs []int, ok bool, err error) {
	if r.iterPos >= len(r.terms) {
		return 0, nil, nil, false, nil
	}
	termID = r.terms[r.iterPos]
	r.iterPos++
	docIDs, tfs, err = r.readEntry(r.directory[termID])
	if err != nil {
		return 0, nil, nil, false, err
	}
	return termID, docIDs, tfs, true, nil
}

// Reset repositions the iterator to the start for re-iteration.
func (r *Reader) Reset() { r.iterPos = 0 }

// Terms returns the term ids in insertion order (termID-sorted for a
// merged index).
func (r *Reader) Terms() []int { return r.terms }
