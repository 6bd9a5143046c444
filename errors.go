package bsbi

import "errors"

// ═══════════════════════════════════════════════════════════════════════════════
// ERROR DEFINITIONS
// ═══════════════════════════════════════════════════════════════════════════════
// Declared as package-level variables so callers can compare with errors.Is.
// Each corresponds to one of the abstract error kinds in spec §7; all are
// fatal to the operation that surfaces them (never silently recovered).
// UnknownQueryTerm and EmptyQuery are deliberately NOT represented here:
// the spec treats them as "legitimate no match", not errors.
// ═══════════════════════════════════════════════════════════════════════════════
var (
	// ErrMalformedPostings is returned when a VBE byte stream ends
	// mid-number, a Standard stream's length is not a multiple of 4, or
	// VBE EncodePostings is handed doc ids that are not strictly increasing.
	ErrMalformedPostings = errors.New("bsbi: malformed postings stream")

	// ErrEncodingOverflow is returned when a value cannot be represented:
	// a negative input, a value beyond the Standard codec's 32 bits, or a
	// VBE-decoded value or prefix sum beyond 64-bit unsigned range.
	ErrEncodingOverflow = errors.New("bsbi: postings value overflows 64 bits")

	// ErrIndexIntegrity is returned for structurally broken on-disk
	// index state: missing .dict, a directory entry pointing past EOF,
	// or a df inconsistent with the decoded postings length.
	ErrIndexIntegrity = errors.New("bsbi: index integrity error")

	// ErrMergeOrderViolation is returned when an intermediate reader
	// yields termIDs out of ascending order during the external merge.
	ErrMergeOrderViolation = errors.New("bsbi: merge saw term ids out of order")

	// ErrDuplicateTermAppend is returned when a Writer receives the same
	// termID twice.
	ErrDuplicateTermAppend = errors.New("bsbi: term id appended twice")

	// ErrUnknownTerm is returned by Reader.Get for a termID absent from
	// the directory.
	ErrUnknownTerm = errors.New("bsbi: unknown term id")

	// ErrEmptyPostings is returned by Writer.Append when handed an empty
	// or mismatched doc-id/tf pair of lists.
	ErrEmptyPostings = errors.New("bsbi: postings list must be non-empty and doc ids must match tf count")

	// ErrUnsortedPostings is returned by Writer.Append when the supplied
	// doc-id list is not strictly increasing.
	ErrUnsortedPostings = errors.New("bsbi: doc ids must be strictly increasing")
)
