// ═══════════════════════════════════════════════════════════════════════════════
// EXTERNAL MERGER: K-Way Merge of Intermediate Indexes
// ═══════════════════════════════════════════════════════════════════════════════
// Each BSBI block produces its own intermediate index, sorted by termID
// internally but with no relationship to any other block's term ordering
// or docID ranges overlapping at the postings level. The External Merger
// combines an arbitrary number of these Readers into one Writer receiving
// exactly one postings entry per distinct termID, coalescing postings and
// summing term frequencies when multiple blocks both mention a term.
//
// ALGORITHM:
// ----------
// A min-heap (container/heap, the same structure google-codesearch's
// postHeap uses to merge per-file trigram posting chunks) holds the
// current (termID, docIDs, tfs) triple from each reader that still has
// input. Popping the heap always yields the globally smallest pending
// termID; ties (several readers currently sitting on the same termID) are
// drained one at a time, each merged into a running accumulator, before
// the accumulator is flushed and a strictly larger termID is started.
// Because every pop re-pushes that reader's next triple, equal-termID
// entries surface across however many pops it takes, regardless of heap
// ordering internals - the merge never needs a separate "drain ties"
// phase.
// ═══════════════════════════════════════════════════════════════════════════════

package bsbi

import (
	"container/heap"
	"fmt"
	"os"
)

// mergeItem is one reader's current (termID, docIDs, tfs) triple sitting
// in the merge heap.
type mergeItem struct {
	readerIdx int
	termID    int
	docIDs    []int
	tfs       []int
}

// mergeHeap is a min-heap of mergeItems ordered by ascending termID.
type mergeHeap []*mergeItem

func (h mergeHeap) Len() int            { return len(h) }
func (h mergeHeap) Less(i, j int) bool  { return h[i].termID < h[j].termID }
func (h mergeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x interface{}) { *h = append(*h, x.(*mergeItem)) }
func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Merge k-way merges readers (each yielding (termID, docIDs, tfs) triples
// in ascending termID order via Iterate) into w, one Append per distinct
// termID. Readers are consumed via their own iteration cursor; Merge does
// not reset them first, so callers should pass freshly opened Readers.
//
// Returns ErrMergeOrderViolation if any reader yields termIDs out of
// ascending order relative to the running accumulator - a precondition
// violation, not a data-dependent condition, per spec §4.5.
func Merge(readers []*Reader, w *Writer) error {
	h := &mergeHeap{}
	heap.Init(h)

	advance := func(readerIdx int) error {
		r := readers[readerIdx]
		termID, docIDs, tfs, ok, err := r.Iterate()
		if err != nil {
			return err
		}
		if ok {
			heap.Push(h, &mergeItem{readerIdx: readerIdx, termID: termID, docIDs: docIDs, tfs: tfs})
		}
		return nil
	}

	for i := range readers {
		if err := advance(i); err != nil {
			return err
		}
	}
	if h.Len() == 0 {
		return nil
	}

	first := heap.Pop(h).(*mergeItem)
	curTerm := first.termID
	curDocIDs := first.docIDs
	curTFs := first.tfs
	if err := advance(first.readerIdx); err != nil {
		return err
	}

	for h.Len() > 0 {
		item := heap.Pop(h).(*mergeItem)
		switch {
		case item.termID < curTerm:
			return fmt.Errorf("%w: saw term %d after term %d", ErrMergeOrderViolation, item.termID, curTerm)
		case item.termID == curTerm:
			curDocIDs, curTFs = mergePostings(curDocIDs, curTFs, item.docIDs, item.tfs)
		default:
			if err := w.Append(curTerm, curDocIDs, curTFs); err != nil {
				return err
			}
			curTerm = item.termID
			curDocIDs = item.docIDs
			curTFs = item.tfs
		}
		if err := advance(item.readerIdx); err != nil {
			return err
		}
	}

	return w.Append(curTerm, curDocIDs, curTFs)
}

// mergePostings co-iterates two sorted (docID, tf) lists, producing a new
// strictly increasing docID list with summed tf on collision. Pure: it
// never mutates d1/tf1/d2/tf2, per spec.md's design note that the source's
// in-place `.sort()`-based merge must become a pure function in the port.
func mergePostings(d1, tf1, d2, tf2 []int) ([]int, []int) {
	outD := make([]int, 0, len(d1)+len(d2))
	outTF := make([]int, 0, len(d1)+len(d2))

	i, j := 0, 0
	for i < len(d1) && j < len(d2) {
		switch {
		case d1[i] < d2[j]:
			outD = append(outD, d1[i])
			outTF = append(outTF, tf1[i])
			i++
		case d1[i] > d2[j]:
			outD = append(outD, d2[j])
			outTF = append(outTF, tf2[j])
			j++
		default:
			outD = append(outD, d1[i])
			outTF = append(outTF, tf1[i]+tf2[j])
			i++
			j++
		}
	}
	for ; i < len(d1); i++ {
		outD = append(outD, d1[i])
		outTF = append(outTF, tf1[i])
	}
	for ; j < len(d2); j++ {
		outD = append(outD, d2[j])
		outTF = append(outTF, tf2[j])
	}
	return outD, outTF
}

// mergeIntermediates opens the named intermediate indexes in outputDir,
// k-way merges them into a freshly written indexName index, and returns
// the resulting .index file size for BuildStats.Bytes.
func mergeIntermediates(outputDir string, names []string, codec Codec, indexName string) (int64, error) {
	readers := make([]*Reader, 0, len(names))
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	for _, name := range names {
		r, err := OpenReader(outputDir, name, codec)
		if err != nil {
			return 0, err
		}
		readers = append(readers, r)
	}

	w, err := NewWriter(outputDir, indexName, codec)
	if err != nil {
		return 0, err
	}
	if err := Merge(readers, w); err != nil {
		w.Close()
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}

	info, err := os.Stat(indexFilePath(outputDir, indexName))
	if err != nil {
		return 0, fmt.Errorf("bsbi: stat merged index: %w", err)
	}
	return info.Size(), nil
}
