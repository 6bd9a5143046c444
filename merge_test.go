package bsbi

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// TestMergePostings_S2 reproduces spec.md scenario S2: merging
// L1 = [(1,34),(3,2),(4,23)] with L2 = [(1,11),(2,4),(4,3),(6,13)]
// must yield [(1,45),(2,4),(3,2),(4,26),(6,13)].
func TestMergePostings_S2(t *testing.T) {
	d1, tf1 := []int{1, 3, 4}, []int{34, 2, 23}
	d2, tf2 := []int{1, 2, 4, 6}, []int{11, 4, 3, 13}

	gotD, gotTF := mergePostings(d1, tf1, d2, tf2)

	wantD := []int{1, 2, 3, 4, 6}
	wantTF := []int{45, 4, 2, 26, 13}

	if !reflect.DeepEqual(gotD, wantD) {
		t.Errorf("docIDs = %v, want %v", gotD, wantD)
	}
	if !reflect.DeepEqual(gotTF, wantTF) {
		t.Errorf("tfs = %v, want %v", gotTF, wantTF)
	}
}

func TestMergePostings_DoesNotMutateInputs(t *testing.T) {
	d1, tf1 := []int{1, 3}, []int{1, 1}
	d2, tf2 := []int{1, 2}, []int{1, 1}
	d1Copy := append([]int(nil), d1...)
	tf1Copy := append([]int(nil), tf1...)

	mergePostings(d1, tf1, d2, tf2)

	if !reflect.DeepEqual(d1, d1Copy) || !reflect.DeepEqual(tf1, tf1Copy) {
		t.Error("mergePostings must not mutate its inputs")
	}
}

func TestMergePostings_Disjoint(t *testing.T) {
	gotD, gotTF := mergePostings([]int{1, 3}, []int{5, 6}, []int{2, 4}, []int{7, 8})
	wantD := []int{1, 2, 3, 4}
	wantTF := []int{5, 7, 6, 8}
	if !reflect.DeepEqual(gotD, wantD) || !reflect.DeepEqual(gotTF, wantTF) {
		t.Errorf("got %v %v, want %v %v", gotD, gotTF, wantD, wantTF)
	}
}

// buildIntermediate writes a single-term-per-call intermediate index
// directly (bypassing BSBI block parsing) for merge-focused tests.
func buildIntermediate(t *testing.T, dir, name string, entries map[int][2][]int) {
	t.Helper()
	w, err := NewWriter(dir, name, VBECodec{})
	if err != nil {
		t.Fatal(err)
	}
	termIDs := make([]int, 0, len(entries))
	for termID := range entries {
		termIDs = append(termIDs, termID)
	}
	// insertion order must be ascending for a valid intermediate index
	for i := 0; i < len(termIDs); i++ {
		for j := i + 1; j < len(termIDs); j++ {
			if termIDs[j] < termIDs[i] {
				termIDs[i], termIDs[j] = termIDs[j], termIDs[i]
			}
		}
	}
	for _, termID := range termIDs {
		e := entries[termID]
		if err := w.Append(termID, e[0], e[1]); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestMerge_ThreeWayCoalescesAndSums(t *testing.T) {
	dir := t.TempDir()

	buildIntermediate(t, dir, "i1", map[int][2][]int{
		0: {[]int{0, 2}, []int{3, 1}},
		1: {[]int{1}, []int{5}},
	})
	buildIntermediate(t, dir, "i2", map[int][2][]int{
		0: {[]int{1}, []int{2}},
		2: {[]int{0}, []int{7}},
	})
	buildIntermediate(t, dir, "i3", map[int][2][]int{
		0: {[]int{3}, []int{4}},
	})

	readers := make([]*Reader, 3)
	for i, name := range []string{"i1", "i2", "i3"} {
		r, err := OpenReader(dir, name, VBECodec{})
		if err != nil {
			t.Fatal(err)
		}
		readers[i] = r
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	w, err := NewWriter(dir, "merged", VBECodec{})
	if err != nil {
		t.Fatal(err)
	}
	if err := Merge(readers, w); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	merged, err := OpenReader(dir, "merged", VBECodec{})
	if err != nil {
		t.Fatal(err)
	}
	defer merged.Close()

	d0, tf0, err := merged.Get(0)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d0, []int{0, 1, 2, 3}) || !reflect.DeepEqual(tf0, []int{3, 2, 1, 4}) {
		t.Errorf("term 0 = %v %v, want [0 1 2 3] [3 2 1 4]", d0, tf0)
	}

	d1, tf1, err := merged.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d1, []int{1}) || !reflect.DeepEqual(tf1, []int{5}) {
		t.Errorf("term 1 = %v %v, want [1] [5]", d1, tf1)
	}

	d2, tf2, err := merged.Get(2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d2, []int{0}) || !reflect.DeepEqual(tf2, []int{7}) {
		t.Errorf("term 2 = %v %v, want [0] [7]", d2, tf2)
	}

	if got := merged.Terms(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("Terms() = %v, want ascending [0 1 2]", got)
	}
}

// TestMerge_OutOfOrderTermIDsViolatesPrecondition writes a single
// intermediate whose terms were appended out of ascending order (Writer
// itself only forbids duplicates, not disorder - ordering is invertBlock's
// responsibility) and checks Merge surfaces ErrMergeOrderViolation rather
// than silently reordering.
func TestMerge_OutOfOrderTermIDsViolatesPrecondition(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir, "disordered", VBECodec{})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Append(5, []int{0}, []int{1}); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(2, []int{1}, []int{1}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenReader(dir, "disordered", VBECodec{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	out, err := NewWriter(dir, "out", VBECodec{})
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	err = Merge([]*Reader{r}, out)
	if !errors.Is(err, ErrMergeOrderViolation) {
		t.Errorf("Merge() error = %v, want ErrMergeOrderViolation", err)
	}
}

func TestMerge_EmptyReaderList(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "empty", VBECodec{})
	if err != nil {
		t.Fatal(err)
	}
	if err := Merge(nil, w); err != nil {
		t.Fatalf("Merge(nil) error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r, err := OpenReader(dir, "empty", VBECodec{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if len(r.Terms()) != 0 {
		t.Errorf("Terms() = %v, want empty", r.Terms())
	}
}

func TestMergeIntermediates_StatsBytesMatchFileSize(t *testing.T) {
	dir := t.TempDir()
	buildIntermediate(t, dir, "i1", map[int][2][]int{
		0: {[]int{0}, []int{1}},
	})
	n, err := mergeIntermediates(dir, []string{"i1"}, VBECodec{}, "merged")
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(filepath.Join(dir, "merged.index"))
	if err != nil {
		t.Fatal(err)
	}
	if n != info.Size() {
		t.Errorf("mergeIntermediates returned %d bytes, file is %d bytes", n, info.Size())
	}
}
