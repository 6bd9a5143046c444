package bsbi

import (
	"os"
	"path/filepath"
	"testing"
)

// writeDoc creates block/file under root with the given contents.
func writeDoc(t *testing.T, root, block, file, contents string) {
	t.Helper()
	dir := filepath.Join(root, block)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestBuild_S3 reproduces spec.md scenario S3: a single block with
// a.txt and b.txt, checking the merged index's postings, tfs, and
// doc_length match the worked example exactly.
func TestBuild_S3(t *testing.T) {
	dataDir := t.TempDir()
	outDir := t.TempDir()

	writeDoc(t, dataDir, "block1", "a.txt", "the cat sat on the mat")
	writeDoc(t, dataDir, "block1", "b.txt", "a cat and a dog")

	stats, err := Build(dataDir, outDir, BuildOptions{Codec: VBECodec{}, IndexName: "main_index"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if stats.Documents != 2 {
		t.Errorf("Documents = %d, want 2", stats.Documents)
	}
	if stats.Terms != 4 {
		t.Errorf("Terms = %d, want 4 (cat, sat, mat, dog)", stats.Terms)
	}

	termIDs, docIDs, err := LoadIDMaps(outDir)
	if err != nil {
		t.Fatalf("LoadIDMaps() error = %v", err)
	}

	reader, err := OpenReader(outDir, "main_index", VBECodec{})
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer reader.Close()

	aID, _ := docIDs.TryID("block1/a.txt")
	bID, _ := docIDs.TryID("block1/b.txt")

	check := func(term string, wantDocs map[int]int) {
		t.Helper()
		termID, ok := termIDs.TryID(term)
		if !ok {
			t.Fatalf("term %q not found in term id map", term)
		}
		gotDocs, gotTFs, err := reader.Get(termID)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", term, err)
		}
		if len(gotDocs) != len(wantDocs) {
			t.Fatalf("term %q: got %d docs, want %d", term, len(gotDocs), len(wantDocs))
		}
		for i, d := range gotDocs {
			want, ok := wantDocs[d]
			if !ok {
				t.Fatalf("term %q: unexpected doc id %d", term, d)
			}
			if gotTFs[i] != want {
				t.Errorf("term %q doc %d: tf = %d, want %d", term, d, gotTFs[i], want)
			}
		}
	}

	check("cat", map[int]int{aID: 1, bID: 1})
	check("sat", map[int]int{aID: 1})
	check("mat", map[int]int{aID: 1})
	check("dog", map[int]int{bID: 1})

	dlA, ok := reader.DocLength(aID)
	if !ok || dlA != 3 {
		t.Errorf("doc_length[a.txt] = %d, %v, want 3", dlA, ok)
	}
	dlB, ok := reader.DocLength(bID)
	if !ok || dlB != 2 {
		t.Errorf("doc_length[b.txt] = %d, %v, want 2", dlB, ok)
	}
}

// TestBuild_S6 reproduces spec.md scenario S6: putting a.txt and b.txt in
// separate blocks must produce a byte-identical merged .index file to
// indexing them together in one block, since termIDs/docIDs are assigned
// in the same first-seen order either way.
func TestBuild_S6(t *testing.T) {
	singleBlockData := t.TempDir()
	writeDoc(t, singleBlockData, "block1", "a.txt", "the cat sat on the mat")
	writeDoc(t, singleBlockData, "block1", "b.txt", "a cat and a dog")
	singleOut := t.TempDir()
	if _, err := Build(singleBlockData, singleOut, BuildOptions{Codec: VBECodec{}}); err != nil {
		t.Fatalf("single-block Build() error = %v", err)
	}

	twoBlockData := t.TempDir()
	writeDoc(t, twoBlockData, "block1", "a.txt", "the cat sat on the mat")
	writeDoc(t, twoBlockData, "block2", "b.txt", "a cat and a dog")
	twoOut := t.TempDir()
	if _, err := Build(twoBlockData, twoOut, BuildOptions{Codec: VBECodec{}}); err != nil {
		t.Fatalf("two-block Build() error = %v", err)
	}

	singleBytes, err := os.ReadFile(filepath.Join(singleOut, "main_index.index"))
	if err != nil {
		t.Fatal(err)
	}
	twoBytes, err := os.ReadFile(filepath.Join(twoOut, "main_index.index"))
	if err != nil {
		t.Fatal(err)
	}
	if string(singleBytes) != string(twoBytes) {
		t.Errorf("merged .index differs between single-block and two-block builds:\n%x\n%x", singleBytes, twoBytes)
	}
}

func TestBuild_IntermediatesRemovedAfterMerge(t *testing.T) {
	dataDir := t.TempDir()
	outDir := t.TempDir()
	writeDoc(t, dataDir, "block1", "a.txt", "cat dog")

	if _, err := Build(dataDir, outDir, BuildOptions{Codec: VBECodec{}}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "intermediate_block1.index")); !os.IsNotExist(err) {
		t.Errorf("intermediate index should be removed after merge, stat err = %v", err)
	}
}

func TestBuild_StandardCodec(t *testing.T) {
	dataDir := t.TempDir()
	outDir := t.TempDir()
	writeDoc(t, dataDir, "block1", "a.txt", "cat dog cat")

	if _, err := Build(dataDir, outDir, BuildOptions{Codec: StandardCodec{}}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	reader, err := OpenReader(outDir, "main_index", StandardCodec{})
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer reader.Close()

	termIDs, _, err := LoadIDMaps(outDir)
	if err != nil {
		t.Fatal(err)
	}
	catID, _ := termIDs.TryID("cat")
	docs, tfs, err := reader.Get(catID)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || tfs[0] != 2 {
		t.Errorf("cat postings = %v, %v, want one doc with tf=2", docs, tfs)
	}
}

func TestListBlocks_SortedLexically(t *testing.T) {
	dataDir := t.TempDir()
	writeDoc(t, dataDir, "block10", "a.txt", "x")
	writeDoc(t, dataDir, "block2", "a.txt", "x")
	writeDoc(t, dataDir, "block1", "a.txt", "x")

	blocks, err := listBlocks(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"block1", "block10", "block2"}
	for i, b := range want {
		if blocks[i] != b {
			t.Errorf("blocks[%d] = %q, want %q (lexical, not numeric)", i, blocks[i], b)
		}
	}
}
