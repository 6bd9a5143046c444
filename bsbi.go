// ═══════════════════════════════════════════════════════════════════════════════
// BSBI INDEXER: Blocked Sort-Based Indexing
// ═══════════════════════════════════════════════════════════════════════════════
// BSBI builds an inverted index over a collection too large to sort in one
// pass: the collection is split into "blocks" (one immediate sub-directory
// of data_dir each), each block is parsed and inverted entirely in memory,
// and the resulting per-block intermediate index is written to disk before
// moving on to the next block. Once every block has an intermediate index,
// External Merger (merge.go) k-way merges them into the single sorted
// merged index the Retriever queries.
//
// PIPELINE:
// ---------
//  1. Enumerate data_dir's immediate sub-directories, sorted lexically.
//  2. For each block, in order:
//     a. parseBlock: read every file, analyze it, push (termID, docID)
//        pairs for every emitted token. Both IDMaps persist across blocks,
//        so termIDs and docIDs are globally unique even though each block
//        is parsed independently.
//     b. invertBlock: group pairs by termID, count tf per docID, sort
//        docIDs ascending, and append one (docIDs, tfs) postings entry per
//        term to a fresh intermediate Writer.
//  3. Persist the two IDMaps to output_dir.
//  4. Open every intermediate Reader and external-merge them into
//     main_index (or BuildOptions.IndexName).
//
// Indexing is strictly sequential: block N is fully parsed, inverted, and
// written before block N+1 begins (spec §5), so there is no concurrent
// mutation of the IDMaps to guard against.
// ═══════════════════════════════════════════════════════════════════════════════

package bsbi

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// BuildOptions configures a BSBI build, following the teacher's small
// Default-constructed config-struct convention (AnalyzerConfig,
// BM25Parameters).
type BuildOptions struct {
	// Codec selects the postings wire format for both the intermediate
	// indexes and the final merged index.
	Codec Codec
	// IndexName is the base filename for the merged index. Defaults to
	// "main_index" if empty.
	IndexName string
}

// DefaultBuildOptions returns VBE-encoded postings and the spec's default
// merged-index base name.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Codec:     VBECodec{},
		IndexName: "main_index",
	}
}

// BuildStats reports basic counters from a completed Build, the kind of
// one-line summary the teacher logs after indexing (and google-codesearch's
// Flush() reports in its own "%d data bytes, %d index bytes" form). Purely
// observational: nothing here feeds back into scoring or ranking.
type BuildStats struct {
	Blocks    int
	Documents int
	Terms     int
	Bytes     int64
}

// termDocPair is one (termID, docID) occurrence emitted by the Analyzer
// while parsing a block; invertBlock groups these into postings.
type termDocPair struct {
	termID int
	docID  int
}

// Build runs the full BSBI pipeline: parse and invert every block under
// dataDir into an intermediate index in outputDir, then external-merge the
// intermediates into BuildOptions.IndexName and persist the IDMaps.
func Build(dataDir, outputDir string, opts BuildOptions) (*BuildStats, error) {
	if opts.Codec == nil {
		opts.Codec = VBECodec{}
	}
	if opts.IndexName == "" {
		opts.IndexName = "main_index"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("bsbi: creating output dir: %w", err)
	}

	blocks, err := listBlocks(dataDir)
	if err != nil {
		return nil, err
	}

	termIDs := NewIDMap()
	docIDs := NewIDMap()
	stats := &BuildStats{Blocks: len(blocks)}

	intermediateNames := make([]string, 0, len(blocks))
	for _, block := range blocks {
		pairs, err := parseBlock(dataDir, block, termIDs, docIDs)
		if err != nil {
			return nil, err
		}

		name := "intermediate_" + block
		if err := invertBlock(outputDir, name, opts.Codec, pairs); err != nil {
			return nil, err
		}
		intermediateNames = append(intermediateNames, name)

		slog.Info("indexed block", slog.String("block", block), slog.Int("pairs", len(pairs)))
	}
	stats.Documents = docIDs.Len()
	stats.Terms = termIDs.Len()

	if err := persistIDMaps(outputDir, termIDs, docIDs); err != nil {
		return nil, err
	}

	bytesWritten, err := mergeIntermediates(outputDir, intermediateNames, opts.Codec, opts.IndexName)
	if err != nil {
		return nil, err
	}
	stats.Bytes = bytesWritten

	for _, name := range intermediateNames {
		os.Remove(indexFilePath(outputDir, name))
		os.Remove(dictFilePath(outputDir, name))
	}

	slog.Info("build complete",
		slog.Int("blocks", stats.Blocks),
		slog.Int("documents", stats.Documents),
		slog.Int("terms", stats.Terms),
		slog.Int64("bytes", stats.Bytes))

	return stats, nil
}

// listBlocks enumerates the immediate sub-directories of dataDir, sorted
// lexicographically, per spec §4.4 step 1.
func listBlocks(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("bsbi: reading data dir: %w", err)
	}
	blocks := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			blocks = append(blocks, e.Name())
		}
	}
	sort.Strings(blocks)
	return blocks, nil
}

// parseBlock reads every regular file directly inside dataDir/block, runs
// it through the Analyzer, and returns one (termID, docID) pair per
// emitted token. Both IDMaps are shared across all blocks in a Build call,
// so term and doc ids stay globally unique.
func parseBlock(dataDir, block string, termIDs, docIDs *IDMap) ([]termDocPair, error) {
	blockDir := filepath.Join(dataDir, block)
	entries, err := os.ReadDir(blockDir)
	if err != nil {
		return nil, fmt.Errorf("bsbi: reading block %q: %w", block, err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	var pairs []termDocPair
	for _, fname := range files {
		path := filepath.Join(blockDir, fname)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("bsbi: reading document %q: %w", path, err)
		}

		docPath := block + "/" + fname
		docID := docIDs.ID(docPath)

		for _, term := range Analyze(string(data)) {
			termID := termIDs.ID(term)
			pairs = append(pairs, termDocPair{termID: termID, docID: docID})
		}
	}
	return pairs, nil
}

// invertBlock groups pairs by termID, counting tf per docID, and appends
// one postings entry per term (in ascending termID order) to a fresh
// intermediate Writer named name in outputDir.
//
// A roaring bitmap per term tracks which docIDs touched it during the
// counting pass; it is discarded once the sorted docID list has been
// derived from it, mirroring the teacher's DocBitmaps bookkeeping but
// scoped to a single block's in-memory inversion instead of a whole
// persistent index.
func invertBlock(outputDir, name string, codec Codec, pairs []termDocPair) error {
	type accumulator struct {
		docs *roaring.Bitmap
		tf   map[int]int
	}
	byTerm := make(map[int]*accumulator)

	for _, p := range pairs {
		acc, ok := byTerm[p.termID]
		if !ok {
			acc = &accumulator{docs: roaring.NewBitmap(), tf: make(map[int]int)}
			byTerm[p.termID] = acc
		}
		acc.docs.Add(uint32(p.docID))
		acc.tf[p.docID]++
	}

	termIDs := make([]int, 0, len(byTerm))
	for t := range byTerm {
		termIDs = append(termIDs, t)
	}
	sort.Ints(termIDs)

	w, err := NewWriter(outputDir, name, codec)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, termID := range termIDs {
		acc := byTerm[termID]
		docList := acc.docs.ToArray()
		docIDs := make([]int, len(docList))
		tfs := make([]int, len(docList))
		for i, d := range docList {
			docIDs[i] = int(d)
			tfs[i] = acc.tf[int(d)]
		}
		if err := w.Append(termID, docIDs, tfs); err != nil {
			return err
		}
	}

	return w.Close()
}

// persistIDMaps writes the four sidecar halves spec §6 names:
// terms_str_to_id.dict, terms_id_to_str.dict, docs_str_to_id.dict,
// docs_id_to_str.dict.
func persistIDMaps(outputDir string, termIDs, docIDs *IDMap) error {
	writes := []struct {
		path string
		data []byte
	}{
		{filepath.Join(outputDir, "terms_str_to_id.dict"), termIDs.EncodeStrToID()},
		{filepath.Join(outputDir, "terms_id_to_str.dict"), termIDs.EncodeIDToStr()},
		{filepath.Join(outputDir, "docs_str_to_id.dict"), docIDs.EncodeStrToID()},
		{filepath.Join(outputDir, "docs_id_to_str.dict"), docIDs.EncodeIDToStr()},
	}
	for _, w := range writes {
		if err := os.WriteFile(w.path, w.data, 0o644); err != nil {
			return fmt.Errorf("bsbi: writing %s: %w", w.path, err)
		}
	}
	return nil
}

// LoadIDMaps reads the four IDMap sidecar halves persisted by a previous
// Build call out of outputDir.
func LoadIDMaps(outputDir string) (termIDs, docIDs *IDMap, err error) {
	read := func(name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(outputDir, name))
	}

	termsS2I, err := read("terms_str_to_id.dict")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading terms_str_to_id.dict: %v", ErrIndexIntegrity, err)
	}
	termsI2S, err := read("terms_id_to_str.dict")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading terms_id_to_str.dict: %v", ErrIndexIntegrity, err)
	}
	docsS2I, err := read("docs_str_to_id.dict")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading docs_str_to_id.dict: %v", ErrIndexIntegrity, err)
	}
	docsI2S, err := read("docs_id_to_str.dict")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading docs_id_to_str.dict: %v", ErrIndexIntegrity, err)
	}

	termIDs, err = DecodeIDMap(termsI2S, termsS2I)
	if err != nil {
		return nil, nil, err
	}
	docIDs, err = DecodeIDMap(docsI2S, docsS2I)
	if err != nil {
		return nil, nil, err
	}
	return termIDs, docIDs, nil
}
