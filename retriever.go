// ═══════════════════════════════════════════════════════════════════════════════
// RETRIEVER: Term-at-a-Time Ranked Retrieval
// ═══════════════════════════════════════════════════════════════════════════════
// Given a query string and the merged index a Build produced, the
// Retriever analyzes the query into terms, looks up each term's postings
// in turn (term-at-a-time, never document-at-a-time), scores every
// document the term touches, and combines per-term scores across terms by
// summing on matching docID. Two scorers share this shape and differ only
// in how a single (term, doc) weight wtd is computed: TF-IDF ignores
// document length, BM25 normalizes by it.
//
// Unknown query terms are never an error (spec §4.6, §7
// UnknownQueryTerm): a term absent from the index, or a query that
// analyzes to nothing at all, simply contributes no accumulator and the
// call returns whatever results the other terms produced (possibly none).
// ═══════════════════════════════════════════════════════════════════════════════

package bsbi

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring"
)

// BM25Params holds the tunable BM25 constants.
//
// NOTE: the literature's usual default for k1 is 1.2-2.0; this package's
// DefaultBM25Params literally preserves the source system's k1=10, which
// spec.md's Open Questions section flags as unusually large. Callers doing
// production tuning should pass k1 explicitly rather than relying on the
// default.
type BM25Params struct {
	K1 float64
	B  float64
}

// DefaultBM25Params returns the spec's literal BM25 defaults (k1=10, b=0.5).
func DefaultBM25Params() BM25Params {
	return BM25Params{K1: 10, B: 0.5}
}

// RetrieveOptions configures a single retrieval call.
type RetrieveOptions struct {
	K int // top-k cutoff; defaults to 10 if <= 0.
}

// DefaultRetrieveOptions returns the spec's default top-k of 10.
func DefaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{K: 10}
}

// Result is one ranked hit: a score and the document path it belongs to.
// Field order deliberately matches the source system's (score, doc_path)
// tuple shape (spec §9 Open Question 2) even though Go has no positional
// tuple equivalent to preserve literally - a named struct is the idiomatic
// substitute and this keeps the same field order.
type Result struct {
	Score float64
	Path  string
}

// accumulator is one (docID, partial-or-total score) pair produced while
// scoring a single query term, or while combining across terms.
type accumulator struct {
	docID int
	score float64
}

// Retriever answers ranked queries against a merged index written by
// Build. It loads the term/doc IDMaps once (lazily, on first use) and
// opens a fresh Reader per query, per spec §5's "independent Reader
// instance per query" concurrency rule.
type Retriever struct {
	outputDir string
	indexName string
	codec     Codec

	termIDs *IDMap
	docIDs  *IDMap
}

// NewRetriever constructs a Retriever over the merged index previously
// written to outputDir by Build.
func NewRetriever(outputDir, indexName string, codec Codec) *Retriever {
	if indexName == "" {
		indexName = "main_index"
	}
	return &Retriever{outputDir: outputDir, indexName: indexName, codec: codec}
}

func (ret *Retriever) ensureIDMaps() error {
	if ret.termIDs != nil && ret.docIDs != nil {
		return nil
	}
	termIDs, docIDs, err := LoadIDMaps(ret.outputDir)
	if err != nil {
		return err
	}
	ret.termIDs = termIDs
	ret.docIDs = docIDs
	return nil
}

// RetrieveTFIDF scores query using wtd = 1 + log10(tf) (tf > 0), no length
// normalization, wtq = log10(N/df), and returns the top opts.K results.
func (ret *Retriever) RetrieveTFIDF(query string, opts RetrieveOptions) ([]Result, error) {
	return ret.retrieve(query, opts, func(tf int, dl float64, avdl float64, k1, b float64) float64 {
		if tf <= 0 {
			return 0
		}
		return 1 + math.Log10(float64(tf))
	})
}

// RetrieveBM25 scores query using the BM25 saturation/length-normalization
// formula with the given params, and returns the top opts.K results.
func (ret *Retriever) RetrieveBM25(query string, opts RetrieveOptions, params BM25Params) ([]Result, error) {
	return ret.retrieve(query, opts, func(tf int, dl float64, avdl float64, k1, b float64) float64 {
		if tf <= 0 {
			return 0
		}
		tfF := float64(tf)
		numerator := (k1 + 1) * tfF
		denominator := k1*((1-b)+b*(dl/avdl)) + tfF
		return numerator / denominator
	}, params.K1, params.B)
}

// wtdFunc computes the per-(term,doc) weight given the document's tf for
// the term, the document's length, the collection's average document
// length, and the BM25 constants (unused by TF-IDF).
type wtdFunc func(tf int, dl, avdl, k1, b float64) float64

func (ret *Retriever) retrieve(query string, opts RetrieveOptions, wtd wtdFunc, bm25Params ...float64) ([]Result, error) {
	if opts.K <= 0 {
		opts = DefaultRetrieveOptions()
	}
	var k1, b float64
	if len(bm25Params) == 2 {
		k1, b = bm25Params[0], bm25Params[1]
	}

	if err := ret.ensureIDMaps(); err != nil {
		return nil, err
	}

	terms := Analyze(query)
	if len(terms) == 0 {
		return []Result{}, nil
	}
	slog.Info("retrieval query", slog.String("query", query), slog.Int("terms", len(terms)))

	reader, err := OpenReader(ret.outputDir, ret.indexName, ret.codec)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	docLengths := reader.AllDocLengths()
	n := len(docLengths)
	if n == 0 {
		return []Result{}, nil
	}
	var totalTokens int64
	for _, l := range docLengths {
		totalTokens += int64(l)
	}
	avdl := float64(totalTokens) / float64(n)

	var combined []accumulator
	var candidates *roaring.Bitmap

	for _, term := range terms {
		termID, ok := ret.termIDs.TryID(term)
		if !ok || !reader.HasTerm(termID) {
			continue
		}
		docIDs, tfs, err := reader.Get(termID)
		if err != nil {
			return nil, err
		}
		df := len(docIDs)
		if df == 0 {
			continue
		}
		wtq := math.Log10(float64(n) / float64(df))

		termAccs := make([]accumulator, len(docIDs))
		termBitmap := roaring.NewBitmap()
		for i, d := range docIDs {
			dl := float64(docLengths[d])
			w := wtd(tfs[i], dl, avdl, k1, b)
			termAccs[i] = accumulator{docID: d, score: wtq * w}
			termBitmap.Add(uint32(d))
		}

		if candidates == nil {
			candidates = termBitmap
		} else {
			candidates = roaring.Or(candidates, termBitmap)
		}

		combined = mergeAccumulators(combined, termAccs)
	}

	if len(combined) == 0 {
		return []Result{}, nil
	}
	if candidates != nil {
		slog.Debug("candidate prefilter", slog.Int("candidates", int(candidates.GetCardinality())), slog.Int("scored", len(combined)))
	}

	sort.Slice(combined, func(i, j int) bool {
		if combined[i].score != combined[j].score {
			return combined[i].score > combined[j].score
		}
		return combined[i].docID < combined[j].docID
	})

	k := opts.K
	if k > len(combined) {
		k = len(combined)
	}

	results := make([]Result, 0, k)
	for _, acc := range combined[:k] {
		path, ok := ret.docIDs.String(acc.docID)
		if !ok {
			return nil, fmt.Errorf("%w: doc id %d has no path", ErrIndexIntegrity, acc.docID)
		}
		results = append(results, Result{Score: acc.score, Path: path})
	}
	return results, nil
}

// mergeAccumulators pairwise-sorted-merges two (docID, score) accumulator
// lists, summing scores on matching docID exactly as mergePostings does
// for (docID, tf) pairs during external merge - the spec requires the
// combination step use "the same linear two-list merge used during
// indexing" (§4.6). Pure: never mutates a or b. Addition is associative,
// so repeated pairwise merges across many query terms produce the same
// total regardless of merge order (spec §4.6's combination note).
func mergeAccumulators(a, b []accumulator) []accumulator {
	if a == nil {
		out := make([]accumulator, len(b))
		copy(out, b)
		sort.Slice(out, func(i, j int) bool { return out[i].docID < out[j].docID })
		return out
	}

	bs := make([]accumulator, len(b))
	copy(bs, b)
	sort.Slice(bs, func(i, j int) bool { return bs[i].docID < bs[j].docID })

	out := make([]accumulator, 0, len(a)+len(bs))
	i, j := 0, 0
	for i < len(a) && j < len(bs) {
		switch {
		case a[i].docID < bs[j].docID:
			out = append(out, a[i])
			i++
		case a[i].docID > bs[j].docID:
			out = append(out, bs[j])
			j++
		default:
			out = append(out, accumulator{docID: a[i].docID, score: a[i].score + bs[j].score})
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, bs[j:]...)
	return out
}
