package kb

import (
	"context"
	"fmt"
	"sort"

	applog "confluencekb/internal/platform/log"
)

// SearchRequest carries one similarity query through the strategy chain.
// Vector-based strategies use Vector; the lexical fallback uses Query.
type SearchRequest struct {
	Query     string
	Vector    []float32
	Limit     int
	Threshold float64
}

// Searcher ranks chunks by similarity to the request. Results are ordered by
// non-increasing similarity, filtered to >= Threshold (vector strategies) and
// truncated to Limit. An empty corpus yields an empty slice, not an error.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) ([]SimilarityResult, error)
}

// ── Native index search ──────────────────────────────────────

// IndexSearcher asks the storage engine for the nearest vectors and converts
// cosine distance to similarity (1 - distance) before filtering.
type IndexSearcher struct {
	store     ChunkStore
	scanLimit int
}

func NewIndexSearcher(store ChunkStore, scanLimit int) *IndexSearcher {
	if scanLimit <= 0 {
		scanLimit = 100
	}
	return &IndexSearcher{store: store, scanLimit: scanLimit}
}

func (s *IndexSearcher) Search(ctx context.Context, req SearchRequest) ([]SimilarityResult, error) {
	if len(req.Vector) == 0 {
		return nil, fmt.Errorf("index search requires a query vector")
	}

	nearest, err := s.store.SearchNearest(ctx, req.Vector, s.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("native vector search: %w", err)
	}

	results := make([]SimilarityResult, 0, req.Limit)
	for _, n := range nearest {
		similarity := 1 - n.Distance
		if similarity < req.Threshold {
			continue
		}
		results = append(results, SimilarityResult{
			ChunkID:    n.Chunk.ID,
			Text:       n.Chunk.Text,
			Metadata:   n.Chunk.Metadata,
			Similarity: similarity,
		})
		if len(results) >= req.Limit {
			break
		}
	}
	return results, nil
}

// ── Exact in-process fallback ────────────────────────────────

// ExactSearcher loads embedded chunks and computes cosine similarity
// in-process. Used when the native index path is unavailable.
type ExactSearcher struct {
	store     ChunkStore
	scanLimit int
}

func NewExactSearcher(store ChunkStore, scanLimit int) *ExactSearcher {
	if scanLimit <= 0 {
		scanLimit = 100
	}
	return &ExactSearcher{store: store, scanLimit: scanLimit}
}

func (s *ExactSearcher) Search(ctx context.Context, req SearchRequest) ([]SimilarityResult, error) {
	if len(req.Vector) == 0 {
		return nil, fmt.Errorf("exact search requires a query vector")
	}

	chunks, err := s.store.ListChunksWithEmbeddings(ctx, s.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("load embedded chunks: %w", err)
	}

	var results []SimilarityResult
	for _, c := range chunks {
		similarity := CosineSimilarity(req.Vector, c.Embedding)
		if similarity < req.Threshold {
			continue
		}
		results = append(results, SimilarityResult{
			ChunkID:    c.ID,
			Text:       c.Text,
			Metadata:   c.Metadata,
			Similarity: similarity,
		})
	}

	sortBySimilarity(results)
	return truncate(results, req.Limit), nil
}

// ── Lexical fallback ─────────────────────────────────────────

// LexicalSearcher scores chunks by Jaccard word overlap with the query text.
// Last resort when numeric search is impossible.
type LexicalSearcher struct {
	store     ChunkStore
	scanLimit int
	threshold float64
}

func NewLexicalSearcher(store ChunkStore, scanLimit int, threshold float64) *LexicalSearcher {
	if scanLimit <= 0 {
		scanLimit = 100
	}
	if threshold <= 0 {
		threshold = 0.1
	}
	return &LexicalSearcher{store: store, scanLimit: scanLimit, threshold: threshold}
}

func (s *LexicalSearcher) Search(ctx context.Context, req SearchRequest) ([]SimilarityResult, error) {
	chunks, err := s.store.ListChunks(ctx, s.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	var results []SimilarityResult
	for _, c := range chunks {
		overlap := JaccardOverlap(req.Query, c.Text)
		if overlap <= s.threshold {
			continue
		}
		results = append(results, SimilarityResult{
			ChunkID:    c.ID,
			Text:       c.Text,
			Metadata:   c.Metadata,
			Similarity: overlap,
		})
	}

	sortBySimilarity(results)
	return truncate(results, req.Limit), nil
}

// ── Strategy chain ───────────────────────────────────────────

// ChainSearcher tries each strategy in order and falls through on failure.
// Callers see one contract regardless of which tier served the request.
type ChainSearcher struct {
	tiers []namedSearcher
}

type namedSearcher struct {
	name     string
	searcher Searcher
}

func NewChainSearcher() *ChainSearcher {
	return &ChainSearcher{}
}

// Append adds a strategy to the end of the chain.
func (c *ChainSearcher) Append(name string, s Searcher) *ChainSearcher {
	c.tiers = append(c.tiers, namedSearcher{name: name, searcher: s})
	return c
}

func (c *ChainSearcher) Search(ctx context.Context, req SearchRequest) ([]SimilarityResult, error) {
	if len(c.tiers) == 0 {
		return nil, fmt.Errorf("no search strategies configured")
	}

	var lastErr error
	for _, tier := range c.tiers {
		results, err := tier.searcher.Search(ctx, req)
		if err != nil {
			applog.Warn("[KB/Search] Strategy failed, trying next tier",
				"strategy", tier.name, "error", err)
			lastErr = err
			continue
		}
		if lastErr != nil {
			applog.Info("[KB/Search] Served by fallback tier", "strategy", tier.name)
		}
		return results, nil
	}
	return nil, fmt.Errorf("all search strategies failed: %w", lastErr)
}

func sortBySimilarity(results []SimilarityResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
}

func truncate(results []SimilarityResult, limit int) []SimilarityResult {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
