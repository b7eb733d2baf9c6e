package kb

import (
	"context"
	"fmt"

	applog "confluencekb/internal/platform/log"
)

// Retriever composes cache lookups, embedding generation and the search
// strategy chain into a single FindRelevantChunks operation.
type Retriever struct {
	cache    *QueryCache
	embedder Embedder
	searcher Searcher
	config   *Config
}

func NewRetriever(cache *QueryCache, embedder Embedder, searcher Searcher, cfg *Config) *Retriever {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Retriever{
		cache:    cache,
		embedder: embedder,
		searcher: searcher,
		config:   cfg,
	}
}

// FindRelevantChunks returns at most topK chunks ranked by non-increasing
// similarity, each at or above the configured threshold. A warm search cache
// short-circuits both embedding and index work.
func (r *Retriever) FindRelevantChunks(ctx context.Context, query string, topK int) ([]SimilarityResult, error) {
	if topK <= 0 {
		topK = r.config.DefaultTopK
	}

	if results, ok := r.cache.GetSearchResults(ctx, query, topK); ok {
		applog.Debug("[KB] Search cache hit", "query", query, "top_k", topK)
		return results, nil
	}

	vector, err := r.queryEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.searcher.Search(ctx, SearchRequest{
		Query:     query,
		Vector:    vector,
		Limit:     topK,
		Threshold: r.config.SimilarityThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	// Best effort: a cache write failure must not fail the query.
	r.cache.SetSearchResults(ctx, query, topK, results)

	applog.Info("[KB] Chunks retrieved",
		"query", query,
		"top_k", topK,
		"results", len(results),
	)
	return results, nil
}

func (r *Retriever) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	if vec, ok := r.cache.GetQueryEmbedding(ctx, query); ok {
		return vec, nil
	}

	embedCtx := ctx
	if r.config.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, r.config.EmbedTimeout)
		defer cancel()
	}

	vectors, err := r.embedder.Embed(embedCtx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one text", len(vectors))
	}

	r.cache.SetQueryEmbedding(ctx, query, vectors[0])
	return vectors[0], nil
}
