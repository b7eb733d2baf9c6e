package kb

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	applog "confluencekb/internal/platform/log"
)

// Cache key namespaces. Embedding keys survive re-indexing because a query's
// embedding does not depend on corpus content; search and response keys do.
const (
	nsEmbedding = "embedding"
	nsSearch    = "search"
	nsResponse  = "response"
)

// QueryCache fronts the generic CacheStore with the three logical caches of
// the query path: query embeddings, search results and AI responses.
type QueryCache struct {
	store CacheStore

	embeddingTTL time.Duration
	searchTTL    time.Duration
	responseTTL  time.Duration
}

func NewQueryCache(store CacheStore, cfg *Config) *QueryCache {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &QueryCache{
		store:        store,
		embeddingTTL: cfg.EmbeddingTTL,
		searchTTL:    cfg.SearchTTL,
		responseTTL:  cfg.ResponseTTL,
	}
}

// cacheKey derives "<namespace>:<sha256 of payload>". Payloads are marshaled
// to JSON so structurally equal payloads always hash the same.
func cacheKey(namespace string, payload any) string {
	var data []byte
	switch v := payload.(type) {
	case string:
		data = []byte(v)
	default:
		data, _ = json.Marshal(v)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", namespace, sum)
}

// GetQueryEmbedding returns the cached embedding for a query, if any.
func (c *QueryCache) GetQueryEmbedding(ctx context.Context, query string) ([]float32, bool) {
	data, ok := c.store.Get(ctx, cacheKey(nsEmbedding, query))
	if !ok {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		applog.Warn("[KB/Cache] Corrupt cached embedding, treating as miss", "error", err)
		return nil, false
	}
	return vec, true
}

// SetQueryEmbedding caches a query embedding.
func (c *QueryCache) SetQueryEmbedding(ctx context.Context, query string, vec []float32) bool {
	data, err := json.Marshal(vec)
	if err != nil {
		return false
	}
	return c.store.Set(ctx, cacheKey(nsEmbedding, query), data, c.embeddingTTL)
}

type searchKey struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// GetSearchResults returns cached retrieval results for (query, topK).
func (c *QueryCache) GetSearchResults(ctx context.Context, query string, topK int) ([]SimilarityResult, bool) {
	data, ok := c.store.Get(ctx, cacheKey(nsSearch, searchKey{Query: query, TopK: topK}))
	if !ok {
		return nil, false
	}
	var results []SimilarityResult
	if err := json.Unmarshal(data, &results); err != nil {
		applog.Warn("[KB/Cache] Corrupt cached search results, treating as miss", "error", err)
		return nil, false
	}
	return results, true
}

// SetSearchResults caches retrieval results. Search results are more volatile
// than embeddings, so they get the shorter TTL.
func (c *QueryCache) SetSearchResults(ctx context.Context, query string, topK int, results []SimilarityResult) bool {
	data, err := json.Marshal(results)
	if err != nil {
		return false
	}
	return c.store.Set(ctx, cacheKey(nsSearch, searchKey{Query: query, TopK: topK}), data, c.searchTTL)
}

type responseKey struct {
	Query   string `json:"query"`
	Context string `json:"context"`
}

// GetAIResponse returns a cached answer for (query, contextHash). Keying on
// the context hash makes the cache sensitive to which chunks were retrieved,
// not just the query text.
func (c *QueryCache) GetAIResponse(ctx context.Context, query, contextHash string) (string, bool) {
	data, ok := c.store.Get(ctx, cacheKey(nsResponse, responseKey{Query: query, Context: contextHash}))
	if !ok {
		return "", false
	}
	var response string
	if err := json.Unmarshal(data, &response); err != nil {
		applog.Warn("[KB/Cache] Corrupt cached response, treating as miss", "error", err)
		return "", false
	}
	return response, true
}

// SetAIResponse caches an answer for (query, contextHash).
func (c *QueryCache) SetAIResponse(ctx context.Context, query, contextHash, response string) bool {
	data, err := json.Marshal(response)
	if err != nil {
		return false
	}
	return c.store.Set(ctx, cacheKey(nsResponse, responseKey{Query: query, Context: contextHash}), data, c.responseTTL)
}

// InvalidateContent removes all search and response entries after the corpus
// has been re-embedded. Embedding entries stay valid and are left alone.
func (c *QueryCache) InvalidateContent(ctx context.Context) int {
	deleted := c.store.DeleteByPrefix(ctx, nsSearch+":")
	deleted += c.store.DeleteByPrefix(ctx, nsResponse+":")
	applog.Info("[KB/Cache] Content caches invalidated", "entries_deleted", deleted)
	return deleted
}

// Stats returns the underlying store counters.
func (c *QueryCache) Stats() CacheStats {
	return c.store.Stats()
}

// Available reports whether the cache backend answers pings.
func (c *QueryCache) Available(ctx context.Context) bool {
	return c.store.Available(ctx)
}
