package kb

import (
	"context"
	"time"
)

// ChunkStore is the corpus storage required by the retrieval core.
type ChunkStore interface {
	// SearchNearest ranks chunks by cosine distance to the vector using the
	// native index and returns at most limit results with their distance.
	SearchNearest(ctx context.Context, vector []float32, limit int) ([]NearestChunk, error)
	// ListChunksWithEmbeddings returns up to limit chunks whose embedding is set.
	ListChunksWithEmbeddings(ctx context.Context, limit int) ([]Chunk, error)
	// ListChunks returns up to limit chunks regardless of embedding state.
	ListChunks(ctx context.Context, limit int) ([]Chunk, error)
	// CountChunks reports the corpus size.
	CountChunks(ctx context.Context) (int, error)
	// ReplaceChunks atomically swaps all chunks of a page for the given set.
	ReplaceChunks(ctx context.Context, pageID string, chunks []Chunk) error
	// ListPages returns every synced page.
	ListPages(ctx context.Context) ([]Page, error)
	// UpsertPage inserts or updates a page keyed by its Confluence content id.
	UpsertPage(ctx context.Context, page *Page) error
	// InsertQueryLog appends an audit record.
	InsertQueryLog(ctx context.Context, entry *QueryLogEntry) error
}

// NearestChunk is a native-index hit, still carrying raw cosine distance.
type NearestChunk struct {
	Chunk    Chunk
	Distance float64
}

// CacheStore is the generic key-value cache behind QueryCache. Every method
// degrades on backend unavailability instead of returning transport errors.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool
	Delete(ctx context.Context, key string) bool
	DeleteByPrefix(ctx context.Context, prefix string) int
	Available(ctx context.Context) bool
	Stats() CacheStats
}

// Embedder turns text into a fixed-dimension vector. Implementations must be
// deterministic for identical input, otherwise the embedding cache is wrong.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dims() int
}
