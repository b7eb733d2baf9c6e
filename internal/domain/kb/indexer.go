package kb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	applog "confluencekb/internal/platform/log"
)

// Indexer is the training pipeline: for every synced page it splits the text,
// embeds the chunks in one batch and fully replaces the page's stored chunks.
// After a run the content caches are invalidated; embedding caches survive.
type Indexer struct {
	store    ChunkStore
	embedder Embedder
	chunker  *Chunker
	cache    *QueryCache // optional
}

func NewIndexer(store ChunkStore, embedder Embedder, cfg *Config) *Indexer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Indexer{
		store:    store,
		embedder: embedder,
		chunker:  NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
	}
}

// SetCache enables cache invalidation after reindexing.
func (idx *Indexer) SetCache(c *QueryCache) {
	idx.cache = c
}

// IndexResult summarizes one training run.
type IndexResult struct {
	Pages            int
	Chunks           int
	CacheInvalidated int
}

// Reindex processes every page in the corpus. Page-level failures are logged
// and skipped so one broken page does not abort the run.
func (idx *Indexer) Reindex(ctx context.Context) (*IndexResult, error) {
	start := time.Now()

	pages, err := idx.store.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	result := &IndexResult{}
	for i := range pages {
		n, err := idx.IndexPage(ctx, &pages[i])
		if err != nil {
			applog.Warn("[KB/Indexer] Page failed, skipping",
				"page", pages[i].Title, "error", err)
			continue
		}
		result.Pages++
		result.Chunks += n
	}

	if idx.cache != nil {
		result.CacheInvalidated = idx.cache.InvalidateContent(ctx)
	}

	applog.Info("[KB/Indexer] Reindex complete",
		"pages", result.Pages,
		"chunks", result.Chunks,
		"cache_invalidated", result.CacheInvalidated,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// IndexPage replaces all chunks of one page with freshly embedded ones.
func (idx *Indexer) IndexPage(ctx context.Context, page *Page) (int, error) {
	texts := idx.chunker.Split(page.Content)
	if len(texts) == 0 {
		// Full replace still applies: a now-empty page loses its old chunks.
		if err := idx.store.ReplaceChunks(ctx, page.ID, nil); err != nil {
			return 0, fmt.Errorf("clear chunks: %w", err)
		}
		return 0, nil
	}

	vectors, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}

	meta := ChunkMetadata{
		PageTitle: page.Title,
		SpaceKey:  page.SpaceKey,
		URL:       page.URL,
	}

	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{
			ID:        uuid.New().String(),
			PageID:    page.ID,
			Text:      text,
			Index:     i,
			Embedding: vectors[i],
			Metadata:  meta,
			CreatedAt: time.Now(),
		}
	}

	if err := idx.store.ReplaceChunks(ctx, page.ID, chunks); err != nil {
		return 0, fmt.Errorf("replace chunks: %w", err)
	}

	applog.Info("[KB/Indexer] Page indexed", "page", page.Title, "chunks", len(chunks))
	return len(chunks), nil
}
