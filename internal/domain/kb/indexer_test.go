package kb

import (
	"context"
	"testing"
)

func TestIndexPageReplacesChunks(t *testing.T) {
	store := newFakeStore()
	idx := NewIndexer(store, &fakeEmbedder{dims: 3}, DefaultConfig())

	page := &Page{
		ID:       "p1",
		PageID:   "12345",
		Title:    "Runbook",
		SpaceKey: "OPS",
		URL:      "https://wiki/runbook",
		Content:  "How to restart the service safely.",
	}

	n, err := idx.IndexPage(context.Background(), page)
	if err != nil {
		t.Fatalf("IndexPage() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("chunks = %d, want 1", n)
	}

	stored := store.replaceCalls["p1"]
	if len(stored) != 1 {
		t.Fatalf("stored %d chunks, want 1", len(stored))
	}
	c := stored[0]
	if c.PageID != "p1" || c.Index != 0 {
		t.Errorf("chunk = %+v", c)
	}
	if len(c.Embedding) != 3 {
		t.Errorf("embedding dims = %d, want 3", len(c.Embedding))
	}
	if c.Metadata.PageTitle != "Runbook" || c.Metadata.SpaceKey != "OPS" {
		t.Errorf("metadata = %+v", c.Metadata)
	}
	if c.ID == "" {
		t.Error("chunk ID not assigned")
	}
}

func TestIndexPageEmptyContentClearsChunks(t *testing.T) {
	store := newFakeStore()
	idx := NewIndexer(store, &fakeEmbedder{}, DefaultConfig())

	n, err := idx.IndexPage(context.Background(), &Page{ID: "p1", Content: "   "})
	if err != nil {
		t.Fatalf("IndexPage() error = %v", err)
	}
	if n != 0 {
		t.Errorf("chunks = %d, want 0", n)
	}

	stored, ok := store.replaceCalls["p1"]
	if !ok {
		t.Fatal("ReplaceChunks not called for empty page")
	}
	if len(stored) != 0 {
		t.Errorf("stored %d chunks, want 0", len(stored))
	}
}

func TestReindexSkipsFailedPages(t *testing.T) {
	store := newFakeStore()
	store.pages = []Page{
		{ID: "ok", Title: "Good", Content: "some content here"},
		{ID: "bad", Title: "Broken", Content: "other content here"},
	}

	embedder := &selectiveEmbedder{failOn: "other content here"}
	idx := NewIndexer(store, embedder, DefaultConfig())

	result, err := idx.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex() error = %v", err)
	}
	if result.Pages != 1 {
		t.Errorf("Pages = %d, want 1 (failed page skipped)", result.Pages)
	}
	if result.Chunks != 1 {
		t.Errorf("Chunks = %d, want 1", result.Chunks)
	}
}

func TestReindexInvalidatesContentCaches(t *testing.T) {
	store := newFakeStore()
	store.pages = []Page{{ID: "p1", Content: "content"}}

	cacheStore := newFakeCacheStore()
	cache := NewQueryCache(cacheStore, DefaultConfig())
	ctx := context.Background()
	cache.SetSearchResults(ctx, "q", 5, nil)
	cache.SetAIResponse(ctx, "q", "h", "stale")
	cache.SetQueryEmbedding(ctx, "q", []float32{1})

	idx := NewIndexer(store, &fakeEmbedder{}, DefaultConfig())
	idx.SetCache(cache)

	result, err := idx.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex() error = %v", err)
	}
	if result.CacheInvalidated != 2 {
		t.Errorf("CacheInvalidated = %d, want 2", result.CacheInvalidated)
	}
	if _, ok := cache.GetQueryEmbedding(ctx, "q"); !ok {
		t.Error("embedding cache must survive reindex")
	}
}

// selectiveEmbedder fails only for a specific text, so one page breaks while
// others index fine.
type selectiveEmbedder struct {
	failOn string
}

func (e *selectiveEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for _, txt := range texts {
		if txt == e.failOn {
			return nil, errBoom
		}
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (e *selectiveEmbedder) Dims() int { return 3 }
