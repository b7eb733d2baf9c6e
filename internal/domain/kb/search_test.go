package kb

import (
	"context"
	"testing"
)

func TestIndexSearcherConvertsDistanceAndFilters(t *testing.T) {
	store := newFakeStore()
	store.nearest = []NearestChunk{
		{Chunk: Chunk{ID: "a", Text: "close"}, Distance: 0.1},
		{Chunk: Chunk{ID: "b", Text: "mid"}, Distance: 0.4},
		{Chunk: Chunk{ID: "c", Text: "far"}, Distance: 0.8},
	}

	s := NewIndexSearcher(store, 100)
	results, err := s.Search(context.Background(), SearchRequest{
		Vector:    []float32{1, 0, 0},
		Limit:     5,
		Threshold: 0.5,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ChunkID != "a" || results[1].ChunkID != "b" {
		t.Errorf("unexpected order: %q, %q", results[0].ChunkID, results[1].ChunkID)
	}
	if results[0].Similarity != 0.9 {
		t.Errorf("Similarity = %v, want 0.9", results[0].Similarity)
	}
}

func TestIndexSearcherHonorsLimit(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 10; i++ {
		store.nearest = append(store.nearest, NearestChunk{
			Chunk:    Chunk{ID: string(rune('a' + i))},
			Distance: 0.1,
		})
	}

	s := NewIndexSearcher(store, 100)
	results, err := s.Search(context.Background(), SearchRequest{
		Vector: []float32{1},
		Limit:  3,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
}

func TestIndexSearcherRequiresVector(t *testing.T) {
	s := NewIndexSearcher(newFakeStore(), 100)
	if _, err := s.Search(context.Background(), SearchRequest{Query: "q", Limit: 5}); err == nil {
		t.Fatal("expected error for missing vector")
	}
}

func TestExactSearcherRanksByCosine(t *testing.T) {
	store := newFakeStore()
	store.chunks = []Chunk{
		{ID: "ortho", Text: "orthogonal", Embedding: []float32{0, 1, 0}},
		{ID: "exact", Text: "exact match", Embedding: []float32{1, 0, 0}},
		{ID: "near", Text: "nearby", Embedding: []float32{1, 0.2, 0}},
		{ID: "unembedded", Text: "no vector yet"},
	}

	s := NewExactSearcher(store, 100)
	results, err := s.Search(context.Background(), SearchRequest{
		Vector:    []float32{1, 0, 0},
		Limit:     5,
		Threshold: 0.5,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ChunkID != "exact" {
		t.Errorf("top result = %q, want %q", results[0].ChunkID, "exact")
	}
	if results[1].ChunkID != "near" {
		t.Errorf("second result = %q, want %q", results[1].ChunkID, "near")
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("results not sorted by non-increasing similarity")
	}
}

func TestLexicalSearcherScoresByOverlap(t *testing.T) {
	store := newFakeStore()
	store.chunks = []Chunk{
		{ID: "hit", Text: "deployment pipeline setup"},
		{ID: "miss", Text: "unrelated content entirely here now"},
	}

	s := NewLexicalSearcher(store, 100, 0.1)
	results, err := s.Search(context.Background(), SearchRequest{
		Query: "deployment pipeline",
		Limit: 5,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ChunkID != "hit" {
		t.Errorf("result = %q, want %q", results[0].ChunkID, "hit")
	}
	if results[0].Similarity <= 0.1 {
		t.Errorf("Similarity = %v, want > 0.1", results[0].Similarity)
	}
}

func TestChainSearcherFallsThroughOnError(t *testing.T) {
	want := []SimilarityResult{scoredChunk("x", "Page", "text", 0.9)}
	broken := &fakeSearcher{err: errBoom}
	working := &fakeSearcher{results: want}

	chain := NewChainSearcher().
		Append("index", broken).
		Append("exact", working)

	results, err := chain.Search(context.Background(), SearchRequest{Vector: []float32{1}, Limit: 5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "x" {
		t.Errorf("unexpected results: %+v", results)
	}
	if broken.calls != 1 || working.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", broken.calls, working.calls)
	}
}

func TestChainSearcherStopsAtFirstSuccess(t *testing.T) {
	first := &fakeSearcher{results: nil} // empty but successful
	second := &fakeSearcher{results: []SimilarityResult{scoredChunk("x", "", "", 1)}}

	chain := NewChainSearcher().
		Append("index", first).
		Append("exact", second)

	results, err := chain.Search(context.Background(), SearchRequest{Vector: []float32{1}})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0 (empty success must not fall through)", len(results))
	}
	if second.calls != 0 {
		t.Errorf("second tier called %d times, want 0", second.calls)
	}
}

func TestChainSearcherAllTiersFail(t *testing.T) {
	chain := NewChainSearcher().
		Append("index", &fakeSearcher{err: errBoom}).
		Append("exact", &fakeSearcher{err: errBoom})

	if _, err := chain.Search(context.Background(), SearchRequest{Vector: []float32{1}}); err == nil {
		t.Fatal("expected error when every tier fails")
	}
}

func TestChainSearcherEmpty(t *testing.T) {
	if _, err := NewChainSearcher().Search(context.Background(), SearchRequest{}); err == nil {
		t.Fatal("expected error for empty chain")
	}
}
