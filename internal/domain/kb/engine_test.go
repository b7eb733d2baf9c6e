package kb

import (
	"context"
	"strings"
	"testing"
)

func newTestEngine(store *fakeStore, searcher Searcher, llm *fakeLLM) *Engine {
	cfg := DefaultConfig()
	cache := NewQueryCache(newFakeCacheStore(), cfg)
	retriever := NewRetriever(cache, &fakeEmbedder{}, searcher, cfg)

	var answerer *Answerer
	if llm != nil {
		answerer = NewAnswerer(cache, llm, cfg)
	} else {
		answerer = NewAnswerer(cache, nil, cfg)
	}
	return NewEngine(retriever, answerer, store, cache, cfg)
}

func TestQueryEmptyCorpus(t *testing.T) {
	store := newFakeStore() // zero chunks
	engine := newTestEngine(store, &fakeSearcher{}, nil)

	got := engine.Query(context.Background(), "anything")
	if got != msgNotIndexed {
		t.Errorf("got %q, want %q", got, msgNotIndexed)
	}
}

func TestQueryNoRelevantChunks(t *testing.T) {
	store := newFakeStore()
	store.chunks = []Chunk{{ID: "c1", Text: "indexed but irrelevant"}}
	engine := newTestEngine(store, &fakeSearcher{}, nil)

	got := engine.Query(context.Background(), "anything")
	if got != msgNoRelevant {
		t.Errorf("got %q, want %q", got, msgNoRelevant)
	}
}

func TestQueryRetrievalFailureStillAnswers(t *testing.T) {
	store := newFakeStore() // empty corpus
	engine := newTestEngine(store, &fakeSearcher{err: errBoom}, nil)

	got := engine.Query(context.Background(), "anything")
	if got != msgNotIndexed {
		t.Errorf("got %q, want %q", got, msgNotIndexed)
	}
}

func TestQueryHappyPathWritesAuditLog(t *testing.T) {
	store := newFakeStore()
	store.chunks = []Chunk{{ID: "c1", Text: "some content"}}
	searcher := &fakeSearcher{results: []SimilarityResult{
		scoredChunk("c1", "Page", "some content", 0.87),
	}}
	llm := &fakeLLM{content: "the answer"}
	engine := newTestEngine(store, searcher, llm)

	got := engine.Query(context.Background(), "what is it")
	if got != "the answer" {
		t.Fatalf("got %q, want %q", got, "the answer")
	}

	if len(store.logs) != 1 {
		t.Fatalf("audit log entries = %d, want 1", len(store.logs))
	}
	entry := store.logs[0]
	if entry.Query != "what is it" || entry.Response != "the answer" {
		t.Errorf("unexpected log entry: %+v", entry)
	}
	if entry.RelevanceScore != 0.87 {
		t.Errorf("RelevanceScore = %v, want 0.87", entry.RelevanceScore)
	}
}

func TestQueryFallbackWithoutLLM(t *testing.T) {
	store := newFakeStore()
	store.chunks = []Chunk{{ID: "c1", Text: "x"}}
	searcher := &fakeSearcher{results: []SimilarityResult{
		scoredChunk("c1", "Page", "chunk body", 0.9),
	}}
	engine := newTestEngine(store, searcher, nil)

	got := engine.Query(context.Background(), "q")
	if !strings.HasPrefix(got, "Based on the documentation") {
		t.Errorf("expected fallback answer, got %q", got)
	}
}
