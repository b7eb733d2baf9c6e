package kb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"confluencekb/internal/provider"
)

// fakeStore is an in-memory ChunkStore for tests.
type fakeStore struct {
	chunks  []Chunk
	nearest []NearestChunk
	pages   []Page
	logs    []QueryLogEntry

	searchNearestErr error
	listEmbeddedErr  error
	listChunksErr    error

	searchNearestCalls int
	listEmbeddedCalls  int
	listChunksCalls    int
	replaceCalls       map[string][]Chunk
}

func newFakeStore() *fakeStore {
	return &fakeStore{replaceCalls: map[string][]Chunk{}}
}

func (s *fakeStore) SearchNearest(ctx context.Context, vector []float32, limit int) ([]NearestChunk, error) {
	s.searchNearestCalls++
	if s.searchNearestErr != nil {
		return nil, s.searchNearestErr
	}
	if limit < len(s.nearest) {
		return s.nearest[:limit], nil
	}
	return s.nearest, nil
}

func (s *fakeStore) ListChunksWithEmbeddings(ctx context.Context, limit int) ([]Chunk, error) {
	s.listEmbeddedCalls++
	if s.listEmbeddedErr != nil {
		return nil, s.listEmbeddedErr
	}
	var out []Chunk
	for _, c := range s.chunks {
		if len(c.Embedding) > 0 {
			out = append(out, c)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) ListChunks(ctx context.Context, limit int) ([]Chunk, error) {
	s.listChunksCalls++
	if s.listChunksErr != nil {
		return nil, s.listChunksErr
	}
	if limit < len(s.chunks) {
		return s.chunks[:limit], nil
	}
	return s.chunks, nil
}

func (s *fakeStore) CountChunks(ctx context.Context) (int, error) {
	return len(s.chunks), nil
}

func (s *fakeStore) ReplaceChunks(ctx context.Context, pageID string, chunks []Chunk) error {
	s.replaceCalls[pageID] = chunks
	return nil
}

func (s *fakeStore) ListPages(ctx context.Context) ([]Page, error) {
	return s.pages, nil
}

func (s *fakeStore) UpsertPage(ctx context.Context, page *Page) error {
	s.pages = append(s.pages, *page)
	return nil
}

func (s *fakeStore) InsertQueryLog(ctx context.Context, entry *QueryLogEntry) error {
	s.logs = append(s.logs, *entry)
	return nil
}

// fakeCacheStore is an in-memory CacheStore. TTLs are recorded, not enforced.
type fakeCacheStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration

	gets int
	sets int
}

func newFakeCacheStore() *fakeCacheStore {
	return &fakeCacheStore{
		data: map[string][]byte{},
		ttls: map[string]time.Duration{},
	}
}

func (c *fakeCacheStore) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.data[key]
	return v, ok
}

func (c *fakeCacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = value
	c.ttls[key] = ttl
	return true
}

func (c *fakeCacheStore) Delete(ctx context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	delete(c.data, key)
	return ok
}

func (c *fakeCacheStore) DeleteByPrefix(ctx context.Context, prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	deleted := 0
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
			deleted++
		}
	}
	return deleted
}

func (c *fakeCacheStore) Available(ctx context.Context) bool { return true }

func (c *fakeCacheStore) Stats() CacheStats { return CacheStats{} }

func (c *fakeCacheStore) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.data))
	for k := range c.data {
		out = append(out, k)
	}
	return out
}

// fakeEmbedder returns a fixed vector per text and counts calls.
type fakeEmbedder struct {
	dims  int
	calls int
	err   error
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	dims := e.dims
	if dims == 0 {
		dims = 3
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, dims)
		for j := range vec {
			vec[j] = float32(len(texts[i])%7 + j)
		}
		out[i] = vec
	}
	return out, nil
}

func (e *fakeEmbedder) Dims() int {
	if e.dims == 0 {
		return 3
	}
	return e.dims
}

// fakeSearcher returns canned results and counts calls.
type fakeSearcher struct {
	results []SimilarityResult
	err     error
	calls   int
	lastReq SearchRequest
}

func (s *fakeSearcher) Search(ctx context.Context, req SearchRequest) ([]SimilarityResult, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

// fakeLLM is a canned LLMProvider.
type fakeLLM struct {
	content string
	err     error
	calls   int
}

func (l *fakeLLM) Name() string { return "fake" }

func (l *fakeLLM) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.CompletionResponse, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return &provider.CompletionResponse{Content: l.content, Model: req.Model}, nil
}

func scoredChunk(id string, title string, text string, score float64) SimilarityResult {
	return SimilarityResult{
		ChunkID:    id,
		Text:       text,
		Metadata:   ChunkMetadata{PageTitle: title},
		Similarity: score,
	}
}

var errBoom = fmt.Errorf("boom")
