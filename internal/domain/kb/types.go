package kb

import "time"

// Page is a synced Confluence page.
type Page struct {
	ID           string    `json:"id"`
	PageID       string    `json:"page_id"` // Confluence content id, unique
	Title        string    `json:"title"`
	SpaceKey     string    `json:"space_key"`
	Content      string    `json:"content"`
	URL          string    `json:"url"`
	LastModified time.Time `json:"last_modified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChunkMetadata travels with every chunk so results can cite their source.
type ChunkMetadata struct {
	PageTitle string `json:"page_title"`
	SpaceKey  string `json:"space_key"`
	URL       string `json:"url"`
}

// Chunk is the unit of embedding and retrieval. Embedding is nil until the
// training pipeline has run; Index is dense from 0 within a page.
type Chunk struct {
	ID        string        `json:"id"`
	PageID    string        `json:"page_id"`
	Text      string        `json:"text"`
	Index     int           `json:"index"`
	Embedding []float32     `json:"embedding,omitempty"`
	Metadata  ChunkMetadata `json:"metadata"`
	CreatedAt time.Time     `json:"created_at"`
}

// SimilarityResult is a per-query scored chunk. It is never persisted and
// never mutated after creation. Similarity is cosine similarity in [-1,1];
// distance-based backends convert before crossing this boundary.
type SimilarityResult struct {
	ChunkID    string        `json:"chunk_id"`
	Text       string        `json:"text"`
	Metadata   ChunkMetadata `json:"metadata"`
	Similarity float64       `json:"similarity"`
}

// QueryLogEntry is the append-only audit record written after each query.
type QueryLogEntry struct {
	Query          string
	Response       string
	RelevanceScore float64
}

// CacheStats mirrors the cache store counters.
type CacheStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Sets      int64   `json:"sets"`
	Errors    int64   `json:"errors"`
	HitRate   float64 `json:"hit_rate"`
	Available bool    `json:"available"`
}
