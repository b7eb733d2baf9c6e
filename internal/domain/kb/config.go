package kb

import "time"

// Config holds the retrieval and answer-generation tuning knobs.
type Config struct {
	// Retrieval
	DefaultTopK         int     `json:"default_top_k"`
	SearchScanLimit     int     `json:"search_scan_limit"`    // candidates pulled from the vector index per query
	SimilarityThreshold float64 `json:"similarity_threshold"` // cosine, [-1,1]
	LexicalThreshold    float64 `json:"lexical_threshold"`    // jaccard word overlap for the lexical fallback

	// Embedding
	EmbeddingBaseURL string `json:"embedding_base_url"`
	EmbeddingAPIKey  string `json:"embedding_api_key"`
	EmbeddingModel   string `json:"embedding_model"`
	EmbeddingDims    int    `json:"embedding_dims"`

	// Chunking
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`

	// Answer generation
	LLMProvider  string `json:"llm_provider"` // anthropic | openai | "" (fallback only)
	LLMModel     string `json:"llm_model"`
	LLMMaxTokens int    `json:"llm_max_tokens"`

	// Cache TTLs
	EmbeddingTTL time.Duration `json:"-"`
	SearchTTL    time.Duration `json:"-"`
	ResponseTTL  time.Duration `json:"-"`

	// Boundary timeouts for external calls
	EmbedTimeout time.Duration `json:"-"`
	LLMTimeout   time.Duration `json:"-"`
	CacheTimeout time.Duration `json:"-"`
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		DefaultTopK:         5,
		SearchScanLimit:     100,
		SimilarityThreshold: 0.5,
		LexicalThreshold:    0.1,
		EmbeddingModel:      "all-MiniLM-L6-v2",
		EmbeddingDims:       384,
		ChunkSize:           1000,
		ChunkOverlap:        200,
		LLMModel:            "claude-3-5-sonnet-20241022",
		LLMMaxTokens:        1000,
		EmbeddingTTL:        time.Hour,
		SearchTTL:           30 * time.Minute,
		ResponseTTL:         2 * time.Hour,
		EmbedTimeout:        10 * time.Second,
		LLMTimeout:          45 * time.Second,
		CacheTimeout:        2 * time.Second,
	}
}
