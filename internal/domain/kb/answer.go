package kb

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	applog "confluencekb/internal/platform/log"

	"confluencekb/internal/provider"
)

// User-visible outcomes for data absence. These are normal results, not errors.
const (
	msgNotIndexed = "No documents have been indexed yet. Please run the sync and train commands first."
	msgNoRelevant = "I couldn't find any relevant information in the documentation for your query."
	msgNoChunks   = "I couldn't find any relevant information in the documentation."
	contextChunks = 3
	snippetRunes  = 200
)

// Answerer builds a grounded prompt from retrieved chunks and asks the LLM,
// caching the result. With no LLM configured (or on call failure) it emits a
// deterministic templated answer instead.
type Answerer struct {
	cache  *QueryCache
	llm    provider.LLMProvider // nil when unconfigured
	config *Config
}

func NewAnswerer(cache *QueryCache, llm provider.LLMProvider, cfg *Config) *Answerer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Answerer{cache: cache, llm: llm, config: cfg}
}

// GenerateResponse always returns a string; LLM failure degrades to the
// deterministic fallback rather than propagating.
func (a *Answerer) GenerateResponse(ctx context.Context, query string, chunks []SimilarityResult) string {
	if len(chunks) == 0 {
		return msgNoChunks
	}

	top := chunks
	if len(top) > contextChunks {
		top = top[:contextChunks]
	}

	contextBlock := buildContext(top)
	contextHash := fmt.Sprintf("%x", sha256.Sum256([]byte(contextBlock)))

	if cached, ok := a.cache.GetAIResponse(ctx, query, contextHash); ok {
		applog.Debug("[KB] Response cache hit", "query", query)
		return cached
	}

	response, fromLLM := a.completeOrFallback(ctx, query, contextBlock, top)

	a.cache.SetAIResponse(ctx, query, contextHash, response)
	applog.Info("[KB] Response generated", "query", query, "llm", fromLLM)
	return response
}

func (a *Answerer) completeOrFallback(ctx context.Context, query, contextBlock string, top []SimilarityResult) (string, bool) {
	if a.llm == nil {
		applog.Info("[KB] No LLM configured, using fallback response")
		return fallbackResponse(top), false
	}

	llmCtx := ctx
	if a.config.LLMTimeout > 0 {
		var cancel context.CancelFunc
		llmCtx, cancel = context.WithTimeout(ctx, a.config.LLMTimeout)
		defer cancel()
	}

	resp, err := a.llm.Complete(llmCtx, &provider.CompletionRequest{
		Model:     a.config.LLMModel,
		MaxTokens: a.config.LLMMaxTokens,
		Messages: []provider.Message{
			{Role: "user", Content: buildPrompt(query, contextBlock)},
		},
	})
	if err != nil || resp == nil || strings.TrimSpace(resp.Content) == "" {
		applog.Warn("[KB] LLM call failed, using fallback response", "error", err)
		return fallbackResponse(top), false
	}
	return resp.Content, true
}

// buildContext renders "Source: <title>\n<text>" blocks joined by blank lines.
func buildContext(chunks []SimilarityResult) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		title := c.Metadata.PageTitle
		if title == "" {
			title = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("Source: %s\n%s", title, c.Text))
	}
	return strings.Join(parts, "\n\n")
}

func buildPrompt(query, contextBlock string) string {
	return fmt.Sprintf(`You are an AI assistant helping with questions about business rules and projects based on Confluence documentation.

Context from relevant documentation:
%s

User Question: %s

Please provide a comprehensive answer based on the provided context. If the context doesn't contain enough information to answer the question fully, please indicate what information is missing.`, contextBlock, query)
}

// fallbackResponse is reproducible and needs no network access: a numbered
// list of the top chunks plus their similarity scores.
func fallbackResponse(chunks []SimilarityResult) string {
	var sb strings.Builder
	sb.WriteString("Based on the documentation, here's what I found related to your question:\n\n")

	scores := make([]string, 0, len(chunks))
	for i, c := range chunks {
		title := c.Metadata.PageTitle
		if title == "" {
			title = "Unknown"
		}
		sb.WriteString(fmt.Sprintf("%d. From '%s':\n%s...\n\n", i+1, title, snippet(c.Text, snippetRunes)))
		scores = append(scores, fmt.Sprintf("%.2f", c.Similarity))
	}

	sb.WriteString(fmt.Sprintf("\nSimilarity scores: [%s]", strings.Join(scores, ", ")))
	return sb.String()
}

func snippet(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// ── Engine ───────────────────────────────────────────────────

// Engine ties retrieval and answer generation together behind one Query call.
type Engine struct {
	retriever *Retriever
	answerer  *Answerer
	store     ChunkStore
	cache     *QueryCache
	config    *Config
}

func NewEngine(retriever *Retriever, answerer *Answerer, store ChunkStore, cache *QueryCache, cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{
		retriever: retriever,
		answerer:  answerer,
		store:     store,
		cache:     cache,
		config:    cfg,
	}
}

// Cache exposes the query cache for stats commands.
func (e *Engine) Cache() *QueryCache {
	return e.cache
}

// Query answers a free-text question. It always returns a string: external
// failures degrade through fallbacks and never surface to the caller.
func (e *Engine) Query(ctx context.Context, question string) string {
	applog.Info("[KB] Processing query", "question", question)

	chunks, err := e.retriever.FindRelevantChunks(ctx, question, e.config.DefaultTopK)
	if err != nil {
		applog.Error("[KB] Retrieval failed", "error", err)
		chunks = nil
	}

	if len(chunks) == 0 {
		count, countErr := e.store.CountChunks(ctx)
		if countErr != nil {
			applog.Warn("[KB] Failed to count chunks", "error", countErr)
		}
		if count == 0 {
			return msgNotIndexed
		}
		return msgNoRelevant
	}

	response := e.answerer.GenerateResponse(ctx, question, chunks)

	// Audit log is best effort; a write failure never fails the query.
	entry := &QueryLogEntry{
		Query:          question,
		Response:       response,
		RelevanceScore: chunks[0].Similarity,
	}
	if err := e.store.InsertQueryLog(ctx, entry); err != nil {
		applog.Warn("[KB] Failed to write query log", "error", err)
	}

	return response
}
