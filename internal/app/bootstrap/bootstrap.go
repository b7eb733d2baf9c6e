package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"confluencekb/internal/db/postgres"
	redisdb "confluencekb/internal/db/redis"
	"confluencekb/internal/domain/kb"
	"confluencekb/internal/platform/config"
	applog "confluencekb/internal/platform/log"
	"confluencekb/internal/provider"
	"confluencekb/internal/provider/anthropic"
	"confluencekb/internal/provider/openai"
)

// App bundles the wired components every binary needs.
type App struct {
	DB      *sql.DB
	Store   *postgres.Store
	Cache   *kb.QueryCache
	Engine  *kb.Engine
	Indexer *kb.Indexer
	Config  *config.AppConfig
}

// New opens the database, connects the cache, registers LLM providers and
// wires the retrieval engine.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetimeSeconds) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	applog.Info("[Bootstrap] Connected to PostgreSQL")

	store := postgres.NewStore(db, cfg.KB.EmbeddingDims)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	var cacheStore kb.CacheStore
	if cfg.Redis.URL != "" {
		cacheStore = redisdb.Connect(ctx, cfg.Redis.URL)
	} else {
		applog.Warn("[Bootstrap] REDIS_URL not set, caching disabled")
		cacheStore = redisdb.NewCache(nil)
	}
	cache := kb.NewQueryCache(cacheStore, &cfg.KB)

	registerLLMProviders(cfg)

	embedder := kb.NewHTTPEmbedder(kb.HTTPEmbedderConfig{
		BaseURL: cfg.KB.EmbeddingBaseURL,
		APIKey:  cfg.KB.EmbeddingAPIKey,
		Model:   cfg.KB.EmbeddingModel,
		Dims:    cfg.KB.EmbeddingDims,
	})

	searcher := kb.NewChainSearcher().
		Append("index", kb.NewIndexSearcher(store, cfg.KB.SearchScanLimit)).
		Append("exact", kb.NewExactSearcher(store, cfg.KB.SearchScanLimit)).
		Append("lexical", kb.NewLexicalSearcher(store, cfg.KB.SearchScanLimit, cfg.KB.LexicalThreshold))

	retriever := kb.NewRetriever(cache, embedder, searcher, &cfg.KB)

	var llm provider.LLMProvider
	if cfg.KB.LLMProvider != "" {
		llm, err = provider.GetProvider(cfg.KB.LLMProvider)
		if err != nil {
			applog.Warn("[Bootstrap] LLM provider unavailable, answers will use fallback",
				"provider", cfg.KB.LLMProvider, "error", err)
			llm = nil
		}
	}
	answerer := kb.NewAnswerer(cache, llm, &cfg.KB)

	engine := kb.NewEngine(retriever, answerer, store, cache, &cfg.KB)

	indexer := kb.NewIndexer(store, embedder, &cfg.KB)
	indexer.SetCache(cache)

	return &App{
		DB:      db,
		Store:   store,
		Cache:   cache,
		Engine:  engine,
		Indexer: indexer,
		Config:  cfg,
	}, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

func registerLLMProviders(cfg *config.AppConfig) {
	if cfg.Anthropic.APIKey != "" {
		provider.RegisterProvider(anthropic.New(anthropic.Config{
			APIKey:  cfg.Anthropic.APIKey,
			BaseURL: cfg.Anthropic.BaseURL,
		}))
	}
	if cfg.OpenAI.APIKey != "" {
		provider.RegisterProvider(openai.New(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
		}))
	}
	if names := provider.ListProviders(); len(names) > 0 {
		applog.Info("[Bootstrap] LLM providers registered", "providers", names)
	} else {
		applog.Warn("[Bootstrap] No LLM API key set, AI responses will be limited")
	}
}
