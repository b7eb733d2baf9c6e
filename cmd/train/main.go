package main

import (
	"context"
	"fmt"
	"os"

	"confluencekb/internal/app/bootstrap"
	"confluencekb/internal/platform/config"
	applog "confluencekb/internal/platform/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load failed: %v\n", err)
		os.Exit(1)
	}

	applog.Init(applog.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		applog.Fatalf("Startup failed: %v", err)
	}
	defer app.Close()

	result, err := app.Indexer.Reindex(ctx)
	if err != nil {
		applog.Fatalf("Training failed: %v", err)
	}

	fmt.Printf("Indexed %d pages into %d chunks, invalidated %d cache entries\n",
		result.Pages, result.Chunks, result.CacheInvalidated)
}
