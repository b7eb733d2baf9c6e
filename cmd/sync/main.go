package main

import (
	"context"
	"fmt"
	"os"

	"confluencekb/internal/app/bootstrap"
	"confluencekb/internal/confluence"
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

	if cfg.Confluence.URL == "" || cfg.Confluence.SpaceKey == "" {
		applog.Fatal("CONFLUENCE_URL and CONFLUENCE_SPACE_KEY are required")
	}

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		applog.Fatalf("Startup failed: %v", err)
	}
	defer app.Close()

	client := confluence.NewClient(confluence.Config{
		BaseURL:  cfg.Confluence.URL,
		Username: cfg.Confluence.Username,
		APIToken: cfg.Confluence.APIToken,
		SpaceKey: cfg.Confluence.SpaceKey,
	})

	syncer := confluence.NewSyncer(client, app.Store)
	result, err := syncer.Sync(ctx)
	if err != nil {
		applog.Fatalf("Sync failed: %v", err)
	}

	fmt.Printf("Synced %d pages and %d attachments (%d skipped)\n",
		result.Pages, result.Attachments, result.Skipped)
	fmt.Println("Run the train command to chunk and embed the new content.")
}
