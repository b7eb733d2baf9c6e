package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

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
		Output: os.Stderr,
	})

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		applog.Fatalf("Startup failed: %v", err)
	}
	defer app.Close()

	fmt.Println("Welcome to Confluence AI Knowledge Base!")
	fmt.Println("Type 'quit' to exit")
	fmt.Println("Type 'cache' to view cache statistics")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Ask a question: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		switch {
		case question == "":
			continue
		case strings.EqualFold(question, "quit"):
			fmt.Println("Goodbye!")
			return
		case strings.EqualFold(question, "cache"):
			printCacheStats(ctx, app)
			continue
		}

		answer := app.Engine.Query(ctx, question)
		fmt.Printf("\nAnswer: %s\n\n", answer)
	}
}

func printCacheStats(ctx context.Context, app *bootstrap.App) {
	stats := app.Cache.Stats()
	fmt.Println("\nCache Statistics:")
	fmt.Printf("  Hits: %d\n", stats.Hits)
	fmt.Printf("  Misses: %d\n", stats.Misses)
	fmt.Printf("  Hit Rate: %.2f%%\n", stats.HitRate*100)
	fmt.Printf("  Cache Sets: %d\n", stats.Sets)
	fmt.Printf("  Errors: %d\n", stats.Errors)
	fmt.Printf("  Cache Available: %v\n\n", app.Cache.Available(ctx))
}
