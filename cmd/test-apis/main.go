package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gamepulse/sentiment-bot/internal/cache"
	"github.com/gamepulse/sentiment-bot/internal/collector"
	"github.com/gamepulse/sentiment-bot/internal/config"
	"github.com/gamepulse/sentiment-bot/internal/discovery"
	"github.com/gamepulse/sentiment-bot/internal/monitoring"
	"github.com/joho/godotenv"
)

func main() {
	subject := flag.String("subject", "Elden Ring", "subject to discover communities for")
	source := flag.String("source", "", "community to collect from (defaults to the top discovery result)")
	flag.Parse()

	fmt.Println("Community Sentiment Bot - Source Connectivity Test")
	fmt.Println(strings.Repeat("=", 50))

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	memory := cache.NewMemory(cfg.CacheTTL)
	defer memory.Stop()

	lister := monitoring.NewLister(cfg)
	fmt.Printf("\nContent source: %s\n", lister.GetName())
	fmt.Println(strings.Repeat("-", 50))

	fmt.Printf("Discovering communities for %q... ", *subject)
	scorer := discovery.NewScorer(lister, memory, discovery.Options{SampleCandidates: cfg.DiscoverySampleCandidates})
	candidates, err := scorer.Discover(ctx, *subject, discovery.DefaultResults)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		return
	}
	fmt.Printf("OK (%d candidates)\n", len(candidates))
	for i, c := range candidates {
		fmt.Printf("   %d. r/%-25s score %.2f  %s\n", i+1, c.Identifier, c.Score, c.Reason)
	}

	target := *source
	if target == "" {
		if len(candidates) == 0 {
			fmt.Println("\nNo community to collect from. Pass -source to pick one.")
			return
		}
		target = candidates[0].Identifier
	}

	fmt.Printf("\nCollecting from r/%s... ", target)
	coll := collector.New(lister, memory, collector.DefaultOptions())
	corpus := coll.Collect(ctx, target, "", collector.Limits{})
	if corpus.IsEmpty() {
		fmt.Printf("EMPTY %v\n", corpus.Warnings)
		return
	}
	fmt.Printf("OK (%d posts, %d comments)\n", len(corpus.Posts), len(corpus.Comments))
	fmt.Printf("   Sample: %q\n   %s\n", corpus.Posts[0].Title, corpus.Posts[0].Permalink)
	for _, warning := range corpus.Warnings {
		fmt.Printf("   Warning: %s\n", warning)
	}

	fmt.Println("\nConnectivity test completed")
}
