package main

import (
	"context"

	"github.com/corpintel/edgargraph/internal/edgar"
	"github.com/corpintel/edgargraph/internal/graph"
	"github.com/corpintel/edgargraph/internal/llm"
	"github.com/corpintel/edgargraph/internal/pipeline"
	"github.com/corpintel/edgargraph/internal/resolve"
	"github.com/corpintel/edgargraph/internal/review"
)

// app bundles the wired-up pipeline components a command needs.
type app struct {
	store        *graph.Neo4jStore
	fetcher      *edgar.Client
	queue        *review.Queue
	queries      *graph.Queries
	linker       *resolve.Linker
	loader       *graph.Loader
	orchestrator *pipeline.Orchestrator
}

// newApp connects to Neo4j and builds the full ingestion stack from the
// loaded configuration.
func newApp(ctx context.Context) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fetcher, err := edgar.NewClient(cfg.Edgar.UserAgent, cfg.Edgar.RequestsPerSecond, cfg.Edgar.Timeout)
	if err != nil {
		return nil, err
	}

	store, err := graph.NewNeo4jStore(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return nil, err
	}

	queue, err := review.Open(cfg.Review.DBPath)
	if err != nil {
		store.Close(ctx)
		return nil, err
	}

	var limiter *llm.RateLimiter
	if cfg.Redis.Addr != "" {
		limiter, err = llm.NewRateLimiter(cfg.Redis.Addr)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, LLM rate limiting disabled")
		}
	}
	llmClient := llm.NewClient(cfg, limiter)

	router := review.NewRouter(cfg.Review.Thresholds, cfg.Review.DefaultThreshold, queue)
	linker := resolve.NewLinker(graph.NewDirectory(store))
	loader := graph.NewLoader(store)

	return &app{
		store:        store,
		fetcher:      fetcher,
		queue:        queue,
		queries:      graph.NewQueries(store),
		linker:       linker,
		loader:       loader,
		orchestrator: pipeline.NewOrchestrator(fetcher, router, linker, loader, llmClient, logger),
	}, nil
}

func (a *app) Close(ctx context.Context) {
	a.queue.Close()
	a.store.Close(ctx)
}
