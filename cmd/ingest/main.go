// Package main provides the standalone collection runner: scrape the
// configured news sources once (or on a cadence), dedup, persist and
// publish the surviving articles to the message bus.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conflict-signal/internal/artifact"
	"conflict-signal/internal/bus"
	busmemory "conflict-signal/internal/bus/memory"
	"conflict-signal/internal/bus/redisbus"
	"conflict-signal/internal/ingest"
	"conflict-signal/internal/observability"
	"conflict-signal/internal/storage"
	"conflict-signal/internal/storage/memory"
	"conflict-signal/internal/storage/migrations"
	pgstore "conflict-signal/internal/storage/postgres"
)

func main() {
	// Parse flags
	mode := flag.String("mode", "once", "Run mode: once or loop")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	redisURL := flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis URL for the message bus")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage and bus")
	sitesFile := flag.String("sites-config", "data/sources.json", "JSON file listing news sources to scrape")
	artifactDir := flag.String("artifact-dir", "artifacts", "Artifact directory for run logs and alerts")
	interval := flag.Duration("interval", 15*time.Minute, "Interval between runs in loop mode")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *redisURL == "") {
		logger.Fatal("--postgres-dsn and --redis-url are required (use --use-memory for in-memory mode)")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	job, cleanup, err := buildJob(ctx, logger, *postgresDSN, *redisURL, *sitesFile, *artifactDir, *useMemory)
	if err != nil {
		logger.Fatalf("Setup failed: %v", err)
	}
	defer cleanup()

	switch *mode {
	case "once":
		err = runOnce(ctx, logger, job, "manual")
	case "loop":
		err = runLoop(ctx, logger, job, *interval)
	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// buildJob wires the stores, bus, fetchers and artifact store into a
// collection job.
func buildJob(ctx context.Context, logger *log.Logger, postgresDSN, redisURL, sitesFile, artifactDir string, useMemory bool) (*ingest.Job, func(), error) {
	var articles storage.ArticleStore = memory.NewArticleStore()
	var mq bus.Bus = busmemory.New(busmemory.Options{Logger: logger})
	cleanup := func() { mq.Close() }

	if !useMemory {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		articles = pgstore.NewArticleStore(pool)

		rb, err := redisbus.New(redisURL, redisbus.Options{Logger: logger})
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		mq = rb
		cleanup = func() {
			rb.Close()
			pool.Close()
		}
	}

	artifacts, err := artifact.NewStore(artifactDir, artifact.Options{})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("create artifact store: %w", err)
	}

	data, err := os.ReadFile(sitesFile)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("read %s: %w", sitesFile, err)
	}
	var sites []ingest.SiteConfig
	if err := json.Unmarshal(data, &sites); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("parse %s: %w", sitesFile, err)
	}
	if len(sites) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("%s lists no sources", sitesFile)
	}

	fetchers := make([]ingest.Fetcher, 0, len(sites))
	for _, cfg := range sites {
		fetchers = append(fetchers, ingest.NewHTMLFetcher(cfg, ingest.HTMLFetcherOptions{}))
	}
	logger.Printf("Monitoring %d news sources", len(fetchers))

	job := ingest.NewJob(ingest.JobOptions{
		Fetchers:  fetchers,
		Articles:  articles,
		Publisher: mq,
		Artifacts: artifacts,
		Logger:    logger,
	})
	return job, cleanup, nil
}

// runOnce executes a single collection pass and prints the outcome.
func runOnce(ctx context.Context, logger *log.Logger, job *ingest.Job, trigger string) error {
	entry, err := job.Execute(ctx, trigger)
	if err != nil {
		return err
	}
	logger.Printf("Run %s: status=%s found=%d new=%d duplicates=%d high_risk=%d",
		entry.RunID, entry.Status, entry.Details.ArticlesFound, entry.Details.ArticlesNew,
		entry.Details.Duplicates, entry.Details.HighRiskCount)
	return nil
}

// runLoop executes collection passes on a fixed cadence until cancelled.
func runLoop(ctx context.Context, logger *log.Logger, job *ingest.Job, interval time.Duration) error {
	if err := runOnce(ctx, logger, job, "schedule"); err != nil {
		logger.Printf("Run failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := runOnce(ctx, logger, job, "schedule"); err != nil {
				logger.Printf("Run failed: %v", err)
			}
		}
	}
}
