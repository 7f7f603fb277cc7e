// Package main provides the unified service that runs all pipeline
// stages together:
// - Ingestion (scheduled): scrape news sources, dedup, publish articles
// - Extraction (continuous): LLM event extraction from the articles queue
// - Scoring (continuous): multi-factor risk scoring from the events queue
// - Admin API: scheduler control, signal queries, simulation, websocket feed
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
	"strconv"
	"strings"
	"syscall"
	"time"

	"conflict-signal/internal/api"
	"conflict-signal/internal/artifact"
	"conflict-signal/internal/bus"
	busmemory "conflict-signal/internal/bus/memory"
	"conflict-signal/internal/bus/redisbus"
	"conflict-signal/internal/extract"
	"conflict-signal/internal/ingest"
	"conflict-signal/internal/predict"
	"conflict-signal/internal/refdata"
	"conflict-signal/internal/risk"
	"conflict-signal/internal/storage"
	chstore "conflict-signal/internal/storage/clickhouse"
	"conflict-signal/internal/storage/memory"
	"conflict-signal/internal/storage/migrations"
	pgstore "conflict-signal/internal/storage/postgres"
)

// allStores holds all storage implementations.
type allStores struct {
	articles  storage.ArticleStore
	events    storage.EventStore
	signals   storage.SignalStore
	economic  storage.EconomicStore
	strategic storage.StrategicStore
	series    storage.RiskTimeseriesStore

	pingDB func(context.Context) error
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8000"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	redisURL := flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis URL for the message bus")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage and bus instead of external services")
	dataDir := flag.String("data-dir", envOr("DATA_DIR", "data"), "Reference data directory")
	artifactDir := flag.String("artifact-dir", envOr("ARTIFACT_DIR", "artifacts"), "Artifact directory for run logs and alerts")
	sitesFile := flag.String("sites-config", envOr("SITES_CONFIG", "data/sources.json"), "JSON file listing news sources to scrape")
	schedule := flag.String("schedule", envOr("SCHEDULE", "*/15 * * * *"), "Collection cadence (cron, */N minute steps)")
	pollInterval := flag.Duration("poll-interval", envDuration("POLL_INTERVAL", 5*time.Minute), "Interval between pending-article reconciliation sweeps")
	llmURL := flag.String("llm-url", envOr("LLM_URL", "http://localhost:11434/api/generate"), "LLM generate endpoint")
	llmModel := flag.String("llm-model", envOr("LLM_MODEL", "llama3.2"), "LLM model name")
	llmTimeout := flag.Duration("llm-timeout", envSeconds("LLM_TIMEOUT_SECONDS", 30*time.Second), "Per-call LLM timeout")
	maxConcurrentLLM := flag.Int("max-concurrent-processing", envInt("MAX_CONCURRENT_PROCESSING", 5), "Maximum in-flight LLM calls")
	cbFailures := flag.Int("cb-failure-threshold", envInt("CB_FAILURE_THRESHOLD", 5), "Consecutive LLM failures before the circuit opens")
	cbRecovery := flag.Duration("cb-recovery", envSeconds("CB_RECOVERY_SECONDS", 30*time.Second), "How long the circuit stays open")
	highRiskThreshold := flag.Float64("high-risk-threshold", envFloat("HIGH_RISK_THRESHOLD", 85), "Pre-attached score above which articles alert")
	surgePercentage := flag.Float64("surge-percentage", envFloat("SURGE_PERCENTAGE", 20), "Score increase percent that counts as a surge")
	urbanFuelThreshold := flag.Float64("urban-fuel-threshold", envFloat("URBAN_FUEL_THRESHOLD", 80), "Simulation fuel index above which the urban multiplier fires")
	allowedOrigins := flag.String("allowed-origins", envOr("ALLOWED_ORIGINS", "http://localhost:3000"), "Comma-separated CORS origins")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log verbosity: info or debug")
	workers := flag.Int("workers", 5, "Consumer pool size per processor")

	flag.Parse()

	// Setup logger. Debug adds caller locations.
	logFlags := log.LstdFlags
	if *logLevel == "debug" {
		logFlags |= log.Lshortfile
	}
	logger := log.New(os.Stdout, "[server] ", logFlags)

	// Validate required flags
	if !*useMemory {
		if *postgresDSN == "" || *clickhouseDSN == "" {
			logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
		}
		if *redisURL == "" {
			logger.Fatal("--redis-url is required (use --use-memory for the in-memory bus)")
		}
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanupStores, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanupStores()

	// Create message bus
	mq, err := createBus(*redisURL, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create message bus: %v", err)
	}
	defer mq.Close()

	// Load reference data
	ref := refdata.Load(*dataDir, refdata.Options{Logger: logger})
	if len(ref.Missing) > 0 {
		logger.Printf("Reference data incomplete, missing: %v", ref.Missing)
	}
	seedEconomicData(ctx, stores.economic, ref, logger)
	syncStrategicData(ctx, stores.strategic, ref, logger)

	// Artifact store
	artifacts, err := artifact.NewStore(*artifactDir, artifact.Options{})
	if err != nil {
		logger.Fatalf("Failed to create artifact store: %v", err)
	}

	// Ingestion
	fetchers, err := createFetchers(*sitesFile)
	if err != nil {
		logger.Fatalf("Failed to load site configs: %v", err)
	}
	logger.Printf("Monitoring %d news sources", len(fetchers))

	job := ingest.NewJob(ingest.JobOptions{
		Fetchers:          fetchers,
		Articles:          stores.articles,
		Publisher:         mq,
		Artifacts:         artifacts,
		HighRiskThreshold: *highRiskThreshold,
		Logger:            log.New(os.Stdout, "[ingest] ", logFlags),
	})
	scheduler := ingest.NewScheduler(ingest.SchedulerOptions{
		Job:      job,
		Interval: scheduleInterval(*schedule, 15*time.Minute),
		Schedule: *schedule,
		Logger:   log.New(os.Stdout, "[scheduler] ", logFlags),
	})
	reconciler := ingest.NewReconciler(ingest.ReconcilerOptions{
		Articles:  stores.articles,
		Publisher: mq,
		Interval:  *pollInterval,
		Logger:    log.New(os.Stdout, "[reconcile] ", logFlags),
	})

	// Extraction
	llm := extract.NewOllamaClient(extract.OllamaOptions{
		URL:     *llmURL,
		Model:   *llmModel,
		Timeout: *llmTimeout,
		Logger:  log.New(os.Stdout, "[llm] ", logFlags),
	})
	extractor := extract.NewProcessor(extract.ProcessorOptions{
		LLM:      llm,
		Articles: stores.articles,
		Events:   stores.events,
		Breaker: extract.NewBreaker(extract.BreakerOptions{
			FailureThreshold: *cbFailures,
			Recovery:         *cbRecovery,
		}),
		Consumer:         mq,
		Publisher:        mq,
		Workers:          *workers,
		MaxConcurrentLLM: *maxConcurrentLLM,
		Logger:           log.New(os.Stdout, "[extract] ", logFlags),
	})

	// Scoring
	surge := risk.NewSurgeTracker(*surgePercentage)
	engine := risk.NewEngine(risk.EngineOptions{
		Reference:          ref,
		Surge:              surge,
		UrbanFuelThreshold: *urbanFuelThreshold,
		Logger:             log.New(os.Stdout, "[risk] ", logFlags),
	})
	hub := api.NewHub(log.New(os.Stdout, "[ws] ", logFlags))
	predictor := predict.NewProcessor(predict.ProcessorOptions{
		Engine:    engine,
		Surge:     surge,
		Events:    stores.events,
		Signals:   stores.signals,
		Economic:  stores.economic,
		Series:    stores.series,
		Consumer:  mq,
		Publisher: mq,
		Broadcast: hub.Broadcast,
		Workers:   *workers,
		Logger:    log.New(os.Stdout, "[predict] ", logFlags),
	})
	if err := predictor.WarmStart(ctx, 0); err != nil {
		logger.Printf("Surge warm start failed: %v", err)
	}

	// Admin API
	server := api.NewServer(api.Options{
		Articles:       stores.articles,
		Events:         stores.events,
		Signals:        stores.signals,
		Economic:       stores.economic,
		Series:         stores.series,
		Scheduler:      scheduler,
		Extractor:      extractor,
		Predictor:      predictor,
		Artifacts:      artifacts,
		Reference:      ref,
		Bus:            mq,
		Hub:            hub,
		PingDB:         stores.pingDB,
		BaseCtx:        ctx,
		AllowedOrigins: splitList(*allowedOrigins),
		Logger:         logger,
	})

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
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

	err = run(ctx, runOptions{
		listenAddr: *listenAddr,
		scheduler:  scheduler,
		reconciler: reconciler,
		extractor:  extractor,
		predictor:  predictor,
		hub:        hub,
		handler:    server.Handler(),
		logger:     logger,
	})
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

type runOptions struct {
	listenAddr string
	scheduler  *ingest.Scheduler
	reconciler *ingest.Reconciler
	extractor  *extract.Processor
	predictor  *predict.Processor
	hub        *api.Hub
	handler    http.Handler
	logger     *log.Logger
}

// run starts every component and blocks until ctx is cancelled or a
// component fails.
func run(ctx context.Context, o runOptions) error {
	o.logger.Println("Starting unified server...")

	errCh := make(chan error, 4)

	// Scheduled collection
	go func() {
		if err := o.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("scheduler: %w", err)
		}
	}()

	// Pending-article reconciliation sweep
	go func() {
		if err := o.reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("reconciler: %w", err)
		}
	}()

	// Continuous processors
	if err := o.extractor.Start(ctx); err != nil {
		return fmt.Errorf("start extractor: %w", err)
	}
	defer o.extractor.Stop()

	if err := o.predictor.Start(ctx); err != nil {
		return fmt.Errorf("start predictor: %w", err)
	}
	defer o.predictor.Stop()

	// Websocket hub lifecycle
	go o.hub.Run(ctx)

	// HTTP server
	httpSrv := &http.Server{Addr: o.listenAddr, Handler: o.handler}
	go func() {
		o.logger.Printf("HTTP server listening on %s", o.listenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			o.logger.Printf("HTTP shutdown: %v", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// createStores creates all required stores and applies migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			articles:  memory.NewArticleStore(),
			events:    memory.NewEventStore(),
			signals:   memory.NewSignalStore(),
			economic:  memory.NewEconomicStore(),
			strategic: memory.NewStrategicStore(),
			series:    memory.NewRiskTimeseriesStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL (documents)
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse (analytics)
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		articles:  pgstore.NewArticleStore(pool),
		events:    pgstore.NewEventStore(pool),
		signals:   pgstore.NewSignalStore(pool),
		economic:  pgstore.NewEconomicStore(pool),
		strategic: pgstore.NewStrategicStore(pool),
		series:    chstore.NewRiskTimeseriesStore(chConn),
		pingDB:    pool.Ping,
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// createBus connects the Redis Streams bus, or the in-memory bus for
// single-process deployments.
func createBus(redisURL string, useMemory bool, logger *log.Logger) (bus.Bus, error) {
	if useMemory {
		return busmemory.New(busmemory.Options{Logger: logger}), nil
	}
	return redisbus.New(redisURL, redisbus.Options{Logger: logger})
}

// createFetchers loads site configs and builds one fetcher per source.
func createFetchers(path string) ([]ingest.Fetcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var sites []ingest.SiteConfig
	if err := json.Unmarshal(data, &sites); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("%s lists no sources", path)
	}

	fetchers := make([]ingest.Fetcher, 0, len(sites))
	for _, cfg := range sites {
		fetchers = append(fetchers, ingest.NewHTMLFetcher(cfg, ingest.HTMLFetcherOptions{}))
	}
	return fetchers, nil
}

// seedEconomicData upserts the reference economic rows so scoring has
// context before the first manual initialization.
func seedEconomicData(ctx context.Context, store storage.EconomicStore, ref *refdata.Set, logger *log.Logger) {
	loaded := 0
	for i := range ref.Economic {
		if err := store.Upsert(ctx, &ref.Economic[i]); err != nil {
			logger.Printf("seed economic row %s/%s: %v", ref.Economic[i].State, ref.Economic[i].LGA, err)
			continue
		}
		loaded++
	}
	if loaded > 0 {
		logger.Printf("Seeded %d economic records from reference data", loaded)
	}
}

// syncStrategicData persists the reference indicator rows, then folds
// every stored row back into the reference set so state indicators
// edited in the document store survive restarts and reach the scoring
// engine.
func syncStrategicData(ctx context.Context, store storage.StrategicStore, ref *refdata.Set, logger *log.Logger) {
	for _, ind := range ref.Strategic {
		ind := ind
		if err := store.Upsert(ctx, &ind); err != nil {
			logger.Printf("persist strategic row %s: %v", ind.State, err)
		}
	}

	rows, err := store.GetAll(ctx)
	if err != nil {
		logger.Printf("read strategic indicators: %v", err)
		return
	}
	for _, ind := range rows {
		ref.Strategic[strings.ToLower(ind.State)] = *ind
	}
}

// splitList splits a comma-separated flag value.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envOr returns the environment value or a default.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt parses an integer environment value or returns a default.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// envFloat parses a float environment value or returns a default.
func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// envSeconds parses a whole-seconds environment value or returns a default.
func envSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

// envDuration parses a Go duration environment value or returns a default.
func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// scheduleInterval derives the tick interval from a minute-step cron
// expression of the form "*/N * * * *". Other expressions keep the
// fallback cadence and are reported verbatim by scheduler status.
func scheduleInterval(schedule string, fallback time.Duration) time.Duration {
	fields := strings.Fields(schedule)
	if len(fields) != 5 || !strings.HasPrefix(fields[0], "*/") {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimPrefix(fields[0], "*/"))
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Minute
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
