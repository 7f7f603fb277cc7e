package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"conflict-signal/internal/bus"
	"conflict-signal/internal/domain"
	"conflict-signal/internal/idhash"
	"conflict-signal/internal/observability"
	"conflict-signal/internal/storage"
)

// ErrProcessorRunning is returned by Start when the consumer is
// already active.
var ErrProcessorRunning = errors.New("processor already running")

// Processor consumes articles, extracts structured events with the
// LLM, persists them and publishes downstream. Terminal extraction
// failures mark the article failed; transient failures redeliver.
type Processor struct {
	llm       LLMClient
	articles  storage.ArticleStore
	events    storage.EventStore
	consumer  bus.Consumer
	publisher bus.Publisher
	breaker   *Breaker
	cache     *Cache
	logger    *log.Logger

	workers       int
	llmSem        chan struct{}
	retryAttempts int
	retryInitial  time.Duration
	retryMax      time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	now func() time.Time
}

// ProcessorOptions contains configuration for creating a Processor.
type ProcessorOptions struct {
	LLM       LLMClient
	Articles  storage.ArticleStore
	Events    storage.EventStore
	Consumer  bus.Consumer
	Publisher bus.Publisher
	Breaker   *Breaker
	Logger    *log.Logger

	// Workers is the consumer pool size. Default 5.
	Workers int

	// MaxConcurrentLLM bounds in-flight model calls. Default 5.
	MaxConcurrentLLM int

	// CacheSize bounds the extraction LRU. Default 100.
	CacheSize int

	// Retry policy for transient LLM failures. Defaults: 3 attempts,
	// 2s initial delay doubling up to 10s.
	RetryAttempts int
	RetryInitial  time.Duration
	RetryMax      time.Duration
}

// NewProcessor creates an extraction processor.
func NewProcessor(opts ProcessorOptions) *Processor {
	workers := opts.Workers
	if workers == 0 {
		workers = 5
	}
	maxLLM := opts.MaxConcurrentLLM
	if maxLLM == 0 {
		maxLLM = 5
	}
	retryAttempts := opts.RetryAttempts
	if retryAttempts == 0 {
		retryAttempts = 3
	}
	retryInitial := opts.RetryInitial
	if retryInitial == 0 {
		retryInitial = 2 * time.Second
	}
	retryMax := opts.RetryMax
	if retryMax == 0 {
		retryMax = 10 * time.Second
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = NewBreaker(BreakerOptions{})
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Processor{
		llm:           opts.LLM,
		articles:      opts.Articles,
		events:        opts.Events,
		consumer:      opts.Consumer,
		publisher:     opts.Publisher,
		breaker:       breaker,
		cache:         NewCache(opts.CacheSize),
		logger:        logger,
		workers:       workers,
		llmSem:        make(chan struct{}, maxLLM),
		retryAttempts: retryAttempts,
		retryInitial:  retryInitial,
		retryMax:      retryMax,
		now:           time.Now,
	}
}

// Start launches the background consumer pool. Workers share one
// consumer group so messages are load-balanced across them.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrProcessorRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	done := make(chan struct{})
	p.done = done

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.consumer.Consume(runCtx, bus.QueueArticles, "extraction", p.handleMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Printf("consumer stopped: %v", err)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	p.logger.Printf("processor started with %d workers", p.workers)
	return nil
}

// Stop cancels the consumer pool and waits for workers to drain.
func (p *Processor) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Println("processor stopped")
}

// Running reports whether the consumer pool is active.
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// handleMessage is the bus handler: a nil return acknowledges, an
// error redelivers with backoff.
func (p *Processor) handleMessage(ctx context.Context, msg *bus.Message) error {
	var article domain.Article
	if err := json.Unmarshal(msg.Body, &article); err != nil {
		p.logger.Printf("malformed article message %s dropped: %v", msg.ID, err)
		return nil
	}
	_, err := p.ProcessArticle(ctx, &article)
	return err
}

// Analyze synchronously drains up to limit pending articles through
// the extraction path. Returns processed and failed counts.
func (p *Processor) Analyze(ctx context.Context, limit int) (processed, failed int, err error) {
	if limit <= 0 {
		limit = 50
	}
	pending, err := p.articles.ListByStatus(ctx, domain.StatusPending, limit)
	if err != nil {
		return 0, 0, err
	}

	for _, a := range pending {
		event, err := p.ProcessArticle(ctx, a)
		switch {
		case err != nil:
			p.logger.Printf("analyze: article %s: %v", a.ID, err)
			failed++
		case event != nil:
			processed++
		default:
			failed++
		}
	}
	return processed, failed, nil
}

// ProcessArticle runs one article through extraction. Returns
// (event, nil) on success, (nil, nil) on a terminal validation
// failure, and (nil, err) on a transient failure to be retried.
func (p *Processor) ProcessArticle(ctx context.Context, article *domain.Article) (*domain.ParsedEvent, error) {
	// Redelivered articles are a no-op once an event exists.
	if existing, err := p.events.GetByArticleID(ctx, article.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	text := "Title: " + article.Title + "\n\nContent: " + article.Content

	extraction, hit, err := p.extract(ctx, article.ContentHash, text)
	if err != nil {
		if errors.Is(err, ErrInvalidResponse) {
			observability.RecordExtractionError("invalid_response")
			p.markFailed(ctx, article.ID, err)
			return nil, nil
		}
		observability.RecordExtractionError("transient")
		return nil, err
	}
	if hit {
		observability.RecordCacheHit()
		p.logger.Printf("cache hit for article %s", article.ID)
	}

	event := &domain.ParsedEvent{
		ArticleID:   article.ID,
		EventType:   domain.MapEventType(extraction.EventType),
		State:       normalizeLocation(extraction.State),
		LGA:         normalizeLocation(extraction.LGA),
		Severity:    domain.MapSeverity(extraction.Severity),
		SourceTitle: article.Title,
		SourceURL:   article.URL,
		Content:     article.Content,
		ParsedAt:    p.now().UTC(),
	}
	event.ID = idhash.ComputeEventID(article.ID, event.EventType, event.State, event.LGA)

	// Categorization confidence is best-effort; extraction stands alone.
	if cat, err := p.categorize(ctx, text); err == nil {
		conf := float64(cat.Confidence)
		event.Confidence = &conf
	}

	if err := p.events.Insert(ctx, event); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("persist event: %w", err)
		}
	}
	observability.RecordEventExtracted()

	if p.publisher != nil {
		if err := bus.PublishJSON(ctx, p.publisher, bus.QueueEvents, event); err != nil {
			return nil, fmt.Errorf("publish event: %w", err)
		}
	}

	if err := p.articles.UpdateStatus(ctx, article.ID, domain.StatusProcessed, nil); err != nil {
		p.logger.Printf("status update for %s failed: %v", article.ID, err)
	}
	return event, nil
}

// extract returns the cached extraction or calls the model behind the
// breaker and semaphore with retry.
func (p *Processor) extract(ctx context.Context, contentHash, text string) (*Extraction, bool, error) {
	if cached, ok := p.cache.Get(contentHash); ok {
		return cached, true, nil
	}

	if err := p.breaker.Allow(); err != nil {
		return nil, false, err
	}

	select {
	case p.llmSem <- struct{}{}:
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
	defer func() { <-p.llmSem }()

	extraction, err := p.callWithRetry(ctx, text)
	if err != nil {
		if !errors.Is(err, ErrInvalidResponse) {
			p.breaker.Failure()
			observability.SetCircuitBreakerOpen(p.breaker.Open())
		}
		return nil, false, err
	}
	p.breaker.Success()
	observability.SetCircuitBreakerOpen(false)
	p.cache.Put(contentHash, extraction)
	return extraction, false, nil
}

// callWithRetry retries transient model failures with exponential
// backoff. Validation failures are terminal and never retried.
func (p *Processor) callWithRetry(ctx context.Context, text string) (*Extraction, error) {
	delay := p.retryInitial
	var lastErr error
	for attempt := 1; attempt <= p.retryAttempts; attempt++ {
		callStart := p.now()
		extraction, err := p.llm.ExtractEvent(ctx, text)
		observability.RecordLLMCall(p.now().Sub(callStart).Seconds())
		if err == nil {
			return extraction, nil
		}
		if errors.Is(err, ErrInvalidResponse) {
			return nil, err
		}
		lastErr = err
		if attempt == p.retryAttempts {
			break
		}
		p.logger.Printf("llm attempt %d/%d failed, retrying in %v: %v", attempt, p.retryAttempts, delay, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > p.retryMax {
			delay = p.retryMax
		}
	}
	return nil, lastErr
}

// categorize runs the best-effort categorization call.
func (p *Processor) categorize(ctx context.Context, text string) (*Categorization, error) {
	if err := p.breaker.Allow(); err != nil {
		return nil, err
	}
	cat, err := p.llm.Categorize(ctx, text)
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// markFailed records a terminal extraction failure on the article.
func (p *Processor) markFailed(ctx context.Context, articleID string, cause error) {
	msg := cause.Error()
	if err := p.articles.UpdateStatus(ctx, articleID, domain.StatusFailed, &msg); err != nil {
		p.logger.Printf("failed-status update for %s: %v", articleID, err)
	}
	p.logger.Printf("article %s marked failed: %v", articleID, cause)
}

// normalizeLocation trims whitespace, mapping empty to "unknown".
func normalizeLocation(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "unknown"
	}
	return s
}
