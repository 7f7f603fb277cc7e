package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"conflict-signal/internal/artifact"
	"conflict-signal/internal/bus"
	"conflict-signal/internal/domain"
	"conflict-signal/internal/idhash"
	"conflict-signal/internal/observability"
	"conflict-signal/internal/storage"
)

// Job runs one full collection pass: fetch every source, push the
// results through the dedup gate, persist survivors and publish them
// downstream, then record the run in the artifact store.
type Job struct {
	fetchers  []Fetcher
	articles  storage.ArticleStore
	publisher bus.Publisher
	artifacts *artifact.Store
	logger    *log.Logger

	concurrency       int
	retryInitial      time.Duration
	retryMax          time.Duration
	retryAttempts     int
	highRiskThreshold float64
	dedupWindow       time.Duration

	now func() time.Time
}

// JobOptions contains configuration for creating a Job.
type JobOptions struct {
	Fetchers  []Fetcher
	Articles  storage.ArticleStore
	Publisher bus.Publisher
	Artifacts *artifact.Store
	Logger    *log.Logger

	// Concurrency bounds parallel fetcher calls. Default 10.
	Concurrency int

	// RetryInitial is the first backoff delay for a failed fetch.
	// Default 2s, doubling up to RetryMax (default 10s).
	RetryInitial time.Duration
	RetryMax     time.Duration

	// RetryAttempts is the total number of tries per fetcher. Default 3.
	RetryAttempts int

	// HighRiskThreshold is the pre-attached score above which articles
	// are grouped into an alert. Default 85.
	HighRiskThreshold float64

	// DedupWindow is how far back a content-hash collision under a
	// different URL still counts as a duplicate. Default 24h.
	DedupWindow time.Duration
}

// NewJob creates a collection job.
func NewJob(opts JobOptions) *Job {
	concurrency := opts.Concurrency
	if concurrency == 0 {
		concurrency = 10
	}
	retryInitial := opts.RetryInitial
	if retryInitial == 0 {
		retryInitial = 2 * time.Second
	}
	retryMax := opts.RetryMax
	if retryMax == 0 {
		retryMax = 10 * time.Second
	}
	retryAttempts := opts.RetryAttempts
	if retryAttempts == 0 {
		retryAttempts = 3
	}
	threshold := opts.HighRiskThreshold
	if threshold == 0 {
		threshold = 85
	}
	window := opts.DedupWindow
	if window == 0 {
		window = 24 * time.Hour
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Job{
		fetchers:          opts.Fetchers,
		articles:          opts.Articles,
		publisher:         opts.Publisher,
		artifacts:         opts.Artifacts,
		logger:            logger,
		concurrency:       concurrency,
		retryInitial:      retryInitial,
		retryMax:          retryMax,
		retryAttempts:     retryAttempts,
		highRiskThreshold: threshold,
		dedupWindow:       window,
		now:               time.Now,
	}
}

// sourceResult is the outcome of one fetcher including retries.
type sourceResult struct {
	name     string
	articles []RawArticle
	err      error
}

// Execute runs one collection pass. trigger is "schedule" or "manual".
// The returned log entry has already been appended to the artifact store.
func (j *Job) Execute(ctx context.Context, trigger string) (*domain.AutomationLog, error) {
	started := j.now()
	runID := uuid.NewString()
	j.logger.Printf("run %s started (trigger=%s, sources=%d)", runID, trigger, len(j.fetchers))

	results := j.fetchAll(ctx)

	details := domain.RunDetails{SourcesAttempted: len(j.fetchers)}
	var highRisk []RawArticle
	for _, res := range results {
		if res.err != nil {
			details.Errors = append(details.Errors, fmt.Sprintf("%s: %v", res.name, res.err))
			observability.RecordFetcherError(res.name)
			continue
		}
		details.SourcesSucceeded++
		details.ArticlesFound += len(res.articles)

		for _, raw := range res.articles {
			observability.RecordArticleScraped()
			outcome, err := j.admit(ctx, raw)
			if err != nil {
				details.Errors = append(details.Errors, fmt.Sprintf("%s: persist %s: %v", res.name, raw.URL, err))
				continue
			}
			switch outcome {
			case admitted:
				details.ArticlesNew++
				observability.RecordArticleNew()
				if raw.RiskScore != nil && *raw.RiskScore > j.highRiskThreshold {
					highRisk = append(highRisk, raw)
				}
			case duplicate:
				details.Duplicates++
				observability.RecordArticleDuplicate()
			}
		}
	}
	details.HighRiskCount = len(highRisk)

	if len(highRisk) > 0 {
		if err := j.appendAlert(runID, highRisk); err != nil {
			details.Errors = append(details.Errors, fmt.Sprintf("high-risk alert: %v", err))
		} else {
			observability.RecordHighRiskAlert()
		}
	}

	entry := &domain.AutomationLog{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: j.now(),
		Status:     runStatus(details),
		Trigger:    trigger,
		Details:    details,
	}
	if j.artifacts != nil {
		if err := j.artifacts.AppendAutomationLog(*entry); err != nil {
			j.logger.Printf("run %s: automation log write failed: %v", runID, err)
		}
	}
	observability.RecordCollectionRun(string(entry.Status), entry.FinishedAt.Sub(started).Seconds())

	j.logger.Printf("run %s finished: status=%s found=%d new=%d duplicates=%d high_risk=%d errors=%d",
		runID, entry.Status, details.ArticlesFound, details.ArticlesNew,
		details.Duplicates, details.HighRiskCount, len(details.Errors))
	return entry, nil
}

// fetchAll calls every fetcher concurrently behind the semaphore.
func (j *Job) fetchAll(ctx context.Context) []sourceResult {
	results := make([]sourceResult, len(j.fetchers))
	sem := make(chan struct{}, j.concurrency)

	var wg sync.WaitGroup
	for i, f := range j.fetchers {
		wg.Add(1)
		go func(i int, f Fetcher) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			articles, err := j.fetchWithRetry(ctx, f)
			results[i] = sourceResult{name: f.Name(), articles: articles, err: err}
		}(i, f)
	}
	wg.Wait()
	return results
}

// fetchWithRetry retries transient fetch failures with exponential backoff.
func (j *Job) fetchWithRetry(ctx context.Context, f Fetcher) ([]RawArticle, error) {
	delay := j.retryInitial
	var lastErr error
	for attempt := 1; attempt <= j.retryAttempts; attempt++ {
		articles, err := f.Fetch(ctx)
		if err == nil {
			return articles, nil
		}
		lastErr = err
		if attempt == j.retryAttempts {
			break
		}
		j.logger.Printf("fetch %s attempt %d/%d failed, retrying in %v: %v",
			f.Name(), attempt, j.retryAttempts, delay, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > j.retryMax {
			delay = j.retryMax
		}
	}
	return nil, lastErr
}

type admitOutcome int

const (
	admitted admitOutcome = iota
	duplicate
)

// admit pushes one raw article through the dedup gate. A URL collision
// drops it outright; a content-hash collision under a different URL
// within the window drops it and credits the surviving article with
// another confirming source.
func (j *Job) admit(ctx context.Context, raw RawArticle) (admitOutcome, error) {
	scrapedAt := j.now().UTC()
	hash := idhash.ComputeContentHash(raw.Title, raw.Content)

	prior, err := j.articles.GetByContentHashSince(ctx, hash, scrapedAt.Add(-j.dedupWindow))
	if err != nil {
		return 0, err
	}
	for _, p := range prior {
		if p.URL == raw.URL {
			continue
		}
		j.confirmSource(ctx, prior)
		return duplicate, nil
	}

	a := &domain.Article{
		ID:          idhash.ComputeArticleID(raw.URL),
		URL:         raw.URL,
		Title:       raw.Title,
		Content:     raw.Content,
		Source:      raw.Source,
		ScrapedAt:   scrapedAt,
		ContentHash: hash,
		Status:      domain.StatusPending,
		RiskScore:   raw.RiskScore,
		SourceCount: 1,
	}
	if err := j.articles.Insert(ctx, a); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return duplicate, nil
		}
		return 0, err
	}

	if err := j.publish(ctx, a); err != nil {
		// The article stays pending; the reconciliation sweep republishes it.
		j.logger.Printf("publish %s failed, leaving for reconciliation: %v", a.ID, err)
	}
	return admitted, nil
}

// confirmSource bumps the veracity of the earliest article in a
// duplicate group. More independent sources mean higher confidence,
// saturating at 1.0.
func (j *Job) confirmSource(ctx context.Context, group []*domain.Article) {
	if len(group) == 0 {
		return
	}
	survivor := group[0]
	count := survivor.SourceCount + 1
	veracity := 0.5 * float64(count)
	if veracity > 1.0 {
		veracity = 1.0
	}
	if err := j.articles.UpdateVeracity(ctx, survivor.ID, veracity, count); err != nil {
		j.logger.Printf("veracity update for %s failed: %v", survivor.ID, err)
	}
}

// publish sends the article downstream, retrying once on failure.
func (j *Job) publish(ctx context.Context, a *domain.Article) error {
	if j.publisher == nil {
		return nil
	}
	err := bus.PublishJSON(ctx, j.publisher, bus.QueueArticles, a)
	if err == nil {
		return nil
	}
	return bus.PublishJSON(ctx, j.publisher, bus.QueueArticles, a)
}

// appendAlert records the run's high-risk articles, keeping the top
// five by score.
func (j *Job) appendAlert(runID string, highRisk []RawArticle) error {
	if j.artifacts == nil {
		return nil
	}
	sort.SliceStable(highRisk, func(a, b int) bool {
		return *highRisk[a].RiskScore > *highRisk[b].RiskScore
	})

	top := highRisk
	if len(top) > 5 {
		top = top[:5]
	}
	articles := make([]domain.AlertArticle, 0, len(top))
	for _, raw := range top {
		articles = append(articles, domain.AlertArticle{
			Title:     raw.Title,
			URL:       raw.URL,
			Source:    raw.Source,
			RiskScore: raw.RiskScore,
		})
	}

	return j.artifacts.AppendHighRiskAlert(domain.HighRiskAlert{
		RunID:     runID,
		CreatedAt: j.now(),
		Threshold: j.highRiskThreshold,
		Count:     len(highRisk),
		Articles:  articles,
	})
}

// runStatus collapses the run counters into a terminal status.
func runStatus(d domain.RunDetails) domain.RunStatus {
	switch {
	case len(d.Errors) == 0:
		return domain.RunSuccess
	case d.SourcesSucceeded > 0 || d.ArticlesNew > 0:
		return domain.RunPartial
	default:
		return domain.RunFailed
	}
}
