package predict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"conflict-signal/internal/bus"
	"conflict-signal/internal/domain"
	"conflict-signal/internal/observability"
	"conflict-signal/internal/refdata"
	"conflict-signal/internal/risk"
	"conflict-signal/internal/storage"
)

// ErrProcessorRunning is returned by Start when the consumer pool is
// already live.
var ErrProcessorRunning = errors.New("predict: processor already running")

// Processor consumes parsed events, joins economic and geospatial
// context, scores them and publishes the resulting signals. Scoring is
// CPU-bound; workers never block on anything but storage and the bus.
type Processor struct {
	engine    *risk.Engine
	surge     *risk.SurgeTracker
	events    storage.EventStore
	signals   storage.SignalStore
	economic  storage.EconomicStore
	series    storage.RiskTimeseriesStore
	consumer  bus.Consumer
	publisher bus.Publisher
	broadcast func(*domain.RiskSignal)
	logger    *log.Logger
	workers   int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// ProcessorOptions contains configuration for creating a Processor.
type ProcessorOptions struct {
	Engine    *risk.Engine
	Surge     *risk.SurgeTracker
	Events    storage.EventStore
	Signals   storage.SignalStore
	Economic  storage.EconomicStore
	Consumer  bus.Consumer
	Publisher bus.Publisher

	// Series receives scored signals for analytics. Optional; writes
	// are best-effort and never fail the scoring path.
	Series storage.RiskTimeseriesStore

	// Broadcast is invoked with every persisted signal, feeding the
	// websocket hub. Optional.
	Broadcast func(*domain.RiskSignal)

	// Workers is the consumer pool size. Default 5.
	Workers int

	Logger *log.Logger
}

// NewProcessor creates a scoring processor.
func NewProcessor(opts ProcessorOptions) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 5
	}
	return &Processor{
		engine:    opts.Engine,
		surge:     opts.Surge,
		events:    opts.Events,
		signals:   opts.Signals,
		economic:  opts.Economic,
		series:    opts.Series,
		consumer:  opts.Consumer,
		publisher: opts.Publisher,
		broadcast: opts.Broadcast,
		logger:    logger,
		workers:   workers,
	}
}

// Start launches the consumer pool on the events queue.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrProcessorRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.consumer.Consume(runCtx, bus.QueueEvents, "scoring", p.handleMessage); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Printf("[predict] consumer stopped: %v", err)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(p.done)
	}()

	p.logger.Printf("[predict] started %d scoring workers", p.workers)
	return nil
}

// Stop cancels the consumer pool and waits for the workers to drain.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.running = false
	p.mu.Unlock()

	cancel()
	<-done
	p.logger.Printf("[predict] stopped")
}

// Running reports whether the consumer pool is live.
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) handleMessage(ctx context.Context, msg *bus.Message) error {
	var event domain.ParsedEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		// Malformed bodies can never succeed; drop them.
		p.logger.Printf("[predict] dropping malformed message %s: %v", msg.ID, err)
		return nil
	}
	_, err := p.ProcessEvent(ctx, &event)
	return err
}

// ProcessEvent scores one event end to end: geocode, join economic
// context, score, persist with the next location version and publish.
// Redelivery of an already-scored event republishes the existing signal
// and persists nothing new.
func (p *Processor) ProcessEvent(ctx context.Context, event *domain.ParsedEvent) (*domain.RiskSignal, error) {
	if existing, err := p.signals.GetLatestByEventID(ctx, event.ID); err == nil {
		p.republish(ctx, existing)
		return existing, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup signal for event %s: %w", event.ID, err)
	}

	scored := *event
	p.geocode(&scored)

	econ, err := p.joinEconomic(ctx, scored.State, scored.LGA)
	if err != nil {
		return nil, err
	}

	// A location unseen since startup gets its surge baseline from the
	// latest persisted score, so surges survive restarts even when the
	// warm start missed the location.
	if p.surge != nil && !p.surge.Seen(scored.State, scored.LGA) {
		if prev, err := p.signals.GetPreviousScore(ctx, scored.State, scored.LGA); err == nil {
			p.surge.Seed(scored.State, scored.LGA, prev)
		} else if !errors.Is(err, storage.ErrNotFound) {
			p.logger.Printf("[predict] surge baseline %s/%s: %v", scored.State, scored.LGA, err)
		}
	}

	scoreStart := time.Now()
	sig := p.engine.Score(&scored, econ)
	sig.ID = uuid.NewString()
	observability.RecordSignalComputed(string(sig.RiskLevel), time.Since(scoreStart).Seconds())
	if sig.SurgeDetected {
		observability.RecordSurgeDetected()
	}

	version, err := p.signals.NextVersion(ctx, sig.State, sig.LGA)
	if err != nil {
		return nil, fmt.Errorf("next version for %s/%s: %w", sig.State, sig.LGA, err)
	}
	sig.Version = version

	if err := p.signals.Insert(ctx, sig); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// A concurrent worker scored the same delivery first.
			if existing, getErr := p.signals.GetLatestByEventID(ctx, event.ID); getErr == nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("insert signal for event %s: %w", event.ID, err)
	}

	if err := bus.PublishJSON(ctx, p.publisher, bus.QueueSignals, sig); err != nil {
		// The signal is persisted; redelivery republishes it.
		return nil, fmt.Errorf("publish signal %s: %w", sig.ID, err)
	}

	if p.series != nil {
		if err := p.series.InsertBulk(ctx, []*domain.RiskSignal{sig}); err != nil {
			p.logger.Printf("[predict] timeseries write failed: %v", err)
		}
	}
	if p.broadcast != nil {
		p.broadcast(sig)
	}

	if sig.Status == domain.StatusCritical {
		p.logger.Printf("[predict] CRITICAL signal %s/%s score=%.1f: %s", sig.State, sig.LGA, sig.RiskScore, sig.TriggerReason)
	}
	return sig, nil
}

// Predict batch-scores persisted events that have no signal yet.
// Returns the number of newly scored events.
func (p *Processor) Predict(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	events, err := p.events.ListRecent(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list events: %w", err)
	}

	scored := 0
	for _, event := range events {
		if _, err := p.signals.GetLatestByEventID(ctx, event.ID); err == nil {
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return scored, err
		}
		if _, err := p.ProcessEvent(ctx, event); err != nil {
			p.logger.Printf("[predict] batch score event %s: %v", event.ID, err)
			continue
		}
		scored++
	}
	return scored, nil
}

// WarmStart seeds the surge tracker from the most recent persisted
// signals so restarts do not lose surge baselines.
func (p *Processor) WarmStart(ctx context.Context, limit int) error {
	if p.surge == nil {
		return nil
	}
	if limit <= 0 {
		limit = 500
	}
	signals, err := p.signals.ListRecent(ctx, limit)
	if err != nil {
		return fmt.Errorf("warm start: %w", err)
	}
	// ListRecent is newest-first; Seed keeps the first value per location.
	for _, sig := range signals {
		p.surge.Seed(sig.State, sig.LGA, sig.RiskScore)
	}
	p.logger.Printf("[predict] surge tracker warmed from %d signals", len(signals))
	return nil
}

// geocode fills missing coordinates from the state centroid table.
func (p *Processor) geocode(event *domain.ParsedEvent) {
	if event.HasCoordinates() {
		return
	}
	if lat, lon, ok := refdata.StateCentroid(event.State); ok {
		event.Latitude = &lat
		event.Longitude = &lon
	}
}

// joinEconomic resolves the economic record for a location, falling
// back to any state-level row. No record means economic modifiers are
// skipped, not an error.
func (p *Processor) joinEconomic(ctx context.Context, state, lga string) (*domain.EconomicRecord, error) {
	rec, err := p.economic.GetByLocation(ctx, state, lga)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("economic lookup %s/%s: %w", state, lga, err)
	}
	rec, err = p.economic.GetAnyByState(ctx, state)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("economic lookup %s: %w", state, err)
	}
	return nil, nil
}

func (p *Processor) republish(ctx context.Context, sig *domain.RiskSignal) {
	if err := bus.PublishJSON(ctx, p.publisher, bus.QueueSignals, sig); err != nil {
		p.logger.Printf("[predict] republish signal %s: %v", sig.ID, err)
	}
}
