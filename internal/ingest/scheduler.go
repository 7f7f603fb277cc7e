package ingest

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrSchedulerBusy is returned by on-demand triggers while a run is
// already in progress. The cadence path drops the tick instead.
var ErrSchedulerBusy = errors.New("scrape run already in progress")

// SchedulerState is the lifecycle state of the scheduler.
type SchedulerState string

const (
	StateIdle    SchedulerState = "idle"
	StateRunning SchedulerState = "running"
	StateStopped SchedulerState = "stopped"
)

// SchedulerStatus is the introspection snapshot served by the API.
type SchedulerStatus struct {
	Status           string     `json:"status"` // "active" or "inactive"
	SchedulerRunning bool       `json:"scheduler_running"`
	JobRunning       bool       `json:"job_running"`
	LastRun          *time.Time `json:"last_run,omitempty"`
	NextRun          *time.Time `json:"next_run,omitempty"`
	Schedule         string     `json:"schedule"`
}

// RunResult is the synchronous response of an on-demand trigger.
type RunResult struct {
	ArticlesScraped int     `json:"articles_scraped"`
	NewArticles     int     `json:"new_articles"`
	HighRiskCount   int     `json:"high_risk_count"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Scheduler drives the collection job on a fixed cadence. A mutex
// guarantees runs never overlap; a tick that fires mid-run is dropped.
type Scheduler struct {
	job      *Job
	interval time.Duration
	schedule string
	logger   *log.Logger

	mu         sync.Mutex
	stopped    bool
	jobRunning bool
	loopAlive  bool
	lastRun    time.Time
	nextRun    time.Time

	now func() time.Time
}

// SchedulerOptions contains configuration for creating a Scheduler.
type SchedulerOptions struct {
	Job *Job

	// Interval between cadence ticks. Default 15m.
	Interval time.Duration

	// Schedule is the cron-style description reported by status.
	// Default "*/15 * * * *".
	Schedule string

	Logger *log.Logger
}

// NewScheduler creates a scheduler around a collection job.
func NewScheduler(opts SchedulerOptions) *Scheduler {
	interval := opts.Interval
	if interval == 0 {
		interval = 15 * time.Minute
	}
	schedule := opts.Schedule
	if schedule == "" {
		schedule = "*/15 * * * *"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		job:      opts.Job,
		interval: interval,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// Run drives cadence ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.loopAlive = true
	s.nextRun = s.now().Add(s.interval)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loopAlive = false
		s.mu.Unlock()
	}()

	s.logger.Printf("scheduler started, interval=%v schedule=%q", s.interval, s.schedule)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Println("scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one cadence pass, dropping the tick when stopped or busy.
func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	s.nextRun = s.now().Add(s.interval)
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.jobRunning {
		s.mu.Unlock()
		s.logger.Println("tick dropped: previous run still in progress")
		return
	}
	s.jobRunning = true
	s.mu.Unlock()

	defer s.finishRun()
	if _, err := s.job.Execute(ctx, "schedule"); err != nil {
		s.logger.Printf("scheduled run failed: %v", err)
	}
}

// TriggerRun executes an on-demand pass, failing fast when a run is
// already active.
func (s *Scheduler) TriggerRun(ctx context.Context) (*RunResult, error) {
	s.mu.Lock()
	if s.jobRunning {
		s.mu.Unlock()
		return nil, ErrSchedulerBusy
	}
	s.jobRunning = true
	s.mu.Unlock()
	defer s.finishRun()

	entry, err := s.job.Execute(ctx, "manual")
	if err != nil {
		return nil, err
	}
	return &RunResult{
		ArticlesScraped: entry.Details.ArticlesFound,
		NewArticles:     entry.Details.ArticlesNew,
		HighRiskCount:   entry.Details.HighRiskCount,
		DurationSeconds: entry.FinishedAt.Sub(entry.StartedAt).Seconds(),
	}, nil
}

func (s *Scheduler) finishRun() {
	s.mu.Lock()
	s.jobRunning = false
	s.lastRun = s.now()
	s.mu.Unlock()
}

// Stop suppresses future cadence ticks. A run already in flight
// completes normally.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.logger.Println("scheduler cadence stopped")
}

// Start re-enables cadence ticks after Stop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()
	s.logger.Println("scheduler cadence started")
}

// State returns the current lifecycle state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.jobRunning:
		return StateRunning
	case s.stopped:
		return StateStopped
	default:
		return StateIdle
	}
}

// Status returns the introspection snapshot. Never blocks on a run.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := "active"
	if s.stopped || !s.loopAlive {
		status = "inactive"
	}
	st := SchedulerStatus{
		Status:           status,
		SchedulerRunning: s.loopAlive && !s.stopped,
		JobRunning:       s.jobRunning,
		Schedule:         s.schedule,
	}
	if !s.lastRun.IsZero() {
		t := s.lastRun
		st.LastRun = &t
	}
	if s.loopAlive && !s.stopped && !s.nextRun.IsZero() {
		t := s.nextRun
		st.NextRun = &t
	}
	return st
}
