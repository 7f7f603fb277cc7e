package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conflict-signal/internal/artifact"
	busmemory "conflict-signal/internal/bus/memory"
	storememory "conflict-signal/internal/storage/memory"
)

// blockingFetcher holds Fetch open until released, to pin the scheduler
// in the running state.
type blockingFetcher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (f *blockingFetcher) Name() string { return "blocking" }

func (f *blockingFetcher) Fetch(ctx context.Context) ([]RawArticle, error) {
	f.once.Do(func() { close(f.entered) })
	select {
	case <-f.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return nil, nil
}

func newTestScheduler(t *testing.T, fetchers []Fetcher) *Scheduler {
	t.Helper()
	artifacts, err := artifact.NewStore(t.TempDir(), artifact.Options{})
	require.NoError(t, err)

	job := NewJob(JobOptions{
		Fetchers:     fetchers,
		Articles:     storememory.NewArticleStore(),
		Publisher:    busmemory.New(busmemory.Options{}),
		Artifacts:    artifacts,
		RetryInitial: time.Millisecond,
	})
	return NewScheduler(SchedulerOptions{Job: job, Interval: time.Hour})
}

func TestScheduler_TriggerRun(t *testing.T) {
	f := &stubFetcher{name: "src", articles: []RawArticle{
		{URL: "https://news.ng/a", Title: "Clash in Benue", Content: "c", Source: "src"},
	}}
	s := newTestScheduler(t, []Fetcher{f})

	res, err := s.TriggerRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.ArticlesScraped)
	assert.Equal(t, 1, res.NewArticles)
	assert.Equal(t, StateIdle, s.State())
}

func TestScheduler_BusyRejectsSecondTrigger(t *testing.T) {
	f := newBlockingFetcher()
	s := newTestScheduler(t, []Fetcher{f})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.TriggerRun(context.Background())
	}()

	<-f.entered
	assert.Equal(t, StateRunning, s.State())

	_, err := s.TriggerRun(context.Background())
	assert.ErrorIs(t, err, ErrSchedulerBusy)

	close(f.release)
	<-done
	assert.Equal(t, StateIdle, s.State())
}

func TestScheduler_StopAndStart(t *testing.T) {
	s := newTestScheduler(t, nil)

	assert.Equal(t, StateIdle, s.State())
	s.Stop()
	assert.Equal(t, StateStopped, s.State())

	st := s.Status()
	assert.Equal(t, "inactive", st.Status)
	assert.False(t, st.SchedulerRunning)

	s.Start()
	assert.Equal(t, StateIdle, s.State())
}

func TestScheduler_Status(t *testing.T) {
	f := &stubFetcher{name: "src"}
	s := newTestScheduler(t, []Fetcher{f})

	st := s.Status()
	assert.Equal(t, "*/15 * * * *", st.Schedule)
	assert.Nil(t, st.LastRun)
	assert.False(t, st.JobRunning)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()
	defer cancel()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.Status().SchedulerRunning {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	st = s.Status()
	assert.Equal(t, "active", st.Status)
	require.NotNil(t, st.NextRun)

	_, err := s.TriggerRun(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s.Status().LastRun)
}
