package tasks

import (
	"context"
	"time"

	"vigil/internal/store"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobStore is the persistence the scheduler needs. store.Jobs satisfies it.
type JobStore interface {
	Upsert(ctx context.Context, job store.Job) error
	Delete(ctx context.Context, kind store.JobKind, userID string) error
	ClaimDue(ctx context.Context, now time.Time) (store.Job, bool, error)
}

// Callback handles a fired job. Errors are logged, never retried: a claimed
// job is gone from the store either way.
type Callback func(ctx context.Context, job store.Job)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Scheduler persists delayed one-shot jobs and fires them when due. At most
// one live job exists per (kind, user); scheduling again replaces the old
// due time. Jobs survive restarts; jobs found overdue on a poll still fire
// if they missed by less than the grace window.
type Scheduler struct {
	jobs      JobStore
	logger    *zap.Logger
	clock     Clock
	grace     time.Duration
	callbacks map[store.JobKind]Callback
	cron      *cron.Cron
}

func NewScheduler(jobs JobStore, grace time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		jobs:      jobs,
		logger:    logger,
		clock:     realClock{},
		grace:     grace,
		callbacks: make(map[store.JobKind]Callback),
	}
}

func (s *Scheduler) WithClock(clock Clock) {
	s.clock = clock
}

// Register binds a callback to a job kind. Must be called before Start.
func (s *Scheduler) Register(kind store.JobKind, cb Callback) {
	s.callbacks[kind] = cb
}

// Schedule stores a job due at dueAt, replacing any live job for the same
// kind and user.
func (s *Scheduler) Schedule(ctx context.Context, kind store.JobKind, userID string, dueAt time.Time, payload string) error {
	return s.jobs.Upsert(ctx, store.Job{
		Key:     store.JobKey(kind, userID),
		Kind:    kind,
		UserID:  userID,
		DueAt:   dueAt,
		Payload: payload,
	})
}

// Cancel removes a pending job. Cancelling a job that does not exist is not
// an error.
func (s *Scheduler) Cancel(ctx context.Context, kind store.JobKind, userID string) error {
	return s.jobs.Delete(ctx, kind, userID)
}

// Start begins polling for due jobs every pollEvery. Call Stop to shut down.
func (s *Scheduler) Start(pollEvery time.Duration) {
	s.cron = cron.New()
	s.cron.Schedule(cron.Every(pollEvery), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.Poll(ctx)
	}))
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Poll claims and dispatches every job that is due. Claiming deletes the
// job from the store, so a job fires at most once even with a concurrent
// poller.
func (s *Scheduler) Poll(ctx context.Context) {
	for {
		now := s.clock.Now()
		job, ok, err := s.jobs.ClaimDue(ctx, now)
		if err != nil {
			s.logger.Error("job claim failed", zap.Error(err))
			return
		}
		if !ok {
			return
		}
		if now.Sub(job.DueAt) > s.grace {
			s.logger.Warn("dropping stale job",
				zap.String("kind", string(job.Kind)),
				zap.String("user_id", job.UserID),
				zap.Time("due_at", job.DueAt))
			continue
		}
		cb := s.callbacks[job.Kind]
		if cb == nil {
			s.logger.Error("no callback for job kind", zap.String("kind", string(job.Kind)))
			continue
		}
		cb(ctx, job)
	}
}
