package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/sc2sm/sc2sm/internal/config"
)

const (
	JobPublishDue     = "publish_due"
	JobRefreshMetrics = "refresh_metrics"

	publishTimeout = 50 * time.Second
	metricsTimeout = 10 * time.Minute
)

// Job is one unit of periodic work; it returns how many items it handled
type Job func(ctx context.Context) (int, error)

// PostJobs is the post maintenance run on a schedule
type PostJobs interface {
	PublishDue(ctx context.Context) (int, error)
	RefreshMetrics(ctx context.Context) (int, error)
}

type entry struct {
	id      cron.EntryID
	job     Job
	timeout time.Duration
}

// Scheduler manages periodic tasks
type Scheduler struct {
	cron   *cron.Cron
	jobs   map[string]entry
	logger *logrus.Logger
}

// New creates a scheduler in the configured timezone
func New(cfg *config.SchedulerConfig, logger *logrus.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", cfg.Timezone, err)
	}

	cronLogger := cron.PrintfLogger(logger)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &Scheduler{
		cron:   c,
		jobs:   make(map[string]entry),
		logger: logger,
	}, nil
}

// NewPostScheduler registers the publish and metrics jobs
func NewPostScheduler(cfg *config.SchedulerConfig, posts PostJobs, logger *logrus.Logger) (*Scheduler, error) {
	s, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := s.AddJob(JobPublishDue, cfg.PublishSpec, publishTimeout, posts.PublishDue); err != nil {
		return nil, err
	}
	if err := s.AddJob(JobRefreshMetrics, cfg.MetricsSpec, metricsTimeout, posts.RefreshMetrics); err != nil {
		return nil, err
	}
	return s, nil
}

// AddJob schedules job; each run gets its own context bounded by timeout
func (s *Scheduler) AddJob(name, spec string, timeout time.Duration, job Job) error {
	id, err := s.cron.AddFunc(spec, func() {
		_, _ = s.run(name, timeout, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entry{id: id, job: job, timeout: timeout}
	s.logger.WithFields(logrus.Fields{"job": name, "schedule": spec}).Info("Added scheduled job")
	return nil
}

func (s *Scheduler) run(name string, timeout time.Duration, job Job) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger := s.logger.WithField("job", name)
	start := time.Now()

	n, err := job(ctx)
	if err != nil {
		logger.WithError(err).Error("Scheduled job failed")
		return n, err
	}
	if n > 0 {
		logger.WithFields(logrus.Fields{
			"items":    n,
			"duration": time.Since(start),
		}).Info("Scheduled job completed")
	}
	return n, nil
}

// RunNow immediately executes a registered job
func (s *Scheduler) RunNow(name string) (int, error) {
	e, ok := s.jobs[name]
	if !ok {
		return 0, fmt.Errorf("unknown job %s", name)
	}
	return s.run(name, e.timeout, e.job)
}

// NextRun returns when a job will run next
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	e, ok := s.jobs[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(e.id).Next, true
}

func (s *Scheduler) Start() {
	s.logger.WithField("jobs", len(s.jobs)).Info("Starting scheduler")
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("Stopping scheduler")
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
