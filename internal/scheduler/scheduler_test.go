package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sc2sm/sc2sm/internal/config"
)

type stubJobs struct {
	published atomic.Int32
	refreshed atomic.Int32
	deadline  atomic.Bool
}

func (s *stubJobs) PublishDue(ctx context.Context) (int, error) {
	s.published.Add(1)
	_, ok := ctx.Deadline()
	s.deadline.Store(ok)
	return 2, nil
}

func (s *stubJobs) RefreshMetrics(ctx context.Context) (int, error) {
	s.refreshed.Add(1)
	return 0, errors.New("X unavailable")
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(bytes.NewBuffer(nil))
	return logger
}

func TestNewPostScheduler(t *testing.T) {
	t.Run("registers both jobs", func(t *testing.T) {
		jobs := &stubJobs{}
		s, err := NewPostScheduler(config.DefaultSchedulerConfig(), jobs, testLogger())
		require.NoError(t, err)

		n, err := s.RunNow(JobPublishDue)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.True(t, jobs.deadline.Load())

		_, err = s.RunNow(JobRefreshMetrics)
		assert.Error(t, err)
		assert.Equal(t, int32(1), jobs.refreshed.Load())
	})

	t.Run("invalid timezone", func(t *testing.T) {
		cfg := config.DefaultSchedulerConfig()
		cfg.Timezone = "Mars/Olympus"
		_, err := NewPostScheduler(cfg, &stubJobs{}, testLogger())
		assert.Error(t, err)
	})

	t.Run("invalid schedule", func(t *testing.T) {
		cfg := config.DefaultSchedulerConfig()
		cfg.MetricsSpec = "every now and then"
		_, err := NewPostScheduler(cfg, &stubJobs{}, testLogger())
		assert.Error(t, err)
	})
}

func TestSchedulerRunsJobs(t *testing.T) {
	s, err := New(config.DefaultSchedulerConfig(), testLogger())
	require.NoError(t, err)

	var runs atomic.Int32
	require.NoError(t, s.AddJob("tick", "@every 1s", time.Second, func(ctx context.Context) (int, error) {
		runs.Add(1)
		return 1, nil
	}))

	next, ok := s.NextRun("tick")
	assert.True(t, ok)
	assert.True(t, next.IsZero())

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))

	_, err = s.RunNow("missing")
	assert.Error(t, err)
}
