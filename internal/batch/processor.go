package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sc2sm/sc2sm/internal/config"
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken.
	ErrQueueFull = errors.New("report queue is full")
	// ErrStopped is returned by Submit after Stop has been called.
	ErrStopped = errors.New("worker pool is stopped")
)

// Task is a unit of background work. Name is used in logs only.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Stats is a snapshot of the pool counters
type Stats struct {
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Queued    int   `json:"queued"`
}

// Processor runs submitted tasks on a fixed set of workers fed by a bounded queue
type Processor struct {
	config *config.WorkerConfig
	logger *logrus.Logger
	queue  chan Task
	group  *errgroup.Group
	cancel context.CancelFunc

	mu      sync.RWMutex
	stopped bool

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// NewProcessor creates a processor and starts its workers
func NewProcessor(cfg *config.WorkerConfig, logger *logrus.Logger) *Processor {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	p := &Processor{
		config: cfg,
		logger: logger,
		queue:  make(chan Task, queueSize),
		group:  group,
		cancel: cancel,
	}

	for i := 0; i < workers; i++ {
		workerID := i
		group.Go(func() error {
			p.work(ctx, workerID)
			return nil
		})
	}

	return p
}

// Submit enqueues a task without blocking.
func (p *Processor) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}

	select {
	case p.queue <- task:
		p.submitted.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for queued and in-flight tasks. When ctx
// expires first the running tasks are cancelled.
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- p.group.Wait() }()

	select {
	case err := <-done:
		p.cancel()
		return err
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

// Stats returns the current counters
func (p *Processor) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Queued:    len(p.queue),
	}
}

func (p *Processor) work(ctx context.Context, workerID int) {
	for task := range p.queue {
		start := time.Now()
		err := p.run(ctx, task)

		entry := p.logger.WithFields(logrus.Fields{
			"worker":   workerID,
			"task":     task.Name,
			"duration": time.Since(start).String(),
		})
		if err != nil {
			p.failed.Add(1)
			entry.WithError(err).Error("Task failed")
			continue
		}
		p.completed.Add(1)
		entry.Debug("Task completed")
	}
}

// run executes one task under its own timeout and turns a panic into an error.
func (p *Processor) run(ctx context.Context, task Task) (err error) {
	timeout := p.config.TaskTimeout
	if timeout <= 0 {
		timeout = config.DefaultWorkerConfig().TaskTimeout
	}
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	return task.Run(taskCtx)
}
