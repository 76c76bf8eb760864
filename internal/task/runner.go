package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes detached work on a bounded worker pool. Callers submit and
// move on; completion is observable only through logs and whatever state the
// task itself persists.
type Runner struct {
	queue   chan Task
	workers int

	mu        sync.Mutex
	closed    bool
	startOnce sync.Once
	wg        sync.WaitGroup
}

func NewRunner(workers, queueSize int) *Runner {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 128
	}
	return &Runner{
		queue:   make(chan Task, queueSize),
		workers: workers,
	}
}

func (r *Runner) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		for i := 0; i < r.workers; i++ {
			r.wg.Add(1)
			go r.worker(ctx)
		}
	})
}

// Submit queues a task without blocking. A full queue is reported back so the
// caller can log and drop; background work is never allowed to stall requests.
func (r *Runner) Submit(task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("runner stopped, dropped %s", task.Name)
	}
	select {
	case r.queue <- task:
		return nil
	default:
		return fmt.Errorf("task queue full, dropped %s", task.Name)
	}
}

// Stop closes the queue and waits for in-flight tasks to finish. Tasks that
// try to submit follow-up work after this point get an error, not a panic.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Runner) worker(ctx context.Context) {
	defer r.wg.Done()
	for task := range r.queue {
		logger := logutil.GetLogger(ctx).With(zap.String("task", task.Name))
		start := time.Now()
		if err := task.Run(ctx); err != nil {
			logger.Error("background task failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
			continue
		}
		logger.Info("background task finished", zap.Duration("duration", time.Since(start)))
	}
}
