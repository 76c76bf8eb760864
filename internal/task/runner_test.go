package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunnerExecutesSubmittedTasks(t *testing.T) {
	runner := NewRunner(2, 16)
	runner.Start(context.Background())

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		err := runner.Submit(Task{
			Name: "count",
			Run: func(ctx context.Context) error {
				defer wg.Done()
				count.Add(1)
				return nil
			},
		})
		require.NoError(t, err)
	}
	wg.Wait()
	runner.Stop()
	require.Equal(t, int32(10), count.Load())
}

func TestRunnerFailureDoesNotStopWorkers(t *testing.T) {
	runner := NewRunner(1, 16)
	runner.Start(context.Background())

	done := make(chan struct{})
	require.NoError(t, runner.Submit(Task{
		Name: "boom",
		Run:  func(ctx context.Context) error { return errors.New("boom") },
	}))
	require.NoError(t, runner.Submit(Task{
		Name: "after",
		Run: func(ctx context.Context) error {
			close(done)
			return nil
		},
	}))
	<-done
	runner.Stop()
}

func TestRunnerRejectsWhenQueueFull(t *testing.T) {
	runner := NewRunner(1, 1)
	// Not started: nothing drains the queue.
	require.NoError(t, runner.Submit(Task{Name: "first", Run: func(ctx context.Context) error { return nil }}))
	err := runner.Submit(Task{Name: "second", Run: func(ctx context.Context) error { return nil }})
	require.Error(t, err)
}
