package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aatumaykin/ghbackup/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectResults() (func(Result), func() []Result) {
	var (
		mu      sync.Mutex
		results []Result
	)
	return func(r Result) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, r)
		}, func() []Result {
			mu.Lock()
			defer mu.Unlock()
			return append([]Result(nil), results...)
		}
}

func TestPool_ExecutesRegisteredTasks(t *testing.T) {
	onResult, results := collectResults()
	p := NewPool(Config{Workers: 2, QueueSize: 4, OnResult: onResult})
	p.Register(TaskSync, func(ctx context.Context, task Task) (string, error) {
		return "synced " + task.Payload.(string), nil
	})
	p.Start()

	id, err := p.Submit(context.Background(), Task{Type: TaskSync, Payload: "octo"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Eventually(t, func() bool { return len(results()) == 1 }, time.Second, 5*time.Millisecond)
	r := results()[0]
	assert.Equal(t, id, r.TaskID)
	assert.Equal(t, TaskSync, r.Type)
	assert.Equal(t, "synced octo", r.Output)
	assert.NoError(t, r.Error)

	require.NoError(t, p.Stop(context.Background()))
	stats := p.Metrics()
	assert.Equal(t, uint64(1), stats.TasksSubmitted)
	assert.Equal(t, uint64(1), stats.TasksCompleted)
}

func TestPool_UnknownTypeAndPanic(t *testing.T) {
	onResult, results := collectResults()
	p := NewPool(Config{Workers: 1, OnResult: onResult})
	p.Register(TaskBackupAll, func(context.Context, Task) (string, error) {
		panic("boom")
	})
	p.Start()
	defer p.Stop(context.Background())

	_, err := p.Submit(context.Background(), Task{Type: "nope"})
	require.NoError(t, err)
	_, err = p.Submit(context.Background(), Task{Type: TaskBackupAll})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(results()) == 2 }, time.Second, 5*time.Millisecond)
	got := results()
	assert.EqualError(t, got[0].Error, "unknown task type: nope")
	assert.Contains(t, got[1].Error.Error(), "panic during task execution: boom")
	assert.Equal(t, uint64(2), p.Metrics().TasksFailed)
}

func TestPool_StopWaitsForInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	p := NewPool(Config{Workers: 1})
	p.Register(TaskBackupAll, func(ctx context.Context, task Task) (string, error) {
		close(started)
		<-release
		finished.Store(true)
		return "", nil
	})
	p.Start()

	_, err := p.Submit(context.Background(), Task{Type: TaskBackupAll})
	require.NoError(t, err)
	<-started

	stopped := make(chan error, 1)
	go func() { stopped <- p.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the running task finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-stopped)
	assert.True(t, finished.Load())

	_, err = p.Submit(context.Background(), Task{Type: TaskBackupAll})
	assert.ErrorIs(t, err, ErrPoolStopped)
	_, err = p.TrySubmit(Task{Type: TaskBackupAll})
	assert.ErrorIs(t, err, ErrPoolStopped)
}

func TestPool_StopTimeoutCancelsTasks(t *testing.T) {
	started := make(chan struct{})
	p := NewPool(Config{Workers: 1})
	p.Register(TaskBackupAll, func(ctx context.Context, task Task) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})
	p.Start()

	_, err := p.Submit(context.Background(), Task{Type: TaskBackupAll})
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Stop(ctx), context.DeadlineExceeded)
}

func TestPool_TrySubmitQueueFull(t *testing.T) {
	p := NewPool(Config{Workers: 1, QueueSize: 1})
	// без Start задачи остаются в очереди

	_, err := p.TrySubmit(Task{Type: TaskSync})
	require.NoError(t, err)
	_, err = p.TrySubmit(Task{Type: TaskSync})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, p.QueueSize())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.Submit(ctx, Task{Type: TaskSync})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_TaskContextCancelled(t *testing.T) {
	onResult, results := collectResults()
	p := NewPool(Config{Workers: 1, OnResult: onResult})
	p.Register(TaskSync, func(context.Context, Task) (string, error) { return "ran", nil })
	p.Start()
	defer p.Stop(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Submit(context.Background(), Task{Type: TaskSync, Context: ctx})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(results()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, errors.Is(results()[0].Error, context.Canceled))
}

func TestPool_PrometheusCounters(t *testing.T) {
	m := metrics.InitPrometheusMetrics("test", prometheus.NewRegistry())
	onResult, results := collectResults()
	p := NewPool(Config{Workers: 1, Metrics: m, OnResult: onResult})
	p.Register(TaskSync, func(context.Context, Task) (string, error) { return "", errors.New("fail") })
	p.Start()
	defer p.Stop(context.Background())

	_, err := p.Submit(context.Background(), Task{Type: TaskSync})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(results()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestPoolMetrics_AverageDuration(t *testing.T) {
	assert.Zero(t, PoolMetrics{}.AverageDuration())
	m := PoolMetrics{TasksCompleted: 1, TasksFailed: 1, TotalDuration: 4 * time.Second}
	assert.Equal(t, 2*time.Second, m.AverageDuration())
}
