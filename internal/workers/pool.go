package workers

import (
	"context"
	"sync"

	"github.com/aatumaykin/ghbackup/internal/logger"
	"github.com/aatumaykin/ghbackup/internal/metrics"
	"github.com/google/uuid"
)

// Config represents worker pool configuration.
type Config struct {
	Workers   int
	QueueSize int
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	// OnResult is called from the worker goroutine after every task.
	OnResult func(Result)
}

// WorkerPool manages a pool of goroutine workers for concurrent task execution.
type WorkerPool struct {
	taskQueue chan Task
	workers   int
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	quit      chan struct{}
	stopOnce  sync.Once
	startOnce sync.Once
	logger    *logger.Logger
	prom      *metrics.Metrics
	onResult  func(Result)

	mu        sync.RWMutex
	executors map[string]TaskExecutor

	statsMu sync.Mutex
	stats   PoolMetrics
}

// NewPool creates a new worker pool with the specified configuration.
func NewPool(cfg Config) *WorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultPoolSize
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		taskQueue: make(chan Task, cfg.QueueSize),
		workers:   cfg.Workers,
		ctx:       ctx,
		cancel:    cancel,
		quit:      make(chan struct{}),
		logger:    cfg.Logger.Component("workers"),
		prom:      cfg.Metrics,
		onResult:  cfg.OnResult,
		executors: make(map[string]TaskExecutor),
	}
}

// Register binds an executor to a task type, replacing any previous one.
func (p *WorkerPool) Register(taskType string, executor TaskExecutor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executors[taskType] = executor
}

func (p *WorkerPool) executor(taskType string) (TaskExecutor, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	exec, ok := p.executors[taskType]
	return exec, ok
}

// Start initializes and starts all worker goroutines.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting worker pool",
			logger.Field{Key: "workers", Value: p.workers},
			logger.Field{Key: "buffer_size", Value: cap(p.taskQueue)})

		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

func (p *WorkerPool) prepare(task *Task) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
}

// Submit queues a task, blocking until there is room, ctx is done or the pool stops.
// The generated task ID is returned.
func (p *WorkerPool) Submit(ctx context.Context, task Task) (string, error) {
	p.prepare(&task)

	select {
	case <-p.quit:
		return "", ErrPoolStopped
	default:
	}

	select {
	case p.taskQueue <- task:
		p.submitted(task)
		return task.ID, nil
	case <-p.quit:
		return "", ErrPoolStopped
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// TrySubmit queues a task without blocking.
func (p *WorkerPool) TrySubmit(task Task) (string, error) {
	p.prepare(&task)

	select {
	case <-p.quit:
		return "", ErrPoolStopped
	default:
	}

	select {
	case p.taskQueue <- task:
		p.submitted(task)
		return task.ID, nil
	default:
		return "", ErrQueueFull
	}
}

func (p *WorkerPool) submitted(task Task) {
	p.incrementSubmitted()
	p.prom.SetQueueDepth(len(p.taskQueue))
	p.logger.Debug("task submitted",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type})
}

// Stop stops accepting tasks and waits for in-flight tasks to finish.
// When ctx expires first, running tasks are cancelled and Stop returns ctx.Err().
// Tasks still waiting in the queue are dropped.
func (p *WorkerPool) Stop(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		close(p.quit)

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
			p.logger.Warn("worker pool stop timed out, cancelling running tasks")
			p.cancel()
			<-done
		}
		p.cancel()

		stats := p.Metrics()
		p.logger.Info("worker pool stopped",
			logger.Field{Key: "tasks_submitted", Value: stats.TasksSubmitted},
			logger.Field{Key: "tasks_completed", Value: stats.TasksCompleted},
			logger.Field{Key: "tasks_failed", Value: stats.TasksFailed},
			logger.Field{Key: "dropped", Value: len(p.taskQueue)})
	})
	return err
}

// WorkerCount returns the number of workers.
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

// QueueSize returns the current number of tasks waiting in the queue.
func (p *WorkerPool) QueueSize() int {
	return len(p.taskQueue)
}
