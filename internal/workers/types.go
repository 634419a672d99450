// Package workers provides an async worker pool for background task execution.
// Executors are registered per task type; HTTP handlers and the scheduler submit
// tasks and never block on git or the GitHub API.
package workers

import (
	"context"
	"errors"
	"time"
)

// Task types handled by the application.
const (
	TaskBackupAll = "backup_all"
	TaskSync      = "sync"
)

var (
	ErrPoolStopped = errors.New("worker pool stopped")
	ErrQueueFull   = errors.New("worker queue is full")
)

// Task represents a unit of work to be executed by a worker.
type Task struct {
	ID      string          // Unique task identifier, generated on submit when empty
	Type    string          // Task type, selects the executor
	Payload any             // Executor-specific payload
	Context context.Context // Task-specific context for cancellation/timeout
}

// Result represents the outcome of a task execution.
type Result struct {
	TaskID   string
	Type     string
	Error    error
	Output   string
	Duration time.Duration
}

// PoolMetrics tracks execution metrics for the worker pool.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TotalDuration  time.Duration
}

// TaskExecutor defines the interface for task-specific execution logic.
type TaskExecutor func(context.Context, Task) (string, error)

// Constants for worker pool configuration
const (
	DefaultPoolSize  = 2
	DefaultQueueSize = 16
)
