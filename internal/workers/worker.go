package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/ghbackup/internal/logger"
)

// worker is the main worker goroutine that processes tasks from the queue.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("worker started", logger.Field{Key: "worker_id", Value: id})

	for {
		// quit has priority over queued tasks
		select {
		case <-p.quit:
			p.logger.Debug("worker stopping", logger.Field{Key: "worker_id", Value: id})
			return
		default:
		}

		select {
		case task := <-p.taskQueue:
			p.processTask(id, task)
		case <-p.quit:
			p.logger.Debug("worker stopping", logger.Field{Key: "worker_id", Value: id})
			return
		}
	}
}

// processTask handles a single task execution with metrics and error handling.
func (p *WorkerPool) processTask(workerID int, task Task) {
	startTime := time.Now()

	p.logger.Debug("processing task",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type})

	// контекст задачи отменяется вместе с пулом
	execCtx := p.ctx
	if task.Context != nil {
		var cancel context.CancelFunc
		execCtx, cancel = mergeCancel(task.Context, p.ctx)
		defer cancel()
	}

	result := p.executeTask(execCtx, task)
	result.Duration = time.Since(startTime)
	p.recordResult(result)

	if result.Error != nil {
		p.logger.Error("task failed", result.Error,
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "task_type", Value: task.Type},
			logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()})
	} else {
		p.logger.Debug("task processed",
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()})
	}

	if p.onResult != nil {
		p.onResult(result)
	}
}

// executeTask dispatches task execution based on type with panic recovery.
func (p *WorkerPool) executeTask(ctx context.Context, task Task) (result Result) {
	result = Result{TaskID: task.ID, Type: task.Type}

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	exec, ok := p.executor(task.Type)
	if !ok {
		result.Error = fmt.Errorf("unknown task type: %s", task.Type)
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("panic during task execution: %v", r)
		}
	}()

	result.Output, result.Error = exec(ctx, task)
	return result
}

// mergeCancel returns a context carrying parent's values that is also cancelled with other.
func mergeCancel(parent, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(other, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
