package app

import (
	"errors"
	"time"

	"github.com/aatumaykin/ghbackup/internal/cron"
	"github.com/aatumaykin/ghbackup/internal/logger"
	"github.com/aatumaykin/ghbackup/internal/storage"
	"github.com/aatumaykin/ghbackup/internal/workers"
)

// taskSubmitter is the part of the worker pool used by the schedule.
type taskSubmitter interface {
	TrySubmit(task workers.Task) (string, error)
}

// BackupSchedule keeps the recurring backup job in sync with the stored configuration.
// The job only queues a backup_all task; the run itself happens on the worker pool.
type BackupSchedule struct {
	scheduler *cron.Scheduler
	tasks     taskSubmitter
	logger    *logger.Logger
}

// NewBackupSchedule binds a scheduler to a task queue.
func NewBackupSchedule(scheduler *cron.Scheduler, tasks taskSubmitter, log *logger.Logger) *BackupSchedule {
	return &BackupSchedule{scheduler: scheduler, tasks: tasks, logger: log.Component("schedule")}
}

// Apply schedules or removes the backup job. A nil config removes it.
func (s *BackupSchedule) Apply(cfg *storage.BackupConfig) error {
	if cfg == nil || !cfg.ScheduleEnabled {
		if s.scheduler.Unschedule(cron.BackupJobID) {
			s.logger.Info("scheduled backups disabled")
		}
		return nil
	}

	if err := s.scheduler.Schedule(cron.BackupJobID, cfg.ScheduleCron, s.fire); err != nil {
		return err
	}
	next, _ := s.scheduler.Next(cron.BackupJobID)
	s.logger.Info("scheduled backups enabled",
		logger.Field{Key: "cron", Value: cfg.ScheduleCron},
		logger.Field{Key: "next_run", Value: next})
	return nil
}

// Next returns the next fire time of the backup job.
func (s *BackupSchedule) Next() (time.Time, bool) {
	return s.scheduler.Next(cron.BackupJobID)
}

func (s *BackupSchedule) fire() {
	id, err := s.tasks.TrySubmit(workers.Task{Type: workers.TaskBackupAll})
	switch {
	case errors.Is(err, workers.ErrQueueFull):
		s.logger.Warn("scheduled backup skipped: queue is full")
	case err != nil:
		s.logger.Error("failed to queue scheduled backup", err)
	default:
		s.logger.Info("scheduled backup queued", logger.Field{Key: "task_id", Value: id})
	}
}
