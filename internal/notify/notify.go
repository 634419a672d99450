// Package notify delivers backup run results to operators.
package notify

import (
	"context"
	"errors"

	"github.com/aatumaykin/ghbackup/internal/logger"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a single message to deliver.
type Notification struct {
	Level   Level
	Title   string
	Message string
}

// IsFailure reports whether the notification describes a failure.
func (n Notification) IsFailure() bool {
	return n.Level == LevelError || n.Level == LevelWarning
}

// Notifier delivers notifications. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes notifications to the structured log.
type Log struct {
	Logger *logger.Logger
}

func (l Log) Notify(ctx context.Context, n Notification) error {
	fields := []logger.Field{
		{Key: "level", Value: string(n.Level)},
		{Key: "title", Value: n.Title},
		{Key: "message", Value: n.Message},
	}
	if n.IsFailure() {
		l.Logger.WarnCtx(ctx, "notification", fields...)
	} else {
		l.Logger.InfoCtx(ctx, "notification", fields...)
	}
	return nil
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) error { return nil }

// Send delivers n and logs a failure instead of returning it.
func Send(ctx context.Context, notifier Notifier, log *logger.Logger, n Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		log.ErrorCtx(ctx, "failed to deliver notification", err, logger.Field{Key: "title", Value: n.Title})
	}
}
