package cron

import (
	"context"
	"testing"
	"time"

	"github.com/aatumaykin/ghbackup/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, opts ...SchedulerOption) *Scheduler {
	t.Helper()
	return NewScheduler(logger.Nop(), opts...)
}

func TestScheduler_StartStop(t *testing.T) {
	s := newTestScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsStarted())
	assert.Error(t, s.Start(ctx), "second start must fail")

	require.NoError(t, s.Stop())
	assert.False(t, s.IsStarted())
	assert.Error(t, s.Stop())
}

func TestScheduler_ScheduleRejectsInvalidExpression(t *testing.T) {
	s := newTestScheduler(t)

	err := s.Schedule(BackupJobID, "60 * * * *", func() {})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidExpression)
	assert.Contains(t, err.Error(), "Invalid value in minute: 60 (must be 0-59)")
	assert.Empty(t, s.Jobs())
}

func TestScheduler_ScheduleReplacesExisting(t *testing.T) {
	s := newTestScheduler(t)

	require.NoError(t, s.Schedule(BackupJobID, "0 2 * * *", func() {}))
	require.NoError(t, s.Schedule(BackupJobID, "30 4 * * *", func() {}))

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "30 4 * * *", jobs[0].Expression)
	assert.Equal(t, 30, jobs[0].Next.Minute())
	assert.Equal(t, 4, jobs[0].Next.Hour())
}

func TestScheduler_ScheduleSundayAsSeven(t *testing.T) {
	s := newTestScheduler(t, WithLocation(time.UTC))

	require.NoError(t, s.Schedule(BackupJobID, "0 3 * * 7", func() {}))

	next, ok := s.Next(BackupJobID)
	require.True(t, ok)
	assert.Equal(t, time.Sunday, next.Weekday())
}

func TestScheduler_StrictValidator(t *testing.T) {
	s := newTestScheduler(t, WithValidator(NewValidator(WithStrictSteps())))

	err := s.Schedule(BackupJobID, "*/99 * * * *", func() {})
	assert.ErrorIs(t, err, ErrInvalidExpression)

	lenient := newTestScheduler(t)
	assert.NoError(t, lenient.Schedule(BackupJobID, "*/99 * * * *", func() {}))
}

func TestScheduler_Unschedule(t *testing.T) {
	s := newTestScheduler(t)
	require.NoError(t, s.Schedule(BackupJobID, "* * * * *", func() {}))

	assert.True(t, s.Unschedule(BackupJobID))
	assert.False(t, s.Unschedule(BackupJobID))

	_, ok := s.Next(BackupJobID)
	assert.False(t, ok)
}

func TestNextRuns(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	runs, err := NextRuns("*/15 * * * *", from, 4)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 15, 0, 0, time.UTC), runs[0])
	assert.Equal(t, time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC), runs[3])

	_, err = NextRuns("* * *", from, 1)
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestNormalizeExpression(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "0 2 * * 7", want: "0 2 * * 0"},
		{in: "0 2 * * 1,7", want: "0 2 * * 1,0"},
		{in: "0 2 * * 5-7", want: "0 2 * * 5-6,0"},
		{in: "0 2 * * 7-7", want: "0 2 * * 0"},
		{in: "0 2 * * */2", want: "0 2 * * */2"},
		{in: "0 7 7 7 *", want: "0 7 7 7 *"},
		{in: "bad", want: "bad"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeExpression(tt.in), tt.in)
	}
}
