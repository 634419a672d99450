package cron

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aatumaykin/ghbackup/internal/logger"
	"github.com/robfig/cron/v3"
)

// BackupJobID is the registry key of the recurring backup job.
const BackupJobID = "github_backup_job"

// ErrInvalidExpression wraps every rejection produced by Schedule and NextRuns.
var ErrInvalidExpression = errors.New("invalid cron expression")

// JobInfo describes a registered job.
type JobInfo struct {
	ID         string
	Expression string
	Next       time.Time
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLocation sets the timezone used to evaluate expressions.
func WithLocation(loc *time.Location) SchedulerOption {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithValidator replaces the default syntactic validator.
func WithValidator(v *Validator) SchedulerOption {
	return func(s *Scheduler) {
		if v != nil {
			s.validator = v
		}
	}
}

// Scheduler manages recurring jobs on top of robfig/cron.
// Every expression passes the syntactic Validator before it reaches the cron parser.
type Scheduler struct {
	cron      *cron.Cron
	parser    cron.Parser
	validator *Validator
	location  *time.Location
	logger    *logger.Logger

	mu      sync.RWMutex
	started bool
	cancel  context.CancelFunc

	// Job.ID -> cron.EntryID и исходное выражение
	entries     map[string]cron.EntryID
	expressions map[string]string
}

// NewScheduler creates a scheduler. It does not run jobs until Start is called.
func NewScheduler(log *logger.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		parser:      newParser(),
		validator:   defaultValidator,
		location:    time.Local,
		logger:      log,
		entries:     make(map[string]cron.EntryID),
		expressions: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.location))
	return s
}

func newParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
}

// Start starts the cron loop. The loop stops when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true
	s.cron.Start()
	s.logger.Info("cron scheduler started",
		logger.Field{Key: "timezone", Value: s.location.String()})

	go func() {
		<-runCtx.Done()
		<-s.cron.Stop().Done()
		s.logger.Info("cron scheduler stopped")
	}()

	return nil
}

// Stop stops the scheduler. Registered jobs are kept.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return fmt.Errorf("scheduler not started")
	}

	s.cancel()
	s.started = false
	return nil
}

// IsStarted reports whether the cron loop is running.
func (s *Scheduler) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Schedule registers fn under id, replacing any existing job with that id.
func (s *Scheduler) Schedule(id, expression string, fn func()) error {
	if verdict := s.validator.Validate(expression); !verdict.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidExpression, verdict.Reason)
	}

	wrapped := func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("cron job panic recovered", fmt.Errorf("panic: %v", r),
					logger.Field{Key: "job_id", Value: id})
			}
		}()
		fn()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(id)

	entryID, err := s.cron.AddFunc(NormalizeExpression(expression), wrapped)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	s.entries[id] = entryID
	s.expressions[id] = expression

	s.logger.Info("cron job scheduled",
		logger.Field{Key: "job_id", Value: id},
		logger.Field{Key: "schedule", Value: expression},
		logger.Field{Key: "entry_id", Value: entryID})
	return nil
}

// Unschedule removes the job. It reports whether a job was registered under id.
func (s *Scheduler) Unschedule(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.removeLocked(id)
	if removed {
		s.logger.Info("cron job removed", logger.Field{Key: "job_id", Value: id})
	}
	return removed
}

func (s *Scheduler) removeLocked(id string) bool {
	entryID, ok := s.entries[id]
	if !ok {
		return false
	}
	s.cron.Remove(entryID)
	delete(s.entries, id)
	delete(s.expressions, id)
	return true
}

// Next returns the next fire time of the job registered under id.
func (s *Scheduler) Next(id string) (time.Time, bool) {
	s.mu.RLock()
	expression, ok := s.expressions[id]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}

	// cron.Entry.Next заполняется только после Start, поэтому считаем сами
	schedule, err := s.parser.Parse(NormalizeExpression(expression))
	if err != nil {
		return time.Time{}, false
	}
	return schedule.Next(time.Now().In(s.location)), true
}

// Jobs lists registered jobs sorted by next fire time.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	ids := make([]string, 0, len(s.expressions))
	for id := range s.expressions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	jobs := make([]JobInfo, 0, len(ids))
	for _, id := range ids {
		next, ok := s.Next(id)
		if !ok {
			continue
		}
		s.mu.RLock()
		expression := s.expressions[id]
		s.mu.RUnlock()
		jobs = append(jobs, JobInfo{ID: id, Expression: expression, Next: next})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Next.Before(jobs[j].Next) })
	return jobs
}

// NextRuns returns the next n fire times of expression after from.
func NextRuns(expression string, from time.Time, n int) ([]time.Time, error) {
	if verdict := Validate(expression); !verdict.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExpression, verdict.Reason)
	}
	schedule, err := newParser().Parse(NormalizeExpression(expression))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	runs := make([]time.Time, 0, n)
	next := from
	for i := 0; i < n; i++ {
		next = schedule.Next(next)
		if next.IsZero() {
			break
		}
		runs = append(runs, next)
	}
	return runs, nil
}

// NormalizeExpression rewrites day-of-week 7 to 0: robfig/cron only knows 0-6.
// Other fields are returned unchanged.
func NormalizeExpression(expression string) string {
	parts := strings.Fields(expression)
	if len(parts) != len(Fields) {
		return expression
	}
	parts[4] = normalizeDow(parts[4])
	return strings.Join(parts, " ")
}

func normalizeDow(field string) string {
	if field == "*" || strings.HasPrefix(field, "*/") {
		return field
	}

	items := strings.Split(field, ",")
	out := make([]string, 0, len(items)+1)
	for _, item := range items {
		if item == "7" {
			out = append(out, "0")
			continue
		}
		if start, end, ok := strings.Cut(item, "-"); ok && end == "7" {
			if start == "7" {
				out = append(out, "0")
				continue
			}
			out = append(out, start+"-6", "0")
			continue
		}
		out = append(out, item)
	}
	return strings.Join(out, ",")
}
