// Package cron provides syntactic validation of five-field cron expressions
// and a robfig/cron based scheduler for the recurring backup job.
package cron

import (
	"fmt"
	"strconv"
	"strings"
)

// Reason strings shared with the dashboard feedback.
const (
	ReasonRequired   = "Cron expression is required when scheduling is enabled"
	ReasonFieldCount = "Cron expression must have 5 parts: minute hour day month day_of_week"
	ReasonValid      = "Valid cron expression"
)

// FieldSpec описывает допустимый диапазон одного поля выражения.
type FieldSpec struct {
	Name string
	Min  int
	Max  int
}

// Fields lists the five positional fields in expression order.
// Day of week accepts both 0 and 7 for Sunday.
var Fields = [5]FieldSpec{
	{Name: "minute", Min: 0, Max: 59},
	{Name: "hour", Min: 0, Max: 23},
	{Name: "day", Min: 1, Max: 31},
	{Name: "month", Min: 1, Max: 12},
	{Name: "day_of_week", Min: 0, Max: 7},
}

// Verdict is the outcome of validating a field or a whole expression.
type Verdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

func valid() Verdict { return Verdict{Valid: true, Reason: ReasonValid} }

func invalid(format string, args ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

// Option configures a Validator.
type Option func(*Validator)

// WithStrictSteps rejects */N steps larger than the field maximum.
// Without it */99 in the minute field is accepted.
func WithStrictSteps() Option {
	return func(v *Validator) { v.strictSteps = true }
}

// Validator checks cron expressions field by field. The zero value is ready to use.
type Validator struct {
	strictSteps bool
}

// NewValidator creates a validator with the given options.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var defaultValidator = &Validator{}

// Validate checks expression with the default (lenient step) rules.
func Validate(expression string) Verdict {
	return defaultValidator.Validate(expression)
}

// Validate returns Valid when expression has five syntactically valid fields.
func (v *Validator) Validate(expression string) Verdict {
	if strings.TrimSpace(expression) == "" {
		return Verdict{Reason: ReasonRequired}
	}

	parts := strings.Fields(expression)
	if len(parts) != len(Fields) {
		return Verdict{Reason: ReasonFieldCount}
	}

	for i, part := range parts {
		if verdict := v.validateField(part, Fields[i]); !verdict.Valid {
			return verdict
		}
	}
	return valid()
}

// validateField проверяет токен по формам: wildcard, step, range, list, single.
// Первая подходящая форма определяет результат.
func (v *Validator) validateField(part string, spec FieldSpec) Verdict {
	if part == "*" || part == "*/1" {
		return valid()
	}

	if stepRaw, ok := strings.CutPrefix(part, "*/"); ok {
		step, err := strconv.Atoi(stepRaw)
		if err != nil || step <= 0 {
			return invalid("Invalid step value in %s: %s", spec.Name, part)
		}
		if v.strictSteps && step > spec.Max {
			return invalid("Step value out of range in %s: %s (max %d)", spec.Name, part, spec.Max)
		}
		return valid()
	}

	if strings.Contains(part, "-") {
		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return invalid("Invalid range in %s: %s", spec.Name, part)
		}
		start, errStart := strconv.Atoi(bounds[0])
		end, errEnd := strconv.Atoi(bounds[1])
		if errStart != nil || errEnd != nil || start > end || start < spec.Min || end > spec.Max {
			return invalid("Invalid range in %s: %s", spec.Name, part)
		}
		return valid()
	}

	if strings.Contains(part, ",") {
		for _, item := range strings.Split(part, ",") {
			if !inRange(item, spec) {
				return invalid("Invalid value in %s: %s", spec.Name, item)
			}
		}
		return valid()
	}

	if !inRange(part, spec) {
		return invalid("Invalid value in %s: %s (must be %d-%d)", spec.Name, part, spec.Min, spec.Max)
	}
	return valid()
}

func inRange(s string, spec FieldSpec) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= spec.Min && n <= spec.Max
}
