package cron

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		valid      bool
		reason     string
	}{
		{name: "every minute", expression: "* * * * *", valid: true, reason: ReasonValid},
		{name: "daily at 2am", expression: "0 2 * * *", valid: true, reason: ReasonValid},
		{name: "step every 15 minutes", expression: "*/15 * * * *", valid: true},
		{name: "step of one", expression: "*/1 */1 * * *", valid: true},
		{name: "zero step", expression: "*/0 * * * *", reason: "Invalid step value in minute: */0"},
		{name: "negative step", expression: "* */-2 * * *", reason: "Invalid step value in hour: */-2"},
		{name: "non numeric step", expression: "*/x * * * *", reason: "Invalid step value in minute: */x"},
		{name: "unbounded step accepted", expression: "*/99 * * * *", valid: true},
		{name: "range", expression: "10-20 * * * *", valid: true},
		{name: "reversed range", expression: "20-10 * * * *", reason: "Invalid range in minute: 20-10"},
		{name: "range above max", expression: "* 0-24 * * *", reason: "Invalid range in hour: 0-24"},
		{name: "range below min", expression: "* * 0-5 * *", reason: "Invalid range in day: 0-5"},
		{name: "range with three parts", expression: "1-2-3 * * * *", reason: "Invalid range in minute: 1-2-3"},
		{name: "range takes precedence over list", expression: "1-3,5 * * * *", reason: "Invalid range in minute: 1-3,5"},
		{name: "list", expression: "0,15,30,45 * * * *", valid: true},
		{name: "list out of range", expression: "0,60 * * * *", reason: "Invalid value in minute: 60"},
		{name: "list with empty element", expression: "* * * 1,,3 *", reason: "Invalid value in month: "},
		{name: "minute upper bound", expression: "59 * * * *", valid: true},
		{name: "minute above max", expression: "60 * * * *", reason: "Invalid value in minute: 60 (must be 0-59)"},
		{name: "month zero", expression: "* * * 0 *", reason: "Invalid value in month: 0 (must be 1-12)"},
		{name: "sunday as zero", expression: "* * * * 0", valid: true},
		{name: "sunday as seven", expression: "* * * * 7", valid: true},
		{name: "day of week eight", expression: "* * * * 8", reason: "Invalid value in day_of_week: 8 (must be 0-7)"},
		{name: "named month rejected", expression: "* * * JAN *", reason: "Invalid value in month: JAN (must be 1-12)"},
		{name: "extra whitespace", expression: "  0   2\t* *  *  ", valid: true},
		{name: "empty", expression: "", reason: ReasonRequired},
		{name: "whitespace only", expression: " \t ", reason: ReasonRequired},
		{name: "four fields", expression: "* * * *", reason: ReasonFieldCount},
		{name: "six fields", expression: "0 * * * * *", reason: ReasonFieldCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := Validate(tt.expression)
			assert.Equal(t, tt.valid, verdict.Valid)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, verdict.Reason)
			}
			if tt.valid {
				assert.Equal(t, ReasonValid, verdict.Reason)
			}
		})
	}
}

func TestValidate_FieldCountForAnyTokenCount(t *testing.T) {
	for n := 1; n <= 10; n++ {
		if n == 5 {
			continue
		}
		expression := ""
		for i := 0; i < n; i++ {
			expression += "* "
		}
		verdict := Validate(expression)
		assert.False(t, verdict.Valid, "tokens=%d", n)
		assert.Equal(t, ReasonFieldCount, verdict.Reason, "tokens=%d", n)
	}
}

func TestValidate_Idempotent(t *testing.T) {
	for _, expression := range []string{"*/15 * * * *", "0,60 * * * *", "", "20-10 * * * *"} {
		first := Validate(expression)
		second := Validate(expression)
		assert.Equal(t, first, second, expression)
	}
}

func TestValidator_StrictSteps(t *testing.T) {
	v := NewValidator(WithStrictSteps())

	verdict := v.Validate("*/99 * * * *")
	assert.False(t, verdict.Valid)
	assert.Equal(t, "Step value out of range in minute: */99 (max 59)", verdict.Reason)

	assert.True(t, v.Validate("*/59 */23 * * *").Valid)
	assert.True(t, v.Validate("* * * * *").Valid)
}

func TestValidator_ZeroValue(t *testing.T) {
	var v Validator
	assert.True(t, v.Validate("*/99 * * * *").Valid)
}
