package github

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		valid  bool
		reason string
	}{
		{name: "empty", token: "", reason: TokenReasonRequired},
		{name: "whitespace", token: "   ", reason: TokenReasonRequired},
		{name: "classic pat", token: "ghp_" + strings.Repeat("A", 36), valid: true, reason: TokenReasonValid},
		{name: "server token", token: "ghs_" + strings.Repeat("a1_", 20), valid: true, reason: TokenReasonValid},
		{name: "max length", token: "ghp_" + strings.Repeat("z", 255), valid: true, reason: TokenReasonValid},
		{name: "too long", token: "ghp_" + strings.Repeat("z", 256), reason: TokenReasonInvalid},
		{name: "too short", token: "ghp_" + strings.Repeat("A", 35), reason: TokenReasonInvalid},
		{name: "oauth prefix rejected", token: "gho_" + strings.Repeat("A", 36), reason: TokenReasonInvalid},
		{name: "legacy hex", token: strings.Repeat("a1", 20), valid: true, reason: TokenReasonValid},
		{name: "legacy uppercase rejected", token: strings.Repeat("A1", 20), reason: TokenReasonInvalid},
		{name: "legacy wrong length", token: strings.Repeat("a", 39), reason: TokenReasonInvalid},
		{name: "garbage", token: "not-a-token", reason: TokenReasonInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateToken(tt.token)
			assert.Equal(t, tt.valid, v.Valid)
			assert.Equal(t, tt.reason, v.Reason)
			if tt.token != "" && strings.TrimSpace(tt.token) != "" {
				assert.Equal(t, tt.valid, IsValidTokenFormat(tt.token))
			}
		})
	}
}
