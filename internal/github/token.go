package github

import (
	"strings"

	"github.com/wasilibs/go-re2"
)

const (
	TokenReasonRequired = "GitHub token is required"
	TokenReasonValid    = "Token format looks valid"
	TokenReasonInvalid  = "Invalid GitHub token format"
)

var (
	// ghp_ (classic PAT) и ghs_ (server-to-server) с переменной длиной
	prefixedTokenPattern = re2.MustCompile(`^gh[ps]_[A-Za-z0-9_]{36,255}$`)
	// legacy 40-hex
	legacyTokenPattern = re2.MustCompile(`^[a-f0-9]{40}$`)
)

// TokenVerdict is the result of the token format pre-check.
type TokenVerdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// IsValidTokenFormat reports whether token has one of the accepted GitHub token shapes.
// It does not contact GitHub.
func IsValidTokenFormat(token string) bool {
	return prefixedTokenPattern.MatchString(token) || legacyTokenPattern.MatchString(token)
}

// ValidateToken runs the format pre-check and returns a field-level verdict.
func ValidateToken(token string) TokenVerdict {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenVerdict{Reason: TokenReasonRequired}
	}
	if IsValidTokenFormat(token) {
		return TokenVerdict{Valid: true, Reason: TokenReasonValid}
	}
	return TokenVerdict{Reason: TokenReasonInvalid}
}
