package config

import "strings"

// MaskSecret оставляет видимыми только первые и последние 4 символа.
// Секреты короче 8 символов маскируются полностью.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) < 8 {
		return "***"
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

// ValidationError is a validation failure that never echoes the raw secret.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// formatValidationError builds a ValidationError with the secret masked.
func formatValidationError(field, message, secret string) error {
	msg := field + ": " + message
	if masked := MaskSecret(secret); masked != "" {
		msg += " (value: " + masked + ")"
	}
	return &ValidationError{Field: field, Message: msg}
}
