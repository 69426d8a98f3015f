package security

import (
	"fmt"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordValidator checks candidate passwords against a minimum length and a
// zxcvbn strength score (0..4).
type PasswordValidator struct {
	minLength int
	minScore  int
}

// NewPasswordValidator constructs a validator with explicit thresholds.
func NewPasswordValidator(minLength, minScore int) *PasswordValidator {
	if minLength <= 0 {
		minLength = 8
	}
	if minScore < 0 {
		minScore = 0
	}
	if minScore > 4 {
		minScore = 4
	}
	return &PasswordValidator{minLength: minLength, minScore: minScore}
}

// DefaultPasswordValidator returns a validator with sensible defaults.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(8, 2)
}

// Validate returns the first policy violation, or nil.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}

	if len([]rune(password)) < v.minLength {
		return &PasswordValidationError{
			Code:    "min_length",
			Message: fmt.Sprintf("password must be at least %d characters long", v.minLength),
		}
	}

	result := zxcvbn.PasswordStrength(password, nil)
	if result.Score < v.minScore {
		return &PasswordValidationError{
			Code:    "weak_password",
			Message: "password is too easy to guess",
		}
	}

	return nil
}
