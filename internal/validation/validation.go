// Package validation checks identifiers arriving from outside the process.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const maxIDLength = 64

var idRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]*$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateID checks that a required identifier is present and well formed
func ValidateID(field, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	return validateFormat(field, id)
}

// ValidateOptionalID is ValidateID for identifiers that may be omitted
func ValidateOptionalID(field, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return validateFormat(field, id)
}

func validateFormat(field, id string) error {
	if len(id) > maxIDLength {
		return ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters", maxIDLength)}
	}
	if !idRegex.MatchString(id) {
		return ValidationError{Field: field, Message: "may only contain letters, digits, '.', '_', ':' and '-'"}
	}
	return nil
}
