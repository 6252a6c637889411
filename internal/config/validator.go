package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiValidationError represents multiple validation errors.
type MultiValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}

	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("validation failed with %d errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		builder.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}

var (
	validLevels  = []string{"trace", "debug", "info", "warn", "error"}
	validFormats = []string{"table", "json", "csv"}
)

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	var errors []ValidationError

	if c.Log.Level != "" && !contains(validLevels, c.Log.Level) {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("must be one of %s", strings.Join(validLevels, ", ")),
		})
	}

	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		errors = append(errors, ValidationError{
			Field:   "output.format",
			Message: fmt.Sprintf("must be one of %s", strings.Join(validFormats, ", ")),
		})
	}

	for i, dir := range c.Debug.Directories {
		if strings.TrimSpace(dir) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("debug.directories[%d]", i),
				Message: "directory must not be empty",
			})
		}
	}

	if len(errors) > 0 {
		return &MultiValidationError{Errors: errors}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
