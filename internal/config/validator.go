package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/coral-mesh/linemap/internal/linemap"
	"github.com/coral-mesh/linemap/internal/logging"
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
	fmt.Fprintf(&builder, "validation failed with %d errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&builder, "  %d. %s\n", i+1, err.Error())
	}
	return builder.String()
}

// Validate validates Config.
func (c *Config) Validate() error {
	var errs []ValidationError

	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("log level must be one of %s", strings.Join(logging.Levels, ", ")),
		})
	}

	if _, err := linemap.ParseFormat(c.Output.Format); err != nil {
		errs = append(errs, ValidationError{
			Field:   "output.format",
			Message: "output format must be 'csv', 'json' or 'text'",
		})
	}

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}

// Validate validates Manifest.
func (m *Manifest) Validate() error {
	var errs []ValidationError

	if len(m.Images) == 0 {
		errs = append(errs, ValidationError{
			Field:   "images",
			Message: "at least one image is required",
		})
	}

	var seen []string
	for i, img := range m.Images {
		field := fmt.Sprintf("images[%d]", i)
		if img.Path == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".path",
				Message: "image path is required",
			})
			continue
		}

		module := img.ModuleName()
		if strings.ContainsAny(module, `/\`) {
			errs = append(errs, ValidationError{
				Field:   field + ".module",
				Message: fmt.Sprintf("module %q must not contain path separators", module),
			})
		}
		if slices.Contains(seen, module) {
			errs = append(errs, ValidationError{
				Field:   field + ".module",
				Message: fmt.Sprintf("module %q is listed more than once", module),
			})
		}
		seen = append(seen, module)
	}

	if len(errs) > 0 {
		return &MultiValidationError{Errors: errs}
	}
	return nil
}
