package config

import (
	"fmt"
	"regexp"
	"strings"

	"karmactl/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}

	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Validate checks the merged settings.
func (s Settings) Validate() error {
	var errors ValidationErrors

	if fields, err := s.NodeCommand(); err != nil {
		errors = append(errors, ValidationError{Field: "node", Message: err.Error()})
	} else if len(fields) == 0 {
		errors = append(errors, ValidationError{Field: "node", Message: "node command is required"})
	}

	if strings.TrimSpace(s.StartScript) == "" {
		errors = append(errors, ValidationError{Field: "startScript", Message: "start script is required"})
	}

	if re, err := regexp.Compile(s.StartPattern); err != nil {
		errors = append(errors, ValidationError{Field: "startPattern", Message: err.Error()})
	} else if re.NumSubexp() < 1 {
		errors = append(errors, ValidationError{Field: "startPattern", Message: "pattern needs a capture group for the port"})
	}

	if s.StartTimeoutMs < 0 {
		errors = append(errors, ValidationError{Field: "startTimeoutMs", Message: "must not be negative"})
	}
	if s.StopGracePeriodMs < 0 {
		errors = append(errors, ValidationError{Field: "stopGracePeriodMs", Message: "must not be negative"})
	}
	if s.OutputBufferLines < 0 {
		errors = append(errors, ValidationError{Field: "outputBufferLines", Message: "must not be negative"})
	}

	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		errors = append(errors, ValidationError{Field: "logLevel", Message: err.Error()})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}
