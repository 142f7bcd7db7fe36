package karma

import (
	"errors"
	"fmt"
)

var (
	// ErrStartCancelled settles a start outcome that will never see a port,
	// because the process ended or the caller's wait timed out.
	ErrStartCancelled = errors.New("karma server start cancelled")

	// ErrStartTimeout is the timeout flavour of ErrStartCancelled.
	ErrStartTimeout = fmt.Errorf("%w: timed out waiting for the start line", ErrStartCancelled)
)

// ConfigurationError reports an unusable launch configuration. It is
// returned synchronously, before any process is spawned.
type ConfigurationError struct {
	Field  string
	Path   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("karma configuration error in %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("karma configuration error in %s (%s): %s", e.Field, e.Path, e.Reason)
}

// InvalidOperationError is returned by Start when a lifecycle is already
// active.
type InvalidOperationError struct {
	State State
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("the karma server is already %s", e.State)
}
