package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrInvalidPayload is the cause attached to bodies that decode to nothing.
	ErrInvalidPayload = errors.New("invalid payload")
)

// ValidationError reports a client payload problem. It maps to HTTP 400.
type ValidationError struct {
	// Fields lists offending request fields in request order, when known.
	Fields  []string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) > 0 {
		return "Missing required fields: " + strings.Join(e.Fields, ", ")
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ErrInvalidPayload.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConfigurationError is raised at the point of use when a required setting is
// absent. It never aborts startup.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Setting)
}

// EditServiceError wraps failures of the remote image-editing service,
// including transport errors, FAILED processing states and malformed replies.
type EditServiceError struct {
	Op  string
	Err error
}

func (e *EditServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("image edit failed (%s)", e.Op)
	}
	return fmt.Sprintf("image edit failed (%s): %v", e.Op, e.Err)
}

func (e *EditServiceError) Unwrap() error { return e.Err }

// PipelineStageError carries the captured output of an external stage that
// exited non-zero or could not be started (ExitCode -1).
type PipelineStageError struct {
	Stage    string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *PipelineStageError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		detail = strings.TrimSpace(e.Stdout)
	}
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	return fmt.Sprintf("pipeline stage %s failed (exit %d): %s", e.Stage, e.ExitCode, detail)
}

func (e *PipelineStageError) Unwrap() error { return e.Err }

// ResultNotFoundError means every stage exited cleanly but no recognizable
// output was left behind.
type ResultNotFoundError struct {
	Root   string
	Reason string
}

func (e *ResultNotFoundError) Error() string {
	return "generated video not found: " + e.Reason
}

// ErrorKind classifies err for logs, metrics and the run journal.
func ErrorKind(err error) string {
	var (
		validation *ValidationError
		config     *ConfigurationError
		edit       *EditServiceError
		stage      *PipelineStageError
		missing    *ResultNotFoundError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &config):
		return "configuration"
	case errors.As(err, &edit):
		return "edit_service"
	case errors.As(err, &stage):
		return "pipeline_stage"
	case errors.As(err, &missing):
		return "result_not_found"
	default:
		return "internal"
	}
}
