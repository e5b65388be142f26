package domain

import (
	"fmt"
	"strings"
	"time"
)

// RunStatus enumerates the outcome of a generation run.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// ParseRunStatus accepts "", "succeeded" or "failed".
func ParseRunStatus(raw string) (RunStatus, error) {
	switch s := RunStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case "", RunStatusSucceeded, RunStatusFailed:
		return s, nil
	}
	return "", fmt.Errorf("unknown run status %q", raw)
}

// Run is the journal entry written once per generation request.
type Run struct {
	ID           string
	RequestID    string
	Mode         string
	EditPrompt   string
	ScenePrompt  string
	Status       RunStatus
	ErrorKind    string
	ErrorMessage string
	StartedAt    time.Time
	Duration     time.Duration
}
