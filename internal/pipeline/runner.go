package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
)

// Output is what a successful stage printed.
type Output struct {
	Stdout string
	Stderr string
}

// Runner executes a single pipeline stage and waits for it to exit.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Output, error)
}

// ExecRunner runs stages as local subprocesses. A launched stage is never
// killed: ctx only carries request-scoped values, so neither a client
// disconnect nor a deadline stops it.
type ExecRunner struct {
	logger zerolog.Logger
}

func NewExecRunner(logger zerolog.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

// Run starts the command and blocks until it exits. A non-zero exit, or a
// failure to start, yields *domain.PipelineStageError with captured output.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (*Output, error) {
	log := r.logger.With().Str("stage", inv.Stage).Logger()
	log.Info().Str("dir", inv.Dir).Str("command", inv.String()).Msg("pipeline: starting stage")

	cmd := exec.Command(inv.Command, inv.Args...)
	cmd.Dir = inv.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := &Output{Stdout: stdout.String(), Stderr: stderr.String()}
	log.Debug().
		Dur("elapsed", time.Since(start)).
		Str("stdout", out.Stdout).
		Str("stderr", out.Stderr).
		Msg("pipeline: stage exited")

	if err == nil {
		return out, nil
	}

	stageErr := &domain.PipelineStageError{
		Stage:    inv.Stage,
		ExitCode: -1,
		Stdout:   out.Stdout,
		Stderr:   out.Stderr,
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stageErr.ExitCode = exitErr.ExitCode()
	}
	log.Error().Err(err).Int("exit_code", stageErr.ExitCode).Msg("pipeline: stage failed")
	return nil, stageErr
}

var _ Runner = (*ExecRunner)(nil)
