// Package protocexec runs finalized compiler invocations as subprocesses.
package protocexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/protostage/protostage/internal/domain"
	"github.com/protostage/protostage/internal/usecase"
)

// Runner implements the usecase.CompilerRunner interface using os/exec.
// It is the only place in the pipeline where a process is spawned.
type Runner struct {
	logger *slog.Logger
}

// New creates a new compiler Runner.
func New(logger *slog.Logger) *Runner {
	return &Runner{
		logger: logger.With("component", "compiler_runner"),
	}
}

// Run spawns the compiler described by the invocation and waits for it to
// finish, capturing stdout and stderr. A non-zero exit is returned as an
// error carrying the exit code and the captured stderr; the ExecResult is
// populated in both cases so callers can surface compiler diagnostics.
func (r *Runner) Run(ctx context.Context, inv domain.Invocation) (*usecase.ExecResult, error) {
	args := inv.Args()
	if len(args) == 0 {
		return nil, fmt.Errorf("refusing to run an empty invocation")
	}

	log := r.logger.With(slog.String("executable", inv.Executable()))
	log.Info("Running compiler.", slog.Int("arg_count", len(args)-1))
	log.Debug("Full command line.", slog.Any("args", args))

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := &usecase.ExecResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			log.Error("Compiler exited with failure.",
				slog.Int("exit_code", result.ExitCode),
				slog.String("stderr", result.Stderr))
			return result, fmt.Errorf("compiler exited with code %d: %s", result.ExitCode, result.Stderr)
		}
		log.Error("Failed to run compiler.", slog.Any("error", runErr))
		return result, fmt.Errorf("failed to run compiler: %w", runErr)
	}

	log.Info("Compiler finished.", slog.Int("exit_code", result.ExitCode))
	return result, nil
}
