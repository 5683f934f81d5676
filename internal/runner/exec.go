// Package runner drives Maven builds for a Java project: the test run that
// produces the JaCoCo report and the Checkstyle/PMD checks.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result is the outcome of one external command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Executor runs external commands. Tests substitute a fake.
type Executor interface {
	// Run executes name with args in dir. A non-zero exit status is reported
	// in Result.ExitCode, not as an error; errors mean the command could not
	// run or ctx ended first.
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
	// LookPath reports where name is installed.
	LookPath(name string) (string, error)
}

// OSExecutor runs commands with os/exec.
type OSExecutor struct{}

// Run implements Executor.
func (OSExecutor) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case errors.Is(err, exec.ErrNotFound):
		return res, &ToolNotFoundError{Tool: name}
	default:
		return res, fmt.Errorf("running %s: %w", name, err)
	}
	return res, nil
}

// LookPath implements Executor.
func (OSExecutor) LookPath(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", &ToolNotFoundError{Tool: name}
	}
	return p, nil
}

// TimeoutError is returned when a command outlives its budget.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Command, e.Timeout)
}

// Unwrap lets errors.Is match context.DeadlineExceeded.
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// ToolNotFoundError is returned when a required executable is not on PATH.
type ToolNotFoundError struct {
	Tool string
}

// Error implements the error interface.
func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s not found on PATH", e.Tool)
}

// RunWithTimeout runs a command under its own deadline and turns an
// expired deadline into a *TimeoutError. Cancellation of the parent
// context is returned as is.
func RunWithTimeout(ctx context.Context, ex Executor, timeout time.Duration, dir, name string, args ...string) (Result, error) {
	if timeout <= 0 {
		return ex.Run(ctx, dir, name, args...)
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := ex.Run(tctx, dir, name, args...)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return res, &TimeoutError{Command: name + " " + strings.Join(args, " "), Timeout: timeout}
	}
	return res, err
}

// Tail returns at most the last n bytes of s without splitting a UTF-8
// sequence.
func Tail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !isRuneStart(s[i]) {
		i++
	}
	return s[i:]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
