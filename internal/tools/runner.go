package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	// exitCodeNotFound mirrors the shell's status for a missing executable.
	exitCodeNotFound = 127

	// waitDelay bounds how long Wait keeps copying output after the process
	// group was killed. A grandchild that escaped the group cannot hold the
	// pipes open past it.
	waitDelay = time.Second
)

// CommandRunner executes a command to completion.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, exitCode int, err error)
}

// StreamRunner starts a long-running command whose stdout is consumed line by line.
type StreamRunner interface {
	Stream(ctx context.Context, name string, args ...string) (Stream, error)
}

// Stream is a running command with an open stdout.
type Stream interface {
	// Stdout is the command's standard output.
	Stdout() io.Reader
	// Wait blocks until the command exits and releases its resources.
	Wait() error
	// Kill terminates the command. Safe to call more than once.
	Kill() error
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

// Run executes name with args. A cancelled or expired ctx kills the process
// and everything it started.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	cmd := newCommand(ctx, name, args...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %w", ctxErr, err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), exitErr.ExitCode(), err
	}

	exitCode := 1

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		exitCode = exitCodeNotFound
	}

	return stdout.Bytes(), stderr.Bytes(), exitCode, err
}

// Stream starts name with args and returns its stdout.
func (ExecRunner) Stream(ctx context.Context, name string, args ...string) (Stream, error) {
	cmd := newCommand(ctx, name, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	return &execStream{cmd: cmd, stdout: stdout}, nil
}

// newCommand builds a command bound to ctx that runs in its own process group.
func newCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay

	setProcessGroup(cmd)

	return cmd
}

// execStream adapts *exec.Cmd to Stream.
type execStream struct {
	cmd    *exec.Cmd
	stdout io.Reader
}

func (s *execStream) Stdout() io.Reader {
	return s.stdout
}

func (s *execStream) Wait() error {
	return s.cmd.Wait()
}

func (s *execStream) Kill() error {
	if s.cmd.ProcessState != nil {
		return nil
	}

	err := killProcessGroup(s.cmd)
	if err != nil && errors.Is(err, os.ErrProcessDone) {
		return nil
	}

	return err
}

// CommandError describes a non-zero exit with the tool's own stderr.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}

	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Output runs a command and folds a failure into *CommandError.
func Output(ctx context.Context, runner CommandRunner, name string, args ...string) ([]byte, error) {
	stdout, stderr, exitCode, err := runner.Run(ctx, name, args...)
	if err != nil {
		return stdout, &CommandError{
			Command:  name,
			ExitCode: exitCode,
			Stderr:   string(stderr),
			Err:      err,
		}
	}

	return stdout, nil
}
