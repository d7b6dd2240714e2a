package printer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an OS command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// CommandError is a command that exited with an error. Its message is the
// command's own output, unchanged, so it can be stored on the order as is.
type CommandError struct {
	Name   string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Output != "" {
		return e.Output
	}
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs commands with os/exec. The context bounds the command.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err == nil {
		return text, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return text, fmt.Errorf("%s timed out: %w", name, ctx.Err())
	}
	return text, &CommandError{Name: name, Output: text, Err: err}
}
