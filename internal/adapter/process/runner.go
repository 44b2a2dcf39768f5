package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/bnema/transcoder/internal/port"
)

var (
	ErrEmptyName       = errors.New("empty executable name")
	ErrInvalidArgument = errors.New("argument contains null byte")
)

// Runner spawns processes directly from an argument vector; no shell is
// involved.
type Runner struct{}

func NewRunner() *Runner {
	return &Runner{}
}

// Run starts name with args and blocks until it exits. The context is not
// used to kill the process: a started job always runs to completion.
func (r *Runner) Run(_ context.Context, name string, args []string, stdout, stderr io.Writer) (int, error) {
	if err := validateArgs(name, args); err != nil {
		return -1, err
	}

	cmd := exec.Command(name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return -1, err
	}

	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	// The process ran but copying its output failed; report its exit status.
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode(), nil
	}
	return -1, fmt.Errorf("wait for %s: %w", name, err)
}

func validateArgs(name string, args []string) error {
	if name == "" {
		return ErrEmptyName
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("invalid executable name: %w", ErrInvalidArgument)
	}
	for i, a := range args {
		if strings.ContainsRune(a, 0) {
			return fmt.Errorf("invalid argument %d: %w", i, ErrInvalidArgument)
		}
	}
	return nil
}

var _ port.ProcessRunner = (*Runner)(nil)
