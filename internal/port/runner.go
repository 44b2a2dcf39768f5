package port

import (
	"context"
	"io"
)

// ProcessRunner spawns an external program from an argument vector and
// waits for it to exit. A non-nil launchErr means the process never
// started; otherwise exitCode carries its exit status.
type ProcessRunner interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) (exitCode int, launchErr error)
}
