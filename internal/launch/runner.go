package launch

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// ErrEmptyExecutable is returned when argv[0] is empty. Descriptors accept an
// empty executable path; this is where that surfaces.
var ErrEmptyExecutable = errors.New("executable path is empty")

// maxCapture bounds how much of each output stream is kept.
var maxCapture = 64 << 10

// Result is what a finished process left behind.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int // -1 when the process did not start or was killed
}

// Runner spawns argv and waits for it. A non-zero exit is reported through
// Result.ExitCode, not as an error; errors mean the process could not be
// started or waited for.
type Runner interface {
	Run(ctx context.Context, argv []string) (Result, error)
}

// ExitCoder is satisfied by errors that carry a process exit code
// (e.g., *exec.ExitError).
type ExitCoder interface {
	ExitCode() int
}

// ExecRunner runs argv directly with os/exec; no shell is involved, so paths
// with spaces or quotes reach the program unchanged.
type ExecRunner struct{}

// Run starts argv[0] with argv[1:] and waits. Cancelling ctx kills the process.
func (ExecRunner) Run(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 || argv[0] == "" {
		return Result{ExitCode: -1}, ErrEmptyExecutable
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdout := &cappedBuffer{limit: maxCapture}
	stderr := &cappedBuffer{limit: maxCapture}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, ctxErr
	}
	var ec ExitCoder
	if errors.As(err, &ec) {
		res.ExitCode = ec.ExitCode()
		return res, nil
	}
	res.ExitCode = -1
	return res, err
}

// cappedBuffer keeps the first limit bytes written and discards the rest
// while still reporting full writes, so the child never blocks on a pipe.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if room := c.limit - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
		} else {
			c.buf.Write(p)
		}
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string { return c.buf.String() }
