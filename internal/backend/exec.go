package backend

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// defaultTimeout bounds non-interactive CLI calls. A hung password manager
// must surface as a timeout, not a silent deadlock.
const defaultTimeout = 30 * time.Second

// interactiveTimeout bounds authentication flows that may wait on the user
// in another window. This is the one place a timeout is mandatory rather
// than optional.
const interactiveTimeout = 5 * time.Minute

// runner invokes an external CLI with an argument list (never a shell
// string) and a hard timeout.
type runner struct {
	command string
	timeout time.Duration
}

// lookPath reports whether the CLI binary is on PATH.
func (r runner) lookPath() bool {
	_, err := exec.LookPath(r.command)
	return err == nil
}

// run executes the CLI and returns trimmed stdout. stdin may be empty.
func (r runner) run(ctx context.Context, stdin string, args ...string) (string, error) {
	timeout := r.timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.command, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", &NotAvailableError{Backend: r.command, Reason: "timed out"}
	}
	if err != nil {
		// Stderr may echo user input on some CLIs; only its first line
		// is safe to surface.
		return "", &cliError{command: r.command, args: args, detail: firstLine(stderr.String()), err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// cliError wraps a failed CLI invocation without leaking secret material.
type cliError struct {
	command string
	args    []string
	detail  string
	err     error
}

func (e *cliError) Error() string {
	if e.detail != "" {
		return e.command + " " + firstWord(e.args) + ": " + e.detail
	}
	return e.command + " " + firstWord(e.args) + ": " + e.err.Error()
}

func (e *cliError) Unwrap() error { return e.err }

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

func firstWord(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
