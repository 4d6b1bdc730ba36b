package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	cerrors "cloudkit/internal/errors"
	"cloudkit/pkg/runtime"
)

const (
	// DefaultBinary is the cloud CLI driven by cli-registry sessions.
	DefaultBinary = "gcloud"
)

// ExecCommandFunc creates the exec.Cmd for a tool invocation.
// Tests replace it to avoid running the real binary.
type ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

// CommandRunner runs a cloud CLI with a fixed set of leading arguments.
type CommandRunner struct {
	binary      string
	defaultArgs []string
	execCommand ExecCommandFunc
	stdout      io.Writer
}

// Option configures a CommandRunner.
type Option func(*CommandRunner)

// WithExecCommand replaces how commands are created.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(r *CommandRunner) { r.execCommand = fn }
}

// WithStdout sets where ShowStdout echoes output.
func WithStdout(w io.Writer) Option {
	return func(r *CommandRunner) { r.stdout = w }
}

// NewCommandRunner returns a runner for binary that prepends defaultArgs to every call.
func NewCommandRunner(binary string, defaultArgs []string, opts ...Option) *CommandRunner {
	r := &CommandRunner{
		binary:      binary,
		defaultArgs: defaultArgs,
		execCommand: exec.CommandContext,
		stdout:      os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewGCloudRunner returns the runner used for cli-registry sessions: gcloud in quiet mode.
func NewGCloudRunner(opts ...Option) *CommandRunner {
	return NewCommandRunner(DefaultBinary, []string{"-q"}, opts...)
}

var _ runtime.CommandExecutor = (*CommandRunner)(nil)

// Execute runs the tool and returns its stdout. It fails on a non-zero exit,
// or on stderr output unless opts.IgnoreStderr is set.
func (r *CommandRunner) Execute(ctx context.Context, args []string, opts runtime.ExecOptions) (string, error) {
	fullArgs := append(append([]string{}, r.defaultArgs...), args...)
	cmdLine := r.binary + " " + strings.Join(fullArgs, " ")

	slog.Info("Executing cloud CLI command", "command", cmdLine)

	var stdout, stderr bytes.Buffer
	cmd := r.execCommand(ctx, r.binary, fullArgs...)
	cmd.Stdout = &stdout
	if opts.ShowStdout {
		cmd.Stdout = io.MultiWriter(&stdout, r.stdout)
	}
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", commandFailure(cmdLine, exitErr.ExitCode(), stderr.String(), stdout.String(), err)
		}
		return "", cerrors.NewCommandError("Command not found when running: "+cmdLine, err.Error(),
			fmt.Sprintf("Install %s and make sure it is on PATH", r.binary), fmt.Errorf("failed to run %s: %w", cmdLine, err))
	}

	if stderr.Len() > 0 {
		if !opts.IgnoreStderr {
			return "", commandFailure(cmdLine, 0, stderr.String(), stdout.String(), errors.New("unexpected output on stderr"))
		}
		slog.Debug("Ignoring cloud CLI stderr", "command", cmdLine, "stderr", strings.TrimSpace(stderr.String()))
	}

	out := stdout.String()
	if opts.FlattenOutput {
		return flatten(out), nil
	}
	return out, nil
}

// flatten joins output lines into one string.
func flatten(out string) string {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	return strings.Join(lines, "")
}

func commandFailure(cmdLine string, code int, stderr, stdout string, err error) error {
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		detail = strings.TrimSpace(stdout)
	}
	return cerrors.NewCommandError(
		fmt.Sprintf("Error %d when running: %s", code, cmdLine),
		detail,
		"Check the cloud CLI output above and your service-account permissions",
		fmt.Errorf("%s failed (exit %d): %s: %w", cmdLine, code, detail, err),
	)
}
