package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Command is one external command invocation. It is either a shell command, run through
// sh -c, or an argument vector, run directly with no shell in between.
type Command struct {
	shell       string
	args        []string
	stdin       string
	ignoreError bool
}

// Shell returns a Command that will be interpreted by a shell.
func Shell(command string) Command {
	return Command{shell: command}
}

// Args returns a Command that will be executed directly from the given argument vector.
func Args(args ...string) Command {
	return Command{args: args}
}

// WithIgnoreError returns a copy of this Command whose non-zero exits will be logged but not
// returned as errors. Only exit failures are ignored; a command that cannot be started still fails.
func (c Command) WithIgnoreError() Command {
	c.ignoreError = true
	return c
}

// WithStdin returns a copy of this Command with the given string as its standard input.
func (c Command) WithStdin(stdin string) Command {
	c.stdin = stdin
	return c
}

// Display is the form of this Command used for logging and error messages: the shell command
// as-is, or the argument tokens joined with spaces.
func (c Command) Display() string {
	if len(c.args) > 0 {
		return strings.Join(c.args, " ")
	}
	return c.shell
}

func (c Command) Stdin() string {
	return c.stdin
}

type CommandExecutionError struct {
	Command  string
	ExitCode int
}

func (e *CommandExecutionError) Error() string {
	return fmt.Sprintf("command [%s] failed with exit code %d", e.Command, e.ExitCode)
}

// Runner executes external commands. The deployer's one implementation is ExecRunner; tests
// substitute recording fakes.
type Runner interface {
	// Run executes the given command synchronously and returns its decoded standard output.
	// The command's standard error passes through to this process's standard error.
	Run(ctx context.Context, cmd Command) (string, error)
}

type ExecRunner struct {
	logger *slog.Logger
}

func NewRunner(logger *slog.Logger) Runner {
	return &ExecRunner{logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	display := cmd.Display()
	execCmd, err := execCommand(ctx, cmd)
	if err != nil {
		return "", err
	}
	r.logger.Info("running command", slog.String("command", display))
	var stdout bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = os.Stderr
	if len(cmd.stdin) > 0 {
		execCmd.Stdin = strings.NewReader(cmd.stdin)
	}
	if err := execCmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", fmt.Errorf("error running command [%s]: %w", display, err)
		}
		executionError := &CommandExecutionError{Command: display, ExitCode: exitErr.ExitCode()}
		if cmd.ignoreError {
			r.logger.Warn("ignoring command failure", slog.Any("error", executionError))
			return "", nil
		}
		r.logger.Error("command failed",
			slog.String("command", display),
			slog.Int("exitCode", executionError.ExitCode))
		return "", executionError
	}
	return stdout.String(), nil
}

func execCommand(ctx context.Context, cmd Command) (*exec.Cmd, error) {
	if len(cmd.args) > 0 {
		return exec.CommandContext(ctx, cmd.args[0], cmd.args[1:]...), nil
	}
	if len(cmd.shell) > 0 {
		return exec.CommandContext(ctx, "sh", "-c", cmd.shell), nil
	}
	return nil, errors.New("empty command")
}
