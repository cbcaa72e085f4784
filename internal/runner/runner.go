// Package runner executes external commands with captured output and
// per-invocation environment overlays.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command describes a single external command invocation.
type Command struct {
	Argv    []string
	Dir     string
	Env     map[string]string // overlay merged over the process environment, child only
	Quiet   bool              // suppress echoing of the command line and its output
	NoCheck bool              // report a non-zero exit in Result instead of failing
	Redact  []string          // substrings masked before anything is echoed or wrapped in errors
}

// Result carries the combined stdout+stderr text and the exit status.
type Result struct {
	Output   string
	ExitCode int
}

// Runner runs commands. The Local implementation spawns real processes;
// tests substitute fakes to assert on issued command lines.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// CommandError reports a command that exited non-zero. The argv it carries
// has redactions already applied.
type CommandError struct {
	Argv     []string
	ExitCode int
	Output   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed (exit %d): %s", e.ExitCode, strings.Join(e.Argv, " "))
}

// Local runs commands via os/exec.
type Local struct {
	// Echo receives the command line and captured output when not quiet.
	// Defaults to os.Stdout.
	Echo io.Writer
}

// NewLocal returns a Runner echoing to stdout.
func NewLocal() *Local {
	return &Local{Echo: os.Stdout}
}

// Run executes the command synchronously. stdout and stderr are merged into
// one stream. Context cancellation kills the child process.
func (l *Local) Run(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Argv) == 0 {
		return Result{}, fmt.Errorf("runner: empty command")
	}

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	c.Env = mergeEnv(os.Environ(), cmd.Env)

	var buf bytes.Buffer
	c.Stdout = &buf
	c.Stderr = &buf

	if !cmd.Quiet {
		fmt.Fprintf(l.echo(), "$ %s\n", redact(strings.Join(cmd.Argv, " "), cmd.Redact))
	}

	runErr := c.Run()
	out := buf.String()

	if !cmd.Quiet && out != "" {
		fmt.Fprintln(l.echo(), redact(out, cmd.Redact))
	}

	res := Result{Output: out, ExitCode: exitCode(c, runErr)}

	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			// Spawn failure (binary missing, context canceled before start, ...).
			return res, fmt.Errorf("runner: starting %s: %w", cmd.Argv[0], runErr)
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if !cmd.NoCheck {
			return res, &CommandError{
				Argv:     redactArgv(cmd.Argv, cmd.Redact),
				ExitCode: res.ExitCode,
				Output:   redact(out, cmd.Redact),
			}
		}
	}

	return res, nil
}

func (l *Local) echo() io.Writer {
	if l.Echo != nil {
		return l.Echo
	}
	return os.Stdout
}

func exitCode(c *exec.Cmd, runErr error) int {
	if c.ProcessState != nil {
		return c.ProcessState.ExitCode()
	}
	if runErr != nil {
		return -1
	}
	return 0
}

func mergeEnv(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, shadowed := overlay[key]; shadowed {
			continue
		}
		out = append(out, kv)
	}
	for k, v := range overlay {
		out = append(out, k+"="+v)
	}
	return out
}

func redact(s string, secrets []string) string {
	for _, sec := range secrets {
		if sec == "" {
			continue
		}
		s = strings.ReplaceAll(s, sec, "***")
	}
	return s
}

func redactArgv(argv, secrets []string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = redact(a, secrets)
	}
	return out
}
