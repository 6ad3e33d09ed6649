package verifier

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// Result captures the verifier's terminal decision.
type Result struct {
	Success    bool
	Similarity float64
	Output     string
}

// Runner defines external verifier behaviour. The process is handed the
// two upload paths and the claimed name, emits PROGRESS:<n> markers on
// stdout while it works, and prints a similarity line on completion.
type Runner interface {
	Verify(ctx context.Context, documentPath, videoPath, fullName string, progress func(int)) (*Result, error)
}

// StartError reports that the verifier process could not be launched.
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start verifier: %v", e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// ExitError reports a non-zero verifier exit.
type ExitError struct {
	Err     error
	Details string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("verifier failed: %v", e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Option configures the CLI runner.
type Option func(*CLI)

// WithCommand overrides the default interpreter and leading arguments.
func WithCommand(command string, args ...string) Option {
	return func(c *CLI) {
		if command != "" {
			c.command = command
		}
		c.baseArgs = args
	}
}

// CLI runs the verifier as a child process.
type CLI struct {
	command  string
	baseArgs []string
}

// NewCLI constructs a CLI runner using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{
		command:  "python",
		baseArgs: []string{"ai_identity_verification.py"},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Verify launches the verifier and blocks until it exits. Every
// PROGRESS:<n> marker observed on stdout invokes the progress callback in
// emission order before Verify returns.
func (c *CLI) Verify(ctx context.Context, documentPath, videoPath, fullName string, progress func(int)) (*Result, error) {
	if documentPath == "" {
		return nil, errors.New("document path required")
	}
	if videoPath == "" {
		return nil, errors.New("video path required")
	}
	if strings.TrimSpace(fullName) == "" {
		return nil, errors.New("full name required")
	}

	args := append(append([]string{}, c.baseArgs...), documentPath, videoPath, fullName)
	cmd := commandContext(ctx, c.command, args...) //nolint:gosec

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, &StartError{Err: err}
	}

	var output strings.Builder
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		output.WriteString(line)
		output.WriteString("\n")
		if progress == nil {
			continue
		}
		for _, value := range progressMarkers(line) {
			progress(value)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return nil, fmt.Errorf("read verifier output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		details := strings.TrimSpace(stderr.String())
		if details == "" {
			details = strings.TrimSpace(output.String())
		}
		return nil, &ExitError{Err: err, Details: details}
	}

	out := output.String()
	return &Result{
		Success:    accepted(out),
		Similarity: parseSimilarity(out),
		Output:     out,
	}, nil
}

var _ Runner = (*CLI)(nil)
