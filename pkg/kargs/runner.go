package kargs

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// CommandRunner executes external tool invocations. Backends depend on this
// interface so tests can substitute a fake without spawning processes.
type CommandRunner interface {
	// Run executes name with args and returns stdout, stderr and the error
	// from the process. The context bounds the execution time.
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

	// LookPath reports whether the named binary is present on PATH.
	LookPath(name string) bool
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and captures both output streams.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()

	log.Debug().
		Str("command", name).
		Str("args", strings.Join(args, " ")).
		Dur("duration", time.Since(start)).
		Bool("success", err == nil).
		Msg("Executed backend command")

	return outBuf.String(), errBuf.String(), err
}

// LookPath checks binary presence on PATH.
func (r *ExecRunner) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
