package kargs

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const rpmOstreeBinary = "rpm-ostree"

// RpmOstreeBackend manages kernel parameters through the transactional
// image-layering tool. Every append/remove batch issues exactly one tool
// invocation: the daemon stages a full new deployment per transaction, so
// looping per parameter multiplies that cost into multi-minute hangs.
type RpmOstreeBackend struct {
	runner CommandRunner
}

// NewRpmOstreeBackend creates the transactional backend. It fails with an
// unavailable error when the tool binary is not on PATH, before any mutation
// is attempted.
func NewRpmOstreeBackend(runner CommandRunner) (*RpmOstreeBackend, error) {
	if !runner.LookPath(rpmOstreeBinary) {
		return nil, NewUnavailableError("rpm-ostree binary not found", nil).WithOperation("construct")
	}
	return &RpmOstreeBackend{runner: runner}, nil
}

// CurrentParams queries the staged kernel arguments. It prefers the
// structured `rpm-ostree kargs` listing; older tool versions without that
// subcommand fall back to scraping the kernel-arguments section out of the
// general status output.
func (b *RpmOstreeBackend) CurrentParams(ctx context.Context) (*ParameterSet, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	stdout, stderr, err := b.runner.Run(ctx, rpmOstreeBinary, "kargs")
	if err == nil {
		return ParseCmdline(stdout), nil
	}

	log.Debug().
		Err(err).
		Str("stderr", strings.TrimSpace(stderr)).
		Msg("kargs subcommand unavailable, falling back to status output")

	stdout, _, err = b.runner.Run(ctx, rpmOstreeBinary, "status", "-v")
	if err != nil {
		return nil, NewInternalError("failed to query kernel arguments", err).
			WithOperation("query")
	}

	params, ok := scrapeKernelArguments(stdout)
	if !ok {
		return nil, NewInternalError(
			fmt.Sprintf("no kernel arguments section in status output (%d bytes)", len(stdout)), nil).
			WithOperation("query")
	}
	return params, nil
}

// AppendParams stages all parameters in one coalesced invocation using
// append-if-missing semantics, making repeated calls no-ops.
func (b *RpmOstreeBackend) AppendParams(ctx context.Context, params *ParameterSet) error {
	if params.Len() == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, BatchTimeout)
	defer cancel()

	args := make([]string, 0, params.Len()+1)
	args = append(args, "kargs")
	for _, p := range params.List() {
		args = append(args, "--append-if-missing="+string(p))
	}

	_, _, err := b.runner.Run(ctx, rpmOstreeBinary, args...)
	if err != nil {
		return NewInternalError("failed to append kernel arguments", err).
			WithOperation("append")
	}

	log.Info().
		Int("count", params.Len()).
		Strs("params", params.Strings()).
		Msg("Staged kernel argument additions")
	return nil
}

// RemoveParams deletes all parameters in one coalesced invocation using
// delete-if-present semantics, so absent parameters are no-op successes.
func (b *RpmOstreeBackend) RemoveParams(ctx context.Context, params *ParameterSet) error {
	if params.Len() == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, BatchTimeout)
	defer cancel()

	args := make([]string, 0, params.Len()+1)
	args = append(args, "kargs")
	for _, p := range params.List() {
		args = append(args, "--delete-if-present="+string(p))
	}

	_, _, err := b.runner.Run(ctx, rpmOstreeBinary, args...)
	if err != nil {
		return NewInternalError("failed to remove kernel arguments", err).
			WithOperation("remove")
	}

	log.Info().
		Int("count", params.Len()).
		Strs("params", params.Strings()).
		Msg("Staged kernel argument removals")
	return nil
}

// RequiresReboot is always true: staged deployments take effect at next boot.
func (b *RpmOstreeBackend) RequiresReboot() bool {
	return true
}

// TransactionPending reports whether the daemon has an in-flight transaction.
func (b *RpmOstreeBackend) TransactionPending(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	stdout, _, err := b.runner.Run(ctx, rpmOstreeBinary, "status")
	if err != nil {
		return false, NewInternalError("failed to query transaction status", err).
			WithOperation("ensure-ready")
	}
	return strings.Contains(stdout, "Transaction in progress"), nil
}

// CancelTransaction asks the daemon to abandon the in-flight transaction.
func (b *RpmOstreeBackend) CancelTransaction(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	_, _, err := b.runner.Run(ctx, rpmOstreeBinary, "cancel")
	if err != nil {
		return NewInternalError("failed to cancel transaction", err).
			WithOperation("ensure-ready")
	}
	return nil
}

// scrapeKernelArguments extracts the kernel-arguments section from verbose
// status output. The section header is a line of the form
// "  Kernel arguments: root=UUID=... quiet mitigations=off"; continuation
// lines are indented at least to the value column. Sibling fields align on
// the colon, not the field start, so their labels begin well before the value
// column and terminate the section.
func scrapeKernelArguments(status string) (*ParameterSet, bool) {
	const header = "Kernel arguments:"

	lines := strings.Split(status, "\n")
	for i, line := range lines {
		idx := strings.Index(line, header)
		if idx < 0 {
			continue
		}

		valueCol := idx + len(header)
		combined := strings.TrimSpace(line[valueCol:])
		for j := i + 1; j < len(lines); j++ {
			next := lines[j]
			trimmed := strings.TrimLeft(next, " \t")
			if trimmed == "" || len(next)-len(trimmed) < valueCol {
				break
			}
			combined += " " + strings.TrimSpace(next)
		}
		return ParseCmdline(combined), true
	}
	return nil, false
}
