package kargs

import (
	"context"
	"time"
)

// Backend is the uniform contract over the two kernel-parameter stores. Call
// sites are backend-agnostic; the variant is selected once at construction
// from the platform descriptor.
type Backend interface {
	// CurrentParams returns the parameter set that will be effective at next
	// boot. Side-effect free and fast (seconds-scale).
	CurrentParams(ctx context.Context) (*ParameterSet, error)

	// AppendParams appends the given parameters with append-if-missing
	// semantics: a second call with the same input is a no-op.
	AppendParams(ctx context.Context, params *ParameterSet) error

	// RemoveParams removes the given parameters. Removing an absent parameter
	// is a no-op success, not an error.
	RemoveParams(ctx context.Context, params *ParameterSet) error

	// RequiresReboot reports whether a reboot is needed for pending changes
	// to take effect. Both variants stage parameters for the next boot, so
	// this is always true today.
	RequiresReboot() bool
}

// Default timeouts for backend subprocess invocations. Queries are quick;
// a coalesced transactional batch stages a whole new deployment and is given
// tens of seconds.
const (
	QueryTimeout = 15 * time.Second
	BatchTimeout = 90 * time.Second
)
