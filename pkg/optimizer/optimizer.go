// Package optimizer drives the apply-profile state machine over the selected
// kernel-parameter backend.
package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kargtune/kargtune/pkg/kargs"
	"github.com/kargtune/kargtune/pkg/platform"
	"github.com/kargtune/kargtune/pkg/profiles"
	"github.com/kargtune/kargtune/pkg/state"
)

// Phase is the orchestrator's position in the apply state machine.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseDetecting Phase = "detecting"
	PhaseReady     Phase = "ready"
	PhaseApplying  Phase = "applying"
	PhaseApplied   Phase = "applied"
	PhaseFailed    Phase = "failed"
)

// Step names the sequential stages of one apply, reported on failure.
type Step string

const (
	StepResolveProfile Step = "resolve-profile"
	StepEnsureReady    Step = "ensure-ready"
	StepQuery          Step = "query"
	StepRemove         Step = "remove"
	StepAdd            Step = "add"
	StepSaveState      Step = "save-state"
)

// Options configure the optimizer. Zero values select production defaults.
type Options struct {
	// Probes overrides the platform detection inputs.
	Probes *platform.Probes

	// Runner executes backend tool invocations.
	Runner kargs.CommandRunner

	// Backend overrides backend construction entirely (tests).
	Backend kargs.Backend

	// GrubConfigPath overrides the bootloader defaults file.
	GrubConfigPath string

	// TransactionWait bounds how long the safety gate waits for an in-flight
	// backend transaction. Zero selects the built-in window.
	TransactionWait time.Duration

	// Store persists the last-applied profile record.
	Store *state.Store

	// Catalog resolves profile names.
	Catalog *profiles.Catalog

	// Journal records apply runs. Optional.
	Journal Journal

	// Metrics observes apply outcomes. Optional.
	Metrics Metrics
}

// Optimizer owns the backend, the state store and the profile catalog, and
// serializes every mutation of the boot parameter storage. It is not safe for
// concurrent use: the transactional backend is single-writer system-wide and
// the bootloader read-modify-write cycle cannot interleave.
type Optimizer struct {
	descriptor platform.Descriptor
	backend    kargs.Backend
	store      *state.Store
	catalog    *profiles.Catalog
	journal    Journal
	metrics    Metrics
	phase      Phase
}

// New detects the platform once, constructs the matching backend (wrapped in
// the transaction safety gate when transactional) and returns a ready
// optimizer. Detection never fails; backend construction fails only when the
// required tool or file is missing.
func New(ctx context.Context, opts Options) (*Optimizer, error) {
	o := &Optimizer{
		store:   opts.Store,
		catalog: opts.Catalog,
		journal: opts.Journal,
		metrics: opts.Metrics,
		phase:   PhaseIdle,
	}

	if o.store == nil {
		o.store = state.NewStore("", "dev")
	}
	if o.catalog == nil {
		catalog, err := profiles.NewCatalog(nil)
		if err != nil {
			return nil, err
		}
		o.catalog = catalog
	}

	o.phase = PhaseDetecting
	probes := platform.DefaultProbes()
	if opts.Probes != nil {
		probes = *opts.Probes
	}
	o.descriptor = platform.Detect(ctx, probes)

	if opts.Backend != nil {
		o.backend = opts.Backend
	} else {
		backend, err := buildBackend(o.descriptor, opts)
		if err != nil {
			return nil, err
		}
		o.backend = backend
	}

	o.phase = PhaseReady

	log.Debug().
		Str("backend", string(o.descriptor.Backend)).
		Bool("immutable", o.descriptor.Immutable).
		Str("distro", o.descriptor.Distro).
		Msg("Optimizer ready")
	return o, nil
}

func buildBackend(desc platform.Descriptor, opts Options) (kargs.Backend, error) {
	runner := opts.Runner
	if runner == nil {
		runner = kargs.NewExecRunner()
	}

	switch desc.Backend {
	case platform.BackendTransactional:
		inner, err := kargs.NewRpmOstreeBackend(runner)
		if err != nil {
			return nil, err
		}
		if opts.TransactionWait > 0 {
			poll := 2 * time.Second
			if poll > opts.TransactionWait {
				poll = opts.TransactionWait
			}
			return kargs.NewSafeBackendWithWindow(inner, opts.TransactionWait, poll), nil
		}
		return kargs.NewSafeBackend(inner), nil
	case platform.BackendBootloaderConfig:
		return kargs.NewGrubBackend(opts.GrubConfigPath), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", desc.Backend)
	}
}

// Descriptor returns the platform descriptor from the construction-time probe.
func (o *Optimizer) Descriptor() platform.Descriptor {
	return o.descriptor
}

// Phase returns the current state-machine phase.
func (o *Optimizer) Phase() Phase {
	return o.phase
}

// Catalog returns the profile catalog.
func (o *Optimizer) Catalog() *profiles.Catalog {
	return o.catalog
}

// ActiveParams returns the parameter set effective at next boot.
func (o *Optimizer) ActiveParams(ctx context.Context) (*kargs.ParameterSet, error) {
	return o.backend.CurrentParams(ctx)
}

// RequiresReboot reports whether applied changes need a reboot.
func (o *Optimizer) RequiresReboot() bool {
	return o.backend.RequiresReboot()
}

// LastApplied returns the persisted state record, nil when absent.
func (o *Optimizer) LastApplied() (*state.ProfileState, error) {
	return o.store.LoadLast()
}

// ApplyProfile runs the full apply state machine for the named profile. All
// failures are recovered here: the result carries the terminal status, the
// failing step and a classified error instead of a panic or a raw error
// return. A Failed result leaves persisted state untouched, so re-invoking
// restarts from the last known-good baseline.
func (o *Optimizer) ApplyProfile(ctx context.Context, name string) *Result {
	o.phase = PhaseApplying
	run := o.startRun(ctx, name)

	result := o.apply(ctx, name, run)

	if result.Failed() {
		o.phase = PhaseFailed
	} else {
		o.phase = PhaseApplied
	}
	o.finishRun(ctx, run, result)
	o.observe(run, result)
	return result
}

func (o *Optimizer) apply(ctx context.Context, name string, run *runHandle) *Result {
	result := &Result{
		RunID:          run.id,
		Profile:        name,
		Backend:        string(o.descriptor.Backend),
		RequiresReboot: o.backend.RequiresReboot(),
	}

	profile, err := o.catalog.Get(name)
	if err != nil {
		return result.fail(StepResolveProfile, err)
	}

	prior, err := o.store.LoadLast()
	if err != nil {
		// A damaged baseline never blocks an apply: legacy cleanup remains
		// the only guaranteed removal.
		log.Warn().Err(err).Msg("Could not load prior state, proceeding without baseline")
		prior = nil
	}

	if safe, ok := o.backend.(*kargs.SafeBackend); ok {
		if err := safe.EnsureReady(ctx); err != nil {
			return result.fail(StepEnsureReady, err)
		}
		o.event(ctx, run, "backend ready")
	}

	current, err := o.backend.CurrentParams(ctx)
	if err != nil {
		return result.fail(StepQuery, err)
	}

	priorProfile := ""
	var priorParams *kargs.ParameterSet
	if prior != nil {
		priorProfile = prior.Profile
		priorParams = prior.Params()
	}

	transition := kargs.ComputeTransition(priorProfile, priorParams, name, profile.ParamSet(), current)
	result.Removed = transition.ToRemove.Strings()
	result.Added = transition.ToAdd.Strings()

	if transition.IsNoop() {
		log.Info().Str("profile", name).Msg("Profile already in force, nothing to do")
		o.event(ctx, run, "no changes required")
	} else {
		if err := o.backend.RemoveParams(ctx, transition.ToRemove); err != nil {
			return result.fail(StepRemove, err)
		}
		if transition.ToRemove.Len() > 0 {
			o.event(ctx, run, fmt.Sprintf("removed %d parameters", transition.ToRemove.Len()))
		}

		if err := o.backend.AppendParams(ctx, transition.ToAdd); err != nil {
			if transition.ToRemove.Len() > 0 {
				err = kargs.NewPartialError("removal batch applied but addition batch failed", err)
			}
			return result.fail(StepAdd, err)
		}
		if transition.ToAdd.Len() > 0 {
			o.event(ctx, run, fmt.Sprintf("added %d parameters", transition.ToAdd.Len()))
		}
	}

	if err := o.store.Save(name, profile.ParamSet()); err != nil {
		return result.fail(StepSaveState, err)
	}

	result.Status = StatusApplied
	if transition.IsNoop() {
		result.Status = StatusUnchanged
	}

	log.Info().
		Str("profile", name).
		Str("status", string(result.Status)).
		Int("removed", len(result.Removed)).
		Int("added", len(result.Added)).
		Bool("reboot_required", result.RequiresReboot).
		Msg("Profile apply finished")
	return result
}

// Reset removes the active profile's parameters plus the legacy cleanup set
// and clears the persisted state record.
func (o *Optimizer) Reset(ctx context.Context) *Result {
	o.phase = PhaseApplying
	run := o.startRun(ctx, "reset")

	result := &Result{
		RunID:          run.id,
		Profile:        "reset",
		Backend:        string(o.descriptor.Backend),
		RequiresReboot: o.backend.RequiresReboot(),
	}

	result = o.reset(ctx, run, result)
	if result.Failed() {
		o.phase = PhaseFailed
	} else {
		o.phase = PhaseApplied
	}
	o.finishRun(ctx, run, result)
	o.observe(run, result)
	return result
}

func (o *Optimizer) reset(ctx context.Context, run *runHandle, result *Result) *Result {
	prior, err := o.store.LoadLast()
	if err != nil {
		log.Warn().Err(err).Msg("Could not load prior state, removing legacy parameters only")
		prior = nil
	}

	if safe, ok := o.backend.(*kargs.SafeBackend); ok {
		if err := safe.EnsureReady(ctx); err != nil {
			return result.fail(StepEnsureReady, err)
		}
	}

	current, err := o.backend.CurrentParams(ctx)
	if err != nil {
		return result.fail(StepQuery, err)
	}

	toRemove := kargs.LegacyParameters()
	if prior != nil {
		toRemove = toRemove.Union(prior.Params())
	}
	toRemove = toRemove.Intersect(current)
	result.Removed = toRemove.Strings()

	if err := o.backend.RemoveParams(ctx, toRemove); err != nil {
		return result.fail(StepRemove, err)
	}
	if toRemove.Len() > 0 {
		o.event(ctx, run, fmt.Sprintf("removed %d parameters", toRemove.Len()))
	}

	if err := o.store.Clear(); err != nil {
		return result.fail(StepSaveState, err)
	}

	result.Status = StatusApplied
	if toRemove.Len() == 0 {
		result.Status = StatusUnchanged
	}

	log.Info().
		Int("removed", toRemove.Len()).
		Msg("Reset finished")
	return result
}
