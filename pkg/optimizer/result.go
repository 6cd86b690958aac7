package optimizer

import (
	"errors"

	"github.com/kargtune/kargtune/pkg/kargs"
)

// Status is the terminal outcome of one apply run.
type Status string

const (
	// StatusApplied means at least one backend mutation was staged and the
	// state record was updated.
	StatusApplied Status = "applied"

	// StatusUnchanged means the profile was already in force; zero backend
	// mutations were issued.
	StatusUnchanged Status = "unchanged"

	// StatusFailed means a step failed; persisted state was not modified.
	StatusFailed Status = "failed"
)

// Result is the structured outcome returned to callers. Nothing escapes
// ApplyProfile as a raw error.
type Result struct {
	// RunID identifies the run in the history journal.
	RunID string `json:"run_id"`

	// Profile is the requested profile name.
	Profile string `json:"profile"`

	// Backend is the backend kind that executed the run.
	Backend string `json:"backend"`

	// Status is the terminal outcome.
	Status Status `json:"status"`

	// Removed and Added are the parameter batches the transition computed.
	Removed []string `json:"removed,omitempty"`
	Added   []string `json:"added,omitempty"`

	// FailedStep names the step that failed, empty on success.
	FailedStep Step `json:"failed_step,omitempty"`

	// Err is the classified failure cause, nil on success.
	Err error `json:"-"`

	// Reason is the human-readable failure summary, empty on success.
	Reason string `json:"reason,omitempty"`

	// RequiresReboot reports whether the changes need a reboot to take effect.
	RequiresReboot bool `json:"requires_reboot"`
}

// Failed reports whether the run ended in failure.
func (r *Result) Failed() bool {
	return r.Status == StatusFailed
}

// Busy reports whether the run failed because the backend was busy.
func (r *Result) Busy() bool {
	return r.Err != nil && kargs.IsBusy(r.Err)
}

func (r *Result) fail(step Step, err error) *Result {
	var ke *kargs.KargError
	if errors.As(err, &ke) {
		ke.WithStep(string(step))
	}
	r.Status = StatusFailed
	r.FailedStep = step
	r.Err = err
	r.Reason = err.Error()
	return r
}
