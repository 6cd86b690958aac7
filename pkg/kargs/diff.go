package kargs

// Transition is the minimal operation set that moves the system from the
// previously applied profile to the target profile.
type Transition struct {
	// ToRemove is executed first as one coalesced batch.
	ToRemove *ParameterSet

	// ToAdd is executed second as one coalesced batch.
	ToAdd *ParameterSet
}

// IsNoop reports whether the transition issues zero backend mutations. The
// legacy cleanup set is filtered against the current parameters before this
// check, so re-applying the active profile is a genuine no-op.
func (t *Transition) IsNoop() bool {
	return t.ToRemove.Len() == 0 && t.ToAdd.Len() == 0
}

// ComputeTransition diffs the prior applied state and the live parameter set
// against the target profile's parameters:
//
//   - the legacy registry is removed unconditionally, filtered down to what is
//     actually present so an already-clean system issues no removal batch;
//   - when switching profiles, only parameters exclusive to the outgoing
//     profile are removed — parameters shared with the target stay in place
//     instead of being removed and immediately re-added;
//   - additions skip anything already effective.
//
// priorApplied is nil when no state record exists (first run, or the record
// was lost); legacy cleanup is then the only guaranteed removal.
func ComputeTransition(priorProfile string, priorApplied *ParameterSet, targetProfile string, targetParams, current *ParameterSet) *Transition {
	toRemove := LegacyParameters().Difference(targetParams)

	if priorApplied != nil && priorProfile != targetProfile {
		for _, p := range priorApplied.Difference(targetParams).List() {
			toRemove.Add(p)
		}
	}

	// Drop removals that are not in force anyway.
	toRemove = toRemove.Intersect(current)

	toAdd := targetParams.Difference(current)

	return &Transition{ToRemove: toRemove, ToAdd: toAdd}
}
