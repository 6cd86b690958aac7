package kargs

// legacyParameters are tokens written by earlier releases that are obsolete or
// conflict with the current profile definitions. They are scheduled for
// removal on every application regardless of profile: removal of an absent
// parameter costs nothing on either backend.
var legacyParameters = []Parameter{
	// Pre-1.0 releases pinned the scheduler tick unconditionally.
	"nohz_full=all",
	// Replaced by per-profile mitigations settings.
	"mitigations=auto,nosmt",
	// Early profiles forced full preemption on kernels that now default to lazy.
	"preempt=full",
	// Leftover from the removed experimental latency profile.
	"threadirqs",
	"rcu_nocb_poll",
	// Old watchdog toggle superseded by nmi_watchdog values in profiles.
	"nowatchdog",
}

// LegacyParameters returns the static cleanup set consulted on every
// application. The returned set is a fresh copy callers may mutate.
func LegacyParameters() *ParameterSet {
	return NewParameterSet(legacyParameters...)
}
