package kargs

import (
	"testing"
)

func TestComputeTransitionFirstApply(t *testing.T) {
	target := NewParameterSet("mitigations=off", "isolcpus=4-9")
	current := NewParameterSet("root=UUID=abc", "quiet")

	tr := ComputeTransition("", nil, "competitive", target, current)

	if tr.ToRemove.Len() != 0 {
		t.Errorf("Expected no removals on a clean system, got %v", tr.ToRemove.Strings())
	}
	if !tr.ToAdd.Equal(target) {
		t.Errorf("Expected full target addition, got %v", tr.ToAdd.Strings())
	}
}

func TestComputeTransitionProfileSwitchRemovesExclusiveOnly(t *testing.T) {
	// Scenario: competitive -> balanced. The shared parameter stays in place.
	competitive := NewParameterSet("isolcpus=4-9", "mitigations=off")
	balanced := NewParameterSet("mitigations=off")
	current := NewParameterSet("root=UUID=abc", "isolcpus=4-9", "mitigations=off")

	tr := ComputeTransition("competitive", competitive, "balanced", balanced, current)

	if tr.ToRemove.Len() != 1 || !tr.ToRemove.Contains("isolcpus=4-9") {
		t.Errorf("Expected removal of only isolcpus=4-9, got %v", tr.ToRemove.Strings())
	}
	if tr.ToRemove.Contains("mitigations=off") {
		t.Error("Shared parameter must not be removed and re-added")
	}
	if tr.ToAdd.Len() != 0 {
		t.Errorf("Expected no additions, got %v", tr.ToAdd.Strings())
	}
}

func TestComputeTransitionReapplySameProfileIsNoop(t *testing.T) {
	params := NewParameterSet("mitigations=off", "nmi_watchdog=0")
	current := NewParameterSet("root=UUID=abc", "mitigations=off", "nmi_watchdog=0")

	tr := ComputeTransition("balanced", params, "balanced", params, current)

	if !tr.IsNoop() {
		t.Errorf("Expected noop transition, got remove=%v add=%v",
			tr.ToRemove.Strings(), tr.ToAdd.Strings())
	}
}

func TestComputeTransitionLegacyCleanupUnconditional(t *testing.T) {
	target := NewParameterSet("mitigations=off")
	current := NewParameterSet("root=UUID=abc", "nowatchdog", "preempt=full")

	tr := ComputeTransition("", nil, "balanced", target, current)

	if !tr.ToRemove.Contains("nowatchdog") || !tr.ToRemove.Contains("preempt=full") {
		t.Errorf("Expected legacy parameters scheduled for removal, got %v", tr.ToRemove.Strings())
	}
}

func TestComputeTransitionLegacyFilteredToPresent(t *testing.T) {
	// A clean system must not produce a removal batch of absent legacy params.
	target := NewParameterSet("mitigations=off")
	current := NewParameterSet("root=UUID=abc", "mitigations=off")

	tr := ComputeTransition("balanced", target, "balanced", target, current)

	if tr.ToRemove.Len() != 0 {
		t.Errorf("Expected empty removal batch, got %v", tr.ToRemove.Strings())
	}
}

func TestComputeTransitionSkipsAlreadyEffectiveAdditions(t *testing.T) {
	target := NewParameterSet("mitigations=off", "transparent_hugepage=never")
	current := NewParameterSet("mitigations=off")

	tr := ComputeTransition("", nil, "competitive", target, current)

	if tr.ToAdd.Len() != 1 || !tr.ToAdd.Contains("transparent_hugepage=never") {
		t.Errorf("Expected only the missing parameter to be added, got %v", tr.ToAdd.Strings())
	}
}

func TestComputeTransitionPriorStateLostFallsBackToLegacyOnly(t *testing.T) {
	target := NewParameterSet("mitigations=off")
	// Residue of an unknown previous profile plus one legacy parameter.
	current := NewParameterSet("isolcpus=4-9", "threadirqs")

	tr := ComputeTransition("", nil, "balanced", target, current)

	if tr.ToRemove.Contains("isolcpus=4-9") {
		t.Error("Without a prior record, non-legacy residue must not be removed")
	}
	if !tr.ToRemove.Contains("threadirqs") {
		t.Error("Legacy cleanup must still run without a prior record")
	}
}
