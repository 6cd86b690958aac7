package profiles

import (
	"testing"
)

func TestCatalogBuiltins(t *testing.T) {
	catalog, err := NewCatalog(nil)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	for _, name := range []string{"competitive", "balanced", "streaming", "powersave"} {
		p, err := catalog.Get(name)
		if err != nil {
			t.Errorf("Builtin %q missing: %v", name, err)
			continue
		}
		if len(p.Params) == 0 {
			t.Errorf("Builtin %q has no parameters", name)
		}
		if err := p.Validate(); err != nil {
			t.Errorf("Builtin %q does not validate: %v", name, err)
		}
	}
}

func TestCatalogUnknownProfile(t *testing.T) {
	catalog, err := NewCatalog(nil)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	if _, err := catalog.Get("turbo"); err == nil {
		t.Error("Expected error for unknown profile")
	}
}

func TestCatalogOverrideReplacesBuiltin(t *testing.T) {
	override := Profile{
		Name:        "balanced",
		Description: "Site-tuned balanced profile",
		Params:      []string{"mitigations=off", "preempt=lazy"},
	}

	catalog, err := NewCatalog([]Profile{override})
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	p, err := catalog.Get("balanced")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(p.Params) != 2 || p.Params[1] != "preempt=lazy" {
		t.Errorf("Override did not replace builtin: %v", p.Params)
	}
}

func TestCatalogOverrideAddsProfile(t *testing.T) {
	extra := Profile{
		Name:        "benchmark",
		Description: "Reproducible benchmarking runs",
		Params:      []string{"mitigations=off", "nosmt"},
	}

	catalog, err := NewCatalog([]Profile{extra})
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	if _, err := catalog.Get("benchmark"); err != nil {
		t.Errorf("Added profile not resolvable: %v", err)
	}
	if _, err := catalog.Get("competitive"); err != nil {
		t.Errorf("Builtin lost after extension: %v", err)
	}
}

func TestCatalogRejectsInvalidOverride(t *testing.T) {
	cases := []struct {
		name    string
		profile Profile
	}{
		{"missing name", Profile{Description: "d", Params: []string{"quiet"}}},
		{"missing description", Profile{Name: "x", Params: []string{"quiet"}}},
		{"empty params", Profile{Name: "x", Description: "d"}},
		{"param with space", Profile{Name: "x", Description: "d", Params: []string{"a b"}}},
		{"name with space", Profile{Name: "a b", Description: "d", Params: []string{"quiet"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewCatalog([]Profile{tc.profile}); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestCatalogNamesSorted(t *testing.T) {
	catalog, err := NewCatalog(nil)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	names := catalog.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Names not sorted: %v", names)
			break
		}
	}
}

func TestParamSet(t *testing.T) {
	p := Profile{
		Name:        "x",
		Description: "d",
		Params:      []string{"mitigations=off", "quiet", "mitigations=off"},
	}

	set := p.ParamSet()
	if set.Len() != 2 {
		t.Errorf("Expected deduplicated set of 2, got %v", set.Strings())
	}
}
