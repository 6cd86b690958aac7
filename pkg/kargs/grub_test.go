package kargs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const grubFixture = `# GRUB boot configuration
GRUB_TIMEOUT=5
GRUB_DISTRIBUTOR="$(sed 's, release .*$,,g' /etc/system-release)"
GRUB_DEFAULT=saved
GRUB_CMDLINE_LINUX_DEFAULT="quiet splash"
GRUB_DISABLE_RECOVERY="true"
`

func writeGrubFixture(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grub")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func TestGrubCurrentParams(t *testing.T) {
	backend := NewGrubBackend(writeGrubFixture(t, grubFixture))

	params, err := backend.CurrentParams(context.Background())
	if err != nil {
		t.Fatalf("CurrentParams failed: %v", err)
	}
	if params.Len() != 2 || !params.Contains("quiet") || !params.Contains("splash") {
		t.Errorf("Unexpected params: %v", params.Strings())
	}
}

func TestGrubCurrentParamsMissingFile(t *testing.T) {
	backend := NewGrubBackend(filepath.Join(t.TempDir(), "nope"))

	_, err := backend.CurrentParams(context.Background())
	if !IsUnavailable(err) {
		t.Errorf("Expected unavailable error, got %v", err)
	}
}

func TestGrubAppendPreservesUnrelatedLines(t *testing.T) {
	path := writeGrubFixture(t, grubFixture)
	backend := NewGrubBackend(path)

	err := backend.AppendParams(context.Background(), NewParameterSet("mitigations=off"))
	if err != nil {
		t.Fatalf("AppendParams failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	contents := string(data)

	for _, line := range []string{
		"# GRUB boot configuration",
		"GRUB_TIMEOUT=5",
		`GRUB_DISTRIBUTOR="$(sed 's, release .*$,,g' /etc/system-release)"`,
		"GRUB_DEFAULT=saved",
		`GRUB_DISABLE_RECOVERY="true"`,
	} {
		if !strings.Contains(contents, line) {
			t.Errorf("Unrelated line not preserved verbatim: %q", line)
		}
	}
	if !strings.Contains(contents, `GRUB_CMDLINE_LINUX_DEFAULT="quiet splash mitigations=off"`) {
		t.Errorf("Command line not rewritten as expected:\n%s", contents)
	}
}

func TestGrubAppendIsIdempotent(t *testing.T) {
	path := writeGrubFixture(t, grubFixture)
	backend := NewGrubBackend(path)
	ctx := context.Background()

	set := NewParameterSet("mitigations=off", "quiet")
	if err := backend.AppendParams(ctx, set); err != nil {
		t.Fatalf("First append failed: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}

	if err := backend.AppendParams(ctx, set); err != nil {
		t.Fatalf("Second append failed: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}

	if string(first) != string(second) {
		t.Error("Second append with same input modified the file")
	}

	params, err := backend.CurrentParams(ctx)
	if err != nil {
		t.Fatalf("CurrentParams failed: %v", err)
	}
	seen := make(map[string]int)
	for _, p := range params.Strings() {
		seen[p]++
	}
	for p, n := range seen {
		if n > 1 {
			t.Errorf("Duplicate parameter %q after append", p)
		}
	}
}

func TestGrubRemoveAbsentIsNoop(t *testing.T) {
	path := writeGrubFixture(t, grubFixture)
	backend := NewGrubBackend(path)

	before, _ := os.ReadFile(path)
	if err := backend.RemoveParams(context.Background(), NewParameterSet("isolcpus=4-9")); err != nil {
		t.Fatalf("Removing absent parameter must succeed, got %v", err)
	}
	after, _ := os.ReadFile(path)

	if string(before) != string(after) {
		t.Error("Removing an absent parameter modified the file")
	}
}

func TestGrubRemove(t *testing.T) {
	path := writeGrubFixture(t, grubFixture)
	backend := NewGrubBackend(path)
	ctx := context.Background()

	if err := backend.RemoveParams(ctx, NewParameterSet("splash")); err != nil {
		t.Fatalf("RemoveParams failed: %v", err)
	}

	params, err := backend.CurrentParams(ctx)
	if err != nil {
		t.Fatalf("CurrentParams failed: %v", err)
	}
	if params.Contains("splash") {
		t.Error("Parameter still present after removal")
	}
	if !params.Contains("quiet") {
		t.Error("Unrelated parameter removed")
	}
}

func TestGrubAppendAddsVariableWhenAbsent(t *testing.T) {
	path := writeGrubFixture(t, "GRUB_TIMEOUT=5\n")
	backend := NewGrubBackend(path)

	if err := backend.AppendParams(context.Background(), NewParameterSet("quiet")); err != nil {
		t.Fatalf("AppendParams failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `GRUB_CMDLINE_LINUX_DEFAULT="quiet"`) {
		t.Errorf("Expected variable to be added:\n%s", string(data))
	}
	if !strings.Contains(string(data), "GRUB_TIMEOUT=5") {
		t.Error("Existing line not preserved")
	}
}

func TestGrubNoTempFileResidue(t *testing.T) {
	path := writeGrubFixture(t, grubFixture)
	backend := NewGrubBackend(path)

	if err := backend.AppendParams(context.Background(), NewParameterSet("mitigations=off")); err != nil {
		t.Fatalf("AppendParams failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Failed to list directory: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("Expected only the config file, found %v", names)
	}
}

func TestGrubRequiresReboot(t *testing.T) {
	if !NewGrubBackend("").RequiresReboot() {
		t.Error("Bootloader config backend must always require a reboot")
	}
}
