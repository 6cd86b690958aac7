package driftwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type countingObserver struct {
	drifts int
}

func (o *countingObserver) ObserveDrift() {
	o.drifts++
}

func waitForChange(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case change := <-ch:
		return change
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for change notification")
		return Change{}
	}
}

func startWatcher(t *testing.T, w *Watcher) chan Change {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ch := make(chan Change, 16)
	go func() {
		_ = w.Watch(ctx, ch)
	}()
	// Give the watcher a moment to register the directory watches.
	time.Sleep(100 * time.Millisecond)
	return ch
}

func TestWatchDetectsDirectWrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "grub")
	if err := os.WriteFile(target, []byte("GRUB_TIMEOUT=5\n"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	observer := &countingObserver{}
	ch := startWatcher(t, NewWatcher(observer, target))

	if err := os.WriteFile(target, []byte("GRUB_TIMEOUT=1\n"), 0o644); err != nil {
		t.Fatalf("Failed to modify file: %v", err)
	}

	change := waitForChange(t, ch)
	if change.Path != target || change.Kind != ChangeModified {
		t.Errorf("Unexpected change: %+v", change)
	}
	if observer.drifts == 0 {
		t.Error("Observer not notified")
	}
}

func TestWatchDetectsAtomicReplace(t *testing.T) {
	// Temp-then-rename is how this tool itself writes, so out-of-band
	// replacements use it too.
	dir := t.TempDir()
	target := filepath.Join(dir, "state.yaml")
	if err := os.WriteFile(target, []byte("profile: balanced\n"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	ch := startWatcher(t, NewWatcher(nil, target))

	tmp := filepath.Join(dir, "state.yaml.tmp")
	if err := os.WriteFile(tmp, []byte("profile: competitive\n"), 0o644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		t.Fatalf("Failed to rename: %v", err)
	}

	change := waitForChange(t, ch)
	if change.Path != target {
		t.Errorf("Unexpected path: %q", change.Path)
	}
}

func TestWatchDetectsRemoval(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "state.yaml")
	if err := os.WriteFile(target, []byte("profile: balanced\n"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	ch := startWatcher(t, NewWatcher(nil, target))

	if err := os.Remove(target); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}

	change := waitForChange(t, ch)
	if change.Kind != ChangeRemoved {
		t.Errorf("Expected removal, got %+v", change)
	}
}

func TestWatchIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "grub")
	if err := os.WriteFile(target, []byte("GRUB_TIMEOUT=5\n"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	observer := &countingObserver{}
	ch := startWatcher(t, NewWatcher(observer, target))

	unrelated := filepath.Join(dir, "other")
	if err := os.WriteFile(unrelated, []byte("x\n"), 0o644); err != nil {
		t.Fatalf("Failed to write unrelated file: %v", err)
	}

	select {
	case change := <-ch:
		t.Errorf("Unexpected notification for unrelated file: %+v", change)
	case <-time.After(300 * time.Millisecond):
	}
	if observer.drifts != 0 {
		t.Error("Observer notified for unrelated file")
	}
}
