package kargs

import (
	"context"
	"testing"
	"time"
)

// fakeTransactional simulates the transactional backend's transaction state.
type fakeTransactional struct {
	pending      bool
	clearOnCheck int // checks remaining until pending clears on its own
	cancelCalls  int
	cancelClears bool

	appendCalls int
	removeCalls int
	current     *ParameterSet
}

func newFakeTransactional() *fakeTransactional {
	return &fakeTransactional{current: NewParameterSet()}
}

func (f *fakeTransactional) CurrentParams(ctx context.Context) (*ParameterSet, error) {
	return NewParameterSet(f.current.List()...), nil
}

func (f *fakeTransactional) AppendParams(ctx context.Context, params *ParameterSet) error {
	f.appendCalls++
	for _, p := range params.List() {
		f.current.Add(p)
	}
	return nil
}

func (f *fakeTransactional) RemoveParams(ctx context.Context, params *ParameterSet) error {
	f.removeCalls++
	for _, p := range params.List() {
		f.current.Remove(p)
	}
	return nil
}

func (f *fakeTransactional) RequiresReboot() bool {
	return true
}

func (f *fakeTransactional) TransactionPending(ctx context.Context) (bool, error) {
	if f.pending && f.clearOnCheck > 0 {
		f.clearOnCheck--
		if f.clearOnCheck == 0 {
			f.pending = false
		}
	}
	return f.pending, nil
}

func (f *fakeTransactional) CancelTransaction(ctx context.Context) error {
	f.cancelCalls++
	if f.cancelClears {
		f.pending = false
	}
	return nil
}

func testSafeBackend(b TransactionalBackend) *SafeBackend {
	return NewSafeBackendWithWindow(b, 50*time.Millisecond, 5*time.Millisecond)
}

func TestEnsureReadyIdleBackend(t *testing.T) {
	fake := newFakeTransactional()
	safe := testSafeBackend(fake)

	if err := safe.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady on idle backend failed: %v", err)
	}
	if fake.cancelCalls != 0 {
		t.Error("Cleanup attempted on an idle backend")
	}
}

func TestEnsureReadyWaitsOutTransientTransaction(t *testing.T) {
	fake := newFakeTransactional()
	fake.pending = true
	fake.clearOnCheck = 3
	safe := testSafeBackend(fake)

	if err := safe.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady failed on self-clearing transaction: %v", err)
	}
	if fake.cancelCalls != 0 {
		t.Error("Cleanup attempted on a transaction that cleared on its own")
	}
}

func TestEnsureReadyRecoversStuckTransaction(t *testing.T) {
	fake := newFakeTransactional()
	fake.pending = true
	fake.cancelClears = true
	safe := testSafeBackend(fake)

	if err := safe.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady failed despite successful cleanup: %v", err)
	}
	if fake.cancelCalls != 1 {
		t.Errorf("Expected exactly 1 cleanup attempt, got %d", fake.cancelCalls)
	}
}

func TestEnsureReadyFailsFastWhenStillStuck(t *testing.T) {
	fake := newFakeTransactional()
	fake.pending = true
	fake.cancelClears = false
	safe := testSafeBackend(fake)

	err := safe.EnsureReady(context.Background())
	if !IsBusy(err) {
		t.Fatalf("Expected busy error, got %v", err)
	}
	if fake.cancelCalls != 1 {
		t.Errorf("Expected exactly 1 cleanup attempt, got %d", fake.cancelCalls)
	}
}

func TestSafeBackendGatesMutations(t *testing.T) {
	fake := newFakeTransactional()
	fake.pending = true
	fake.cancelClears = false
	safe := testSafeBackend(fake)

	err := safe.AppendParams(context.Background(), NewParameterSet("mitigations=off"))
	if !IsBusy(err) {
		t.Fatalf("Expected busy error, got %v", err)
	}
	if fake.appendCalls != 0 {
		t.Error("Mutation reached the backend despite the busy gate")
	}
}

func TestSafeBackendEmptyBatchSkipsGate(t *testing.T) {
	fake := newFakeTransactional()
	fake.pending = true
	safe := testSafeBackend(fake)

	if err := safe.AppendParams(context.Background(), NewParameterSet()); err != nil {
		t.Fatalf("Empty batch must not hit the gate, got %v", err)
	}
}
