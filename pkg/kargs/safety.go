package kargs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// TransactionStatus is the observed state of an in-flight backend transaction.
type TransactionStatus string

const (
	// TransactionIdle means no transaction is in progress.
	TransactionIdle TransactionStatus = "idle"

	// TransactionPending means a transaction is in progress and may still
	// finish on its own.
	TransactionPending TransactionStatus = "pending"

	// TransactionStuck means a transaction outlived the wait window and
	// survived one cleanup attempt.
	TransactionStuck TransactionStatus = "stuck"
)

// TransactionalBackend is the extended surface of the transactional variant
// that the safety wrapper needs beyond the uniform Backend contract.
type TransactionalBackend interface {
	Backend
	TransactionPending(ctx context.Context) (bool, error)
	CancelTransaction(ctx context.Context) error
}

// SafeBackend decorates the transactional backend with stuck-transaction
// detection and cleanup. A prior run killed mid-batch can leave the daemon
// holding a transaction; without this gate every subsequent call would block
// on the daemon for minutes. The gate waits a bounded window, attempts exactly
// one cancel, re-checks once, and otherwise fails fast with a busy error.
type SafeBackend struct {
	backend TransactionalBackend

	// waitTimeout bounds how long ensureReady waits for a pending
	// transaction to finish on its own.
	waitTimeout time.Duration

	// pollInterval is the delay between transaction status checks.
	pollInterval time.Duration
}

// NewSafeBackend wraps the transactional backend with the safety gate.
func NewSafeBackend(backend TransactionalBackend) *SafeBackend {
	return NewSafeBackendWithWindow(backend, 30*time.Second, 2*time.Second)
}

// NewSafeBackendWithWindow wraps the backend with an explicit wait window and
// poll interval.
func NewSafeBackendWithWindow(backend TransactionalBackend, wait, poll time.Duration) *SafeBackend {
	return &SafeBackend{
		backend:      backend,
		waitTimeout:  wait,
		pollInterval: poll,
	}
}

// EnsureReady blocks until the backend has no in-flight transaction, runs at
// most one cleanup-and-retry cycle, and returns a busy error if the
// transaction is still stuck afterwards.
func (s *SafeBackend) EnsureReady(ctx context.Context) error {
	status, err := s.awaitIdle(ctx)
	if err != nil {
		return err
	}
	if status == TransactionIdle {
		return nil
	}

	log.Warn().
		Dur("waited", s.waitTimeout).
		Msg("Transaction still pending, attempting cleanup")

	if err := s.backend.CancelTransaction(ctx); err != nil {
		return NewBusyError("transaction stuck and cleanup failed", err).
			WithOperation("ensure-ready")
	}

	pending, err := s.backend.TransactionPending(ctx)
	if err != nil {
		return err
	}
	if pending {
		return NewBusyError("transaction stuck after cleanup attempt", nil).
			WithOperation("ensure-ready")
	}

	log.Info().Msg("Stuck transaction cleared")
	return nil
}

// awaitIdle polls transaction status until idle or the wait window elapses.
func (s *SafeBackend) awaitIdle(ctx context.Context) (TransactionStatus, error) {
	deadline := time.Now().Add(s.waitTimeout)
	for {
		pending, err := s.backend.TransactionPending(ctx)
		if err != nil {
			return TransactionStuck, err
		}
		if !pending {
			return TransactionIdle, nil
		}
		if time.Now().After(deadline) {
			return TransactionStuck, nil
		}

		select {
		case <-ctx.Done():
			return TransactionStuck, NewBusyError("cancelled while waiting for transaction", ctx.Err()).
				WithOperation("ensure-ready")
		case <-time.After(s.pollInterval):
		}
	}
}

// CurrentParams delegates directly: reads are safe alongside a pending
// transaction.
func (s *SafeBackend) CurrentParams(ctx context.Context) (*ParameterSet, error) {
	return s.backend.CurrentParams(ctx)
}

// AppendParams gates the mutation behind EnsureReady and delegates the
// coalesced batch.
func (s *SafeBackend) AppendParams(ctx context.Context, params *ParameterSet) error {
	if params.Len() == 0 {
		return nil
	}
	if err := s.EnsureReady(ctx); err != nil {
		return err
	}
	return s.backend.AppendParams(ctx, params)
}

// RemoveParams gates the mutation behind EnsureReady and delegates the
// coalesced batch.
func (s *SafeBackend) RemoveParams(ctx context.Context, params *ParameterSet) error {
	if params.Len() == 0 {
		return nil
	}
	if err := s.EnsureReady(ctx); err != nil {
		return err
	}
	return s.backend.RemoveParams(ctx, params)
}

// RequiresReboot delegates to the wrapped backend.
func (s *SafeBackend) RequiresReboot() bool {
	return s.backend.RequiresReboot()
}
