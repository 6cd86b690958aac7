package optimizer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kargtune/kargtune/pkg/history"
)

// Journal records apply runs. The history store satisfies this; a nil journal
// disables recording without touching the apply path.
type Journal interface {
	CreateRun(ctx context.Context, run *history.ApplyRun) error
	FinishRun(ctx context.Context, id string, status history.RunStatus, failedStep, errMsg *string, removed, added int) error
	AppendEvent(ctx context.Context, event *history.Event) error
}

// Metrics observes apply outcomes. Optional, nil disables observation.
type Metrics interface {
	ObserveApply(profile string, status string, duration time.Duration)
}

// runHandle tracks one journaled run. Journal failures are logged and
// swallowed: recording is diagnostic, never load-bearing.
type runHandle struct {
	id      string
	started time.Time
}

func (o *Optimizer) startRun(ctx context.Context, profile string) *runHandle {
	run := &runHandle{
		id:      uuid.New().String(),
		started: time.Now(),
	}
	if o.journal == nil {
		return run
	}

	err := o.journal.CreateRun(ctx, &history.ApplyRun{
		ID:        run.id,
		Profile:   profile,
		Backend:   string(o.descriptor.Backend),
		Status:    history.RunStatusRunning,
		StartedAt: run.started.UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to journal run start")
	}
	return run
}

func (o *Optimizer) finishRun(ctx context.Context, run *runHandle, result *Result) {
	if o.journal == nil {
		return
	}

	status := history.RunStatusSucceeded
	var failedStep, errMsg *string
	if result.Failed() {
		status = history.RunStatusFailed
		step := string(result.FailedStep)
		reason := result.Reason
		failedStep = &step
		errMsg = &reason
	}

	err := o.journal.FinishRun(ctx, run.id, status, failedStep, errMsg, len(result.Removed), len(result.Added))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to journal run finish")
	}
}

func (o *Optimizer) event(ctx context.Context, run *runHandle, message string) {
	if o.journal == nil {
		return
	}

	err := o.journal.AppendEvent(ctx, &history.Event{
		RunID:     run.id,
		Level:     history.EventLevelInfo,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to journal event")
	}
}

func (o *Optimizer) observe(run *runHandle, result *Result) {
	if o.metrics == nil {
		return
	}
	o.metrics.ObserveApply(result.Profile, string(result.Status), time.Since(run.started))
}
