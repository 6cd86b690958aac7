package history

import (
	"time"
)

// RunStatus represents the outcome of an apply run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// EventLevel represents the severity of a journal event.
type EventLevel string

const (
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// ApplyRun is one recorded invocation of the profile apply state machine.
type ApplyRun struct {
	ID            string     `json:"id"`
	Profile       string     `json:"profile"`
	Backend       string     `json:"backend"`
	Status        RunStatus  `json:"status"`
	FailedStep    *string    `json:"failed_step,omitempty"`
	Error         *string    `json:"error,omitempty"`
	ParamsRemoved int        `json:"params_removed"`
	ParamsAdded   int        `json:"params_added"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Event is one append-only journal entry tied to a run.
type Event struct {
	ID        int64      `json:"id"`
	RunID     string     `json:"run_id"`
	Level     EventLevel `json:"level"`
	Message   string     `json:"message"`
	Timestamp time.Time  `json:"timestamp"`
}
