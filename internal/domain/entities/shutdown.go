// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package entities

import "time"

// ShutdownPhase is the current step of the shutdown sequence.
type ShutdownPhase string

const (
	PhaseIdle             ShutdownPhase = "idle"
	PhaseStoppingRequests ShutdownPhase = "stopping_requests"
	PhaseRunningCleanup   ShutdownPhase = "running_cleanup"
	PhaseDisconnecting    ShutdownPhase = "disconnecting_database"
	PhaseCompleted        ShutdownPhase = "completed"
	PhaseFailed           ShutdownPhase = "failed"
)

// TaskOutcome is how a single cleanup task ended.
type TaskOutcome string

const (
	OutcomeCompleted TaskOutcome = "completed"
	OutcomeFailed    TaskOutcome = "failed"
	OutcomeTimedOut  TaskOutcome = "timed_out"
)

// TaskReport records one cleanup task execution.
type TaskReport struct {
	Name       string      `json:"name"`
	Priority   int         `json:"priority"`
	Outcome    TaskOutcome `json:"outcome"`
	DurationMs float64     `json:"durationMs"`
	Error      string      `json:"error,omitempty"`
}

// ShutdownStatus is a snapshot of the shutdown state for status endpoints.
// StartedAt and FinishedAt stay nil until the sequence reaches them.
type ShutdownStatus struct {
	InProgress           bool          `json:"inProgress"`
	Phase                ShutdownPhase `json:"phase"`
	Signal               string        `json:"signal,omitempty"`
	StartedAt            *time.Time    `json:"startedAt,omitempty"`
	FinishedAt           *time.Time    `json:"finishedAt,omitempty"`
	RegisteredTasks      []string      `json:"registeredTasks"`
	Tasks                []TaskReport  `json:"tasks,omitempty"`
	DatabaseDisconnected bool          `json:"databaseDisconnected"`
	DatabaseError        string        `json:"databaseError,omitempty"`
	Error                string        `json:"error,omitempty"`
}
