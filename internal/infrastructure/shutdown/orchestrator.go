// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package shutdown runs the graceful shutdown sequence: prioritized cleanup
// tasks, each bounded by its own timeout, followed by the database disconnect.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cityevents/cityevents-api/internal/domain/contracts"
	"github.com/cityevents/cityevents-api/internal/domain/entities"
	"github.com/cityevents/cityevents-api/pkg/constants"
	"github.com/cityevents/cityevents-api/pkg/logging"
)

// ErrTaskTimeout is reported for a cleanup task that did not finish in time.
var ErrTaskTimeout = errors.New(constants.ErrCleanupTimeout)

// Shutdown is the shared handle for the single shutdown sequence. Every call
// to InitiateShutdown returns the same *Shutdown.
type Shutdown struct {
	signal    string
	startedAt time.Time
	done      chan struct{}
	err       error
}

// Done is closed once the sequence has finished.
func (s *Shutdown) Done() <-chan struct{} {
	return s.done
}

// Err returns the structural failure of the sequence, if any. It is only
// meaningful after Done is closed.
func (s *Shutdown) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait blocks until the sequence finishes or ctx ends.
func (s *Shutdown) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Signal returns the label passed by the first caller.
func (s *Shutdown) Signal() string {
	return s.signal
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDisconnectTimeout bounds the database disconnect phase.
func WithDisconnectTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.disconnectTimeout = d }
}

// WithDefaultTaskTimeout is applied to tasks registered without a timeout.
func WithDefaultTaskTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.defaultTaskTimeout = d }
}

// Orchestrator owns the cleanup task registry and the shutdown state.
type Orchestrator struct {
	db     contracts.Database
	logger *slog.Logger

	disconnectTimeout  time.Duration
	defaultTaskTimeout time.Duration

	shuttingDown atomic.Bool

	mu      sync.Mutex
	tasks   []contracts.CleanupTask
	current *Shutdown
	status  entities.ShutdownStatus

	// onPhase is called on every phase transition; tests use it to inject
	// failures into the sequencing itself.
	onPhase func(entities.ShutdownPhase)
}

// New creates an orchestrator that disconnects db as its final step.
func New(db contracts.Database, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		db:                 db,
		logger:             logging.WithComponent(logger, "shutdown"),
		disconnectTimeout:  constants.DatabaseCloseTimeout,
		defaultTaskTimeout: constants.CleanupTaskTimeout,
		status:             entities.ShutdownStatus{Phase: entities.PhaseIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RegisterCleanupTask adds a task and keeps the registry sorted by descending
// priority. Tasks with equal priority keep registration order. Registering
// after shutdown has started does not affect the running sequence.
func (o *Orchestrator) RegisterCleanupTask(task contracts.CleanupTask) {
	if task.Timeout <= 0 {
		task.Timeout = o.defaultTaskTimeout
	}

	o.mu.Lock()
	o.tasks = append(o.tasks, task)
	sort.SliceStable(o.tasks, func(i, j int) bool {
		return o.tasks[i].Priority > o.tasks[j].Priority
	})
	total := len(o.tasks)
	o.mu.Unlock()

	o.logger.Info("Registered cleanup task",
		"task", task.Name,
		"priority", task.Priority,
		"timeout", task.Timeout.String(),
		"registered_tasks", total)
}

// RegisteredTasks returns task names in execution order.
func (o *Orchestrator) RegisteredTasks() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	names := make([]string, len(o.tasks))
	for i, t := range o.tasks {
		names[i] = t.Name
	}
	return names
}

// IsShuttingDown reports whether a shutdown has been initiated.
func (o *Orchestrator) IsShuttingDown() bool {
	return o.shuttingDown.Load()
}

// InitiateShutdown starts the shutdown sequence once. Later and concurrent
// calls return the handle created by the first call and do no work.
func (o *Orchestrator) InitiateShutdown(signal string) *Shutdown {
	o.mu.Lock()
	if o.current != nil {
		current := o.current
		o.mu.Unlock()
		o.logger.Info("Shutdown already in progress", "signal", signal, "initial_signal", current.signal)
		return current
	}

	s := &Shutdown{signal: signal, startedAt: time.Now(), done: make(chan struct{})}
	o.current = s
	o.shuttingDown.Store(true)
	tasks := make([]contracts.CleanupTask, len(o.tasks))
	copy(tasks, o.tasks)
	o.status.Signal = signal
	o.status.StartedAt = timePtr(s.startedAt)
	o.mu.Unlock()

	o.logger.Info("Graceful shutdown initiated", "signal", signal, "cleanup_tasks", len(tasks))

	go o.run(s, tasks)
	return s
}

// run executes the three phases. Task and disconnect failures are recovered
// where they happen; anything reaching the deferred recover is a defect in
// the sequencing and fails the shutdown.
func (o *Orchestrator) run(s *Shutdown, tasks []contracts.CleanupTask) {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			s.err = fmt.Errorf("shutdown sequence failed: %v", r)
			o.logger.Error("Graceful shutdown failed", "signal", s.signal, "error", s.err.Error())
			o.mu.Lock()
			o.status.Phase = entities.PhaseFailed
			o.status.Error = s.err.Error()
			o.status.FinishedAt = timePtr(time.Now())
			o.mu.Unlock()
		}
	}()

	// Phase 1: the HTTP server stops accepting requests on its own.
	o.enterPhase(entities.PhaseStoppingRequests)
	o.logger.Info("Shutdown phase 1: no longer accepting new requests")

	// Phase 2
	o.enterPhase(entities.PhaseRunningCleanup)
	o.logger.Info("Shutdown phase 2: running cleanup tasks", "count", len(tasks))
	failed := 0
	for _, task := range tasks {
		report := o.runTask(task)
		if report.Outcome != entities.OutcomeCompleted {
			failed++
		}
		o.mu.Lock()
		o.status.Tasks = append(o.status.Tasks, report)
		o.mu.Unlock()
	}

	// Phase 3
	o.enterPhase(entities.PhaseDisconnecting)
	o.logger.Info("Shutdown phase 3: disconnecting database")
	dbErr := o.disconnect()

	o.mu.Lock()
	if dbErr != nil {
		o.status.DatabaseError = dbErr.Error()
	} else {
		o.status.DatabaseDisconnected = true
	}
	o.mu.Unlock()
	o.enterPhase(entities.PhaseCompleted)

	o.mu.Lock()
	o.status.FinishedAt = timePtr(time.Now())
	o.mu.Unlock()

	o.logger.Info("Graceful shutdown completed",
		"signal", s.signal,
		"duration", time.Since(s.startedAt).String(),
		"failed_tasks", failed,
		"database_disconnected", dbErr == nil)
}

// runTask races the task against its timeout. On timeout the task keeps
// running in the background and its eventual result is dropped.
func (o *Orchestrator) runTask(task contracts.CleanupTask) entities.TaskReport {
	start := time.Now()
	report := entities.TaskReport{Name: task.Name, Priority: task.Priority}

	ctx, cancel := context.WithTimeout(context.Background(), task.Timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("cleanup task panicked: %v", r)
			}
		}()
		result <- task.Run(ctx)
	}()

	var err error
	select {
	case err = <-result:
	case <-ctx.Done():
		err = fmt.Errorf("%w after %s", ErrTaskTimeout, task.Timeout)
	}
	elapsed := time.Since(start)
	report.DurationMs = float64(elapsed.Microseconds()) / 1000

	switch {
	case err == nil:
		report.Outcome = entities.OutcomeCompleted
		o.logger.Info("Cleanup task completed", "task", task.Name, "duration", elapsed.String())
	case errors.Is(err, ErrTaskTimeout):
		report.Outcome = entities.OutcomeTimedOut
		report.Error = err.Error()
		logging.LogError(o.logger, constants.ErrCleanupTimeout, err, "task", task.Name, "timeout", task.Timeout.String())
	default:
		report.Outcome = entities.OutcomeFailed
		report.Error = err.Error()
		logging.LogError(o.logger, constants.ErrCleanupTask, err, "task", task.Name)
	}
	return report
}

func (o *Orchestrator) disconnect() (err error) {
	if o.db == nil {
		o.logger.Warn("No database configured, skipping disconnect")
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("database disconnect panicked: %v", r)
			logging.LogError(o.logger, constants.ErrDatabaseClose, err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), o.disconnectTimeout)
	defer cancel()

	if err = o.db.Disconnect(ctx); err != nil {
		logging.LogError(o.logger, constants.ErrDatabaseClose, err)
		return err
	}
	o.logger.Info("Database disconnected")
	return nil
}

func (o *Orchestrator) enterPhase(p entities.ShutdownPhase) {
	o.mu.Lock()
	o.status.Phase = p
	hook := o.onPhase
	o.mu.Unlock()

	if hook != nil {
		hook(p)
	}
}
