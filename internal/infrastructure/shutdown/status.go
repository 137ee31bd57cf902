// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package shutdown

import (
	"time"

	"github.com/cityevents/cityevents-api/internal/domain/entities"
)

// Status returns a copy of the current shutdown state.
func (o *Orchestrator) Status() entities.ShutdownStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := o.status
	st.InProgress = o.shuttingDown.Load()
	st.RegisteredTasks = make([]string, len(o.tasks))
	for i, t := range o.tasks {
		st.RegisteredTasks[i] = t.Name
	}
	st.Tasks = append([]entities.TaskReport(nil), o.status.Tasks...)
	return st
}

// WorstCaseDuration is how long a sequence started now can take when every
// registered task runs to its timeout, including the database disconnect.
// Callers waiting on the sequence should allow at least this long.
func (o *Orchestrator) WorstCaseDuration() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()

	total := o.disconnectTimeout
	for _, t := range o.tasks {
		total += t.Timeout
	}
	return total
}

func timePtr(t time.Time) *time.Time {
	return &t
}
