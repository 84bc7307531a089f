// Package jobs defines the background task types and the Asynq worker that
// processes them. Jobs are read-only with respect to engine state: status
// sweeps stay view-triggered, never timer-driven.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReminderDigest builds the per-owner digest of upcoming and
	// overdue treatments.
	TaskReminderDigest = "reminders:digest"
)

// ReminderDigestPayload parameterises a digest run.
type ReminderDigestPayload struct {
	WindowDays int `json:"windowDays"`
}

// NewReminderDigestTask constructs an Asynq task for a digest run.
func NewReminderDigestTask(payload ReminderDigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReminderDigest, data), nil
}
