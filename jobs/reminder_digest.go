package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/vetoapp23/vetoapp/internal/treatment"
)

// TreatmentSource is the slice of the treatment engine the digest reads.
type TreatmentSource interface {
	Upcoming(ctx context.Context, days int) ([]treatment.Record, error)
	Overdue(ctx context.Context) ([]treatment.Record, error)
}

// OwnerDigest summarises one owner's pending treatments.
type OwnerDigest struct {
	OwnerID  uuid.UUID
	Upcoming []treatment.Record
	Overdue  []treatment.Record
}

// ReminderDigestJob builds per-owner digests of upcoming and overdue
// treatments.
type ReminderDigestJob struct {
	source TreatmentSource
	logger *slog.Logger
	clock  func() time.Time
}

// NewReminderDigestJob initialises the digest handler.
func NewReminderDigestJob(source TreatmentSource, logger *slog.Logger) *ReminderDigestJob {
	return &ReminderDigestJob{
		source: source,
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes a digest run.
func (j *ReminderDigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.source == nil {
		return errors.New("reminder digest: handler not configured")
	}
	var payload ReminderDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowDays <= 0 {
		payload.WindowDays = 7
	}

	digests, err := j.Build(ctx, payload.WindowDays)
	if err != nil {
		return err
	}
	for _, d := range digests {
		j.logger.Info("reminder digest",
			slog.String("owner_id", d.OwnerID.String()),
			slog.Int("upcoming", len(d.Upcoming)),
			slog.Int("overdue", len(d.Overdue)))
	}
	return nil
}

// Build groups pending treatments by owner. Reads only; the engine state is
// never mutated beyond its own sweep-on-read.
func (j *ReminderDigestJob) Build(ctx context.Context, windowDays int) ([]OwnerDigest, error) {
	upcoming, err := j.source.Upcoming(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	overdue, err := j.source.Overdue(ctx)
	if err != nil {
		return nil, err
	}

	byOwner := make(map[uuid.UUID]*OwnerDigest)
	var order []uuid.UUID
	get := func(owner uuid.UUID) *OwnerDigest {
		if d, ok := byOwner[owner]; ok {
			return d
		}
		d := &OwnerDigest{OwnerID: owner}
		byOwner[owner] = d
		order = append(order, owner)
		return d
	}
	for _, r := range upcoming {
		d := get(r.OwnerID)
		d.Upcoming = append(d.Upcoming, r)
	}
	for _, r := range overdue {
		d := get(r.OwnerID)
		d.Overdue = append(d.Overdue, r)
	}

	out := make([]OwnerDigest, 0, len(order))
	for _, owner := range order {
		out = append(out, *byOwner[owner])
	}
	return out, nil
}
