// Package treatment implements the treatment lifecycle engine: administered
// vaccinations and antiparasitics, the reminder chains derived from
// protocols, status recomputation and the deletion cascade.
package treatment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind selects one of the two parallel record collections.
type Kind string

const (
	KindVaccination   Kind = "vaccination"
	KindAntiparasitic Kind = "antiparasitic"
)

// Category discriminates the record variant explicitly: New is the actual
// administration, Reminder is a follow-up derived from a protocol interval.
type Category string

const (
	CategoryNew      Category = "new"
	CategoryReminder Category = "reminder"
)

// Status is the lifecycle state. Completed is terminal: no sweep may change
// it.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusScheduled Status = "scheduled"
	StatusOverdue   Status = "overdue"
	StatusMissed    Status = "missed"
)

// Record is one administered or scheduled dose.
//
// Reminder records always reference the originating administration through
// OriginalTreatmentID; the set of reminders sharing one origin is the
// record's reminder chain. CalculatedDueDate holds the protocol-suggested
// date and is never overwritten by manual edits to NextDueDate.
type Record struct {
	ID                  uuid.UUID  `json:"id"`
	Kind                Kind       `json:"-"`
	PatientID           uuid.UUID  `json:"patientId"`
	OwnerID             uuid.UUID  `json:"ownerId"`
	ProductName         string     `json:"productName"`
	ProductType         string     `json:"productType,omitempty"`
	Manufacturer        string     `json:"manufacturer,omitempty"`
	DateGiven           time.Time  `json:"dateGiven"`
	NextDueDate         time.Time  `json:"nextDueDate"`
	CalculatedDueDate   *time.Time `json:"calculatedDueDate,omitempty"`
	Category            Category   `json:"category"`
	OriginalTreatmentID *uuid.UUID `json:"originalTreatmentId,omitempty"`
	Status              Status     `json:"status"`
	StockItemID         *uuid.UUID `json:"stockItemId,omitempty"`
	IsInStock           bool       `json:"isInStock"`
	StockQuantity       int        `json:"stockQuantity"`
	StockDeducted       bool       `json:"stockDeducted"`
	Cost                float64    `json:"cost,omitempty"`
	BatchNumber         string     `json:"batchNumber,omitempty"`
	PerformedBy         string     `json:"performedBy,omitempty"`
	AppointmentID       *uuid.UUID `json:"appointmentId,omitempty"`
	Notes               string     `json:"notes,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

var (
	// ErrNotFound indicates the record does not exist.
	ErrNotFound = errors.New("treatment: record not found")
	// ErrNotReminder indicates a confirmation attempt on a non-reminder
	// record.
	ErrNotReminder = errors.New("treatment: record is not a scheduled reminder")
	// ErrAlreadyCompleted indicates a confirmation attempt on a record that
	// already reached its terminal state.
	ErrAlreadyCompleted = errors.New("treatment: record already completed")
	// ErrUnknownKind indicates a kind outside vaccination/antiparasitic.
	ErrUnknownKind = errors.New("treatment: unknown kind")
)
