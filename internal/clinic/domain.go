// Package clinic holds the clinical event stores the accounting derivation
// walks: consultations and prescriptions. Prescription dispensing deducts
// medication stock through the ledger.
package clinic

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Consultation is one billed visit.
type Consultation struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patientId"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Date      time.Time `json:"date"`
	Reason    string    `json:"reason,omitempty"`
	Diagnosis string    `json:"diagnosis,omitempty"`
	Cost      float64   `json:"cost"`
	CreatedAt time.Time `json:"createdAt"`
}

// Medication is one prescription line. StockDeducted records whether the
// prescribed quantity was taken from the ledger at dispensing time.
type Medication struct {
	Name          string  `json:"name"`
	Quantity      int     `json:"quantity"`
	Cost          float64 `json:"cost"`
	Instructions  string  `json:"instructions,omitempty"`
	StockDeducted bool    `json:"stockDeducted"`
}

// Prescription is one dispensed set of medications.
type Prescription struct {
	ID             uuid.UUID    `json:"id"`
	PatientID      uuid.UUID    `json:"patientId"`
	OwnerID        uuid.UUID    `json:"ownerId"`
	ConsultationID *uuid.UUID   `json:"consultationId,omitempty"`
	Date           time.Time    `json:"date"`
	Medications    []Medication `json:"medications"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// Total sums line cost times quantity across the prescription.
func (p Prescription) Total() float64 {
	var total float64
	for _, m := range p.Medications {
		total += m.Cost * float64(m.Quantity)
	}
	return total
}

// ErrNotFound indicates the requested clinical event does not exist.
var ErrNotFound = errors.New("clinic: not found")
