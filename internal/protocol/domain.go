// Package protocol manages the treatment protocol catalog: named,
// species-scoped dosing schedules expressed as ordered day-offset intervals.
package protocol

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ProductType discriminates which treatment family a protocol belongs to.
type ProductType string

const (
	// ProductVaccination covers vaccine schedules.
	ProductVaccination ProductType = "vaccination"
	// ProductAntiparasitic covers antiparasitic schedules.
	ProductAntiparasitic ProductType = "antiparasitic"
)

// Interval is one step of a dosing schedule. Offset zero is the administered
// dose; the last interval carries the long-term recurrence.
type Interval struct {
	OffsetDays int    `json:"offsetDays"`
	Label      string `json:"label"`
}

// Protocol is a named treatment schedule for one species.
type Protocol struct {
	ID                uuid.UUID   `json:"id"`
	Name              string      `json:"name"`
	Species           string      `json:"species"`
	ProductType       ProductType `json:"productType"`
	TargetDescription string      `json:"targetDescription,omitempty"`
	Manufacturer      string      `json:"manufacturer,omitempty"`
	Intervals         []Interval  `json:"intervals"`
	IsActive          bool        `json:"isActive"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// ErrNotFound indicates the requested protocol does not exist.
var ErrNotFound = errors.New("protocol: not found")
