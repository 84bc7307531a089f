// Package accounting derives revenue and expense entries from clinical and
// inventory events and maintains the manual ledger alongside them.
package accounting

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// EntryType separates money in from money out.
type EntryType string

const (
	EntryRevenue EntryType = "revenue"
	EntryExpense EntryType = "expense"
)

// EntryCategory separates derived entries from hand-written ones. Automatic
// entries are owned by the derivation sweep; manual entries are never
// touched by it.
type EntryCategory string

const (
	CategoryAutomatic EntryCategory = "automatic"
	CategoryManual    EntryCategory = "manual"
)

// Event source identifiers. Together with the source ID they form the sole
// deduplication key for automatic entries.
const (
	SourceConsultation  = "consultation"
	SourceVaccination   = "vaccination"
	SourceAntiparasitic = "antiparasitic"
	SourcePrescription  = "prescription"
	SourceStockPurchase = "stock_purchase"
)

// Entry is one ledger line.
type Entry struct {
	ID          uuid.UUID     `json:"id"`
	Type        EntryType     `json:"type"`
	Category    EntryCategory `json:"category"`
	Frequency   string        `json:"frequency,omitempty"`
	Description string        `json:"description"`
	Amount      float64       `json:"amount"`
	Date        time.Time     `json:"date"`
	Source      string        `json:"source,omitempty"`
	SourceID    uuid.UUID     `json:"sourceId,omitempty"`
	Notes       string        `json:"notes,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Event is one clinical or inventory fact a ledger entry can be derived
// from.
type Event struct {
	Source      string
	SourceID    uuid.UUID
	Type        EntryType
	Date        time.Time
	Amount      float64
	Description string
}

// Summary aggregates a reporting period.
type Summary struct {
	Period           string             `json:"period"`
	StartDate        time.Time          `json:"startDate"`
	EndDate          time.Time          `json:"endDate"`
	TotalRevenue     float64            `json:"totalRevenue"`
	TotalExpenses    float64            `json:"totalExpenses"`
	NetIncome        float64            `json:"netIncome"`
	RevenueBySource  map[string]float64 `json:"revenueBySource"`
	ExpensesBySource map[string]float64 `json:"expensesBySource"`
}

var (
	// ErrNotFound indicates the entry does not exist.
	ErrNotFound = errors.New("accounting: entry not found")
	// ErrNotManual indicates an attempt to edit a derived entry.
	ErrNotManual = errors.New("accounting: only manual entries can be edited")
)
