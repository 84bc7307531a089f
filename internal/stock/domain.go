// Package stock implements the inventory ledger: items with quantity and
// price tracking, an append-only movement log, clinical-use reconciliation
// and derived stock alerts.
package stock

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Category classifies inventory items.
type Category string

const (
	CategoryMedication Category = "medication"
	CategoryVaccine    Category = "vaccine"
	CategoryConsumable Category = "consumable"
	CategoryEquipment  Category = "equipment"
	CategorySupplement Category = "supplement"
)

// MovementType enumerates ledger movement kinds.
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
	MovementTransfer   MovementType = "transfer"
)

// ReasonPurchase marks inbound movements that represent a purchase and feed
// the expense side of the accounting derivation.
const ReasonPurchase = "purchase"

// Item is one inventory line. TotalValue is derived from CurrentStock and
// PurchasePrice and recomputed on every mutation, never set directly.
type Item struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Category       Category   `json:"category"`
	CurrentStock   int        `json:"currentStock"`
	MinimumStock   int        `json:"minimumStock"`
	MaximumStock   int        `json:"maximumStock,omitempty"`
	PurchasePrice  float64    `json:"purchasePrice"`
	SellingPrice   float64    `json:"sellingPrice"`
	TotalValue     float64    `json:"totalValue"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
	IsActive       bool       `json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Movement is an immutable ledger line. Movements are only ever appended,
// one per stock event, and never edited independently of that event.
type Movement struct {
	ID          uuid.UUID    `json:"id"`
	ItemID      uuid.UUID    `json:"itemId"`
	ItemName    string       `json:"itemName"`
	Type        MovementType `json:"type"`
	Quantity    int          `json:"quantity"`
	Reason      string       `json:"reason"`
	Reference   string       `json:"reference,omitempty"`
	Date        time.Time    `json:"date"`
	PerformedBy string       `json:"performedBy,omitempty"`
}

// ReconcileRequest asks the ledger to match and deduct clinical usage.
type ReconcileRequest struct {
	ProductName string
	Category    Category
	Quantity    int
	Reference   string
	PerformedBy string
}

// ReconcileResult reports the outcome of a reconciliation. Deducted is true
// only when the full requested quantity was subtracted; partial deduction is
// never performed.
type ReconcileResult struct {
	ItemID        *uuid.UUID `json:"stockItemId,omitempty"`
	IsInStock     bool       `json:"isInStock"`
	StockQuantity int        `json:"stockQuantity"`
	Deducted      bool       `json:"deducted"`
}

// AlertType enumerates derived stock alert kinds.
type AlertType string

const (
	AlertLowStock     AlertType = "low_stock"
	AlertExpired      AlertType = "expired"
	AlertExpiringSoon AlertType = "expiring_soon"
)

// Severity orders alerts for display.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// Alert is a derived warning. Alerts are recomputed on read and never
// stored.
type Alert struct {
	ItemID   uuid.UUID `json:"itemId"`
	ItemName string    `json:"itemName"`
	Type     AlertType `json:"type"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

var (
	// ErrNotFound indicates the item does not exist.
	ErrNotFound = errors.New("stock: item not found")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("stock: quantity must be positive")
)

// totalValue derives the inventory value of an item.
func totalValue(i Item) float64 {
	return float64(i.CurrentStock) * i.PurchasePrice
}
