package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vetoapp23/vetoapp/internal/platform/kv"
)

// Service owns the stock ledger: the item collection and the append-only
// movement log. Quantity changes and their movement lines are written
// through the store in one atomic SaveAll.
type Service struct {
	mu        sync.RWMutex
	store     kv.Store
	logger    *slog.Logger
	validate  *validator.Validate
	now       func() time.Time
	items     []Item
	movements []Movement
}

// NewService loads ledger state from the store. Missing namespaces are
// treated as empty collections.
func NewService(ctx context.Context, store kv.Store, logger *slog.Logger) (*Service, error) {
	s := &Service{
		store:    store,
		logger:   logger,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	if err := store.Load(ctx, kv.NSStockItems, &s.items); err != nil && !errors.Is(err, kv.ErrNamespaceNotFound) {
		return nil, fmt.Errorf("stock: load items: %w", err)
	}
	if err := store.Load(ctx, kv.NSStockMovements, &s.movements); err != nil && !errors.Is(err, kv.ErrNamespaceNotFound) {
		return nil, fmt.Errorf("stock: load movements: %w", err)
	}
	return s, nil
}

// AddItemInput describes a new inventory item.
type AddItemInput struct {
	Name           string   `validate:"required"`
	Category       Category `validate:"required,oneof=medication vaccine consumable equipment supplement"`
	CurrentStock   int      `validate:"min=0"`
	MinimumStock   int      `validate:"min=0"`
	MaximumStock   int      `validate:"min=0"`
	PurchasePrice  float64  `validate:"min=0"`
	SellingPrice   float64  `validate:"min=0"`
	ExpirationDate *time.Time
}

// AddItem registers an inventory item. An initial quantity is logged as a
// purchase movement so the ledger starts consistent.
func (s *Service) AddItem(ctx context.Context, input AddItemInput) (Item, error) {
	if err := s.validate.Struct(input); err != nil {
		return Item{}, fmt.Errorf("stock: invalid item: %w", err)
	}
	now := s.now()
	item := Item{
		ID:             uuid.New(),
		Name:           input.Name,
		Category:       input.Category,
		CurrentStock:   input.CurrentStock,
		MinimumStock:   input.MinimumStock,
		MaximumStock:   input.MaximumStock,
		PurchasePrice:  input.PurchasePrice,
		SellingPrice:   input.SellingPrice,
		ExpirationDate: input.ExpirationDate,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	item.TotalValue = totalValue(item)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	if item.CurrentStock > 0 {
		s.movements = append(s.movements, Movement{
			ID:       uuid.New(),
			ItemID:   item.ID,
			ItemName: item.Name,
			Type:     MovementIn,
			Quantity: item.CurrentStock,
			Reason:   ReasonPurchase,
			Date:     now,
		})
	}
	if err := s.persistLocked(ctx); err != nil {
		return Item{}, err
	}
	return item, nil
}

// UpdateItemInput carries editable fields; nil leaves a field untouched.
// CurrentStock is deliberately absent: quantities only change through
// movements (Restock, Adjust, Reconcile).
type UpdateItemInput struct {
	Name           *string
	Category       *Category
	MinimumStock   *int
	MaximumStock   *int
	PurchasePrice  *float64
	SellingPrice   *float64
	ExpirationDate *time.Time
	IsActive       *bool
}

// UpdateItem edits item metadata and recomputes the derived value.
func (s *Service) UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Item{}, ErrNotFound
	}
	item := s.items[idx]
	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Category != nil {
		item.Category = *input.Category
	}
	if input.MinimumStock != nil {
		item.MinimumStock = *input.MinimumStock
	}
	if input.MaximumStock != nil {
		item.MaximumStock = *input.MaximumStock
	}
	if input.PurchasePrice != nil {
		item.PurchasePrice = *input.PurchasePrice
	}
	if input.SellingPrice != nil {
		item.SellingPrice = *input.SellingPrice
	}
	if input.ExpirationDate != nil {
		item.ExpirationDate = input.ExpirationDate
	}
	if input.IsActive != nil {
		item.IsActive = *input.IsActive
	}
	item.TotalValue = totalValue(item)
	item.UpdatedAt = s.now()
	prev := s.items[idx]
	s.items[idx] = item
	if err := s.persistLocked(ctx); err != nil {
		s.items[idx] = prev
		return Item{}, err
	}
	return item, nil
}

// DeleteItem removes an item. The movement log is append-only and keeps its
// history.
func (s *Service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrNotFound
	}
	removed := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	if err := s.persistLocked(ctx); err != nil {
		s.items = append(s.items[:idx], append([]Item{removed}, s.items[idx:]...)...)
		return err
	}
	return nil
}

// Restock adds quantity to an item and logs one inbound movement.
func (s *Service) Restock(ctx context.Context, id uuid.UUID, qty int, reason, performedBy string) (Item, error) {
	if qty <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	if reason == "" {
		reason = ReasonPurchase
	}
	return s.applyMovement(ctx, id, qty, MovementIn, reason, "", performedBy)
}

// Adjust corrects an item quantity by a signed delta and logs one
// adjustment movement.
func (s *Service) Adjust(ctx context.Context, id uuid.UUID, delta int, reason, performedBy string) (Item, error) {
	if delta == 0 {
		return Item{}, ErrInvalidQuantity
	}
	return s.applyMovement(ctx, id, delta, MovementAdjustment, reason, "", performedBy)
}

// Reconcile matches a clinical product against the ledger and deducts the
// administered quantity. Matching is a case-insensitive exact name match on
// active items of the given category. When the item exists but cannot cover
// the full quantity nothing is deducted; the shortfall surfaces via Alerts.
func (s *Service) Reconcile(ctx context.Context, req ReconcileRequest) (ReconcileResult, error) {
	if req.Quantity <= 0 {
		return ReconcileResult{}, ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, item := range s.items {
		if item.IsActive && item.Category == req.Category && strings.EqualFold(item.Name, req.ProductName) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ReconcileResult{}, nil
	}

	item := s.items[idx]
	result := ReconcileResult{
		ItemID:        &item.ID,
		IsInStock:     item.CurrentStock > 0,
		StockQuantity: item.CurrentStock,
	}
	if item.CurrentStock < req.Quantity {
		return result, nil
	}

	prevItem := item
	item.CurrentStock -= req.Quantity
	item.TotalValue = totalValue(item)
	item.UpdatedAt = s.now()
	s.items[idx] = item
	s.movements = append(s.movements, Movement{
		ID:          uuid.New(),
		ItemID:      item.ID,
		ItemName:    item.Name,
		Type:        MovementOut,
		Quantity:    req.Quantity,
		Reason:      "clinical use",
		Reference:   req.Reference,
		Date:        s.now(),
		PerformedBy: req.PerformedBy,
	})
	if err := s.persistLocked(ctx); err != nil {
		s.items[idx] = prevItem
		s.movements = s.movements[:len(s.movements)-1]
		return ReconcileResult{}, err
	}
	result.Deducted = true
	result.StockQuantity = item.CurrentStock
	return result, nil
}

// Items returns a snapshot of the item collection.
func (s *Service) Items(ctx context.Context) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// ItemByID returns one item.
func (s *Service) ItemByID(ctx context.Context, id uuid.UUID) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Item{}, ErrNotFound
	}
	return s.items[idx], nil
}

// Movements returns a snapshot of the movement log, newest last.
func (s *Service) Movements(ctx context.Context) []Movement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Movement, len(s.movements))
	copy(out, s.movements)
	return out
}

func (s *Service) applyMovement(ctx context.Context, id uuid.UUID, delta int, typ MovementType, reason, reference, performedBy string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Item{}, ErrNotFound
	}
	item := s.items[idx]
	if item.CurrentStock+delta < 0 {
		return Item{}, fmt.Errorf("stock: %s would drop below zero", item.Name)
	}
	prev := item
	item.CurrentStock += delta
	item.TotalValue = totalValue(item)
	item.UpdatedAt = s.now()
	s.items[idx] = item

	qty := delta
	if qty < 0 {
		qty = -qty
	}
	s.movements = append(s.movements, Movement{
		ID:          uuid.New(),
		ItemID:      item.ID,
		ItemName:    item.Name,
		Type:        typ,
		Quantity:    qty,
		Reason:      reason,
		Reference:   reference,
		Date:        s.now(),
		PerformedBy: performedBy,
	})
	if err := s.persistLocked(ctx); err != nil {
		s.items[idx] = prev
		s.movements = s.movements[:len(s.movements)-1]
		return Item{}, err
	}
	return item, nil
}

// persistLocked writes items and movements back as one atomic unit so a
// quantity change can never land without its movement line.
func (s *Service) persistLocked(ctx context.Context) error {
	err := s.store.SaveAll(ctx, map[string]any{
		kv.NSStockItems:     s.items,
		kv.NSStockMovements: s.movements,
	})
	if err != nil {
		return fmt.Errorf("stock: persist ledger: %w", err)
	}
	return nil
}

func (s *Service) indexLocked(id uuid.UUID) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
