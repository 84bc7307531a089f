package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vetoapp23/vetoapp/internal/platform/kv"
)

// Source supplies derivable events. The clinical and inventory services
// each implement it.
type Source interface {
	AccountingEvents(ctx context.Context) ([]Event, error)
}

// Service owns the accounting ledger. Derivation is triggered by read
// access (building a summary) or explicitly, never by a timer, and is safe
// to re-run at any time.
type Service struct {
	mu       sync.Mutex
	store    kv.Store
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
	sources  []Source
	entries  []Entry
}

// NewService loads the ledger from the store.
func NewService(ctx context.Context, store kv.Store, logger *slog.Logger, sources ...Source) (*Service, error) {
	s := &Service{
		store:    store,
		logger:   logger,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
		sources:  sources,
	}
	if err := store.Load(ctx, kv.NSAccounting, &s.entries); err != nil && !errors.Is(err, kv.ErrNamespaceNotFound) {
		return nil, fmt.Errorf("accounting: load entries: %w", err)
	}
	return s, nil
}

// RegisterSource adds an event source after construction. Used to break the
// wiring cycle with services that themselves consume accounting types.
func (s *Service) RegisterSource(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, src)
}

// Derive collects events from every source and appends the automatic
// entries that do not exist yet. Returns only the newly created entries.
func (s *Service) Derive(ctx context.Context, from, to time.Time) ([]Entry, error) {
	var events []Event
	s.mu.Lock()
	sources := make([]Source, len(s.sources))
	copy(sources, s.sources)
	s.mu.Unlock()

	for _, src := range sources {
		evs, err := src.AccountingEvents(ctx)
		if err != nil {
			return nil, fmt.Errorf("accounting: collect events: %w", err)
		}
		events = append(events, evs...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	created := DeriveEntries(events, s.entries, from, to, s.now())
	if len(created) == 0 {
		return nil, nil
	}
	s.entries = append(s.entries, created...)
	if err := s.persistLocked(ctx); err != nil {
		s.entries = s.entries[:len(s.entries)-len(created)]
		return nil, err
	}
	return created, nil
}

// ManualEntryInput describes a hand-written ledger line.
type ManualEntryInput struct {
	Type        EntryType `validate:"required,oneof=revenue expense"`
	Description string    `validate:"required"`
	Amount      float64   `validate:"required,gt=0"`
	Date        time.Time `validate:"required"`
	Frequency   string
	Notes       string
}

// AddManualEntry appends a manual entry. The derivation sweep never touches
// it.
func (s *Service) AddManualEntry(ctx context.Context, input ManualEntryInput) (Entry, error) {
	if err := s.validate.Struct(input); err != nil {
		return Entry{}, fmt.Errorf("accounting: invalid entry: %w", err)
	}
	entry := Entry{
		ID:          uuid.New(),
		Type:        input.Type,
		Category:    CategoryManual,
		Frequency:   input.Frequency,
		Description: input.Description,
		Amount:      input.Amount,
		Date:        input.Date,
		Notes:       input.Notes,
		CreatedAt:   s.now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	if err := s.persistLocked(ctx); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return Entry{}, err
	}
	return entry, nil
}

// UpdateManualInput carries editable manual-entry fields.
type UpdateManualInput struct {
	Description *string
	Amount      *float64
	Date        *time.Time
	Notes       *string
}

// UpdateManualEntry edits a manual entry. Automatic entries are derived
// facts and cannot be edited.
func (s *Service) UpdateManualEntry(ctx context.Context, id uuid.UUID, input UpdateManualInput) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Entry{}, ErrNotFound
	}
	if s.entries[idx].Category != CategoryManual {
		return Entry{}, ErrNotManual
	}
	prev := s.entries[idx]
	entry := prev
	if input.Description != nil {
		entry.Description = *input.Description
	}
	if input.Amount != nil {
		entry.Amount = *input.Amount
	}
	if input.Date != nil {
		entry.Date = *input.Date
	}
	if input.Notes != nil {
		entry.Notes = *input.Notes
	}
	s.entries[idx] = entry
	if err := s.persistLocked(ctx); err != nil {
		s.entries[idx] = prev
		return Entry{}, err
	}
	return entry, nil
}

// DeleteManualEntry removes a manual entry.
func (s *Service) DeleteManualEntry(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrNotFound
	}
	if s.entries[idx].Category != CategoryManual {
		return ErrNotManual
	}
	removed := s.entries[idx]
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	if err := s.persistLocked(ctx); err != nil {
		s.entries = append(s.entries[:idx], append([]Entry{removed}, s.entries[idx:]...)...)
		return err
	}
	return nil
}

// Entries returns a snapshot of ledger lines inside the range.
func (s *Service) Entries(ctx context.Context, from, to time.Time) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// GenerateSummary derives any missing entries for the range and aggregates
// the period.
func (s *Service) GenerateSummary(ctx context.Context, period string, from, to time.Time) (Summary, error) {
	if _, err := s.Derive(ctx, from, to); err != nil {
		return Summary{}, err
	}
	summary := Summary{
		Period:           period,
		StartDate:        from,
		EndDate:          to,
		RevenueBySource:  make(map[string]float64),
		ExpensesBySource: make(map[string]float64),
	}
	for _, e := range s.Entries(ctx, from, to) {
		source := e.Source
		if e.Category == CategoryManual {
			source = "manual"
		}
		switch e.Type {
		case EntryRevenue:
			summary.TotalRevenue += e.Amount
			summary.RevenueBySource[source] += e.Amount
		case EntryExpense:
			summary.TotalExpenses += e.Amount
			summary.ExpensesBySource[source] += e.Amount
		}
	}
	summary.NetIncome = summary.TotalRevenue - summary.TotalExpenses
	return summary, nil
}

func (s *Service) persistLocked(ctx context.Context) error {
	if err := s.store.Save(ctx, kv.NSAccounting, s.entries); err != nil {
		return fmt.Errorf("accounting: persist ledger: %w", err)
	}
	return nil
}

func (s *Service) indexLocked(id uuid.UUID) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
