package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/vetoapp23/vetoapp/internal/platform/kv"
)

// Service owns the protocol catalog. All reads and mutations go through it;
// every mutation writes the whole collection back to the store.
type Service struct {
	mu        sync.RWMutex
	store     kv.Store
	logger    *slog.Logger
	validate  *validator.Validate
	now       func() time.Time
	protocols []Protocol
}

// NewService loads the catalog from the store. A missing namespace is an
// empty catalog.
func NewService(ctx context.Context, store kv.Store, logger *slog.Logger) (*Service, error) {
	s := &Service{
		store:    store,
		logger:   logger,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	if err := store.Load(ctx, kv.NSProtocols, &s.protocols); err != nil {
		if !errors.Is(err, kv.ErrNamespaceNotFound) {
			return nil, fmt.Errorf("protocol: load catalog: %w", err)
		}
	}
	return s, nil
}

// CreateInput describes a new catalog entry.
type CreateInput struct {
	Name              string      `validate:"required"`
	Species           string      `validate:"required"`
	ProductType       ProductType `validate:"required,oneof=vaccination antiparasitic"`
	TargetDescription string
	Manufacturer      string
	Intervals         []Interval `validate:"required,min=1,dive"`
}

// Create registers a protocol. Intervals are kept sorted by offset so the
// last one always carries the recurrence.
func (s *Service) Create(ctx context.Context, input CreateInput) (Protocol, error) {
	if err := s.validate.Struct(input); err != nil {
		return Protocol{}, fmt.Errorf("protocol: invalid input: %w", err)
	}
	now := s.now()
	p := Protocol{
		ID:                uuid.New(),
		Name:              input.Name,
		Species:           input.Species,
		ProductType:       input.ProductType,
		TargetDescription: input.TargetDescription,
		Manufacturer:      input.Manufacturer,
		Intervals:         sortedIntervals(input.Intervals),
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocols = append(s.protocols, p)
	if err := s.persistLocked(ctx); err != nil {
		s.protocols = s.protocols[:len(s.protocols)-1]
		return Protocol{}, err
	}
	return p, nil
}

// UpdateInput carries the editable protocol fields. Nil fields are left
// untouched.
type UpdateInput struct {
	Name              *string
	Species           *string
	TargetDescription *string
	Manufacturer      *string
	Intervals         []Interval
	IsActive          *bool
}

// Update edits an existing protocol. Past treatment records are never
// rewritten; the edit only affects future matching.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Protocol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Protocol{}, ErrNotFound
	}
	prev := s.protocols[idx]
	p := prev
	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.Species != nil {
		p.Species = *input.Species
	}
	if input.TargetDescription != nil {
		p.TargetDescription = *input.TargetDescription
	}
	if input.Manufacturer != nil {
		p.Manufacturer = *input.Manufacturer
	}
	if input.Intervals != nil {
		p.Intervals = sortedIntervals(input.Intervals)
	}
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}
	p.UpdatedAt = s.now()
	s.protocols[idx] = p
	if err := s.persistLocked(ctx); err != nil {
		s.protocols[idx] = prev
		return Protocol{}, err
	}
	return p, nil
}

// Deactivate removes a protocol from future matching without altering any
// record that already references it.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	active := false
	_, err := s.Update(ctx, id, UpdateInput{IsActive: &active})
	return err
}

// ByID returns one protocol.
func (s *Service) ByID(ctx context.Context, id uuid.UUID) (Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Protocol{}, ErrNotFound
	}
	return cloneProtocol(s.protocols[idx]), nil
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Species     string
	ProductType ProductType
	ActiveOnly  bool
}

// List returns catalog entries matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) []Protocol {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Protocol, 0, len(s.protocols))
	for _, p := range s.protocols {
		if filter.Species != "" && p.Species != filter.Species {
			continue
		}
		if filter.ProductType != "" && p.ProductType != filter.ProductType {
			continue
		}
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		out = append(out, cloneProtocol(p))
	}
	return out
}

// ResolveDueDate computes the long-term due date for an administered product:
// the date given plus the last interval of the matching active protocol.
// Matching is exact on name and species. The second return value is false
// when no active protocol matches or the protocol has no intervals.
func (s *Service) ResolveDueDate(productName, species string, dateGiven time.Time) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.protocols {
		if !p.IsActive || p.Name != productName || p.Species != species {
			continue
		}
		if len(p.Intervals) == 0 {
			return time.Time{}, false
		}
		last := p.Intervals[len(p.Intervals)-1]
		return dateGiven.AddDate(0, 0, last.OffsetDays), true
	}
	return time.Time{}, false
}

func (s *Service) indexLocked(id uuid.UUID) int {
	for i, p := range s.protocols {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) persistLocked(ctx context.Context) error {
	if err := s.store.Save(ctx, kv.NSProtocols, s.protocols); err != nil {
		return fmt.Errorf("protocol: persist catalog: %w", err)
	}
	return nil
}

func sortedIntervals(intervals []Interval) []Interval {
	out := make([]Interval, len(intervals))
	copy(out, intervals)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OffsetDays < out[j].OffsetDays })
	return out
}

func cloneProtocol(p Protocol) Protocol {
	out := p
	out.Intervals = make([]Interval, len(p.Intervals))
	copy(out.Intervals, p.Intervals)
	return out
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds case, whitespace and diacritics out of a product or
// species name. ResolveDueDate deliberately does not use it: catalog
// matching stays exact, and a renamed stock item silently stops matching.
// Normalize exists so callers can detect near-misses and surface them.
func Normalize(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
