package treatment

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
	"github.com/vetoapp23/vetoapp/internal/protocol"
	"github.com/vetoapp23/vetoapp/internal/stock"
)

// ProtocolPort is the slice of the protocol catalog the engine needs.
type ProtocolPort interface {
	ByID(ctx context.Context, id uuid.UUID) (protocol.Protocol, error)
	ResolveDueDate(productName, species string, dateGiven time.Time) (time.Time, bool)
}

// StockPort is the slice of the stock ledger the engine needs.
type StockPort interface {
	Reconcile(ctx context.Context, req stock.ReconcileRequest) (stock.ReconcileResult, error)
}

// Service owns the two parallel record collections and funnels every
// mutation through the engine operations, preserving the reminder-chain and
// terminal-status invariants.
type Service struct {
	mu        sync.Mutex
	store     kv.Store
	logger    *slog.Logger
	validate  *validator.Validate
	protocols ProtocolPort
	stock     StockPort
	now       func() time.Time
	records   map[Kind][]Record
}

// NewService loads both collections from the store.
func NewService(ctx context.Context, store kv.Store, logger *slog.Logger, protocols ProtocolPort, stockPort StockPort) (*Service, error) {
	s := &Service{
		store:     store,
		logger:    logger,
		validate:  validator.New(),
		protocols: protocols,
		stock:     stockPort,
		now:       func() time.Time { return time.Now().UTC() },
		records:   map[Kind][]Record{KindVaccination: nil, KindAntiparasitic: nil},
	}
	for kind, ns := range namespaces {
		var recs []Record
		if err := store.Load(ctx, ns, &recs); err != nil && !errors.Is(err, kv.ErrNamespaceNotFound) {
			return nil, fmt.Errorf("treatment: load %s: %w", ns, err)
		}
		for i := range recs {
			recs[i].Kind = kind
		}
		s.records[kind] = recs
	}
	return s, nil
}

var namespaces = map[Kind]string{
	KindVaccination:   kv.NSVaccinations,
	KindAntiparasitic: kv.NSAntiparasitics,
}

func stockCategory(kind Kind) stock.Category {
	if kind == KindVaccination {
		return stock.CategoryVaccine
	}
	return stock.CategoryMedication
}

// AddInput describes a new administration. With ProtocolIDs set, one group
// of records is created per protocol (administered dose plus its reminder
// chain); without, a single record is created from ProductName and
// NextDueDate.
type AddInput struct {
	Kind          Kind      `validate:"required,oneof=vaccination antiparasitic"`
	PatientID     uuid.UUID `validate:"required"`
	OwnerID       uuid.UUID `validate:"required"`
	Species       string
	DateGiven     time.Time `validate:"required"`
	ProtocolIDs   []uuid.UUID
	ProductName   string
	NextDueDate   time.Time
	Cost          float64
	BatchNumber   string
	PerformedBy   string
	AppointmentID *uuid.UUID
	Notes         string
}

// AddResult reports the created records together with any per-protocol
// problems. Problems are local: one protocol failing to expand does not
// abort the rest.
type AddResult struct {
	Created  []Record `json:"created"`
	Problems []string `json:"problems,omitempty"`
}

// Add creates the record group for an administration and reconciles stock
// for the administered dose. Reminder records never touch inventory.
func (s *Service) Add(ctx context.Context, input AddInput) (AddResult, error) {
	if err := s.validate.Struct(input); err != nil {
		return AddResult{}, fmt.Errorf("treatment: invalid input: %w", err)
	}
	if len(input.ProtocolIDs) == 0 && input.ProductName == "" {
		return AddResult{}, fmt.Errorf("treatment: %w", errors.New("product name or protocol selection required"))
	}

	var result AddResult
	var created []Record

	if len(input.ProtocolIDs) == 0 {
		rec, err := s.buildDirectRecord(ctx, input)
		if err != nil {
			return AddResult{}, err
		}
		created = append(created, rec)
	} else {
		for _, pid := range input.ProtocolIDs {
			group, problem := s.expandProtocol(ctx, input, pid)
			if problem != "" {
				result.Problems = append(result.Problems, problem)
			}
			created = append(created, group...)
		}
		if len(created) == 0 {
			return result, fmt.Errorf("treatment: no records created: %v", result.Problems)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.records[input.Kind])
	s.records[input.Kind] = append(s.records[input.Kind], created...)
	if err := s.persistKindLocked(ctx, input.Kind); err != nil {
		s.records[input.Kind] = s.records[input.Kind][:before]
		return AddResult{}, err
	}
	result.Created = created
	return result, nil
}

// buildDirectRecord creates a single administered record without protocol
// expansion.
func (s *Service) buildDirectRecord(ctx context.Context, input AddInput) (Record, error) {
	next := input.NextDueDate
	var calculated *time.Time
	if due, ok := s.protocols.ResolveDueDate(input.ProductName, input.Species, input.DateGiven); ok {
		calculated = &due
		if next.IsZero() {
			next = due
		}
	}
	if next.IsZero() {
		return Record{}, fmt.Errorf("treatment: no due date for %q", input.ProductName)
	}
	rec := s.newAdministeredRecord(input, input.ProductName, next, calculated)
	s.reconcileAdministered(ctx, &rec, input.ProductName, input.Kind)
	return rec, nil
}

// expandProtocol creates the administered record for the zero-offset
// interval plus one scheduled reminder per later interval. A problem string
// is returned instead of an error so other protocols still expand.
func (s *Service) expandProtocol(ctx context.Context, input AddInput, pid uuid.UUID) ([]Record, string) {
	p, err := s.protocols.ByID(ctx, pid)
	if err != nil {
		return nil, fmt.Sprintf("protocol %s: %v", pid, err)
	}
	if len(p.Intervals) == 0 {
		return nil, fmt.Sprintf("protocol %s has no intervals", p.Name)
	}
	var zero *protocol.Interval
	for i := range p.Intervals {
		if p.Intervals[i].OffsetDays == 0 {
			zero = &p.Intervals[i]
			break
		}
	}
	if zero == nil {
		return nil, fmt.Sprintf("protocol %s has no administered-dose interval", p.Name)
	}

	last := p.Intervals[len(p.Intervals)-1]
	due := input.DateGiven.AddDate(0, 0, last.OffsetDays)
	administered := s.newAdministeredRecord(input, groupProductName(p.Name, zero.Label), due, &due)
	administered.Manufacturer = p.Manufacturer
	administered.ProductType = string(p.ProductType)
	s.reconcileAdministered(ctx, &administered, p.Name, input.Kind)

	group := []Record{administered}
	for _, iv := range p.Intervals {
		if iv.OffsetDays <= 0 {
			continue
		}
		when := input.DateGiven.AddDate(0, 0, iv.OffsetDays)
		calculated := when
		originID := administered.ID
		group = append(group, Record{
			ID:                  uuid.New(),
			Kind:                input.Kind,
			PatientID:           input.PatientID,
			OwnerID:             input.OwnerID,
			ProductName:         groupProductName(p.Name, iv.Label),
			ProductType:         string(p.ProductType),
			Manufacturer:        p.Manufacturer,
			DateGiven:           when,
			NextDueDate:         when,
			CalculatedDueDate:   &calculated,
			Category:            CategoryReminder,
			OriginalTreatmentID: &originID,
			Status:              StatusScheduled,
			CreatedAt:           s.now(),
		})
	}
	return group, ""
}

func (s *Service) newAdministeredRecord(input AddInput, productName string, next time.Time, calculated *time.Time) Record {
	return Record{
		ID:                uuid.New(),
		Kind:              input.Kind,
		PatientID:         input.PatientID,
		OwnerID:           input.OwnerID,
		ProductName:       productName,
		DateGiven:         input.DateGiven,
		NextDueDate:       next,
		CalculatedDueDate: calculated,
		Category:          CategoryNew,
		Status:            StatusCompleted,
		Cost:              input.Cost,
		BatchNumber:       input.BatchNumber,
		PerformedBy:       input.PerformedBy,
		AppointmentID:     input.AppointmentID,
		Notes:             input.Notes,
		CreatedAt:         s.now(),
	}
}

// reconcileAdministered deducts one unit of the administered product from
// the ledger. Absence and shortfall are recorded facts, not errors.
func (s *Service) reconcileAdministered(ctx context.Context, rec *Record, productName string, kind Kind) {
	res, err := s.stock.Reconcile(ctx, stock.ReconcileRequest{
		ProductName: productName,
		Category:    stockCategory(kind),
		Quantity:    1,
		Reference:   rec.ID.String(),
		PerformedBy: rec.PerformedBy,
	})
	if err != nil {
		s.logger.Error("stock reconciliation failed",
			slog.String("product", productName), slog.Any("error", err))
		return
	}
	rec.StockItemID = res.ItemID
	rec.IsInStock = res.IsInStock
	rec.StockQuantity = res.StockQuantity
	rec.StockDeducted = res.Deducted
}

func groupProductName(protocolName, label string) string {
	return fmt.Sprintf("%s (%s)", protocolName, label)
}

// UpdateInput carries editable record fields. A manual NextDueDate edit
// never overwrites CalculatedDueDate.
type UpdateInput struct {
	ProductName *string
	DateGiven   *time.Time
	NextDueDate *time.Time
	Status      *Status
	Cost        *float64
	BatchNumber *string
	Notes       *string
}

// Update edits one record.
func (s *Service) Update(ctx context.Context, kind Kind, id uuid.UUID, input UpdateInput) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, ok := s.records[kind]
	if !ok {
		return Record{}, ErrUnknownKind
	}
	idx := indexOf(recs, id)
	if idx < 0 {
		return Record{}, ErrNotFound
	}
	prev := recs[idx]
	rec := prev
	if input.ProductName != nil {
		rec.ProductName = *input.ProductName
	}
	if input.DateGiven != nil {
		rec.DateGiven = *input.DateGiven
	}
	if input.NextDueDate != nil {
		rec.NextDueDate = *input.NextDueDate
	}
	if input.Status != nil {
		rec.Status = *input.Status
	}
	if input.Cost != nil {
		rec.Cost = *input.Cost
	}
	if input.BatchNumber != nil {
		rec.BatchNumber = *input.BatchNumber
	}
	if input.Notes != nil {
		rec.Notes = *input.Notes
	}
	recs[idx] = rec
	if err := s.persistKindLocked(ctx, kind); err != nil {
		recs[idx] = prev
		return Record{}, err
	}
	return rec, nil
}

// Delete removes one record. Deleting an administration removes its whole
// reminder chain; deleting a reminder removes only that reminder. No
// orphaned reminders remain afterwards.
func (s *Service) Delete(ctx context.Context, kind Kind, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, ok := s.records[kind]
	if !ok {
		return ErrUnknownKind
	}
	idx := indexOf(recs, id)
	if idx < 0 {
		return ErrNotFound
	}
	target := recs[idx]
	kept := recs[:0:0]
	for _, r := range recs {
		if r.ID == id {
			continue
		}
		if target.Category == CategoryNew && r.OriginalTreatmentID != nil && *r.OriginalTreatmentID == id {
			continue
		}
		kept = append(kept, r)
	}
	s.records[kind] = kept
	if err := s.persistKindLocked(ctx, kind); err != nil {
		s.records[kind] = recs
		return err
	}
	return nil
}

// ConfirmInput describes a performed reminder.
type ConfirmInput struct {
	DatePerformed  time.Time `validate:"required"`
	PerformedBy    string
	BatchNumber    string
	Notes          string
	NewNextDueDate *time.Time
}

// ConfirmReminder records that a scheduled reminder was actually performed:
// it appends a completed history record referencing the reminder and marks
// the reminder itself completed, clearing any pending appointment linkage.
// Both live in the same collection, so the single write-through applies the
// dual-write atomically.
func (s *Service) ConfirmReminder(ctx context.Context, kind Kind, id uuid.UUID, input ConfirmInput) (Record, error) {
	if err := s.validate.Struct(input); err != nil {
		return Record{}, fmt.Errorf("treatment: invalid confirmation: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, ok := s.records[kind]
	if !ok {
		return Record{}, ErrUnknownKind
	}
	idx := indexOf(recs, id)
	if idx < 0 {
		return Record{}, ErrNotFound
	}
	ref := recs[idx]
	if ref.Category != CategoryReminder {
		return Record{}, ErrNotReminder
	}
	if ref.Status == StatusCompleted {
		return Record{}, ErrAlreadyCompleted
	}

	next := ref.NextDueDate
	if input.NewNextDueDate != nil {
		next = *input.NewNextDueDate
	}
	originID := ref.ID
	history := Record{
		ID:                  uuid.New(),
		Kind:                kind,
		PatientID:           ref.PatientID,
		OwnerID:             ref.OwnerID,
		ProductName:         ref.ProductName,
		ProductType:         ref.ProductType,
		Manufacturer:        ref.Manufacturer,
		DateGiven:           input.DatePerformed,
		NextDueDate:         next,
		Category:            CategoryReminder,
		OriginalTreatmentID: &originID,
		Status:              StatusCompleted,
		Cost:                ref.Cost,
		BatchNumber:         input.BatchNumber,
		PerformedBy:         input.PerformedBy,
		Notes:               input.Notes,
		CreatedAt:           s.now(),
	}

	prev := ref
	ref.Status = StatusCompleted
	ref.AppointmentID = nil
	recs[idx] = ref
	s.records[kind] = append(recs, history)
	if err := s.persistKindLocked(ctx, kind); err != nil {
		recs[idx] = prev
		s.records[kind] = recs
		return Record{}, err
	}
	return history, nil
}

// ByPatient returns a patient's records after a status sweep.
func (s *Service) ByPatient(ctx context.Context, patientID uuid.UUID) ([]Record, error) {
	if err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, kind := range []Kind{KindVaccination, KindAntiparasitic} {
		for _, r := range s.records[kind] {
			if r.PatientID == patientID {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// Overdue returns all overdue records after a status sweep.
func (s *Service) Overdue(ctx context.Context) ([]Record, error) {
	return s.ByStatus(ctx, StatusOverdue)
}

// Upcoming returns non-terminal records due within the next days.
func (s *Service) Upcoming(ctx context.Context, days int) ([]Record, error) {
	if err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	today := dateOnly(s.now())
	horizon := today.AddDate(0, 0, days)
	var out []Record
	for _, kind := range []Kind{KindVaccination, KindAntiparasitic} {
		for _, r := range s.records[kind] {
			if r.Status == StatusCompleted {
				continue
			}
			due := dateOnly(r.NextDueDate)
			if !due.Before(today) && !due.After(horizon) {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// ByStatus returns records in the given status after a sweep.
func (s *Service) ByStatus(ctx context.Context, status Status) ([]Record, error) {
	if err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for _, kind := range []Kind{KindVaccination, KindAntiparasitic} {
		for _, r := range s.records[kind] {
			if r.Status == status {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// ByKind returns one collection after a sweep.
func (s *Service) ByKind(ctx context.Context, kind Kind) ([]Record, error) {
	if _, ok := namespaces[kind]; !ok {
		return nil, ErrUnknownKind
	}
	if err := s.Sweep(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records[kind]))
	copy(out, s.records[kind])
	return out, nil
}

// ByID returns one record.
func (s *Service) ByID(ctx context.Context, kind Kind, id uuid.UUID) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, ok := s.records[kind]
	if !ok {
		return Record{}, ErrUnknownKind
	}
	idx := indexOf(recs, id)
	if idx < 0 {
		return Record{}, ErrNotFound
	}
	return recs[idx], nil
}

// Sweep recomputes scheduled/overdue for every non-terminal record and
// persists only when something changed. It runs on every read of a
// status-bearing view; staleness between reads is acceptable.
func (s *Service) Sweep(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := s.now()
	changed := false
	for kind, recs := range s.records {
		swept := SweepStatuses(recs, today)
		for i := range swept {
			if swept[i].Status != recs[i].Status {
				changed = true
			}
		}
		s.records[kind] = swept
	}
	if !changed {
		return nil
	}
	return s.persistAllLocked(ctx)
}

func (s *Service) persistKindLocked(ctx context.Context, kind Kind) error {
	if err := s.store.Save(ctx, namespaces[kind], s.records[kind]); err != nil {
		return fmt.Errorf("treatment: persist %s: %w", kind, err)
	}
	return nil
}

func (s *Service) persistAllLocked(ctx context.Context) error {
	err := s.store.SaveAll(ctx, map[string]any{
		kv.NSVaccinations:   s.records[KindVaccination],
		kv.NSAntiparasitics: s.records[KindAntiparasitic],
	})
	if err != nil {
		return fmt.Errorf("treatment: persist records: %w", err)
	}
	return nil
}

func indexOf(recs []Record, id uuid.UUID) int {
	for i, r := range recs {
		if r.ID == id {
			return i
		}
	}
	return -1
}
