package clinic

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
	"github.com/vetoapp23/vetoapp/internal/stock"
)

// StockPort is the slice of the stock ledger dispensing needs.
type StockPort interface {
	Reconcile(ctx context.Context, req stock.ReconcileRequest) (stock.ReconcileResult, error)
}

// Service owns the consultation and prescription collections.
type Service struct {
	mu            sync.Mutex
	store         kv.Store
	logger        *slog.Logger
	validate      *validator.Validate
	stock         StockPort
	now           func() time.Time
	consultations []Consultation
	prescriptions []Prescription
}

// NewService loads clinical state from the store.
func NewService(ctx context.Context, store kv.Store, logger *slog.Logger, stockPort StockPort) (*Service, error) {
	s := &Service{
		store:    store,
		logger:   logger,
		validate: validator.New(),
		stock:    stockPort,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if err := store.Load(ctx, kv.NSConsultations, &s.consultations); err != nil && !errors.Is(err, kv.ErrNamespaceNotFound) {
		return nil, fmt.Errorf("clinic: load consultations: %w", err)
	}
	if err := store.Load(ctx, kv.NSPrescriptions, &s.prescriptions); err != nil && !errors.Is(err, kv.ErrNamespaceNotFound) {
		return nil, fmt.Errorf("clinic: load prescriptions: %w", err)
	}
	return s, nil
}

// ConsultationInput describes a new visit.
type ConsultationInput struct {
	PatientID uuid.UUID `validate:"required"`
	OwnerID   uuid.UUID `validate:"required"`
	Date      time.Time `validate:"required"`
	Reason    string
	Diagnosis string
	Cost      float64 `validate:"min=0"`
}

// AddConsultation records a visit.
func (s *Service) AddConsultation(ctx context.Context, input ConsultationInput) (Consultation, error) {
	if err := s.validate.Struct(input); err != nil {
		return Consultation{}, fmt.Errorf("clinic: invalid consultation: %w", err)
	}
	c := Consultation{
		ID:        uuid.New(),
		PatientID: input.PatientID,
		OwnerID:   input.OwnerID,
		Date:      input.Date,
		Reason:    input.Reason,
		Diagnosis: input.Diagnosis,
		Cost:      input.Cost,
		CreatedAt: s.now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consultations = append(s.consultations, c)
	if err := s.store.Save(ctx, kv.NSConsultations, s.consultations); err != nil {
		s.consultations = s.consultations[:len(s.consultations)-1]
		return Consultation{}, fmt.Errorf("clinic: persist consultations: %w", err)
	}
	return c, nil
}

// Consultations returns a snapshot of the consultation collection.
func (s *Service) Consultations(ctx context.Context) []Consultation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Consultation, len(s.consultations))
	copy(out, s.consultations)
	return out
}

// MedicationInput is one prescribed line.
type MedicationInput struct {
	Name         string  `validate:"required"`
	Quantity     int     `validate:"required,gt=0"`
	Cost         float64 `validate:"min=0"`
	Instructions string
}

// PrescriptionInput describes a new prescription.
type PrescriptionInput struct {
	PatientID      uuid.UUID `validate:"required"`
	OwnerID        uuid.UUID `validate:"required"`
	ConsultationID *uuid.UUID
	Date           time.Time         `validate:"required"`
	Medications    []MedicationInput `validate:"required,min=1,dive"`
}

// AddPrescription records a prescription and dispenses each line against
// the medication ledger. Missing or short stock never blocks dispensing;
// the shortfall surfaces through stock alerts.
func (s *Service) AddPrescription(ctx context.Context, input PrescriptionInput) (Prescription, error) {
	if err := s.validate.Struct(input); err != nil {
		return Prescription{}, fmt.Errorf("clinic: invalid prescription: %w", err)
	}
	p := Prescription{
		ID:             uuid.New(),
		PatientID:      input.PatientID,
		OwnerID:        input.OwnerID,
		ConsultationID: input.ConsultationID,
		Date:           input.Date,
		CreatedAt:      s.now(),
	}
	for _, m := range input.Medications {
		line := Medication{
			Name:         m.Name,
			Quantity:     m.Quantity,
			Cost:         m.Cost,
			Instructions: m.Instructions,
		}
		res, err := s.stock.Reconcile(ctx, stock.ReconcileRequest{
			ProductName: m.Name,
			Category:    stock.CategoryMedication,
			Quantity:    m.Quantity,
			Reference:   p.ID.String(),
		})
		if err != nil {
			s.logger.Error("prescription dispensing failed",
				slog.String("medication", m.Name), slog.Any("error", err))
		} else {
			line.StockDeducted = res.Deducted
		}
		p.Medications = append(p.Medications, line)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prescriptions = append(s.prescriptions, p)
	if err := s.store.Save(ctx, kv.NSPrescriptions, s.prescriptions); err != nil {
		s.prescriptions = s.prescriptions[:len(s.prescriptions)-1]
		return Prescription{}, fmt.Errorf("clinic: persist prescriptions: %w", err)
	}
	return p, nil
}

// Prescriptions returns a snapshot of the prescription collection.
func (s *Service) Prescriptions(ctx context.Context) []Prescription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Prescription, len(s.prescriptions))
	copy(out, s.prescriptions)
	return out
}
