package clinic

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vetoapp23/vetoapp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for consultations and prescriptions.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the clinic handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers clinic routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/consultations", h.handleListConsultations)
	r.Post("/consultations", h.handleAddConsultation)
	r.Get("/prescriptions", h.handleListPrescriptions)
	r.Post("/prescriptions", h.handleAddPrescription)
}

type consultationRequest struct {
	PatientID uuid.UUID `json:"patientId"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Date      string    `json:"date"`
	Reason    string    `json:"reason"`
	Diagnosis string    `json:"diagnosis"`
	Cost      float64   `json:"cost"`
}

func (h *Handler) handleAddConsultation(w http.ResponseWriter, r *http.Request) {
	var req consultationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "date must be YYYY-MM-DD")
		return
	}
	c, err := h.service.AddConsultation(r.Context(), ConsultationInput{
		PatientID: req.PatientID,
		OwnerID:   req.OwnerID,
		Date:      date,
		Reason:    req.Reason,
		Diagnosis: req.Diagnosis,
		Cost:      req.Cost,
	})
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) handleListConsultations(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Consultations(r.Context()))
}

type prescriptionRequest struct {
	PatientID      uuid.UUID         `json:"patientId"`
	OwnerID        uuid.UUID         `json:"ownerId"`
	ConsultationID *uuid.UUID        `json:"consultationId"`
	Date           string            `json:"date"`
	Medications    []MedicationInput `json:"medications"`
}

func (h *Handler) handleAddPrescription(w http.ResponseWriter, r *http.Request) {
	var req prescriptionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "date must be YYYY-MM-DD")
		return
	}
	p, err := h.service.AddPrescription(r.Context(), PrescriptionInput{
		PatientID:      req.PatientID,
		OwnerID:        req.OwnerID,
		ConsultationID: req.ConsultationID,
		Date:           date,
		Medications:    req.Medications,
	})
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) handleListPrescriptions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Prescriptions(r.Context()))
}
