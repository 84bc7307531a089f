package treatment

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vetoapp23/vetoapp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for one record collection. The router mounts
// it twice, once per kind.
type Handler struct {
	logger  *slog.Logger
	service *Service
	kind    Kind
}

// NewHandler constructs a treatment handler for one kind.
func NewHandler(logger *slog.Logger, service *Service, kind Kind) *Handler {
	return &Handler{logger: logger, service: service, kind: kind}
}

// MountRoutes registers treatment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleAdd)
	r.Patch("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	r.Post("/{id}/confirm", h.handleConfirm)
	r.Get("/patient/{patientId}", h.handleByPatient)
	r.Get("/overdue", h.handleOverdue)
	r.Get("/upcoming", h.handleUpcoming)
	r.Get("/status/{status}", h.handleByStatus)
}

type addTreatmentRequest struct {
	PatientID     uuid.UUID   `json:"patientId"`
	OwnerID       uuid.UUID   `json:"ownerId"`
	Species       string      `json:"species"`
	DateGiven     string      `json:"dateGiven"`
	ProtocolIDs   []uuid.UUID `json:"protocolIds"`
	ProductName   string      `json:"productName"`
	NextDueDate   string      `json:"nextDueDate"`
	Cost          float64     `json:"cost"`
	BatchNumber   string      `json:"batchNumber"`
	PerformedBy   string      `json:"performedBy"`
	AppointmentID *uuid.UUID  `json:"appointmentId"`
	Notes         string      `json:"notes"`
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addTreatmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	dateGiven, err := time.Parse(time.DateOnly, req.DateGiven)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "dateGiven must be YYYY-MM-DD")
		return
	}
	input := AddInput{
		Kind:          h.kind,
		PatientID:     req.PatientID,
		OwnerID:       req.OwnerID,
		Species:       req.Species,
		DateGiven:     dateGiven,
		ProtocolIDs:   req.ProtocolIDs,
		ProductName:   req.ProductName,
		Cost:          req.Cost,
		BatchNumber:   req.BatchNumber,
		PerformedBy:   req.PerformedBy,
		AppointmentID: req.AppointmentID,
		Notes:         req.Notes,
	}
	if req.NextDueDate != "" {
		next, err := time.Parse(time.DateOnly, req.NextDueDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "nextDueDate must be YYYY-MM-DD")
			return
		}
		input.NextDueDate = next
	}
	result, err := h.service.Add(r.Context(), input)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

type updateTreatmentRequest struct {
	ProductName *string  `json:"productName"`
	DateGiven   *string  `json:"dateGiven"`
	NextDueDate *string  `json:"nextDueDate"`
	Status      *Status  `json:"status"`
	Cost        *float64 `json:"cost"`
	BatchNumber *string  `json:"batchNumber"`
	Notes       *string  `json:"notes"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid record id")
		return
	}
	var req updateTreatmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	input := UpdateInput{
		ProductName: req.ProductName,
		Status:      req.Status,
		Cost:        req.Cost,
		BatchNumber: req.BatchNumber,
		Notes:       req.Notes,
	}
	if req.DateGiven != nil {
		d, err := time.Parse(time.DateOnly, *req.DateGiven)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "dateGiven must be YYYY-MM-DD")
			return
		}
		input.DateGiven = &d
	}
	if req.NextDueDate != nil {
		d, err := time.Parse(time.DateOnly, *req.NextDueDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "nextDueDate must be YYYY-MM-DD")
			return
		}
		input.NextDueDate = &d
	}
	rec, err := h.service.Update(r.Context(), h.kind, id, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid record id")
		return
	}
	if err := h.service.Delete(r.Context(), h.kind, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type confirmRequest struct {
	DatePerformed  string `json:"datePerformed"`
	PerformedBy    string `json:"performedBy"`
	BatchNumber    string `json:"batchNumber"`
	Notes          string `json:"notes"`
	NewNextDueDate string `json:"newNextDueDate"`
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid record id")
		return
	}
	var req confirmRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	performed, err := time.Parse(time.DateOnly, req.DatePerformed)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "datePerformed must be YYYY-MM-DD")
		return
	}
	input := ConfirmInput{
		DatePerformed: performed,
		PerformedBy:   req.PerformedBy,
		BatchNumber:   req.BatchNumber,
		Notes:         req.Notes,
	}
	if req.NewNextDueDate != "" {
		next, err := time.Parse(time.DateOnly, req.NewNextDueDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "newNextDueDate must be YYYY-MM-DD")
			return
		}
		input.NewNextDueDate = &next
	}
	rec, err := h.service.ConfirmReminder(r.Context(), h.kind, id, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.ByKind(r.Context(), h.kind)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, recs)
}

func (h *Handler) handleByPatient(w http.ResponseWriter, r *http.Request) {
	patientID, err := uuid.Parse(chi.URLParam(r, "patientId"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid patient id")
		return
	}
	recs, err := h.service.ByPatient(r.Context(), patientID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, filterKind(recs, h.kind))
}

func (h *Handler) handleOverdue(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.Overdue(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, filterKind(recs, h.kind))
}

func (h *Handler) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "days must be a positive integer")
			return
		}
		days = parsed
	}
	recs, err := h.service.Upcoming(r.Context(), days)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, filterKind(recs, h.kind))
}

func (h *Handler) handleByStatus(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.ByStatus(r.Context(), Status(chi.URLParam(r, "status")))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, filterKind(recs, h.kind))
}

func filterKind(recs []Record, kind Kind) []Record {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrNotReminder), errors.Is(err, ErrAlreadyCompleted), errors.Is(err, ErrUnknownKind):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("treatment request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
