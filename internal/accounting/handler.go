package accounting

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vetoapp23/vetoapp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the accounting ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the accounting handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers accounting routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/entries", h.handleListEntries)
	r.Post("/entries", h.handleAddManual)
	r.Patch("/entries/{id}", h.handleUpdateManual)
	r.Delete("/entries/{id}", h.handleDeleteManual)
	r.Get("/summary", h.handleSummary)
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	from, err := time.Parse(time.DateOnly, q.Get("startDate"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("startDate must be YYYY-MM-DD")
	}
	to, err := time.Parse(time.DateOnly, q.Get("endDate"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("endDate must be YYYY-MM-DD")
	}
	// Inclusive end of day.
	return from, to.Add(24*time.Hour - time.Nanosecond), nil
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.Entries(r.Context(), from, to))
}

type manualEntryRequest struct {
	Type        EntryType `json:"type"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Date        string    `json:"date"`
	Frequency   string    `json:"frequency"`
	Notes       string    `json:"notes"`
}

func (h *Handler) handleAddManual(w http.ResponseWriter, r *http.Request) {
	var req manualEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "date must be YYYY-MM-DD")
		return
	}
	entry, err := h.service.AddManualEntry(r.Context(), ManualEntryInput{
		Type:        req.Type,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        date,
		Frequency:   req.Frequency,
		Notes:       req.Notes,
	})
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

type updateManualRequest struct {
	Description *string  `json:"description"`
	Amount      *float64 `json:"amount"`
	Date        *string  `json:"date"`
	Notes       *string  `json:"notes"`
}

func (h *Handler) handleUpdateManual(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	var req updateManualRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	input := UpdateManualInput{
		Description: req.Description,
		Amount:      req.Amount,
		Notes:       req.Notes,
	}
	if req.Date != nil {
		d, err := time.Parse(time.DateOnly, *req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "date must be YYYY-MM-DD")
			return
		}
		input.Date = &d
	}
	entry, err := h.service.UpdateManualEntry(r.Context(), id, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) handleDeleteManual(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	if err := h.service.DeleteManualEntry(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "custom"
	}
	summary, err := h.service.GenerateSummary(r.Context(), period, from, to)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrNotManual):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("accounting request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
