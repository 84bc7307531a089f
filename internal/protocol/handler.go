package protocol

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vetoapp23/vetoapp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the protocol catalog.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDeactivate)
	r.Get("/resolve", h.handleResolve)
}

type createProtocolRequest struct {
	Name              string      `json:"name"`
	Species           string      `json:"species"`
	ProductType       ProductType `json:"productType"`
	TargetDescription string      `json:"targetDescription"`
	Manufacturer      string      `json:"manufacturer"`
	Intervals         []Interval  `json:"intervals"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createProtocolRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	p, err := h.service.Create(r.Context(), CreateInput{
		Name:              req.Name,
		Species:           req.Species,
		ProductType:       req.ProductType,
		TargetDescription: req.TargetDescription,
		Manufacturer:      req.Manufacturer,
		Intervals:         req.Intervals,
	})
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Species:     q.Get("species"),
		ProductType: ProductType(q.Get("productType")),
		ActiveOnly:  q.Get("active") == "true",
	}
	httpx.JSON(w, http.StatusOK, h.service.List(r.Context(), filter))
}

type updateProtocolRequest struct {
	Name              *string    `json:"name"`
	Species           *string    `json:"species"`
	TargetDescription *string    `json:"targetDescription"`
	Manufacturer      *string    `json:"manufacturer"`
	Intervals         []Interval `json:"intervals"`
	IsActive          *bool      `json:"isActive"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid protocol id")
		return
	}
	var req updateProtocolRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	p, err := h.service.Update(r.Context(), id, UpdateInput{
		Name:              req.Name,
		Species:           req.Species,
		TargetDescription: req.TargetDescription,
		Manufacturer:      req.Manufacturer,
		Intervals:         req.Intervals,
		IsActive:          req.IsActive,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid protocol id")
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dateGiven, err := time.Parse(time.DateOnly, q.Get("dateGiven"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "dateGiven must be YYYY-MM-DD")
		return
	}
	due, ok := h.service.ResolveDueDate(q.Get("productName"), q.Get("species"), dateGiven)
	if !ok {
		httpx.JSON(w, http.StatusOK, map[string]any{"nextDueDate": nil})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"nextDueDate": due.Format(time.DateOnly)})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	h.logger.Error("protocol request failed", slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
