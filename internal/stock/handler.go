package stock

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vetoapp23/vetoapp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/items", h.handleListItems)
	r.Post("/items", h.handleAddItem)
	r.Put("/items/{id}", h.handleUpdateItem)
	r.Delete("/items/{id}", h.handleDeleteItem)
	r.Post("/items/{id}/restock", h.handleRestock)
	r.Post("/items/{id}/adjust", h.handleAdjust)
	r.Get("/movements", h.handleListMovements)
	r.Get("/alerts", h.handleAlerts)
}

type addItemRequest struct {
	Name           string   `json:"name"`
	Category       Category `json:"category"`
	CurrentStock   int      `json:"currentStock"`
	MinimumStock   int      `json:"minimumStock"`
	MaximumStock   int      `json:"maximumStock"`
	PurchasePrice  float64  `json:"purchasePrice"`
	SellingPrice   float64  `json:"sellingPrice"`
	ExpirationDate string   `json:"expirationDate"`
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	input := AddItemInput{
		Name:          req.Name,
		Category:      req.Category,
		CurrentStock:  req.CurrentStock,
		MinimumStock:  req.MinimumStock,
		MaximumStock:  req.MaximumStock,
		PurchasePrice: req.PurchasePrice,
		SellingPrice:  req.SellingPrice,
	}
	if req.ExpirationDate != "" {
		exp, err := time.Parse(time.DateOnly, req.ExpirationDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "expirationDate must be YYYY-MM-DD")
			return
		}
		input.ExpirationDate = &exp
	}
	item, err := h.service.AddItem(r.Context(), input)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

type updateItemRequest struct {
	Name           *string   `json:"name"`
	Category       *Category `json:"category"`
	MinimumStock   *int      `json:"minimumStock"`
	MaximumStock   *int      `json:"maximumStock"`
	PurchasePrice  *float64  `json:"purchasePrice"`
	SellingPrice   *float64  `json:"sellingPrice"`
	ExpirationDate *string   `json:"expirationDate"`
	IsActive       *bool     `json:"isActive"`
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item id")
		return
	}
	var req updateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	input := UpdateItemInput{
		Name:          req.Name,
		Category:      req.Category,
		MinimumStock:  req.MinimumStock,
		MaximumStock:  req.MaximumStock,
		PurchasePrice: req.PurchasePrice,
		SellingPrice:  req.SellingPrice,
		IsActive:      req.IsActive,
	}
	if req.ExpirationDate != nil {
		exp, err := time.Parse(time.DateOnly, *req.ExpirationDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "expirationDate must be YYYY-MM-DD")
			return
		}
		input.ExpirationDate = &exp
	}
	item, err := h.service.UpdateItem(r.Context(), id, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item id")
		return
	}
	if err := h.service.DeleteItem(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type movementRequest struct {
	Quantity    int    `json:"quantity"`
	Reason      string `json:"reason"`
	PerformedBy string `json:"performedBy"`
}

func (h *Handler) handleRestock(w http.ResponseWriter, r *http.Request) {
	h.handleQuantityChange(w, r, func(id uuid.UUID, req movementRequest) (Item, error) {
		return h.service.Restock(r.Context(), id, req.Quantity, req.Reason, req.PerformedBy)
	})
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	h.handleQuantityChange(w, r, func(id uuid.UUID, req movementRequest) (Item, error) {
		return h.service.Adjust(r.Context(), id, req.Quantity, req.Reason, req.PerformedBy)
	})
}

func (h *Handler) handleQuantityChange(w http.ResponseWriter, r *http.Request, apply func(uuid.UUID, movementRequest) (Item, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item id")
		return
	}
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	item, err := apply(id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Items(r.Context()))
}

func (h *Handler) handleListMovements(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Movements(r.Context()))
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Alerts())
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("stock request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
