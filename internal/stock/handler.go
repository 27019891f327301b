package stock

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/tilldesk/internal/platform/httpx"
	"github.com/tilldesk/tilldesk/internal/shared"
)

// Handler wires HTTP endpoints for stock batches.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a stock handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/add", h.handleAddStock)
	r.Get("/low", h.handleLowStock)
	r.Get("/{productID}", h.handleGetStock)
	r.Get("/{productID}/batches", h.handleListBatches)
	r.Get("/{productID}/prices", h.handlePriceHistory)
}

type addStockRequest struct {
	ProductID  string          `json:"product_id" validate:"required"`
	Quantity   float64         `json:"quantity" validate:"required,gt=0"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
	SupplierID string          `json:"supplier_id,omitempty"`
}

func (h *Handler) handleAddStock(w http.ResponseWriter, r *http.Request) {
	var req addStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	actorID := shared.CashierFromContext(r.Context())
	result, err := h.service.AddStock(r.Context(), AddStockInput{
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		UnitCost:   req.UnitCost,
		ExpiryDate: req.ExpiryDate,
		SupplierID: req.SupplierID,
		Source:     SourceManual,
		ActorID:    actorID,
	})
	if err != nil {
		h.respondError(w, "add stock", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleGetStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	total, err := h.service.GetStock(r.Context(), productID)
	if err != nil {
		h.respondError(w, "get stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product_id": productID, "total_stock": total})
}

func (h *Handler) handleListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.ListBatches(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		h.respondError(w, "list batches", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"batches": batches})
}

func (h *Handler) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	records, err := h.service.PriceHistory(r.Context(), chi.URLParam(r, "productID"), limit)
	if err != nil {
		h.respondError(w, "price history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.LowStock(r.Context())
	if err != nil {
		h.respondError(w, "low stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": entries})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidUnitCost):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
