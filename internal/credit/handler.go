package credit

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/tilldesk/internal/platform/httpx"
	"github.com/tilldesk/tilldesk/internal/shared"
)

// Handler wires HTTP endpoints for the credit ledger.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a credit handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers credit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{customerID}/check", h.handleCheck)
	r.Get("/{customerID}/history", h.handleHistory)
	r.Post("/{customerID}/payments", h.handlePayment)
	r.Post("/{customerID}/adjustments", h.handleAdjustment)
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil || !amount.IsPositive() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be a positive number")
		return
	}
	result, err := h.service.Check(r.Context(), chi.URLParam(r, "customerID"), amount)
	if err != nil {
		h.respondError(w, "check credit", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	entries, err := h.service.History(r.Context(), chi.URLParam(r, "customerID"), limit)
	if err != nil {
		h.respondError(w, "credit history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": entries})
}

type paymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=cash transfer card"`
	Reference     string          `json:"reference,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

func (h *Handler) handlePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	entry, err := h.service.RecordPayment(r.Context(), PaymentInput{
		CustomerID:    chi.URLParam(r, "customerID"),
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Reference:     req.Reference,
		Notes:         req.Notes,
		ActorID:       actorID(r),
	})
	if err != nil {
		h.respondError(w, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

type adjustmentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes" validate:"required"`
}

func (h *Handler) handleAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	entry, err := h.service.Adjust(r.Context(), AdjustmentInput{
		CustomerID: chi.URLParam(r, "customerID"),
		Amount:     req.Amount,
		Notes:      req.Notes,
		ActorID:    actorID(r),
	})
	if err != nil {
		h.respondError(w, "adjust credit", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func actorID(r *http.Request) string {
	return shared.CashierFromContext(r.Context())
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrCustomerNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
