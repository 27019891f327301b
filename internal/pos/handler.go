package pos

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tilldesk/tilldesk/internal/catalog"
	"github.com/tilldesk/tilldesk/internal/customers"
	"github.com/tilldesk/tilldesk/internal/platform/httpx"
	"github.com/tilldesk/tilldesk/internal/shared"
	"github.com/tilldesk/tilldesk/internal/stock"
)

// Handler wires HTTP endpoints for the cart and checkout.
type Handler struct {
	logger   *slog.Logger
	cart     *CartService
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a pos handler.
func NewHandler(logger *slog.Logger, cart *CartService, service *Service) *Handler {
	return &Handler{logger: logger, cart: cart, service: service, validate: validator.New()}
}

// MountRoutes registers cart and sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/cart", h.handleGetCart)
	r.Post("/cart/items", h.handleAddItem)
	r.Put("/cart/items/{lineID}", h.handleUpdateLine)
	r.Delete("/cart/items/{lineID}", h.handleRemoveLine)
	r.Put("/cart/customer", h.handleSetCustomer)
	r.Post("/cart/clear", h.handleClearCart)
	r.Post("/checkout", h.handleCheckout)
	r.Get("/transactions", h.handleListTransactions)
	r.Get("/transactions/{id}", h.handleGetTransaction)
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	cart, err := h.cart.Cart(sess)
	if err != nil {
		h.respondError(w, "get cart", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cartView(cart))
}

type addItemRequest struct {
	ProductID    string          `json:"product_id" validate:"required"`
	Quantity     float64         `json:"quantity"`
	Discount     decimal.Decimal `json:"discount"`
	ActualWeight float64         `json:"actual_weight,omitempty"`
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	cart, err := h.cart.AddItem(r.Context(), sess, AddItemInput{
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		Discount:     req.Discount,
		ActualWeight: req.ActualWeight,
	})
	if err != nil {
		h.respondError(w, "add cart item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cartView(cart))
}

type updateLineRequest struct {
	Quantity float64 `json:"quantity"`
}

func (h *Handler) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req updateLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	cart, err := h.cart.UpdateQuantity(r.Context(), sess, chi.URLParam(r, "lineID"), req.Quantity)
	if err != nil {
		h.respondError(w, "update cart line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cartView(cart))
}

func (h *Handler) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	cart, err := h.cart.RemoveLine(r.Context(), sess, chi.URLParam(r, "lineID"))
	if err != nil {
		h.respondError(w, "remove cart line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cartView(cart))
}

type setCustomerRequest struct {
	CustomerID string `json:"customer_id"`
}

func (h *Handler) handleSetCustomer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req setCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	cart, err := h.cart.SetCustomer(r.Context(), sess, req.CustomerID)
	if err != nil {
		h.respondError(w, "set cart customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cartView(cart))
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := h.cart.Clear(r.Context(), sess); err != nil {
		h.respondError(w, "clear cart", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cartView(Cart{}))
}

type checkoutRequest struct {
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=cash transfer card credit"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Discount      decimal.Decimal `json:"discount"`
	Notes         string          `json:"notes"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Checkout(r.Context(), sess, CheckoutInput{
		PaymentMethod: PaymentMethod(req.PaymentMethod),
		AmountPaid:    req.AmountPaid,
		Discount:      req.Discount,
		Notes:         req.Notes,
	})
	if err != nil {
		h.respondError(w, "checkout", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filters := ListFilters{
		CashierID:  r.URL.Query().Get("cashier_id"),
		CustomerID: r.URL.Query().Get("customer_id"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.Offset = n
		}
	}
	transactions, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, "list transactions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

func (h *Handler) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get transaction", err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*shared.Session, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.Cashier() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "cashier login required")
		return nil, false
	}
	return sess, true
}

func cartView(cart Cart) map[string]any {
	items := cart.Items
	if items == nil {
		items = []CartItem{}
	}
	return map[string]any{
		"items":       items,
		"customer_id": cart.CustomerID,
		"subtotal":    cart.Subtotal(),
	}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrInvalidPayment),
		errors.Is(err, ErrCustomerRequired), errors.Is(err, ErrFractionalLine):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrLineNotFound), errors.Is(err, ErrNotFound),
		errors.Is(err, catalog.ErrNotFound), errors.Is(err, customers.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, stock.ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, shared.ErrNotLoggedIn):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
