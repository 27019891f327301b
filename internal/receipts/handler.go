package receipts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tilldesk/tilldesk/internal/platform/httpx"
	"github.com/tilldesk/tilldesk/internal/shared"
)

// Handler wires HTTP endpoints for receipt imports.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a receipts handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers receipt routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/apply", h.handleApply)
	r.Post("/imports", h.handleStartImport)
	r.Get("/imports", h.handleListImports)
	r.Get("/imports/{id}", h.handleGetImport)
}

type applyRequest struct {
	Receipt ExtractedReceipt `json:"receipt"`
	Mode    string           `json:"mode" validate:"required,oneof=prices restock"`
}

// handleApply takes an already-extracted receipt (e.g. client-side OCR)
// and applies it directly.
func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	outcomes, err := h.service.Apply(r.Context(), req.Receipt, ImportMode(req.Mode), actorID(r))
	if err != nil {
		h.respondError(w, "apply receipt", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"outcomes": outcomes})
}

type startImportRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required"`
	MimeType    string `json:"mime_type,omitempty"`
	Mode        string `json:"mode" validate:"required,oneof=prices restock"`
}

func (h *Handler) handleStartImport(w http.ResponseWriter, r *http.Request) {
	var req startImportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	imp, err := h.service.StartImport(r.Context(), ExtractInput{
		ImageBase64: req.ImageBase64,
		MimeType:    req.MimeType,
	}, ImportMode(req.Mode), actorID(r))
	if err != nil && imp.Status != StatusFailed {
		h.respondError(w, "start import", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, imp)
}

func (h *Handler) handleListImports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	imports, err := h.service.ListImports(r.Context(), limit)
	if err != nil {
		h.respondError(w, "list imports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"imports": imports})
}

func (h *Handler) handleGetImport(w http.ResponseWriter, r *http.Request) {
	imp, err := h.service.GetImport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get import", err)
		return
	}
	httpx.JSON(w, http.StatusOK, imp)
}

func actorID(r *http.Request) string {
	return shared.CashierFromContext(r.Context())
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidMode), errors.Is(err, ErrNoItems):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrExtractorUnavailable):
		httpx.Problem(w, http.StatusServiceUnavailable, "Extractor Unavailable", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
