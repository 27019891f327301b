package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tilldesk/tilldesk/internal/auth"
	"github.com/tilldesk/tilldesk/internal/catalog"
	"github.com/tilldesk/tilldesk/internal/credit"
	"github.com/tilldesk/tilldesk/internal/customers"
	"github.com/tilldesk/tilldesk/internal/observability"
	"github.com/tilldesk/tilldesk/internal/pos"
	"github.com/tilldesk/tilldesk/internal/receipts"
	"github.com/tilldesk/tilldesk/internal/shared"
	"github.com/tilldesk/tilldesk/internal/stock"
	"github.com/tilldesk/tilldesk/internal/suppliers"
	"github.com/tilldesk/tilldesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	AuthHandler     *auth.Handler
	CatalogHandler  *catalog.Handler
	SupplierHandler *suppliers.Handler
	CustomerHandler *customers.Handler
	StockHandler    *stock.Handler
	CreditHandler   *credit.Handler
	POSHandler      *pos.Handler
	ReceiptHandler  *receipts.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi router with tilldesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", params.AuthHandler.MountRoutes)
		api.Route("/products", params.CatalogHandler.MountRoutes)
		api.Route("/suppliers", params.SupplierHandler.MountRoutes)
		api.Route("/customers", params.CustomerHandler.MountRoutes)
		api.Route("/stock", params.StockHandler.MountRoutes)
		api.Route("/credit", params.CreditHandler.MountRoutes)
		api.Route("/pos", params.POSHandler.MountRoutes)
		api.Route("/receipts", params.ReceiptHandler.MountRoutes)
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
