package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ampere-erp/ampere-erp/internal/auth"
	"github.com/ampere-erp/ampere-erp/internal/inventory"
	"github.com/ampere-erp/ampere-erp/internal/masterdata/sites"
	"github.com/ampere-erp/ampere-erp/internal/masterdata/vendors"
	"github.com/ampere-erp/ampere-erp/internal/notes"
	"github.com/ampere-erp/ampere-erp/internal/notify"
	"github.com/ampere-erp/ampere-erp/internal/observability"
	"github.com/ampere-erp/ampere-erp/internal/procurement"
	"github.com/ampere-erp/ampere-erp/internal/storage"
	"github.com/ampere-erp/ampere-erp/internal/users"
	"github.com/ampere-erp/ampere-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthMiddleware     auth.Middleware
	OIDCHandler        *auth.OIDCHandler
	UsersHandler       *users.Handler
	VendorsHandler     *vendors.Handler
	SitesHandler       *sites.Handler
	InventoryHandler   *inventory.Handler
	ProcurementHandler *procurement.Handler
	NotifyHandler      *notify.Handler
	NotesHandler       *notes.Handler
	StorageHandler     *storage.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Ampere defaults. Everything under
// /api requires a bearer token; the well-known documents and the signed
// object endpoints stay public.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.OIDCHandler != nil {
		params.OIDCHandler.MountRoutes(r)
	}

	// Signed URLs are the only access control on the object endpoints.
	if params.StorageHandler != nil {
		params.StorageHandler.MountObjectRoutes(r)
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(params.AuthMiddleware.Authenticate)

		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/vendors", params.VendorsHandler.MountRoutes)
		r.Route("/sites", params.SitesHandler.MountRoutes)
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
		r.Route("/procurement", params.ProcurementHandler.MountRoutes)
		r.Route("/notifications", params.NotifyHandler.MountRoutes)
		r.Route("/notes", params.NotesHandler.MountRoutes)
		if params.StorageHandler != nil {
			r.Route("/storage", params.StorageHandler.MountSignedRoutes)
		}
	})

	return r
}
