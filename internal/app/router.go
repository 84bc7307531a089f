package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vetoapp23/vetoapp/internal/accounting"
	"github.com/vetoapp23/vetoapp/internal/clinic"
	"github.com/vetoapp23/vetoapp/internal/platform/httpx"
	"github.com/vetoapp23/vetoapp/internal/protocol"
	"github.com/vetoapp23/vetoapp/internal/stock"
	"github.com/vetoapp23/vetoapp/internal/treatment"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	ProtocolHandler      *protocol.Handler
	StockHandler         *stock.Handler
	VaccinationHandler   *treatment.Handler
	AntiparasiticHandler *treatment.Handler
	ClinicHandler        *clinic.Handler
	AccountingHandler    *accounting.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/protocols", params.ProtocolHandler.MountRoutes)
		r.Route("/stock", params.StockHandler.MountRoutes)
		r.Route("/vaccinations", params.VaccinationHandler.MountRoutes)
		r.Route("/antiparasitics", params.AntiparasiticHandler.MountRoutes)
		r.Route("/clinic", params.ClinicHandler.MountRoutes)
		r.Route("/accounting", params.AccountingHandler.MountRoutes)
	})

	return r
}
