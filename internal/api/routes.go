package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/retail-rfm/internal/pkg/httputil"
)

// SetupRoutes builds the router. hc may be nil, in which case /health only
// reports liveness.
func SetupRoutes(h *Handlers, hc *HealthChecker, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if hc == nil {
		hc = NewHealthChecker(nil, nil, h.reports)
	}
	r.Get("/health", hc.HandleHealth)
	r.Get("/health/live", hc.HandleLiveness)
	r.Get("/health/ready", hc.HandleReadiness)

	r.Route("/api", func(r chi.Router) {
		r.Get("/report", h.GetReport)
		r.Get("/customers", h.ListCustomers)
		r.Get("/customers/{id}", h.GetCustomer)
		r.Get("/segments", h.GetSegments)
		r.Get("/kpis", h.GetKPIs)
		r.Get("/pareto", h.GetPareto)
		r.Get("/leaders", h.GetLeaders)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.NotFound(w, "not found")
	})

	return r
}
