/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the reporting dashboard

ROUTES:
  /users                    User creation and listing
  /credits/{userId}         Per-user credit report
  /payments                 Repayment recording
  /dictionary               Category lookup
  /plans/*                  Plan ingestion and performance reports
  /                         Service banner

SECURITY NOTE:
  No authentication middleware. This is an internal back-office
  service; all endpoints are open inside the network perimeter.

SEE ALSO:
  - handlers.go: handler implementations
  - cmd/server/main.go: server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "lending report service"})
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.CreateUser)
		r.Get("/", h.ListUsers)
	})

	r.Get("/credits/{userID}", h.UserCredits)
	r.Post("/payments", h.CreatePayment)
	r.Get("/dictionary", h.ListDictionary)

	r.Route("/plans", func(r chi.Router) {
		r.Post("/insert", h.InsertPlans)
		r.Get("/performance", h.PlansPerformance)
		r.Get("/year_performance", h.YearPerformance)
	})

	return r
}
