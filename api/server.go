/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. logrus:     Structured request logging with method, path, status, duration
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/departments/*    Departments, their pools, orders and summaries
  /api/suppliers/*      Supplier reference data
  /api/pools/*          Pool allocation
  /api/orders/*         Order upsert/delete and sequence preview
  /api/seed             Demo dataset (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/departments", func(r chi.Router) {
			r.Get("/", h.ListDepartments)
			r.Post("/", h.CreateDepartment)
			r.Get("/{id}/pools", h.ListDepartmentPools)
			r.Get("/{id}/years", h.ListPoolYears)
			r.Get("/{id}/summary", h.GetSummary)
			r.Get("/{id}/orders", h.ListDepartmentOrders)
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", h.ListSuppliers)
			r.Post("/", h.CreateSupplier)
		})

		r.Route("/pools", func(r chi.Router) {
			r.Post("/allocate", h.AllocatePools)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.UpsertOrder)
			r.Delete("/", h.DeleteOrders)
			r.Get("/next-sequence", h.NextInvestmentSequence)
		})

		r.Post("/seed", h.SeedDemo)
	})

	// Landing page for anyone hitting the root with a browser.
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Budget Ledger</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Budget Ledger API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/departments">/api/departments</a> - List departments</li>
<li><a href="/api/suppliers">/api/suppliers</a> - List suppliers</li>
</ul>
</body>
</html>`))
	})

	return r
}

// requestLogger logs one structured line per completed request.
func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}
