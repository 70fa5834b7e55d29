/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the console frontend

ROUTE GROUPS:
  /api/calc/*           Stateless calculators
  /api/payout-rules/*   Payout rule management and resolution
  /api/gifts            Gift catalog
  /api/users/*          Points and gift sends
  /api/conversations/*  Inbox state
  /api/casts/*          Ranked inboxes
  /api/settlements/*    Settlement batches
  /api/scenarios/*      Demo data
  /healthz              Liveness probe
  /*                    Static files (console frontend)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	StaticDir      string // console build; empty disables static serving
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/calc", func(r chi.Router) {
			r.Post("/tax", h.CalcTax)
			r.Post("/payout", h.CalcPayout)
			r.Post("/priority", h.CalcPriority)
		})

		r.Route("/payout-rules", func(r chi.Router) {
			r.Get("/", h.ListPayoutRules)
			r.Post("/", h.CreatePayoutRule)
			r.Post("/resolve", h.ResolvePayoutRule)
			r.Post("/{id}/deactivate", h.DeactivatePayoutRule)
		})

		r.Route("/gifts", func(r chi.Router) {
			r.Get("/", h.ListGifts)
			r.Post("/", h.SaveGift)
		})

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/points", h.GetPoints)
			r.Post("/points/purchases", h.PurchasePoints)
			r.Post("/gifts", h.SendGift)
		})

		r.Put("/conversations/{userID}", h.PutConversation)
		r.Get("/casts/{id}/inbox", h.GetInbox)

		r.Route("/settlements", func(r chi.Router) {
			r.Get("/", h.ListSettlementRuns)
			r.Post("/run", h.RunSettlement)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	if opts.StaticDir != "" {
		if _, err := os.Stat(opts.StaticDir); err == nil {
			serveConsole(r, opts.StaticDir)
		}
	}

	return r
}

// serveConsole serves the built frontend, falling back to index.html for
// client-side routes.
func serveConsole(r chi.Router, staticDir string) {
	fileServer := http.FileServer(http.Dir(staticDir))
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		fullPath := filepath.Join(staticDir, filepath.Clean(r.URL.Path))
		if _, err := os.Stat(fullPath); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
