// Package httpapi is a demo chi+websocket frontend exercising
// RegisterView/UnregisterView/IngestBatch over HTTP and WS, adapted from the
// teacher's internal/api package. It is demonstration-only: a narrow
// exerciser of the core, not a production ingest service (spec §1).
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zoravur/spooky-engine/engine/circuit"
)

// Handler holds the circuit and the live websocket hub.
type Handler struct {
	Circuit *circuit.Circuit
	Hub     *Hub
}

// NewHandler builds a Handler with a running Hub.
func NewHandler(c *circuit.Circuit) *Handler {
	return &Handler{Circuit: c, Hub: NewHub()}
}

// Routes builds the chi router: POST /api/views, DELETE /api/views/{id},
// POST /api/ingest, GET /api/ws.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/views", h.handleRegisterView)
		r.Delete("/views/{id}", h.handleUnregisterView)
		r.Post("/ingest", h.handleIngest)
		r.Get("/ws", h.Hub.HandleWS)
	})
	return r
}
