package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Current run
		r.Get("/run", s.handleGetRun)
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/{id}", s.handleGetDevice)
		})
		r.Route("/rounds", func(r chi.Router) {
			r.Get("/", s.handleListRounds)
			r.Get("/{round}", s.handleGetRound)
		})

		// Persisted history
		r.Route("/history/runs", func(r chi.Router) {
			r.Get("/", s.handleListHistoryRuns)
			r.Route("/{runID}", func(r chi.Router) {
				r.Get("/rounds/{round}", s.handleGetHistoryRound)
				r.Get("/locations/{location}", s.handleLocationSeries)
			})
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"version":   s.version,
		"ws_clients": s.hub.ClientCount(),
	}
	if run := s.currentRun(); run != nil {
		body["run_id"] = run.RunID()
		body["run_status"] = run.Status()
	}
	writeJSON(w, http.StatusOK, body)
}
