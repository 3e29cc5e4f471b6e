package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router wires the prompt API. metrics may be nil to leave /metrics unmounted.
func (h *Handler) Router(metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(Logging(h.logger))

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.ShowStartupStatus)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireReady(h.startup, h.logger))
		if h.limiter != nil {
			r.Use(h.limiter.Middleware)
		}
		r.Get("/groups/{groupID}/prompts/{date}", h.GetPrompt)
	})

	return r
}
