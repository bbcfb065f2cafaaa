package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the decision gate API on the given chi router.
// Health and the WebSocket endpoint are mounted by the entry point.
// limiter may be nil to disable rate limiting on the write paths.
func MountRoutes(r chi.Router, h *Handlers, limiter *RateLimiter) {
	limit := func(r chi.Router) chi.Router {
		if limiter == nil {
			return r
		}
		return r.With(limiter.Handler)
	}

	r.Route("/v1", func(r chi.Router) {
		limit(r).Post("/evaluate", h.Evaluate)
		limit(r).Post("/undo/{task_id}", h.Undo)
		limit(r).Post("/sweep", h.Sweep)

		r.Get("/decisions", h.ListDecisions)
		r.Get("/decisions/{task_id}", h.GetDecision)
		r.Get("/validators", h.ListValidators)
	})
}
