package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all analytics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Route("/portfolios/{id}", func(r chi.Router) {
			r.Get("/report", h.HandleGetReport)
			r.Post("/simulate", h.HandleSimulatePortfolio)
			r.Get("/rebalance", h.HandleGetRebalance)
		})

		r.Post("/simulate", h.HandleSimulate)
		r.Get("/allocation/recommended", h.HandleGetRecommendedAllocation)
		r.Post("/required-savings", h.HandleRequiredSavings)
	})
}
