package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the portfolio and instrument routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios/{id}", func(r chi.Router) {
		r.Get("/holdings", h.HandleGetHoldings)
		r.Get("/transactions", h.HandleGetTransactions)
		r.Post("/transactions", h.HandleRecordTransaction)
	})

	r.Route("/instruments", func(r chi.Router) {
		r.Get("/", h.HandleGetInstruments)
		r.Put("/{id}", h.HandleUpsertInstrument)
		r.Get("/{id}/prices", h.HandleGetPrices)
		r.Post("/{id}/prices", h.HandleAddPrices)
	})
}
