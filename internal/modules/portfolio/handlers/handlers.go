// Package handlers provides HTTP handlers for portfolio data: instruments,
// prices, transactions and holdings.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/horizon/internal/domain"
	"github.com/aristath/horizon/internal/modules/portfolio"
)

// Store is the portfolio repository as seen by the handlers
type Store interface {
	GetHoldings(ctx context.Context, portfolioID string) ([]portfolio.Holding, error)
	GetTransactions(ctx context.Context, portfolioID string, start, end time.Time) ([]domain.Transaction, error)
	RecordTransaction(ctx context.Context, t domain.Transaction) (domain.Transaction, error)
	GetInstruments(ctx context.Context, ids []string) (map[string]domain.InstrumentInfo, error)
	UpsertInstrument(ctx context.Context, info domain.InstrumentInfo) error
	GetPriceSeries(ctx context.Context, instrumentID string, start, end time.Time) ([]domain.PricePoint, error)
	AddPrices(ctx context.Context, points []domain.PricePoint) error
}

var errBadRequest = errors.New("bad request")

// Handler handles portfolio HTTP requests
type Handler struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		now:   time.Now,
		log:   log.With().Str("handler", "portfolio").Logger(),
	}
}

// HoldingResponse is one valued holding
type HoldingResponse struct {
	portfolio.Holding
	MarketValue string `json:"value"`
}

// HandleGetHoldings returns the holdings valued at their latest price
// GET /api/portfolios/{id}/holdings
func (h *Handler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.store.GetHoldings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]HoldingResponse, len(holdings))
	for i, hd := range holdings {
		out[i] = HoldingResponse{Holding: hd, MarketValue: hd.Value().StringFixed(2)}
	}
	h.writeData(w, http.StatusOK, out)
}

// HandleGetTransactions returns the transaction history, optionally bounded
// by start and end (YYYY-MM-DD).
// GET /api/portfolios/{id}/transactions
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseRange(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	txs, err := h.store.GetTransactions(r.Context(), chi.URLParam(r, "id"), start, end)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	h.writeData(w, http.StatusOK, txs)
}

// HandleRecordTransaction appends a transaction to the portfolio
// POST /api/portfolios/{id}/transactions
func (h *Handler) HandleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var tx domain.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body: %v", errBadRequest, err))
		return
	}
	tx.PortfolioID = chi.URLParam(r, "id")

	recorded, err := h.store.RecordTransaction(r.Context(), tx)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.log.Info().
		Str("portfolio_id", recorded.PortfolioID).
		Str("transaction_id", recorded.ID).
		Str("type", string(recorded.Type)).
		Msg("Transaction recorded")
	h.writeData(w, http.StatusCreated, recorded)
}

// InstrumentRequest describes an instrument to create or update
type InstrumentRequest struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Sector    string   `json:"sector"`
	Coupon    float64  `json:"coupon"`
	Maturity  string   `json:"maturity"` // YYYY-MM-DD
	FaceValue float64  `json:"face_value"`
	Detail    string   `json:"detail"`
	Liquidity *float64 `json:"liquidity"`
}

// InstrumentResponse is catalog metadata of one instrument
type InstrumentResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	Class     string  `json:"asset_class"`
	Sector    string  `json:"sector,omitempty"`
	Liquidity float64 `json:"liquidity"`
}

func instrumentResponse(info domain.InstrumentInfo) InstrumentResponse {
	return InstrumentResponse{
		ID:        info.ID,
		Name:      info.Name,
		Kind:      domain.KindOf(info.Instrument),
		Class:     string(domain.ClassOf(info.Instrument)),
		Sector:    domain.SectorOf(info.Instrument),
		Liquidity: info.LiquidityTag(),
	}
}

// HandleUpsertInstrument creates or replaces an instrument
// PUT /api/instruments/{id}
func (h *Handler) HandleUpsertInstrument(w http.ResponseWriter, r *http.Request) {
	var req InstrumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body: %v", errBadRequest, err))
		return
	}
	req.ID = chi.URLParam(r, "id")

	attrs := domain.InstrumentAttributes{
		Sector:    req.Sector,
		Coupon:    req.Coupon,
		FaceValue: req.FaceValue,
		Detail:    req.Detail,
	}
	if req.Maturity != "" {
		maturity, err := time.Parse(time.DateOnly, req.Maturity)
		if err != nil {
			h.writeError(w, fmt.Errorf("%w: maturity must be YYYY-MM-DD", errBadRequest))
			return
		}
		attrs.Maturity = maturity
	}
	inst, err := domain.ParseInstrument(req.Kind, attrs)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	info := domain.InstrumentInfo{ID: req.ID, Name: req.Name, Instrument: inst, Liquidity: req.Liquidity}
	if err := h.store.UpsertInstrument(r.Context(), info); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, instrumentResponse(info))
}

// HandleGetInstruments returns catalog entries for a comma-separated ids list
// GET /api/instruments?ids=AAA,BBB
func (h *Handler) HandleGetInstruments(w http.ResponseWriter, r *http.Request) {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		h.writeError(w, fmt.Errorf("%w: ids is required", errBadRequest))
		return
	}

	catalog, err := h.store.GetInstruments(r.Context(), ids)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]InstrumentResponse, 0, len(catalog))
	for _, id := range ids {
		if info, ok := catalog[id]; ok {
			out = append(out, instrumentResponse(info))
		}
	}
	h.writeData(w, http.StatusOK, out)
}

// PriceRequest is one dated price
type PriceRequest struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Price float64 `json:"price"`
}

// HandleAddPrices stores prices of one instrument
// POST /api/instruments/{id}/prices
func (h *Handler) HandleAddPrices(w http.ResponseWriter, r *http.Request) {
	var req []PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body: %v", errBadRequest, err))
		return
	}

	id := chi.URLParam(r, "id")
	points := make([]domain.PricePoint, len(req))
	for i, p := range req {
		day, err := time.Parse(time.DateOnly, p.Date)
		if err != nil {
			h.writeError(w, fmt.Errorf("%w: price %d: date must be YYYY-MM-DD", errBadRequest, i))
			return
		}
		points[i] = domain.PricePoint{InstrumentID: id, Time: day, Price: p.Price}
	}

	if err := h.store.AddPrices(r.Context(), points); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusCreated, map[string]int{"stored": len(points)})
}

// HandleGetPrices returns stored prices, optionally bounded by start and end
// GET /api/instruments/{id}/prices
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.parseRange(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	points, err := h.store.GetPriceSeries(r.Context(), chi.URLParam(r, "id"), start, end)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, points)
}

// parseRange reads start and end (YYYY-MM-DD). A missing end is now; a
// missing start is unbounded.
func (h *Handler) parseRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	var start time.Time
	end := h.now().UTC()

	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return start, end, fmt.Errorf("%w: start must be YYYY-MM-DD", errBadRequest)
		}
		start = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return start, end, fmt.Errorf("%w: end must be YYYY-MM-DD", errBadRequest)
		}
		end = t
	}
	if !start.IsZero() && end.Before(start) {
		return start, end, fmt.Errorf("%w: end before start", errBadRequest)
	}
	return start, end, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidTransaction),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrUnorderedSeries):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	event := h.log.Warn()
	if status >= http.StatusInternalServerError {
		event = h.log.Error()
	}
	event.Err(err).Int("status", status).Msg("Portfolio request failed")

	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": h.now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
