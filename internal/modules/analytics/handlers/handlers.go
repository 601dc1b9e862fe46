// Package handlers provides HTTP handlers for portfolio analytics.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/horizon/internal/domain"
	"github.com/aristath/horizon/internal/modules/allocation"
	"github.com/aristath/horizon/internal/modules/analytics"
)

// Service is the analytics facade as seen by the handlers
type Service interface {
	Report(ctx context.Context, req analytics.ReportRequest) (*analytics.Report, error)
	Simulate(ctx context.Context, req analytics.SimulationRequest) (*domain.SimulationResult, error)
	Allocation(ctx context.Context, portfolioID string, riskTolerance float64) (*allocation.Analysis, error)
	Defaults() analytics.Params
}

// Handler handles analytics HTTP requests
type Handler struct {
	service Service
	log     zerolog.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analytics").Logger(),
	}
}

// HandleGetReport handles GET /api/analytics/portfolios/{id}/report
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	params, end, err := h.parseReportQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}

	report, err := h.service.Report(r.Context(), analytics.ReportRequest{
		PortfolioID: chi.URLParam(r, "id"),
		Params:      params,
		End:         end,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, report)
}

// HandleSimulatePortfolio handles POST /api/analytics/portfolios/{id}/simulate
func (h *Handler) HandleSimulatePortfolio(w http.ResponseWriter, r *http.Request) {
	h.simulate(w, r, chi.URLParam(r, "id"))
}

// HandleSimulate handles POST /api/analytics/simulate
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	h.simulate(w, r, "")
}

func (h *Handler) simulate(w http.ResponseWriter, r *http.Request, portfolioID string) {
	req, err := analytics.NewSimulationRequest(h.service.Defaults())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body: %v", analytics.ErrInvalidParams, err))
		return
	}
	req.PortfolioID = portfolioID

	result, err := h.service.Simulate(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, result)
}

// HandleGetRebalance handles GET /api/analytics/portfolios/{id}/rebalance
func (h *Handler) HandleGetRebalance(w http.ResponseWriter, r *http.Request) {
	tolerance, err := parseFloat(r.URL.Query(), "risk_tolerance", 0.5)
	if err != nil {
		h.writeError(w, err)
		return
	}

	analysis, err := h.service.Allocation(r.Context(), chi.URLParam(r, "id"), tolerance)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, analysis)
}

// HandleGetRecommendedAllocation handles GET /api/analytics/allocation/recommended
func (h *Handler) HandleGetRecommendedAllocation(w http.ResponseWriter, r *http.Request) {
	tolerance, err := parseFloat(r.URL.Query(), "risk_tolerance", 0.5)
	if err != nil {
		h.writeError(w, err)
		return
	}

	recommended, err := allocation.RecommendedAllocation(tolerance)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", analytics.ErrInvalidParams, err))
		return
	}
	h.writeData(w, map[string]interface{}{
		"risk_tolerance": tolerance,
		"allocation":     recommended,
	})
}

// requiredSavingsRequest is the body of POST /api/analytics/required-savings
type requiredSavingsRequest struct {
	TargetAmount float64 `json:"target_amount"`
	PresentValue float64 `json:"present_value"`
	Years        int     `json:"years"`
	AnnualReturn float64 `json:"annual_return"`
	Monthly      *bool   `json:"monthly"`
}

// HandleRequiredSavings handles POST /api/analytics/required-savings
func (h *Handler) HandleRequiredSavings(w http.ResponseWriter, r *http.Request) {
	var req requiredSavingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body: %v", analytics.ErrInvalidParams, err))
		return
	}
	monthly := req.Monthly == nil || *req.Monthly

	plan, err := allocation.RequiredSavings(req.TargetAmount, req.PresentValue, req.Years, req.AnnualReturn, monthly)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", analytics.ErrInvalidParams, err))
		return
	}
	h.writeData(w, plan)
}

// parseReportQuery overlays query parameters on the service defaults
func (h *Handler) parseReportQuery(q url.Values) (analytics.Params, time.Time, error) {
	p := h.service.Defaults()
	var end time.Time
	var err error

	if p.RiskFreeRate, err = parseFloat(q, "risk_free_rate", p.RiskFreeRate); err != nil {
		return p, end, err
	}
	if p.Confidence, err = parseFloat(q, "confidence", p.Confidence); err != nil {
		return p, end, err
	}
	if p.LookbackDays, err = parseInt(q, "lookback_days", p.LookbackDays); err != nil {
		return p, end, err
	}
	if v := q.Get("benchmark_id"); v != "" {
		p.BenchmarkID = v
	}
	if v := q.Get("frequency"); v != "" {
		p.Frequency = domain.Frequency(v)
	}
	if v := q.Get("end"); v != "" {
		end, err = time.Parse("2006-01-02", v)
		if err != nil {
			return p, end, fmt.Errorf("%w: end must be YYYY-MM-DD", analytics.ErrInvalidParams)
		}
	}
	return p, end, nil
}

func parseFloat(q url.Values, key string, fallback float64) (float64, error) {
	v := q.Get(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("%w: %s must be a number", analytics.ErrInvalidParams, key)
	}
	return f, nil
}

func parseInt(q url.Values, key string, fallback int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%w: %s must be an integer", analytics.ErrInvalidParams, key)
	}
	return n, nil
}

// statusFor maps the error taxonomy to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, analytics.ErrInvalidParams),
		errors.Is(err, domain.ErrInvalidSimulationParameters):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyPortfolio),
		errors.Is(err, domain.ErrInsufficientData),
		errors.Is(err, domain.ErrSeriesAlignment),
		errors.Is(err, domain.ErrMissingLiquidityTag),
		errors.Is(err, domain.ErrInvalidWeights):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPartialData):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
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
	event.Err(err).Int("status", status).Msg("Analytics request failed")

	body := map[string]interface{}{"error": err.Error()}
	var partial *domain.PartialDataError
	if errors.As(err, &partial) {
		body["failed_instruments"] = partial.Instruments()
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON encodes before writing the status so an unencodable body becomes a 500
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "failed to encode response: " + err.Error()})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
