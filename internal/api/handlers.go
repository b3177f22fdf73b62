package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/retail-rfm/internal/domain"
	"github.com/ignite/retail-rfm/internal/pkg/httputil"
	"github.com/ignite/retail-rfm/internal/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// ReportSource supplies the most recent run report.
type ReportSource interface {
	Latest(ctx context.Context) (*domain.RunReport, error)
}

// Handlers contains the report endpoints.
type Handlers struct {
	reports ReportSource
}

// NewHandlers creates handlers over reports.
func NewHandlers(reports ReportSource) *Handlers {
	return &Handlers{reports: reports}
}

// latest loads the current report, writing the error response itself when
// there is none.
func (h *Handlers) latest(w http.ResponseWriter, r *http.Request) (*domain.RunReport, bool) {
	report, err := h.reports.Latest(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		httputil.ErrorCode(w, http.StatusNotFound, "no_report", "no pipeline run has been recorded yet")
		return nil, false
	}
	if err != nil {
		httputil.InternalError(w, err)
		return nil, false
	}
	return report, true
}

// GetReport returns the full run report.
//
//	GET /api/report
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	if report, ok := h.latest(w, r); ok {
		httputil.OK(w, report)
	}
}

// ListCustomers pages through scored customers, optionally filtered by tier.
//
//	GET /api/customers?segment=Top-Tier&limit=50&offset=0
func (h *Handlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	segment := domain.Segment(r.URL.Query().Get("segment"))
	if segment != "" && !segment.Valid() {
		httputil.BadRequest(w, "unknown segment "+strconv.Quote(string(segment)))
		return
	}
	page, ok := ParsePagination(w, r, defaultPageSize, maxPageSize)
	if !ok {
		return
	}
	report, ok := h.latest(w, r)
	if !ok {
		return
	}

	customers := report.Customers
	if segment != "" {
		customers = make([]domain.ScoredCustomer, 0)
		for _, c := range report.Customers {
			if c.Segment == segment {
				customers = append(customers, c)
			}
		}
	}

	data, meta := paginate(customers, page)
	httputil.OK(w, PaginatedResponse{Data: data, Pagination: meta})
}

// GetCustomer returns one scored customer.
//
//	GET /api/customers/{id}
func (h *Handlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.BadRequest(w, "customer id must be a positive integer")
		return
	}
	report, ok := h.latest(w, r)
	if !ok {
		return
	}
	for _, c := range report.Customers {
		if c.CustomerID == id {
			httputil.OK(w, c)
			return
		}
	}
	httputil.NotFound(w, "customer not found")
}

// GetSegments returns the per-tier summaries.
//
//	GET /api/segments
func (h *Handlers) GetSegments(w http.ResponseWriter, r *http.Request) {
	if report, ok := h.latest(w, r); ok {
		httputil.OK(w, report.Portfolio.Segments)
	}
}

// GetKPIs returns the portfolio KPIs.
//
//	GET /api/kpis
func (h *Handlers) GetKPIs(w http.ResponseWriter, r *http.Request) {
	if report, ok := h.latest(w, r); ok {
		httputil.OK(w, report.Portfolio.KPIs)
	}
}

// GetPareto returns the revenue concentration figures.
//
//	GET /api/pareto
func (h *Handlers) GetPareto(w http.ResponseWriter, r *http.Request) {
	if report, ok := h.latest(w, r); ok {
		httputil.OK(w, report.Portfolio.Pareto)
	}
}

// GetLeaders returns the leader and top spender lists.
//
//	GET /api/leaders
func (h *Handlers) GetLeaders(w http.ResponseWriter, r *http.Request) {
	if report, ok := h.latest(w, r); ok {
		httputil.OK(w, map[string]interface{}{
			"leaders":      report.Portfolio.Leaders,
			"top_spenders": report.Portfolio.TopSpenders,
		})
	}
}
